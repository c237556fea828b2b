// Package ascii85 implements the ASCII-85 encoding used by PDF, including
// the "z" shorthand for zero groups and the "~>" end-of-data marker.
package ascii85

import (
	"bufio"
	"errors"
	"io"
)

// ErrCorrupt indicates invalid ASCII-85 input.
var ErrCorrupt = errors.New("ascii85: corrupt input")

type reader struct {
	r      io.ByteReader
	out    [4]byte
	pos, n int
	eod    bool
	noEOD  bool
	err    error
}

// NewReader returns a reader which decodes ASCII-85 data read from r.
// Decoding stops at the "~>" marker or at the end of input.
func NewReader(r io.Reader) io.Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &reader{r: br}
}

// MissingEOD reports whether the input ended without the "~>" marker.
// The result is only meaningful once decoding has reached the end of the
// input.
func (d *reader) MissingEOD() bool {
	return d.noEOD
}

func (d *reader) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if d.pos < d.n {
			k := copy(p[total:], d.out[d.pos:d.n])
			total += k
			d.pos += k
			continue
		}
		if d.err != nil {
			break
		}
		d.fill()
	}
	if total > 0 {
		return total, nil
	}
	return 0, d.err
}

// fill decodes the next group into d.out.
func (d *reader) fill() {
	var group [5]byte
	k := 0
	for k < 5 {
		c, err := d.r.ReadByte()
		if err == io.EOF {
			// A missing "~>" marker is tolerated.
			break
		} else if err != nil {
			d.err = err
			return
		}

		switch {
		case isSpace[c]:
			continue
		case c == 'z' && k == 0:
			d.out = [4]byte{}
			d.pos, d.n = 0, 4
			return
		case c == '~':
			next, err := d.r.ReadByte()
			if err == nil && next != '>' {
				d.err = ErrCorrupt
				return
			}
			d.eod = true
		case c >= '!' && c <= 'u':
			group[k] = c - '!'
			k++
			continue
		default:
			d.err = ErrCorrupt
			return
		}
		break
	}

	if k == 0 {
		if !d.eod {
			d.noEOD = true
		}
		d.err = io.EOF
		return
	}
	if k == 1 {
		d.err = ErrCorrupt
		return
	}

	// A partial group of k digits encodes k-1 bytes.  The missing digits
	// are padded with the maximum value.
	for i := k; i < 5; i++ {
		group[i] = 84
	}
	var v uint32
	for _, digit := range group {
		v = v*85 + uint32(digit)
	}
	d.out[0] = byte(v >> 24)
	d.out[1] = byte(v >> 16)
	d.out[2] = byte(v >> 8)
	d.out[3] = byte(v)
	d.pos, d.n = 0, k-1
	if d.eod {
		// Hold back io.EOF until the decoded bytes are consumed.
		defer func() { d.err = io.EOF }()
	}
}

const maxLineLength = 76

type writer struct {
	w   io.Writer
	buf [4]byte
	n   int
	col int
	err error
}

// NewWriter returns a writer which encodes data in ASCII-85.  Calling Close
// flushes the final partial group and appends the "~>" marker.
func NewWriter(w io.Writer) io.WriteCloser {
	return &writer{w: w}
}

func (e *writer) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	total := len(p)
	for len(p) > 0 {
		k := copy(e.buf[e.n:], p)
		e.n += k
		p = p[k:]
		if e.n == 4 {
			e.flush(4)
			if e.err != nil {
				return total - len(p), e.err
			}
		}
	}
	return total, nil
}

func (e *writer) flush(n int) {
	for i := n; i < 4; i++ {
		e.buf[i] = 0
	}
	v := uint32(e.buf[0])<<24 | uint32(e.buf[1])<<16 |
		uint32(e.buf[2])<<8 | uint32(e.buf[3])

	var enc [5]byte
	if v == 0 && n == 4 {
		e.emit([]byte{'z'})
	} else {
		for i := 4; i >= 0; i-- {
			enc[i] = byte(v%85) + '!'
			v /= 85
		}
		e.emit(enc[:n+1])
	}
	e.n = 0
}

func (e *writer) emit(buf []byte) {
	if e.err != nil {
		return
	}
	if e.col+len(buf) > maxLineLength {
		_, e.err = e.w.Write([]byte{'\n'})
		if e.err != nil {
			return
		}
		e.col = 0
	}
	_, e.err = e.w.Write(buf)
	e.col += len(buf)
}

func (e *writer) Close() error {
	if e.err != nil {
		return e.err
	}
	if e.n > 0 {
		e.flush(e.n)
	}
	e.emit([]byte("~>"))
	return e.err
}

var isSpace = map[byte]bool{
	0:  true,
	9:  true,
	10: true,
	12: true,
	13: true,
	32: true,
}
