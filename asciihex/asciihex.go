// Package asciihex implements the ASCII hex encoding used by PDF.  White
// space in the input is ignored, ">" marks the end of data, and a final odd
// digit is padded with zero.
package asciihex

import (
	"bufio"
	"errors"
	"io"
)

// ErrCorrupt indicates a byte which is neither a hex digit, white space nor
// the ">" marker.
var ErrCorrupt = errors.New("asciihex: corrupt input")

type reader struct {
	r     io.ByteReader
	noEOD bool
	err   error
}

// NewReader returns a reader which decodes hex data read from r.
func NewReader(r io.Reader) io.Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &reader{r: br}
}

// MissingEOD reports whether the input ended without the ">" marker.
// The result is only meaningful once decoding has reached the end of the
// input.
func (d *reader) MissingEOD() bool {
	return d.noEOD
}

func (d *reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if d.err != nil {
			break
		}
		var val byte
		digits := 0
		for digits < 2 {
			c, err := d.r.ReadByte()
			if err == io.EOF || c == '>' {
				// A missing ">" marker is tolerated.
				if err == io.EOF {
					d.noEOD = true
				}
				d.err = io.EOF
				break
			} else if err != nil {
				d.err = err
				break
			}

			x, ok := hexDigit(c)
			if !ok {
				if isSpace[c] {
					continue
				}
				d.err = ErrCorrupt
				break
			}
			val = val<<4 | x
			digits++
		}
		if digits == 0 {
			break
		}
		if digits == 1 {
			val <<= 4
		}
		p[n] = val
		n++
	}
	if n > 0 {
		return n, nil
	}
	return 0, d.err
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

const maxLineLength = 78

type writer struct {
	w   io.Writer
	col int
	err error
}

// NewWriter returns a writer which encodes data as hex digits.  Calling
// Close appends the ">" marker.
func NewWriter(w io.Writer) io.WriteCloser {
	return &writer{w: w}
}

func (e *writer) Write(p []byte) (int, error) {
	const digits = "0123456789ABCDEF"
	for i, c := range p {
		if e.err != nil {
			return i, e.err
		}
		if e.col+2 > maxLineLength {
			_, e.err = e.w.Write([]byte{'\n'})
			if e.err != nil {
				return i, e.err
			}
			e.col = 0
		}
		_, e.err = e.w.Write([]byte{digits[c>>4], digits[c&0x0F]})
		e.col += 2
	}
	return len(p), e.err
}

func (e *writer) Close() error {
	if e.err != nil {
		return e.err
	}
	_, e.err = e.w.Write([]byte{'>'})
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
