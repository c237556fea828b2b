// Package runlength implements the PackBits-style run length encoding used
// by PDF.  A length byte L is followed either by L+1 literal bytes (L < 128)
// or by one byte repeated 257-L times (L > 128).  The byte 128 marks the
// end of data.
package runlength

import (
	"bufio"
	"io"
)

const eod = 128

type reader struct {
	r     io.ByteReader
	out   []byte
	noEOD bool
	err   error
}

// NewReader returns a reader which decodes run length encoded data read
// from r.
func NewReader(r io.Reader) io.Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &reader{r: br}
}

// MissingEOD reports whether the input ended without the end-of-data byte.
// The result is only meaningful once decoding has reached the end of the
// input.
func (d *reader) MissingEOD() bool {
	return d.noEOD
}

func (d *reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(d.out) > 0 {
			k := copy(p[n:], d.out)
			d.out = d.out[k:]
			n += k
			continue
		}
		if d.err != nil {
			break
		}
		d.fill()
	}
	if n > 0 {
		return n, nil
	}
	return 0, d.err
}

func (d *reader) fill() {
	l, err := d.r.ReadByte()
	if err != nil {
		// A missing end-of-data byte is tolerated.
		d.noEOD = true
		d.err = io.EOF
		return
	}
	switch {
	case l == eod:
		d.err = io.EOF
	case l < eod:
		buf := make([]byte, int(l)+1)
		for i := range buf {
			c, err := d.r.ReadByte()
			if err != nil {
				d.err = io.ErrUnexpectedEOF
				return
			}
			buf[i] = c
		}
		d.out = buf
	default:
		c, err := d.r.ReadByte()
		if err != nil {
			d.err = io.ErrUnexpectedEOF
			return
		}
		buf := make([]byte, 257-int(l))
		for i := range buf {
			buf[i] = c
		}
		d.out = buf
	}
}

type writer struct {
	w   io.Writer
	buf []byte
	err error
}

// NewWriter returns a writer which run length encodes data.  Calling Close
// flushes pending data and appends the end-of-data byte.
func NewWriter(w io.Writer) io.WriteCloser {
	return &writer{w: w}
}

func (e *writer) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	e.buf = append(e.buf, p...)
	// Keep a tail buffered, so that a run crossing Write boundaries is
	// still detected.
	for len(e.buf) > 257 {
		e.encodeSome()
		if e.err != nil {
			return 0, e.err
		}
	}
	return len(p), nil
}

// encodeSome emits one run or one literal block from the front of the
// buffer.
func (e *writer) encodeSome() {
	buf := e.buf

	// length of the run at the start of buf
	run := 1
	for run < len(buf) && run < 128 && buf[run] == buf[0] {
		run++
	}
	if run >= 2 {
		_, e.err = e.w.Write([]byte{byte(257 - run), buf[0]})
		e.buf = buf[run:]
		return
	}

	// length of the literal block up to the next run of three
	lit := 1
	for lit < len(buf) && lit < 128 {
		if lit+2 < len(buf) &&
			buf[lit] == buf[lit+1] && buf[lit] == buf[lit+2] {
			break
		}
		lit++
	}
	_, e.err = e.w.Write([]byte{byte(lit - 1)})
	if e.err == nil {
		_, e.err = e.w.Write(buf[:lit])
	}
	e.buf = buf[lit:]
}

func (e *writer) Close() error {
	for e.err == nil && len(e.buf) > 0 {
		e.encodeSome()
	}
	if e.err != nil {
		return e.err
	}
	_, e.err = e.w.Write([]byte{eod})
	return e.err
}
