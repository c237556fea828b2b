// Package lzw implements the LZW variant used by PDF: codes are written
// most-significant-bit first, start at 9 bits, and grow to at most 12 bits.
// Code 256 resets the dictionary, code 257 marks the end of data.  With
// earlyChange set, the code width increases one code earlier than the
// dictionary size requires; this off-by-one is the default for PDF streams.
package lzw

import (
	"bufio"
	"errors"
	"io"
)

const (
	clearCode = 256
	eodCode   = 257

	minWidth = 9
	maxWidth = 12
	maxCodes = 1 << maxWidth
)

// ErrCorrupt indicates invalid LZW compressed data.
var ErrCorrupt = errors.New("lzw: corrupt input")

type reader struct {
	r           io.ByteReader
	earlyChange int

	bits  uint32
	nBits uint
	width uint

	table [][]byte
	prev  []byte

	out   []byte
	noEOD bool
	err   error
}

// NewReader returns an io.ReadCloser which decompresses data read from r.
func NewReader(r io.Reader, earlyChange bool) io.ReadCloser {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	d := &reader{r: br}
	if earlyChange {
		d.earlyChange = 1
	}
	d.reset()
	return d
}

func (d *reader) reset() {
	table := make([][]byte, 258, maxCodes)
	for i := 0; i < 256; i++ {
		table[i] = []byte{byte(i)}
	}
	d.table = table
	d.prev = nil
	d.width = minWidth
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
		d.decode()
	}
	if n > 0 {
		return n, nil
	}
	return 0, d.err
}

func (d *reader) Close() error {
	if d.err == io.EOF {
		return nil
	}
	return d.err
}

// MissingEOD reports whether the input ended without the end-of-data code.
// The result is only meaningful once decoding has reached the end of the
// input.
func (d *reader) MissingEOD() bool {
	return d.noEOD
}

func (d *reader) readCode() (int, error) {
	for d.nBits < d.width {
		c, err := d.r.ReadByte()
		if err == io.EOF {
			// A missing end-of-data code is tolerated.
			d.noEOD = true
			return eodCode, nil
		} else if err != nil {
			return 0, err
		}
		d.bits = d.bits<<8 | uint32(c)
		d.nBits += 8
	}
	d.nBits -= d.width
	code := int(d.bits>>d.nBits) & (1<<d.width - 1)
	return code, nil
}

func (d *reader) decode() {
	code, err := d.readCode()
	if err != nil {
		d.err = err
		return
	}

	switch {
	case code == clearCode:
		d.reset()
		return
	case code == eodCode:
		d.err = io.EOF
		return
	}

	var entry []byte
	switch {
	case code < len(d.table) && d.table[code] != nil:
		entry = d.table[code]
	case code == len(d.table) && d.prev != nil:
		entry = append(append([]byte(nil), d.prev...), d.prev[0])
	default:
		d.err = ErrCorrupt
		return
	}

	d.out = append(d.out, entry...)

	if d.prev != nil && len(d.table) < maxCodes {
		grown := append(append([]byte(nil), d.prev...), entry[0])
		d.table = append(d.table, grown)
	}
	d.prev = entry

	// The compressor has one more entry than we do at this point, for
	// which the first byte is still unknown.  The code width has to grow
	// as if that entry were already present.
	if len(d.table)+1+d.earlyChange >= 1<<d.width && d.width < maxWidth {
		d.width++
	}
}
