package lzw

import (
	"io"
)

type writer struct {
	w           io.Writer
	earlyChange int

	dict  map[uint32]uint16
	next  int
	width uint
	cur   int // current prefix code, or -1

	bits    uint32
	nBits   uint
	started bool
	err     error
}

// NewWriter returns an io.WriteCloser which LZW compresses data written to
// it.  The compressed stream is only complete after Close has been called.
func NewWriter(w io.Writer, earlyChange bool) (io.WriteCloser, error) {
	e := &writer{w: w, cur: -1}
	if earlyChange {
		e.earlyChange = 1
	}
	e.reset()
	return e, nil
}

func (e *writer) reset() {
	e.dict = make(map[uint32]uint16)
	e.next = 258
	e.width = minWidth
	e.cur = -1
}

func (e *writer) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	if !e.started {
		e.started = true
		e.emit(clearCode)
	}

	for i, b := range p {
		if e.cur < 0 {
			e.cur = int(b)
			continue
		}

		key := uint32(e.cur)<<8 | uint32(b)
		if code, ok := e.dict[key]; ok {
			e.cur = int(code)
			continue
		}

		e.emit(e.cur)
		if e.err != nil {
			return i, e.err
		}
		e.dict[key] = uint16(e.next)
		e.next++
		if e.next+e.earlyChange >= 1<<e.width && e.width < maxWidth {
			e.width++
		}
		if e.next+e.earlyChange >= maxCodes {
			e.emit(clearCode)
			e.reset()
		}
		e.cur = int(b)
	}
	return len(p), e.err
}

func (e *writer) Close() error {
	if e.err != nil {
		return e.err
	}
	if !e.started {
		e.emit(clearCode)
	}
	if e.cur >= 0 {
		e.emit(e.cur)
	}
	e.emit(eodCode)

	if e.nBits > 0 {
		b := byte(e.bits << (8 - e.nBits) & 0xFF)
		e.writeByte(b)
		e.nBits = 0
	}
	return e.err
}

// emit appends one code of the current width to the bit stream.
func (e *writer) emit(code int) {
	e.bits = e.bits<<e.width | uint32(code)
	e.nBits += e.width
	for e.nBits >= 8 {
		e.nBits -= 8
		e.writeByte(byte(e.bits >> e.nBits))
	}
}

func (e *writer) writeByte(b byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write([]byte{b})
}
