// pdfmill/pdf - support for reading and writing PDF files
// Copyright (C) 2026  The pdfmill authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const scannerBufSize = 1024

// scanner reads PDF syntax from a window over an io.ReaderAt.  The same
// scanner type is used for the file itself and for decoded object streams
// (backed by a bytes.Reader).
type scanner struct {
	ra   io.ReaderAt
	size int64

	r         io.Reader
	base      int64
	buf       []byte
	used, pos int
	total     int64

	// getInt resolves a /Length entry which may be an indirect reference.
	// May be nil, in which case only direct entries are understood.
	getInt func(Object) (Integer, error)

	opt   *ReaderOptions
	depth int
}

func newScanner(ra io.ReaderAt, size, pos int64, getInt func(Object) (Integer, error), opt *ReaderOptions) *scanner {
	if opt == nil {
		opt, _ = (*ReaderOptions)(nil).fill()
	}
	s := &scanner{
		ra:     ra,
		size:   size,
		buf:    make([]byte, scannerBufSize),
		getInt: getInt,
		opt:    opt,
	}
	s.jumpTo(pos)
	return s
}

func (s *scanner) warn(msg string, keyvals ...interface{}) {
	s.opt.Log(WarnLevel, msg, keyvals...)
}

// currentPos returns the file position of the next byte to be read.
func (s *scanner) currentPos() int64 {
	return s.base + s.total + int64(s.pos)
}

// jumpTo repositions the scanner at an absolute file offset, discarding the
// buffer.
func (s *scanner) jumpTo(pos int64) {
	s.r = io.NewSectionReader(s.ra, pos, s.size-pos)
	s.base = pos
	s.total = 0
	s.pos = 0
	s.used = 0
}

// refill discards the consumed part of the buffer and reads as much new data
// as possible.  At the end of input, refill returns io.EOF.
func (s *scanner) refill() error {
	s.total += int64(s.pos)
	copy(s.buf, s.buf[s.pos:s.used])
	s.used -= s.pos
	s.pos = 0

	n, err := io.ReadFull(s.r, s.buf[s.used:])
	s.used += n

	if n > 0 && (err == io.ErrUnexpectedEOF || err == io.EOF) {
		err = nil
	} else if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return err
}

// Peek returns a view of the next n bytes of input.  The function panics if
// n is larger than scannerBufSize.  Near the end of input a short buffer is
// returned without an error code.
func (s *scanner) Peek(n int) ([]byte, error) {
	if n > scannerBufSize {
		panic("peek window too large")
	}

	var err error
	if s.pos+n > s.used {
		err = s.refill()
		if err == io.EOF && s.used > s.pos {
			err = nil
		}
	}

	if s.pos+n > s.used {
		return s.buf[s.pos:s.used], err
	}
	return s.buf[s.pos : s.pos+n], nil
}

func (s *scanner) Discard(n int64) error {
	if n < 0 {
		panic("negative offset for Discard()")
	}
	unread := int64(s.used - s.pos)
	if n <= unread {
		s.pos += int(n)
		return nil
	}

	n -= unread
	s.total += int64(s.used)
	s.pos = 0
	s.used = 0

	m, err := io.CopyN(io.Discard, s.r, n)
	s.total += m
	if err == io.EOF && m < n {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// ReadBytes reads exactly n bytes.  At the end of input, the bytes read so
// far are returned together with io.ErrUnexpectedEOF.
func (s *scanner) ReadBytes(n int64) ([]byte, error) {
	res := make([]byte, 0, n)
	for int64(len(res)) < n {
		if s.pos == s.used {
			err := s.refill()
			if err == io.EOF {
				return res, io.ErrUnexpectedEOF
			} else if err != nil {
				return res, err
			}
		}
		k := int64(s.used - s.pos)
		if rem := n - int64(len(res)); k > rem {
			k = rem
		}
		res = append(res, s.buf[s.pos:s.pos+int(k)]...)
		s.pos += int(k)
	}
	return res, nil
}

// ScanBytes feeds input bytes to accept until accept returns false.  The
// terminating byte is not consumed.  io.ErrUnexpectedEOF is returned when
// the input ends before accept terminates the scan and no byte was
// consumed at all; the caller decides whether a partial scan is an error.
func (s *scanner) ScanBytes(accept func(c byte) bool) error {
	empty := true
	for {
		for s.pos < s.used {
			if !accept(s.buf[s.pos]) {
				return nil
			}
			s.pos++
			empty = false
		}
		err := s.refill()
		if err == io.EOF {
			if empty {
				return io.ErrUnexpectedEOF
			}
			return io.EOF
		} else if err != nil {
			return err
		}
	}
}

func (s *scanner) SkipWhiteSpace() error {
	isComment := false
	err := s.ScanBytes(func(c byte) bool {
		if isComment {
			if c == '\r' || c == '\n' {
				isComment = false
			}
		} else if c == '%' {
			isComment = true
		} else {
			return isSpace[c]
		}
		return true
	})
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil
	}
	return err
}

func (s *scanner) SkipString(pat string) error {
	patBytes := []byte(pat)
	n := len(patBytes)
	buf, err := s.Peek(n)
	if err != nil && err != io.EOF {
		return err
	}
	if !bytes.Equal(buf, patBytes) {
		return &MalformedFileError{
			Pos: s.currentPos(),
			Err: fmt.Errorf("expected %q but found %q", pat, string(buf)),
		}
	}
	s.pos += n
	return nil
}

// find returns the absolute position of the next occurrence of pat at or
// after the given file offset, searching the backing store directly.
func (s *scanner) find(pat string, from int64) (int64, error) {
	const chunkSize = 4096
	patBytes := []byte(pat)
	k := len(patBytes)
	buf := make([]byte, chunkSize+k-1)

	pos := from
	for pos < s.size {
		n, err := s.ra.ReadAt(buf, pos)
		if err != nil && err != io.EOF {
			return 0, err
		}
		idx := bytes.Index(buf[:n], patBytes)
		if idx >= 0 {
			return pos + int64(idx), nil
		}
		if int64(n) >= s.size-pos {
			break
		}
		pos += int64(n - k + 1)
	}
	return 0, io.EOF
}

// ReadIndirectObject reads one "N G obj ... endobj" block at the current
// position.
func (s *scanner) ReadIndirectObject() (Object, Reference, error) {
	var zero Reference

	// Some files point the xref entries at the end of the previous line.
	// Skip any leading white space.
	err := s.SkipWhiteSpace()
	if err != nil {
		return nil, zero, err
	}

	number, err := s.ReadInteger()
	if err != nil {
		return nil, zero, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, zero, err
	}

	generation, err := s.ReadInteger()
	if err != nil {
		return nil, zero, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, zero, err
	}

	err = s.SkipString("obj")
	if err != nil {
		return nil, zero, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, zero, err
	}

	obj, err := s.ReadObject()
	if err != nil {
		return nil, zero, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, zero, err
	}

	if a, ok := obj.(Integer); ok {
		// Check whether this is the start of a reference to an indirect
		// object.
		buf, _ := s.Peek(6)
		if len(buf) > 0 && buf[0] >= '0' && buf[0] <= '9' {
			b, err := s.ReadInteger()
			if err != nil {
				return nil, zero, err
			}
			err = s.SkipWhiteSpace()
			if err != nil {
				return nil, zero, err
			}
			err = s.SkipString("R")
			if err != nil {
				return nil, zero, err
			}
			err = s.SkipWhiteSpace()
			if err != nil {
				return nil, zero, err
			}
			obj = Reference{Number: uint32(a), Generation: uint16(b)}
		}
	}

	err = s.SkipString("endobj")
	if err != nil {
		// Many writers get the end of the object slightly wrong.  The
		// object itself has been read successfully at this point, so a
		// missing or misplaced "endobj" keyword is repaired silently.
		s.warn("missing endobj keyword", "pos", s.currentPos())
	}

	ref := Reference{Number: uint32(number), Generation: uint16(generation)}
	return obj, ref, nil
}

// ReadObject reads one object at the current position.
func (s *scanner) ReadObject() (Object, error) {
	buf, err := s.Peek(5) // len("false") == 5
	if err == nil || err == io.EOF {
		// Below, we return `err` if we cannot detect an object.  Use
		// &MalformedFileError{} when there was no problem reading the input.
		if len(buf) < 5 {
			err = &MalformedFileError{Pos: s.currentPos(), Err: io.ErrUnexpectedEOF}
		} else {
			err = &MalformedFileError{Pos: s.currentPos()}
		}
	}

	switch {
	case len(buf) == 0:
		// Test this first, so that we can use buf[0] in the following cases.
		return nil, err
	case bytes.HasPrefix(buf, []byte("null")):
		s.pos += 4
		return nil, nil
	case bytes.HasPrefix(buf, []byte("true")):
		s.pos += 4
		return Bool(true), nil
	case bytes.HasPrefix(buf, []byte("false")):
		s.pos += 5
		return Bool(false), nil
	case buf[0] == '/':
		return s.ReadName()
	case buf[0] >= '0' && buf[0] <= '9', buf[0] == '+', buf[0] == '-', buf[0] == '.':
		return s.ReadNumber()
		// It is the caller's responsibility to check whether this is the
		// start of a reference.

	case bytes.HasPrefix(buf, []byte("<<")):
		dict, err := s.ReadDict()
		if err != nil {
			return nil, err
		}

		// check whether this is the start of a stream
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		buf, _ = s.Peek(6) // len("stream") == 6
		if !bytes.HasPrefix(buf, []byte("stream")) {
			return dict, nil
		}
		return s.ReadStreamData(dict)
	case buf[0] == '(':
		s.pos++
		return s.ReadQuotedString()
	case buf[0] == '<':
		s.pos++
		return s.ReadHexString()
	case buf[0] == '[':
		s.pos++
		return s.ReadArray()
	}
	return nil, err
}

// ReadInteger reads an integer used in the file structure (object numbers,
// xref offsets).  Unlike ReadNumber, malformed input is a hard error here.
func (s *scanner) ReadInteger() (Integer, error) {
	first := true
	var res []byte
	err := s.ScanBytes(func(c byte) bool {
		if first && (c == '+' || c == '-') {
			res = append(res, c)
		} else if c >= '0' && c <= '9' {
			res = append(res, c)
		} else {
			return false
		}
		first = false
		return true
	})
	if err != nil && err != io.EOF {
		return 0, err
	}

	x, err := strconv.ParseInt(string(res), 10, 64)
	if err != nil {
		return 0, &MalformedFileError{
			Pos: s.currentPos(),
			Err: err,
		}
	}
	return Integer(x), nil
}

// ReadNumber reads an integer or real number.  A malformed numeric token
// degrades to zero with a warning; real-world files contain a surprising
// amount of garbage in numeric positions.
func (s *scanner) ReadNumber() (Object, error) {
	start := s.currentPos()
	var res []byte
	err := s.ScanBytes(func(c byte) bool {
		if isSpace[c] || isDelimiter[c] {
			return false
		}
		res = append(res, c)
		return true
	})
	if err != nil && err != io.EOF {
		return nil, err
	}

	tok := string(res)
	if !bytes.ContainsAny(res, ".") {
		x, err := strconv.ParseInt(tok, 10, 64)
		if err == nil {
			return Integer(x), nil
		}
	}
	x, err := strconv.ParseFloat(tok, 64)
	if err == nil {
		return Real(x), nil
	}

	s.warn("malformed number treated as 0", "token", tok, "pos", start)
	return Integer(0), nil
}

// ReadQuotedString reads a ()-delimited string, starting after the opening
// bracket.
func (s *scanner) ReadQuotedString() (String, error) {
	var res []byte
	parentCount := 0
	escape := false
	ignoreLF := false
	isOctal := 0
	octalVal := byte(0)
	err := s.ScanBytes(func(c byte) bool {
		if ignoreLF {
			ignoreLF = false
			if c == '\n' {
				return true
			}
		}
		if isOctal > 0 {
			if c >= '0' && c <= '7' {
				octalVal = octalVal*8 + (c - '0')
				isOctal--
				if isOctal == 0 {
					res = append(res, octalVal)
				}
				return true
			}
			res = append(res, octalVal)
			isOctal = 0
			// c is reconsidered below
		}
		if escape {
			escape = false
			switch c {
			case '\n':
				return true
			case '\r':
				ignoreLF = true
				return true
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			}
			if c >= '0' && c <= '7' {
				isOctal = 2
				octalVal = c - '0'
				return true
			}
		} else if c == '\\' {
			escape = true
			return true
		} else if c == '(' {
			parentCount++
		} else if c == ')' {
			if parentCount > 0 {
				parentCount--
			} else {
				return false
			}
		} else if c == '\r' {
			c = '\n'
			ignoreLF = true
		}
		res = append(res, c)
		return true
	})
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if s.opt.Strict {
			return nil, &MalformedFileError{
				Pos: s.currentPos(),
				Err: errors.New("unterminated string"),
			}
		}
		s.warn("unterminated string", "pos", s.currentPos())
		return String(res), nil
	} else if err != nil {
		return nil, err
	}

	s.pos++ // we have already seen the closing ")".
	return String(res), nil
}

// ReadHexString reads a <>-delimited string, starting after the opening
// angle bracket.  An odd number of digits is padded with a zero nibble, and
// embedded white space is ignored.
func (s *scanner) ReadHexString() (String, error) {
	var res []byte
	var hexVal byte
	first := true
	err := s.ScanBytes(func(c byte) bool {
		var d byte
		if c >= '0' && c <= '9' {
			d = c - '0'
		} else if c >= 'A' && c <= 'F' {
			d = c - 'A' + 10
		} else if c >= 'a' && c <= 'f' {
			d = c - 'a' + 10
		} else if c == '>' {
			return false
		} else {
			return true
		}
		if first {
			hexVal = d
		} else {
			res = append(res, 16*hexVal+d)
		}
		first = !first
		return true
	})
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		if s.opt.Strict {
			return nil, &MalformedFileError{
				Pos: s.currentPos(),
				Err: errors.New("unterminated hex string"),
			}
		}
		s.warn("unterminated hex string", "pos", s.currentPos())
	} else if err != nil {
		return nil, err
	}
	if !first {
		res = append(res, 16*hexVal)
	}

	// If we reached the end of the file, the trailing ">" will be missing.
	s.SkipString(">")

	return String(res), nil
}

// ReadName reads a PDF name object.
func (s *scanner) ReadName() (Name, error) {
	err := s.SkipString("/")
	if err != nil {
		return "", err
	}

	hex := 0
	var hexByte byte
	var res []byte
	err = s.ScanBytes(func(c byte) bool {
		if hex > 0 {
			var val byte
			if c >= '0' && c <= '9' {
				val = c - '0'
			} else if c >= 'A' && c <= 'F' {
				val = c - 'A' + 10
			} else if c >= 'a' && c <= 'f' {
				val = c - 'a' + 10
			}
			hexByte = 16*hexByte + val
			hex--
			if hex == 0 {
				res = append(res, hexByte)
			}
		} else if c == '#' {
			hexByte = 0
			hex = 2
		} else if isSpace[c] || isDelimiter[c] {
			return false
		} else {
			res = append(res, c)
		}
		return true
	})
	// The empty name "/" is valid, even at the very end of the input.
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}

	return Name(res), nil
}

// ReadArray reads an array, starting after the opening "[".
func (s *scanner) ReadArray() (Array, error) {
	if s.depth >= s.opt.MaxDepth {
		return nil, &MalformedFileError{
			Pos: s.currentPos(),
			Err: errors.New("nesting depth exceeded"),
		}
	}
	s.depth++
	defer func() { s.depth-- }()

	var array Array
	integersSeen := 0
	for {
		err := s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		buf, err := s.Peek(1)
		if len(buf) == 0 {
			if s.opt.Strict {
				return nil, &MalformedFileError{
					Pos: s.currentPos(),
					Err: io.ErrUnexpectedEOF,
				}
			}
			s.warn("unterminated array", "pos", s.currentPos())
			return array, nil
		} else if err != nil && err != io.EOF {
			return nil, err
		}
		if buf[0] == ']' {
			break
		}
		if integersSeen >= 2 && buf[0] == 'R' {
			s.pos++
			k := len(array)
			a := array[k-2].(Integer)
			b := array[k-1].(Integer)
			array = append(array[:k-2],
				Reference{Number: uint32(a), Generation: uint16(b)})
			integersSeen = 0
			continue
		}

		obj, err := s.ReadObject()
		if err != nil {
			return nil, err
		}

		if _, isInt := obj.(Integer); isInt {
			integersSeen++
		} else {
			integersSeen = 0
		}

		array = append(array, obj)
	}
	s.pos++ // we have already seen the closing "]"

	return array, nil
}

// ReadDict reads a PDF dictionary, starting at the "<<".
func (s *scanner) ReadDict() (Dict, error) {
	if s.depth >= s.opt.MaxDepth {
		return nil, &MalformedFileError{
			Pos: s.currentPos(),
			Err: errors.New("nesting depth exceeded"),
		}
	}
	s.depth++
	defer func() { s.depth-- }()

	err := s.SkipString("<<")
	if err != nil {
		return nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}

	dict := make(Dict)
	for {
		var key Name
		key, err = s.ReadName()
		if _, ok := err.(*MalformedFileError); ok {
			break
		} else if err != nil {
			return nil, err
		}

		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		var val Object
		val, err = s.ReadObject()
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		// If we found an integer, check whether this is a reference to an
		// indirect object.
		if a, isInt := val.(Integer); isInt {
			buf, err := s.Peek(1)
			if len(buf) == 0 {
				if s.opt.Strict {
					return nil, &MalformedFileError{
						Pos: s.currentPos(),
						Err: io.ErrUnexpectedEOF,
					}
				}
				s.warn("unterminated dictionary", "pos", s.currentPos())
				dict[key] = val
				return dict, nil
			} else if err != nil && err != io.EOF {
				return nil, err
			}
			if buf[0] != '/' && buf[0] != '>' {
				b, err := s.ReadInteger()
				if err != nil {
					return nil, err
				}

				err = s.SkipWhiteSpace()
				if err != nil {
					return nil, err
				}

				err = s.SkipString("R")
				if err != nil {
					return nil, err
				}
				err = s.SkipWhiteSpace()
				if err != nil {
					return nil, err
				}

				val = Reference{Number: uint32(a), Generation: uint16(b)}
			}
		}

		// Later duplicates of a key win, matching the behavior of common
		// viewers on malformed files.
		if _, seen := dict[key]; seen {
			s.warn("duplicate dictionary key", "key", string(key))
		}
		dict[key] = val
	}
	err = s.SkipString(">>")
	if err != nil {
		return nil, err
	}

	return dict, nil
}

// ReadStreamData reads the payload of a stream, starting after the stream
// dictionary.  The declared /Length is used when plausible; otherwise the
// input is scanned forward for the "endstream" keyword and the real length
// is derived from its position.
func (s *scanner) ReadStreamData(dict Dict) (*Stream, error) {
	length := int64(-1)
	if s.getInt != nil {
		l, err := s.getInt(dict["Length"])
		if err == nil && l >= 0 {
			length = int64(l)
		}
	} else if l, ok := dict["Length"].(Integer); ok && l >= 0 {
		length = int64(l)
	}

	err := s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}
	err = s.SkipString("stream")
	if err != nil {
		return nil, err
	}

	// The stream keyword must be followed by CRLF or LF, never a bare CR.
	buf, err := s.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	switch {
	case len(buf) >= 2 && buf[0] == '\r' && buf[1] == '\n':
		s.pos += 2
	case len(buf) >= 1 && buf[0] == '\n':
		s.pos++
	case len(buf) >= 1 && buf[0] == '\r':
		if s.opt.Strict {
			return nil, &MalformedFileError{
				Pos: s.currentPos(),
				Err: errors.New("bare CR after stream keyword"),
			}
		}
		s.warn("bare CR after stream keyword", "pos", s.currentPos())
		s.pos++
	default:
		return nil, &MalformedFileError{Pos: s.currentPos()}
	}

	dataStart := s.currentPos()

	if length >= 0 {
		raw, err := s.ReadBytes(length)
		if err == io.ErrUnexpectedEOF {
			if s.opt.Strict {
				return nil, &MalformedFileError{
					Pos: s.currentPos(),
					Err: io.ErrUnexpectedEOF,
				}
			}
			// The declared length runs past the end of the file.  Fall
			// through to the endstream scan below.
			s.warn("incorrect stream length", "pos", dataStart, "length", length)
		} else if err != nil {
			return nil, err
		} else {
			afterData := s.currentPos()
			err = s.SkipWhiteSpace()
			if err != nil {
				return nil, err
			}
			if s.SkipString("endstream") == nil {
				return NewStream(dict, raw), nil
			}
			s.warn("incorrect stream length", "pos", dataStart, "length", length)
			s.jumpTo(afterData)
		}
	}

	// The declared length was wrong or missing.  Derive the true length
	// from the position of the endstream keyword.
	end, err := s.find("endstream", dataStart)
	if err != nil {
		return nil, &MalformedFileError{
			Pos: dataStart,
			Err: errors.New("endstream not found"),
		}
	}
	s.jumpTo(dataStart)
	raw, err := s.ReadBytes(end - dataStart)
	if err != nil {
		return nil, err
	}
	// Remove the end-of-line marker preceding the keyword.
	if n := len(raw); n > 0 && raw[n-1] == '\n' {
		raw = raw[:n-1]
		if n > 1 && raw[n-2] == '\r' {
			raw = raw[:n-2]
		}
	} else if n > 0 && raw[n-1] == '\r' {
		raw = raw[:n-1]
	}
	err = s.SkipString("endstream")
	if err != nil {
		return nil, err
	}

	return NewStream(dict, raw), nil
}

func (s *scanner) readHeaderVersion() (Version, error) {
	buf, err := s.Peek(16)
	if err != nil && err != io.EOF {
		return 0, err
	}

	if !bytes.HasPrefix(buf, []byte("%PDF-")) || len(buf) < 9 {
		return 0, &MalformedFileError{
			Err: errors.New("PDF header not found"),
		}
	}

	version, err := ParseVersion(string(buf[5:8]))
	if err != nil {
		return 0, &MalformedFileError{Pos: 5, Err: errVersion}
	}
	s.pos += 8

	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, err
	}

	return version, nil
}

var (
	isSpace = map[byte]bool{
		0:  true,
		9:  true,
		10: true,
		12: true,
		13: true,
		32: true,
	}
	isDelimiter = map[byte]bool{
		'(': true,
		')': true,
		'<': true,
		'>': true,
		'[': true,
		']': true,
		'{': true,
		'}': true,
		'/': true,
		'%': true,
	}
)
