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
)

// xRefEntry describes the location of one indirect object.  Free objects
// are represented by nil entries in the xref table, so that a free entry in
// a newer section shadows the object in older sections.
type xRefEntry struct {
	// Pos is the file offset of the object, or the index of the object
	// within its object stream.
	Pos int64

	// InStream is the object stream containing the object.  The zero
	// Reference means the object is stored directly in the file.
	InStream Reference

	Generation uint16
}

// readXRef reads the complete cross-reference information for the file,
// following the chain of previous sections.  The returned trailer dictionary
// is merged across all sections, with the newest value winning for each key.
func (r *Reader) readXRef() (map[uint32]*xRefEntry, Dict, error) {
	start, err := r.findStartXRef()
	if err != nil {
		return nil, nil, err
	}

	xref := make(map[uint32]*xRefEntry)
	trailer := Dict{}
	seen := make(map[int64]bool)
	for start != -1 {
		if start < 0 || start >= r.size {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: errors.New("xref offset out of range"),
			}
		}
		if seen[start] {
			return nil, nil, &MalformedFileError{
				Pos: start,
				Err: errors.New("cycle in xref chain"),
			}
		}
		seen[start] = true

		section, dict, err := r.readXRefSection(start)
		if err != nil {
			return nil, nil, err
		}

		for number, entry := range section {
			if _, ok := xref[number]; !ok {
				xref[number] = entry
			}
		}
		for key, val := range dict {
			if _, ok := trailer[key]; !ok {
				trailer[key] = val
			}
		}

		start = -1
		if prev, ok := dict["Prev"].(Integer); ok {
			start = int64(prev)
		}
	}

	delete(trailer, "Prev")
	delete(trailer, "XRefStm")
	return xref, trailer, nil
}

// readXRefSection reads a single cross-reference section, either a classic
// table or an xref stream.  For hybrid-reference files the stream named by
// /XRefStm is folded into the section, with stream entries taking
// precedence over table entries.
func (r *Reader) readXRefSection(pos int64) (map[uint32]*xRefEntry, Dict, error) {
	s := r.scannerAt(pos)
	err := s.SkipWhiteSpace()
	if err != nil {
		return nil, nil, err
	}

	buf, err := s.Peek(4)
	if err != nil && err != io.EOF {
		return nil, nil, err
	}
	if bytes.HasPrefix(buf, []byte("xref")) {
		s.pos += 4
		section, dict, err := readXRefTable(s)
		if err != nil {
			return nil, nil, err
		}
		if stm, ok := dict["XRefStm"].(Integer); ok {
			hidden, _, err := r.readXRefStream(r.scannerAt(int64(stm)))
			if err != nil {
				if r.opt.Strict {
					return nil, nil, err
				}
				r.opt.Log(WarnLevel, "broken hybrid xref stream ignored",
					"pos", int64(stm), "err", err)
			}
			for number, entry := range hidden {
				section[number] = entry
			}
		}
		return section, dict, nil
	}
	return r.readXRefStream(s)
}

// readXRefTable reads a classic cross-reference table, starting after the
// "xref" keyword, followed by the trailer dictionary.
func readXRefTable(s *scanner) (map[uint32]*xRefEntry, Dict, error) {
	xref := make(map[uint32]*xRefEntry)
	for {
		err := s.SkipWhiteSpace()
		if err != nil {
			return nil, nil, err
		}

		buf, err := s.Peek(7) // len("trailer") == 7
		if err != nil && err != io.EOF {
			return nil, nil, err
		}
		if bytes.HasPrefix(buf, []byte("trailer")) {
			s.pos += 7
			break
		}

		start, err := s.ReadInteger()
		if err != nil {
			return nil, nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, nil, err
		}
		count, err := s.ReadInteger()
		if err != nil {
			return nil, nil, err
		}
		if start < 0 || count < 0 || count > 1<<24 {
			return nil, nil, &MalformedFileError{
				Pos: s.currentPos(),
				Err: errors.New("invalid xref subsection header"),
			}
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, nil, err
		}

		for i := int64(0); i < int64(count); i++ {
			// Each entry is exactly 20 bytes, but we are forgiving about
			// the separators.
			buf, err := s.ReadBytes(20)
			if err != nil {
				return nil, nil, err
			}
			entry, err := parseXRefTableEntry(buf)
			if err != nil {
				return nil, nil, &MalformedFileError{
					Pos: s.currentPos(),
					Err: err,
				}
			}

			number := uint32(int64(start) + i)
			if _, seen := xref[number]; !seen {
				xref[number] = entry
			}
		}
	}

	err := s.SkipWhiteSpace()
	if err != nil {
		return nil, nil, err
	}
	trailer, err := s.ReadDict()
	if err != nil {
		return nil, nil, err
	}
	return xref, trailer, nil
}

func parseXRefTableEntry(buf []byte) (*xRefEntry, error) {
	buf = bytes.TrimLeft(buf, " \r\n")
	if len(buf) < 18 {
		return nil, errors.New("xref entry too short")
	}
	var pos int64
	for _, c := range buf[:10] {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("invalid xref entry %q", buf)
		}
		pos = pos*10 + int64(c-'0')
	}
	var gen uint32
	for _, c := range buf[11:16] {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("invalid xref entry %q", buf)
		}
		gen = gen*10 + uint32(c-'0')
	}
	switch buf[17] {
	case 'f':
		return nil, nil
	case 'n':
		return &xRefEntry{Pos: pos, Generation: uint16(gen)}, nil
	}
	return nil, fmt.Errorf("invalid xref entry type %q", buf[17])
}

// readXRefStream reads a cross-reference stream at the current scanner
// position.
func (r *Reader) readXRefStream(s *scanner) (map[uint32]*xRefEntry, Dict, error) {
	obj, _, err := s.ReadIndirectObject()
	if err != nil {
		return nil, nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok || stream.Dict["Type"] != Name("XRef") {
		return nil, nil, &MalformedFileError{
			Pos: s.currentPos(),
			Err: errors.New("xref stream not found"),
		}
	}
	dict := stream.Dict

	w, err := decodeXRefWidths(dict["W"])
	if err != nil {
		return nil, nil, err
	}

	size, ok := dict["Size"].(Integer)
	if !ok || size < 0 {
		return nil, nil, &MalformedFileError{
			Pos: s.currentPos(),
			Err: errors.New("missing /Size in xref stream"),
		}
	}
	var index []Integer
	if ind, ok := dict["Index"].(Array); ok {
		if len(ind)%2 != 0 {
			return nil, nil, &MalformedFileError{
				Err: errors.New("invalid /Index in xref stream"),
			}
		}
		for _, x := range ind {
			xi, ok := x.(Integer)
			if !ok || xi < 0 {
				return nil, nil, &MalformedFileError{
					Err: errors.New("invalid /Index in xref stream"),
				}
			}
			index = append(index, xi)
		}
	} else {
		index = []Integer{0, size}
	}

	data, err := stream.Data(nil)
	if err != nil {
		return nil, nil, wrap(err, "xref stream data")
	}

	xref := make(map[uint32]*xRefEntry)
	rowLen := w[0] + w[1] + w[2]
	row := 0
	for i := 0; i+1 < len(index); i += 2 {
		start := index[i]
		count := index[i+1]
		for j := int64(0); j < int64(count); j++ {
			off := row * rowLen
			row++
			if off+rowLen > len(data) {
				return nil, nil, &MalformedFileError{
					Err: errors.New("xref stream too short"),
				}
			}
			number := uint32(int64(start) + j)
			if _, seen := xref[number]; seen {
				continue
			}

			// A zero-width type field defaults to type 1.
			tp := int64(1)
			if w[0] > 0 {
				tp = decodeXRefField(data[off : off+w[0]])
			}
			a := decodeXRefField(data[off+w[0] : off+w[0]+w[1]])
			b := decodeXRefField(data[off+w[0]+w[1] : off+rowLen])

			switch tp {
			case 0:
				xref[number] = nil
			case 1:
				xref[number] = &xRefEntry{Pos: a, Generation: uint16(b)}
			case 2:
				xref[number] = &xRefEntry{
					Pos:      b,
					InStream: Reference{Number: uint32(a)},
				}
			default:
				// Unknown types must be treated as free entries.
				xref[number] = nil
			}
		}
	}

	return xref, dict, nil
}

func decodeXRefWidths(obj Object) ([]int, error) {
	arr, ok := obj.(Array)
	if !ok || len(arr) < 3 {
		return nil, &MalformedFileError{
			Err: errors.New("invalid /W in xref stream"),
		}
	}
	w := make([]int, 3)
	for i := 0; i < 3; i++ {
		wi, ok := arr[i].(Integer)
		if !ok || wi < 0 || wi > 8 {
			return nil, &MalformedFileError{
				Err: errors.New("invalid /W in xref stream"),
			}
		}
		w[i] = int(wi)
	}
	if w[0]+w[1]+w[2] == 0 {
		return nil, &MalformedFileError{
			Err: errors.New("invalid /W in xref stream"),
		}
	}
	return w, nil
}

func decodeXRefField(buf []byte) int64 {
	var res int64
	for _, c := range buf {
		res = res<<8 | int64(c)
	}
	return res
}

// findStartXRef locates the startxref value near the end of the file.
func (r *Reader) findStartXRef() (int64, error) {
	const tailSize = 1024

	pos := r.size - tailSize
	if pos < 0 {
		pos = 0
	}
	buf := make([]byte, r.size-pos)
	_, err := io.ReadFull(io.NewSectionReader(r.r, pos, int64(len(buf))), buf)
	if err != nil {
		return 0, err
	}

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx < 0 {
		return 0, &MalformedFileError{
			Pos: r.size,
			Err: errors.New("startxref not found"),
		}
	}

	s := r.scannerAt(pos + int64(idx) + int64(len("startxref")))
	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, err
	}
	start, err := s.ReadInteger()
	if err != nil {
		return 0, err
	}
	return int64(start), nil
}
