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
	"errors"
	"io"
	"regexp"
)

var (
	objStartRegexp = regexp.MustCompile(`(?:^|[\r\n\f\t ])(\d{1,10})[\r\n\f\t ]+(\d{1,5})[\r\n\f\t ]+obj\b`)
	trailerRegexp  = regexp.MustCompile(`trailer`)
)

// rebuildXRef reconstructs the cross-reference table by scanning the whole
// file for object headers.  This is the last resort when the xref chain is
// missing or unusable.  Later definitions of an object number shadow
// earlier ones, matching the order of incremental updates.
func (r *Reader) rebuildXRef() (map[uint32]*xRefEntry, Dict, error) {
	r.opt.Log(WarnLevel, "rebuilding cross-reference table")

	buf, err := io.ReadAll(io.NewSectionReader(r.r, 0, r.size))
	if err != nil {
		return nil, nil, err
	}

	xref := make(map[uint32]*xRefEntry)
	for _, m := range objStartRegexp.FindAllSubmatchIndex(buf, -1) {
		number := parseDecimal(buf[m[2]:m[3]])
		gen := parseDecimal(buf[m[4]:m[5]])
		xref[uint32(number)] = &xRefEntry{
			Pos:        int64(m[2]),
			Generation: uint16(gen),
		}
	}
	if len(xref) == 0 {
		return nil, nil, &MalformedFileError{
			Err: errors.New("no objects found"),
		}
	}

	// Collect trailer dictionaries in file order.  Keys from later
	// trailers win, since they belong to newer incremental updates.
	trailer := Dict{}
	for _, m := range trailerRegexp.FindAllIndex(buf, -1) {
		s := r.scannerAt(int64(m[1]))
		err := s.SkipWhiteSpace()
		if err != nil {
			continue
		}
		dict, err := s.ReadDict()
		if err != nil {
			continue
		}
		for key, val := range dict {
			trailer[key] = val
		}
	}
	delete(trailer, "Prev")
	delete(trailer, "XRefStm")

	if _, ok := trailer["Root"]; !ok {
		// No usable trailer.  Look for the document catalog directly.
		for number, entry := range xref {
			if entry == nil || entry.InStream.Number != 0 {
				continue
			}
			s := r.scannerAt(entry.Pos)
			obj, _, err := s.ReadIndirectObject()
			if err != nil {
				continue
			}
			if dict, ok := obj.(Dict); ok && dict["Type"] == Name("Catalog") {
				trailer["Root"] = Reference{
					Number:     number,
					Generation: entry.Generation,
				}
				break
			}
		}
	}
	if _, ok := trailer["Root"]; !ok {
		return nil, nil, ErrNoTrailer
	}

	var maxNumber uint32
	for number := range xref {
		if number > maxNumber {
			maxNumber = number
		}
	}
	if _, ok := trailer["Size"].(Integer); !ok {
		trailer["Size"] = Integer(maxNumber + 1)
	}

	return xref, trailer, nil
}

func parseDecimal(buf []byte) int64 {
	var res int64
	for _, c := range buf {
		res = res*10 + int64(c-'0')
	}
	return res
}
