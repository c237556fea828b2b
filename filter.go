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
	"compress/flate"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/pdfmill/pdf/ascii85"
	"github.com/pdfmill/pdf/asciihex"
	"github.com/pdfmill/pdf/lzw"
	"github.com/pdfmill/pdf/runlength"
)

// FilterInfo describes one filter of a stream, together with its decode
// parameters.
type FilterInfo struct {
	Name  Name
	Parms Dict
}

// normalizeFilterName maps the abbreviated filter names allowed in inline
// images to the canonical names.
func normalizeFilterName(name Name) string {
	switch name {
	case "Fl":
		return "FlateDecode"
	case "AHx":
		return "ASCIIHexDecode"
	case "A85":
		return "ASCII85Decode"
	case "RL":
		return "RunLengthDecode"
	case "CCF":
		return "CCITTFaxDecode"
	case "DCT":
		return "DCTDecode"
	}
	return string(name)
}

// isImageFilter reports whether the named filter encodes image data which
// the filter pipeline passes through unchanged.
func isImageFilter(name string) bool {
	switch name {
	case "DCTDecode", "JPXDecode", "CCITTFaxDecode", "JBIG2Decode":
		return true
	}
	return false
}

// decodeData applies the given filters to raw, in order.  Image filters
// terminate the pipeline, their output is the still-encoded image data.
func decodeData(raw []byte, filters []FilterInfo, log LogFunc) ([]byte, error) {
	if log == nil {
		log = discardLog
	}
	data := raw
	for _, fi := range filters {
		name := normalizeFilterName(fi.Name)
		if isImageFilter(name) {
			return data, nil
		}
		var err error
		data, err = decodeOne(data, name, fi.Parms, log)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func decodeOne(data []byte, name string, parms Dict, log LogFunc) ([]byte, error) {
	switch name {
	case "FlateDecode", "LZWDecode":
		var r io.ReadCloser
		var err error
		if name == "FlateDecode" {
			r, err = zlib.NewReader(bytes.NewReader(data))
			if err != nil {
				// Some writers emit a raw deflate stream without the
				// zlib wrapper.
				log(WarnLevel, "missing zlib header", "err", err)
				r = flate.NewReader(bytes.NewReader(data))
			}
		} else {
			r = lzw.NewReader(bytes.NewReader(data),
				parmInt(parms, "EarlyChange", 1) != 0)
		}
		out, err := io.ReadAll(r)
		if err != nil {
			if len(out) == 0 {
				return nil, wrap(err, name)
			}
			// Truncated compressed data still yields a usable prefix.
			log(WarnLevel, "truncated compressed data",
				"filter", name, "err", err)
		}
		warnMissingEOD(r, name, log)
		r.Close()
		return undoPredictor(out, parms)
	case "ASCII85Decode":
		r := ascii85.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, wrap(err, name)
		}
		warnMissingEOD(r, name, log)
		return out, nil
	case "ASCIIHexDecode":
		r := asciihex.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, wrap(err, name)
		}
		warnMissingEOD(r, name, log)
		return out, nil
	case "RunLengthDecode":
		r := runlength.NewReader(bytes.NewReader(data))
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, wrap(err, name)
		}
		warnMissingEOD(r, name, log)
		return out, nil
	case "Crypt":
		if n, _ := parms["Name"].(Name); n == "" || n == "Identity" {
			return data, nil
		}
		return nil, &UnsupportedError{Feature: "Crypt filters"}
	}
	return nil, &UnsupportedError{Feature: fmt.Sprintf("filter %q", name)}
}

// warnMissingEOD reports decoders which ran off the end of their input
// without seeing the end-of-data marker.  The data itself is still usable.
func warnMissingEOD(r io.Reader, name string, log LogFunc) {
	type eodReporter interface {
		MissingEOD() bool
	}
	if m, ok := r.(eodReporter); ok && m.MissingEOD() {
		log(WarnLevel, "missing end-of-data marker", "filter", name)
	}
}

// encodeData applies the given filters to data, in reverse order, yielding
// the raw bytes to store in the file.
func encodeData(data []byte, filters []FilterInfo) ([]byte, error) {
	raw := data
	for i := len(filters) - 1; i >= 0; i-- {
		name := normalizeFilterName(filters[i].Name)
		if isImageFilter(name) {
			continue
		}
		var err error
		raw, err = encodeOne(raw, name, filters[i].Parms)
		if err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func encodeOne(data []byte, name string, parms Dict) ([]byte, error) {
	if parmInt(parms, "Predictor", 1) != 1 {
		return nil, &UnsupportedError{Feature: "encoding with predictors"}
	}

	buf := &bytes.Buffer{}
	var w io.WriteCloser
	var err error
	switch name {
	case "FlateDecode":
		w = zlib.NewWriter(buf)
	case "LZWDecode":
		w, err = lzw.NewWriter(buf, parmInt(parms, "EarlyChange", 1) != 0)
		if err != nil {
			return nil, err
		}
	case "ASCII85Decode":
		w = ascii85.NewWriter(buf)
	case "ASCIIHexDecode":
		w = asciihex.NewWriter(buf)
	case "RunLengthDecode":
		w = runlength.NewWriter(buf)
	case "Crypt":
		if n, _ := parms["Name"].(Name); n == "" || n == "Identity" {
			return data, nil
		}
		return nil, &UnsupportedError{Feature: "Crypt filters"}
	default:
		return nil, &UnsupportedError{Feature: fmt.Sprintf("filter %q", name)}
	}

	_, err = w.Write(data)
	if err != nil {
		return nil, err
	}
	err = w.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parmInt(parms Dict, key Name, def int) int {
	if x, ok := parms[key].(Integer); ok {
		return int(x)
	}
	return def
}

// undoPredictor reverses the predictor applied before compression, as
// selected by the /Predictor decode parameter.
func undoPredictor(data []byte, parms Dict) ([]byte, error) {
	pred := parmInt(parms, "Predictor", 1)
	switch {
	case pred == 1:
		return data, nil
	case pred == 2:
		return undoTIFFPredictor(data, parms)
	case pred >= 10 && pred <= 15:
		return undoPNGPredictor(data, parms)
	}
	return nil, &UnsupportedError{Feature: fmt.Sprintf("predictor %d", pred)}
}

func undoTIFFPredictor(data []byte, parms Dict) ([]byte, error) {
	colors := parmInt(parms, "Colors", 1)
	bpc := parmInt(parms, "BitsPerComponent", 8)
	columns := parmInt(parms, "Columns", 1)
	if bpc != 8 {
		return nil, &UnsupportedError{
			Feature: fmt.Sprintf("TIFF predictor with %d bits per component", bpc),
		}
	}

	rowLen := colors * columns
	if rowLen <= 0 {
		return nil, errCorrupted
	}
	for row := 0; row+rowLen <= len(data); row += rowLen {
		for i := colors; i < rowLen; i++ {
			data[row+i] += data[row+i-colors]
		}
	}
	return data, nil
}

func undoPNGPredictor(data []byte, parms Dict) ([]byte, error) {
	colors := parmInt(parms, "Colors", 1)
	bpc := parmInt(parms, "BitsPerComponent", 8)
	columns := parmInt(parms, "Columns", 1)

	rowLen := (colors*bpc*columns + 7) / 8
	if rowLen <= 0 {
		return nil, errCorrupted
	}
	bpp := (colors*bpc + 7) / 8

	var res []byte
	prev := make([]byte, rowLen)
	for pos := 0; pos < len(data); pos += rowLen + 1 {
		end := pos + 1 + rowLen
		if end > len(data) {
			// A short final row is tolerated.
			end = len(data)
		}
		tag := data[pos]
		row := data[pos+1 : end]

		switch tag {
		case 0: // none
		case 1: // sub
			for i := bpp; i < len(row); i++ {
				row[i] += row[i-bpp]
			}
		case 2: // up
			for i := range row {
				row[i] += prev[i]
			}
		case 3: // average
			for i := range row {
				var left int
				if i >= bpp {
					left = int(row[i-bpp])
				}
				row[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := range row {
				var left, diag byte
				if i >= bpp {
					left = row[i-bpp]
					diag = prev[i-bpp]
				}
				row[i] += paeth(left, prev[i], diag)
			}
		default:
			return nil, &MalformedFileError{
				Err: errors.New("invalid PNG predictor tag"),
			}
		}

		res = append(res, row...)
		copy(prev, row)
		for i := len(row); i < rowLen; i++ {
			prev[i] = 0
		}
	}
	return res, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
