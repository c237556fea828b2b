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
	"strconv"
	"strings"
)

// streamState tracks which of the two payload representations of a Stream
// are currently valid.
type streamState int

const (
	streamRawOnly streamState = iota
	streamDecodedOnly
	streamBoth
)

// Stream represents a stream object in a PDF file.  The stream payload is
// kept in up to two forms: the raw (filter-encoded) bytes as stored in the
// file, and the decoded bytes.  Each form is materialized lazily from the
// other, and replacing one invalidates the other, so the two can never be
// simultaneously stale.
type Stream struct {
	Dict Dict

	raw     []byte
	decoded []byte
	state   streamState

	// log receives warnings about repaired stream data.  Set by the Reader;
	// nil for streams created directly.
	log LogFunc
}

// NewStream creates a stream object holding the given raw payload.  The
// payload must already be encoded according to the dictionary's /Filter
// entry, if any.
func NewStream(dict Dict, raw []byte) *Stream {
	if dict == nil {
		dict = Dict{}
	}
	dict["Length"] = Integer(len(raw))
	return &Stream{Dict: dict, raw: raw, state: streamRawOnly}
}

// NewStreamData creates a stream object holding the given decoded payload.
// The raw form is produced on demand by running the dictionary's /Filter
// chain in the encode direction.
func NewStreamData(dict Dict, data []byte) *Stream {
	if dict == nil {
		dict = Dict{}
	}
	return &Stream{Dict: dict, decoded: data, state: streamDecodedOnly}
}

func (x *Stream) String() string {
	res := []string{}
	tp, ok := x.Dict["Type"].(Name)
	if ok {
		res = append(res, string(tp)+" Stream")
	} else {
		res = append(res, "Stream")
	}
	length, ok := x.Dict["Length"].(Integer)
	if ok {
		res = append(res, strconv.FormatInt(int64(length), 10)+" bytes")
	}
	switch filter := x.Dict["Filter"].(type) {
	case Name:
		res = append(res, string(filter))
	case Array:
		for _, f := range filter {
			if name, ok := f.(Name); ok {
				res = append(res, string(name))
			}
		}
	}
	return "<" + strings.Join(res, ", ") + ">"
}

// Raw returns the encoded stream payload, materializing it from the decoded
// form if necessary.  resolve is used to resolve indirect /Filter and
// /DecodeParms entries and may be nil for streams with direct entries.
func (x *Stream) Raw(resolve func(Object) (Object, error)) ([]byte, error) {
	if x.state == streamDecodedOnly {
		filters, err := x.Filters(resolve)
		if err != nil {
			return nil, err
		}
		raw, err := encodeData(x.decoded, filters)
		if err != nil {
			return nil, err
		}
		x.raw = raw
		x.state = streamBoth
		x.Dict["Length"] = Integer(len(raw))
	}
	return x.raw, nil
}

// Data returns the decoded stream payload, running the /Filter chain if the
// decoded form has not been materialized yet.  The result is cached.
func (x *Stream) Data(resolve func(Object) (Object, error)) ([]byte, error) {
	if x.state == streamRawOnly {
		filters, err := x.Filters(resolve)
		if err != nil {
			return nil, err
		}
		log := x.log
		if log == nil {
			log = discardLog
		}
		decoded, err := decodeData(x.raw, filters, log)
		if err != nil {
			return nil, err
		}
		x.decoded = decoded
		x.state = streamBoth
	}
	return x.decoded, nil
}

// SetRaw replaces the encoded payload and invalidates any cached decoded
// form.
func (x *Stream) SetRaw(raw []byte) {
	x.raw = raw
	x.decoded = nil
	x.state = streamRawOnly
	x.Dict["Length"] = Integer(len(raw))
}

// SetData replaces the decoded payload and invalidates any cached encoded
// form.
func (x *Stream) SetData(data []byte) {
	x.decoded = data
	x.raw = nil
	x.state = streamDecodedOnly
	delete(x.Dict, "Length")
}

// PDF implements the Object interface.  When writing through an encrypting
// Writer, the payload is encrypted with the per-object key and the emitted
// /Length entry reflects the encrypted size.
func (x *Stream) PDF(w io.Writer) error {
	raw, err := x.Raw(nil)
	if err != nil {
		return err
	}

	dict := x.Dict
	if wenc, ok := w.(*posWriter); ok && wenc.enc != nil {
		enc, err := wenc.enc.EncryptStreamBytes(wenc.ref, raw)
		if err != nil {
			return err
		}
		raw = enc
		dict = make(Dict, len(x.Dict))
		for key, val := range x.Dict {
			dict[key] = val
		}
		dict["Length"] = Integer(len(raw))
	}

	err = dict.PDF(w)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte("\nstream\n"))
	if err != nil {
		return err
	}
	_, err = w.Write(raw)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte("\nendstream"))
	return err
}

// Filters extracts the information contained in the /Filter and /DecodeParms
// entries of the stream dictionary.
func (x *Stream) Filters(resolve func(Object) (Object, error)) ([]FilterInfo, error) {
	if resolve == nil {
		resolve = func(obj Object) (Object, error) {
			return obj, nil
		}
	}
	parms, err := resolve(x.Dict["DecodeParms"])
	if err != nil {
		return nil, err
	}
	var filters []FilterInfo
	filter, err := resolve(x.Dict["Filter"])
	if err != nil {
		return nil, err
	}
	switch f := filter.(type) {
	case nil:
		// pass
	case Array:
		pa, _ := parms.(Array)
		for i, fi := range f {
			fi, err := resolve(fi)
			if err != nil {
				return nil, err
			}
			name, err := toName(fi)
			if err != nil {
				return nil, err
			}
			var pDict Dict
			if len(pa) > i {
				pai, err := resolve(pa[i])
				if err != nil {
					return nil, err
				}
				pDict, err = toDict(pai)
				if err != nil {
					return nil, err
				}
			}
			filters = append(filters, FilterInfo{Name: name, Parms: pDict})
		}
	case Name:
		pDict, err := toDict(parms)
		if err != nil {
			return nil, err
		}
		filters = append(filters, FilterInfo{Name: f, Parms: pDict})
	default:
		return nil, errors.New("invalid /Filter field")
	}
	return filters, nil
}

// FileExtension returns the file name extension matching the stream's
// innermost filter, for use when exporting embedded image data.  Streams
// whose filters decode to plain bytes report ".bin".
func (x *Stream) FileExtension(resolve func(Object) (Object, error)) string {
	filters, err := x.Filters(resolve)
	if err != nil {
		return ".bin"
	}
	for _, fi := range filters {
		switch normalizeFilterName(fi.Name) {
		case "DCTDecode":
			return ".jpg"
		case "JPXDecode":
			return ".jp2"
		case "CCITTFaxDecode":
			return ".tiff"
		case "JBIG2Decode":
			return ".jbig2"
		}
	}
	return ".bin"
}

// ImageMetadata describes the color layout of an image stream, for handing
// the decoded payload to an external imaging library.  The library does not
// rasterize image data itself.
type ImageMetadata struct {
	Width            int
	Height           int
	BitsPerComponent int
	ColorSpace       Name
}

// ImageMetadata reads the color layout entries from the stream dictionary.
func (x *Stream) ImageMetadata(resolve func(Object) (Object, error)) ImageMetadata {
	if resolve == nil {
		resolve = func(obj Object) (Object, error) {
			return obj, nil
		}
	}
	meta := ImageMetadata{BitsPerComponent: 8}
	if v, err := resolve(x.Dict["Width"]); err == nil {
		if n, ok := v.(Integer); ok {
			meta.Width = int(n)
		}
	}
	if v, err := resolve(x.Dict["Height"]); err == nil {
		if n, ok := v.(Integer); ok {
			meta.Height = int(n)
		}
	}
	if v, err := resolve(x.Dict["BitsPerComponent"]); err == nil {
		if n, ok := v.(Integer); ok {
			meta.BitsPerComponent = int(n)
		}
	}
	if v, err := resolve(x.Dict["ColorSpace"]); err == nil {
		if n, ok := v.(Name); ok {
			meta.ColorSpace = n
		}
	}
	return meta
}
