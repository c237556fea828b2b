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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterRoundTrip(t *testing.T) {
	data := []byte("Hello, world!  Hello, world!  Hello, world!\n")
	chains := [][]FilterInfo{
		{{Name: "FlateDecode"}},
		{{Name: "LZWDecode"}},
		{{Name: "LZWDecode", Parms: Dict{"EarlyChange": Integer(0)}}},
		{{Name: "ASCII85Decode"}},
		{{Name: "ASCIIHexDecode"}},
		{{Name: "RunLengthDecode"}},
		{{Name: "ASCII85Decode"}, {Name: "FlateDecode"}},
		{{Name: "ASCIIHexDecode"}, {Name: "RunLengthDecode"}},
	}
	for _, filters := range chains {
		enc, err := encodeData(data, filters)
		require.NoError(t, err)
		dec, err := decodeData(enc, filters, nil)
		require.NoError(t, err)
		assert.Equal(t, data, dec, "%v", filters)
	}
}

func TestFilterAbbreviations(t *testing.T) {
	cases := []struct {
		in  Name
		out string
	}{
		{"Fl", "FlateDecode"},
		{"AHx", "ASCIIHexDecode"},
		{"A85", "ASCII85Decode"},
		{"RL", "RunLengthDecode"},
		{"CCF", "CCITTFaxDecode"},
		{"DCT", "DCTDecode"},
		{"FlateDecode", "FlateDecode"},
		{"NoSuchFilter", "NoSuchFilter"},
	}
	for _, test := range cases {
		assert.Equal(t, test.out, normalizeFilterName(test.in))
	}
}

func TestUnknownFilter(t *testing.T) {
	_, err := decodeData([]byte("x"), []FilterInfo{{Name: "NoSuchFilter"}}, nil)
	var unsupported *UnsupportedError
	require.ErrorAs(t, err, &unsupported)
}

func TestRawDeflateFallback(t *testing.T) {
	// Some writers store raw deflate data without the zlib header.
	data := []byte("raw deflate stream contents")
	buf := &bytes.Buffer{}
	w, err := flate.NewWriter(buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	var warned bool
	log := func(level LogLevel, msg string, keyvals ...interface{}) {
		warned = true
	}
	dec, err := decodeData(buf.Bytes(), []FilterInfo{{Name: "FlateDecode"}}, log)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
	assert.True(t, warned)
}

func TestMissingEODWarning(t *testing.T) {
	// Data lacking the end-of-data marker decodes fully but is reported.
	cases := []struct {
		filter string
		raw    []byte
		want   []byte
	}{
		{"ASCII85Decode", []byte("BOu!r"), []byte("hell")},
		{"ASCIIHexDecode", []byte("68656C6C"), []byte("hell")},
		{"RunLengthDecode", []byte{3, 'h', 'e', 'l', 'l'}, []byte("hell")},
	}
	for _, test := range cases {
		var warned bool
		log := func(level LogLevel, msg string, keyvals ...interface{}) {
			warned = true
		}
		dec, err := decodeData(test.raw,
			[]FilterInfo{{Name: Name(test.filter)}}, log)
		require.NoError(t, err, test.filter)
		assert.Equal(t, test.want, dec, test.filter)
		assert.True(t, warned, test.filter)

		// With the marker present there is nothing to report.
		warned = false
		withEOD := map[string][]byte{
			"ASCII85Decode":   []byte("BOu!r~>"),
			"ASCIIHexDecode":  []byte("68656C6C>"),
			"RunLengthDecode": {3, 'h', 'e', 'l', 'l', 0x80},
		}
		dec, err = decodeData(withEOD[test.filter],
			[]FilterInfo{{Name: Name(test.filter)}}, log)
		require.NoError(t, err, test.filter)
		assert.Equal(t, test.want, dec, test.filter)
		assert.False(t, warned, test.filter)
	}
}

func TestImageFilterPassthrough(t *testing.T) {
	// Image compression is not undone; the pipeline stops and hands the
	// compressed data to the caller.
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	dec, err := decodeData(data, []FilterInfo{{Name: "DCTDecode"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
}

func TestFileExtension(t *testing.T) {
	cases := []struct {
		filter Object
		want   string
	}{
		{Name("DCTDecode"), ".jpg"},
		{Name("DCT"), ".jpg"},
		{Name("JPXDecode"), ".jp2"},
		{Array{Name("FlateDecode"), Name("CCITTFaxDecode")}, ".tiff"},
		{Name("FlateDecode"), ".bin"},
		{nil, ".bin"},
	}
	for _, test := range cases {
		s := &Stream{Dict: Dict{"Filter": test.filter}}
		if got := s.FileExtension(nil); got != test.want {
			t.Errorf("FileExtension(%s): got %q, want %q",
				Format(test.filter), got, test.want)
		}
	}
}

func TestTIFFPredictor(t *testing.T) {
	// Horizontal differencing with 3 components, 8 bits each, 2 columns.
	parms := Dict{
		"Predictor": Integer(2),
		"Colors":    Integer(3),
		"Columns":   Integer(2),
	}
	in := []byte{10, 20, 30, 5, 250, 10}
	want := []byte{10, 20, 30, 15, 14, 40}
	out, err := undoTIFFPredictor(in, parms)
	require.NoError(t, err)
	assert.Equal(t, want, out)
}

func TestPNGPredictor(t *testing.T) {
	parms := Dict{
		"Predictor": Integer(15),
		"Colors":    Integer(1),
		"Columns":   Integer(4),
	}
	// Rows carry a per-row filter tag: none, sub, up, average, paeth.
	in := []byte{
		0, 1, 2, 3, 4,
		1, 1, 1, 1, 1,
		2, 1, 1, 1, 1,
		3, 2, 2, 2, 2,
		4, 1, 1, 1, 1,
	}
	out, err := undoPNGPredictor(in, parms)
	require.NoError(t, err)

	want := []byte{
		1, 2, 3, 4,
		1, 2, 3, 4,
		2, 3, 4, 5,
		3, 5, 6, 7,
		4, 6, 7, 8,
	}
	assert.Equal(t, want, out)
}

func TestPNGPredictorBadTag(t *testing.T) {
	parms := Dict{"Predictor": Integer(15), "Columns": Integer(2)}
	_, err := undoPNGPredictor([]byte{9, 0, 0}, parms)
	var malformed *MalformedFileError
	require.ErrorAs(t, err, &malformed)
}

func TestStreamFilters(t *testing.T) {
	stream := &Stream{
		Dict: Dict{
			"Filter":      Array{Name("ASCII85Decode"), Name("FlateDecode")},
			"DecodeParms": Array{nil, Dict{"Predictor": Integer(1)}},
		},
	}
	filters, err := stream.Filters(nil)
	require.NoError(t, err)
	require.Len(t, filters, 2)
	assert.Equal(t, Name("ASCII85Decode"), filters[0].Name)
	assert.Equal(t, Name("FlateDecode"), filters[1].Name)
	assert.Equal(t, Dict{"Predictor": Integer(1)}, filters[1].Parms)
}

func TestStreamSetData(t *testing.T) {
	stream := &Stream{
		Dict: Dict{"Filter": Name("FlateDecode")},
	}
	data := []byte("some stream contents, some stream contents")
	stream.SetData(data)

	raw, err := stream.Raw(nil)
	require.NoError(t, err)
	assert.NotEqual(t, data, raw)

	dec, err := stream.Data(nil)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
}
