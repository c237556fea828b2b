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
	"fmt"
	"testing"
)

// fileBuilder assembles PDF file fragments while keeping track of byte
// offsets, so that tests can cross-link xref entries by hand.
type fileBuilder struct {
	buf bytes.Buffer
}

func (b *fileBuilder) pos() int64 {
	return int64(b.buf.Len())
}

func (b *fileBuilder) writef(format string, a ...interface{}) int64 {
	pos := b.pos()
	fmt.Fprintf(&b.buf, format, a...)
	return pos
}

func (b *fileBuilder) reader(t *testing.T, opt *ReaderOptions) *Reader {
	t.Helper()
	data := b.buf.Bytes()
	r, err := NewReader(bytes.NewReader(data), int64(len(data)), opt)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestReadClassicXRefTable(t *testing.T) {
	b := &fileBuilder{}
	b.writef("%%PDF-1.4\n")
	off1 := b.writef("1 0 obj\n<</Type /Catalog>>\nendobj\n")
	off2 := b.writef("2 0 obj\n(hello)\nendobj\n")
	xref := b.writef("xref\n0 3\n"+
		"0000000000 65535 f\r\n"+
		"%010d 00000 n\r\n"+
		"%010d 00000 n\r\n"+
		"trailer\n<</Size 3 /Root 1 0 R>>\n", off1, off2)
	b.writef("startxref\n%d\n%%%%EOF\n", xref)

	r := b.reader(t, nil)
	if r.Version != V1_4 {
		t.Errorf("wrong version %s", r.Version)
	}

	root, err := r.Root()
	if err != nil {
		t.Fatal(err)
	}
	if root["Type"] != Name("Catalog") {
		t.Errorf("wrong catalog %v", root)
	}

	greeting, err := r.GetString(Reference{Number: 2})
	if err != nil {
		t.Fatal(err)
	}
	if string(greeting) != "hello" {
		t.Errorf("wrong string %q", greeting)
	}
}

func TestXRefPrevChain(t *testing.T) {
	// Object 2 is overwritten in the newer section; object 3 only exists in
	// the older one.
	b := &fileBuilder{}
	b.writef("%%PDF-1.4\n")
	off1 := b.writef("1 0 obj <</Type /Catalog>> endobj\n")
	off2old := b.writef("2 0 obj (old) endobj\n")
	off3 := b.writef("3 0 obj 42 endobj\n")
	xref1 := b.writef("xref\n0 4\n"+
		"0000000000 65535 f\r\n"+
		"%010d 00000 n\r\n"+
		"%010d 00000 n\r\n"+
		"%010d 00000 n\r\n"+
		"trailer\n<</Size 4 /Root 1 0 R>>\n", off1, off2old, off3)
	off2new := b.writef("2 0 obj (new) endobj\n")
	xref2 := b.writef("xref\n2 1\n"+
		"%010d 00000 n\r\n"+
		"trailer\n<</Size 4 /Root 1 0 R /Prev %d>>\n", off2new, xref1)
	b.writef("startxref\n%d\n%%%%EOF\n", xref2)

	r := b.reader(t, nil)

	got, err := r.GetString(Reference{Number: 2})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new" {
		t.Errorf("newer xref section did not win: %q", got)
	}

	x, err := r.GetInt(Reference{Number: 3})
	if err != nil {
		t.Fatal(err)
	}
	if x != 42 {
		t.Errorf("lost object from older section: %d", x)
	}

	if _, ok := r.Trailer["Prev"]; ok {
		t.Error("Prev left in merged trailer")
	}
}

func TestReadXRefStream(t *testing.T) {
	b := &fileBuilder{}
	b.writef("%%PDF-1.5\n")
	off1 := b.writef("1 0 obj <</Type /Catalog>> endobj\n")
	off2 := b.writef("2 0 obj (via stream) endobj\n")

	xref := b.pos()
	entries := &bytes.Buffer{}
	for _, row := range [][3]int64{
		{0, 0, 0xFFFF},
		{1, off1, 0},
		{1, off2, 0},
		{1, xref, 0},
	} {
		entries.Write([]byte{
			byte(row[0]),
			byte(row[1] >> 8), byte(row[1]),
			byte(row[2] >> 8), byte(row[2]),
		})
	}
	b.writef("3 0 obj\n<</Type /XRef /Size 4 /W [1 2 2] /Root 1 0 R /Length %d>>\nstream\n%s\nendstream\nendobj\n",
		entries.Len(), entries.Bytes())
	b.writef("startxref\n%d\n%%%%EOF\n", xref)

	r := b.reader(t, nil)

	root, err := r.Root()
	if err != nil {
		t.Fatal(err)
	}
	if root["Type"] != Name("Catalog") {
		t.Errorf("wrong catalog %v", root)
	}

	got, err := r.GetString(Reference{Number: 2})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "via stream" {
		t.Errorf("wrong string %q", got)
	}
}

func TestReadObjectStream(t *testing.T) {
	b := &fileBuilder{}
	b.writef("%%PDF-1.5\n")
	off1 := b.writef("1 0 obj <</Type /Catalog>> endobj\n")

	// Objects 4 and 5 live inside the object stream.
	header := "4 0 5 5 "
	body := "(hi) 42"
	off3 := b.writef("3 0 obj\n<</Type /ObjStm /N 2 /First %d /Length %d>>\nstream\n%s%s\nendstream\nendobj\n",
		len(header), len(header)+len(body), header, body)

	xref := b.pos()
	entries := &bytes.Buffer{}
	for _, row := range [][3]int64{
		{0, 0, 0xFFFF},
		{1, off1, 0},
		{1, xref, 0},
		{1, off3, 0},
		{2, 3, 0},
		{2, 3, 1},
	} {
		entries.Write([]byte{
			byte(row[0]),
			byte(row[1] >> 8), byte(row[1]),
			byte(row[2] >> 8), byte(row[2]),
		})
	}
	b.writef("2 0 obj\n<</Type /XRef /Size 6 /W [1 2 2] /Root 1 0 R /Length %d>>\nstream\n%s\nendstream\nendobj\n",
		entries.Len(), entries.Bytes())
	b.writef("startxref\n%d\n%%%%EOF\n", xref)

	r := b.reader(t, nil)

	got, err := r.GetString(Reference{Number: 4})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hi" {
		t.Errorf("wrong string %q", got)
	}

	x, err := r.GetInt(Reference{Number: 5})
	if err != nil {
		t.Fatal(err)
	}
	if x != 42 {
		t.Errorf("wrong integer %d", x)
	}
}

func TestParseXRefTableEntry(t *testing.T) {
	cases := []struct {
		in   string
		want *xRefEntry
		ok   bool
	}{
		{"0000000015 00000 n\r\n", &xRefEntry{Pos: 15}, true},
		{"0000000015 00007 n\r\n", &xRefEntry{Pos: 15, Generation: 7}, true},
		{"0000000000 65535 f\r\n", nil, true},
		{"0000000015 00000 x\r\n", nil, false},
		{"garbage", nil, false},
	}
	for _, test := range cases {
		entry, err := parseXRefTableEntry([]byte(test.in))
		if test.ok {
			if err != nil {
				t.Errorf("%q: %s", test.in, err)
				continue
			}
			if (entry == nil) != (test.want == nil) {
				t.Errorf("%q: got %v, want %v", test.in, entry, test.want)
			} else if entry != nil && *entry != *test.want {
				t.Errorf("%q: got %v, want %v", test.in, *entry, *test.want)
			}
		} else if err == nil {
			t.Errorf("%q: expected error", test.in)
		}
	}
}

func TestFindStartXRef(t *testing.T) {
	b := &fileBuilder{}
	b.writef("%%PDF-1.4\n")
	off1 := b.writef("1 0 obj <</Type /Catalog>> endobj\n")
	xref := b.writef("xref\n0 2\n"+
		"0000000000 65535 f\r\n"+
		"%010d 00000 n\r\n"+
		"trailer\n<</Size 2 /Root 1 0 R>>\n", off1)
	b.writef("startxref\n%d\n%%%%EOF\n", xref)

	data := b.buf.Bytes()
	r := &Reader{size: int64(len(data)), r: bytes.NewReader(data)}
	var err error
	r.opt, err = (*ReaderOptions)(nil).fill()
	if err != nil {
		t.Fatal(err)
	}

	pos, err := r.findStartXRef()
	if err != nil {
		t.Fatal(err)
	}
	if pos != xref {
		t.Errorf("got %d, want %d", pos, xref)
	}
}

func TestRebuildXRef(t *testing.T) {
	// The startxref offset points into the weeds; the lenient reader falls
	// back to scanning the whole file for indirect objects.
	b := &fileBuilder{}
	b.writef("%%PDF-1.4\n")
	b.writef("1 0 obj <</Type /Catalog>> endobj\n")
	b.writef("2 0 obj (recovered) endobj\n")
	b.writef("2 0 obj (recovered again) endobj\n")
	b.writef("trailer\n<</Size 3 /Root 1 0 R>>\n")
	b.writef("startxref\n999999\n%%%%EOF\n")

	var warned bool
	opt := &ReaderOptions{
		Log: func(level LogLevel, msg string, keyvals ...interface{}) {
			warned = true
		},
	}
	r := b.reader(t, opt)
	if !warned {
		t.Error("expected a warning about the rebuilt xref")
	}

	root, err := r.Root()
	if err != nil {
		t.Fatal(err)
	}
	if root["Type"] != Name("Catalog") {
		t.Errorf("wrong catalog %v", root)
	}

	// The later definition of object 2 wins.
	got, err := r.GetString(Reference{Number: 2})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "recovered again" {
		t.Errorf("wrong string %q", got)
	}

	// Strict mode refuses to guess.
	data := b.buf.Bytes()
	if _, err := NewReader(bytes.NewReader(data), int64(len(data)), &ReaderOptions{Strict: true}); err == nil {
		t.Error("expected error in strict mode")
	}
}
