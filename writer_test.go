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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeTestFile writes a minimal document and returns the file contents.
func writeTestFile(t *testing.T, opt *WriterOptions, extra map[Reference]Object) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, opt)
	if err != nil {
		t.Fatal(err)
	}

	catalog := w.Alloc()
	err = w.Put(catalog, Dict{"Type": Name("Catalog")})
	if err != nil {
		t.Fatal(err)
	}
	w.SetRoot(catalog)

	for ref, obj := range extra {
		err = w.Put(ref, obj)
		if err != nil {
			t.Fatal(err)
		}
	}

	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestWriterOutput(t *testing.T) {
	body := writeTestFile(t, &WriterOptions{Version: V1_6}, nil)

	if !bytes.HasPrefix(body, []byte("%PDF-1.6\n")) {
		t.Errorf("wrong header %q", body[:16])
	}
	// The second line marks the file as binary.
	if !bytes.Contains(body[:32], []byte{'%', 0x80, 0x80, 0x80, 0x80}) {
		t.Error("missing binary marker")
	}
	if !bytes.HasSuffix(body, []byte("%%EOF\n")) {
		t.Errorf("wrong tail %q", body[len(body)-16:])
	}
	if !bytes.Contains(body, []byte("0000000000 65535 f\r\n")) {
		t.Error("missing free list head")
	}
}

func TestWriterRoundTrip(t *testing.T) {
	streamRef := Reference{Number: 5}
	extra := map[Reference]Object{
		{Number: 2}: Array{Integer(1), Real(2.5), Name("x"), String("s")},
		{Number: 3}: Dict{"Next": Reference{Number: 4}},
		{Number: 4}: String("indirect (with) parens"),
		streamRef:   NewStream(Dict{"N": Integer(1)}, []byte("payload")),
	}

	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	catalog := w.Alloc()
	if catalog != (Reference{Number: 1}) {
		t.Errorf("unexpected first reference %s", catalog)
	}
	if err := w.Put(catalog, Dict{"Type": Name("Catalog")}); err != nil {
		t.Fatal(err)
	}
	w.SetRoot(catalog)
	for i := uint32(2); i <= 5; i++ {
		if w.Alloc() != (Reference{Number: i}) {
			t.Fatal("unexpected allocation order")
		}
	}
	for ref, obj := range extra {
		if err := w.Put(ref, obj); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	r, err := NewReader(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatal(err)
	}

	for ref, want := range extra {
		got, err := r.Resolve(ref)
		if err != nil {
			t.Fatal(err)
		}
		if wantStream, ok := want.(*Stream); ok {
			gotStream, ok := got.(*Stream)
			if !ok {
				t.Fatalf("%s: expected stream, got %T", ref, got)
			}
			wantData, _ := wantStream.Data(nil)
			gotData, err := gotStream.Data(r.Resolve)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(wantData, gotData) {
				t.Errorf("%s: wrong stream data %q", ref, gotData)
			}
			continue
		}
		if d := cmp.Diff(want, got); d != "" {
			t.Errorf("%s: wrong object (-want +got):\n%s", ref, d)
		}
	}

	id := r.ID()
	if len(id) != 2 || len(id[0]) != 16 || len(id[1]) != 16 {
		t.Errorf("bad file identifier %v", id)
	}
}

func TestWriterPutErrors(t *testing.T) {
	w, err := NewWriter(&bytes.Buffer{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Writing to a reference which was never allocated is an error.
	if err := w.Put(Reference{Number: 99}, Integer(1)); err == nil {
		t.Error("expected error for unallocated reference")
	}

	ref := w.Alloc()
	if err := w.Put(ref, Integer(1)); err != nil {
		t.Fatal(err)
	}
	if err := w.Put(ref, Integer(2)); err == nil {
		t.Error("expected error for double write")
	}
}

func TestWriterUnwrittenObject(t *testing.T) {
	var warnings []string
	opt := &WriterOptions{
		Log: func(level LogLevel, msg string, keyvals ...interface{}) {
			warnings = append(warnings, msg)
		},
	}
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, opt)
	if err != nil {
		t.Fatal(err)
	}
	catalog := w.Alloc()
	if err := w.Put(catalog, Dict{"Type": Name("Catalog")}); err != nil {
		t.Fatal(err)
	}
	w.SetRoot(catalog)
	w.Alloc() // never written
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, msg := range warnings {
		if strings.Contains(msg, "never written") {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning about the unwritten object")
	}

	// The gap becomes a free xref entry, and the file still loads.
	data := buf.Bytes()
	r, err := NewReader(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Root(); err != nil {
		t.Fatal(err)
	}
}

func TestWriterPreservesID(t *testing.T) {
	first := bytes.Repeat([]byte{0xAB}, 16)
	second := bytes.Repeat([]byte{0xCD}, 16)
	body := writeTestFile(t, &WriterOptions{ID: [][]byte{first, second}}, nil)

	r, err := NewReader(bytes.NewReader(body), int64(len(body)), nil)
	if err != nil {
		t.Fatal(err)
	}
	id := r.ID()
	if len(id) != 2 || !bytes.Equal(id[0], first) {
		t.Errorf("first identifier not preserved: %v", id)
	}
	// The second identifier changes with every write, even when the
	// caller supplies one.
	if bytes.Equal(id[1], second) {
		t.Error("second identifier not regenerated")
	}
}
