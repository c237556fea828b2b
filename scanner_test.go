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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testScanner(in string) *scanner {
	data := []byte(in)
	return newScanner(bytes.NewReader(data), int64(len(data)), 0, nil, nil)
}

func strictScanner(in string) *scanner {
	data := []byte(in)
	opt, _ := (&ReaderOptions{Strict: true}).fill()
	return newScanner(bytes.NewReader(data), int64(len(data)), 0, nil, opt)
}

func TestReadObject(t *testing.T) {
	cases := []struct {
		in  string
		val Object
		ok  bool
	}{
		{"null", nil, true},
		{"true", Bool(true), true},
		{"false", Bool(false), true},
		{"TRUE", nil, false},

		{"0", Integer(0), true},
		{"+1", Integer(1), true},
		{"-12", Integer(-12), true},
		{"999999999999999999", Integer(999999999999999999), true},

		{".5", Real(.5), true},
		{"+.5", Real(.5), true},
		{"-0.5", Real(-.5), true},

		// Garbage in numeric positions degrades to zero.
		{".", Integer(0), true},
		{"-.-", Integer(0), true},
		{"12a4", Integer(0), true},

		{"/a", Name("a"), true},
		{"/A;Name_With-Various***Characters?", Name("A;Name_With-Various***Characters?"), true},
		{"/1.2", Name("1.2"), true},
		{"/A#42", Name("AB"), true},
		{"/F#23#20minor", Name("F# minor"), true},
		{"/", Name(""), true},

		{"()", String(nil), true},
		{"(test string)", String("test string"), true},
		{"(he(ll)o)", String("he(ll)o"), true},
		{`(he\)ll\(o)`, String("he)ll(o"), true},
		{`(h\145llo)`, String("hello"), true},
		{`(\0612)`, String("12"), true},
		{"(hell\\\no)", String("hello"), true},

		{"<>", String(nil), true},
		{"<68656c6c6f>", String("hello"), true},
		{"<68 65 6C 6C 6F>", String("hello"), true},
		{"<68656C7>", String("help"), true},

		{"[1 2 3]", Array{Integer(1), Integer(2), Integer(3)}, true},
		{"[1 null /three]", Array{Integer(1), nil, Name("three")}, true},
		{"[[1] [2]]", Array{Array{Integer(1)}, Array{Integer(2)}}, true},
		{"[1 0 R]", Array{Reference{Number: 1}}, true},
		{"[0 0 R]", Array{Reference{}}, true},
		{"[1 2 R 3]", Array{Reference{Number: 1, Generation: 2}, Integer(3)}, true},

		{"<</A 1>>", Dict{"A": Integer(1)}, true},
		{"<< /A 1 /B (2) >>", Dict{"A": Integer(1), "B": String("2")}, true},
		{"<</Ref 3 0 R>>", Dict{"Ref": Reference{Number: 3}}, true},
	}
	for _, test := range cases {
		s := testScanner(test.in)
		val, err := s.ReadObject()
		if test.ok {
			if err != nil {
				t.Errorf("%q: unexpected error %s", test.in, err)
				continue
			}
			if d := cmp.Diff(test.val, val); d != "" {
				t.Errorf("%q: wrong object (-want +got):\n%s", test.in, d)
			}
		} else if err == nil {
			t.Errorf("%q: expected error, got %v", test.in, val)
		}
	}
}

func TestStringEOLNormalization(t *testing.T) {
	// End-of-line markers inside literal strings are read as a single \n.
	cases := []struct {
		in  string
		out String
	}{
		{"(a\nb)", String("a\nb")},
		{"(a\rb)", String("a\nb")},
		{"(a\r\nb)", String("a\nb")},
	}
	for _, test := range cases {
		s := testScanner(test.in)
		val, err := s.ReadObject()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(val.(String), test.out) {
			t.Errorf("%q: got %q, want %q", test.in, val, test.out)
		}
	}
}

func TestMalformedNumberWarns(t *testing.T) {
	var warnings []string
	opt, _ := (&ReaderOptions{
		Log: func(level LogLevel, msg string, keyvals ...interface{}) {
			warnings = append(warnings, msg)
		},
	}).fill()
	data := []byte("12.34.56")
	s := newScanner(bytes.NewReader(data), int64(len(data)), 0, nil, opt)

	val, err := s.ReadObject()
	if err != nil {
		t.Fatal(err)
	}
	if val != Integer(0) {
		t.Errorf("got %v, want Integer(0)", val)
	}
	if len(warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(warnings))
	}
}

func TestUnterminatedString(t *testing.T) {
	if _, err := strictScanner("(abc").ReadObject(); err == nil {
		t.Error("expected error for unterminated string in strict mode")
	}

	val, err := testScanner("(abc").ReadObject()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(val.(String), []byte("abc")) {
		t.Errorf("got %q, want %q", val, "abc")
	}
}

func TestNestingDepth(t *testing.T) {
	in := ""
	for i := 0; i < 200; i++ {
		in += "["
	}
	_, err := testScanner(in).ReadObject()
	if err == nil {
		t.Error("expected error for deeply nested arrays")
	}
}

func TestReadIndirectObject(t *testing.T) {
	s := testScanner("12 0 obj\n<</Length 3>>\nendobj\n")
	obj, ref, err := s.ReadIndirectObject()
	if err != nil {
		t.Fatal(err)
	}
	if ref != (Reference{Number: 12}) {
		t.Errorf("wrong reference %s", ref)
	}
	if d := cmp.Diff(Dict{"Length": Integer(3)}, obj); d != "" {
		t.Errorf("wrong object (-want +got):\n%s", d)
	}

	// The value of an indirect object can itself be a reference.
	s = testScanner("7 0 obj 3 0 R endobj")
	obj, ref, err = s.ReadIndirectObject()
	if err != nil {
		t.Fatal(err)
	}
	if ref != (Reference{Number: 7}) {
		t.Errorf("wrong reference %s", ref)
	}
	if obj != (Reference{Number: 3}) {
		t.Errorf("wrong object %v", obj)
	}
}

func TestReadStreamData(t *testing.T) {
	in := "<</Length 5>> stream\nhello\nendstream"
	s := testScanner(in)
	obj, err := s.ReadObject()
	if err != nil {
		t.Fatal(err)
	}
	stream, ok := obj.(*Stream)
	if !ok {
		t.Fatalf("expected *Stream, got %T", obj)
	}
	raw, err := stream.Raw(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "hello" {
		t.Errorf("wrong stream data %q", raw)
	}
}

func TestStreamLengthRepair(t *testing.T) {
	// The declared length is wrong; the data is recovered by scanning for
	// the endstream keyword.
	for _, in := range []string{
		"<</Length 2>> stream\nhello\nendstream",
		"<</Length 100>> stream\nhello\nendstream",
		"<</Length 2 /X 1>> stream\nhello world\r\nendstream",
	} {
		s := testScanner(in)
		obj, err := s.ReadObject()
		if err != nil {
			t.Fatalf("%q: %s", in, err)
		}
		raw, err := obj.(*Stream).Raw(nil)
		if err != nil {
			t.Fatal(err)
		}
		want := "hello"
		if bytes.Contains([]byte(in), []byte("world")) {
			want = "hello world"
		}
		if string(raw) != want {
			t.Errorf("%q: wrong stream data %q", in, raw)
		}
	}
}

func TestScannerJump(t *testing.T) {
	data := []byte("0123456789abcdef")
	s := newScanner(bytes.NewReader(data), int64(len(data)), 0, nil, nil)

	buf, err := s.ReadBytes(4)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != "0123" {
		t.Errorf("wrong data %q", buf)
	}
	if s.currentPos() != 4 {
		t.Errorf("wrong position %d", s.currentPos())
	}

	s.jumpTo(10)
	buf, err = s.ReadBytes(3)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf) != "abc" {
		t.Errorf("wrong data %q", buf)
	}
	if s.currentPos() != 13 {
		t.Errorf("wrong position %d", s.currentPos())
	}
}

func TestReadHeaderVersion(t *testing.T) {
	s := testScanner("%PDF-1.6\n%junk\n")
	version, err := s.readHeaderVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != V1_6 {
		t.Errorf("wrong version %s", version)
	}

	if _, err := testScanner("not a pdf").readHeaderVersion(); err == nil {
		t.Error("expected error for missing header")
	}
}
