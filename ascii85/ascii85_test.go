package ascii85

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"~>", ""},
		{"BOu!r~>", "hell"},
		{"BOu!rDZ~>", "hello"},
		{"z~>", "\000\000\000\000"},
		{"zz~>", "\000\000\000\000\000\000\000\000"},
		{"BOu!r DZ\n~>", "hello"},
		{"BOu!rDZ", "hello"}, // missing EOD marker
	}
	for _, test := range cases {
		r := NewReader(strings.NewReader(test.in))
		out, err := io.ReadAll(r)
		if err != nil {
			t.Errorf("%q: %s", test.in, err)
			continue
		}
		if string(out) != test.out {
			t.Errorf("%q: got %q, want %q", test.in, out, test.out)
		}
	}
}

func TestDecodeCorrupt(t *testing.T) {
	for _, in := range []string{
		"BOzu!r~>", // z inside a group
		"BO\x01u!r~>",
		"B~>", // a single digit cannot encode anything
	} {
		r := NewReader(strings.NewReader(in))
		_, err := io.ReadAll(r)
		if !errors.Is(err, ErrCorrupt) {
			t.Errorf("%q: got %v, want ErrCorrupt", in, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("a"),
		[]byte("ab"),
		[]byte("abc"),
		[]byte("abcd"),
		[]byte("abcde"),
		bytes.Repeat([]byte{0}, 13),
		bytes.Repeat([]byte("pdf "), 100),
	}
	for _, in := range cases {
		buf := &bytes.Buffer{}
		w := NewWriter(buf)
		if _, err := w.Write(in); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}

		if !bytes.HasSuffix(buf.Bytes(), []byte("~>")) {
			t.Errorf("%q: missing EOD marker in %q", in, buf.Bytes())
		}

		out, err := io.ReadAll(NewReader(buf))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(out, in) {
			t.Errorf("%q: round trip gave %q", in, out)
		}
	}
}

func TestLineLength(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	if _, err := w.Write(bytes.Repeat([]byte{1, 2, 3}, 500)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if len(line) > 80 {
			t.Fatalf("line too long: %d bytes", len(line))
		}
	}
}
