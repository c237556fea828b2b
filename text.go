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
	"golang.org/x/text/encoding/unicode"
)

// AsTextString interprets x as a PDF "text string" and returns the
// corresponding utf-8 encoded string.  Strings starting with a UTF-16BE
// byte order mark are decoded as UTF-16, everything else as PDFDocEncoding.
func (x String) AsTextString() string {
	if isUTF16(x) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
		out, err := dec.Bytes(x[2:])
		if err == nil {
			return string(out)
		}
	}
	return pdfDocDecode(x)
}

// TextString creates a String object using the "text string" encoding,
// i.e. using either PDFDocEncoding or UTF-16BE with a byte order mark.
func TextString(s string) String {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		c, ok := pdfDocEncode(r)
		if !ok {
			enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
			out, err := enc.Bytes([]byte(s))
			if err != nil {
				return String(s)
			}
			return String(out)
		}
		buf = append(buf, c)
	}
	return String(buf)
}

func isUTF16(s String) bool {
	return len(s) >= 2 && s[0] == 0xFE && s[1] == 0xFF
}

func pdfDocDecode(s String) string {
	for i := 0; i < len(s); i++ {
		// Bytes over 0x7F need rune conversion even where the table is
		// the identity, since string(s) would not re-encode them.
		if s[i] >= 0x80 || pdfDocRunes[s[i]] != rune(s[i]) {
			goto Decode
		}
	}
	return string(s)

Decode:
	r := make([]rune, len(s))
	for i := 0; i < len(s); i++ {
		r[i] = pdfDocRunes[s[i]]
	}
	return string(r)
}

func pdfDocEncode(r rune) (byte, bool) {
	if r < 0x80 && pdfDocRunes[r] == r {
		return byte(r), true
	}
	c, ok := pdfDocReverse[r]
	return c, ok
}

// pdfDocRunes maps PDFDocEncoding bytes to runes.  The table follows
// Annex D of ISO 32000-1:2008; undefined code points map to U+FFFD.
var pdfDocRunes = [256]rune{}

var pdfDocReverse map[rune]byte

var pdfDocDiffs = map[byte]rune{
	0x18: '˘', // breve
	0x19: 'ˇ', // caron
	0x1A: 'ˆ', // circumflex
	0x1B: '˙', // dotaccent
	0x1C: '˝', // hungarumlaut
	0x1D: '˛', // ogonek
	0x1E: '˚', // ring
	0x1F: '˜', // tilde
	0x7F: '�',
	0x80: '•', // bullet
	0x81: '†', // dagger
	0x82: '‡', // daggerdbl
	0x83: '…', // ellipsis
	0x84: '—', // emdash
	0x85: '–', // endash
	0x86: 'ƒ', // florin
	0x87: '⁄', // fraction
	0x88: '‹', // guilsinglleft
	0x89: '›', // guilsinglright
	0x8A: '−', // minus
	0x8B: '‰', // perthousand
	0x8C: '„', // quotedblbase
	0x8D: '“', // quotedblleft
	0x8E: '”', // quotedblright
	0x8F: '‘', // quoteleft
	0x90: '’', // quoteright
	0x91: '‚', // quotesinglbase
	0x92: '™', // trademark
	0x93: 'ﬁ', // fi
	0x94: 'ﬂ', // fl
	0x95: 'Ł', // Lslash
	0x96: 'Œ', // OE
	0x97: 'Š', // Scaron
	0x98: 'Ÿ', // Ydieresis
	0x99: 'Ž', // Zcaron
	0x9A: 'ı', // dotlessi
	0x9B: 'ł', // lslash
	0x9C: 'œ', // oe
	0x9D: 'š', // scaron
	0x9E: 'ž', // zcaron
	0x9F: '�',
	0xA0: '€', // Euro
	0xAD: '�',
}

func init() {
	for i := range pdfDocRunes {
		pdfDocRunes[i] = rune(i)
	}
	for c, r := range pdfDocDiffs {
		pdfDocRunes[c] = r
	}
	pdfDocReverse = make(map[rune]byte)
	for i := 0x80; i < 0x100; i++ {
		r := pdfDocRunes[i]
		if r != '�' {
			pdfDocReverse[r] = byte(i)
		}
	}
	for c, r := range pdfDocDiffs {
		if r != '�' {
			pdfDocReverse[r] = c
		}
	}
}
