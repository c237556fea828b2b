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
	"github.com/go-playground/validator/v10"
)

// LogLevel classifies messages passed to a LogFunc.
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// LogFunc receives diagnostic messages from a Reader or Writer.  Most
// messages are warnings about non-conformant input which the library has
// repaired; see the error handling notes in the package documentation.
// Key/value pairs alternate in keyvals.
type LogFunc func(level LogLevel, msg string, keyvals ...interface{})

func discardLog(LogLevel, string, ...interface{}) {}

// ReaderOptions control how a PDF file is opened.  The zero value (or a nil
// pointer) selects lenient parsing with no logging.
type ReaderOptions struct {
	// Strict upgrades stream errors (unexpected end of input while scanning
	// a token or stream body) to fatal errors.  Recoverable non-compliance,
	// e.g. a wrong /Length entry, is repaired with a warning regardless of
	// this flag.
	Strict bool

	// Password is tried when the document turns out to be encrypted.  The
	// empty string is always tried first, since many files are encrypted
	// with an empty user password.
	Password string

	// MaxDepth bounds the nesting of arrays and dictionaries.  Zero selects
	// the default of 100.
	MaxDepth int `validate:"omitempty,min=8,max=4096"`

	// Log receives warnings about repaired input.  Nil discards.
	Log LogFunc
}

func (opt *ReaderOptions) fill() (*ReaderOptions, error) {
	res := &ReaderOptions{}
	if opt != nil {
		*res = *opt
	}
	validate := validator.New()
	if err := validate.Struct(res); err != nil {
		return nil, err
	}
	if res.MaxDepth == 0 {
		res.MaxDepth = 100
	}
	if res.Log == nil {
		res.Log = discardLog
	}
	return res, nil
}

// WriterOptions control how a PDF file is written.  A nil pointer selects
// PDF 1.7, a fresh file identifier and no encryption.
type WriterOptions struct {
	Version Version

	// ID is the file identifier pair.  If the first element is non-nil it is
	// preserved (the incremental-update contract); the second element is
	// always regenerated on write.
	ID [][]byte `validate:"omitempty,max=2"`

	Encrypt *EncryptOptions

	// Log receives diagnostics.  Nil discards.
	Log LogFunc
}

// EncryptScheme selects the encryption algorithm for new documents.
type EncryptScheme int

const (
	// EncryptRC4_40 selects 40-bit RC4 (security handler revision 2).
	EncryptRC4_40 EncryptScheme = iota

	// EncryptRC4_128 selects 128-bit RC4 (revision 3).
	EncryptRC4_128

	// EncryptAES_128 selects AES-128 in CBC mode (revision 4).
	EncryptAES_128

	// EncryptAES_256 selects AES-256 in CBC mode (revision 6).
	EncryptAES_256
)

// EncryptOptions describe the standard security handler configuration for a
// new document.
type EncryptOptions struct {
	Scheme EncryptScheme `validate:"min=0,max=3"`

	// UserPassword protects access to the document contents.
	UserPassword string

	// OwnerPassword grants full permissions.  If empty, the user password
	// is used.
	OwnerPassword string

	// Permissions are granted to users authenticated with the user
	// password.  Owners always have all permissions.
	Permissions Perm
}

func (opt *WriterOptions) fill() (*WriterOptions, error) {
	res := &WriterOptions{}
	if opt != nil {
		*res = *opt
	}
	validate := validator.New()
	if err := validate.Struct(res); err != nil {
		return nil, err
	}
	if res.Version == 0 {
		res.Version = V1_7
	}
	if res.Log == nil {
		res.Log = discardLog
	}
	return res, nil
}
