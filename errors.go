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
	"fmt"
	"strconv"
)

var (
	errVersion   = errors.New("unsupported PDF version")
	errNoDate    = errors.New("not a valid PDF date string")
	errCorrupted = errors.New("corrupted ciphertext")

	errInvalidPassword = errors.New("password cannot be encoded")

	// ErrNoTrailer is reported when neither a startxref pointer nor a
	// usable cross-reference section could be located.  In lenient mode the
	// reader falls back to a full-file scan before giving up with this error.
	ErrNoTrailer = errors.New("trailer not found")
)

// MalformedFileError indicates that the PDF file could not be parsed.
type MalformedFileError struct {
	Pos int64
	Err error
}

func (err *MalformedFileError) Error() string {
	middle := ""
	if err.Err != nil {
		middle = ": " + err.Err.Error()
	}
	tail := ""
	if err.Pos > 0 {
		tail = " (at byte " + strconv.FormatInt(err.Pos, 10) + ")"
	}
	return "not a valid PDF file" + middle + tail
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

// AuthenticationError indicates that the correct password has not been
// supplied for an encrypted document.
type AuthenticationError struct {
	ID []byte
}

func (err *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed (ID %x)", err.ID)
}

// UnsupportedError indicates that the file uses a feature this library does
// not implement, e.g. an image compression filter or a non-standard security
// handler.  It is only reported when the feature is actually exercised.
type UnsupportedError struct {
	Feature string
}

func (err *UnsupportedError) Error() string {
	return "unsupported feature: " + err.Feature
}

func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
