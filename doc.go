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

// Package pdf provides support for reading and writing PDF files.
//
// A PDF file is a collection of objects: booleans, numbers, strings,
// names, arrays, dictionaries, streams and the null object, represented
// here by the types [Bool], [Integer], [Real], [String], [Name], [Array],
// [Dict], [Stream] and untyped nil.  Objects can refer to each other using
// references to "indirect objects", represented by the type [Reference].
//
// Use [Open] or [NewReader] to read an existing file.  Starting from the
// trailer dictionary, the object graph is traversed with
// [Reader.Resolve] and the typed accessors like [Reader.GetDict].  Files
// encrypted with the standard security handler (RC4 and AES, security
// handler revisions 2 to 6) are decrypted transparently; passwords can be
// supplied via [ReaderOptions] or tried interactively with
// [Reader.Decrypt].
//
// By default the reader is forgiving about the structural damage found in
// many real-world files: a broken cross-reference table is rebuilt by
// scanning the file, incorrect stream lengths are repaired, and malformed
// numbers are read as zero.  Setting ReaderOptions.Strict reports these
// conditions as errors instead.
//
// Use [Create] or [NewWriter] to write a new file.  Indirect objects are
// allocated with [Writer.Alloc], written with [Writer.Put], and the file
// is finalized with [Writer.Close].
package pdf
