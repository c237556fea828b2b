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
	"errors"
	"fmt"
	"io"
	"os"
)

// Reader represents a PDF file opened for reading.  The zero value is not
// usable, use [Open] or [NewReader] to create Reader objects.
//
// Methods on a Reader are not safe for concurrent use.
type Reader struct {
	// Version is the PDF version advertised in the file header.
	Version Version

	// Trailer is the file trailer, merged across all incremental updates.
	// The /Prev and /XRefStm entries are removed.
	Trailer Dict

	r    io.ReaderAt
	size int64
	opt  *ReaderOptions

	xref map[uint32]*xRefEntry

	enc *encryptInfo
	pwd PasswordType

	cache     map[Reference]Object
	resolving map[Reference]bool
	objStms   map[uint32]*objStm

	closeFn func() error
}

// Open opens the named PDF file for reading.  After use, [Reader.Close]
// must be called to release the underlying file.
func Open(fname string, opt *ReaderOptions) (*Reader, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}
	r, err := NewReader(fd, fi.Size(), opt)
	if err != nil {
		fd.Close()
		return nil, err
	}
	r.closeFn = fd.Close
	return r, nil
}

// NewReader creates a new Reader for a PDF file of the given size.
func NewReader(data io.ReaderAt, size int64, opt *ReaderOptions) (*Reader, error) {
	opt, err := opt.fill()
	if err != nil {
		return nil, err
	}

	r := &Reader{
		r:         data,
		size:      size,
		opt:       opt,
		cache:     make(map[Reference]Object),
		resolving: make(map[Reference]bool),
		objStms:   make(map[uint32]*objStm),
	}

	r.Version, err = r.readVersion()
	if err != nil {
		return nil, err
	}

	xref, trailer, err := r.readXRef()
	if err != nil {
		if r.opt.Strict {
			return nil, err
		}
		r.opt.Log(WarnLevel, "broken xref chain", "err", err)
		xref, trailer, err = r.rebuildXRef()
		if err != nil {
			return nil, err
		}
	}
	r.xref = xref
	r.Trailer = trailer

	if _, ok := trailer["Encrypt"]; ok {
		enc, err := r.readEncryptInfo()
		if err != nil {
			return nil, err
		}
		r.enc = enc

		// An empty user password is tried automatically, and a password
		// supplied by the caller is tried both as owner and as user
		// password.
		r.pwd = enc.TryPassword(opt.Password)
		if r.pwd == NotDecrypted && opt.Password != "" {
			return nil, &AuthenticationError{ID: enc.id}
		}
	}

	return r, nil
}

// Close releases the file underlying the Reader, if any.  Readers created
// with [NewReader] do not need to be closed.
func (r *Reader) Close() error {
	if r.closeFn != nil {
		return r.closeFn()
	}
	return nil
}

// Decrypt tries the given password for the file, first as the owner
// password and then as the user password.  The return value reports which
// of the two matched, or NotDecrypted if neither did.
func (r *Reader) Decrypt(password string) PasswordType {
	if r.enc == nil {
		return NotDecrypted
	}
	pwd := r.enc.TryPassword(password)
	if pwd > r.pwd {
		r.pwd = pwd
	}
	return pwd
}

// AuthStatus reports how the file was decrypted.  For unencrypted files
// this is NotDecrypted.
func (r *Reader) AuthStatus() PasswordType {
	return r.pwd
}

// Permissions returns the operations permitted for this file.  Unencrypted
// files, and encrypted files opened with the owner password, allow
// everything.
func (r *Reader) Permissions() Perm {
	if r.enc == nil || r.pwd == OwnerPassword {
		return PermAll
	}
	return r.enc.Permissions()
}

func (r *Reader) scannerAt(pos int64) *scanner {
	return newScanner(r.r, r.size, pos, r.scannerGetInt, r.opt)
}

func (r *Reader) scannerGetInt(obj Object) (Integer, error) {
	if obj == nil {
		return 0, errors.New("missing integer")
	}
	if x, ok := obj.(Integer); ok {
		return x, nil
	}
	if r.xref == nil {
		// During xref parsing indirect lengths cannot be followed.
		return 0, errors.New("indirect integer not available")
	}
	return r.GetInt(obj)
}

// readVersion reads the file header.  In lenient mode a small amount of
// garbage before the "%PDF-" marker is tolerated.
func (r *Reader) readVersion() (Version, error) {
	s := r.scannerAt(0)
	version, err := s.readHeaderVersion()
	if err == nil {
		return version, nil
	}
	if r.opt.Strict {
		return 0, err
	}

	head := make([]byte, 1024)
	n, _ := r.r.ReadAt(head, 0)
	idx := bytes.Index(head[:n], []byte("%PDF-"))
	if idx < 0 {
		return 0, err
	}
	r.opt.Log(WarnLevel, "header not at start of file", "offset", idx)
	return r.scannerAt(int64(idx)).readHeaderVersion()
}

// Resolve resolves references to indirect objects.
//
// If obj is a [Reference], the function loads the corresponding object from
// the file and returns the result.  Otherwise, obj is returned unchanged.
// Resolved objects are cached, so the file is consulted at most once per
// object.
func (r *Reader) Resolve(obj Object) (Object, error) {
	seen := make(map[Reference]bool)
	for {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		if seen[ref] {
			r.opt.Log(WarnLevel, "reference cycle", "ref", ref.String())
			return nil, nil
		}
		seen[ref] = true

		next, err := r.doResolve(ref)
		if err != nil {
			return nil, err
		}
		obj = next
	}
}

func (r *Reader) doResolve(ref Reference) (Object, error) {
	if obj, ok := r.cache[ref]; ok {
		return obj, nil
	}
	if r.resolving[ref] {
		// The object refers to itself, e.g. via an indirect /Length.
		r.opt.Log(WarnLevel, "self-referential object", "ref", ref.String())
		r.cache[ref] = nil
		return nil, nil
	}
	r.resolving[ref] = true
	defer delete(r.resolving, ref)

	entry, ok := r.xref[ref.Number]
	if !ok || entry == nil {
		if r.opt.Strict {
			return nil, &MalformedFileError{
				Err: fmt.Errorf("object %s not found", ref),
			}
		}
		r.opt.Log(WarnLevel, "object not found, treated as null",
			"ref", ref.String())
		r.cache[ref] = nil
		return nil, nil
	}
	if entry.InStream.Number == 0 && entry.Generation != ref.Generation {
		if r.opt.Strict {
			return nil, &MalformedFileError{
				Err: fmt.Errorf("object %s has wrong generation %d",
					ref, entry.Generation),
			}
		}
		r.opt.Log(WarnLevel, "generation mismatch",
			"ref", ref.String(), "found", entry.Generation)
	}

	var obj Object
	var err error
	if entry.InStream.Number != 0 {
		obj, err = r.readFromObjStm(entry.InStream, ref.Number)
		if err != nil {
			return nil, err
		}
		// Objects inside object streams are covered by the decryption of
		// the containing stream and must not be decrypted again.
	} else {
		obj, err = r.readAt(entry.Pos, ref)
		if err != nil {
			return nil, err
		}
		if r.enc != nil && ref != r.enc.ref {
			if r.pwd == NotDecrypted {
				return nil, &AuthenticationError{ID: r.enc.id}
			}
			obj, err = r.enc.decryptObject(ref, obj)
			if err != nil {
				return nil, err
			}
		}
	}

	if s, ok := obj.(*Stream); ok {
		s.log = r.opt.Log
	}
	r.cache[ref] = obj
	return obj, nil
}

func (r *Reader) readAt(pos int64, want Reference) (Object, error) {
	s := r.scannerAt(pos)
	obj, ref, err := s.ReadIndirectObject()
	if err != nil {
		return nil, err
	}
	if ref != want {
		if r.opt.Strict {
			return nil, &MalformedFileError{
				Pos: pos,
				Err: fmt.Errorf("expected object %s but found %s", want, ref),
			}
		}
		r.opt.Log(WarnLevel, "object number mismatch",
			"want", want.String(), "found", ref.String())
	}
	return obj, nil
}

// objStm is a decoded object stream together with the offsets of the
// objects it contains.
type objStm struct {
	data    []byte
	offsets map[uint32]int64
}

func (r *Reader) readFromObjStm(container Reference, number uint32) (Object, error) {
	stm, err := r.loadObjStm(container)
	if err != nil {
		return nil, err
	}
	pos, ok := stm.offsets[number]
	if !ok {
		if r.opt.Strict {
			return nil, &MalformedFileError{
				Err: fmt.Errorf("object %d not in object stream %s",
					number, container),
			}
		}
		r.opt.Log(WarnLevel, "object missing from object stream",
			"number", number, "container", container.String())
		return nil, nil
	}

	data := bytes.NewReader(stm.data)
	s := newScanner(data, int64(len(stm.data)), pos, nil, r.opt)
	return s.ReadObject()
}

func (r *Reader) loadObjStm(container Reference) (*objStm, error) {
	if stm, ok := r.objStms[container.Number]; ok {
		return stm, nil
	}

	stream, err := r.GetStream(container)
	if err != nil {
		return nil, err
	}
	if stream == nil {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("object stream %s not found", container),
		}
	}
	n, err := r.GetInt(stream.Dict["N"])
	if err != nil {
		return nil, err
	}
	first, err := r.GetInt(stream.Dict["First"])
	if err != nil {
		return nil, err
	}

	data, err := stream.Data(r.Resolve)
	if err != nil {
		return nil, wrap(err, "object stream data")
	}

	offsets := make(map[uint32]int64)
	s := newScanner(bytes.NewReader(data), int64(len(data)), 0, nil, r.opt)
	for i := int64(0); i < int64(n); i++ {
		err := s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		number, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		offs, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		offsets[uint32(number)] = int64(first) + int64(offs)
	}

	stm := &objStm{data: data, offsets: offsets}
	r.objStms[container.Number] = stm
	return stm, nil
}

// Root returns the document catalog.
func (r *Reader) Root() (Dict, error) {
	dict, err := r.GetDict(r.Trailer["Root"])
	if err != nil {
		return nil, err
	}
	if dict == nil {
		return nil, ErrNoTrailer
	}
	return dict, nil
}

// Info returns the document information dictionary, or nil if the file has
// none.
func (r *Reader) Info() (Dict, error) {
	return r.GetDict(r.Trailer["Info"])
}

// ID returns the two binary strings of the file identifier, or nil if the
// file has none.
func (r *Reader) ID() [][]byte {
	arr, err := r.GetArray(r.Trailer["ID"])
	if err != nil || len(arr) < 2 {
		return nil
	}
	a, okA := arr[0].(String)
	b, okB := arr[1].(String)
	if !okA || !okB {
		return nil
	}
	return [][]byte{a, b}
}

// GetInt resolves obj and checks that the result is an Integer.
func (r *Reader) GetInt(obj Object) (Integer, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return 0, err
	}
	if resolved == nil {
		return 0, nil
	}
	x, ok := resolved.(Integer)
	if !ok {
		return 0, &MalformedFileError{
			Err: fmt.Errorf("expected Integer but got %T", resolved),
		}
	}
	return x, nil
}

// GetName resolves obj and checks that the result is a Name.
func (r *Reader) GetName(obj Object) (Name, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return "", err
	}
	if resolved == nil {
		return "", nil
	}
	x, ok := resolved.(Name)
	if !ok {
		return "", &MalformedFileError{
			Err: fmt.Errorf("expected Name but got %T", resolved),
		}
	}
	return x, nil
}

// GetString resolves obj and checks that the result is a String.
func (r *Reader) GetString(obj Object) (String, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, nil
	}
	x, ok := resolved.(String)
	if !ok {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("expected String but got %T", resolved),
		}
	}
	return x, nil
}

// GetDict resolves obj and checks that the result is a Dict.
func (r *Reader) GetDict(obj Object) (Dict, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, nil
	}
	x, ok := resolved.(Dict)
	if !ok {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("expected Dict but got %T", resolved),
		}
	}
	return x, nil
}

// GetArray resolves obj and checks that the result is an Array.
func (r *Reader) GetArray(obj Object) (Array, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, nil
	}
	x, ok := resolved.(Array)
	if !ok {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("expected Array but got %T", resolved),
		}
	}
	return x, nil
}

// GetStream resolves obj and checks that the result is a Stream.
func (r *Reader) GetStream(obj Object) (*Stream, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, nil
	}
	x, ok := resolved.(*Stream)
	if !ok {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("expected Stream but got %T", resolved),
		}
	}
	return x, nil
}
