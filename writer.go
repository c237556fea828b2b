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
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
)

// Writer writes a new PDF file from scratch.  Objects are added with
// [Writer.Put] and the file structure is finalized by [Writer.Close].
type Writer struct {
	// Version is the PDF version written to the file header.
	Version Version

	w       *posWriter
	flushFn func() error
	closeFn func() error

	opt *WriterOptions
	id  [][]byte
	enc *encryptInfo

	xref       map[uint32]*writerXRefEntry
	nextNumber uint32

	root Object
	info Object

	closed bool
}

type writerXRefEntry struct {
	pos int64
	gen uint16
}

// Create creates the named file and returns a Writer for it.
func Create(fname string, opt *WriterOptions) (*Writer, error) {
	fd, err := os.Create(fname)
	if err != nil {
		return nil, err
	}
	pdf, err := NewWriter(fd, opt)
	if err != nil {
		fd.Close()
		return nil, err
	}
	pdf.closeFn = fd.Close
	return pdf, nil
}

// NewWriter creates a Writer writing to w.  The file header is written
// immediately.
func NewWriter(w io.Writer, opt *WriterOptions) (*Writer, error) {
	opt, err := opt.fill()
	if err != nil {
		return nil, err
	}

	versionString, err := opt.Version.ToString()
	if err != nil {
		return nil, err
	}

	id, err := makeID(opt.ID)
	if err != nil {
		return nil, err
	}

	buf := bufio.NewWriter(w)
	pdf := &Writer{
		Version:    opt.Version,
		w:          &posWriter{w: buf},
		flushFn:    buf.Flush,
		opt:        opt,
		id:         id,
		xref:       make(map[uint32]*writerXRefEntry),
		nextNumber: 1,
	}

	if opt.Encrypt != nil {
		if opt.Version < V1_4 {
			return nil, errors.New("PDF version too old for encryption")
		}
		pdf.enc, err = newEncryptInfo(opt.Encrypt, id[0])
		if err != nil {
			return nil, err
		}
		pdf.w.enc = pdf.enc
	}

	// The second line is a comment containing binary bytes, marking the
	// file as binary data for transfer programs.
	_, err = fmt.Fprintf(pdf.w, "%%PDF-%s\n%%\x80\x80\x80\x80\n", versionString)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

// makeID fills in the two parts of the file identifier.  The second part
// changes with every write, so any caller-supplied value is ignored.
func makeID(id [][]byte) ([][]byte, error) {
	res := make([][]byte, 2)
	if len(id) > 0 {
		res[0] = id[0]
	}
	if res[0] == nil {
		buf := make([]byte, 16)
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return nil, err
		}
		res[0] = buf
	}
	buf := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return nil, err
	}
	res[1] = buf
	return res, nil
}

// Alloc allocates an object number for a new indirect object.
func (pdf *Writer) Alloc() Reference {
	res := Reference{Number: pdf.nextNumber}
	pdf.nextNumber++
	return res
}

// Put writes one indirect object to the file.  The reference must have been
// allocated with [Writer.Alloc], and every reference must be written at
// most once.
func (pdf *Writer) Put(ref Reference, obj Object) error {
	if pdf.closed {
		return errors.New("writer is closed")
	}
	if ref.Number == 0 || ref.Number >= pdf.nextNumber {
		return fmt.Errorf("unallocated reference %s", ref)
	}
	if _, seen := pdf.xref[ref.Number]; seen {
		return fmt.Errorf("object %s written twice", ref)
	}

	pdf.xref[ref.Number] = &writerXRefEntry{
		pos: pdf.w.pos,
		gen: ref.Generation,
	}
	pdf.w.ref = ref

	_, err := fmt.Fprintf(pdf.w, "%d %d obj\n", ref.Number, ref.Generation)
	if err != nil {
		return err
	}
	if obj == nil {
		_, err = pdf.w.Write([]byte("null"))
	} else {
		err = obj.PDF(pdf.w)
	}
	if err != nil {
		return err
	}
	_, err = pdf.w.Write([]byte("\nendobj\n"))
	return err
}

// SetRoot sets the document catalog.  A file without a catalog cannot be
// closed.
func (pdf *Writer) SetRoot(obj Object) {
	pdf.root = obj
}

// SetInfo sets the document information dictionary.
func (pdf *Writer) SetInfo(obj Object) {
	pdf.info = obj
}

// Close writes the cross-reference table and the trailer.  The underlying
// file is closed if the Writer was created with [Create].
func (pdf *Writer) Close() error {
	if pdf.closed {
		return errors.New("writer is closed")
	}

	if pdf.root == nil {
		return errors.New("missing document catalog")
	}
	root := pdf.root
	if _, ok := root.(Reference); !ok {
		ref := pdf.Alloc()
		err := pdf.Put(ref, root)
		if err != nil {
			return err
		}
		root = ref
	}
	info := pdf.info
	if info != nil {
		if _, ok := info.(Reference); !ok {
			ref := pdf.Alloc()
			err := pdf.Put(ref, info)
			if err != nil {
				return err
			}
			info = ref
		}
	}

	trailer := Dict{
		"Size": Integer(pdf.nextNumber),
		"Root": root,
		"ID":   Array{String(pdf.id[0]), String(pdf.id[1])},
	}
	if info != nil {
		trailer["Info"] = info
	}
	if pdf.enc != nil {
		// The encryption dictionary is written without encryption.
		encRef := pdf.Alloc()
		pdf.w.enc = nil
		err := pdf.Put(encRef, pdf.enc.AsDict())
		pdf.w.enc = pdf.enc
		if err != nil {
			return err
		}
		trailer["Encrypt"] = encRef
		trailer["Size"] = Integer(pdf.nextNumber)
	}
	pdf.closed = true

	// The xref table and trailer are never encrypted.
	pdf.w.enc = nil

	xrefPos := pdf.w.pos
	err := pdf.writeXRefTable()
	if err != nil {
		return err
	}

	_, err = pdf.w.Write([]byte("trailer\n"))
	if err != nil {
		return err
	}
	err = trailer.PDF(pdf.w)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(pdf.w, "\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	if err != nil {
		return err
	}

	err = pdf.flushFn()
	if err != nil {
		return err
	}
	if pdf.closeFn != nil {
		return pdf.closeFn()
	}
	return nil
}

// writeXRefTable writes a classic cross-reference table covering all
// written objects.  Unwritten object numbers become free entries.
func (pdf *Writer) writeXRefTable() error {
	_, err := fmt.Fprintf(pdf.w, "xref\n0 %d\n", pdf.nextNumber)
	if err != nil {
		return err
	}
	_, err = pdf.w.Write([]byte("0000000000 65535 f\r\n"))
	if err != nil {
		return err
	}
	for number := uint32(1); number < pdf.nextNumber; number++ {
		entry := pdf.xref[number]
		if entry != nil {
			_, err = fmt.Fprintf(pdf.w, "%010d %05d n\r\n",
				entry.pos, entry.gen)
		} else {
			pdf.opt.Log(WarnLevel, "allocated object never written",
				"number", number)
			_, err = pdf.w.Write([]byte("0000000000 65535 f\r\n"))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// posWriter tracks the file position while writing, and carries the
// encryption state to the PDF methods of String and Stream.
type posWriter struct {
	w   io.Writer
	pos int64

	enc *encryptInfo
	ref Reference
}

func (w *posWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}
