// Command pdfinspect shows the internal structure of a PDF file.  Without
// further arguments it prints the trailer dictionary.  With an object
// number it prints the object, and for streams a hex dump of the decoded
// payload.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/midbel/hexdump"
	"golang.org/x/term"

	"github.com/pdfmill/pdf"
)

func main() {
	passwd := flag.String("p", "", "password for encrypted files")
	raw := flag.Bool("r", false, "dump the raw (still encoded) stream payload")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr,
			"usage: pdfinspect [-p password] [-r] file.pdf [object[.generation]]")
		os.Exit(1)
	}

	err := run(flag.Arg(0), flag.Arg(1), *passwd, *raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(fname, objSpec, passwd string, raw bool) error {
	r, err := pdf.Open(fname, &pdf.ReaderOptions{Password: passwd})
	if err != nil {
		return err
	}
	defer r.Close()

	for r.AuthStatus() == pdf.NotDecrypted && isEncrypted(r) {
		fmt.Fprint(os.Stderr, "password: ")
		input, err := term.ReadPassword(syscall.Stdin)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}
		if r.Decrypt(string(input)) == pdf.NotDecrypted {
			fmt.Fprintln(os.Stderr, "wrong password")
		}
	}

	fmt.Printf("version: %s\n", r.Version)
	if objSpec == "" {
		fmt.Println(pdf.Format(r.Trailer))
		return nil
	}

	ref, err := parseRef(objSpec)
	if err != nil {
		return err
	}
	obj, err := r.Resolve(ref)
	if err != nil {
		return err
	}

	fmt.Printf("%d %d obj\n", ref.Number, ref.Generation)
	fmt.Println(pdf.Format(obj))

	if stream, ok := obj.(*pdf.Stream); ok {
		var body []byte
		if raw {
			body, err = stream.Raw(r.Resolve)
		} else {
			body, err = stream.Data(r.Resolve)
		}
		if err != nil {
			return err
		}
		if ext := stream.FileExtension(r.Resolve); ext != ".bin" {
			fmt.Printf("payload type: %s\n", ext)
		}
		fmt.Println(hexdump.Dump(body))
	}
	return nil
}

func isEncrypted(r *pdf.Reader) bool {
	_, ok := r.Trailer["Encrypt"]
	return ok
}

func parseRef(spec string) (pdf.Reference, error) {
	numPart, genPart, _ := strings.Cut(spec, ".")
	number, err := strconv.ParseUint(numPart, 10, 32)
	if err != nil {
		return pdf.Reference{}, fmt.Errorf("invalid object number %q", spec)
	}
	var gen uint64
	if genPart != "" {
		gen, err = strconv.ParseUint(genPart, 10, 16)
		if err != nil {
			return pdf.Reference{}, fmt.Errorf("invalid generation %q", spec)
		}
	}
	return pdf.Reference{
		Number:     uint32(number),
		Generation: uint16(gen),
	}, nil
}
