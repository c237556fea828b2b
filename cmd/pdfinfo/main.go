// Command pdfinfo prints summary information about PDF files: version,
// encryption parameters, page count and the document information
// dictionary.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pdfmill/pdf"
)

func main() {
	passwd := flag.String("p", "", "password for encrypted files")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: pdfinfo [-p password] file.pdf ...")
		os.Exit(1)
	}

	reports := make([]string, flag.NArg())
	g := &errgroup.Group{}
	g.SetLimit(4)
	for i, fname := range flag.Args() {
		i, fname := i, fname
		g.Go(func() error {
			report, err := fileInfo(fname, *passwd)
			if err != nil {
				return fmt.Errorf("%s: %w", fname, err)
			}
			reports[i] = report
			return nil
		})
	}
	err := g.Wait()

	for _, report := range reports {
		if report != "" {
			fmt.Print(report)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fileInfo(fname, passwd string) (string, error) {
	r, err := pdf.Open(fname, &pdf.ReaderOptions{Password: passwd})
	if err != nil {
		return "", err
	}
	defer r.Close()

	b := &strings.Builder{}
	fmt.Fprintf(b, "%s:\n", fname)
	fmt.Fprintf(b, "  version: %s\n", r.Version)

	if status := r.AuthStatus(); status != pdf.NotDecrypted {
		fmt.Fprintf(b, "  encrypted: yes (opened with %s)\n", status)
		fmt.Fprintf(b, "  permissions: %s\n", describePerms(r.Permissions()))
	}

	if pages, err := countPages(r); err == nil && pages > 0 {
		fmt.Fprintf(b, "  pages: %d\n", pages)
	}

	info, err := r.Info()
	if err == nil && info != nil {
		for _, key := range []pdf.Name{
			"Title", "Author", "Subject", "Creator", "Producer",
		} {
			s, err := r.GetString(info[key])
			if err != nil || s == nil {
				continue
			}
			fmt.Fprintf(b, "  %s: %s\n",
				strings.ToLower(string(key)), s.AsTextString())
		}
		for _, key := range []pdf.Name{"CreationDate", "ModDate"} {
			s, err := r.GetString(info[key])
			if err != nil || s == nil {
				continue
			}
			if date, err := s.AsDate(); err == nil {
				fmt.Fprintf(b, "  %s: %s\n",
					strings.ToLower(string(key)), date)
			}
		}
	}
	return b.String(), nil
}

func countPages(r *pdf.Reader) (int64, error) {
	root, err := r.Root()
	if err != nil {
		return 0, err
	}
	pages, err := r.GetDict(root["Pages"])
	if err != nil || pages == nil {
		return 0, err
	}
	count, err := r.GetInt(pages["Count"])
	return int64(count), err
}

func describePerms(perm pdf.Perm) string {
	var allowed []string
	for _, p := range []struct {
		flag pdf.Perm
		name string
	}{
		{pdf.PermPrint, "print"},
		{pdf.PermModify, "modify"},
		{pdf.PermCopy, "copy"},
		{pdf.PermAnnotate, "annotate"},
		{pdf.PermFillForms, "fill forms"},
		{pdf.PermAssemble, "assemble"},
	} {
		if perm&p.flag != 0 {
			allowed = append(allowed, p.name)
		}
	}
	if len(allowed) == 0 {
		return "none"
	}
	return strings.Join(allowed, ", ")
}
