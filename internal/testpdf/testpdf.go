// Package testpdf builds small, valid PDF files for tests.
package testpdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Page describes one page of a generated file.
type Page struct {
	Width, Height float64
	CropBox       []float64 // llx lly urx ury; omitted when nil
	Text          string    // Drawn in Helvetica; may be empty
}

// Spec describes a generated file.
type Spec struct {
	Title  string
	Author string
	Pages  []Page
}

// Build renders s as a PDF with a classic cross-reference table.
func Build(s Spec) []byte {
	var objs []string

	// Object numbers: 1 catalog, 2 pages, 3 font, 4 info, then two per page.
	kids := make([]string, len(s.Pages))
	for i := range s.Pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}

	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(s.Pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Title (%s) /Author (%s) >>", escape(s.Title), escape(s.Author)),
	)

	for i, p := range s.Pages {
		page := fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s]", num(p.Width), num(p.Height))
		if len(p.CropBox) == 4 {
			page += fmt.Sprintf(" /CropBox [%s %s %s %s]", num(p.CropBox[0]), num(p.CropBox[1]), num(p.CropBox[2]), num(p.CropBox[3]))
		}
		page += fmt.Sprintf(" /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 6+2*i)

		var content string
		if p.Text != "" {
			content = fmt.Sprintf("BT /F1 10 Tf 36 36 Td (%s) Tj ET", escape(p.Text))
		}
		stream := fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)

		objs = append(objs, page, stream)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 4 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// Write builds s into dir/name and returns the path.
func Write(t testing.TB, dir, name string, s Spec) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(s), 0o644); err != nil {
		t.Fatalf("write test pdf: %v", err)
	}
	return path
}

// Uniform returns n pages of the same size and no text.
func Uniform(n int, w, h float64) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Width: w, Height: h}
	}
	return pages
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
