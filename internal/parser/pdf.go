package parser

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dgallion1/papershelf/internal/document"
	"github.com/dgallion1/papershelf/internal/pdfedit"
	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFParser reads page boxes with pdfcpu and page text with the Go PDF
// library, falling back to pdftotext for pages it cannot read.
type PDFParser struct {
	FallbackPdftotext bool

	conf *model.Configuration
	log  *slog.Logger
}

func NewPDFParser(fallbackPdftotext bool, log *slog.Logger) *PDFParser {
	return &PDFParser{
		FallbackPdftotext: fallbackPdftotext,
		conf:              pdfedit.NewConfiguration(),
		log:               log,
	}
}

func (p *PDFParser) Open(path string) (*document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	bounds, err := api.Boxes(f, nil, p.conf)
	if err != nil {
		return nil, fmt.Errorf("read page boxes: %w", err)
	}
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%s has no pages", path)
	}

	doc := &document.Document{Path: path, Pages: make([]document.Page, len(bounds))}
	for i, pb := range bounds {
		media := toRect(pb.MediaBox())
		crop := media
		if cb := pb.CropBox(); cb != nil {
			crop = toRect(cb)
		}
		doc.Pages[i] = document.Page{Number: i + 1, MediaBox: media, CropBox: crop}
	}

	texts, info, err := extractPDFText(path, len(bounds))
	if err != nil {
		p.log.Warn("pdf text extraction failed", "path", path, "error", err)
	}
	doc.Title = info.title
	doc.Author = info.author

	for i := range doc.Pages {
		if i < len(texts) && texts[i].err == nil {
			doc.Pages[i].Text = texts[i].text
			continue
		}
		if !p.FallbackPdftotext {
			continue
		}
		text, err := extractPdftotext(path, i+1)
		if err != nil {
			p.log.Warn("pdftotext failed", "path", path, "page", i+1, "error", err)
			continue
		}
		doc.Pages[i].Text = text
	}

	return doc, nil
}

type pageText struct {
	text string
	err  error
}

type docInfo struct {
	title  string
	author string
}

func extractPDFText(path string, numPages int) ([]pageText, docInfo, error) {
	var info docInfo

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, info, err
	}
	defer f.Close()

	infoDict := reader.Trailer().Key("Info")
	info.title = strings.TrimSpace(infoDict.Key("Title").Text())
	info.author = strings.TrimSpace(infoDict.Key("Author").Text())

	if n := reader.NumPage(); n < numPages {
		numPages = n
	}
	texts := make([]pageText, numPages)
	for i := 1; i <= numPages; i++ {
		text, err := plainText(reader, i)
		texts[i-1] = pageText{text: text, err: err}
	}
	return texts, info, nil
}

// plainText extracts one page. The library panics on some malformed content
// streams, which is reported as an error for that page.
func plainText(reader *pdflib.Reader, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", n)
	}
	return page.GetPlainText(nil)
}

func extractPdftotext(path string, page int) (string, error) {
	n := strconv.Itoa(page)
	cmd := exec.Command("pdftotext", "-f", n, "-l", n, "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func toRect(r *types.Rectangle) document.Rect {
	if r == nil {
		return document.Rect{}
	}
	return document.Rect{LLX: r.LL.X, LLY: r.LL.Y, URX: r.UR.X, URY: r.UR.Y}
}
