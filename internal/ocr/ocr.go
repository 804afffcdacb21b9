// Package ocr adds a text layer to scanned papers.
//
// A document is split into single pages, each page is turned into images,
// tesseract renders every image to a searchable PDF, and the results are
// merged back over the original. The original is kept beside it as .bak.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/papershelf/internal/document"
)

var (
	ErrMissingLanguage = errors.New("tesseract language not installed")
	ErrTooManyBackups  = errors.New("too many OCR backups")
)

const maxBackups = 100

// NeedsOCR reports whether doc looks like a scan: its second page (or its
// only page) has no extractable text.
func NeedsOCR(doc *document.Document) bool {
	if len(doc.Pages) == 0 {
		return false
	}
	page := doc.Pages[0]
	if len(doc.Pages) > 1 {
		page = doc.Pages[1]
	}
	return strings.TrimSpace(page.Text) == ""
}

// Pages splits and joins PDF files.
type Pages interface {
	Burst(inFile, dir, stem string, pageCount int) ([]string, error)
	Merge(inFiles []string, outFile string) error
}

type Options struct {
	Langs   string
	Workers int
	Density int
	// ImageLines is the pdfimages -list line count above which a page is
	// rendered with ImageMagick instead of having its images extracted.
	ImageLines int
}

type Engine struct {
	opts      Options
	pages     Pages
	runner    Runner
	languages func() ([]string, error)
	log       *slog.Logger
}

func NewEngine(opts Options, pages Pages, log *slog.Logger) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Density <= 0 {
		opts.Density = 300
	}
	if opts.ImageLines <= 0 {
		opts.ImageLines = 3
	}
	return &Engine{
		opts:      opts,
		pages:     pages,
		runner:    execRunner{},
		languages: gosseract.GetAvailableLanguages,
		log:       log,
	}
}

// Run replaces doc's file with an OCRed version.
func (e *Engine) Run(ctx context.Context, doc *document.Document) error {
	if err := e.checkLanguages(); err != nil {
		return err
	}

	path, err := filepath.Abs(doc.Path)
	if err != nil {
		return err
	}
	log := e.log.With("file", filepath.Base(path))

	dir, err := os.MkdirTemp(filepath.Dir(path), ".ocr-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(dir)

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pages, err := e.pages.Burst(path, dir, stem, doc.PageCount())
	if err != nil {
		return fmt.Errorf("burst: %w", err)
	}

	render, err := e.imageHeavy(ctx, pages)
	if err != nil {
		return err
	}
	if render {
		log.Info("converting to images", "method", "imagemagick", "pages", len(pages))
	} else {
		log.Info("converting to images", "method", "pdfimages", "pages", len(pages))
	}
	if err := e.each(ctx, pages, func(ctx context.Context, page string) error {
		return e.rasterize(ctx, page, render)
	}); err != nil {
		return fmt.Errorf("rasterize: %w", err)
	}

	images, err := globAll(dir, "*.png", "*.tif", "*.jpg", "*.jpeg")
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("no images produced from %s", path)
	}

	log.Info("running tesseract", "images", len(images), "langs", e.opts.Langs)
	var timings Timings
	if err := e.each(ctx, images, func(ctx context.Context, image string) error {
		start := time.Now()
		err := e.recognize(ctx, image)
		timings.Record(time.Since(start))
		return err
	}); err != nil {
		return fmt.Errorf("tesseract: %w", err)
	}
	ts := timings.Summary()
	log.Info("tesseract done", "images", ts.Count, "p50", ts.P50, "p95", ts.P95, "max", ts.Max)

	results, err := globAll(dir, "*-ocr.pdf")
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("tesseract produced no output for %s", path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.replace(path, results)
}

func (e *Engine) checkLanguages() error {
	available, err := e.languages()
	if err != nil {
		return fmt.Errorf("list tesseract languages: %w", err)
	}
	have := make(map[string]bool, len(available))
	for _, l := range available {
		have[l] = true
	}
	var missing []string
	for _, l := range strings.Split(e.opts.Langs, "+") {
		if l = strings.TrimSpace(l); l != "" && !have[l] {
			missing = append(missing, l)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingLanguage, strings.Join(missing, ", "))
	}
	return nil
}

// imageHeavy reports whether any page lists more images than pdfimages can
// usefully extract, in which case whole pages are rendered instead.
func (e *Engine) imageHeavy(ctx context.Context, pages []string) (bool, error) {
	for _, page := range pages {
		out, err := e.runner.Run(ctx, nil, "pdfimages", "-list", page)
		if err != nil {
			return false, fmt.Errorf("pdfimages -list %s: %w", filepath.Base(page), err)
		}
		lines := strings.Split(strings.TrimSpace(string(out)), "\n")
		if len(lines) > e.opts.ImageLines {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) rasterize(ctx context.Context, page string, render bool) error {
	if render {
		_, err := e.runner.Run(ctx, []string{"MAGICK_THREAD_LIMIT=1"},
			"convert", "-density", strconv.Itoa(e.opts.Density), page, page+".png")
		return err
	}
	_, err := e.runner.Run(ctx, nil, "pdfimages", "-j", "-png", page, page+"-img")
	return err
}

func (e *Engine) recognize(ctx context.Context, image string) error {
	_, err := e.runner.Run(ctx, []string{"OMP_THREAD_LIMIT=1"},
		"tesseract", image, image+"-ocr", "-l", e.opts.Langs, "pdf")
	return err
}

// each runs fn over items with at most Workers in flight.
func (e *Engine) each(ctx context.Context, items []string, fn func(context.Context, string) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, item := range items {
		g.Go(func() error {
			return fn(ctx, item)
		})
	}
	return g.Wait()
}

// replace moves the original to a backup and merges results in its place.
// The backup is restored if the merge fails.
func (e *Engine) replace(path string, results []string) error {
	bak, err := backupName(path)
	if err != nil {
		return err
	}
	if err := os.Rename(path, bak); err != nil {
		return fmt.Errorf("back up original: %w", err)
	}
	if err := e.pages.Merge(results, path); err != nil {
		os.Remove(path)
		if rerr := os.Rename(bak, path); rerr != nil {
			return fmt.Errorf("merge: %w (restore failed: %v)", err, rerr)
		}
		return fmt.Errorf("merge: %w", err)
	}
	e.log.Info("original kept", "backup", filepath.Base(bak))
	return nil
}

// backupName returns the first of path.bak, path.bak.1, path.bak.2, ... that
// does not exist yet.
func backupName(path string) (string, error) {
	for i := 0; i < maxBackups; i++ {
		name := path + ".bak"
		if i > 0 {
			name += "." + strconv.Itoa(i)
		}
		_, err := os.Lstat(name)
		if errors.Is(err, os.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("%s: %w", path, ErrTooManyBackups)
}

func globAll(dir string, patterns ...string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		m, err := filepath.Glob(filepath.Join(dir, p))
		if err != nil {
			return nil, err
		}
		out = append(out, m...)
	}
	sort.Strings(out)
	return out, nil
}
