// Package pdfedit applies page-level edits to PDF files using pdfcpu.
package pdfedit

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/dgallion1/papershelf/internal/document"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Edits describes a rewrite in terms of the source file's page numbers.
type Edits struct {
	Remove []int                 // Pages to drop
	Crops  map[int]document.Rect // New crop box per page
}

// Empty reports whether applying e would leave the document unchanged.
func (e Edits) Empty() bool {
	return len(e.Remove) == 0 && len(e.Crops) == 0
}

var disableConfigDir sync.Once

// NewConfiguration returns a relaxed pdfcpu configuration that never touches
// the user's pdfcpu config directory.
func NewConfiguration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Editor rewrites PDFs.
type Editor struct {
	conf *model.Configuration
}

func NewEditor() *Editor {
	return &Editor{conf: NewConfiguration()}
}

// Apply writes src with e applied to dst. Crop boxes are set before pages
// are removed so page numbers in e always refer to src.
func (ed *Editor) Apply(src io.ReadSeeker, dst io.Writer, e Edits) error {
	if e.Empty() {
		if _, err := io.Copy(dst, src); err != nil {
			return fmt.Errorf("copy pdf: %w", err)
		}
		return nil
	}

	cur := src
	for _, g := range groupCrops(e.Crops) {
		pb, err := model.ParsePageBoundaries(fmt.Sprintf("crop:%s", g.rect), types.POINTS)
		if err != nil {
			return fmt.Errorf("parse crop box %s: %w", g.rect, err)
		}
		var buf bytes.Buffer
		if err := api.AddBoxes(cur, &buf, pageSelection(g.pages), pb, ed.conf); err != nil {
			return fmt.Errorf("set crop box on pages %v: %w", g.pages, err)
		}
		cur = bytes.NewReader(buf.Bytes())
	}

	if len(e.Remove) == 0 {
		if _, err := io.Copy(dst, cur); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		return nil
	}

	if err := api.RemovePages(cur, dst, pageSelection(e.Remove), ed.conf); err != nil {
		return fmt.Errorf("remove pages %v: %w", e.Remove, err)
	}
	return nil
}

// Burst writes every page of inFile to its own file in dir and returns the
// paths in page order.
func (ed *Editor) Burst(inFile, dir, stem string, pageCount int) ([]string, error) {
	paths := make([]string, 0, pageCount)
	for n := 1; n <= pageCount; n++ {
		out := filepath.Join(dir, fmt.Sprintf("%s_%04d.pdf", stem, n))
		if err := api.TrimFile(inFile, out, []string{strconv.Itoa(n)}, ed.conf); err != nil {
			return nil, fmt.Errorf("extract page %d: %w", n, err)
		}
		paths = append(paths, out)
	}
	return paths, nil
}

// Merge concatenates inFiles into outFile.
func (ed *Editor) Merge(inFiles []string, outFile string) error {
	if len(inFiles) == 0 {
		return fmt.Errorf("merge: no input files")
	}
	if err := api.MergeCreateFile(inFiles, outFile, false, ed.conf); err != nil {
		return fmt.Errorf("merge into %s: %w", outFile, err)
	}
	return nil
}

type cropGroup struct {
	rect  document.Rect
	pages []int
}

// groupCrops collects pages sharing a crop box so each box costs one pass.
func groupCrops(crops map[int]document.Rect) []cropGroup {
	idx := make(map[document.Rect]int)
	var groups []cropGroup

	pages := make([]int, 0, len(crops))
	for n := range crops {
		pages = append(pages, n)
	}
	sort.Ints(pages)

	for _, n := range pages {
		r := crops[n]
		i, ok := idx[r]
		if !ok {
			i = len(groups)
			idx[r] = i
			groups = append(groups, cropGroup{rect: r})
		}
		groups[i].pages = append(groups[i].pages, n)
	}
	return groups
}

func pageSelection(pages []int) []string {
	sel := make([]string, len(pages))
	for i, n := range pages {
		sel[i] = strconv.Itoa(n)
	}
	return sel
}
