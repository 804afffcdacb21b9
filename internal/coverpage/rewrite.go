package coverpage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/papershelf/internal/document"
	"github.com/dgallion1/papershelf/internal/pdfedit"
)

// DefaultFooterMarker is the footer JSTOR stamps on every downloaded page.
const DefaultFooterMarker = "This content downloaded from"

// FooterCrop moves the crop box's lower-left corner by (DX, DY) on pages
// whose text contains Marker.
type FooterCrop struct {
	Marker string
	DX, DY float64
}

// DefaultFooterCrop trims 60pt off the bottom of marked pages.
var DefaultFooterCrop = FooterCrop{Marker: DefaultFooterMarker, DX: 0, DY: 60}

// Editor applies edits to a PDF stream.
type Editor interface {
	Apply(src io.ReadSeeker, dst io.Writer, e pdfedit.Edits) error
}

// Plan builds the edits that keep only content, in order, and crop the
// footer of every kept page that carries the marker. Crops are computed from
// each page's original crop box, so a page is never cropped twice. A crop
// that would leave no visible area is dropped.
func Plan(all, content []document.Page, footer FooterCrop) pdfedit.Edits {
	keep := make(map[int]bool, len(content))
	for _, p := range content {
		keep[p.Number] = true
	}

	var e pdfedit.Edits
	for _, p := range all {
		if !keep[p.Number] {
			e.Remove = append(e.Remove, p.Number)
		}
	}
	for _, p := range content {
		if footer.Marker == "" || !strings.Contains(p.Text, footer.Marker) {
			continue
		}
		crop := p.CropBox.Translate(footer.DX, footer.DY)
		if crop.Empty() {
			continue
		}
		if e.Crops == nil {
			e.Crops = make(map[int]document.Rect)
		}
		e.Crops[p.Number] = crop
	}
	return e
}

// Rewriter replaces a document on disk with its content pages.
type Rewriter struct {
	editor Editor
	footer FooterCrop
	log    *slog.Logger
}

func NewRewriter(editor Editor, footer FooterCrop, log *slog.Logger) *Rewriter {
	return &Rewriter{editor: editor, footer: footer, log: log}
}

// Rewrite writes doc without the cover page found in res (nil keeps every
// page) to a staging file next to doc.Path, then renames it over doc.Path.
// On failure the original file is left as it was. The planned edits are
// returned either way.
func (w *Rewriter) Rewrite(ctx context.Context, doc *document.Document, res *Resolution) (pdfedit.Edits, error) {
	content := doc.Pages
	if res != nil {
		content = res.Content
		w.log.Info("removing cover page", "page", res.Cover.Number, "kept", len(content))
	} else {
		w.log.Info("no cover page found")
	}

	edits := Plan(doc.Pages, content, w.footer)
	for _, p := range content {
		if _, ok := edits.Crops[p.Number]; ok {
			w.log.Info("cropping out footer", "page", p.Number)
		} else if w.footer.Marker != "" && strings.Contains(p.Text, w.footer.Marker) {
			w.log.Warn("footer offset exceeds crop box, page left uncropped",
				"page", p.Number, "crop_box", p.CropBox.String(), "dx", w.footer.DX, "dy", w.footer.DY)
		}
	}

	err := replaceFile(ctx, doc.Path, func(dst io.Writer) error {
		src, err := os.Open(doc.Path)
		if err != nil {
			return err
		}
		defer src.Close()
		return w.editor.Apply(src, dst, edits)
	})
	return edits, err
}

// replaceFile stages the output of write in a temporary directory beside
// path and renames it into place. The directory is removed on every path.
func replaceFile(ctx context.Context, path string, write func(io.Writer) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	tmpDir, err := os.MkdirTemp(filepath.Dir(path), ".papershelf-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	staged := filepath.Join(tmpDir, filepath.Base(path))
	f, err := os.OpenFile(staged, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write staged file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close staged file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(staged, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
