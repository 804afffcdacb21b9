package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/dgallion1/papershelf/internal/coverpage"
	"github.com/dgallion1/papershelf/internal/document"
	"github.com/dgallion1/papershelf/internal/ocr"
	"github.com/dgallion1/papershelf/internal/parser"
	"github.com/dgallion1/papershelf/internal/pdfedit"
	"github.com/dgallion1/papershelf/internal/rename"
	"github.com/dgallion1/papershelf/internal/viewer"
)

// Renamer asks the user for a paper's new file name.
type Renamer interface {
	Ask(meta rename.Metadata) (string, error)
}

// Stripper removes cover pages and footers from a paper on disk.
type Stripper interface {
	Rewrite(ctx context.Context, doc *document.Document, res *coverpage.Resolution) (pdfedit.Edits, error)
}

// Recognizer adds a text layer to a scanned paper.
type Recognizer interface {
	Run(ctx context.Context, doc *document.Document) error
}

// Phases selects what the worker does to each paper.
type Phases struct {
	Rename     bool
	DeJstorify bool
	OCR        bool
	OutDir     string
}

// Deps are the collaborators a Worker drives. Renamer, Stripper and
// Recognizer may be nil when the matching phase is off.
type Deps struct {
	Parser     parser.Parser
	Viewer     viewer.Viewer
	Renamer    Renamer
	Resolver   *coverpage.Resolver
	Stripper   Stripper
	Recognizer Recognizer
}

// Worker processes a single paper job.
type Worker struct {
	deps   Deps
	phases Phases
	log    *slog.Logger
}

func NewWorker(deps Deps, phases Phases, log *slog.Logger) *Worker {
	if deps.Viewer == nil {
		deps.Viewer = viewer.Noop{}
	}
	if deps.Resolver == nil {
		deps.Resolver = coverpage.NewResolver(0)
	}
	return &Worker{deps: deps, phases: phases, log: log}
}

// Process runs view, rename, de-jstorify, OCR and placement for a job.
// Each phase is skipped unless enabled. The first failing phase ends the job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "file", filepath.Base(job.Path()))

	h, err := FileHashHex(job.Path())
	if err != nil {
		w.fail(log, job, "reading", err)
		return
	}
	job.SetContentHash(h)

	steps := []struct {
		on    bool
		phase string
		run   func(context.Context, *Job, *slog.Logger) error
	}{
		{w.phases.Rename, "renaming", w.renamePaper},
		{w.phases.DeJstorify, "stripping", w.stripPaper},
		{w.phases.OCR, "ocr", w.ocrPaper},
		{w.phases.OutDir != "", "placing", w.placePaper},
	}
	for _, s := range steps {
		if !s.on {
			continue
		}
		if err := ctx.Err(); err != nil {
			w.fail(log, job, s.phase, err)
			return
		}
		if err := s.run(ctx, job, log); err != nil {
			w.fail(log, job, s.phase, err)
			return
		}
	}

	job.SetStatus(StatusCompleted, "done")
	log.Info("paper done", "path", job.Path())
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error(phase+" failed", "error", err)
	job.AddError(fmt.Sprintf("%s: %s", phase, err))
	job.SetStatus(StatusFailed, phase)
}

// renamePaper shows the paper, asks for author and title, closes the viewer and
// renames the file in place.
func (w *Worker) renamePaper(ctx context.Context, job *Job, log *slog.Logger) error {
	path := job.Path()

	var meta rename.Metadata
	if doc, err := w.deps.Parser.Open(path); err != nil {
		log.Warn("could not read metadata", "error", err)
	} else {
		meta = rename.Metadata{Author: doc.Author, Title: doc.Title}
	}

	job.SetStatus(StatusViewing, "viewing")
	if err := w.deps.Viewer.Open(ctx, path); err != nil {
		log.Warn("viewer failed to open", "error", err)
	}

	job.SetStatus(StatusRenaming, "renaming")
	name, err := w.deps.Renamer.Ask(meta)
	if cerr := w.deps.Viewer.Close(path); cerr != nil {
		log.Warn("viewer failed to close", "error", cerr)
	}
	if err != nil {
		return err
	}

	newPath, err := rename.Apply(path, name)
	if err != nil {
		return err
	}
	if newPath != path {
		log.Info("renamed", "to", filepath.Base(newPath))
	}
	job.SetPath(newPath)
	return nil
}

// stripPaper removes the cover page and cuts footers.
func (w *Worker) stripPaper(ctx context.Context, job *Job, log *slog.Logger) error {
	job.SetStatus(StatusStripping, "stripping")
	doc, err := w.deps.Parser.Open(job.Path())
	if err != nil {
		return err
	}

	res, err := w.deps.Resolver.FindCoverPage(doc)
	if err != nil {
		var amb *coverpage.AmbiguousPageSizesError
		if errors.As(err, &amb) {
			log.Warn("page sizes are ambiguous, leaving file alone", "large", amb.Large, "small", amb.Small)
		}
		return err
	}

	edits, err := w.deps.Stripper.Rewrite(ctx, doc, res)
	if err != nil {
		return err
	}
	job.RecordStrip(doc.PageCount(), doc.PageCount()-len(edits.Remove), res != nil, len(edits.Crops))
	return nil
}

// ocrPaper adds a text layer when the paper has none.
func (w *Worker) ocrPaper(ctx context.Context, job *Job, log *slog.Logger) error {
	job.SetStatus(StatusOCR, "ocr")
	doc, err := w.deps.Parser.Open(job.Path())
	if err != nil {
		return err
	}
	if !ocr.NeedsOCR(doc) {
		log.Info("no need to OCR")
		return nil
	}

	log.Info("applying OCR", "pages", doc.PageCount())
	if err := w.deps.Recognizer.Run(ctx, doc); err != nil {
		return err
	}
	job.SetOCRApplied()
	return nil
}

// placePaper moves the paper into the output directory.
func (w *Worker) placePaper(_ context.Context, job *Job, log *slog.Logger) error {
	job.SetStatus(StatusPlacing, "placing")
	src := job.Path()
	dst := filepath.Join(w.phases.OutDir, filepath.Base(src))

	if err := moveFile(src, dst); err != nil {
		return err
	}
	log.Info("placed", "to", dst)
	job.SetPath(dst)
	return nil
}

// moveFile renames src to dst, copying across filesystems. An existing dst
// is never replaced.
func moveFile(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%s: %w", dst, rename.ErrTargetExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", dst, err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("move %s: %w", src, err)
	}

	if err := copyFile(src, dst); err != nil {
		os.Remove(dst)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove %s: %w", src, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
