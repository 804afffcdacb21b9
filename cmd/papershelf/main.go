package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/papershelf/internal/config"
	"github.com/dgallion1/papershelf/internal/coverpage"
	"github.com/dgallion1/papershelf/internal/ocr"
	"github.com/dgallion1/papershelf/internal/parser"
	"github.com/dgallion1/papershelf/internal/pdfedit"
	"github.com/dgallion1/papershelf/internal/pipeline"
	"github.com/dgallion1/papershelf/internal/rename"
	"github.com/dgallion1/papershelf/internal/viewer"
)

type options struct {
	inputs []string
	phases pipeline.Phases
}

func main() {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "papershelf: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	opts, err := parseFlags(os.Args[1:], &cfg, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "papershelf: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "papershelf: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, opts, log)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, cfg *config.Config, out io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("papershelf", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: papershelf [flags] INPUT...\n")
		fs.PrintDefaults()
	}

	var dejstor, skipRename, doOCR, noI3 bool
	fs.BoolVar(&dejstor, "d", false, "De-JSTORify: remove the cover page and cut download footers")
	fs.BoolVar(&dejstor, "de-jstorify", false, "Same as -d")
	fs.BoolVar(&skipRename, "skip-rename", false, "Do not open the paper or prompt for a new name")
	fs.BoolVar(&doOCR, "ocr", false, "OCR the paper if it has no text layer")
	fs.StringVar(&cfg.OCRLangs, "ocr-langs", cfg.OCRLangs, "Tesseract languages, joined with +")
	fs.StringVar(&cfg.OutDir, "o", cfg.OutDir, "Move finished papers into this directory")
	fs.StringVar(&cfg.OutDir, "outdir", cfg.OutDir, "Same as -o")
	fs.StringVar(&cfg.Viewer, "viewer", cfg.Viewer, "PDF viewer command")
	fs.BoolVar(&noI3, "no-i3", !cfg.UseI3, "Open the viewer on the current monitor")
	fs.Float64Var(&cfg.SizeThreshold, "threshold", cfg.SizeThreshold, "Page size difference (pt) that marks a cover page")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return options{}, fmt.Errorf("missing input file")
	}
	cfg.UseI3 = !noI3

	opts.inputs = fs.Args()
	opts.phases = pipeline.Phases{
		Rename:     !skipRename,
		DeJstorify: dejstor,
		OCR:        doOCR,
		OutDir:     cfg.OutDir,
	}
	return opts, nil
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func newViewer(cfg config.Config, log *slog.Logger) viewer.Viewer {
	if cfg.UseI3 {
		return viewer.NewI3(cfg.Viewer, cfg.ViewerTimeout, log)
	}
	return viewer.NewExec(cfg.Viewer, log)
}

func run(ctx context.Context, cfg config.Config, opts options, log *slog.Logger) int {
	pdfParser := parser.NewPDFParser(cfg.PDFFallbackPdftotext, log)
	editor := pdfedit.NewEditor()

	deps := pipeline.Deps{
		Parser:   pdfParser,
		Resolver: coverpage.NewResolver(cfg.SizeThreshold),
		Stripper: coverpage.NewRewriter(editor, coverpage.FooterCrop{
			Marker: cfg.FooterMarker,
			DX:     cfg.FooterOffsetX,
			DY:     cfg.FooterOffsetY,
		}, log),
	}

	if opts.phases.Rename {
		prompter, err := rename.NewReadlinePrompter()
		if err != nil {
			log.Error("terminal setup failed", "error", err)
			return 1
		}
		defer prompter.Close()
		deps.Renamer = rename.NewRenamer(prompter, os.Stdout)
		deps.Viewer = newViewer(cfg, log)
	}

	if opts.phases.OCR {
		deps.Recognizer = ocr.NewEngine(ocr.Options{
			Langs:      cfg.OCRLangs,
			Workers:    cfg.OCRWorkers,
			Density:    cfg.OCRDensity,
			ImageLines: cfg.OCRImageLines,
		}, editor, log)
	}

	var inputs []string
	skipped := 0
	for _, in := range opts.inputs {
		if !parser.IsPDF(in) {
			log.Warn("not a PDF, skipping", "path", in)
			skipped++
			continue
		}
		inputs = append(inputs, in)
	}

	worker := pipeline.NewWorker(deps, opts.phases, log)
	orch := pipeline.NewOrchestrator(worker, log)
	snaps := orch.Run(ctx, inputs)

	failed := pipeline.Failed(snaps) + skipped
	for _, s := range snaps {
		if s.Status == pipeline.StatusFailed {
			log.Warn("paper failed", "source", s.Source, "phase", s.Phase, "errors", s.Progress.Errors)
		}
	}
	log.Info("finished", "papers", len(opts.inputs), "failed", failed)
	if failed > 0 {
		return 1
	}
	return 0
}
