package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/papershelf/internal/document"
)

type fakeRunner struct {
	mu       sync.Mutex
	calls    []string
	envs     map[string][]string
	listing  map[string]string
	failTool string
}

func (r *fakeRunner) Run(_ context.Context, env []string, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, name+" "+strings.Join(args, " "))
	if r.envs == nil {
		r.envs = map[string][]string{}
	}
	r.envs[name] = env
	r.mu.Unlock()

	if name == r.failTool {
		return nil, fmt.Errorf("%s failed", name)
	}
	switch {
	case name == "pdfimages" && args[0] == "-list":
		return []byte(r.listing[filepath.Base(args[1])]), nil
	case name == "pdfimages":
		return nil, os.WriteFile(args[3]+"-000.png", []byte("img"), 0o644)
	case name == "convert":
		return nil, os.WriteFile(args[3], []byte("img"), 0o644)
	case name == "tesseract":
		return nil, os.WriteFile(args[1]+".pdf", []byte("ocr"), 0o644)
	}
	return nil, fmt.Errorf("unexpected tool %s", name)
}

func (r *fakeRunner) count(prefix string) int {
	n := 0
	for _, c := range r.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakePages struct {
	merged   []string
	mergeErr error
}

func (p *fakePages) Burst(inFile, dir, stem string, pageCount int) ([]string, error) {
	var out []string
	for n := 1; n <= pageCount; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_%04d.pdf", stem, n))
		if err := os.WriteFile(path, []byte("page"), 0o644); err != nil {
			return nil, err
		}
		out = append(out, path)
	}
	return out, nil
}

func (p *fakePages) Merge(inFiles []string, outFile string) error {
	p.merged = inFiles
	if p.mergeErr != nil {
		os.WriteFile(outFile, []byte("partial"), 0o644)
		return p.mergeErr
	}
	return os.WriteFile(outFile, []byte("merged"), 0o644)
}

const header = "page   num  type   width height color comp bpc  enc interp  object ID x-ppi y-ppi size ratio\n" +
	"--------------------------------------------------------------------------------------------\n"

func newTestEngine(t *testing.T, pages *fakePages, runner *fakeRunner) *Engine {
	t.Helper()
	e := NewEngine(Options{Langs: "eng+fra", Workers: 2}, pages, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.runner = runner
	e.languages = func() ([]string, error) { return []string{"eng", "fra", "osd"}, nil }
	return e
}

func scan(t *testing.T, pages int) *document.Document {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.pdf")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := &document.Document{Path: path}
	for i := 1; i <= pages; i++ {
		doc.Pages = append(doc.Pages, document.Page{Number: i})
	}
	return doc
}

func TestNeedsOCR(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  bool
	}{
		{"no pages", nil, false},
		{"single blank page", []string{"  \n"}, true},
		{"single page with text", []string{"Abstract"}, false},
		{"second page decides", []string{"cover text", ""}, true},
		{"text on second page", []string{"", "Introduction"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &document.Document{}
			for i, s := range tt.texts {
				doc.Pages = append(doc.Pages, document.Page{Number: i + 1, Text: s})
			}
			if got := NeedsOCR(doc); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestEngine_RunWithPdfimages(t *testing.T) {
	pages := &fakePages{}
	runner := &fakeRunner{listing: map[string]string{
		"scan_0001.pdf": header + "   1     0 image    2480  3508  gray    1   1  ccitt  no   7  0   300   300 45.2K 4.2%",
	}}
	doc := scan(t, 3)

	if err := newTestEngine(t, pages, runner).Run(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if runner.count("convert") != 0 {
		t.Error("expected pdfimages extraction, not imagemagick")
	}
	if n := runner.count("pdfimages -j -png"); n != 3 {
		t.Errorf("expected 3 extractions, got %d", n)
	}
	if n := runner.count("tesseract"); n != 3 {
		t.Errorf("expected 3 tesseract runs, got %d", n)
	}
	if len(pages.merged) != 3 {
		t.Fatalf("expected 3 merged pages, got %v", pages.merged)
	}
	for i, m := range pages.merged {
		want := fmt.Sprintf("scan_%04d.pdf-img-000.png-ocr.pdf", i+1)
		if filepath.Base(m) != want {
			t.Errorf("merge input %d: expected %s, got %s", i, want, filepath.Base(m))
		}
	}
	if env := runner.envs["tesseract"]; len(env) != 1 || env[0] != "OMP_THREAD_LIMIT=1" {
		t.Errorf("expected tesseract thread limit, got %v", env)
	}

	data, _ := os.ReadFile(doc.Path)
	if string(data) != "merged" {
		t.Errorf("expected merged output in place, got %q", data)
	}
	bak, _ := os.ReadFile(doc.Path + ".bak")
	if string(bak) != "original" {
		t.Errorf("expected backup of original, got %q", bak)
	}
	entries, _ := os.ReadDir(filepath.Dir(doc.Path))
	if len(entries) != 2 {
		t.Errorf("expected only file and backup, got %d entries", len(entries))
	}
}

func TestEngine_RunWithImagemagick(t *testing.T) {
	pages := &fakePages{}
	many := header + strings.Repeat("   1     0 image    100  100  rgb    3   8  jpeg  no   7  0   72   72 4K 1%\n", 4)
	runner := &fakeRunner{listing: map[string]string{"scan_0002.pdf": many}}
	doc := scan(t, 2)

	if err := newTestEngine(t, pages, runner).Run(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := runner.count("convert -density 300"); n != 2 {
		t.Errorf("expected 2 renders, got %d", n)
	}
	if runner.count("pdfimages -j") != 0 {
		t.Error("expected no pdfimages extraction")
	}
	if env := runner.envs["convert"]; len(env) != 1 || env[0] != "MAGICK_THREAD_LIMIT=1" {
		t.Errorf("expected imagemagick thread limit, got %v", env)
	}
}

func TestEngine_RunKeepsEarlierBackup(t *testing.T) {
	doc := scan(t, 1)
	if err := os.WriteFile(doc.Path+".bak", []byte("first scan"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := newTestEngine(t, &fakePages{}, &fakeRunner{}).Run(context.Background(), doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data, _ := os.ReadFile(doc.Path + ".bak"); string(data) != "first scan" {
		t.Errorf("expected earlier backup untouched, got %q", data)
	}
	if data, _ := os.ReadFile(doc.Path + ".bak.1"); string(data) != "original" {
		t.Errorf("expected original in .bak.1, got %q", data)
	}
}

func TestBackupName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	if got, _ := backupName(path); got != path+".bak" {
		t.Errorf("expected %s.bak, got %s", path, got)
	}
	for _, suffix := range []string{".bak", ".bak.1"} {
		if err := os.WriteFile(path+suffix, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got, _ := backupName(path); got != path+".bak.2" {
		t.Errorf("expected %s.bak.2, got %s", path, got)
	}
}

func TestEngine_MissingLanguage(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestEngine(t, &fakePages{}, runner)
	e.opts.Langs = "eng+grc+lat"

	err := e.Run(context.Background(), scan(t, 1))
	if !errors.Is(err, ErrMissingLanguage) {
		t.Fatalf("expected ErrMissingLanguage, got %v", err)
	}
	if !strings.Contains(err.Error(), "grc, lat") {
		t.Errorf("expected missing languages named, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("expected no tools run, got %v", runner.calls)
	}
}

func TestEngine_MergeFailureRestoresOriginal(t *testing.T) {
	pages := &fakePages{mergeErr: errors.New("bad pdf")}
	doc := scan(t, 2)

	err := newTestEngine(t, pages, &fakeRunner{}).Run(context.Background(), doc)
	if err == nil {
		t.Fatal("expected error")
	}
	data, _ := os.ReadFile(doc.Path)
	if string(data) != "original" {
		t.Errorf("expected original restored, got %q", data)
	}
	if _, err := os.Stat(doc.Path + ".bak"); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected backup to be moved back")
	}
}

func TestEngine_TesseractFailureLeavesOriginal(t *testing.T) {
	doc := scan(t, 2)
	err := newTestEngine(t, &fakePages{}, &fakeRunner{failTool: "tesseract"}).Run(context.Background(), doc)
	if err == nil {
		t.Fatal("expected error")
	}
	data, _ := os.ReadFile(doc.Path)
	if string(data) != "original" {
		t.Errorf("expected original untouched, got %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(doc.Path))
	if len(entries) != 1 {
		t.Errorf("expected staging dir removed, got %d entries", len(entries))
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	e := NewEngine(Options{Langs: "eng"}, &fakePages{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if e.opts.Workers <= 0 || e.opts.Density != 300 || e.opts.ImageLines != 3 {
		t.Errorf("unexpected defaults %+v", e.opts)
	}
}
