package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	// SHA-256 of empty input is well-known.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusViewing, "viewing"},
		{StatusRenaming, "renaming"},
		{StatusStripping, "stripping"},
		{StatusOCR, "ocr"},
		{StatusPlacing, "placing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestNewJob(t *testing.T) {
	a := NewJob("a.pdf")
	b := NewJob("a.pdf")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected unique IDs, got %q and %q", a.ID, b.ID)
	}
	if a.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, a.Status)
	}
	if a.Path() != "a.pdf" || a.Source != "a.pdf" {
		t.Errorf("unexpected paths %q %q", a.Path(), a.Source)
	}
}

func TestJob_SetPathKeepsSource(t *testing.T) {
	job := NewJob("download.pdf")
	job.SetPath("arendt-on_violence.pdf")

	snap := job.Snapshot()
	if snap.Path != "arendt-on_violence.pdf" {
		t.Errorf("expected new path, got %q", snap.Path)
	}
	if snap.Source != "download.pdf" {
		t.Errorf("expected source unchanged, got %q", snap.Source)
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("viewer failed")
	job.AddError("rename aborted")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "viewer failed" {
		t.Errorf("expected first error %q, got %q", "viewer failed", snap.Progress.Errors[0])
	}
}

func TestJob_RecordStrip(t *testing.T) {
	job := NewJob("p.pdf")
	job.RecordStrip(12, 11, true, 11)
	job.SetOCRApplied()

	snap := job.Snapshot()
	if snap.Progress.PagesIn != 12 || snap.Progress.PagesOut != 11 {
		t.Errorf("expected 12 -> 11 pages, got %d -> %d", snap.Progress.PagesIn, snap.Progress.PagesOut)
	}
	if !snap.Progress.CoverRemoved || snap.Progress.FootersCut != 11 || !snap.Progress.OCRApplied {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJob_SnapshotIsACopy(t *testing.T) {
	job := NewJob("p.pdf")
	job.AddError("first")
	snap := job.Snapshot()
	job.AddError("second")
	if len(snap.Progress.Errors) != 1 {
		t.Errorf("expected snapshot to keep 1 error, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore()
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore()
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_AllKeepsOrder(t *testing.T) {
	store := NewJobStore()
	ids := []string{"c", "a", "b"}
	for _, id := range ids {
		store.Put(&Job{ID: id})
	}
	store.Put(&Job{ID: "a"})

	all := store.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}
	for i, id := range ids {
		if all[i].ID != id {
			t.Errorf("position %d: expected %q, got %q", i, id, all[i].ID)
		}
	}
}

func TestFileHashHex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FileHashHex(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != ContentHashHex([]byte("hello world")) {
		t.Errorf("expected file hash to match content hash, got %q", got)
	}
}
