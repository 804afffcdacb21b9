package pipeline

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a paper being processed.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusViewing   JobStatus = "viewing"
	StatusRenaming  JobStatus = "renaming"
	StatusStripping JobStatus = "stripping"
	StatusOCR       JobStatus = "ocr"
	StatusPlacing   JobStatus = "placing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the state of a single paper.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	Source string `json:"source"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	path   string
	errors []string
}

// Progress records what was done to the paper.
type Progress struct {
	PagesIn      int      `json:"pages_in"`
	PagesOut     int      `json:"pages_out"`
	CoverRemoved bool     `json:"cover_removed"`
	FootersCut   int      `json:"footers_cut"`
	OCRApplied   bool     `json:"ocr_applied"`
	Errors       []string `json:"errors"`
}

// NewJob creates a queued job for the file at path.
func NewJob(path string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Source:    path,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		path:      path,
	}
}

// JobStore is a thread-safe job registry that remembers submission order.
type JobStore struct {
	mu    sync.Mutex
	jobs  map[string]*Job
	order []string
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		s.order = append(s.order, job.ID)
	}
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// All returns jobs in the order they were added.
func (s *JobStore) All() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id])
	}
	return out
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// Path is where the paper currently lives. It changes on rename and placement.
func (j *Job) Path() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.path
}

func (j *Job) SetPath(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.path = path
	j.UpdatedAt = time.Now()
}

// RecordStrip records the outcome of cover page removal.
func (j *Job) RecordStrip(pagesIn, pagesOut int, coverRemoved bool, footers int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.PagesIn = pagesIn
	j.Progress.PagesOut = pagesOut
	j.Progress.CoverRemoved = coverRemoved
	j.Progress.FootersCut = footers
	j.UpdatedAt = time.Now()
}

func (j *Job) SetOCRApplied() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.OCRApplied = true
	j.UpdatedAt = time.Now()
}

func (j *Job) SetContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Source      string    `json:"source"`
	Path        string    `json:"path"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	p := j.Progress
	p.Errors = append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:          j.ID,
		Source:      j.Source,
		Path:        j.path,
		Status:      j.Status,
		Phase:       j.Phase,
		ContentHash: j.ContentHash,
		Progress:    p,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// FileHashHex computes SHA-256 of the file at path.
func FileHashHex(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
