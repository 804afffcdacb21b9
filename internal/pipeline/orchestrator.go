package pipeline

import (
	"context"
	"log/slog"
)

// Orchestrator runs papers through a Worker one at a time. Renaming is
// interactive, so papers are never processed concurrently.
type Orchestrator struct {
	jobs   *JobStore
	worker *Worker
	log    *slog.Logger
}

func NewOrchestrator(w *Worker, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:   NewJobStore(),
		worker: w,
		log:    log,
	}
}

// Run processes every path in order and returns the final state of each job.
// A failed paper does not stop the others. Once ctx is done the remaining
// papers are marked failed without being touched.
func (o *Orchestrator) Run(ctx context.Context, paths []string) []JobSnapshot {
	for _, p := range paths {
		o.jobs.Put(NewJob(p))
	}

	for _, job := range o.jobs.All() {
		if err := ctx.Err(); err != nil {
			job.AddError(err.Error())
			job.SetStatus(StatusFailed, "queued")
			continue
		}
		o.log.Info("processing paper", "job_id", job.ID, "path", job.Path())
		o.worker.Process(ctx, job)
	}

	snaps := make([]JobSnapshot, 0, len(paths))
	for _, job := range o.jobs.All() {
		snaps = append(snaps, job.Snapshot())
	}
	return snaps
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// Failed counts failed jobs in snaps.
func Failed(snaps []JobSnapshot) int {
	n := 0
	for _, s := range snaps {
		if s.Status == StatusFailed {
			n++
		}
	}
	return n
}
