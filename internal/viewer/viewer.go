// Package viewer shows a paper to the user while it is being renamed.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
)

// Viewer opens a file for the user and closes it again.
type Viewer interface {
	Open(ctx context.Context, path string) error
	Close(path string) error
}

// Noop does nothing. Used when renaming is skipped and in tests.
type Noop struct{}

func (Noop) Open(context.Context, string) error { return nil }
func (Noop) Close(string) error                 { return nil }

// Exec runs an external viewer as a child process.
type Exec struct {
	Command string

	log   *slog.Logger
	mu    sync.Mutex
	procs map[string]*exec.Cmd
}

func NewExec(command string, log *slog.Logger) *Exec {
	return &Exec{Command: command, log: log, procs: make(map[string]*exec.Cmd)}
}

// Open starts the viewer on path and returns without waiting for it.
func (e *Exec) Open(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	cmd := exec.Command(e.Command, abs)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", e.Command, err)
	}
	go cmd.Wait()

	e.mu.Lock()
	e.procs[abs] = cmd
	e.mu.Unlock()

	e.log.Debug("viewer started", "command", e.Command, "path", abs, "pid", cmd.Process.Pid)
	return nil
}

// Close kills the viewer started for path, if any.
func (e *Exec) Close(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	e.mu.Lock()
	cmd, ok := e.procs[abs]
	delete(e.procs, abs)
	e.mu.Unlock()

	if !ok || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop %s: %w", e.Command, err)
	}
	return nil
}
