package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"go.i3wm.org/i3/v4"
)

// windowManager is the slice of i3 IPC the viewer needs.
type windowManager interface {
	Workspaces() ([]i3.Workspace, error)
	FocusedWindowOn(output, title string) (bool, error)
	Command(cmd string) error
}

type i3IPC struct{}

func (i3IPC) Workspaces() ([]i3.Workspace, error) {
	return i3.GetWorkspaces()
}

func (i3IPC) FocusedWindowOn(output, title string) (bool, error) {
	tree, err := i3.GetTree()
	if err != nil {
		return false, err
	}
	out := tree.Root.FindChild(func(n *i3.Node) bool {
		return n.Type == i3.OutputNode && n.Name == output
	})
	if out == nil {
		return false, nil
	}
	win := out.FindChild(func(n *i3.Node) bool {
		return n.Name == title && n.Focused
	})
	return win != nil, nil
}

func (i3IPC) Command(cmd string) error {
	_, err := i3.RunCommand(cmd)
	return err
}

// I3 opens the viewer on another monitor when i3 has more than one output,
// waits for its window to take focus there, then returns focus to the
// workspace the user was on.
type I3 struct {
	exec    *Exec
	wm      windowManager
	poll    time.Duration
	timeout time.Duration
	log     *slog.Logger
}

func NewI3(command string, timeout time.Duration, log *slog.Logger) *I3 {
	return &I3{
		exec:    NewExec(command, log),
		wm:      i3IPC{},
		poll:    100 * time.Millisecond,
		timeout: timeout,
		log:     log,
	}
}

func (v *I3) Open(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	workspaces, err := v.wm.Workspaces()
	if err != nil {
		v.log.Warn("i3 unavailable, opening on current monitor", "error", err)
		return v.exec.Open(ctx, abs)
	}

	current, other, ok := pickWorkspaces(workspaces)
	if !ok {
		return v.exec.Open(ctx, abs)
	}

	if err := v.wm.Command(workspaceCmd(other.Name)); err != nil {
		return fmt.Errorf("switch to workspace %s: %w", other.Name, err)
	}
	defer func() {
		if err := v.wm.Command(workspaceCmd(current.Name)); err != nil {
			v.log.Warn("switch back failed", "workspace", current.Name, "error", err)
		}
	}()

	if err := v.exec.Open(ctx, abs); err != nil {
		return err
	}

	if err := v.waitForWindow(ctx, other.Output, abs); err != nil {
		v.log.Warn("viewer window not seen", "output", other.Output, "error", err)
		return nil
	}
	// Let i3 finish focusing before we move away.
	time.Sleep(v.poll)
	return nil
}

func (v *I3) Close(path string) error {
	return v.exec.Close(path)
}

func (v *I3) waitForWindow(ctx context.Context, output, title string) error {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	ticker := time.NewTicker(v.poll)
	defer ticker.Stop()
	for {
		ok, err := v.wm.FocusedWindowOn(output, title)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// pickWorkspaces returns the focused workspace and the visible workspace of
// another output. ok is false when there is only one output.
func pickWorkspaces(ws []i3.Workspace) (current, other i3.Workspace, ok bool) {
	var found bool
	for _, w := range ws {
		if w.Focused {
			current, found = w, true
			break
		}
	}
	if !found {
		return current, other, false
	}

	// Sorted so the choice is stable with three or more monitors.
	var candidates []i3.Workspace
	for _, w := range ws {
		if w.Visible && w.Output != current.Output {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return current, other, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Output < candidates[j].Output })
	return current, candidates[0], true
}

func workspaceCmd(name string) string {
	return fmt.Sprintf("workspace %q", name)
}
