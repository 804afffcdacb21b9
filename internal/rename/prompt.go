package rename

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("prompt aborted")

// Prompter asks the user for a line of text.
type Prompter interface {
	// Prompt shows label and returns the edited line, starting from prefill.
	Prompt(label, prefill string) (string, error)
}

// ReadlinePrompter prompts on the terminal with an editable default.
type ReadlinePrompter struct {
	rl *readline.Instance
}

func NewReadlinePrompter() (*ReadlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}
	return &ReadlinePrompter{rl: rl}, nil
}

func (p *ReadlinePrompter) Prompt(label, prefill string) (string, error) {
	p.rl.SetPrompt(label)
	line, err := p.rl.ReadlineWithDefault(prefill)
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrAborted
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Close restores the terminal.
func (p *ReadlinePrompter) Close() error {
	return p.rl.Close()
}
