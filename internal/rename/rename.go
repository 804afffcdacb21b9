// Package rename turns a paper's author and title into its file name.
package rename

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrTargetExists = errors.New("target file already exists")
	ErrEmptyName    = errors.New("author and title are both empty")
)

// Metadata prefills the prompts, usually from the PDF Info dictionary.
type Metadata struct {
	Author string
	Title  string
}

// Renamer asks the user for a paper's author and title.
type Renamer struct {
	prompter Prompter
	out      io.Writer
}

func NewRenamer(p Prompter, out io.Writer) *Renamer {
	return &Renamer{prompter: p, out: out}
}

// Ask prompts until the user confirms a non-empty name and returns the new
// file name (no directory).
func (r *Renamer) Ask(meta Metadata) (string, error) {
	author, title := meta.Author, meta.Title
	for {
		var err error
		author, err = r.prompter.Prompt("Enter Principal Author: ", author)
		if err != nil {
			return "", err
		}
		fmt.Fprintln(r.out, "A descriptive title is something one might look the paper up under.")
		fmt.Fprintln(r.out, "This is probably the subtitle.")
		title, err = r.prompter.Prompt("Enter descriptive title: ", title)
		if err != nil {
			return "", err
		}

		name := FileName(author, title)
		if name == "" {
			fmt.Fprintln(r.out, ErrEmptyName.Error())
			continue
		}

		yn, err := r.prompter.Prompt(fmt.Sprintf("Rename to %s. Continue? [Yn] ", name), "")
		if err != nil {
			return "", err
		}
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(yn)), "n") {
			return name, nil
		}
	}
}

// Apply renames path to name within the same directory and returns the new
// path. It never replaces an existing file.
func Apply(path, name string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	target := filepath.Join(filepath.Dir(path), name)
	if target == filepath.Clean(path) {
		return path, nil
	}
	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("%s: %w", target, ErrTargetExists)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", target, err)
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return target, nil
}
