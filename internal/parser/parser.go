package parser

import (
	"path/filepath"
	"strings"

	"github.com/dgallion1/papershelf/internal/document"
)

// Parser opens a file into a Document.
type Parser interface {
	Open(path string) (*document.Document, error)
}

// IsPDF reports whether filename has a .pdf extension.
func IsPDF(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
