// Package coverpage finds a page injected in front of (or among) a paper's
// body pages by an aggregator, and rewrites the file without it.
package coverpage

import (
	"errors"
	"fmt"

	"github.com/dgallion1/papershelf/internal/document"
	"github.com/dgallion1/papershelf/internal/geometry"
)

// ErrAmbiguousPageSizes matches any *AmbiguousPageSizesError.
var ErrAmbiguousPageSizes = errors.New("ambiguous page sizes")

// AmbiguousPageSizesError is returned when both buckets hold two or more
// pages, so no single page can be named the cover.
type AmbiguousPageSizesError struct {
	Large int
	Small int
}

func (e *AmbiguousPageSizesError) Error() string {
	return fmt.Sprintf("unable to handle multiple page sizes: %d larger pages and %d smaller pages", e.Large, e.Small)
}

func (e *AmbiguousPageSizesError) Is(target error) bool {
	return target == ErrAmbiguousPageSizes
}

// Resolution is a found cover page and the pages to keep.
type Resolution struct {
	Cover   document.Page
	Content []document.Page
	Buckets geometry.Buckets
}

// Resolver decides which page, if any, is a cover page.
type Resolver struct {
	Threshold float64
}

func NewResolver(threshold float64) *Resolver {
	if threshold <= 0 {
		threshold = geometry.DefaultThreshold
	}
	return &Resolver{Threshold: threshold}
}

// FindCoverPage partitions doc's pages into large and small buckets and
// picks the singleton bucket as the cover. It returns nil, nil when there is
// no cover page and the whole document should be kept.
func (r *Resolver) FindCoverPage(doc *document.Document) (*Resolution, error) {
	if doc.PageCount() == 0 {
		return nil, fmt.Errorf("document %s has no pages", doc.Path)
	}

	b := geometry.Partition(doc.Pages, r.Threshold)

	var res *Resolution
	switch {
	case len(b.Large) == 1:
		res = &Resolution{Cover: b.Large[0], Content: b.Small, Buckets: b}
	case len(b.Small) == 1:
		res = &Resolution{Cover: b.Small[0], Content: b.Large, Buckets: b}
	case len(b.Large) > 0 && len(b.Small) > 0:
		return nil, &AmbiguousPageSizesError{Large: len(b.Large), Small: len(b.Small)}
	default:
		return nil, nil
	}

	// A single-page document lands here with the page as the sole small one.
	if len(res.Content) == 0 {
		return nil, nil
	}
	return res, nil
}
