// Package geometry classifies pages of a document by size so that a page
// whose media or crop box stands apart from the rest can be picked out.
package geometry

import (
	"math"

	"github.com/dgallion1/papershelf/internal/document"
)

// DefaultThreshold is the smallest width or height spread, in points, that
// counts as a real size difference between pages.
const DefaultThreshold = 20.0

// Size is a width/height pair.
type Size struct {
	Width  float64
	Height float64
}

// Discrepancy records the spread of one box kind across a document.
// Min and Max are reduced per axis: Min.Width and Min.Height may come from
// different pages.
type Discrepancy struct {
	Min         Size
	Max         Size
	WidthDelta  float64
	HeightDelta float64
}

// BoxKind selects which page box a computation looks at.
type BoxKind int

const (
	MediaBox BoxKind = iota
	CropBox
)

func (k BoxKind) String() string {
	switch k {
	case MediaBox:
		return "media"
	case CropBox:
		return "crop"
	default:
		return "unknown"
	}
}

func (k BoxKind) box(p document.Page) document.Rect {
	if k == CropBox {
		return p.CropBox
	}
	return p.MediaBox
}

// ComputeDiscrepancy returns the media and crop discrepancies for pages.
// Either is nil when every page is within threshold of every other page in
// both dimensions for that box kind. pages must not be empty.
func ComputeDiscrepancy(pages []document.Page, threshold float64) (media, crop *Discrepancy) {
	return compute(pages, MediaBox, threshold), compute(pages, CropBox, threshold)
}

func compute(pages []document.Page, kind BoxKind, threshold float64) *Discrepancy {
	if len(pages) == 0 {
		return nil
	}

	first := kind.box(pages[0])
	lo := Size{Width: first.Width(), Height: first.Height()}
	hi := lo
	for _, p := range pages[1:] {
		b := kind.box(p)
		lo.Width = math.Min(lo.Width, b.Width())
		lo.Height = math.Min(lo.Height, b.Height())
		hi.Width = math.Max(hi.Width, b.Width())
		hi.Height = math.Max(hi.Height, b.Height())
	}

	dw := math.Abs(hi.Width - lo.Width)
	dh := math.Abs(hi.Height - lo.Height)
	if dw < threshold && dh < threshold {
		return nil
	}
	return &Discrepancy{
		Min:         lo,
		Max:         hi,
		WidthDelta:  dw,
		HeightDelta: dh,
	}
}

// exceedsMidpoint reports whether a box of size w x h sits in the upper half
// of the discrepancy's range on either axis.
func (d *Discrepancy) exceedsMidpoint(w, h float64) bool {
	if d == nil {
		return false
	}
	return h-d.Min.Height > d.HeightDelta/2 || w-d.Min.Width > d.WidthDelta/2
}

// IsLarge reports whether page belongs to the large bucket. A nil
// discrepancy contributes no signal for its box kind.
func IsLarge(page document.Page, media, crop *Discrepancy) bool {
	if media.exceedsMidpoint(page.MediaBox.Width(), page.MediaBox.Height()) {
		return true
	}
	return crop.exceedsMidpoint(page.CropBox.Width(), page.CropBox.Height())
}

// Buckets is the large/small partition of a document's pages. Both slices
// keep the original page order.
type Buckets struct {
	Large []document.Page
	Small []document.Page

	Media *Discrepancy
	Crop  *Discrepancy
}

// Partition assigns every page to exactly one bucket, using discrepancies
// computed once over the whole set.
func Partition(pages []document.Page, threshold float64) Buckets {
	media, crop := ComputeDiscrepancy(pages, threshold)
	b := Buckets{Media: media, Crop: crop}
	for _, p := range pages {
		if IsLarge(p, media, crop) {
			b.Large = append(b.Large, p)
		} else {
			b.Small = append(b.Small, p)
		}
	}
	return b
}
