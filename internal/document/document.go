package document

import "fmt"

// Document is an opened PDF: its metadata and every page in file order.
type Document struct {
	Path   string // File the document was read from
	Title  string // Info dictionary title (may be empty)
	Author string // Info dictionary author (may be empty)
	Pages  []Page
}

// Page is a single page's geometry and best-effort text.
type Page struct {
	Number   int  // 1-based position in the source file
	MediaBox Rect // Physical sheet
	CropBox  Rect // Visible region; equals MediaBox when the file declares none
	Text     string
}

// Rect is an axis-aligned box in PDF user space units (1/72 inch).
type Rect struct {
	LLX, LLY float64 // Lower-left corner
	URX, URY float64 // Upper-right corner
}

func (r Rect) Width() float64 {
	if r.URX < r.LLX {
		return r.LLX - r.URX
	}
	return r.URX - r.LLX
}

func (r Rect) Height() float64 {
	if r.URY < r.LLY {
		return r.LLY - r.URY
	}
	return r.URY - r.LLY
}

// Translate moves the lower-left corner by (dx, dy), leaving the upper-right corner fixed.
func (r Rect) Translate(dx, dy float64) Rect {
	r.LLX += dx
	r.LLY += dy
	return r
}

// Empty reports whether r's lower-left corner is not strictly below and to
// the left of its upper-right corner.
func (r Rect) Empty() bool {
	return r.URX <= r.LLX || r.URY <= r.LLY
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f %.2f]", r.LLX, r.LLY, r.URX, r.URY)
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// PageNumbers returns the 1-based numbers of pages, in order.
func PageNumbers(pages []Page) []int {
	nums := make([]int, len(pages))
	for i, p := range pages {
		nums[i] = p.Number
	}
	return nums
}
