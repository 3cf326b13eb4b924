// Package layout defines the contract between the reader and a text layout
// engine, and provides a simple fixed-metrics implementation of it.
package layout

// Font is the default font handed to the engine.
type Font struct {
	Family    string
	PointSize int
}

// Size is a viewport size in pixels.
type Size struct {
	Width  int
	Height int
}

// Empty reports whether the size has zero area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Engine lays out one HTML document into fixed-size pages and exposes a
// vertical scroll offset over it.
//
// Changing the scroll offset, including as a side effect of a relayout,
// notifies every OnScroll observer synchronously.
type Engine interface {
	SetHTML(html string) error
	SetDefaultFont(f Font)
	SetPageSize(s Size)
	PageSize() Size
	PageCount() int
	ScrollOffset() int
	SetScrollOffset(offset int)
	OnScroll(fn func(offset int))
}
