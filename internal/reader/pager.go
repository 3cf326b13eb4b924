// Package reader keeps the page counter, scroll offset and page slider of
// the open chapter in sync, and drives chapter transitions.
package reader

import (
	"errors"
	"fmt"
	"html"
	"log"
	"math"
	"slices"

	"github.com/yuanying/epubreader/internal/layout"
)

const (
	// DefaultFontSize is the initial font size in points.
	DefaultFontSize = 13
	// MinFontSize is the smallest font size the pager accepts.
	MinFontSize = 6
)

// ErrNoBook is returned when a chapter is requested without an open book.
var ErrNoBook = errors.New("no book is open")

// ChapterSource serves chapter text by manifest id. *epub.Book satisfies it.
type ChapterSource interface {
	IsOpen() bool
	TextByID(id string) (string, error)
	LinearSpine() []string
}

// View receives the state the pager wants displayed. Implementations may
// call back into the pager synchronously, e.g. a slider reporting its new
// value through SliderChanged.
type View interface {
	SetPageRange(total int)
	SetSliderValue(page int)
	SetPageLabel(current, total int)
	SetChapterNav(hasPrevious, hasNext bool)
}

type nopView struct{}

func (nopView) SetPageRange(int)         {}
func (nopView) SetSliderValue(int)       {}
func (nopView) SetPageLabel(int, int)    {}
func (nopView) SetChapterNav(bool, bool) {}

// Pager maps the loaded chapter onto pages of the engine's viewport.
//
// Every write the pager makes to the scroll offset or slider runs with
// adjusting set, so the observers ignore their own echo.
//
// Pager is not safe for concurrent use.
type Pager struct {
	source ChapterSource
	engine layout.Engine
	view   View
	font   layout.Font

	chapterID   string
	spineOrder  []string
	spineIndex  int
	currentPage int
	totalPage   int
	adjusting   bool
}

// NewPager creates an unloaded pager and subscribes it to engine scrolls.
func NewPager(engine layout.Engine, view View) *Pager {
	if view == nil {
		view = nopView{}
	}
	p := &Pager{
		engine:      engine,
		view:        view,
		font:        layout.Font{PointSize: DefaultFontSize},
		spineIndex:  -1,
		currentPage: 1,
		totalPage:   1,
	}
	engine.OnScroll(p.ScrollChanged)
	return p
}

// SetSource sets the book chapters are loaded from.
func (p *Pager) SetSource(src ChapterSource) {
	p.source = src
}

// ChapterID returns the loaded chapter, or "" when unloaded.
func (p *Pager) ChapterID() string { return p.chapterID }

// CurrentPage returns the 1-based current page.
func (p *Pager) CurrentPage() int { return p.currentPage }

// TotalPage returns the page count of the loaded chapter, at least 1.
func (p *Pager) TotalPage() int { return p.totalPage }

// SpineIndex returns the position of the chapter in the linear spine, or -1.
func (p *Pager) SpineIndex() int { return p.spineIndex }

// Font returns the default font handed to the engine.
func (p *Pager) Font() layout.Font { return p.font }

// HasPreviousChapter reports whether a linear chapter precedes this one.
func (p *Pager) HasPreviousChapter() bool {
	return p.spineIndex > 0
}

// HasNextChapter reports whether a linear chapter follows this one.
func (p *Pager) HasNextChapter() bool {
	return p.spineIndex >= 0 && p.spineIndex < len(p.spineOrder)-1
}

// LoadChapter hands chapter id to the engine and shows its first page.
//
// When the book is closed or the chapter cannot be read, an error message is
// shown as the chapter body instead, the chapter id is cleared and the error
// is returned.
func (p *Pager) LoadChapter(id string) error {
	if p.source == nil || !p.source.IsOpen() {
		p.spineOrder, p.spineIndex = nil, -1
		return p.loadFailed(id, ErrNoBook)
	}

	p.spineOrder = p.source.LinearSpine()
	p.spineIndex = slices.Index(p.spineOrder, id)

	text, err := p.source.TextByID(id)
	if err != nil {
		return p.loadFailed(id, err)
	}

	p.chapterID = id
	p.setContent(text)
	p.UpdatePagination()
	p.GoToPage(1)
	p.refreshChapterNav()
	return nil
}

func (p *Pager) loadFailed(id string, cause error) error {
	err := fmt.Errorf("failed to load chapter %q: %w", id, cause)
	log.Printf("warning: %v", err)

	p.chapterID = ""
	p.setContent(errorPage(err))
	p.UpdatePagination()
	p.GoToPage(1)
	p.refreshChapterNav()
	return err
}

func (p *Pager) setContent(text string) {
	p.guard(func() {
		if err := p.engine.SetHTML(text); err != nil {
			log.Printf("warning: %v", err)
		}
		p.engine.SetDefaultFont(p.font)
	})
}

func errorPage(err error) string {
	return "<html><body><p>" + html.EscapeString(err.Error()) + "</p></body></html>"
}

// UpdatePagination recomputes the page count for the current viewport and
// font, clamps the current page and pushes both to the view.
func (p *Pager) UpdatePagination() {
	total := 1
	if !p.engine.PageSize().Empty() {
		total = max(1, p.engine.PageCount())
	}
	p.totalPage = total
	p.currentPage = clampPage(p.currentPage, total)

	p.guard(func() {
		p.view.SetPageRange(total)
		p.view.SetSliderValue(p.currentPage)
	})
	p.view.SetPageLabel(p.currentPage, total)
}

// GoToPage scrolls to page n, clamped into [1, TotalPage].
func (p *Pager) GoToPage(n int) {
	page := clampPage(n, p.totalPage)
	p.currentPage = page
	offset := (page - 1) * max(p.engine.PageSize().Height, 0)

	p.guard(func() {
		p.engine.SetScrollOffset(offset)
		p.view.SetSliderValue(page)
	})
	p.view.SetPageLabel(page, p.totalPage)
}

// ScrollChanged follows an externally driven scroll to the nearest page.
func (p *Pager) ScrollChanged(offset int) {
	if p.adjusting {
		return
	}
	height := p.engine.PageSize().Height
	if height <= 0 {
		return
	}

	page := clampPage(int(math.Round(float64(offset)/float64(height)))+1, p.totalPage)
	if page == p.currentPage {
		return
	}
	p.currentPage = page
	p.guard(func() {
		p.view.SetSliderValue(page)
	})
	p.view.SetPageLabel(page, p.totalPage)
}

// SliderChanged follows the user dragging the page slider.
func (p *Pager) SliderChanged(value int) {
	if p.adjusting || value == p.currentPage {
		return
	}
	p.GoToPage(value)
}

// NextPage moves one page forward. It reports false on the last page.
func (p *Pager) NextPage() bool {
	if p.currentPage >= p.totalPage {
		return false
	}
	p.GoToPage(p.currentPage + 1)
	return true
}

// PreviousPage moves one page back. It reports false on the first page.
func (p *Pager) PreviousPage() bool {
	if p.currentPage <= 1 {
		return false
	}
	p.GoToPage(p.currentPage - 1)
	return true
}

// NextChapter loads the following linear chapter. It reports false when
// there is none; a failed load still reports true.
func (p *Pager) NextChapter() bool {
	if !p.HasNextChapter() {
		return false
	}
	_ = p.LoadChapter(p.spineOrder[p.spineIndex+1])
	return true
}

// PreviousChapter loads the preceding linear chapter. It reports false when
// there is none; a failed load still reports true.
func (p *Pager) PreviousChapter() bool {
	if !p.HasPreviousChapter() {
		return false
	}
	_ = p.LoadChapter(p.spineOrder[p.spineIndex-1])
	return true
}

// SetFont changes the default font and repaginates, keeping the current page
// when it still exists.
func (p *Pager) SetFont(f layout.Font) {
	f.PointSize = max(f.PointSize, MinFontSize)
	p.font = f
	p.ApplyFont()
}

// SetFontSize changes the font size in points, never below MinFontSize.
func (p *Pager) SetFontSize(pt int) {
	f := p.font
	f.PointSize = pt
	p.SetFont(f)
}

// AdjustFontSize grows or shrinks the font by delta points.
func (p *Pager) AdjustFontSize(delta int) {
	p.SetFontSize(p.font.PointSize + delta)
}

// ApplyFont pushes the current font to the engine and repaginates.
func (p *Pager) ApplyFont() {
	p.guard(func() {
		p.engine.SetDefaultFont(p.font)
	})
	p.UpdatePagination()
	p.GoToPage(p.currentPage)
}

// SetViewport resizes the page and repaginates.
func (p *Pager) SetViewport(size layout.Size) {
	p.guard(func() {
		p.engine.SetPageSize(size)
	})
	p.UpdatePagination()
	p.GoToPage(p.currentPage)
}

// Reset returns the pager to the unloaded state.
func (p *Pager) Reset() {
	p.source = nil
	p.chapterID = ""
	p.spineOrder = nil
	p.spineIndex = -1
	p.currentPage = 1
	p.setContent("")
	p.UpdatePagination()
	p.GoToPage(1)
	p.refreshChapterNav()
}

func (p *Pager) refreshChapterNav() {
	p.view.SetChapterNav(p.HasPreviousChapter(), p.HasNextChapter())
}

// guard runs fn with adjusting set, restoring the previous value after.
func (p *Pager) guard(fn func()) {
	prev := p.adjusting
	p.adjusting = true
	defer func() { p.adjusting = prev }()
	fn()
}

func clampPage(n, total int) int {
	return max(1, min(n, total))
}
