package reader

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"slices"

	"github.com/yuanying/epubreader/internal/epub"
	"github.com/yuanying/epubreader/internal/eventloop"
	"github.com/yuanying/epubreader/internal/layout"
	"github.com/yuanying/epubreader/internal/progress"
)

var (
	// ErrNoChapter is returned when an operation needs a loaded chapter.
	ErrNoChapter = errors.New("no chapter is loaded")

	// ErrBookmarkIndex is returned for a bookmark index out of range.
	ErrBookmarkIndex = errors.New("bookmark index out of range")
)

// Persistence saves reading positions and bookmarks per book.
// *progress.Store satisfies it.
type Persistence interface {
	SaveRecord(ctx context.Context, bookPath string, r progress.Record) error
	LoadRecord(ctx context.Context, bookPath string) (progress.Record, error)
	SaveBookmarks(ctx context.Context, bookPath string, bookmarks []progress.Bookmark) error
	LoadBookmarks(ctx context.Context, bookPath string) ([]progress.Bookmark, error)
}

// Session owns the open book, its pager and its bookmarks. Steps that must
// wait for the current layout pass are posted to the event loop and drop
// themselves when the book or chapter they were posted for is gone.
//
// Session is not safe for concurrent use.
type Session struct {
	book      *epub.Book
	pager     *Pager
	loop      *eventloop.Loop
	store     Persistence
	bookmarks []progress.Bookmark

	// generation changes on every open and close.
	generation int
}

// NewSession creates a session without a book. store may be nil, in which
// case nothing is persisted.
func NewSession(engine layout.Engine, view View, loop *eventloop.Loop, store Persistence) *Session {
	if loop == nil {
		loop = eventloop.New()
	}
	return &Session{
		book:  &epub.Book{},
		pager: NewPager(engine, view),
		loop:  loop,
		store: store,
	}
}

// Book returns the archive session.
func (s *Session) Book() *epub.Book { return s.book }

// Pager returns the pagination controller.
func (s *Session) Pager() *Pager { return s.pager }

// Loop returns the event loop deferred steps are posted to.
func (s *Session) Loop() *eventloop.Loop { return s.loop }

// OpenBook closes the current book and opens path. The font is applied and
// the saved position, or else the first linear chapter, is loaded on the
// next loop iteration.
func (s *Session) OpenBook(ctx context.Context, path string) error {
	s.CloseBook(ctx)

	if err := s.book.Open(path); err != nil {
		return err
	}
	s.generation++
	s.pager.SetSource(s.book)

	bookmarks, err := s.loadBookmarks(ctx)
	if err != nil {
		log.Printf("warning: bookmarks of %s not loaded: %v", path, err)
	}
	s.bookmarks = bookmarks

	record, hasRecord := s.loadRecord(ctx)

	gen := s.generation
	s.loop.Post(func() {
		if gen != s.generation || s.pager.ChapterID() != "" {
			return
		}
		s.pager.ApplyFont()

		if hasRecord {
			if _, ok := s.book.ManifestItem(record.ChapterID); ok {
				_ = s.jumpTo(record.ChapterID, record.Page)
				return
			}
			log.Printf("warning: saved chapter %q not in %s", record.ChapterID, path)
		}
		if first := s.book.LinearSpine(); len(first) > 0 {
			_ = s.pager.LoadChapter(first[0])
		}
	})
	return nil
}

// CloseBook saves the reading position and closes the book. Pending
// deferred steps for the book become no-ops.
func (s *Session) CloseBook(ctx context.Context) {
	if !s.book.IsOpen() {
		return
	}
	s.saveRecord(ctx)

	path := s.book.Path()
	if err := s.book.Close(); err != nil {
		log.Printf("warning: failed to close %s: %v", path, err)
	}
	s.pager.Reset()
	s.bookmarks = nil
	s.generation++
}

// LoadChapter loads chapter id of the open book.
func (s *Session) LoadChapter(id string) error {
	return s.pager.LoadChapter(id)
}

// Position returns the current reading position.
func (s *Session) Position() (progress.Record, bool) {
	id := s.pager.ChapterID()
	if id == "" {
		return progress.Record{}, false
	}
	return progress.Record{
		ChapterID:    id,
		ChapterTitle: s.book.ChapterTitle(id),
		Page:         s.pager.CurrentPage(),
	}, true
}

// AddBookmark bookmarks the current page and persists the list.
func (s *Session) AddBookmark(ctx context.Context) (progress.Bookmark, error) {
	pos, ok := s.Position()
	if !ok {
		return progress.Bookmark{}, ErrNoChapter
	}
	b := progress.Bookmark(pos)
	s.bookmarks = append(s.bookmarks, b)
	s.saveBookmarks(ctx)
	return b, nil
}

// Bookmarks returns the bookmarks ordered by spine position, then page.
func (s *Session) Bookmarks() []progress.Bookmark {
	order := make(map[string]int)
	for i, item := range s.book.Spine() {
		if _, ok := order[item.IDRef]; !ok {
			order[item.IDRef] = i
		}
	}
	position := func(id string) int {
		if i, ok := order[id]; ok {
			return i
		}
		return len(order)
	}

	sorted := slices.Clone(s.bookmarks)
	slices.SortStableFunc(sorted, func(a, b progress.Bookmark) int {
		return cmp.Or(
			cmp.Compare(position(a.ChapterID), position(b.ChapterID)),
			cmp.Compare(a.Page, b.Page),
		)
	})
	return sorted
}

// SelectBookmark loads the chapter of bookmark i (as ordered by Bookmarks)
// and jumps to its page on the next loop iteration.
func (s *Session) SelectBookmark(i int) error {
	b, err := s.bookmarkAt(i)
	if err != nil {
		return err
	}
	return s.jumpTo(b.ChapterID, b.Page)
}

// RemoveBookmark deletes bookmark i (as ordered by Bookmarks) and persists
// the list.
func (s *Session) RemoveBookmark(ctx context.Context, i int) error {
	b, err := s.bookmarkAt(i)
	if err != nil {
		return err
	}
	if j := slices.Index(s.bookmarks, b); j >= 0 {
		s.bookmarks = slices.Delete(s.bookmarks, j, j+1)
	}
	s.saveBookmarks(ctx)
	return nil
}

func (s *Session) bookmarkAt(i int) (progress.Bookmark, error) {
	sorted := s.Bookmarks()
	if i < 0 || i >= len(sorted) {
		return progress.Bookmark{}, fmt.Errorf("%w: %d", ErrBookmarkIndex, i)
	}
	return sorted[i], nil
}

// jumpTo loads chapter id now and moves to page once that load is done.
func (s *Session) jumpTo(id string, page int) error {
	if err := s.pager.LoadChapter(id); err != nil {
		return err
	}
	gen := s.generation
	s.loop.Post(func() {
		if gen != s.generation || s.pager.ChapterID() != id {
			return
		}
		s.pager.GoToPage(page)
	})
	return nil
}

func (s *Session) loadBookmarks(ctx context.Context) ([]progress.Bookmark, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.LoadBookmarks(ctx, s.book.Path())
}

func (s *Session) loadRecord(ctx context.Context) (progress.Record, bool) {
	if s.store == nil {
		return progress.Record{}, false
	}
	r, err := s.store.LoadRecord(ctx, s.book.Path())
	if err != nil {
		if !errors.Is(err, progress.ErrNoRecord) {
			log.Printf("warning: reading record of %s not loaded: %v", s.book.Path(), err)
		}
		return progress.Record{}, false
	}
	return r, true
}

func (s *Session) saveRecord(ctx context.Context) {
	pos, ok := s.Position()
	if !ok || s.store == nil {
		return
	}
	if err := s.store.SaveRecord(ctx, s.book.Path(), pos); err != nil {
		log.Printf("warning: reading record of %s not saved: %v", s.book.Path(), err)
	}
}

func (s *Session) saveBookmarks(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveBookmarks(ctx, s.book.Path(), s.bookmarks); err != nil {
		log.Printf("warning: bookmarks of %s not saved: %v", s.book.Path(), err)
	}
}
