// Package progress persists reading positions and bookmarks in the
// newline-separated record format shared with earlier reader versions.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/yuanying/epubreader/internal/storage"
)

const (
	recordFile   = "record"
	bookmarkFile = "bookmarkmessage"
)

var (
	// ErrNoRecord is returned when a book has no saved position.
	ErrNoRecord = errors.New("no reading record")

	// ErrMalformedRecord is returned when a saved position cannot be parsed.
	ErrMalformedRecord = errors.New("malformed reading record")
)

// Bookmark is a saved position inside a chapter.
type Bookmark struct {
	ChapterID    string `yaml:"chapter_id"`
	ChapterTitle string `yaml:"chapter_title"`
	Page         int    `yaml:"page"`
}

// Record is the last reading position of a book.
type Record Bookmark

// Locator resolves the category directory a book is stored under.
type Locator interface {
	CategoryDir(bookPath string) (string, error)
}

// Store reads and writes records and bookmarks through a storage adapter.
type Store struct {
	adapter storage.Adapter
	shelf   Locator
}

// NewStore creates a store.
func NewStore(adapter storage.Adapter, shelf Locator) *Store {
	return &Store{adapter: adapter, shelf: shelf}
}

// SaveRecord stores the reading position of bookPath.
func (s *Store) SaveRecord(ctx context.Context, bookPath string, r Record) error {
	p, err := s.path(bookPath, recordFile)
	if err != nil {
		return err
	}
	return s.put(ctx, p, encode([]Bookmark{Bookmark(r)}))
}

// LoadRecord returns the reading position of bookPath.
func (s *Store) LoadRecord(ctx context.Context, bookPath string) (Record, error) {
	p, err := s.path(bookPath, recordFile)
	if err != nil {
		return Record{}, err
	}
	data, err := storage.ReadAll(ctx, s.adapter, p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Record{}, fmt.Errorf("%w: %s", ErrNoRecord, p)
		}
		return Record{}, fmt.Errorf("failed to read record: %w", err)
	}

	entries := splitEntries(string(data))
	if len(entries) == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNoRecord, p)
	}
	b, err := parseEntry(entries[0])
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, p, err)
	}
	return Record(b), nil
}

// SaveBookmarks replaces the bookmark list of bookPath.
func (s *Store) SaveBookmarks(ctx context.Context, bookPath string, bookmarks []Bookmark) error {
	p, err := s.path(bookPath, bookmarkFile)
	if err != nil {
		return err
	}
	if len(bookmarks) == 0 {
		if err := s.adapter.Delete(ctx, p); err != nil {
			return fmt.Errorf("failed to delete %s: %w", p, err)
		}
		return nil
	}
	return s.put(ctx, p, encode(bookmarks))
}

// Forget removes the reading record and bookmarks of bookPath. It reports
// whether anything was stored.
func (s *Store) Forget(ctx context.Context, bookPath string) (bool, error) {
	found := false
	for _, name := range []string{recordFile, bookmarkFile} {
		p, err := s.path(bookPath, name)
		if err != nil {
			return false, err
		}
		ok, err := s.adapter.Exists(ctx, p)
		if err != nil {
			return found, fmt.Errorf("failed to check %s: %w", p, err)
		}
		if !ok {
			continue
		}
		if err := s.adapter.Delete(ctx, p); err != nil {
			return found, fmt.Errorf("failed to delete %s: %w", p, err)
		}
		found = true
	}
	return found, nil
}

// SavedBooks returns the base names of books with a record or bookmarks
// under the category directory dir, sorted.
func (s *Store) SavedBooks(ctx context.Context, dir string) ([]string, error) {
	prefix := path.Clean(filepath.ToSlash(dir)) + "/"
	paths, err := s.adapter.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	var names []string
	for _, p := range paths {
		book, file, ok := strings.Cut(strings.TrimPrefix(p, prefix), "/")
		if !ok || (file != recordFile && file != bookmarkFile) {
			continue
		}
		names = append(names, book)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// LoadBookmarks returns the bookmarks of bookPath in insertion order.
// A missing list is empty. Entries with an unreadable page are skipped.
func (s *Store) LoadBookmarks(ctx context.Context, bookPath string) ([]Bookmark, error) {
	p, err := s.path(bookPath, bookmarkFile)
	if err != nil {
		return nil, err
	}
	data, err := storage.ReadAll(ctx, s.adapter, p)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}

	var bookmarks []Bookmark
	for _, e := range splitEntries(string(data)) {
		b, err := parseEntry(e)
		if err != nil {
			log.Printf("warning: skipping bookmark in %s: %v", p, err)
			continue
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, nil
}

// path returns <category-dir>/<book-base-name>/<name>.
func (s *Store) path(bookPath, name string) (string, error) {
	if s.shelf == nil {
		return "", fmt.Errorf("no library configured for %s", bookPath)
	}
	dir, err := s.shelf.CategoryDir(bookPath)
	if err != nil {
		return "", err
	}
	return path.Join(filepath.ToSlash(dir), BookBaseName(bookPath), name), nil
}

func (s *Store) put(ctx context.Context, p string, data string) error {
	if err := s.adapter.Put(ctx, p, strings.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

// BookBaseName returns the file name of bookPath without its extension.
func BookBaseName(bookPath string) string {
	base := filepath.Base(bookPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// encode writes each bookmark as three lines: id, title and page.
func encode(bookmarks []Bookmark) string {
	var sb strings.Builder
	for _, b := range bookmarks {
		sb.WriteString(oneLine(b.ChapterID))
		sb.WriteByte('\n')
		sb.WriteString(oneLine(b.ChapterTitle))
		sb.WriteByte('\n')
		sb.WriteString(strconv.Itoa(b.Page))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// splitEntries groups lines into triples, dropping a truncated last one.
func splitEntries(data string) [][3]string {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.TrimSuffix(data, "\n")
	if data == "" {
		return nil
	}
	lines := strings.Split(data, "\n")

	entries := make([][3]string, 0, len(lines)/3)
	for i := 0; i+3 <= len(lines); i += 3 {
		entries = append(entries, [3]string{lines[i], lines[i+1], lines[i+2]})
	}
	return entries
}

func parseEntry(e [3]string) (Bookmark, error) {
	page, err := strconv.Atoi(strings.TrimSpace(e[2]))
	if err != nil {
		return Bookmark{}, fmt.Errorf("invalid page %q", e[2])
	}
	if page < 1 {
		page = 1
	}
	return Bookmark{ChapterID: e[0], ChapterTitle: e[1], Page: page}, nil
}
