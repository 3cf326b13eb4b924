// Package library maps books to the categories they are shelved under.
package library

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/yuanying/epubreader/internal/config"
)

// ErrUncategorized is returned for books that belong to no category.
var ErrUncategorized = errors.New("book has no category")

// Category is a named group of books stored under one directory.
type Category struct {
	Name  string
	Dir   string
	Books []string
}

// Shelf holds the categories in priority order.
type Shelf struct {
	categories []Category
}

// NewShelf creates an empty shelf.
func NewShelf() *Shelf {
	return &Shelf{}
}

// FromConfig builds a shelf from the library section of the configuration.
// Categories named in Order come first; the rest follow sorted by name.
// A category without a directory is stored under its name.
func FromConfig(cfg config.LibraryConfig) *Shelf {
	s := NewShelf()
	seen := make(map[string]bool)

	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		c := cfg.Categories[name]
		s.Create(name, c.Dir)
		for _, book := range c.Books {
			s.Add(book, name)
		}
	}

	for _, name := range cfg.Order {
		add(name)
	}
	rest := make([]string, 0, len(cfg.Categories))
	for name := range cfg.Categories {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	for _, name := range rest {
		add(name)
	}
	return s
}

// Create adds an empty category. Existing categories are left unchanged.
func (s *Shelf) Create(name, dir string) bool {
	if name == "" || s.find(name) != nil {
		return false
	}
	if dir == "" {
		dir = name
	}
	s.categories = append(s.categories, Category{Name: name, Dir: dir})
	return true
}

// Add puts book into the named category.
func (s *Shelf) Add(book, category string) error {
	c := s.find(category)
	if c == nil {
		return fmt.Errorf("unknown category %q", category)
	}
	book = filepath.Clean(book)
	for _, b := range c.Books {
		if b == book {
			return nil
		}
	}
	c.Books = append(c.Books, book)
	return nil
}

// All returns a copy of the categories in priority order.
func (s *Shelf) All() []Category {
	all := make([]Category, len(s.categories))
	for i, c := range s.categories {
		c.Books = append([]string(nil), c.Books...)
		all[i] = c
	}
	return all
}

// Categories returns the categories holding book, in priority order.
func (s *Shelf) Categories(book string) []string {
	book = filepath.Clean(book)
	var names []string
	for _, c := range s.categories {
		for _, b := range c.Books {
			if b == book {
				names = append(names, c.Name)
				break
			}
		}
	}
	return names
}

// Books returns the books of the named category.
func (s *Shelf) Books(category string) []string {
	if c := s.find(category); c != nil {
		return append([]string(nil), c.Books...)
	}
	return nil
}

// CategoryDir returns the directory of the first category holding book.
func (s *Shelf) CategoryDir(book string) (string, error) {
	names := s.Categories(book)
	if len(names) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUncategorized, book)
	}
	return s.find(names[0]).Dir, nil
}

func (s *Shelf) find(name string) *Category {
	for i := range s.categories {
		if s.categories[i].Name == name {
			return &s.categories[i]
		}
	}
	return nil
}
