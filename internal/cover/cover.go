// Package cover extracts the cover image of a book and renders thumbnails.
package cover

import (
	"errors"
	"fmt"

	"github.com/yuanying/epubreader/internal/epub"
)

// ErrNoCover is returned when a book declares no usable cover image.
var ErrNoCover = errors.New("no cover image")

// Cover is the raw cover image of a book.
type Cover struct {
	Path            string
	MediaType       string
	DetectionMethod string
	Data            []byte
}

// Extract reads the cover image of an open book.
func Extract(book *epub.Book) (*Cover, error) {
	if !book.IsOpen() {
		return nil, epub.ErrNotOpen
	}
	info := book.DetectCover()
	if info == nil {
		return nil, ErrNoCover
	}

	data, err := book.ReadFile(info.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cover %s: %w", info.Path, err)
	}

	return &Cover{
		Path:            info.Path,
		MediaType:       info.MediaType,
		DetectionMethod: info.DetectionMethod,
		Data:            data,
	}, nil
}
