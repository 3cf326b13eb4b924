package epub

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Content represents a parsed XHTML content file
type Content struct {
	ID        string            // Manifest ID
	Path      string            // Archive path
	Document  *goquery.Document // Parsed HTML document
	CSSLinks  []string          // Referenced CSS archive paths
	ImageRefs []string          // Referenced image archive paths
}

// ContentByID returns the raw bytes of the manifest item id.
// Binary resources such as images must be fetched this way.
func (b *Book) ContentByID(id string) ([]byte, error) {
	b.lastErr = ""
	if !b.IsOpen() {
		return nil, b.fail(ErrNotOpen)
	}

	item, ok := b.opf.Manifest[id]
	if !ok {
		return nil, b.fail(fmt.Errorf("%w: %q", ErrContentNotFound, id))
	}

	data, err := b.ReadFile(b.resolve(item.Href))
	if err != nil {
		return nil, b.fail(fmt.Errorf("content item %q: %w", id, err))
	}
	return data, nil
}

// TextByID returns the manifest item id decoded as UTF-8 text.
func (b *Book) TextByID(id string) (string, error) {
	data, err := b.ContentByID(id)
	if err != nil {
		return "", err
	}
	return decodeText(data), nil
}

// LoadContent loads and parses the XHTML content document id.
// Stylesheet and image references are resolved to archive paths.
func (b *Book) LoadContent(id string) (*Content, error) {
	data, err := b.ContentByID(id)
	if err != nil {
		return nil, err
	}
	return ParseContent(id, b.resolve(b.opf.Manifest[id].Href), data)
}

// ParseContent parses XHTML content located at the archive path p.
func ParseContent(id, p string, content []byte) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XHTML: %w", err)
	}

	c := &Content{
		ID:        id,
		Path:      p,
		Document:  doc,
		CSSLinks:  []string{},
		ImageRefs: []string{},
	}

	baseDir := dirOf(p)

	doc.Find("link[rel='stylesheet']").Each(func(i int, s *goquery.Selection) {
		if href, exists := s.Attr("href"); exists {
			c.CSSLinks = append(c.CSSLinks, archivePath(baseDir, href))
		}
	})

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		if src, exists := s.Attr("src"); exists {
			c.ImageRefs = append(c.ImageRefs, archivePath(baseDir, src))
		}
	})

	return c, nil
}

// resolve maps a manifest href to its archive path.
func (b *Book) resolve(href string) string {
	return archivePath(b.opfDir, href)
}
