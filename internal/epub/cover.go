package epub

import (
	"strings"
)

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	ManifestID      string
	Path            string // archive path
	MediaType       string
	DetectionMethod string // "properties", "meta", "guide", "filename"
}

// DetectCover detects the cover image using multiple methods.
// Methods are tried in priority order:
//  1. properties="cover-image"
//  2. meta name="cover" (EPUB 2.0)
//  3. guide type="cover" (matched to image manifest items)
//  4. filename pattern (basename contains "cover", case-insensitive, SVG excluded)
//
// Returns nil if no cover image is found or the book is closed.
func (b *Book) DetectCover() *CoverInfo {
	if !b.IsOpen() {
		return nil
	}
	opf := b.opf

	found := func(item ManifestItem, method string) *CoverInfo {
		return &CoverInfo{
			ManifestID:      item.ID,
			Path:            b.resolve(item.Href),
			MediaType:       item.MediaType,
			DetectionMethod: method,
		}
	}

	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		for _, prop := range item.Properties {
			if prop == "cover-image" && isImageMediaType(item.MediaType) {
				return found(item, "properties")
			}
		}
	}

	if opf.Metadata.CoverID != "" {
		if item, ok := opf.Manifest[opf.Metadata.CoverID]; ok && isImageMediaType(item.MediaType) {
			return found(item, "meta")
		}
	}

	for _, ref := range opf.Guide {
		if ref.Type != "cover" {
			continue
		}
		guidePath := b.resolve(ref.Href)
		for _, id := range opf.ManifestOrder {
			item := opf.Manifest[id]
			if isImageMediaType(item.MediaType) && b.resolve(item.Href) == guidePath {
				return found(item, "guide")
			}
		}
		// Guide points to a non-image → fall through to the filename rule
	}

	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		if !isImageMediaType(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(baseName(item.Href)), "cover") {
			return found(item, "filename")
		}
	}

	return nil
}

// CoverImagePath returns the archive path of the cover image, or "".
func (b *Book) CoverImagePath() string {
	if c := b.DetectCover(); c != nil {
		return c.Path
	}
	return ""
}

// isImageMediaType checks if a media type is a raster image (SVG excluded).
func isImageMediaType(mediaType string) bool {
	if mediaType == "image/svg+xml" {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}
