package epub

import (
	"path/filepath"
	"strings"
)

// Metadata returns the parsed OPF metadata.
func (b *Book) Metadata() Metadata {
	if b.opf == nil {
		return Metadata{}
	}
	return b.opf.Metadata
}

// Title returns dc:title, falling back to the EPUB file name without extension.
func (b *Book) Title() string {
	if t := strings.TrimSpace(b.Metadata().Title()); t != "" {
		return t
	}
	base := filepath.Base(b.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Spine returns the reading order as declared in the OPF.
func (b *Book) Spine() []SpineItem {
	if b.opf == nil {
		return nil
	}
	return append([]SpineItem(nil), b.opf.Spine...)
}

// LinearSpine returns the idrefs of linear spine items in reading order.
func (b *Book) LinearSpine() []string {
	var ids []string
	for _, s := range b.Spine() {
		if s.Linear {
			ids = append(ids, s.IDRef)
		}
	}
	return ids
}

// ManifestItem looks up a manifest entry by id.
func (b *Book) ManifestItem(id string) (ManifestItem, bool) {
	if b.opf == nil {
		return ManifestItem{}, false
	}
	item, ok := b.opf.Manifest[id]
	return item, ok
}

// ItemPath returns the archive path of manifest item id, or "".
func (b *Book) ItemPath(id string) string {
	item, ok := b.ManifestItem(id)
	if !ok {
		return ""
	}
	return b.resolve(item.Href)
}

// TableOfContents returns the linear spine items with their display titles.
func (b *Book) TableOfContents() []TOCEntry {
	var toc []TOCEntry
	for _, id := range b.LinearSpine() {
		toc = append(toc, TOCEntry{ID: id, Title: b.ChapterTitle(id)})
	}
	return toc
}

// ChapterTitle resolves the display title of a manifest item: the NCX label,
// else the file name, else the id.
func (b *Book) ChapterTitle(id string) string {
	item, ok := b.ManifestItem(id)
	if !ok {
		return id + " not found."
	}
	if title, ok := b.titles[b.resolve(item.Href)]; ok {
		return title
	}
	if name := baseName(archivePath("", item.Href)); name != "" {
		return name
	}
	return item.ID
}
