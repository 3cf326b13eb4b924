package epub

// OPF represents the parsed Open Package Format document.
// Hrefs are kept exactly as declared; resolve them with NormalizeHref
// against the directory of the OPF file.
type OPF struct {
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // ids in declaration order
	Spine         []SpineItem
	TOCID         string // spine toc attribute (NCX manifest id)
	Guide         []GuideReference
}

// Dublin Core element names whose duplicates overwrite the previous value.
var singletonFields = map[string]bool{
	"title":       true,
	"publisher":   true,
	"description": true,
	"rights":      true,
}

// Metadata represents the metadata section of the OPF.
// Fields is keyed by the Dublin Core local name ("title", "creator", ...).
type Metadata struct {
	Fields  map[string][]MetaEntry
	Meta    map[string]string // <meta name="..." content="..."/>
	CoverID string            // EPUB 2.0 cover image manifest item ID (from meta name="cover")
}

// MetaEntry is one Dublin Core element occurrence.
type MetaEntry struct {
	Value string
	ID    string
	Attrs map[string]string // role, file-as, scheme, event, lang, ...
}

// Creator represents a creator (author, editor, etc.) of the book
type Creator struct {
	Name   string
	Role   string // e.g., "aut" for author, "edt" for editor
	FileAs string
}

func (m *Metadata) add(name string, e MetaEntry) {
	if m.Fields == nil {
		m.Fields = make(map[string][]MetaEntry)
	}
	if singletonFields[name] {
		m.Fields[name] = []MetaEntry{e}
		return
	}
	m.Fields[name] = append(m.Fields[name], e)
}

// Get returns the last value recorded for name, or "".
func (m Metadata) Get(name string) string {
	entries := m.Fields[name]
	if len(entries) == 0 {
		return ""
	}
	return entries[len(entries)-1].Value
}

// All returns every value recorded for name in declaration order.
func (m Metadata) All(name string) []string {
	entries := m.Fields[name]
	values := make([]string, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value)
	}
	return values
}

// Title returns dc:title without any file name fallback.
func (m Metadata) Title() string {
	return m.Get("title")
}

// Creators returns dc:creator entries with their opf:role and opf:file-as.
func (m Metadata) Creators() []Creator {
	var creators []Creator
	for _, e := range m.Fields["creator"] {
		creators = append(creators, Creator{
			Name:   e.Value,
			Role:   e.Attrs["role"],
			FileAs: e.Attrs["file-as"],
		})
	}
	return creators
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID         string
	Href       string // relative to the OPF directory
	MediaType  string
	Fallback   string
	Properties []string
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}

// GuideReference is an EPUB 2 <guide><reference> entry.
type GuideReference struct {
	Type  string
	Title string
	Href  string
}

// TOCEntry is one displayed table of contents line.
type TOCEntry struct {
	ID    string
	Title string
}
