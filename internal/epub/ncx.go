package epub

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// maxNavDepth bounds navPoint recursion; deeper subtrees are skipped.
const maxNavDepth = 64

// NCX represents the parsed navigation control structure from the NCX document.
type NCX struct {
	UID       string
	DocTitle  string
	NavPoints []NavPoint
}

// NavPoint represents a single navigation point in the table of contents.
type NavPoint struct {
	ID          string
	PlayOrder   int
	Label       string
	ContentPath string // fragment-free, absolute path within EPUB
	Fragment    string // fragment identifier (without #)
	Children    []NavPoint
}

// TitleIndex maps a normalized content path to its NCX label.
type TitleIndex map[string]string

// TitleIndex flattens the navigation tree into path -> label. Children are
// recorded before their parent, so on duplicate paths the outer navPoint
// wins, and later siblings override earlier ones.
func (n *NCX) TitleIndex() TitleIndex {
	index := make(TitleIndex)
	var walk func([]NavPoint)
	walk = func(points []NavPoint) {
		for _, np := range points {
			walk(np.Children)
			if np.Label != "" && np.ContentPath != "" {
				index[np.ContentPath] = np.Label
			}
		}
	}
	walk(n.NavPoints)
	return index
}

// ParseNCX parses NCX content. Content paths are resolved against base,
// the directory containing the OPF.
func ParseNCX(content []byte, base string) (*NCX, error) {
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, errors.New("NCX file is empty")
	}

	ncx := &NCX{}
	d := newDecoder(content)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return ncx, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse NCX XML: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "meta":
			if name, _ := attr(se, "name"); name == "dtb:uid" {
				ncx.UID, _ = attr(se, "content")
			}
		case "docTitle":
			ncx.DocTitle, err = readLabel(d)
		case "navPoint":
			var np NavPoint
			np, err = parseNavPoint(d, se, base, 1)
			if err == nil {
				ncx.NavPoints = append(ncx.NavPoints, np)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse NCX XML: %w", err)
		}
	}
}

// parseNavPoint consumes one navPoint subtree, recursing into nested ones.
func parseNavPoint(d *xml.Decoder, se xml.StartElement, base string, depth int) (NavPoint, error) {
	var np NavPoint
	np.ID, _ = attr(se, "id")
	if po, ok := attr(se, "playOrder"); ok {
		np.PlayOrder, _ = strconv.Atoi(po)
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return np, err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return np, nil
		case xml.StartElement:
			switch t.Name.Local {
			case "navLabel":
				label, err := readLabel(d)
				if err != nil {
					return np, err
				}
				if np.Label == "" {
					np.Label = label
				}
			case "content":
				src, _ := attr(t, "src")
				var path string
				path, np.Fragment = splitFragment(src)
				np.ContentPath = archivePath(base, path)
				if err := d.Skip(); err != nil {
					return np, err
				}
			case "navPoint":
				if depth >= maxNavDepth {
					log.Printf("warning: navPoint nesting deeper than %d, skipping %q", maxNavDepth, np.ID)
					if err := d.Skip(); err != nil {
						return np, err
					}
					continue
				}
				child, err := parseNavPoint(d, t, base, depth+1)
				if err != nil {
					return np, err
				}
				np.Children = append(np.Children, child)
			default:
				if err := d.Skip(); err != nil {
					return np, err
				}
			}
		}
	}
}

// readLabel consumes a navLabel/docTitle element and returns the first <text>.
func readLabel(d *xml.Decoder) (string, error) {
	var label string
	found := false
	for {
		tok, err := d.Token()
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return label, nil
		case xml.StartElement:
			if t.Name.Local == "text" && !found {
				label, err = readText(d)
				if err != nil {
					return "", err
				}
				found = true
				continue
			}
			if err := d.Skip(); err != nil {
				return "", err
			}
		}
	}
}

// loadNCX parses the NCX named by the spine toc attribute and builds the
// title index. A failure leaves the index empty.
func (b *Book) loadNCX() error {
	item, ok := b.opf.Manifest[b.opf.TOCID]
	if !ok {
		return fmt.Errorf("NCX item %q not found in manifest", b.opf.TOCID)
	}

	ncxPath := b.resolve(item.Href)
	content, err := b.ReadFile(ncxPath)
	if err != nil {
		return fmt.Errorf("failed to read NCX %s: %w", ncxPath, err)
	}

	ncx, err := ParseNCX(content, b.opfDir)
	if err != nil {
		return fmt.Errorf("%s: %w", ncxPath, err)
	}

	b.navPoints = ncx.NavPoints
	b.titles = ncx.TitleIndex()
	return nil
}

// NavPoints returns the NCX navigation tree, nil if no NCX was parsed.
func (b *Book) NavPoints() []NavPoint {
	return b.navPoints
}
