package epub

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

const dcNamespace = "http://purl.org/dc/elements/1.1/"

// ParseOPF parses an OPF file content and returns the OPF structure.
//
// The document is scanned once; metadata, manifest, spine and guide
// elements are handed to sub-parsers that consume their subtree.
// A spine without a toc attribute is fatal. Manifest items and spine
// itemrefs missing required attributes are skipped.
func ParseOPF(content []byte) (*OPF, error) {
	opf := &OPF{
		Manifest: make(map[string]ManifestItem),
	}

	d := newDecoder(content)
	var sawManifest, sawSpine bool
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedOPF, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "metadata":
			err = parseMetadata(d, &opf.Metadata)
		case "manifest":
			sawManifest = true
			err = parseManifest(d, opf)
		case "spine":
			sawSpine = true
			err = parseSpine(d, se, opf)
		case "guide":
			err = parseGuide(d, opf)
		}
		if err != nil {
			if errors.Is(err, ErrMalformedOPF) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrMalformedOPF, err)
		}
	}

	if !sawManifest {
		return nil, fmt.Errorf("%w: no manifest element", ErrMalformedOPF)
	}
	if !sawSpine {
		return nil, fmt.Errorf("%w: no spine element", ErrMalformedOPF)
	}

	return opf, nil
}

// parseMetadata reads Dublin Core elements and <meta> tags until </metadata>.
func parseMetadata(d *xml.Decoder, md *Metadata) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if t.Name.Local == "meta" {
				name, _ := attr(t, "name")
				content, hasContent := attr(t, "content")
				if name != "" && hasContent {
					if md.Meta == nil {
						md.Meta = make(map[string]string)
					}
					md.Meta[name] = content
					if name == "cover" {
						md.CoverID = content
					}
				}
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}

			if t.Name.Space != dcNamespace {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}

			entry := MetaEntry{Attrs: make(map[string]string)}
			for _, a := range t.Attr {
				if a.Name.Local == "id" {
					entry.ID = a.Value
					continue
				}
				entry.Attrs[a.Name.Local] = a.Value
			}
			entry.Value, err = readText(d)
			if err != nil {
				return err
			}
			md.add(t.Name.Local, entry)
		}
	}
}

// parseManifest reads <item> elements until </manifest>.
func parseManifest(d *xml.Decoder, opf *OPF) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if t.Name.Local == "item" {
				addManifestItem(opf, t)
			}
			if err := d.Skip(); err != nil {
				return err
			}
		}
	}
}

func addManifestItem(opf *OPF, se xml.StartElement) {
	var item ManifestItem
	for _, required := range []struct {
		name string
		dst  *string
	}{
		{"id", &item.ID},
		{"href", &item.Href},
		{"media-type", &item.MediaType},
	} {
		v, _ := attr(se, required.name)
		if v == "" {
			log.Printf("warning: manifest item %q missing %s, skipping", item.ID, required.name)
			return
		}
		*required.dst = v
	}

	item.Fallback, _ = attr(se, "fallback")
	if props, ok := attr(se, "properties"); ok {
		item.Properties = strings.Fields(props)
	}

	if _, dup := opf.Manifest[item.ID]; !dup {
		opf.ManifestOrder = append(opf.ManifestOrder, item.ID)
	}
	opf.Manifest[item.ID] = item
}

// parseSpine reads the toc attribute and <itemref> elements until </spine>.
func parseSpine(d *xml.Decoder, se xml.StartElement, opf *OPF) error {
	toc, ok := attr(se, "toc")
	if !ok || toc == "" {
		return ErrMissingTOC
	}
	opf.TOCID = toc

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if t.Name.Local == "itemref" {
				idref, _ := attr(t, "idref")
				if idref == "" {
					log.Printf("warning: spine itemref missing idref, skipping")
				} else {
					linear, _ := attr(t, "linear")
					opf.Spine = append(opf.Spine, SpineItem{
						IDRef:  idref,
						Linear: linear != "no",
					})
				}
			}
			if err := d.Skip(); err != nil {
				return err
			}
		}
	}
}

// parseGuide reads EPUB 2 <reference> elements until </guide>.
func parseGuide(d *xml.Decoder, opf *OPF) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.StartElement:
			if t.Name.Local == "reference" {
				var ref GuideReference
				ref.Type, _ = attr(t, "type")
				ref.Title, _ = attr(t, "title")
				ref.Href, _ = attr(t, "href")
				opf.Guide = append(opf.Guide, ref)
			}
			if err := d.Skip(); err != nil {
				return err
			}
		}
	}
}
