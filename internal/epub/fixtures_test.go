package epub

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

// zipEntry is one file written into a test archive.
type zipEntry struct {
	name   string
	body   string
	stored bool
}

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Test Book</dc:title>
    <dc:creator opf:role="aut" opf:file-as="Doe, John">John Doe</dc:creator>
    <dc:language>en</dc:language>
    <dc:identifier id="bookid" opf:scheme="ISBN">1234567890</dc:identifier>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="text/ch1.html" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.html" media-type="application/xhtml+xml"/>
    <item id="cover-img" href="images/cover.png" media-type="image/png"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head><meta name="dtb:uid" content="1234567890"/></head>
  <docTitle><text>Test Book</text></docTitle>
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Chapter One</text></navLabel>
      <content src="text/ch1.html#start"/>
    </navPoint>
  </navMap>
</ncx>`

const testChapter = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Chapter</title><link rel="stylesheet" href="../css/style.css"/></head>
<body><h1>Heading</h1><p>Hello, World!</p><img src="../images/cover.png"/></body>
</html>`

// standardEntries returns the archive used by the reference scenario:
// container -> OEBPS/content.opf, ch1 and ch2, NCX titling only ch1.
func standardEntries() []zipEntry {
	return []zipEntry{
		{name: "mimetype", body: "application/epub+zip", stored: true},
		{name: "META-INF/container.xml", body: testContainerXML},
		{name: "OEBPS/content.opf", body: testOPF},
		{name: "OEBPS/toc.ncx", body: testNCX},
		{name: "OEBPS/text/ch1.html", body: testChapter},
		{name: "OEBPS/text/ch2.html", body: "<html><body><p>Second</p></body></html>"},
		{name: "OEBPS/images/cover.png", body: "\x89PNG\r\n\x1a\nbinary\x00\xff"},
	}
}

// replaceEntry returns entries with the body of name replaced, or removed
// when body is nil.
func replaceEntry(entries []zipEntry, name string, body *string) []zipEntry {
	var out []zipEntry
	for _, e := range entries {
		if e.name == name {
			if body == nil {
				continue
			}
			e.body = *body
		}
		out = append(out, e)
	}
	return out
}

// writeEPUB writes entries into dir/name and returns the archive path.
func writeEPUB(t *testing.T, dir, name string, entries []zipEntry) string {
	t.Helper()
	epubPath := filepath.Join(dir, name)
	f, err := os.Create(epubPath)
	if err != nil {
		t.Fatalf("failed to create test epub: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		method := zip.Deflate
		if e.stored {
			method = zip.Store
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: method})
		if err != nil {
			t.Fatalf("failed to create %s: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.body)); err != nil {
			t.Fatalf("failed to write %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return epubPath
}

func strPtr(s string) *string { return &s }

// openStandard opens the reference scenario archive.
func openStandard(t *testing.T) *Book {
	t.Helper()
	path := writeEPUB(t, t.TempDir(), "standard.epub", standardEntries())
	var b Book
	if err := b.Open(path); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return &b
}
