package epub

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestBook_LoadContent(t *testing.T) {
	b := openStandard(t)

	c, err := b.LoadContent("ch1")
	if err != nil {
		t.Fatalf("LoadContent() error = %v", err)
	}

	if c.ID != "ch1" {
		t.Errorf("ID = %q, want %q", c.ID, "ch1")
	}
	if c.Path != "OEBPS/text/ch1.html" {
		t.Errorf("Path = %q, want %q", c.Path, "OEBPS/text/ch1.html")
	}
	if !reflect.DeepEqual(c.CSSLinks, []string{"OEBPS/css/style.css"}) {
		t.Errorf("CSSLinks = %v", c.CSSLinks)
	}
	if !reflect.DeepEqual(c.ImageRefs, []string{"OEBPS/images/cover.png"}) {
		t.Errorf("ImageRefs = %v", c.ImageRefs)
	}
	if got := c.Document.Find("h1").Text(); got != "Heading" {
		t.Errorf("h1 = %q, want %q", got, "Heading")
	}
}

func TestBook_LoadContent_NotFound(t *testing.T) {
	b := openStandard(t)

	if _, err := b.LoadContent("nope"); !errors.Is(err, ErrContentNotFound) {
		t.Errorf("LoadContent() error = %v, want ErrContentNotFound", err)
	}
}

func TestParseContent_NoReferences(t *testing.T) {
	c, err := ParseContent("x", "x.html", []byte("<html><body><p>plain</p></body></html>"))
	if err != nil {
		t.Fatalf("ParseContent() error = %v", err)
	}
	if len(c.CSSLinks) != 0 || len(c.ImageRefs) != 0 {
		t.Errorf("CSSLinks = %v, ImageRefs = %v, want none", c.CSSLinks, c.ImageRefs)
	}
}

func TestBook_TextByID_InvalidUTF8(t *testing.T) {
	entries := replaceEntry(standardEntries(), "OEBPS/text/ch2.html", strPtr("<p>caf\xe9</p>"))
	path := writeEPUB(t, t.TempDir(), "latin1.epub", entries)

	var b Book
	if err := b.Open(path); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	text, err := b.TextByID("ch2")
	if err != nil {
		t.Fatalf("TextByID() error = %v", err)
	}
	if !strings.Contains(text, "caf�") {
		t.Errorf("TextByID() = %q, want replacement character", text)
	}
}
