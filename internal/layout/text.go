package layout

import (
	"fmt"
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// DefaultPointSize is the font size used until SetDefaultFont is called.
	DefaultPointSize = 13

	advanceFactor    = 0.6
	lineHeightFactor = 1.8
)

// blockAtoms start a new paragraph when encountered.
var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Blockquote: true, atom.Pre: true, atom.Tr: true, atom.Section: true,
	atom.Article: true, atom.Header: true, atom.Footer: true, atom.Hr: true,
	atom.Dt: true, atom.Dd: true, atom.Figcaption: true,
}

// skipAtoms are never rendered.
var skipAtoms = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true,
}

// TextEngine is an Engine that wraps plain text extracted from HTML using a
// fixed advance per rune and a fixed line height derived from the font size.
// Pages hold whole lines only.
//
// TextEngine is not safe for concurrent use.
type TextEngine struct {
	blocks    []string
	font      Font
	size      Size
	lines     []string
	offset    int
	observers []func(int)
}

// NewTextEngine returns an empty engine with the default font.
func NewTextEngine() *TextEngine {
	return &TextEngine{font: Font{PointSize: DefaultPointSize}}
}

// SetHTML replaces the document and relays it out.
func (e *TextEngine) SetHTML(content string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	e.blocks = extractBlocks(doc)
	e.relayout()
	e.setOffset(0)
	return nil
}

// SetDefaultFont changes the font and relays the document out.
func (e *TextEngine) SetDefaultFont(f Font) {
	if f.PointSize <= 0 {
		f.PointSize = DefaultPointSize
	}
	e.font = f
	e.relayout()
	e.setOffset(e.offset)
}

// Font returns the current default font.
func (e *TextEngine) Font() Font {
	return e.font
}

// SetPageSize changes the viewport and relays the document out.
func (e *TextEngine) SetPageSize(s Size) {
	e.size = s
	e.relayout()
	e.setOffset(e.offset)
}

// PageSize returns the current viewport.
func (e *TextEngine) PageSize() Size {
	return e.size
}

// PageCount returns the number of pages, at least 1.
func (e *TextEngine) PageCount() int {
	per := e.linesPerPage()
	if per == 0 || len(e.lines) == 0 {
		return 1
	}
	return (len(e.lines) + per - 1) / per
}

// ScrollOffset returns the vertical scroll offset in pixels.
func (e *TextEngine) ScrollOffset() int {
	return e.offset
}

// SetScrollOffset moves the viewport, clamped to the document.
func (e *TextEngine) SetScrollOffset(offset int) {
	e.setOffset(offset)
}

// OnScroll registers fn to be called whenever the scroll offset changes.
func (e *TextEngine) OnScroll(fn func(offset int)) {
	e.observers = append(e.observers, fn)
}

// PageText returns the lines shown on page (1-based).
func (e *TextEngine) PageText(page int) []string {
	per := e.linesPerPage()
	if per == 0 || page < 1 {
		return nil
	}
	start := (page - 1) * per
	if start >= len(e.lines) {
		return nil
	}
	end := min(start+per, len(e.lines))
	return append([]string(nil), e.lines[start:end]...)
}

// LineCount returns the number of laid out lines.
func (e *TextEngine) LineCount() int {
	return len(e.lines)
}

func (e *TextEngine) setOffset(offset int) {
	maxOffset := (e.PageCount() - 1) * max(e.size.Height, 0)
	offset = max(0, min(offset, maxOffset))
	if offset == e.offset {
		return
	}
	e.offset = offset
	for _, fn := range e.observers {
		fn(offset)
	}
}

func (e *TextEngine) lineHeight() float64 {
	return lineHeightFactor * float64(e.font.PointSize)
}

func (e *TextEngine) linesPerPage() int {
	if e.size.Empty() {
		return 0
	}
	return max(1, int(math.Floor(float64(e.size.Height)/e.lineHeight())))
}

func (e *TextEngine) charsPerLine() int {
	advance := advanceFactor * float64(e.font.PointSize)
	return max(1, int(math.Floor(float64(e.size.Width)/advance)))
}

func (e *TextEngine) relayout() {
	e.lines = nil
	if e.size.Empty() {
		return
	}
	width := e.charsPerLine()
	for _, b := range e.blocks {
		e.lines = append(e.lines, wrap(b, width)...)
	}
}

// wrap breaks text into lines of at most width runes, splitting on spaces
// and hard-breaking words longer than a line.
func wrap(text string, width int) []string {
	var lines []string
	var line []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > width {
			if len(line) > 0 {
				lines = append(lines, string(line))
				line = nil
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(w) == 0:
		case len(line) == 0:
			line = w
		case len(line)+1+len(w) <= width:
			line = append(append(line, ' '), w...)
		default:
			lines = append(lines, string(line))
			line = w
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}

// extractBlocks flattens the document into paragraphs of collapsed text.
func extractBlocks(doc *goquery.Document) []string {
	var blocks []string
	var sb strings.Builder

	flush := func() {
		if text := strings.Join(strings.Fields(sb.String()), " "); text != "" {
			blocks = append(blocks, text)
		}
		sb.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipAtoms[n.DataAtom] {
				return
			}
			if blockAtoms[n.DataAtom] {
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range doc.Find("body").Nodes {
		walk(n)
	}
	flush()
	return blocks
}
