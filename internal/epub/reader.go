package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"
)

var (
	ErrArchiveOpen        = errors.New("failed to open EPUB archive")
	ErrMissingContainer   = errors.New("META-INF/container.xml not found")
	ErrMalformedContainer = errors.New("malformed container.xml")
	ErrMissingOPF         = errors.New("OPF package document not found")
	ErrMalformedOPF       = errors.New("malformed OPF package document")
	ErrMissingTOC         = fmt.Errorf("%w: spine has no toc attribute", ErrMalformedOPF)
	ErrContentNotFound    = errors.New("content item not found in manifest")
	ErrNotOpen            = errors.New("EPUB is not open")
	ErrFileNotFound       = errors.New("file not found in archive")

	ErrInvalidMimetype    = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrMimetypeCompressed = errors.New("mimetype must not be compressed")
	ErrMimetypeNotFound   = errors.New("mimetype file not found")
)

const containerPath = "META-INF/container.xml"

// Book is the session for one open EPUB archive.
//
// The zero value is a closed book. Open always tears down the previous
// session first, so a Book never holds two archives. A Book is not safe
// for concurrent use.
type Book struct {
	zipReader *zip.ReadCloser
	files     map[string]*zip.File
	path      string
	opfPath   string
	opfDir    string

	opf       *OPF
	titles    TitleIndex
	navPoints []NavPoint

	lastErr string
}

// Open opens the EPUB at path and parses container.xml, the OPF package
// document and, best effort, the NCX. On failure the book is left closed
// and LastError describes the cause.
func (b *Book) Open(path string) error {
	b.Close()

	if err := b.open(path); err != nil {
		b.Close()
		b.lastErr = err.Error()
		return err
	}
	return nil
}

func (b *Book) open(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrArchiveOpen, path, err)
	}

	b.zipReader = zr
	b.path = path
	b.files = make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		b.files[normalizePath(f.Name)] = f
	}

	if err := b.validateMimetype(); err != nil {
		log.Printf("warning: %s: %v", path, err)
	}

	if err := b.parseContainer(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if err := b.parseOPF(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if err := b.loadNCX(); err != nil {
		log.Printf("warning: failed to parse NCX, table of contents will use fallback titles: %v", err)
	}

	b.lastErr = ""
	return nil
}

// Close closes the archive and clears every piece of session state.
func (b *Book) Close() error {
	var err error
	if b.zipReader != nil {
		err = b.zipReader.Close()
	}
	*b = Book{}
	return err
}

// IsOpen reports whether an archive is currently open.
func (b *Book) IsOpen() bool {
	return b.zipReader != nil && b.opf != nil
}

// Path returns the file system path of the open EPUB.
func (b *Book) Path() string {
	return b.path
}

// OPFPath returns the path to the OPF file
func (b *Book) OPFPath() string {
	return b.opfPath
}

// LastError returns the message of the last failed operation, or "".
// It stays set until the next Open, Close or content fetch.
func (b *Book) LastError() string {
	return b.lastErr
}

func (b *Book) fail(err error) error {
	b.lastErr = err.Error()
	log.Printf("warning: %v", err)
	return err
}

// HasFile reports whether the archive holds name.
func (b *Book) HasFile(name string) bool {
	return b.zipReader != nil && b.lookup(normalizePath(name)) != nil
}

// ReadFile reads the contents of a file from the EPUB.
// Names are matched exactly first, then case-insensitively.
func (b *Book) ReadFile(name string) ([]byte, error) {
	if b.zipReader == nil {
		return nil, ErrNotOpen
	}

	f := b.lookup(normalizePath(name))
	if f == nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

func (b *Book) lookup(name string) *zip.File {
	if f, ok := b.files[name]; ok {
		return f
	}
	// Archive order keeps the match stable when names differ only by case.
	for _, f := range b.zipReader.File {
		if strings.EqualFold(normalizePath(f.Name), name) {
			return f
		}
	}
	return nil
}

// validateMimetype checks that the mimetype file exists and is valid
func (b *Book) validateMimetype() error {
	f := b.lookup("mimetype")
	if f == nil {
		return ErrMimetypeNotFound
	}

	if f.Method != zip.Store {
		return ErrMimetypeCompressed
	}

	content, err := b.ReadFile("mimetype")
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}

	if strings.TrimSpace(string(content)) != "application/epub+zip" {
		return ErrInvalidMimetype
	}

	return nil
}

// parseContainer locates the OPF through container.xml.
func (b *Book) parseContainer() error {
	content, err := b.ReadFile(containerPath)
	if err != nil {
		return ErrMissingContainer
	}

	fullPath, err := findRootfile(content)
	if err != nil {
		return err
	}

	b.opfPath = archivePath("", fullPath)
	b.opfDir = dirOf(b.opfPath)
	return nil
}

// findRootfile returns the full-path of the first rootfile that has one.
func findRootfile(content []byte) (string, error) {
	d := newDecoder(content)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: no rootfile with full-path", ErrMalformedContainer)
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedContainer, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "rootfile" {
			continue
		}
		if p, ok := attr(se, "full-path"); ok && p != "" {
			return p, nil
		}
	}
}

func (b *Book) parseOPF() error {
	content, err := b.ReadFile(b.opfPath)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMissingOPF, b.opfPath, err)
	}

	opf, err := ParseOPF(content)
	if err != nil {
		return fmt.Errorf("%s: %w", b.opfPath, err)
	}

	b.opf = opf
	return nil
}

// normalizePath normalizes file paths (removes ./ and / prefixes)
func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "./")
	return strings.TrimPrefix(path, "/")
}

// decodeText converts archive bytes to a string, replacing invalid UTF-8.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}
