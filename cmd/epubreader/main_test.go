package main

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuanying/epubreader/internal/config"
	"github.com/yuanying/epubreader/internal/library"
)

const cliOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Novel Title</dc:title>
    <dc:creator opf:role="aut">Jane Roe</dc:creator>
    <dc:language>en</dc:language>
    <meta name="series" content="Saga"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="text/ch1.html" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.html" media-type="application/xhtml+xml"/>
    <item id="art" href="images/art.png" media-type="image/png" properties="cover-image"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

const cliNCX = `<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/"><navMap>
  <navPoint id="n1"><navLabel><text>Chapter One</text></navLabel><content src="text/ch1.html#top"/></navPoint>
</navMap></ncx>`

func lines(n int) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "<p>Line %d</p>", i)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

func coverPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 600, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 600; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 30, G: 90, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

// writeCLIBook writes a book whose ch1 has 2 pages and ch2 has 5 pages at
// 10pt on a 60x36 viewport.
func writeCLIBook(t *testing.T, p string) {
	t.Helper()
	files := []struct {
		name string
		body []byte
	}{
		{"mimetype", []byte("application/epub+zip")},
		{"META-INF/container.xml", []byte(`<container><rootfiles><rootfile full-path="OEBPS/content.opf"/></rootfiles></container>`)},
		{"OEBPS/content.opf", []byte(cliOPF)},
		{"OEBPS/toc.ncx", []byte(cliNCX)},
		{"OEBPS/text/ch1.html", []byte(lines(4))},
		{"OEBPS/text/ch2.html", []byte(strings.Replace(lines(10), "</body>", `<img src="../images/art.png"/><img src="../images/gone.png"/></body>`, 1))},
		{"OEBPS/images/art.png", coverPNG(t)},
	}

	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("failed to create test epub: %v", err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for _, file := range files {
		fw, err := w.Create(file.name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", file.name, err)
		}
		if _, err := fw.Write(file.body); err != nil {
			t.Fatalf("failed to write %s: %v", file.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
}

type cliEnv struct {
	dir    string
	book   string
	config string
	state  string
}

// newCLIEnv writes a book shelved under "Fiction" and a config keeping
// state in a temp directory.
func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := cliEnv{
		dir:    dir,
		book:   filepath.Join(dir, "Novel.epub"),
		config: filepath.Join(dir, "config.yaml"),
		state:  filepath.Join(dir, "state"),
	}
	writeCLIBook(t, env.book)

	cfg := fmt.Sprintf(`reader:
  font_family: Mono
  font_size: 10
  viewport_width: 60
  viewport_height: 36
storage:
  adapter: local
  local:
    base_path: %q
library:
  categories:
    Fiction:
      dir: fiction
      books:
        - %q
`, env.state, env.book)
	if err := os.WriteFile(env.config, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInfoCmd(t *testing.T) {
	env := newCLIEnv(t)
	out, err := runCLI(t, "info", env.book)
	if err != nil {
		t.Fatalf("info error = %v", err)
	}
	for _, want := range []string{
		"title: Novel Title",
		"name: Jane Roe",
		"role: aut",
		"- en",
		"cover: OEBPS/images/art.png",
		"chapters: 2",
		"meta:",
		"series: Saga",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("info output missing %q:\n%s", want, out)
		}
	}
}

func TestSpineAndTOCCmd(t *testing.T) {
	env := newCLIEnv(t)

	out, err := runCLI(t, "spine", env.book)
	if err != nil {
		t.Fatalf("spine error = %v", err)
	}
	want := "1\tch1\tyes\tOEBPS/text/ch1.html\n2\tch2\tyes\tOEBPS/text/ch2.html\n"
	if out != want {
		t.Errorf("spine output = %q, want %q", out, want)
	}

	out, err = runCLI(t, "toc", env.book)
	if err != nil {
		t.Fatalf("toc error = %v", err)
	}
	if want := "ch1\tChapter One\nch2\tch2.html\n"; out != want {
		t.Errorf("toc output = %q, want %q", out, want)
	}

	out, err = runCLI(t, "toc", "--tree", env.book)
	if err != nil {
		t.Fatalf("toc --tree error = %v", err)
	}
	if want := "Chapter One (OEBPS/text/ch1.html#top)\n"; out != want {
		t.Errorf("toc --tree output = %q, want %q", out, want)
	}
}

func TestContentCmd(t *testing.T) {
	env := newCLIEnv(t)

	out, err := runCLI(t, "content", env.book)
	if err != nil {
		t.Fatalf("content error = %v", err)
	}
	want := "ch1 (OEBPS/text/ch1.html)\n" +
		"ch2 (OEBPS/text/ch2.html)\n" +
		"  image OEBPS/images/art.png\n" +
		"  image OEBPS/images/gone.png (missing)\n"
	if out != want {
		t.Errorf("content output = %q, want %q", out, want)
	}

	if _, err := runCLI(t, "content", env.book, "--id", "nope"); err == nil {
		t.Error("content --id nope error = nil")
	}
}

func TestReadCmd_SavesAndRestoresPosition(t *testing.T) {
	env := newCLIEnv(t)

	out, err := runCLI(t, "read", "--config", env.config, env.book, "--chapter", "ch2", "--page", "2")
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if want := "ch2.html [ch2] page 2/5\n\nLine 3\nLine 4\n"; out != want {
		t.Errorf("read output = %q, want %q", out, want)
	}

	raw, err := os.ReadFile(filepath.Join(env.state, "fiction", "Novel", "record"))
	if err != nil {
		t.Fatalf("record not saved: %v", err)
	}
	if string(raw) != "ch2\nch2.html\n2\n" {
		t.Errorf("record = %q", raw)
	}

	out, err = runCLI(t, "read", "--config", env.config, env.book)
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if !strings.HasPrefix(out, "ch2.html [ch2] page 2/5\n") {
		t.Errorf("restored read output = %q", out)
	}
}

func TestReadCmd_FirstChapterAndClamp(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("EPUBREADER_STORAGE_LOCAL_BASE_PATH", env.state)

	out, err := runCLI(t, "read", env.book, "--width", "60", "--height", "36", "--font-size", "10", "--page", "9")
	if err != nil {
		t.Fatalf("read error = %v", err)
	}
	if want := "Chapter One [ch1] page 2/2\n\nLine 3\nLine 4\n"; out != want {
		t.Errorf("read output = %q, want %q", out, want)
	}
}

func TestReadCmd_UnknownChapter(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := runCLI(t, "read", "--config", env.config, env.book, "--chapter", "nope"); err == nil {
		t.Fatal("read with unknown chapter error = nil")
	}
}

func TestBookmarkCmd(t *testing.T) {
	env := newCLIEnv(t)
	args := func(a ...string) []string {
		return append([]string{"bookmark"}, append(a, "--config", env.config)...)
	}

	if _, err := runCLI(t, args("add", env.book, "--chapter", "ch2", "--page", "3")...); err != nil {
		t.Fatalf("bookmark add error = %v", err)
	}
	out, err := runCLI(t, args("add", env.book, "--chapter", "ch1", "--page", "2")...)
	if err != nil {
		t.Fatalf("bookmark add error = %v", err)
	}
	if out != "added: Chapter One [ch1] page 2\n" {
		t.Errorf("bookmark add output = %q", out)
	}

	out, err = runCLI(t, args("list", env.book)...)
	if err != nil {
		t.Fatalf("bookmark list error = %v", err)
	}
	if want := "1\tch1\tChapter One\t2\n2\tch2\tch2.html\t3\n"; out != want {
		t.Errorf("bookmark list = %q, want %q", out, want)
	}

	if _, err := runCLI(t, args("rm", env.book, "1")...); err != nil {
		t.Fatalf("bookmark rm error = %v", err)
	}
	out, err = runCLI(t, args("list", env.book)...)
	if err != nil {
		t.Fatalf("bookmark list error = %v", err)
	}
	if want := "1\tch2\tch2.html\t3\n"; out != want {
		t.Errorf("bookmark list after rm = %q, want %q", out, want)
	}

	if _, err := runCLI(t, args("rm", env.book, "5")...); err == nil {
		t.Error("bookmark rm out of range error = nil")
	}
}

func TestBookmarkCmd_Uncategorized(t *testing.T) {
	env := newCLIEnv(t)
	loose := filepath.Join(env.dir, "Loose.epub")
	writeCLIBook(t, loose)

	_, err := runCLI(t, "bookmark", "add", "--config", env.config, loose)
	if !errors.Is(err, library.ErrUncategorized) {
		t.Fatalf("bookmark add error = %v, want ErrUncategorized", err)
	}

	if _, err := runCLI(t, "bookmark", "add", "--config", env.config, "--category", "Fiction", loose); err != nil {
		t.Fatalf("bookmark add --category error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.state, "fiction", "Loose", "bookmarkmessage")); err != nil {
		t.Errorf("bookmark file not written: %v", err)
	}
}

func TestShelfCmd(t *testing.T) {
	env := newCLIEnv(t)

	out, err := runCLI(t, "shelf", "--config", env.config)
	if err != nil {
		t.Fatalf("shelf error = %v", err)
	}
	if want := "Fiction (fiction)\n  " + env.book + "\n"; out != want {
		t.Errorf("shelf output = %q, want %q", out, want)
	}

	if _, err := runCLI(t, "read", "--config", env.config, env.book); err != nil {
		t.Fatalf("read error = %v", err)
	}
	out, err = runCLI(t, "shelf", "--config", env.config)
	if err != nil {
		t.Fatalf("shelf error = %v", err)
	}
	if want := "Fiction (fiction)\n* " + env.book + "\n"; out != want {
		t.Errorf("shelf output after read = %q, want %q", out, want)
	}
}

func TestForgetCmd(t *testing.T) {
	env := newCLIEnv(t)

	if _, err := runCLI(t, "read", "--config", env.config, env.book, "--chapter", "ch2"); err != nil {
		t.Fatalf("read error = %v", err)
	}
	if _, err := runCLI(t, "bookmark", "add", "--config", env.config, env.book); err != nil {
		t.Fatalf("bookmark add error = %v", err)
	}

	out, err := runCLI(t, "forget", "--config", env.config, env.book)
	if err != nil {
		t.Fatalf("forget error = %v", err)
	}
	if want := "forgot " + env.book + "\n"; out != want {
		t.Errorf("forget output = %q, want %q", out, want)
	}
	for _, name := range []string{"record", "bookmarkmessage"} {
		if _, err := os.Stat(filepath.Join(env.state, "fiction", "Novel", name)); !os.IsNotExist(err) {
			t.Errorf("%s still present after forget: %v", name, err)
		}
	}

	out, err = runCLI(t, "forget", "--config", env.config, env.book)
	if err != nil {
		t.Fatalf("second forget error = %v", err)
	}
	if want := "nothing saved for " + env.book + "\n"; out != want {
		t.Errorf("second forget output = %q, want %q", out, want)
	}

	loose := filepath.Join(env.dir, "Loose.epub")
	writeCLIBook(t, loose)
	if _, err := runCLI(t, "forget", "--config", env.config, loose); !errors.Is(err, library.ErrUncategorized) {
		t.Errorf("forget uncategorized error = %v, want ErrUncategorized", err)
	}
}

func TestCoverCmd(t *testing.T) {
	env := newCLIEnv(t)
	output := filepath.Join(env.dir, "thumb.jpg")

	out, err := runCLI(t, "cover", env.book, "-o", output, "--max-width", "150")
	if err != nil {
		t.Fatalf("cover error = %v", err)
	}
	if !strings.Contains(out, "found by properties") {
		t.Errorf("cover output = %q", out)
	}

	f, err := os.Open(output)
	if err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("DecodeConfig() error = %v", err)
	}
	if format != "jpeg" || cfg.Width != 150 || cfg.Height != 100 {
		t.Errorf("thumbnail = %s %dx%d, want jpeg 150x100", format, cfg.Width, cfg.Height)
	}

	raw := filepath.Join(env.dir, "raw.png")
	if _, err := runCLI(t, "cover", env.book, "-o", raw, "--raw"); err != nil {
		t.Fatalf("cover --raw error = %v", err)
	}
	if data, err := os.ReadFile(raw); err != nil || !bytes.Equal(data, coverPNG(t)) {
		t.Errorf("raw cover differs from archive entry: %v", err)
	}
}

func TestReadPositionOptions(t *testing.T) {
	cfg := config.Default().Reader

	cmd := newReadCmd()
	opts, err := readPositionOptions(cmd, cfg)
	if err != nil {
		t.Fatalf("readPositionOptions() error = %v", err)
	}
	if opts.Width != cfg.ViewportWidth || opts.Height != cfg.ViewportHeight || opts.FontSize != cfg.FontSize {
		t.Errorf("defaults = %+v, want config reader values %+v", opts, cfg)
	}

	tests := []struct {
		name  string
		flags []string
	}{
		{"small font", []string{"--font-size", "5"}},
		{"zero width", []string{"--width", "0"}},
		{"negative page", []string{"--page", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newReadCmd()
			if err := cmd.ParseFlags(tt.flags); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}
			if _, err := readPositionOptions(cmd, cfg); err == nil {
				t.Error("readPositionOptions() error = nil")
			}
		})
	}
}
