package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuanying/epubreader/internal/config"
	"github.com/yuanying/epubreader/internal/eventloop"
	"github.com/yuanying/epubreader/internal/layout"
	"github.com/yuanying/epubreader/internal/reader"
)

// maxLoopIterations bounds the deferred steps run after opening a book.
const maxLoopIterations = 8

type positionOptions struct {
	Chapter  string
	Page     int
	Width    int
	Height   int
	FontSize int
	Category string
}

func addPositionFlags(cmd *cobra.Command) {
	cmd.Flags().String("chapter", "", "Manifest id of the chapter to open (default: saved position or first chapter)")
	cmd.Flags().Int("page", 0, "Page within the chapter (default: saved page or 1)")
	cmd.Flags().Int("width", 0, "Viewport width in pixels (default from config)")
	cmd.Flags().Int("height", 0, "Viewport height in pixels (default from config)")
	cmd.Flags().Int("font-size", 0, "Font size in points (default from config)")
	cmd.Flags().String("category", "", "Library category the book belongs to for this run")
}

func readPositionOptions(cmd *cobra.Command, cfg config.ReaderConfig) (positionOptions, error) {
	opts := positionOptions{
		Width:    cfg.ViewportWidth,
		Height:   cfg.ViewportHeight,
		FontSize: cfg.FontSize,
	}
	opts.Chapter, _ = cmd.Flags().GetString("chapter")
	opts.Page, _ = cmd.Flags().GetInt("page")
	opts.Category, _ = cmd.Flags().GetString("category")

	if cmd.Flags().Changed("width") {
		opts.Width, _ = cmd.Flags().GetInt("width")
	}
	if cmd.Flags().Changed("height") {
		opts.Height, _ = cmd.Flags().GetInt("height")
	}
	if cmd.Flags().Changed("font-size") {
		opts.FontSize, _ = cmd.Flags().GetInt("font-size")
	}

	if opts.Page < 0 {
		return opts, fmt.Errorf("--page must be positive: %d", opts.Page)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return opts, fmt.Errorf("--width and --height must be positive: %dx%d", opts.Width, opts.Height)
	}
	if opts.FontSize < reader.MinFontSize {
		return opts, fmt.Errorf("--font-size must be at least %d: %d", reader.MinFontSize, opts.FontSize)
	}
	return opts, nil
}

// openSession opens book in a new session and settles it on the requested
// position. The caller closes the session.
func (a *app) openSession(ctx context.Context, book string, opts positionOptions) (*reader.Session, *layout.TextEngine, error) {
	book, err := a.shelve(book, opts.Category)
	if err != nil {
		return nil, nil, err
	}

	engine := layout.NewTextEngine()
	loop := eventloop.New()
	s := reader.NewSession(engine, nil, loop, a.persistence(book))
	s.Pager().SetViewport(layout.Size{Width: opts.Width, Height: opts.Height})
	s.Pager().SetFont(layout.Font{Family: a.cfg.Reader.FontFamily, PointSize: opts.FontSize})

	if err := s.OpenBook(ctx, book); err != nil {
		return nil, nil, err
	}
	loop.Drain(maxLoopIterations)

	if opts.Chapter != "" {
		if err := s.LoadChapter(opts.Chapter); err != nil {
			s.CloseBook(ctx)
			return nil, nil, err
		}
	}
	if opts.Page > 0 {
		s.Pager().GoToPage(opts.Page)
	}
	return s, engine, nil
}

func newReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <file.epub>",
		Short: "Print one page of a chapter",
		Long: `Lays out a chapter at the configured viewport and font size and prints
one page of it. Without --chapter the saved reading position is restored,
or the first linear chapter is opened. The position is saved on exit when
the book is shelved in a library category.`,
		Example: `  # Continue where you left off
  epubreader read book.epub

  # Page 3 of chapter ch2 at a small viewport
  epubreader read book.epub --chapter ch2 --page 3 --width 400 --height 300`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opts, err := readPositionOptions(cmd, a.cfg.Reader)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, engine, err := a.openSession(ctx, args[0], opts)
			if err != nil {
				return err
			}
			defer s.CloseBook(ctx)

			pos, ok := s.Position()
			if !ok {
				return reader.ErrNoChapter
			}
			p := s.Pager()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s [%s] page %d/%d\n\n", pos.ChapterTitle, pos.ChapterID, p.CurrentPage(), p.TotalPage())
			fmt.Fprintln(w, strings.Join(engine.PageText(p.CurrentPage()), "\n"))
			return nil
		},
	}
	addPositionFlags(cmd)
	return cmd
}
