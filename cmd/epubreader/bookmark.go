package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/yuanying/epubreader/internal/library"
)

func newBookmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark",
		Short: "Manage bookmarks of a shelved book",
		Long: `Bookmarks are stored next to the reading position under the directory
of the book's library category. Books that are not shelved in the config
need --category.`,
	}
	cmd.AddCommand(newBookmarkAddCmd())
	cmd.AddCommand(newBookmarkListCmd())
	cmd.AddCommand(newBookmarkRemoveCmd())
	return cmd
}

// requireShelved fails for books without a library category, since their
// bookmarks could not be saved.
func (a *app) requireShelved(book string, opts positionOptions) error {
	book, err := a.shelve(book, opts.Category)
	if err != nil {
		return err
	}
	if a.persistence(book) == nil {
		return fmt.Errorf("%w: %s (use --category)", library.ErrUncategorized, book)
	}
	return nil
}

func newBookmarkAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <file.epub>",
		Short: "Bookmark a page",
		Args:  cobra.ExactArgs(1),
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
			if err := a.requireShelved(args[0], opts); err != nil {
				return err
			}

			ctx := cmd.Context()
			s, _, err := a.openSession(ctx, args[0], opts)
			if err != nil {
				return err
			}
			defer s.CloseBook(ctx)

			b, err := s.AddBookmark(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added: %s [%s] page %d\n", b.ChapterTitle, b.ChapterID, b.Page)
			return nil
		},
	}
	addPositionFlags(cmd)
	return cmd
}

func newBookmarkListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <file.epub>",
		Short: "List bookmarks in reading order",
		Args:  cobra.ExactArgs(1),
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
			if err := a.requireShelved(args[0], opts); err != nil {
				return err
			}

			ctx := cmd.Context()
			s, _, err := a.openSession(ctx, args[0], opts)
			if err != nil {
				return err
			}
			defer s.CloseBook(ctx)

			w := cmd.OutOrStdout()
			for i, b := range s.Bookmarks() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i+1, b.ChapterID, b.ChapterTitle, b.Page)
			}
			return nil
		},
	}
	addPositionFlags(cmd)
	return cmd
}

func newBookmarkRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <file.epub> <number>",
		Short: "Remove a bookmark by its number in the list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid bookmark number %q: %w", args[1], err)
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opts, err := readPositionOptions(cmd, a.cfg.Reader)
			if err != nil {
				return err
			}
			if err := a.requireShelved(args[0], opts); err != nil {
				return err
			}

			ctx := cmd.Context()
			s, _, err := a.openSession(ctx, args[0], opts)
			if err != nil {
				return err
			}
			defer s.CloseBook(ctx)

			return s.RemoveBookmark(ctx, n-1)
		},
	}
	addPositionFlags(cmd)
	return cmd
}
