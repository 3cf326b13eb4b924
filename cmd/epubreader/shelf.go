package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/yuanying/epubreader/internal/progress"
)

func newShelfCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shelf",
		Short: "List library categories and their books",
		Long: `Lists the categories from the config in priority order with the books
shelved in each. Books with a saved position or bookmarks are marked with *.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			w := cmd.OutOrStdout()
			for _, c := range a.shelf.All() {
				saved, err := a.store.SavedBooks(cmd.Context(), c.Dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s (%s)\n", c.Name, c.Dir)
				for _, book := range c.Books {
					mark := " "
					if slices.Contains(saved, progress.BookBaseName(book)) {
						mark = "*"
					}
					fmt.Fprintf(w, "%s %s\n", mark, book)
				}
			}
			return nil
		},
	}
}

func newForgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forget <file.epub>",
		Short: "Delete the saved position and bookmarks of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, _ := cmd.Flags().GetString("category")

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			book, err := a.shelve(args[0], category)
			if err != nil {
				return err
			}
			found, err := a.store.Forget(cmd.Context(), book)
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.OutOrStdout(), "nothing saved for %s\n", book)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", book)
			return nil
		},
	}
	cmd.Flags().String("category", "", "Library category the book belongs to for this run")
	return cmd
}
