package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content <file.epub>",
		Short: "List the stylesheets and images of each chapter",
		Long: `Loads each linear chapter, or only --id, and prints the archive paths of
the stylesheets and images it references. Missing references are marked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			only, _ := cmd.Flags().GetString("id")

			b, err := openBook(args[0])
			if err != nil {
				return err
			}
			defer b.Close()

			ids := b.LinearSpine()
			if only != "" {
				ids = []string{only}
			}

			w := cmd.OutOrStdout()
			failed := 0
			for _, id := range ids {
				c, err := b.LoadContent(id)
				if err != nil {
					fmt.Fprintf(w, "%s: %v\n", id, err)
					failed++
					continue
				}
				fmt.Fprintf(w, "%s (%s)\n", c.ID, c.Path)
				for _, css := range c.CSSLinks {
					fmt.Fprintf(w, "  css   %s%s\n", css, missingMark(b.HasFile(css)))
				}
				for _, img := range c.ImageRefs {
					fmt.Fprintf(w, "  image %s%s\n", img, missingMark(b.HasFile(img)))
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d chapters failed to load", failed, len(ids))
			}
			return nil
		},
	}
	cmd.Flags().String("id", "", "Manifest id of a single chapter")
	return cmd
}

func missingMark(ok bool) string {
	if ok {
		return ""
	}
	return " (missing)"
}
