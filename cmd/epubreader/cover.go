package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuanying/epubreader/internal/cover"
)

func newCoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cover <file.epub>",
		Short: "Extract the cover image",
		Long: `Writes the cover image of a book as a thumbnail no wider than
--max-width. With --raw the image is written unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			maxWidth, _ := cmd.Flags().GetInt("max-width")
			quality, _ := cmd.Flags().GetInt("quality")
			raw, _ := cmd.Flags().GetBool("raw")

			if quality < 0 || quality > 100 {
				return fmt.Errorf("--quality must be between 0 and 100: %d", quality)
			}

			b, err := openBook(args[0])
			if err != nil {
				return err
			}
			defer b.Close()

			c, err := cover.Extract(b)
			if err != nil {
				return err
			}

			data, ext := c.Data, path.Ext(c.Path)
			if !raw {
				if !cover.IsSupported(c.MediaType) {
					return fmt.Errorf("cannot render %s cover %s, use --raw", c.MediaType, c.Path)
				}
				thumb, err := cover.NewThumbnailer(maxWidth, quality).Render(c.Data)
				if err != nil {
					return fmt.Errorf("failed to render cover: %w", err)
				}
				data, ext = thumb.Data, thumb.Extension()
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".cover" + ext
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, found by %s) -> %s\n", c.Path, c.MediaType, c.DetectionMethod, output)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output file path (default: <book>.cover.<ext>)")
	cmd.Flags().Int("max-width", 300, "Maximum thumbnail width in pixels")
	cmd.Flags().Int("quality", 90, "JPEG quality of the thumbnail")
	cmd.Flags().Bool("raw", false, "Write the cover image without resizing")
	return cmd
}
