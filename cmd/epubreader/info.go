package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuanying/epubreader/internal/epub"
	"gopkg.in/yaml.v3"
)

func openBook(path string) (*epub.Book, error) {
	var b epub.Book
	if err := b.Open(path); err != nil {
		return nil, err
	}
	return &b, nil
}

type creatorInfo struct {
	Name   string `yaml:"name"`
	Role   string `yaml:"role,omitempty"`
	FileAs string `yaml:"file_as,omitempty"`
}

type bookInfo struct {
	Title       string            `yaml:"title"`
	Creators    []creatorInfo     `yaml:"creators,omitempty"`
	Languages   []string          `yaml:"languages,omitempty"`
	Identifiers []string          `yaml:"identifiers,omitempty"`
	Publisher   string            `yaml:"publisher,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Subjects    []string          `yaml:"subjects,omitempty"`
	Date        string            `yaml:"date,omitempty"`
	Cover       string            `yaml:"cover,omitempty"`
	Meta        map[string]string `yaml:"meta,omitempty"`
	Chapters    int               `yaml:"chapters"`
}

func newBookInfo(b *epub.Book) bookInfo {
	md := b.Metadata()
	info := bookInfo{
		Title:       b.Title(),
		Languages:   md.All("language"),
		Identifiers: md.All("identifier"),
		Publisher:   md.Get("publisher"),
		Description: md.Get("description"),
		Subjects:    md.All("subject"),
		Date:        md.Get("date"),
		Cover:       b.CoverImagePath(),
		Meta:        md.Meta,
		Chapters:    len(b.LinearSpine()),
	}
	for _, c := range md.Creators() {
		info.Creators = append(info.Creators, creatorInfo(c))
	}
	return info
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.epub>",
		Short: "Print book metadata as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBook(args[0])
			if err != nil {
				return err
			}
			defer b.Close()

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(newBookInfo(b)); err != nil {
				return fmt.Errorf("failed to encode metadata: %w", err)
			}
			return enc.Close()
		},
	}
}

func newSpineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "spine <file.epub>",
		Short: "List the reading order",
		Long: `Lists every spine item with its index, idref, linear flag and the
archive path of the document it refers to.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBook(args[0])
			if err != nil {
				return err
			}
			defer b.Close()

			w := cmd.OutOrStdout()
			for i, s := range b.Spine() {
				linear := "yes"
				if !s.Linear {
					linear = "no"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, s.IDRef, linear, b.ItemPath(s.IDRef))
			}
			return nil
		},
	}
}

func newTOCCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toc <file.epub>",
		Short: "Print the table of contents",
		Long: `Prints the linear chapters with their display titles. With --tree the
NCX navigation hierarchy is printed instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, _ := cmd.Flags().GetBool("tree")

			b, err := openBook(args[0])
			if err != nil {
				return err
			}
			defer b.Close()

			w := cmd.OutOrStdout()
			if tree {
				writeNavTree(w, b.NavPoints(), 0)
				return nil
			}
			for _, e := range b.TableOfContents() {
				fmt.Fprintf(w, "%s\t%s\n", e.ID, e.Title)
			}
			return nil
		},
	}
	cmd.Flags().Bool("tree", false, "Print the NCX navigation tree")
	return cmd
}

func writeNavTree(w io.Writer, points []epub.NavPoint, depth int) {
	for _, np := range points {
		target := np.ContentPath
		if np.Fragment != "" {
			target += "#" + np.Fragment
		}
		fmt.Fprintf(w, "%s%s (%s)\n", strings.Repeat("  ", depth), np.Label, target)
		writeNavTree(w, np.Children, depth+1)
	}
}
