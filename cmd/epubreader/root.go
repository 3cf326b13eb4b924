package main

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/yuanying/epubreader/internal/config"
	"github.com/yuanying/epubreader/internal/library"
	"github.com/yuanying/epubreader/internal/progress"
	"github.com/yuanying/epubreader/internal/reader"
	"github.com/yuanying/epubreader/internal/storage"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epubreader",
		Short: "Read EPUB books in the terminal",
		Long: `epubreader opens EPUB 2 books, prints their metadata, spine and
table of contents, and pages through chapters at a fixed viewport size.

Reading positions and bookmarks are kept per book under the directory of
the library category the book is shelved in.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringP("config", "c", "", "Path to YAML config file")

	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newSpineCmd())
	cmd.AddCommand(newTOCCmd())
	cmd.AddCommand(newContentCmd())
	cmd.AddCommand(newReadCmd())
	cmd.AddCommand(newBookmarkCmd())
	cmd.AddCommand(newCoverCmd())
	cmd.AddCommand(newShelfCmd())
	cmd.AddCommand(newForgetCmd())

	return cmd
}

// app bundles the configuration and the persistence stack built from it.
type app struct {
	cfg     *config.Config
	adapter storage.Adapter
	shelf   *library.Shelf
	store   *progress.Store
}

func loadApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}

	adapter, err := storage.NewAdapter(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage adapter: %w", err)
	}
	shelf := library.FromConfig(cfg.Library)

	return &app{
		cfg:     cfg,
		adapter: adapter,
		shelf:   shelf,
		store:   progress.NewStore(adapter, shelf),
	}, nil
}

func (a *app) Close() error {
	return a.adapter.Close()
}

// shelve puts book into category for this run. The book path is made
// absolute when the shelf only knows it that way.
func (a *app) shelve(book, category string) (string, error) {
	if category != "" {
		if err := a.shelf.Add(book, category); err != nil {
			return "", err
		}
		return book, nil
	}
	if len(a.shelf.Categories(book)) > 0 {
		return book, nil
	}
	if abs, err := filepath.Abs(book); err == nil && len(a.shelf.Categories(abs)) > 0 {
		return abs, nil
	}
	return book, nil
}

// persistence returns the store when book is shelved, or nil.
func (a *app) persistence(book string) reader.Persistence {
	if _, err := a.shelf.CategoryDir(book); err != nil {
		return nil
	}
	return a.store
}
