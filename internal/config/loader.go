package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MinFontSize is the smallest accepted font size in points.
const MinFontSize = 6

// Load reads and parses the configuration file.
// Values missing from the file keep their defaults, and EPUBREADER_
// environment variables override both.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads configPath when it is set, otherwise the defaults with
// environment overrides applied.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath != "" {
		return Load(configPath)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if cfg.Reader.FontSize < MinFontSize {
		return fmt.Errorf("invalid font size: %d (minimum %d)", cfg.Reader.FontSize, MinFontSize)
	}
	if cfg.Reader.ViewportWidth < 0 || cfg.Reader.ViewportHeight < 0 {
		return fmt.Errorf("invalid viewport: %dx%d", cfg.Reader.ViewportWidth, cfg.Reader.ViewportHeight)
	}

	if cfg.Storage.Adapter != "local" && cfg.Storage.Adapter != "s3" {
		return fmt.Errorf("invalid storage adapter: %s (must be 'local' or 's3')", cfg.Storage.Adapter)
	}

	if cfg.Storage.Adapter == "local" && cfg.Storage.Local.BasePath == "" {
		return fmt.Errorf("local storage base_path is required")
	}

	if cfg.Storage.Adapter == "s3" {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	}

	for name, c := range cfg.Library.Categories {
		if name == "" {
			return fmt.Errorf("library category name is required")
		}
		if c.Dir != "" && filepath.IsAbs(c.Dir) {
			return fmt.Errorf("library category %q dir must be relative: %s", name, c.Dir)
		}
	}
	for _, name := range cfg.Library.Order {
		if _, ok := cfg.Library.Categories[name]; !ok {
			return fmt.Errorf("library order names unknown category %q", name)
		}
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides
// Environment variables are prefixed with EPUBREADER_
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("EPUBREADER_FONT_FAMILY"); val != "" {
		cfg.Reader.FontFamily = val
	}
	if val, ok := envInt("EPUBREADER_FONT_SIZE"); ok {
		cfg.Reader.FontSize = val
	}
	if val, ok := envInt("EPUBREADER_VIEWPORT_WIDTH"); ok {
		cfg.Reader.ViewportWidth = val
	}
	if val, ok := envInt("EPUBREADER_VIEWPORT_HEIGHT"); ok {
		cfg.Reader.ViewportHeight = val
	}

	if val := os.Getenv("EPUBREADER_STORAGE_ADAPTER"); val != "" {
		cfg.Storage.Adapter = val
	}
	if val := os.Getenv("EPUBREADER_STORAGE_LOCAL_BASE_PATH"); val != "" {
		cfg.Storage.Local.BasePath = val
	}
	if val := os.Getenv("EPUBREADER_STORAGE_S3_BUCKET"); val != "" {
		cfg.Storage.S3.Bucket = val
	}
	if val := os.Getenv("EPUBREADER_STORAGE_S3_REGION"); val != "" {
		cfg.Storage.S3.Region = val
	}
	if val := os.Getenv("EPUBREADER_STORAGE_S3_ENDPOINT"); val != "" {
		cfg.Storage.S3.Endpoint = val
	}
	if val := os.Getenv("EPUBREADER_STORAGE_S3_ACCESS_KEY_ID"); val != "" {
		cfg.Storage.S3.AccessKeyID = val
	}
	if val := os.Getenv("EPUBREADER_STORAGE_S3_SECRET_ACCESS_KEY"); val != "" {
		cfg.Storage.S3.SecretAccessKey = val
	}
}

func envInt(key string) (int, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Default returns a default configuration
func Default() *Config {
	basePath := filepath.Join(os.TempDir(), "epubreader")
	if dir, err := os.UserConfigDir(); err == nil {
		basePath = filepath.Join(dir, "epubreader")
	}

	return &Config{
		Reader: ReaderConfig{
			FontFamily:     "Noto Serif",
			FontSize:       13,
			ViewportWidth:  600,
			ViewportHeight: 800,
		},
		Storage: StorageConfig{
			Adapter: "local",
			Local: LocalStorageOpts{
				BasePath: basePath,
			},
		},
		Library: LibraryConfig{
			Categories: map[string]CategoryConfig{},
		},
	}
}
