// Package config loads the reader configuration.
package config

// Config represents the overall application configuration
type Config struct {
	Reader  ReaderConfig  `yaml:"reader"`
	Storage StorageConfig `yaml:"storage"`
	Library LibraryConfig `yaml:"library"`
}

// ReaderConfig holds the default font and viewport.
type ReaderConfig struct {
	FontFamily     string `yaml:"font_family"`
	FontSize       int    `yaml:"font_size"` // points
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
}

// StorageConfig defines storage adapter settings
type StorageConfig struct {
	Adapter string           `yaml:"adapter"` // "local" or "s3"
	Local   LocalStorageOpts `yaml:"local"`
	S3      S3StorageOpts    `yaml:"s3"`
}

// LocalStorageOpts configures the local filesystem adapter
type LocalStorageOpts struct {
	BasePath string `yaml:"base_path"`
}

// S3StorageOpts configures the S3-compatible adapter
type S3StorageOpts struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// LibraryConfig assigns books to categories.
type LibraryConfig struct {
	// Order lists category names by priority; categories missing from it
	// follow in name order.
	Order      []string                  `yaml:"order"`
	Categories map[string]CategoryConfig `yaml:"categories"`
}

// CategoryConfig is one category and the books it holds.
type CategoryConfig struct {
	Dir   string   `yaml:"dir"`
	Books []string `yaml:"books"`
}
