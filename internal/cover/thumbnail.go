package cover

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	defaultMaxWidth  = 300
	defaultQuality   = 90
	defaultMaxPixels = 100 * 1000 * 1000 // 100 megapixels
)

// Thumbnailer downsizes cover images.
type Thumbnailer struct {
	MaxWidth  int
	Quality   int
	MaxPixels int // Total pixel count limit for decode (width * height)
}

// Thumbnail holds an encoded thumbnail.
type Thumbnail struct {
	Data   []byte
	Width  int
	Height int
	Format string // "jpeg" or "png"
}

// NewThumbnailer creates a thumbnailer, using defaults for values <= 0.
func NewThumbnailer(maxWidth, quality int) *Thumbnailer {
	if maxWidth <= 0 {
		maxWidth = defaultMaxWidth
	}
	if quality <= 0 {
		quality = defaultQuality
	}
	if quality > 100 {
		quality = 100
	}
	return &Thumbnailer{
		MaxWidth:  maxWidth,
		Quality:   quality,
		MaxPixels: defaultMaxPixels,
	}
}

// Render decodes a jpeg, png or gif image and scales it down to MaxWidth,
// keeping the aspect ratio. Transparent images stay PNG; everything else
// is encoded as JPEG.
func (t *Thumbnailer) Render(input []byte) (*Thumbnail, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if t.MaxPixels > 0 && pixels > uint64(t.MaxPixels) {
		return nil, fmt.Errorf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
	}

	src, _, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	processed := src
	if t.MaxWidth > 0 && src.Bounds().Dx() > t.MaxWidth {
		processed = imaging.Resize(src, t.MaxWidth, 0, imaging.Lanczos)
	}

	out := &Thumbnail{
		Width:  processed.Bounds().Dx(),
		Height: processed.Bounds().Dy(),
	}

	var buf bytes.Buffer
	if hasAlpha(processed) {
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		if err := encoder.Encode(&buf, processed); err != nil {
			return nil, fmt.Errorf("png encode failed: %w", err)
		}
		out.Format = "png"
	} else {
		if err := jpeg.Encode(&buf, processed, &jpeg.Options{Quality: t.Quality}); err != nil {
			return nil, fmt.Errorf("jpeg encode failed: %w", err)
		}
		out.Format = "jpeg"
	}
	out.Data = buf.Bytes()
	return out, nil
}

// Extension returns the file extension matching the thumbnail format.
func (th *Thumbnail) Extension() string {
	if th.Format == "png" {
		return ".png"
	}
	return ".jpg"
}

// IsSupported reports whether mediaType can be rendered.
func IsSupported(mediaType string) bool {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif":
		return true
	}
	return false
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a < 0xFFFF {
				return true
			}
		}
	}
	return false
}
