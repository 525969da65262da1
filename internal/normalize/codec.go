package normalize

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/fenilsonani/orgest/internal/config"
)

// Codec decodes and re-encodes images by file extension
type Codec interface {
	// Supports reports whether ext (lowercase, with dot) can be round-tripped
	Supports(ext string) bool
	Decode(path string) (image.Image, error)
	Encode(w io.Writer, img image.Image, ext string) error
}

// ImagingCodec is the default Codec
type ImagingCodec struct {
	JPEGQuality int
	WEBPQuality int
	PNGOptimize bool
	AutoOrient  bool
}

// NewImagingCodec creates a codec from normalize settings
func NewImagingCodec(cfg config.NormalizeConfig) *ImagingCodec {
	return &ImagingCodec{
		JPEGQuality: cfg.JPEGQuality,
		WEBPQuality: cfg.WEBPQuality,
		PNGOptimize: cfg.PNGOptimize,
		AutoOrient:  cfg.AutoOrient,
	}
}

var imagingFormats = map[string]imaging.Format{
	".jpg":  imaging.JPEG,
	".jpeg": imaging.JPEG,
	".png":  imaging.PNG,
	".gif":  imaging.GIF,
	".bmp":  imaging.BMP,
	".tif":  imaging.TIFF,
	".tiff": imaging.TIFF,
}

// Supports implements Codec
func (c *ImagingCodec) Supports(ext string) bool {
	if ext == ".webp" {
		return true
	}
	_, ok := imagingFormats[ext]
	return ok
}

// Decode implements Codec. With AutoOrient set, EXIF orientation is applied
// to the pixels.
func (c *ImagingCodec) Decode(path string) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		img image.Image
		err error
	)
	if ext == ".webp" {
		img, err = decodeWebP(path)
	} else {
		img, err = imaging.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	if c.AutoOrient {
		img = applyOrientation(img, readOrientation(path))
	}
	return img, nil
}

func decodeWebP(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return webp.Decode(f)
}

// Encode implements Codec
func (c *ImagingCodec) Encode(w io.Writer, img image.Image, ext string) error {
	if ext == ".webp" {
		return webp.Encode(w, img, &webp.Options{Quality: float32(c.WEBPQuality)})
	}

	format, ok := imagingFormats[ext]
	if !ok {
		return fmt.Errorf("no encoder for %s", ext)
	}

	var opts []imaging.EncodeOption
	switch format {
	case imaging.JPEG:
		opts = append(opts, imaging.JPEGQuality(c.JPEGQuality))
	case imaging.PNG:
		level := png.DefaultCompression
		if c.PNGOptimize {
			level = png.BestCompression
		}
		opts = append(opts, imaging.PNGCompressionLevel(level))
	}
	return imaging.Encode(w, img, format, opts...)
}
