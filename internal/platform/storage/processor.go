package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register gif decoding
	_ "image/jpeg" // Register jpeg decoding
	_ "image/png"  // Register png decoding
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp" // Register bmp decoding
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // Register tiff decoding
	_ "golang.org/x/image/webp" // Register webp decoding

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/ico"
)

const (
	defaultJPEGQuality = 75
	defaultMaxPixels   = 100_000_000
)

// ErrTooManyPixels is returned when an image exceeds the configured pixel budget
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// Decoded is a decoded image together with what was learned about its container
type Decoded struct {
	Image  image.Image
	Format picture.Format
	Mode   string
}

// Width returns the decoded width
func (d *Decoded) Width() int {
	return d.Image.Bounds().Dx()
}

// Height returns the decoded height
func (d *Decoded) Height() int {
	return d.Image.Bounds().Dy()
}

// Processor decodes and encodes images in every supported container format
type Processor struct {
	quality   int
	maxPixels int64
}

// NewProcessor creates a new image processor
func NewProcessor(quality int, maxPixels int64) *Processor {
	if quality <= 0 || quality > 100 {
		quality = defaultJPEGQuality
	}
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}

	return &Processor{
		quality:   quality,
		maxPixels: maxPixels,
	}
}

// Quality returns the default JPEG quality
func (p *Processor) Quality() int {
	return p.quality
}

// DecodeConfig reads dimensions and format without decoding pixels
func (p *Processor) DecodeConfig(data []byte) (image.Config, picture.Format, error) {
	if ico.Match(data) {
		cfg, err := ico.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return image.Config{}, "", fmt.Errorf("failed to decode image config: %w", err)
		}
		return cfg, picture.FormatICO, nil
	}
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("failed to decode image config: %w", err)
	}
	format, err := picture.FormatFromDecoderName(name)
	if err != nil {
		return cfg, "", err
	}
	return cfg, format, nil
}

// Decode decodes data after checking its dimensions against the pixel limit
func (p *Processor) Decode(ctx context.Context, data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, errors.New("data cannot be empty")
	}

	cfg, _, err := p.DecodeConfig(data)
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooManyPixels, cfg.Width, cfg.Height, p.maxPixels)
	}

	var (
		img    image.Image
		format picture.Format
	)
	if ico.Match(data) {
		img, err = ico.Decode(bytes.NewReader(data))
		format = picture.FormatICO
	} else {
		var name string
		if img, name, err = image.Decode(bytes.NewReader(data)); err == nil {
			format, err = picture.FormatFromDecoderName(name)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return &Decoded{Image: img, Format: format, Mode: ColorMode(img)}, nil
}

// Encode writes img in the given container format. Quality applies to JPEG only;
// zero selects the processor default. WEBP is written lossless.
func (p *Processor) Encode(ctx context.Context, w io.Writer, img image.Image, format picture.Format, quality int) error {
	if img == nil {
		return errors.New("image cannot be nil")
	}
	if quality <= 0 || quality > 100 {
		quality = p.quality
	}

	switch format {
	case picture.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case picture.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	case picture.FormatGIF:
		return imaging.Encode(w, img, imaging.GIF)
	case picture.FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case picture.FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case picture.FormatICO:
		return ico.Encode(w, img)
	case picture.FormatWEBP:
		return nativewebp.Encode(w, imaging.Clone(img), nil)
	}
	if !format.Info().Encodable {
		return fmt.Errorf("%w: no encoder for %s", picture.ErrUnsupportedFormat, format)
	}
	return fmt.Errorf("%w: %s", picture.ErrUnsupportedFormat, format)
}

// EncodeBytes is Encode into a fresh buffer
func (p *Processor) EncodeBytes(ctx context.Context, img image.Image, format picture.Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(ctx, &buf, img, format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ColorMode names the pixel model of img using the conventional short mode names
func ColorMode(img image.Image) string {
	switch m := img.(type) {
	case *image.Gray, *image.Alpha:
		return "L"
	case *image.Gray16, *image.Alpha16:
		return "I;16"
	case *image.Paletted:
		if isBilevel(m.Palette) {
			return "1"
		}
		return "P"
	case *image.CMYK:
		return "CMYK"
	case *image.YCbCr:
		return "RGB"
	case *image.NYCbCrA:
		return "RGBA"
	case interface{ Opaque() bool }:
		if m.Opaque() {
			return "RGB"
		}
		return "RGBA"
	}
	return "RGB"
}

func isBilevel(p color.Palette) bool {
	if len(p) != 2 {
		return false
	}
	g0 := color.GrayModel.Convert(p[0]).(color.Gray)
	g1 := color.GrayModel.Convert(p[1]).(color.Gray)
	return (g0.Y == 0 && g1.Y == 0xFF) || (g0.Y == 0xFF && g1.Y == 0)
}

// ClonePixels copies img into a freshly allocated image of the same pixel model
// and size, leaving behind anything the decoder attached beyond pixels
func ClonePixels(img image.Image) image.Image {
	b := img.Bounds()
	var dst draw.Image
	switch src := img.(type) {
	case *image.YCbCr:
		out := image.NewYCbCr(b, src.SubsampleRatio)
		if out.YStride == src.YStride && out.CStride == src.CStride {
			copy(out.Y, src.Y)
			copy(out.Cb, src.Cb)
			copy(out.Cr, src.Cr)
			return out
		}
		return imaging.Clone(img)
	case *image.Paletted:
		out := image.NewPaletted(b, append(color.Palette(nil), src.Palette...))
		if out.Stride == src.Stride && len(out.Pix) == len(src.Pix) {
			copy(out.Pix, src.Pix)
			return out
		}
		dst = out
	case *image.Gray:
		dst = image.NewGray(b)
	case *image.Gray16:
		dst = image.NewGray16(b)
	case *image.CMYK:
		dst = image.NewCMYK(b)
	case *image.RGBA:
		dst = image.NewRGBA(b)
	case *image.RGBA64:
		dst = image.NewRGBA64(b)
	case *image.NRGBA64:
		dst = image.NewNRGBA64(b)
	default:
		return imaging.Clone(img)
	}
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
