package picture

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies an image container format
type Format string

// Supported container formats
const (
	FormatJPEG Format = "JPEG"
	FormatPNG  Format = "PNG"
	FormatGIF  Format = "GIF"
	FormatBMP  Format = "BMP"
	FormatTIFF Format = "TIFF"
	FormatWEBP Format = "WEBP"
	FormatICO  Format = "ICO"
)

// FormatInfo describes what the core can do with a container format
type FormatInfo struct {
	Format Format

	// DecoderName is the name the image registry reports for this format
	DecoderName string
	Extensions  []string

	// StructuredTags is set for containers carrying an EXIF tag directory
	StructuredTags bool
	// TagWrite is set for containers whose tag directory can be rewritten in place
	TagWrite bool
	// LossyReencode is set when re-encoding honours a quality setting
	LossyReencode bool
	// Encodable is false when no encoder is available for the format
	Encodable bool
}

var formats = map[Format]FormatInfo{
	FormatJPEG: {
		Format:         FormatJPEG,
		DecoderName:    "jpeg",
		Extensions:     []string{".jpg", ".jpeg"},
		StructuredTags: true,
		TagWrite:       true,
		LossyReencode:  true,
		Encodable:      true,
	},
	FormatPNG: {
		Format:      FormatPNG,
		DecoderName: "png",
		Extensions:  []string{".png"},
		Encodable:   true,
	},
	FormatGIF: {
		Format:      FormatGIF,
		DecoderName: "gif",
		Extensions:  []string{".gif"},
		Encodable:   true,
	},
	FormatBMP: {
		Format:      FormatBMP,
		DecoderName: "bmp",
		Extensions:  []string{".bmp"},
		Encodable:   true,
	},
	FormatTIFF: {
		Format:         FormatTIFF,
		DecoderName:    "tiff",
		Extensions:     []string{".tiff", ".tif"},
		StructuredTags: true,
		Encodable:      true,
	},
	FormatWEBP: {
		Format:      FormatWEBP,
		DecoderName: "webp",
		Extensions:  []string{".webp"},
		Encodable:   true,
	},
	FormatICO: {
		Format:      FormatICO,
		DecoderName: "ico",
		Extensions:  []string{".ico"},
		Encodable:   true,
	},
}

// Info returns the capability descriptor for the format
func (f Format) Info() FormatInfo {
	return formats[f]
}

// Valid reports whether f is one of the supported formats
func (f Format) Valid() bool {
	_, ok := formats[f]
	return ok
}

func (f Format) String() string {
	return string(f)
}

// FormatFromDecoderName maps the name reported by image.Decode to a Format
func FormatFromDecoderName(name string) (Format, error) {
	name = strings.ToLower(name)
	for f, info := range formats {
		if info.DecoderName == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// FormatFromExtension maps a file extension (with or without the dot) to a Format
func FormatFromExtension(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	for f, info := range formats {
		for _, e := range info.Extensions {
			if e == ext {
				return f, true
			}
		}
	}
	return "", false
}

// FormatFromPath resolves a Format from the extension of path
func FormatFromPath(path string) (Format, bool) {
	return FormatFromExtension(filepath.Ext(path))
}

// IsImageFile returns true if the path carries a supported image extension
func IsImageFile(path string) bool {
	_, ok := FormatFromPath(path)
	return ok
}

// IsJPEGFamily returns true if the path's extension belongs to the JPEG family
func IsJPEGFamily(path string) bool {
	f, ok := FormatFromPath(path)
	return ok && f == FormatJPEG
}
