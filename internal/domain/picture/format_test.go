package picture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFromDecoderName(t *testing.T) {
	for _, f := range []Format{FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatTIFF, FormatWEBP, FormatICO} {
		got, err := FormatFromDecoderName(f.Info().DecoderName)
		assert.NoError(t, err)
		assert.Equal(t, f, got)
		assert.True(t, f.Valid())
	}

	got, err := FormatFromDecoderName("JPEG")
	assert.NoError(t, err)
	assert.Equal(t, FormatJPEG, got)

	_, err = FormatFromDecoderName("heic")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, Format("HEIC").Valid())
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"photo.jpg", FormatJPEG, true},
		{"photo.JPEG", FormatJPEG, true},
		{"/a/b/scan.tif", FormatTIFF, true},
		{"icon.ico", FormatICO, true},
		{"anim.webp", FormatWEBP, true},
		{"notes.txt", "", false},
		{"noext", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := FormatFromPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, IsImageFile(tt.path))
		})
	}

	f, ok := FormatFromExtension("png")
	assert.True(t, ok)
	assert.Equal(t, FormatPNG, f)
}

func TestIsJPEGFamily(t *testing.T) {
	assert.True(t, IsJPEGFamily("a.jpg"))
	assert.True(t, IsJPEGFamily("a.Jpeg"))
	assert.False(t, IsJPEGFamily("a.png"))
	assert.False(t, IsJPEGFamily("jpg"))
}

func TestFormatCapabilities(t *testing.T) {
	assert.True(t, FormatJPEG.Info().TagWrite)
	assert.True(t, FormatTIFF.Info().StructuredTags)
	assert.False(t, FormatTIFF.Info().TagWrite)
	assert.True(t, FormatWEBP.Info().Encodable)
	assert.False(t, Format("HEIC").Info().Encodable)
	assert.True(t, FormatJPEG.Info().LossyReencode)
	assert.False(t, FormatPNG.Info().LossyReencode)
}
