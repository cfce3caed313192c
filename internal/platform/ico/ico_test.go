package ico

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 32, 16))
	src.SetNRGBA(3, 4, color.NRGBA{R: 200, G: 10, B: 20, A: 255})

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, src))

	img, format, err := image.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "ico", format)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())

	r, g, b, a := img.At(3, 4).RGBA()
	er, eg, eb, ea := src.At(3, 4).RGBA()
	assert.Equal(t, []uint32{er, eg, eb, ea}, []uint32{r, g, b, a})
	_, _, _, a = img.At(0, 0).RGBA()
	assert.Zero(t, a)

	cfg, err := DecodeConfig(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.True(t, Match(buf.Bytes()))
}

func TestEncodeRejectsOversizedImages(t *testing.T) {
	err := Encode(&bytes.Buffer{}, image.NewNRGBA(image.Rect(0, 0, 300, 10)))
	assert.ErrorIs(t, err, ErrTooLarge)

	err = Encode(&bytes.Buffer{}, image.NewNRGBA(image.Rect(0, 0, 0, 10)))
	assert.ErrorIs(t, err, ErrInvalidIcon)
}

func TestEncodeFullSizeEntryUsesZeroDimension(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 256, 256))))

	data := buf.Bytes()
	assert.Equal(t, byte(0), data[6])
	assert.Equal(t, byte(0), data[7])

	cfg, err := DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.Width)
	assert.Equal(t, 256, cfg.Height)
}

// buildDIBIcon assembles a 32bpp bottom-up DIB icon with one opaque red pixel at (0,0)
func buildDIBIcon(w, h int) []byte {
	var dib bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&dib, le, uint32(40))
	binary.Write(&dib, le, int32(w))
	binary.Write(&dib, le, int32(h*2))
	binary.Write(&dib, le, uint16(1))
	binary.Write(&dib, le, uint16(32))
	dib.Write(make([]byte, 24))

	pix := make([]byte, w*h*4)
	// (0,0) lives on the last stored row
	top := (h - 1) * w * 4
	pix[top+2] = 0xFF
	pix[top+3] = 0xFF
	dib.Write(pix)
	dib.Write(make([]byte, ((w+31)/32)*4*h))

	var out bytes.Buffer
	binary.Write(&out, le, uint16(0))
	binary.Write(&out, le, uint16(1))
	binary.Write(&out, le, uint16(1))
	out.Write([]byte{byte(w), byte(h), 0, 0})
	binary.Write(&out, le, uint16(1))
	binary.Write(&out, le, uint16(32))
	binary.Write(&out, le, uint32(dib.Len()))
	binary.Write(&out, le, uint32(dirHeaderLen+dirEntryLen))
	out.Write(dib.Bytes())
	return out.Bytes()
}

func TestDecodeBGRAEntry(t *testing.T) {
	img, err := Decode(bytes.NewReader(buildDIBIcon(2, 2)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, color.NRGBA{R: 0xFF, A: 0xFF}, img.At(0, 0))
	assert.Equal(t, color.NRGBA{}, img.At(1, 1))
}

func TestDecodeInvalidData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"wrong type", []byte{0, 0, 9, 0, 1, 0}},
		{"zero entries", []byte{0, 0, 1, 0, 0, 0}},
		{"truncated directory", []byte{0, 0, 1, 0, 2, 0, 16, 16}},
		{"entry past end", append([]byte{0, 0, 1, 0, 1, 0, 16, 16, 0, 0, 1, 0, 32, 0, 0xFF, 0, 0, 0, 22, 0, 0, 0}, 1, 2, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrInvalidIcon)
			_, err = DecodeConfig(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrInvalidIcon)
		})
	}
}
