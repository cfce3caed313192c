// Package testutils builds image fixtures for package tests
package testutils

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/container"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/exifdir"
	"github.com/LazySeaHorse/Just-De-Pic/internal/platform/storage"
)

// Gradient returns an opaque test pattern
func Gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / max(width-1, 1)),
				G: uint8(y * 255 / max(height-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

// Encode encodes img in format with default settings
func Encode(t testing.TB, img image.Image, format picture.Format) []byte {
	t.Helper()
	data, err := storage.NewProcessor(0, 0).EncodeBytes(context.Background(), img, format, 0)
	require.NoError(t, err)
	return data
}

// WriteFile writes data to name inside dir and returns the path
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// WriteImage encodes a gradient of the given size into a fresh file under t.TempDir
func WriteImage(t testing.TB, name string, width, height int, format picture.Format) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), name, Encode(t, Gradient(width, height), format))
}

// ReadFile returns the file contents
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// ExifSegment builds an APP1 payload carrying the named tags
func ExifSegment(t testing.TB, tags map[string]string) []byte {
	t.Helper()
	dir := exifdir.New()
	for name, value := range tags {
		_, err := dir.SetByName(name, picture.TextValue(value))
		require.NoError(t, err, "tag %s", name)
	}
	segment, err := dir.Segment()
	require.NoError(t, err)
	return segment
}

// JPEGWithExif encodes a gradient JPEG and inserts an EXIF segment with tags
func JPEGWithExif(t testing.TB, width, height int, tags map[string]string) []byte {
	t.Helper()
	j, err := container.ParseJPEG(Encode(t, Gradient(width, height), picture.FormatJPEG))
	require.NoError(t, err)
	require.NoError(t, j.SetExif(ExifSegment(t, tags)))
	return j.Bytes()
}

// InsertJPEGSegment adds a marker segment right after SOI
func InsertJPEGSegment(t testing.TB, data []byte, marker byte, payload []byte) []byte {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8}), "not a JPEG")
	require.LessOrEqual(t, len(payload), 0xFFFF-2)

	n := len(payload) + 2
	out := make([]byte, 0, len(data)+n+2)
	out = append(out, 0xFF, 0xD8, 0xFF, marker, byte(n>>8), byte(n))
	out = append(out, payload...)
	return append(out, data[2:]...)
}

// InsertPNGChunk adds an ancillary chunk right after IHDR
func InsertPNGChunk(t testing.TB, data []byte, typ string, payload []byte) []byte {
	t.Helper()
	require.Len(t, typ, 4)
	const ihdrEnd = 8 + 25
	require.Greater(t, len(data), ihdrEnd)

	var chunk bytes.Buffer
	chunk.Write([]byte{byte(len(payload) >> 24), byte(len(payload) >> 16), byte(len(payload) >> 8), byte(len(payload))})
	chunk.WriteString(typ)
	chunk.Write(payload)
	crc := crc32.ChecksumIEEE(append([]byte(typ), payload...))
	chunk.Write([]byte{byte(crc >> 24), byte(crc >> 16), byte(crc >> 8), byte(crc)})

	out := append([]byte(nil), data[:ihdrEnd]...)
	out = append(out, chunk.Bytes()...)
	return append(out, data[ihdrEnd:]...)
}

// CyclicTIFF builds a TIFF block whose two directories name each other as the
// next directory. Each carries a single inline Make tag.
func CyclicTIFF(order binary.AppendByteOrder) []byte {
	const ifd0, ifd1 = 8, 26
	out := make([]byte, 0, 44)
	if order == binary.BigEndian {
		out = append(out, 'M', 'M')
	} else {
		out = append(out, 'I', 'I')
	}
	out = order.AppendUint16(out, 42)
	out = order.AppendUint32(out, ifd0)
	for _, next := range []uint32{ifd1, ifd0} {
		out = order.AppendUint16(out, 1)
		out = order.AppendUint16(out, 0x010F)
		out = order.AppendUint16(out, 2)
		out = order.AppendUint32(out, 2)
		out = append(out, 'A', 0, 0, 0)
		out = order.AppendUint32(out, next)
	}
	return out
}
