// Package ico reads and writes Windows icon containers through
// github.com/biessek/golang-ico, which also registers the "ico" decoder with
// the image package.
//
// The directory is checked before any entry is handed to the decoder, so
// truncated or empty icons fail with ErrInvalidIcon instead of reaching it.
// Encoding writes a single PNG-compressed entry.
package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"

	icodec "github.com/biessek/golang-ico"
)

const (
	dirHeaderLen = 6
	dirEntryLen  = 16
	maxIconSize  = 256
	iconType     = 1
)

// Errors
var (
	ErrInvalidIcon = errors.New("ico: invalid icon data")
	ErrTooLarge    = errors.New("ico: image exceeds 256x256")
)

// Match reports whether data starts like an icon directory
func Match(data []byte) bool {
	return len(data) >= 4 && bytes.Equal(data[:4], []byte{0, 0, iconType, 0})
}

// Check validates the icon directory: at least one entry, and every entry's
// payload inside data
func Check(data []byte) error {
	if len(data) < dirHeaderLen {
		return fmt.Errorf("%w: short header", ErrInvalidIcon)
	}
	if binary.LittleEndian.Uint16(data[0:2]) != 0 {
		return fmt.Errorf("%w: bad reserved field", ErrInvalidIcon)
	}
	if typ := binary.LittleEndian.Uint16(data[2:4]); typ != iconType {
		return fmt.Errorf("%w: type %d", ErrInvalidIcon, typ)
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if count == 0 || len(data) < dirHeaderLen+count*dirEntryLen {
		return fmt.Errorf("%w: truncated directory", ErrInvalidIcon)
	}
	for i := 0; i < count; i++ {
		b := data[dirHeaderLen+i*dirEntryLen:]
		size := uint64(binary.LittleEndian.Uint32(b[8:12]))
		offset := uint64(binary.LittleEndian.Uint32(b[12:16]))
		if size == 0 || offset+size > uint64(len(data)) {
			return fmt.Errorf("%w: entry %d out of range", ErrInvalidIcon, i)
		}
	}
	return nil
}

func readChecked(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := Check(data); err != nil {
		return nil, err
	}
	return data, nil
}

// Decode reads the first image in an icon file
func Decode(r io.Reader) (img image.Image, err error) {
	data, err := readChecked(r)
	if err != nil {
		return nil, err
	}
	defer recoverInvalid(&err)
	img, err = icodec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIcon, err)
	}
	return img, nil
}

// DecodeConfig returns the dimensions of the first image in an icon file
func DecodeConfig(r io.Reader) (cfg image.Config, err error) {
	data, err := readChecked(r)
	if err != nil {
		return image.Config{}, err
	}
	defer recoverInvalid(&err)
	cfg, err = icodec.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, fmt.Errorf("%w: %v", ErrInvalidIcon, err)
	}
	return cfg, nil
}

// recoverInvalid turns a decoder panic on malformed entry data into ErrInvalidIcon
func recoverInvalid(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrInvalidIcon, r)
	}
}

// Encode writes img as a single-entry icon with a PNG payload
func Encode(w io.Writer, img image.Image) error {
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return fmt.Errorf("%w: empty image", ErrInvalidIcon)
	}
	if b.Dx() > maxIconSize || b.Dy() > maxIconSize {
		return fmt.Errorf("%w: %dx%d", ErrTooLarge, b.Dx(), b.Dy())
	}
	return icodec.Encode(w, img)
}
