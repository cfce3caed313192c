package container

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
)

// VP8X feature flags
const (
	vp8xICC  = 0x20
	vp8xEXIF = 0x08
	vp8xXMP  = 0x04
)

// WebP is a RIFF WEBP file split into chunks
type WebP struct {
	Chunks []Chunk
}

// ParseWebP splits a RIFF WEBP file into chunks
func ParseWebP(data []byte) (*WebP, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil, fmt.Errorf("%w: missing RIFF WEBP header", ErrInvalidData)
	}
	end := 8 + int(binary.LittleEndian.Uint32(data[4:8]))
	if end > len(data) {
		end = len(data)
	}

	w := &WebP{}
	pos := 12
	for pos+8 <= end {
		typ := string(data[pos : pos+4])
		n := int(binary.LittleEndian.Uint32(data[pos+4:]))
		if n < 0 || pos+8+n > end {
			return nil, fmt.Errorf("%w: chunk %q overruns file", ErrInvalidData, typ)
		}
		w.Chunks = append(w.Chunks, Chunk{Type: typ, Data: data[pos+8 : pos+8+n]})
		pos += 8 + n + n%2
	}
	return w, nil
}

// Bytes reassembles the file with a recomputed RIFF size
func (w *WebP) Bytes() []byte {
	var body bytes.Buffer
	body.WriteString("WEBP")
	for _, c := range w.Chunks {
		body.WriteString(c.Type)
		binary.Write(&body, binary.LittleEndian, uint32(len(c.Data)))
		body.Write(c.Data)
		if len(c.Data)%2 == 1 {
			body.WriteByte(0)
		}
	}
	out := make([]byte, 0, 8+body.Len())
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(body.Len()))
	return append(out, body.Bytes()...)
}

// Ancillary reports the EXIF, XMP and ICCP chunks
func (w *WebP) Ancillary() picture.Fields {
	fields := picture.Fields{}
	for _, c := range w.Chunks {
		switch c.Type {
		case "EXIF":
			fields["exif"] = picture.RawValue(c.Data)
		case "XMP ":
			fields["xmp"] = textOrRaw(c.Data)
		case "ICCP":
			fields["icc_profile"] = picture.RawValue(c.Data)
		}
	}
	return fields
}

// StripMetadata drops EXIF, XMP and ICCP chunks, clears the matching VP8X
// flags and reports how many chunks were removed
func (w *WebP) StripMetadata() int {
	kept := w.Chunks[:0]
	removed := 0
	for _, c := range w.Chunks {
		switch c.Type {
		case "EXIF", "XMP ", "ICCP":
			removed++
			continue
		case "VP8X":
			if len(c.Data) > 0 {
				flags := append([]byte(nil), c.Data...)
				flags[0] &^= vp8xICC | vp8xEXIF | vp8xXMP
				c.Data = flags
			}
		}
		kept = append(kept, c)
	}
	w.Chunks = kept
	return removed
}
