// Package container walks the block structure of image files: JPEG segments,
// PNG chunks, GIF extension blocks and WEBP RIFF chunks. It surfaces the
// ancillary metadata each container carries and removes or replaces metadata
// blocks without touching the encoded pixels.
package container

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
)

// Errors
var (
	ErrInvalidData     = errors.New("container: invalid data")
	ErrSegmentTooLarge = errors.New("container: segment exceeds 65533 bytes")
)

// JPEG markers
const (
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerSOS   = 0xDA
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP2  = 0xE2
	markerAPP13 = 0xED
	markerAPP14 = 0xEE
	markerCOM   = 0xFE

	maxSegmentData = 0xFFFF - 2
)

var (
	exifPrefix      = []byte("Exif\x00\x00")
	xmpPrefix       = []byte("http://ns.adobe.com/xap/1.0/\x00")
	iccPrefix       = []byte("ICC_PROFILE\x00")
	photoshopPrefix = []byte("Photoshop 3.0\x00")
	jfifPrefix      = []byte("JFIF\x00")
	adobePrefix     = []byte("Adobe")
)

// Segment is one marker segment; Data excludes the marker and length bytes
type Segment struct {
	Marker byte
	Data   []byte
}

// JPEG is a JPEG file split into its header segments and the entropy-coded remainder
type JPEG struct {
	Segments []Segment
	// Scan holds everything from the first SOS (or EOI) marker to the end of the file
	Scan []byte
}

// ParseJPEG splits data into segments up to the first scan
func ParseJPEG(data []byte) (*JPEG, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing JPEG SOI marker", ErrInvalidData)
	}

	j := &JPEG{}
	pos := 2
	for {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("%w: JPEG ends before first scan", ErrInvalidData)
		}
		if data[pos] != 0xFF {
			return nil, fmt.Errorf("%w: expected marker at offset %d", ErrInvalidData, pos)
		}
		marker := data[pos+1]
		switch {
		case marker == 0xFF:
			// fill byte
			pos++
			continue
		case marker == markerSOS || marker == markerEOI:
			j.Scan = data[pos:]
			return j, nil
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			j.Segments = append(j.Segments, Segment{Marker: marker})
			pos += 2
			continue
		}

		if pos+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated segment length at offset %d", ErrInvalidData, pos)
		}
		n := int(binary.BigEndian.Uint16(data[pos+2:]))
		if n < 2 || pos+2+n > len(data) {
			return nil, fmt.Errorf("%w: segment 0x%02X at offset %d overruns file", ErrInvalidData, marker, pos)
		}
		j.Segments = append(j.Segments, Segment{Marker: marker, Data: data[pos+4 : pos+2+n]})
		pos += 2 + n
	}
}

func standalone(marker byte) bool {
	return marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7)
}

// Bytes reassembles the file
func (j *JPEG) Bytes() []byte {
	size := 2 + len(j.Scan)
	for _, s := range j.Segments {
		size += 4 + len(s.Data)
	}
	out := make([]byte, 0, size)
	out = append(out, 0xFF, markerSOI)
	for _, s := range j.Segments {
		out = append(out, 0xFF, s.Marker)
		if standalone(s.Marker) {
			continue
		}
		out = binary.BigEndian.AppendUint16(out, uint16(len(s.Data)+2))
		out = append(out, s.Data...)
	}
	return append(out, j.Scan...)
}

func (j *JPEG) find(marker byte, prefix []byte) int {
	for i, s := range j.Segments {
		if s.Marker == marker && bytes.HasPrefix(s.Data, prefix) {
			return i
		}
	}
	return -1
}

// Exif returns the TIFF block of the first APP1 Exif segment
func (j *JPEG) Exif() ([]byte, bool) {
	i := j.find(markerAPP1, exifPrefix)
	if i < 0 {
		return nil, false
	}
	return j.Segments[i].Data[len(exifPrefix):], true
}

// SetExif replaces the APP1 Exif segment with segment (which must carry the
// Exif header), inserting one after SOI and any JFIF APP0 when none exists.
func (j *JPEG) SetExif(segment []byte) error {
	if !bytes.HasPrefix(segment, exifPrefix) {
		return fmt.Errorf("%w: segment lacks Exif header", ErrInvalidData)
	}
	if len(segment) > maxSegmentData {
		return fmt.Errorf("%w: %d bytes", ErrSegmentTooLarge, len(segment))
	}
	seg := Segment{Marker: markerAPP1, Data: segment}
	if i := j.find(markerAPP1, exifPrefix); i >= 0 {
		j.Segments[i] = seg
		return nil
	}

	at := 0
	for at < len(j.Segments) && j.Segments[at].Marker == markerAPP0 {
		at++
	}
	j.Segments = append(j.Segments, Segment{})
	copy(j.Segments[at+1:], j.Segments[at:])
	j.Segments[at] = seg
	return nil
}

func isMetadataSegment(s Segment) bool {
	switch s.Marker {
	case markerAPP1, markerAPP13, markerCOM:
		return true
	case markerAPP2:
		return bytes.HasPrefix(s.Data, iccPrefix)
	}
	return false
}

// StripMetadata drops APP1 (EXIF, XMP), APP2 ICC, APP13 and COM segments and
// reports how many were removed
func (j *JPEG) StripMetadata() int {
	kept := j.Segments[:0]
	removed := 0
	for _, s := range j.Segments {
		if isMetadataSegment(s) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	j.Segments = kept
	return removed
}

// IPTC returns the IIM block stored in the Photoshop APP13 resource 0x0404
func (j *JPEG) IPTC() ([]byte, bool) {
	i := j.find(markerAPP13, photoshopPrefix)
	if i < 0 {
		return nil, false
	}
	return photoshopResource(j.Segments[i].Data[len(photoshopPrefix):], iptcResourceID)
}

// Ancillary reports the non-EXIF metadata: JFIF density, Adobe transform,
// the XMP packet, comments and the ICC profile
func (j *JPEG) Ancillary() picture.Fields {
	fields := picture.Fields{}
	var icc []byte
	for _, s := range j.Segments {
		switch {
		case s.Marker == markerAPP0 && bytes.HasPrefix(s.Data, jfifPrefix) && len(s.Data) >= 12:
			d := s.Data[len(jfifPrefix):]
			unit := int64(d[2])
			x, y := int64(binary.BigEndian.Uint16(d[3:])), int64(binary.BigEndian.Uint16(d[5:]))
			fields["jfif_version"] = picture.IntegerValue(int64(d[0]), int64(d[1]))
			fields["jfif_unit"] = picture.IntegerValue(unit)
			fields["jfif_density"] = picture.IntegerValue(x, y)
			if unit == 1 {
				fields["dpi"] = picture.IntegerValue(x, y)
			}
		case s.Marker == markerAPP1 && bytes.HasPrefix(s.Data, xmpPrefix):
			fields["xmp"] = textOrRaw(s.Data[len(xmpPrefix):])
		case s.Marker == markerAPP2 && bytes.HasPrefix(s.Data, iccPrefix) && len(s.Data) > len(iccPrefix)+2:
			// sequence number and chunk count precede each profile chunk
			icc = append(icc, s.Data[len(iccPrefix)+2:]...)
		case s.Marker == markerAPP14 && bytes.HasPrefix(s.Data, adobePrefix) && len(s.Data) >= 12:
			fields["adobe_transform"] = picture.IntegerValue(int64(s.Data[11]))
		case s.Marker == markerCOM:
			if _, ok := fields["comment"]; !ok {
				fields["comment"] = textOrRaw(s.Data)
			}
		}
	}
	if len(icc) > 0 {
		fields["icc_profile"] = picture.RawValue(icc)
	}
	return fields
}
