package container

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
)

const (
	gifExtension = 0x21
	gifImage     = 0x2C
	gifTrailer   = 0x3B
	gifComment   = 0xFE
	gifAppExt    = 0xFF
	gifHeaderLen = 13
	gifAppIDLen  = 11
	gifDescLen   = 9
)

var xmpTrailer = []byte{0x01, 0xFF, 0xFE}

type gifReader struct {
	data []byte
	pos  int
}

func (r *gifReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("%w: GIF truncated at offset %d", ErrInvalidData, r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *gifReader) skip(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("%w: GIF truncated at offset %d", ErrInvalidData, r.pos)
	}
	r.pos += n
	return nil
}

// subBlocks reads a sub-block chain and returns the joined payload plus the raw
// span it occupied, length bytes included
func (r *gifReader) subBlocks() (payload, raw []byte, err error) {
	start := r.pos
	for {
		n, err := r.readByte()
		if err != nil {
			return nil, nil, err
		}
		if n == 0 {
			return payload, r.data[start : r.pos-1], nil
		}
		if r.pos+int(n) > len(r.data) {
			return nil, nil, fmt.Errorf("%w: GIF sub-block overruns file", ErrInvalidData)
		}
		payload = append(payload, r.data[r.pos:r.pos+int(n)]...)
		r.pos += int(n)
	}
}

func colorTableLen(packed byte) int {
	if packed&0x80 == 0 {
		return 0
	}
	return 3 << (int(packed&0x07) + 1)
}

// GIFAncillary reports comment extensions, the NETSCAPE loop count and any XMP packet
func GIFAncillary(data []byte) (picture.Fields, error) {
	if len(data) < gifHeaderLen || !bytes.HasPrefix(data, []byte("GIF8")) {
		return nil, fmt.Errorf("%w: missing GIF signature", ErrInvalidData)
	}
	fields := picture.Fields{}
	r := &gifReader{data: data, pos: gifHeaderLen}
	if err := r.skip(colorTableLen(data[10])); err != nil {
		return fields, err
	}

	for {
		block, err := r.readByte()
		if err != nil {
			return fields, err
		}
		switch block {
		case gifTrailer:
			return fields, nil

		case gifImage:
			if r.pos+gifDescLen > len(data) {
				return fields, fmt.Errorf("%w: truncated image descriptor", ErrInvalidData)
			}
			packed := data[r.pos+gifDescLen-1]
			// descriptor, local table, LZW code size
			if err := r.skip(gifDescLen + colorTableLen(packed) + 1); err != nil {
				return fields, err
			}
			if _, _, err := r.subBlocks(); err != nil {
				return fields, err
			}

		case gifExtension:
			label, err := r.readByte()
			if err != nil {
				return fields, err
			}
			if err := readGIFExtension(r, label, fields); err != nil {
				return fields, err
			}

		default:
			return fields, fmt.Errorf("%w: unknown GIF block 0x%02X", ErrInvalidData, block)
		}
	}
}

func readGIFExtension(r *gifReader, label byte, fields picture.Fields) error {
	switch label {
	case gifComment:
		payload, _, err := r.subBlocks()
		if err != nil {
			return err
		}
		if prev, ok := fields["comment"]; ok {
			fields["comment"] = picture.TextValue(prev.String() + "\n" + textOrRaw(payload).String())
		} else {
			fields["comment"] = textOrRaw(payload)
		}
		return nil

	case gifAppExt:
		n, err := r.readByte()
		if err != nil {
			return err
		}
		if int(n) != gifAppIDLen {
			if err := r.skip(int(n)); err != nil {
				return err
			}
			_, _, err := r.subBlocks()
			return err
		}
		if r.pos+gifAppIDLen > len(r.data) {
			return fmt.Errorf("%w: truncated application extension", ErrInvalidData)
		}
		id := string(r.data[r.pos : r.pos+gifAppIDLen])
		r.pos += gifAppIDLen
		payload, raw, err := r.subBlocks()
		if err != nil {
			return err
		}
		switch id {
		case "NETSCAPE2.0":
			if len(payload) >= 3 && payload[0] == 1 {
				fields["loop"] = picture.IntegerValue(int64(binary.LittleEndian.Uint16(payload[1:])))
			}
		case "XMP DataXMP":
			// the packet is stored verbatim, length bytes included, ahead of a magic trailer
			if i := bytes.Index(raw, xmpTrailer); i >= 0 {
				raw = raw[:i]
			}
			fields["xmp"] = textOrRaw(raw)
		}
		return nil
	}

	_, _, err := r.subBlocks()
	return err
}
