package container

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

// inflated text and profiles are capped to keep hostile chunks from exhausting memory
const maxInflate = 64 << 20

// Chunk is one PNG or RIFF chunk
type Chunk struct {
	Type string
	Data []byte
}

// PNGChunks lists the chunks of a PNG file in order
func PNGChunks(data []byte) ([]Chunk, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("%w: missing PNG signature", ErrInvalidData)
	}
	var out []Chunk
	pos := len(pngSignature)
	for pos+8 <= len(data) {
		n := int(binary.BigEndian.Uint32(data[pos:]))
		typ := string(data[pos+4 : pos+8])
		if n < 0 || pos+12+n > len(data) {
			return out, fmt.Errorf("%w: chunk %q overruns file", ErrInvalidData, typ)
		}
		out = append(out, Chunk{Type: typ, Data: data[pos+8 : pos+8+n]})
		pos += 12 + n
		if typ == "IEND" {
			break
		}
	}
	return out, nil
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxInflate))
}

// latin1 converts ISO 8859-1 bytes, the tEXt and zTXt encoding, to a string
func latin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

// PNGAncillary reports text chunks by keyword plus icc_profile, exif, dpi and gamma
func PNGAncillary(data []byte) (picture.Fields, error) {
	chunks, err := PNGChunks(data)
	fields := picture.Fields{}
	for _, c := range chunks {
		switch c.Type {
		case "tEXt":
			key, text, ok := bytes.Cut(c.Data, []byte{0})
			if ok {
				fields[latin1(key)] = picture.TextValue(latin1(text))
			}
		case "zTXt":
			key, rest, ok := bytes.Cut(c.Data, []byte{0})
			if !ok || len(rest) < 1 {
				continue
			}
			text, zerr := inflate(rest[1:])
			if zerr != nil {
				err = joinFirst(err, fmt.Errorf("zTXt %q: %w", key, zerr))
				continue
			}
			fields[latin1(key)] = picture.TextValue(latin1(text))
		case "iTXt":
			key, text, ierr := parseITXt(c.Data)
			if ierr != nil {
				err = joinFirst(err, ierr)
				continue
			}
			fields[key] = textOrRaw(text)
		case "iCCP":
			_, rest, ok := bytes.Cut(c.Data, []byte{0})
			if !ok || len(rest) < 1 {
				continue
			}
			profile, zerr := inflate(rest[1:])
			if zerr != nil {
				err = joinFirst(err, fmt.Errorf("iCCP: %w", zerr))
				continue
			}
			fields["icc_profile"] = picture.RawValue(profile)
		case "eXIf":
			fields["exif"] = picture.RawValue(c.Data)
		case "pHYs":
			if len(c.Data) == 9 && c.Data[8] == 1 {
				x := binary.BigEndian.Uint32(c.Data)
				y := binary.BigEndian.Uint32(c.Data[4:])
				fields["dpi"] = picture.FloatValue(dpi(x), dpi(y))
			}
		case "gAMA":
			if len(c.Data) == 4 {
				fields["gamma"] = picture.FloatValue(float64(binary.BigEndian.Uint32(c.Data)) / 100000)
			}
		}
	}
	return fields, err
}

// dpi converts pixels per metre to dots per inch, rounded to two places
func dpi(perMetre uint32) float64 {
	return math.Round(float64(perMetre)*0.0254*100) / 100
}

func parseITXt(b []byte) (string, []byte, error) {
	key, rest, ok := bytes.Cut(b, []byte{0})
	if !ok || len(rest) < 2 {
		return "", nil, fmt.Errorf("%w: short iTXt chunk", ErrInvalidData)
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	// language tag, then translated keyword
	for i := 0; i < 2; i++ {
		_, after, found := bytes.Cut(rest, []byte{0})
		if !found {
			return "", nil, fmt.Errorf("%w: unterminated iTXt header", ErrInvalidData)
		}
		rest = after
	}
	if !compressed {
		return string(key), rest, nil
	}
	text, err := inflate(rest)
	if err != nil {
		return "", nil, fmt.Errorf("iTXt %q: %w", key, err)
	}
	return string(key), text, nil
}

func joinFirst(prev, err error) error {
	if prev != nil {
		return prev
	}
	return err
}
