package exifdir

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rwcarlsen/goexif/tiff"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
)

// Character code prefixes carried by UserComment-style values
var (
	charsetASCII     = []byte("ASCII\x00\x00\x00")
	charsetUndefined = make([]byte, 8)
)

var typeSize = map[tiff.DataType]int{
	tiff.DTByte:      1,
	tiff.DTAscii:     1,
	tiff.DTShort:     2,
	tiff.DTLong:      4,
	tiff.DTRational:  8,
	tiff.DTSByte:     1,
	tiff.DTUndefined: 1,
	tiff.DTSShort:    2,
	tiff.DTSLong:     4,
	tiff.DTSRational: 8,
	tiff.DTFloat:     4,
	tiff.DTDouble:    8,
}

// DecodeValue converts a stored entry into a typed value.
// ASCII and UNDEFINED data become text when it is printable UTF-8 and raw bytes otherwise.
func DecodeValue(order binary.ByteOrder, e Entry) picture.Value {
	size, ok := typeSize[e.Type]
	if !ok {
		return picture.RawValue(e.Data)
	}
	n := int(e.Count)
	if n*size > len(e.Data) {
		n = len(e.Data) / size
	}
	data := e.Data

	switch e.Type {
	case tiff.DTAscii, tiff.DTUndefined:
		return decodeText(data[:n])
	case tiff.DTByte:
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(data[i])
		}
		return picture.IntegerValue(out...)
	case tiff.DTSByte:
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(int8(data[i]))
		}
		return picture.IntegerValue(out...)
	case tiff.DTShort, tiff.DTSShort:
		out := make([]int64, n)
		for i := range out {
			v := order.Uint16(data[i*2:])
			if e.Type == tiff.DTSShort {
				out[i] = int64(int16(v))
			} else {
				out[i] = int64(v)
			}
		}
		return picture.IntegerValue(out...)
	case tiff.DTLong, tiff.DTSLong:
		out := make([]int64, n)
		for i := range out {
			v := order.Uint32(data[i*4:])
			if e.Type == tiff.DTSLong {
				out[i] = int64(int32(v))
			} else {
				out[i] = int64(v)
			}
		}
		return picture.IntegerValue(out...)
	case tiff.DTRational, tiff.DTSRational:
		out := make([]picture.Rational, n)
		for i := range out {
			num, den := order.Uint32(data[i*8:]), order.Uint32(data[i*8+4:])
			if e.Type == tiff.DTSRational {
				out[i] = picture.Rational{Num: int64(int32(num)), Den: int64(int32(den))}
			} else {
				out[i] = picture.Rational{Num: int64(num), Den: int64(den)}
			}
		}
		return picture.RationalValue(out...)
	case tiff.DTFloat:
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(math.Float32frombits(order.Uint32(data[i*4:])))
		}
		return picture.FloatValue(out...)
	case tiff.DTDouble:
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(order.Uint64(data[i*8:]))
		}
		return picture.FloatValue(out...)
	}
	return picture.RawValue(data)
}

func decodeText(b []byte) picture.Value {
	text := b
	if len(text) >= 8 && (bytes.HasPrefix(text, charsetASCII) || bytes.Equal(text[:8], charsetUndefined)) {
		text = text[8:]
	}
	text = bytes.TrimRight(text, "\x00")
	if !utf8.Valid(text) {
		return picture.RawValue(b)
	}
	for _, r := range string(text) {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return picture.RawValue(b)
		}
	}
	return picture.TextValue(string(text))
}

// EncodeValue builds an entry for tag id from v, following the tag's declared type
func EncodeValue(order binary.ByteOrder, id uint16, info TagInfo, v picture.Value) (Entry, error) {
	e := Entry{ID: id, Type: info.Type}

	switch info.Type {
	case tiff.DTAscii:
		e.Data = append([]byte(v.String()), 0)
		e.Count = uint32(len(e.Data))
		return e, nil

	case tiff.DTUndefined:
		switch {
		case v.Kind == picture.KindRaw:
			e.Data = append([]byte(nil), v.Raw...)
		case id == TagUserComment:
			e.Data = userComment(v.String())
		default:
			e.Data = []byte(v.String())
		}
		e.Count = uint32(len(e.Data))
		return e, nil

	case tiff.DTByte:
		if v.Kind == picture.KindText || v.Kind == picture.KindRaw {
			if ints, err := integers(v); err == nil {
				return packInts(order, e, ints, 0, math.MaxUint8, 1)
			}
			// Windows XP* tags hold UCS-2 text in BYTE arrays.
			e.Data = ucs2(v.String())
			e.Count = uint32(len(e.Data))
			return e, nil
		}
		ints, err := integers(v)
		if err != nil {
			return e, err
		}
		return packInts(order, e, ints, 0, math.MaxUint8, 1)

	case tiff.DTShort:
		ints, err := integers(v)
		if err != nil {
			return e, err
		}
		return packInts(order, e, ints, 0, math.MaxUint16, 2)

	case tiff.DTLong:
		ints, err := integers(v)
		if err != nil {
			return e, err
		}
		return packInts(order, e, ints, 0, math.MaxUint32, 4)

	case tiff.DTRational, tiff.DTSRational:
		rats, err := rationals(v)
		if err != nil {
			return e, err
		}
		signed := info.Type == tiff.DTSRational
		e.Data = make([]byte, 0, len(rats)*8)
		for _, r := range rats {
			if !signed && (r.Num < 0 || r.Den < 0) {
				return e, fmt.Errorf("negative value %s for unsigned rational", r)
			}
			lo, hi := int64(0), int64(math.MaxUint32)
			if signed {
				lo, hi = math.MinInt32, math.MaxInt32
			}
			if r.Num < lo || r.Num > hi || r.Den < lo || r.Den > hi {
				return e, fmt.Errorf("rational %s out of range", r)
			}
			e.Data = appendUint32(order, e.Data, uint32(r.Num))
			e.Data = appendUint32(order, e.Data, uint32(r.Den))
		}
		e.Count = uint32(len(rats))
		return e, nil
	}
	return e, fmt.Errorf("unsupported tag type %d", info.Type)
}

func packInts(order binary.ByteOrder, e Entry, ints []int64, lo, hi int64, size int) (Entry, error) {
	e.Data = make([]byte, 0, len(ints)*size)
	for _, n := range ints {
		if n < lo || n > hi {
			return e, fmt.Errorf("value %d out of range [%d, %d]", n, lo, hi)
		}
		switch size {
		case 1:
			e.Data = append(e.Data, byte(n))
		case 2:
			e.Data = appendUint16(order, e.Data, uint16(n))
		case 4:
			e.Data = appendUint32(order, e.Data, uint32(n))
		}
	}
	e.Count = uint32(len(ints))
	return e, nil
}

func appendUint16(order binary.ByteOrder, b []byte, v uint16) []byte {
	var buf [2]byte
	order.PutUint16(buf[:], v)
	return append(b, buf[:]...)
}

func appendUint32(order binary.ByteOrder, b []byte, v uint32) []byte {
	var buf [4]byte
	order.PutUint32(buf[:], v)
	return append(b, buf[:]...)
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func integers(v picture.Value) ([]int64, error) {
	if v.Kind == picture.KindIntegers {
		return v.Integers, nil
	}
	parts := splitList(v.String())
	if len(parts) == 0 {
		return nil, fmt.Errorf("no integer in %q", v.String())
	}
	out := make([]int64, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse integer %q: %w", p, err)
		}
		out[i] = n
	}
	return out, nil
}

func rationals(v picture.Value) ([]picture.Rational, error) {
	switch v.Kind {
	case picture.KindRationals:
		return v.Rationals, nil
	case picture.KindIntegers:
		out := make([]picture.Rational, len(v.Integers))
		for i, n := range v.Integers {
			out[i] = picture.Rational{Num: n, Den: 1}
		}
		return out, nil
	}

	parts := splitList(v.String())
	if len(parts) == 0 {
		return nil, fmt.Errorf("no rational in %q", v.String())
	}
	out := make([]picture.Rational, len(parts))
	for i, p := range parts {
		r, ok := new(big.Rat).SetString(p)
		if !ok {
			return nil, fmt.Errorf("parse rational %q", p)
		}
		if !r.Num().IsInt64() || !r.Denom().IsInt64() {
			return nil, fmt.Errorf("rational %q out of range", p)
		}
		// Keep an explicit n/d as written rather than reduced.
		if num, den, found := strings.Cut(p, "/"); found {
			n, errN := strconv.ParseInt(num, 10, 64)
			d, errD := strconv.ParseInt(den, 10, 64)
			if errN == nil && errD == nil {
				out[i] = picture.Rational{Num: n, Den: d}
				continue
			}
		}
		out[i] = picture.Rational{Num: r.Num().Int64(), Den: r.Denom().Int64()}
	}
	return out, nil
}

func userComment(s string) []byte {
	prefix := charsetASCII
	for _, r := range s {
		if r > unicode.MaxASCII {
			prefix = charsetUndefined
			break
		}
	}
	return append(append([]byte(nil), prefix...), s...)
}

// ucs2 encodes text as little-endian UTF-16 with a terminating NUL, as the XP* tags expect
func ucs2(s string) []byte {
	out := make([]byte, 0, len(s)*2+2)
	for _, r := range s {
		if r > 0xFFFF {
			r = unicode.ReplacementChar
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(r))
	}
	return append(out, 0, 0)
}

// ErrUnknownTag is returned when a field name matches no writable tag
var ErrUnknownTag = errors.New("exifdir: unknown tag")

// Fields flattens every group into name → value. When a name appears in more
// than one group the first group in walk order wins.
func (d *Directory) Fields() picture.Fields {
	return d.fields(nil)
}

// DescriptiveFields is Fields without the tags a TIFF file needs to locate and
// decode its pixels
func (d *Directory) DescriptiveFields() picture.Fields {
	return d.fields(IsLayout)
}

func (d *Directory) fields(skip func(Group, uint16) bool) picture.Fields {
	out := picture.Fields{}
	_ = d.Walk(func(g Group, e Entry) error {
		if skip != nil && skip(g, e.ID) {
			return nil
		}
		name := TagName(g, e.ID)
		if _, ok := out[name]; !ok {
			out[name] = DecodeValue(d.Order, e)
		}
		return nil
	})
	return out
}

// SetByName encodes v into the first writable tag called name
func (d *Directory) SetByName(name string, v picture.Value) (Group, error) {
	g, id, info, ok := FindByName(name, WritableGroups...)
	if !ok || IsPointer(id) || id == TagThumbnailOffset || id == TagThumbnailLength {
		return "", fmt.Errorf("%w: %s", ErrUnknownTag, name)
	}
	e, err := EncodeValue(d.Order, id, info, v)
	if err != nil {
		return g, fmt.Errorf("encode %s: %w", name, err)
	}
	d.Set(g, e)
	return g, nil
}
