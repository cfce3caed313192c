package picture

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"sort"
	"strconv"
	"strings"
)

// Category names a group of metadata fields
type Category string

// Metadata categories, in display order
const (
	CategoryBasic Category = "Basic"
	CategoryEXIF  Category = "EXIF"
	CategoryIPTC  Category = "IPTC"
	CategoryXMP   Category = "XMP"
)

var categoryOrder = []Category{CategoryBasic, CategoryEXIF, CategoryIPTC, CategoryXMP}

// Basic field names
const (
	FieldFormat = "Format"
	FieldMode   = "Mode"
	FieldSize   = "Size"
)

// ValueKind tells which representation a Value carries
type ValueKind int

const (
	KindText ValueKind = iota
	KindRaw
	KindIntegers
	KindRationals
	KindFloats
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindRaw:
		return "raw"
	case KindIntegers:
		return "integers"
	case KindRationals:
		return "rationals"
	case KindFloats:
		return "floats"
	default:
		return "unknown"
	}
}

// Rational is a numerator/denominator pair as stored in tag directories
type Rational struct {
	Num int64
	Den int64
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// Value is a single metadata field value.
// Binary data that decoded cleanly is KindText; anything else stays KindRaw.
type Value struct {
	Kind      ValueKind
	Text      string
	Raw       []byte
	Integers  []int64
	Rationals []Rational
	Floats    []float64
}

// TextValue wraps decoded text
func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// RawValue wraps bytes that could not be decoded as text
func RawValue(b []byte) Value {
	return Value{Kind: KindRaw, Raw: b}
}

// IntegerValue wraps one or more integers
func IntegerValue(v ...int64) Value {
	return Value{Kind: KindIntegers, Integers: v}
}

// RationalValue wraps one or more rationals
func RationalValue(v ...Rational) Value {
	return Value{Kind: KindRationals, Rationals: v}
}

// FloatValue wraps one or more floating point numbers
func FloatValue(v ...float64) Value {
	return Value{Kind: KindFloats, Floats: v}
}

// IsDecoded reports whether the value is anything other than opaque bytes
func (v Value) IsDecoded() bool {
	return v.Kind != KindRaw
}

// String renders the value as text. Raw bytes render as 0x-prefixed hex.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindRaw:
		return "0x" + hex.EncodeToString(v.Raw)
	case KindIntegers:
		parts := make([]string, len(v.Integers))
		for i, n := range v.Integers {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return strings.Join(parts, ", ")
	case KindRationals:
		parts := make([]string, len(v.Rationals))
		for i, r := range v.Rationals {
			parts[i] = r.String()
		}
		return strings.Join(parts, ", ")
	case KindFloats:
		parts := make([]string, len(v.Floats))
		for i, f := range v.Floats {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// MarshalJSON encodes the value as its string rendering
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// Fields maps field names to values within one category
type Fields map[string]Value

// Names returns the field names in sorted order
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Record is the uniform metadata view of one image
type Record map[Category]Fields

// NewRecord creates an empty record with every category allocated
func NewRecord() Record {
	r := make(Record, len(categoryOrder))
	for _, c := range categoryOrder {
		r[c] = Fields{}
	}
	return r
}

// Set stores a value, allocating the category if needed
func (r Record) Set(category Category, field string, v Value) {
	fields, ok := r[category]
	if !ok {
		fields = Fields{}
		r[category] = fields
	}
	fields[field] = v
}

// Get looks up a value
func (r Record) Get(category Category, field string) (Value, bool) {
	v, ok := r[category][field]
	return v, ok
}

// Compact drops empty categories in place and returns the record
func (r Record) Compact() Record {
	for c, fields := range r {
		if len(fields) == 0 {
			delete(r, c)
		}
	}
	return r
}

// HasEmbedded reports whether any category other than Basic has fields
func (r Record) HasEmbedded() bool {
	for c, fields := range r {
		if c != CategoryBasic && len(fields) > 0 {
			return true
		}
	}
	return false
}

// Categories returns the present categories, known ones first in display order
func (r Record) Categories() []Category {
	out := make([]Category, 0, len(r))
	seen := make(map[Category]bool, len(r))
	for _, c := range categoryOrder {
		if _, ok := r[c]; ok {
			out = append(out, c)
			seen[c] = true
		}
	}
	var extra []Category
	for c := range r {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// ResizeSpec holds resize parameters
type ResizeSpec struct {
	MaxWidth   int
	MaxHeight  int
	KeepAspect bool
}

// Validate checks that both bounds are positive
func (s ResizeSpec) Validate() error {
	if s.MaxWidth <= 0 || s.MaxHeight <= 0 {
		return fmt.Errorf("%w: width and height must be positive, got %dx%d", ErrInvalidGeometry, s.MaxWidth, s.MaxHeight)
	}
	return nil
}

// Box is a crop rectangle in source pixel coordinates
type Box struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// Width returns the horizontal extent
func (b Box) Width() int {
	return b.Right - b.Left
}

// Height returns the vertical extent
func (b Box) Height() int {
	return b.Bottom - b.Top
}

// Empty reports a zero-area box
func (b Box) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Rect converts the box to an image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.Left, b.Top, b.Right, b.Bottom)
}

// TransformResult describes the outcome of a geometry operation
type TransformResult struct {
	Format  Format
	Written bool
	Width   int
	Height  int
	Box     Box
}

// StripStrategy names how metadata was removed
type StripStrategy string

const (
	StripReencode StripStrategy = "reencode"
	StripSegments StripStrategy = "segments"
)

// StripResult describes the outcome of a metadata strip
type StripResult struct {
	Format   Format
	Strategy StripStrategy
	// Cause is the primary-path error when a fallback strategy was used
	Cause error
}

// UpdateResult describes the outcome of a metadata update
type UpdateResult struct {
	Applied   []string
	Unmatched []string
	Written   bool
}
