// Package exifdir reads, edits and re-serializes EXIF tag directories.
//
// Parsing leans on github.com/rwcarlsen/goexif/tiff for the TIFF structure;
// sub-directories (Exif, GPS, Interop) are followed through their pointer tags.
// Serialization rebuilds the whole block so edited values of any size fit.
package exifdir

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rwcarlsen/goexif/tiff"
)

// Header prefixes the TIFF block inside a JPEG APP1 segment
const Header = "Exif\x00\x00"

const tiffHeaderLen = 8

// ErrInvalidDirectory is returned for malformed tag data
var ErrInvalidDirectory = errors.New("exifdir: invalid directory")

// Entry is one tag as stored: Data holds Count values of Type in the block's byte order
type Entry struct {
	ID    uint16
	Type  tiff.DataType
	Count uint32
	Data  []byte
}

// Directory is a parsed EXIF block
type Directory struct {
	Order     binary.ByteOrder
	ifds      map[Group][]Entry
	Thumbnail []byte
}

// New returns an empty little-endian directory
func New() *Directory {
	return &Directory{Order: binary.LittleEndian, ifds: make(map[Group][]Entry)}
}

// Parse decodes a TIFF-structured block (the APP1 payload after Header, or a TIFF file)
func Parse(data []byte) (*Directory, error) {
	order, first, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	dirs, err := walkChain(data, order, first)
	if err != nil {
		return nil, err
	}

	d := &Directory{Order: order, ifds: make(map[Group][]Entry)}
	d.ifds[Group0th] = entriesOf(dirs[0])
	if len(dirs) > 1 {
		d.ifds[Group1st] = entriesOf(dirs[1])
	}

	if off, ok := d.pointer(Group0th, TagExifPointer); ok {
		if d.ifds[GroupExif], err = subDirectory(data, off, order); err != nil {
			return nil, err
		}
	}
	if off, ok := d.pointer(Group0th, TagGPSPointer); ok {
		if d.ifds[GroupGPS], err = subDirectory(data, off, order); err != nil {
			return nil, err
		}
	}
	if off, ok := d.pointer(GroupExif, TagInteropPointer); ok {
		if d.ifds[GroupInterop], err = subDirectory(data, off, order); err != nil {
			return nil, err
		}
	}

	if off, ok := d.pointer(Group1st, TagThumbnailOffset); ok {
		if n, ok := d.pointer(Group1st, TagThumbnailLength); ok {
			if end := uint64(off) + uint64(n); end <= uint64(len(data)) {
				d.Thumbnail = append([]byte(nil), data[off:end]...)
			}
		}
	}
	return d, nil
}

// maxChain bounds the number of top-level directories followed
const maxChain = 256

func readHeader(data []byte) (binary.ByteOrder, uint32, error) {
	if len(data) < tiffHeaderLen {
		return nil, 0, fmt.Errorf("%w: short header", ErrInvalidDirectory)
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("%w: unknown byte order %q", ErrInvalidDirectory, data[:2])
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, 0, fmt.Errorf("%w: missing TIFF marker", ErrInvalidDirectory)
	}
	return order, order.Uint32(data[4:8]), nil
}

// walkChain follows the next-directory links starting at offset. A link back
// to a directory already visited is an error.
func walkChain(data []byte, order binary.ByteOrder, offset uint32) ([]*tiff.Dir, error) {
	var dirs []*tiff.Dir
	seen := make(map[uint32]bool)
	for offset != 0 {
		if seen[offset] {
			return nil, fmt.Errorf("%w: directory chain loops back to offset %d", ErrInvalidDirectory, offset)
		}
		if len(dirs) == maxChain {
			return nil, fmt.Errorf("%w: more than %d directories", ErrInvalidDirectory, maxChain)
		}
		seen[offset] = true

		dir, next, err := decodeDirAt(data, offset, order)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
		offset = uint32(next)
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: no image directory", ErrInvalidDirectory)
	}
	return dirs, nil
}

func decodeDirAt(data []byte, offset uint32, order binary.ByteOrder) (*tiff.Dir, int32, error) {
	if uint64(offset) >= uint64(len(data)) {
		return nil, 0, fmt.Errorf("%w: directory offset %d out of range", ErrInvalidDirectory, offset)
	}
	r := bytes.NewReader(data)
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, 0, err
	}
	dir, next, err := tiff.DecodeDir(r, order)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidDirectory, err)
	}
	return dir, next, nil
}

func entriesOf(dir *tiff.Dir) []Entry {
	out := make([]Entry, 0, len(dir.Tags))
	for _, tag := range dir.Tags {
		out = append(out, Entry{ID: tag.Id, Type: tag.Type, Count: tag.Count, Data: tag.Val})
	}
	return out
}

func subDirectory(data []byte, offset uint32, order binary.ByteOrder) ([]Entry, error) {
	dir, _, err := decodeDirAt(data, offset, order)
	if err != nil {
		return nil, err
	}
	return entriesOf(dir), nil
}

// pointer reads a single LONG or SHORT tag value as an offset or length
func (d *Directory) pointer(g Group, id uint16) (uint32, bool) {
	e, ok := d.Get(g, id)
	if !ok || e.Count == 0 {
		return 0, false
	}
	switch {
	case e.Type == tiff.DTLong && len(e.Data) >= 4:
		return d.Order.Uint32(e.Data), true
	case e.Type == tiff.DTShort && len(e.Data) >= 2:
		return uint32(d.Order.Uint16(e.Data)), true
	}
	return 0, false
}

// Get returns the entry for a tag
func (d *Directory) Get(g Group, id uint16) (Entry, bool) {
	for _, e := range d.ifds[g] {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns the entries of a group sorted by tag id
func (d *Directory) Entries(g Group) []Entry {
	out := append([]Entry(nil), d.ifds[g]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Set inserts or replaces an entry
func (d *Directory) Set(g Group, e Entry) {
	entries := d.ifds[g]
	for i := range entries {
		if entries[i].ID == e.ID {
			entries[i] = e
			return
		}
	}
	d.ifds[g] = append(entries, e)
}

// Delete removes an entry if present
func (d *Directory) Delete(g Group, id uint16) {
	entries := d.ifds[g]
	for i := range entries {
		if entries[i].ID == id {
			d.ifds[g] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// Empty reports whether no group holds any entry
func (d *Directory) Empty() bool {
	for _, entries := range d.ifds {
		if len(entries) > 0 {
			return false
		}
	}
	return true
}

// Walk visits every non-pointer entry in group order
func (d *Directory) Walk(fn func(g Group, e Entry) error) error {
	for _, g := range Groups {
		for _, e := range d.Entries(g) {
			if IsPointer(e.ID) {
				continue
			}
			if err := fn(g, e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Directory) long(v uint32) []byte {
	b := make([]byte, 4)
	d.Order.PutUint32(b, v)
	return b
}

// linkGroups makes pointer tags agree with which groups are populated
func (d *Directory) linkGroups() {
	hasData := func(g Group) bool {
		return len(d.ifds[g]) > 0
	}
	placeholder := func(g Group, id uint16) {
		d.Set(g, Entry{ID: id, Type: tiff.DTLong, Count: 1, Data: d.long(0)})
	}

	if hasData(GroupInterop) {
		placeholder(GroupExif, TagInteropPointer)
	} else {
		d.Delete(GroupExif, TagInteropPointer)
	}
	if hasData(GroupExif) {
		placeholder(Group0th, TagExifPointer)
	} else {
		d.Delete(Group0th, TagExifPointer)
	}
	if hasData(GroupGPS) {
		placeholder(Group0th, TagGPSPointer)
	} else {
		d.Delete(Group0th, TagGPSPointer)
	}
	if len(d.Thumbnail) > 0 {
		placeholder(Group1st, TagThumbnailOffset)
		d.Set(Group1st, Entry{ID: TagThumbnailLength, Type: tiff.DTLong, Count: 1, Data: d.long(uint32(len(d.Thumbnail)))})
	} else {
		d.Delete(Group1st, TagThumbnailOffset)
		d.Delete(Group1st, TagThumbnailLength)
	}
	// An IFD0 must exist for the block to be valid.
	if _, ok := d.ifds[Group0th]; !ok {
		d.ifds[Group0th] = nil
	}
}

func ifdLen(entries []Entry) int {
	n := 2 + len(entries)*12 + 4
	for _, e := range entries {
		if len(e.Data) > 4 {
			n += len(e.Data) + len(e.Data)%2
		}
	}
	return n
}

// Bytes serializes the directory as a TIFF block: header, 0th, Exif, GPS, Interop, 1st, thumbnail
func (d *Directory) Bytes() ([]byte, error) {
	d.linkGroups()

	var layout []Group
	offsets := make(map[Group]uint32)
	pos := tiffHeaderLen
	for _, g := range Groups {
		if g != Group0th && len(d.ifds[g]) == 0 {
			continue
		}
		layout = append(layout, g)
		offsets[g] = uint32(pos)
		pos += ifdLen(d.ifds[g])
	}
	thumbOffset := uint32(pos)

	if off, ok := offsets[GroupExif]; ok {
		d.Set(Group0th, Entry{ID: TagExifPointer, Type: tiff.DTLong, Count: 1, Data: d.long(off)})
	}
	if off, ok := offsets[GroupGPS]; ok {
		d.Set(Group0th, Entry{ID: TagGPSPointer, Type: tiff.DTLong, Count: 1, Data: d.long(off)})
	}
	if off, ok := offsets[GroupInterop]; ok {
		d.Set(GroupExif, Entry{ID: TagInteropPointer, Type: tiff.DTLong, Count: 1, Data: d.long(off)})
	}
	if len(d.Thumbnail) > 0 {
		d.Set(Group1st, Entry{ID: TagThumbnailOffset, Type: tiff.DTLong, Count: 1, Data: d.long(thumbOffset)})
	}

	var buf bytes.Buffer
	buf.Grow(pos + len(d.Thumbnail))
	if d.Order == binary.BigEndian {
		buf.WriteString("MM")
	} else {
		buf.WriteString("II")
	}
	binary.Write(&buf, d.Order, uint16(42))
	binary.Write(&buf, d.Order, uint32(tiffHeaderLen))

	for _, g := range layout {
		next := uint32(0)
		if off, ok := offsets[Group1st]; ok && g == Group0th {
			next = off
		}
		if err := d.writeIFD(&buf, d.Entries(g), offsets[g], next); err != nil {
			return nil, fmt.Errorf("write %s directory: %w", g, err)
		}
	}
	buf.Write(d.Thumbnail)
	return buf.Bytes(), nil
}

func (d *Directory) writeIFD(buf *bytes.Buffer, entries []Entry, offset, next uint32) error {
	if uint32(buf.Len()) != offset {
		return fmt.Errorf("%w: layout mismatch at %d", ErrInvalidDirectory, offset)
	}
	if len(entries) > 0xFFFF {
		return fmt.Errorf("%w: too many entries", ErrInvalidDirectory)
	}

	valuePos := offset + uint32(2+len(entries)*12+4)
	var values bytes.Buffer

	binary.Write(buf, d.Order, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(buf, d.Order, e.ID)
		binary.Write(buf, d.Order, uint16(e.Type))
		binary.Write(buf, d.Order, e.Count)
		if len(e.Data) <= 4 {
			var inline [4]byte
			copy(inline[:], e.Data)
			buf.Write(inline[:])
			continue
		}
		binary.Write(buf, d.Order, valuePos+uint32(values.Len()))
		values.Write(e.Data)
		if len(e.Data)%2 == 1 {
			values.WriteByte(0)
		}
	}
	binary.Write(buf, d.Order, next)
	buf.Write(values.Bytes())
	return nil
}

// Segment serializes the directory with the APP1 Exif header prepended
func (d *Directory) Segment() ([]byte, error) {
	body, err := d.Bytes()
	if err != nil {
		return nil, err
	}
	return append([]byte(Header), body...), nil
}
