package exifdir

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/rwcarlsen/goexif/tiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
)

func buildDirectory(t *testing.T, order binary.ByteOrder) *Directory {
	t.Helper()
	d := New()
	d.Order = order

	set := func(name string, v picture.Value) {
		_, err := d.SetByName(name, v)
		require.NoError(t, err, name)
	}
	set("Make", picture.TextValue("Canon"))
	set("Model", picture.TextValue("EOS R5 Mark II"))
	set("Orientation", picture.IntegerValue(6))
	set("XResolution", picture.TextValue("72/1"))
	set("DateTimeOriginal", picture.TextValue("2024:05:01 10:20:30"))
	set("UserComment", picture.TextValue("hello there"))
	set("ExposureBiasValue", picture.TextValue("-1/3"))
	set("GPSVersionID", picture.TextValue("2 2 0 0"))
	set("GPSLatitudeRef", picture.TextValue("N"))
	set("GPSLatitude", picture.TextValue("35/1, 40/1, 1234/100"))

	interop, err := EncodeValue(d.Order, 0x0001, interopTags[0x0001], picture.TextValue("R98"))
	require.NoError(t, err)
	d.Set(GroupInterop, interop)

	d.Thumbnail = []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}
	return d
}

func TestDirectoryRoundTrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			data, err := buildDirectory(t, order).Bytes()
			require.NoError(t, err)

			parsed, err := Parse(data)
			require.NoError(t, err)
			assert.Equal(t, order, parsed.Order)

			fields := parsed.Fields()
			assert.Equal(t, "Canon", fields["Make"].String())
			assert.Equal(t, "EOS R5 Mark II", fields["Model"].String())
			assert.Equal(t, picture.IntegerValue(6), fields["Orientation"])
			assert.Equal(t, "72/1", fields["XResolution"].String())
			assert.Equal(t, "2024:05:01 10:20:30", fields["DateTimeOriginal"].String())
			assert.Equal(t, picture.TextValue("hello there"), fields["UserComment"])
			assert.Equal(t, "-1/3", fields["ExposureBiasValue"].String())
			assert.Equal(t, "2, 2, 0, 0", fields["GPSVersionID"].String())
			assert.Equal(t, "N", fields["GPSLatitudeRef"].String())
			assert.Equal(t, "35/1, 40/1, 1234/100", fields["GPSLatitude"].String())
			assert.Equal(t, "R98", fields["InteroperabilityIndex"].String())

			for _, pointer := range []string{"ExifTag", "GPSTag", "InteroperabilityTag"} {
				assert.NotContains(t, fields, pointer)
			}
			assert.Equal(t, []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}, parsed.Thumbnail)
		})
	}
}

func TestSegmentPrefixesHeader(t *testing.T) {
	seg, err := buildDirectory(t, binary.LittleEndian).Segment()
	require.NoError(t, err)
	assert.Equal(t, Header, string(seg[:len(Header)]))
	assert.Equal(t, "II", string(seg[len(Header):len(Header)+2]))
}

func TestDroppedGroupsLoseTheirPointers(t *testing.T) {
	d := buildDirectory(t, binary.LittleEndian)
	for _, e := range d.Entries(GroupGPS) {
		d.Delete(GroupGPS, e.ID)
	}
	d.Thumbnail = nil

	data, err := d.Bytes()
	require.NoError(t, err)
	parsed, err := Parse(data)
	require.NoError(t, err)

	_, ok := parsed.Get(Group0th, TagGPSPointer)
	assert.False(t, ok)
	assert.Empty(t, parsed.Entries(GroupGPS))
	assert.Empty(t, parsed.Thumbnail)
	assert.Empty(t, parsed.Entries(Group1st))
}

func TestEmptyDirectorySerializes(t *testing.T) {
	d := New()
	assert.True(t, d.Empty())

	data, err := d.Bytes()
	require.NoError(t, err)
	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Empty(t, parsed.Fields())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("definitely not tiff"))
	assert.ErrorIs(t, err, ErrInvalidDirectory)
}

// chain builds a header followed by one-entry directories at the given
// offsets, each linking to the matching entry of next
func chain(order binary.AppendByteOrder, marker string, offsets, next []uint32) []byte {
	out := []byte(marker)
	out = order.AppendUint16(out, 42)
	out = order.AppendUint32(out, offsets[0])
	for i := range offsets {
		out = order.AppendUint16(out, 1)
		out = order.AppendUint16(out, 0x010F)
		out = order.AppendUint16(out, uint16(tiff.DTAscii))
		out = order.AppendUint32(out, 2)
		out = append(out, 'A', 0, 0, 0)
		out = order.AppendUint32(out, next[i])
	}
	return out
}

func TestParseRejectsDirectoryCycles(t *testing.T) {
	tests := []struct {
		name   string
		order  binary.AppendByteOrder
		marker string
		next   []uint32
	}{
		{"two directories", binary.LittleEndian, "II", []uint32{26, 8}},
		{"two directories big endian", binary.BigEndian, "MM", []uint32{26, 8}},
		{"self loop", binary.LittleEndian, "II", []uint32{8, 0}},
		{"second loops to itself", binary.BigEndian, "MM", []uint32{26, 26}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := chain(tt.order, tt.marker, []uint32{8, 26}, tt.next)

			done := make(chan error, 1)
			go func() {
				_, err := Parse(data)
				done <- err
			}()
			select {
			case err := <-done:
				assert.ErrorIs(t, err, ErrInvalidDirectory)
			case <-time.After(5 * time.Second):
				t.Fatal("Parse did not return")
			}
		})
	}

	ok := chain(binary.LittleEndian, "II", []uint32{8, 26}, []uint32{26, 0})
	d, err := Parse(ok)
	require.NoError(t, err)
	assert.Equal(t, "A", d.Fields()["Make"].String())
}

func TestParseRejectsOutOfRangeDirectory(t *testing.T) {
	data := chain(binary.LittleEndian, "II", []uint32{8}, []uint32{4096})
	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrInvalidDirectory)
}

func TestFieldsFirstGroupWins(t *testing.T) {
	d := New()
	first, err := EncodeValue(d.Order, 0x010F, imageTags[0x010F], picture.TextValue("Primary"))
	require.NoError(t, err)
	second, err := EncodeValue(d.Order, 0x010F, imageTags[0x010F], picture.TextValue("Thumb"))
	require.NoError(t, err)
	d.Set(Group0th, first)
	d.Set(Group1st, second)

	assert.Equal(t, "Primary", d.Fields()["Make"].String())
}

func TestUnknownTagsUseNumericNames(t *testing.T) {
	d := New()
	d.Set(Group0th, Entry{ID: 0xBEEF, Type: tiff.DTShort, Count: 1, Data: []byte{7, 0}})
	assert.Equal(t, picture.IntegerValue(7), d.Fields()["Tag_48879"])
}

func TestDecodeValue(t *testing.T) {
	le := binary.LittleEndian
	tests := []struct {
		name  string
		entry Entry
		want  picture.Value
	}{
		{
			name:  "ascii trims terminator",
			entry: Entry{Type: tiff.DTAscii, Count: 4, Data: []byte("abc\x00")},
			want:  picture.TextValue("abc"),
		},
		{
			name:  "undefined printable becomes text",
			entry: Entry{Type: tiff.DTUndefined, Count: 4, Data: []byte("0231")},
			want:  picture.TextValue("0231"),
		},
		{
			name:  "undefined binary stays raw",
			entry: Entry{Type: tiff.DTUndefined, Count: 4, Data: []byte{0x01, 0x02, 0xFF, 0xFE}},
			want:  picture.RawValue([]byte{0x01, 0x02, 0xFF, 0xFE}),
		},
		{
			name:  "user comment with undefined charset",
			entry: Entry{Type: tiff.DTUndefined, Count: 10, Data: append(make([]byte, 8), 'h', 'i')},
			want:  picture.TextValue("hi"),
		},
		{
			name:  "signed short",
			entry: Entry{Type: tiff.DTSShort, Count: 2, Data: []byte{0xFF, 0xFF, 0x02, 0x00}},
			want:  picture.IntegerValue(-1, 2),
		},
		{
			name:  "long",
			entry: Entry{Type: tiff.DTLong, Count: 1, Data: le.AppendUint32(nil, 4000)},
			want:  picture.IntegerValue(4000),
		},
		{
			name:  "signed rational",
			entry: Entry{Type: tiff.DTSRational, Count: 1, Data: le.AppendUint32(le.AppendUint32(nil, 0xFFFFFFFF), 3)},
			want:  picture.RationalValue(picture.Rational{Num: -1, Den: 3}),
		},
		{
			name:  "double",
			entry: Entry{Type: tiff.DTDouble, Count: 1, Data: le.AppendUint64(nil, 0x3FF8000000000000)},
			want:  picture.FloatValue(1.5),
		},
		{
			name:  "count larger than data is truncated",
			entry: Entry{Type: tiff.DTShort, Count: 3, Data: []byte{1, 0}},
			want:  picture.IntegerValue(1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeValue(le, tt.entry))
		})
	}
}

func TestEncodeValue(t *testing.T) {
	le := binary.LittleEndian
	tests := []struct {
		name    string
		id      uint16
		info    TagInfo
		value   picture.Value
		want    Entry
		wantErr bool
	}{
		{
			name:  "ascii gets terminator",
			id:    0x010F,
			info:  imageTags[0x010F],
			value: picture.TextValue("Nikon"),
			want:  Entry{ID: 0x010F, Type: tiff.DTAscii, Count: 6, Data: []byte("Nikon\x00")},
		},
		{
			name:  "short list from text",
			id:    0x0102,
			info:  imageTags[0x0102],
			value: picture.TextValue("8, 8, 8"),
			want:  Entry{ID: 0x0102, Type: tiff.DTShort, Count: 3, Data: []byte{8, 0, 8, 0, 8, 0}},
		},
		{
			name:  "decimal rational",
			id:    0x829D,
			info:  exifTags[0x829D],
			value: picture.TextValue("2.8"),
			want:  Entry{ID: 0x829D, Type: tiff.DTRational, Count: 1, Data: le.AppendUint32(le.AppendUint32(nil, 14), 5)},
		},
		{
			name:  "user comment ascii prefix",
			id:    TagUserComment,
			info:  exifTags[TagUserComment],
			value: picture.TextValue("ok"),
			want:  Entry{ID: TagUserComment, Type: tiff.DTUndefined, Count: 10, Data: []byte("ASCII\x00\x00\x00ok")},
		},
		{
			name:  "raw undefined passes through",
			id:    0x9000,
			info:  exifTags[0x9000],
			value: picture.RawValue([]byte{0, 1, 2}),
			want:  Entry{ID: 0x9000, Type: tiff.DTUndefined, Count: 3, Data: []byte{0, 1, 2}},
		},
		{
			name:    "short out of range",
			id:      0x0112,
			info:    imageTags[0x0112],
			value:   picture.IntegerValue(70000),
			wantErr: true,
		},
		{
			name:    "short not a number",
			id:      0x0112,
			info:    imageTags[0x0112],
			value:   picture.TextValue("sideways"),
			wantErr: true,
		},
		{
			name:    "negative unsigned rational",
			id:      0x829A,
			info:    exifTags[0x829A],
			value:   picture.TextValue("-1/60"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeValue(le, tt.id, tt.info, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeValueBigEndian(t *testing.T) {
	var order binary.ByteOrder = binary.BigEndian

	e, err := EncodeValue(order, 0x0112, imageTags[0x0112], picture.IntegerValue(6))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 6}, e.Data)

	e, err = EncodeValue(order, 0x9204, exifTags[0x9204], picture.TextValue("-1/3"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 3}, e.Data)

	assert.Equal(t, "-1/3", DecodeValue(order, e).String())
}

func TestSetByNameRejectsUnknownAndPointerTags(t *testing.T) {
	d := New()
	for _, name := range []string{"NoSuchTag", "ExifTag", "GPSTag", "JPEGInterchangeFormat"} {
		_, err := d.SetByName(name, picture.TextValue("1"))
		assert.ErrorIs(t, err, ErrUnknownTag, name)
	}
	assert.True(t, d.Empty())
}

func TestSetByNamePrefersPrimaryGroup(t *testing.T) {
	d := New()
	g, err := d.SetByName("Software", picture.TextValue("depic"))
	require.NoError(t, err)
	assert.Equal(t, Group0th, g)

	g, err = d.SetByName("GPSAltitude", picture.TextValue("120/1"))
	require.NoError(t, err)
	assert.Equal(t, GroupGPS, g)
}

func TestDescriptiveFieldsSkipsLayout(t *testing.T) {
	d := New()
	for name, v := range map[string]picture.Value{
		"ImageWidth":   picture.IntegerValue(640),
		"StripOffsets": picture.IntegerValue(8),
		"XResolution":  picture.TextValue("72/1"),
		"Artist":       picture.TextValue("someone"),
		"Orientation":  picture.IntegerValue(1),
	} {
		_, err := d.SetByName(name, v)
		require.NoError(t, err, name)
	}

	all := d.Fields()
	assert.Len(t, all, 5)

	descriptive := d.DescriptiveFields()
	assert.Equal(t, []string{"Artist", "Orientation"}, descriptive.Names())
}
