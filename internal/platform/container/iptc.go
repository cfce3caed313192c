package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/LazySeaHorse/Just-De-Pic/internal/domain/picture"
)

const (
	iptcResourceID = 0x0404
	iimTagMarker   = 0x1C
)

var resourceSignature = []byte("8BIM")

// photoshopResource finds an image resource block by id inside an APP13 payload
func photoshopResource(data []byte, id uint16) ([]byte, bool) {
	pos := 0
	for pos+6 < len(data) {
		if !bytes.Equal(data[pos:pos+4], resourceSignature) {
			return nil, false
		}
		rid := binary.BigEndian.Uint16(data[pos+4:])
		pos += 6

		// Pascal name, padded so length byte plus name is even
		if pos >= len(data) {
			return nil, false
		}
		nameLen := int(data[pos]) + 1
		pos += nameLen + nameLen%2
		if pos+4 > len(data) {
			return nil, false
		}
		size := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		if size < 0 || pos+size > len(data) {
			return nil, false
		}
		if rid == id {
			return data[pos : pos+size], true
		}
		pos += size + size%2
	}
	return nil, false
}

// Dataset is one IIM record
type Dataset struct {
	Record  byte
	Number  byte
	Payload []byte
}

// iimNames maps record 2 (application) dataset numbers to names
var iimNames = map[byte]string{
	0:   "RecordVersion",
	3:   "ObjectTypeReference",
	4:   "ObjectAttributeReference",
	5:   "ObjectName",
	7:   "EditStatus",
	10:  "Urgency",
	12:  "SubjectReference",
	15:  "Category",
	20:  "SupplementalCategories",
	22:  "FixtureIdentifier",
	25:  "Keywords",
	26:  "ContentLocationCode",
	27:  "ContentLocationName",
	30:  "ReleaseDate",
	35:  "ReleaseTime",
	37:  "ExpirationDate",
	38:  "ExpirationTime",
	40:  "SpecialInstructions",
	45:  "ReferenceService",
	47:  "ReferenceDate",
	50:  "ReferenceNumber",
	55:  "DateCreated",
	60:  "TimeCreated",
	62:  "DigitalCreationDate",
	63:  "DigitalCreationTime",
	65:  "OriginatingProgram",
	70:  "ProgramVersion",
	75:  "ObjectCycle",
	80:  "By-line",
	85:  "By-lineTitle",
	90:  "City",
	92:  "Sub-location",
	95:  "Province-State",
	100: "Country-PrimaryLocationCode",
	101: "Country-PrimaryLocationName",
	103: "OriginalTransmissionReference",
	105: "Headline",
	110: "Credit",
	115: "Source",
	116: "CopyrightNotice",
	118: "Contact",
	120: "Caption-Abstract",
	122: "Writer-Editor",
	130: "ImageType",
	131: "ImageOrientation",
	135: "LanguageIdentifier",
}

// ParseIIM splits an IIM block into datasets
func ParseIIM(data []byte) ([]Dataset, error) {
	var out []Dataset
	pos := 0
	for pos < len(data) {
		if data[pos] != iimTagMarker {
			// trailing padding
			if bytes.Count(data[pos:], []byte{0}) == len(data)-pos {
				break
			}
			return out, fmt.Errorf("%w: IIM tag marker expected at offset %d", ErrInvalidData, pos)
		}
		if pos+5 > len(data) {
			return out, fmt.Errorf("%w: truncated IIM header", ErrInvalidData)
		}
		ds := Dataset{Record: data[pos+1], Number: data[pos+2]}
		size := int(binary.BigEndian.Uint16(data[pos+3:]))
		pos += 5

		// extended dataset: the low bits give the width of the real length field
		if size&0x8000 != 0 {
			width := size & 0x7FFF
			if width > 4 || pos+width > len(data) {
				return out, fmt.Errorf("%w: bad extended IIM length", ErrInvalidData)
			}
			size = 0
			for _, b := range data[pos : pos+width] {
				size = size<<8 | int(b)
			}
			pos += width
		}
		if pos+size > len(data) {
			return out, fmt.Errorf("%w: IIM dataset %d:%d overruns block", ErrInvalidData, ds.Record, ds.Number)
		}
		ds.Payload = data[pos : pos+size]
		pos += size
		out = append(out, ds)
	}
	return out, nil
}

// DatasetName resolves a dataset to its name, or IPTC_<record>_<number> when unknown
func DatasetName(record, number byte) string {
	if record == 2 {
		if name, ok := iimNames[number]; ok {
			return name
		}
	}
	return "IPTC_" + strconv.Itoa(int(record)) + "_" + strconv.Itoa(int(number))
}

// IPTCFields decodes an IIM block; repeated datasets are joined with ", "
func IPTCFields(data []byte) (picture.Fields, error) {
	datasets, err := ParseIIM(data)
	fields := picture.Fields{}
	for _, ds := range datasets {
		name := DatasetName(ds.Record, ds.Number)
		var v picture.Value
		if ds.Number == 0 && len(ds.Payload) == 2 {
			v = picture.IntegerValue(int64(binary.BigEndian.Uint16(ds.Payload)))
		} else {
			v = textOrRaw(ds.Payload)
		}
		if prev, ok := fields[name]; ok {
			v = picture.TextValue(prev.String() + ", " + v.String())
		}
		fields[name] = v
	}
	return fields, err
}

// textOrRaw returns printable UTF-8 as text and anything else as raw bytes
func textOrRaw(b []byte) picture.Value {
	text := bytes.TrimRight(b, "\x00")
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
