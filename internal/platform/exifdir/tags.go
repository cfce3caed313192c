package exifdir

import (
	"strconv"

	"github.com/rwcarlsen/goexif/tiff"
)

// Group names a tag directory (IFD) inside an EXIF block
type Group string

// Tag groups, in the order they are walked and serialized
const (
	Group0th     Group = "0th"
	GroupExif    Group = "Exif"
	GroupGPS     Group = "GPS"
	GroupInterop Group = "Interop"
	Group1st     Group = "1st"
)

// Groups lists every group in walk order
var Groups = []Group{Group0th, GroupExif, GroupGPS, GroupInterop, Group1st}

// WritableGroups lists the groups searched when a field is updated by name
var WritableGroups = []Group{Group0th, GroupExif, GroupGPS, Group1st}

// Directory pointer and thumbnail location tags
const (
	TagExifPointer     uint16 = 0x8769
	TagGPSPointer      uint16 = 0x8825
	TagInteropPointer  uint16 = 0xA005
	TagThumbnailOffset uint16 = 0x0201
	TagThumbnailLength uint16 = 0x0202
	TagUserComment     uint16 = 0x9286
)

// TagInfo is the static description of a known tag
type TagInfo struct {
	Name string
	Type tiff.DataType
}

const (
	tByte      = tiff.DTByte
	tASCII     = tiff.DTAscii
	tShort     = tiff.DTShort
	tLong      = tiff.DTLong
	tRational  = tiff.DTRational
	tUndef     = tiff.DTUndefined
	tSRational = tiff.DTSRational
)

var imageTags = map[uint16]TagInfo{
	0x000B: {"ProcessingSoftware", tASCII},
	0x00FE: {"NewSubfileType", tLong},
	0x00FF: {"SubfileType", tShort},
	0x0100: {"ImageWidth", tLong},
	0x0101: {"ImageLength", tLong},
	0x0102: {"BitsPerSample", tShort},
	0x0103: {"Compression", tShort},
	0x0106: {"PhotometricInterpretation", tShort},
	0x0107: {"Threshholding", tShort},
	0x0108: {"CellWidth", tShort},
	0x0109: {"CellLength", tShort},
	0x010A: {"FillOrder", tShort},
	0x010D: {"DocumentName", tASCII},
	0x010E: {"ImageDescription", tASCII},
	0x010F: {"Make", tASCII},
	0x0110: {"Model", tASCII},
	0x0111: {"StripOffsets", tLong},
	0x0112: {"Orientation", tShort},
	0x0115: {"SamplesPerPixel", tShort},
	0x0116: {"RowsPerStrip", tLong},
	0x0117: {"StripByteCounts", tLong},
	0x011A: {"XResolution", tRational},
	0x011B: {"YResolution", tRational},
	0x011C: {"PlanarConfiguration", tShort},
	0x0128: {"ResolutionUnit", tShort},
	0x0129: {"PageNumber", tShort},
	0x012D: {"TransferFunction", tShort},
	0x0131: {"Software", tASCII},
	0x0132: {"DateTime", tASCII},
	0x013B: {"Artist", tASCII},
	0x013C: {"HostComputer", tASCII},
	0x013D: {"Predictor", tShort},
	0x013E: {"WhitePoint", tRational},
	0x013F: {"PrimaryChromaticities", tRational},
	0x0140: {"ColorMap", tShort},
	0x0142: {"TileWidth", tShort},
	0x0143: {"TileLength", tShort},
	0x0144: {"TileOffsets", tShort},
	0x0145: {"TileByteCounts", tShort},
	0x0152: {"ExtraSamples", tShort},
	0x0153: {"SampleFormat", tShort},
	0x0201: {"JPEGInterchangeFormat", tLong},
	0x0202: {"JPEGInterchangeFormatLength", tLong},
	0x0211: {"YCbCrCoefficients", tRational},
	0x0212: {"YCbCrSubSampling", tShort},
	0x0213: {"YCbCrPositioning", tShort},
	0x0214: {"ReferenceBlackWhite", tRational},
	0x02BC: {"XMLPacket", tByte},
	0x4746: {"Rating", tShort},
	0x4749: {"RatingPercent", tShort},
	0x800D: {"ImageID", tASCII},
	0x8298: {"Copyright", tASCII},
	0x8769: {"ExifTag", tLong},
	0x8825: {"GPSTag", tLong},
	0x9C9B: {"XPTitle", tByte},
	0x9C9C: {"XPComment", tByte},
	0x9C9D: {"XPAuthor", tByte},
	0x9C9E: {"XPKeywords", tByte},
	0x9C9F: {"XPSubject", tByte},
	0xC4A5: {"PrintImageMatching", tUndef},
}

var exifTags = map[uint16]TagInfo{
	0x829A: {"ExposureTime", tRational},
	0x829D: {"FNumber", tRational},
	0x8822: {"ExposureProgram", tShort},
	0x8824: {"SpectralSensitivity", tASCII},
	0x8827: {"ISOSpeedRatings", tShort},
	0x8828: {"OECF", tUndef},
	0x8830: {"SensitivityType", tShort},
	0x9000: {"ExifVersion", tUndef},
	0x9003: {"DateTimeOriginal", tASCII},
	0x9004: {"DateTimeDigitized", tASCII},
	0x9010: {"OffsetTime", tASCII},
	0x9011: {"OffsetTimeOriginal", tASCII},
	0x9012: {"OffsetTimeDigitized", tASCII},
	0x9101: {"ComponentsConfiguration", tUndef},
	0x9102: {"CompressedBitsPerPixel", tRational},
	0x9201: {"ShutterSpeedValue", tSRational},
	0x9202: {"ApertureValue", tRational},
	0x9203: {"BrightnessValue", tSRational},
	0x9204: {"ExposureBiasValue", tSRational},
	0x9205: {"MaxApertureValue", tRational},
	0x9206: {"SubjectDistance", tRational},
	0x9207: {"MeteringMode", tShort},
	0x9208: {"LightSource", tShort},
	0x9209: {"Flash", tShort},
	0x920A: {"FocalLength", tRational},
	0x9214: {"SubjectArea", tShort},
	0x927C: {"MakerNote", tUndef},
	0x9286: {"UserComment", tUndef},
	0x9290: {"SubSecTime", tASCII},
	0x9291: {"SubSecTimeOriginal", tASCII},
	0x9292: {"SubSecTimeDigitized", tASCII},
	0xA000: {"FlashpixVersion", tUndef},
	0xA001: {"ColorSpace", tShort},
	0xA002: {"PixelXDimension", tLong},
	0xA003: {"PixelYDimension", tLong},
	0xA004: {"RelatedSoundFile", tASCII},
	0xA005: {"InteroperabilityTag", tLong},
	0xA20B: {"FlashEnergy", tRational},
	0xA20C: {"SpatialFrequencyResponse", tUndef},
	0xA20E: {"FocalPlaneXResolution", tRational},
	0xA20F: {"FocalPlaneYResolution", tRational},
	0xA210: {"FocalPlaneResolutionUnit", tShort},
	0xA214: {"SubjectLocation", tShort},
	0xA215: {"ExposureIndex", tRational},
	0xA217: {"SensingMethod", tShort},
	0xA300: {"FileSource", tUndef},
	0xA301: {"SceneType", tUndef},
	0xA302: {"CFAPattern", tUndef},
	0xA401: {"CustomRendered", tShort},
	0xA402: {"ExposureMode", tShort},
	0xA403: {"WhiteBalance", tShort},
	0xA404: {"DigitalZoomRatio", tRational},
	0xA405: {"FocalLengthIn35mmFilm", tShort},
	0xA406: {"SceneCaptureType", tShort},
	0xA407: {"GainControl", tShort},
	0xA408: {"Contrast", tShort},
	0xA409: {"Saturation", tShort},
	0xA40A: {"Sharpness", tShort},
	0xA40B: {"DeviceSettingDescription", tUndef},
	0xA40C: {"SubjectDistanceRange", tShort},
	0xA420: {"ImageUniqueID", tASCII},
	0xA430: {"CameraOwnerName", tASCII},
	0xA431: {"BodySerialNumber", tASCII},
	0xA432: {"LensSpecification", tRational},
	0xA433: {"LensMake", tASCII},
	0xA434: {"LensModel", tASCII},
	0xA435: {"LensSerialNumber", tASCII},
	0xA500: {"Gamma", tRational},
}

var gpsTags = map[uint16]TagInfo{
	0x0000: {"GPSVersionID", tByte},
	0x0001: {"GPSLatitudeRef", tASCII},
	0x0002: {"GPSLatitude", tRational},
	0x0003: {"GPSLongitudeRef", tASCII},
	0x0004: {"GPSLongitude", tRational},
	0x0005: {"GPSAltitudeRef", tByte},
	0x0006: {"GPSAltitude", tRational},
	0x0007: {"GPSTimeStamp", tRational},
	0x0008: {"GPSSatellites", tASCII},
	0x0009: {"GPSStatus", tASCII},
	0x000A: {"GPSMeasureMode", tASCII},
	0x000B: {"GPSDOP", tRational},
	0x000C: {"GPSSpeedRef", tASCII},
	0x000D: {"GPSSpeed", tRational},
	0x000E: {"GPSTrackRef", tASCII},
	0x000F: {"GPSTrack", tRational},
	0x0010: {"GPSImgDirectionRef", tASCII},
	0x0011: {"GPSImgDirection", tRational},
	0x0012: {"GPSMapDatum", tASCII},
	0x0013: {"GPSDestLatitudeRef", tASCII},
	0x0014: {"GPSDestLatitude", tRational},
	0x0015: {"GPSDestLongitudeRef", tASCII},
	0x0016: {"GPSDestLongitude", tRational},
	0x0017: {"GPSDestBearingRef", tASCII},
	0x0018: {"GPSDestBearing", tRational},
	0x0019: {"GPSDestDistanceRef", tASCII},
	0x001A: {"GPSDestDistance", tRational},
	0x001B: {"GPSProcessingMethod", tUndef},
	0x001C: {"GPSAreaInformation", tUndef},
	0x001D: {"GPSDateStamp", tASCII},
	0x001E: {"GPSDifferential", tShort},
	0x001F: {"GPSHPositioningError", tRational},
}

var interopTags = map[uint16]TagInfo{
	0x0001: {"InteroperabilityIndex", tASCII},
	0x0002: {"InteroperabilityVersion", tUndef},
	0x1000: {"RelatedImageFileFormat", tASCII},
	0x1001: {"RelatedImageWidth", tLong},
	0x1002: {"RelatedImageLength", tLong},
}

var tagTables = map[Group]map[uint16]TagInfo{
	Group0th:     imageTags,
	GroupExif:    exifTags,
	GroupGPS:     gpsTags,
	GroupInterop: interopTags,
	Group1st:     imageTags,
}

// Lookup returns the static description of a tag
func Lookup(group Group, id uint16) (TagInfo, bool) {
	info, ok := tagTables[group][id]
	return info, ok
}

// TagName resolves a tag id to its name, or Tag_<id> when unknown
func TagName(group Group, id uint16) string {
	if info, ok := Lookup(group, id); ok {
		return info.Name
	}
	return "Tag_" + strconv.Itoa(int(id))
}

// FindByName searches groups in order for a tag with the given name
func FindByName(name string, groups ...Group) (Group, uint16, TagInfo, bool) {
	for _, g := range groups {
		for id, info := range tagTables[g] {
			if info.Name == name {
				return g, id, info, true
			}
		}
	}
	return "", 0, TagInfo{}, false
}

// IsPointer reports whether the tag links to another directory or the thumbnail
func IsPointer(id uint16) bool {
	switch id {
	case TagExifPointer, TagGPSPointer, TagInteropPointer:
		return true
	}
	return false
}

// layoutTags describe how pixel data is stored in a TIFF file rather than the picture
var layoutTags = map[uint16]bool{
	0x00FE: true, // NewSubfileType
	0x0100: true, // ImageWidth
	0x0101: true, // ImageLength
	0x0102: true, // BitsPerSample
	0x0103: true, // Compression
	0x0106: true, // PhotometricInterpretation
	0x010A: true, // FillOrder
	0x0111: true, // StripOffsets
	0x0115: true, // SamplesPerPixel
	0x0116: true, // RowsPerStrip
	0x0117: true, // StripByteCounts
	0x011A: true, // XResolution
	0x011B: true, // YResolution
	0x011C: true, // PlanarConfiguration
	0x0128: true, // ResolutionUnit
	0x013D: true, // Predictor
	0x0140: true, // ColorMap
	0x0142: true, // TileWidth
	0x0143: true, // TileLength
	0x0144: true, // TileOffsets
	0x0145: true, // TileByteCounts
	0x0152: true, // ExtraSamples
	0x0153: true, // SampleFormat
}

// IsLayout reports whether an image-directory tag only describes the TIFF pixel layout
func IsLayout(group Group, id uint16) bool {
	return (group == Group0th || group == Group1st) && layoutTags[id]
}
