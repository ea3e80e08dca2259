// Package proof implements authenticity checking of submitted photographic
// proof. It extracts the embedded EXIF capture timestamp from already-loaded
// image bytes and classifies freshness. Extraction is a pure function over
// the supplied bytes; this package never touches the filesystem.
//
// No EXIF library ships with the ecosystem stack used elsewhere in this
// repository, and the subset needed here is tiny: locate the TIFF block
// inside a JPEG APP1 segment and read three ASCII tags. The parser below
// covers exactly that subset with strict bounds checking.
package proof

import (
	"encoding/binary"
	"errors"
	"strings"
)

// EXIF/TIFF tags carrying a capture timestamp, in preference order.
const (
	tagDateTime          = 0x0132 // IFD0
	tagExifIFDPointer    = 0x8769 // IFD0 -> Exif sub-IFD
	tagDateTimeOriginal  = 0x9003 // Exif sub-IFD
	tagDateTimeDigitized = 0x9004 // Exif sub-IFD
)

const typeASCII = 2

// errNoTimestamp distinguishes "well-formed image without a timestamp" from
// structural corruption. Callers translate the two cases into different
// verdicts.
var errNoTimestamp = errors.New("no capture timestamp in metadata")

// extractCaptureTimestamp returns the raw EXIF timestamp string
// ("YYYY:MM:DD HH:MM:SS") embedded in the supplied image bytes.
//
// Returns errNoTimestamp when the image parses but carries no timestamp tag,
// and a descriptive error when the container itself is malformed.
func extractCaptureTimestamp(data []byte) (string, error) {
	tiff, err := findTIFFBlock(data)
	if err != nil {
		return "", err
	}
	return readTimestampTags(tiff)
}

// findTIFFBlock locates the TIFF byte block holding the IFD tables. JPEG
// images embed it in an APP1 segment behind an "Exif\0\0" marker; bare TIFF
// files are the block itself.
func findTIFFBlock(data []byte) ([]byte, error) {
	if len(data) >= 4 && (string(data[:2]) == "II" || string(data[:2]) == "MM") {
		return data, nil
	}
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, errors.New("not a JPEG or TIFF image")
	}

	// Walk JPEG segments looking for APP1/Exif.
	off := 2
	for off+4 <= len(data) {
		if data[off] != 0xFF {
			return nil, errors.New("corrupt JPEG segment marker")
		}
		marker := data[off+1]
		// Start-of-scan: image data follows, no further metadata segments.
		if marker == 0xDA {
			break
		}
		segLen := int(binary.BigEndian.Uint16(data[off+2 : off+4]))
		if segLen < 2 || off+2+segLen > len(data) {
			return nil, errors.New("truncated JPEG segment")
		}
		if marker == 0xE1 {
			body := data[off+4 : off+2+segLen]
			if len(body) >= 6 && string(body[:6]) == "Exif\x00\x00" {
				return body[6:], nil
			}
		}
		off += 2 + segLen
	}
	return nil, errNoTimestamp
}

// readTimestampTags walks IFD0 and the Exif sub-IFD, returning the first
// timestamp value found in preference order: DateTimeOriginal,
// DateTimeDigitized, DateTime.
func readTimestampTags(tiff []byte) (string, error) {
	if len(tiff) < 8 {
		return "", errors.New("TIFF header too short")
	}

	var bo binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return "", errors.New("unknown TIFF byte order")
	}
	if bo.Uint16(tiff[2:4]) != 42 {
		return "", errors.New("bad TIFF magic number")
	}

	ifd0 := bo.Uint32(tiff[4:8])

	var dateTime, original, digitized string
	var exifIFD uint32

	err := walkIFD(tiff, bo, ifd0, func(tag, typ uint16, count, valueOff uint32) {
		switch tag {
		case tagDateTime:
			dateTime = readASCII(tiff, bo, typ, count, valueOff)
		case tagExifIFDPointer:
			exifIFD = valueOff
		}
	})
	if err != nil {
		return "", err
	}

	if exifIFD != 0 {
		err = walkIFD(tiff, bo, exifIFD, func(tag, typ uint16, count, valueOff uint32) {
			switch tag {
			case tagDateTimeOriginal:
				original = readASCII(tiff, bo, typ, count, valueOff)
			case tagDateTimeDigitized:
				digitized = readASCII(tiff, bo, typ, count, valueOff)
			}
		})
		if err != nil {
			return "", err
		}
	}

	for _, ts := range []string{original, digitized, dateTime} {
		if ts != "" {
			return ts, nil
		}
	}
	return "", errNoTimestamp
}

// walkIFD iterates the directory entries of a single IFD, invoking visit for
// each. Entry layout: tag (2), type (2), count (4), value-or-offset (4).
func walkIFD(tiff []byte, bo binary.ByteOrder, off uint32, visit func(tag, typ uint16, count, valueOff uint32)) error {
	if int(off)+2 > len(tiff) {
		return errors.New("IFD offset out of range")
	}
	n := int(bo.Uint16(tiff[off : off+2]))
	base := int(off) + 2
	if base+n*12 > len(tiff) {
		return errors.New("IFD entries out of range")
	}
	for i := 0; i < n; i++ {
		e := tiff[base+i*12 : base+i*12+12]
		visit(bo.Uint16(e[0:2]), bo.Uint16(e[2:4]), bo.Uint32(e[4:8]), bo.Uint32(e[8:12]))
	}
	return nil
}

// readASCII resolves an ASCII tag value. Values longer than four bytes live
// at an offset; the EXIF timestamp format is always 20 bytes including the
// trailing NUL, so the offset path is the one that matters.
func readASCII(tiff []byte, bo binary.ByteOrder, typ uint16, count, valueOff uint32) string {
	if typ != typeASCII || count == 0 {
		return ""
	}
	var raw []byte
	if count <= 4 {
		var inline [4]byte
		bo.PutUint32(inline[:], valueOff)
		raw = inline[:count]
	} else {
		end := int(valueOff) + int(count)
		if int(valueOff) >= len(tiff) || end > len(tiff) {
			return ""
		}
		raw = tiff[valueOff:end]
	}
	return strings.TrimRight(string(raw), "\x00")
}
