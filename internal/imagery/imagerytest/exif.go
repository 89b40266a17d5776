// Package imagerytest builds images with EXIF blocks for tests.
package imagerytest

import (
	"encoding/binary"
)

// DMS is a coordinate in whole degrees, minutes and seconds.
type DMS [3]uint32

// GPSTIFF returns a big-endian TIFF whose GPS IFD records lat and lon.
func GPSTIFF(lat DMS, latRef string, lon DMS, lonRef string) []byte {
	be := binary.BigEndian
	buf := make([]byte, 128)
	copy(buf, "MM\x00\x2a")
	be.PutUint32(buf[4:], 8)

	entry := func(at int, tag, typ uint16, count uint32) {
		be.PutUint16(buf[at:], tag)
		be.PutUint16(buf[at+2:], typ)
		be.PutUint32(buf[at+4:], count)
	}

	// IFD0 at 8: one entry pointing at the GPS IFD
	be.PutUint16(buf[8:], 1)
	entry(10, 0x8825, 4, 1)
	be.PutUint32(buf[18:], 26)
	be.PutUint32(buf[22:], 0)

	// GPS IFD at 26: refs inline, rationals at 80 and 104
	be.PutUint16(buf[26:], 4)
	entry(28, 0x0001, 2, 2)
	copy(buf[36:], latRef)
	entry(40, 0x0002, 5, 3)
	be.PutUint32(buf[48:], 80)
	entry(52, 0x0003, 2, 2)
	copy(buf[60:], lonRef)
	entry(64, 0x0004, 5, 3)
	be.PutUint32(buf[72:], 104)
	be.PutUint32(buf[76:], 0)

	for i, v := range append(lat[:], lon[:]...) {
		be.PutUint32(buf[80+i*8:], v)
		be.PutUint32(buf[84+i*8:], 1)
	}
	return buf
}

// ExifSegment wraps payload in a JPEG APP1 Exif segment.
func ExifSegment(payload []byte) []byte {
	body := append([]byte("Exif\x00\x00"), payload...)
	size := len(body) + 2
	return append([]byte{0xFF, 0xE1, byte(size >> 8), byte(size)}, body...)
}

// WithSegment inserts seg right after the SOI marker of jpeg.
func WithSegment(jpeg, seg []byte) []byte {
	out := make([]byte, 0, len(jpeg)+len(seg))
	out = append(out, jpeg[:2]...)
	out = append(out, seg...)
	return append(out, jpeg[2:]...)
}

// WithGPS returns jpeg carrying a GPS EXIF block.
func WithGPS(jpeg []byte, lat DMS, latRef string, lon DMS, lonRef string) []byte {
	return WithSegment(jpeg, ExifSegment(GPSTIFF(lat, latRef, lon, lonRef)))
}
