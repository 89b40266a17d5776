// Package imagery sniffs uploaded images and derives thumbnails.
package imagery

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // registers the WebP decoder with imaging.Decode
)

// Thumbnail bounding box.
const (
	ThumbnailWidth  = 200
	ThumbnailHeight = 200
)

// ErrNotImage is returned when the content is not a recognized image.
var ErrNotImage = errors.New("imagery: not an image")

// Type is the sniffed kind of an image.
type Type struct {
	Ext  string
	MIME string
}

// Detect identifies the image type from the content, ignoring whatever the
// client declared.
func Detect(data []byte) (Type, error) {
	kind, err := filetype.Image(data)
	if err != nil || kind == filetype.Unknown {
		return Type{}, ErrNotImage
	}
	return Type{Ext: kind.Extension, MIME: kind.MIME.Value}, nil
}

// jpegType is what thumbnails of decode-only formats are written as.
var jpegType = Type{Ext: "jpg", MIME: "image/jpeg"}

// decodeOnly lists formats imaging can read but not write.
var decodeOnly = map[string]bool{"webp": true}

// Thumbnailable reports whether Thumbnail accepts images of type t.
func Thumbnailable(t Type) bool {
	_, err := imaging.FormatFromExtension(t.Ext)
	return err == nil || decodeOnly[t.Ext]
}

// Thumbnail resizes data to fill the thumbnail box, cropping the overflow
// around the center, and returns it with its type. The original format is
// kept where imaging can encode it; WebP becomes JPEG. JPEG EXIF is copied
// into the result.
func Thumbnail(data []byte, t Type) ([]byte, Type, error) {
	out := t
	format, err := imaging.FormatFromExtension(t.Ext)
	if err != nil {
		if !decodeOnly[t.Ext] {
			return nil, Type{}, fmt.Errorf("imagery: thumbnail %s: %w", t.Ext, err)
		}
		format, out = imaging.JPEG, jpegType
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Type{}, fmt.Errorf("imagery: decode: %w", err)
	}
	thumb := imaging.Fill(img, ThumbnailWidth, ThumbnailHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return nil, Type{}, fmt.Errorf("imagery: encode: %w", err)
	}
	if format != imaging.JPEG {
		return buf.Bytes(), out, nil
	}
	if seg := jpegExif(data); seg != nil {
		return insertSegment(buf.Bytes(), seg), out, nil
	}
	return buf.Bytes(), out, nil
}

// GPS returns the coordinates recorded in the EXIF block of data, in decimal
// degrees with south and west negative. ok is false when there are none.
func GPS(data []byte) (lat, lon float64, ok bool) {
	// goexif panics on some truncated IFDs
	defer func() {
		if recover() != nil {
			lat, lon, ok = 0, 0, false
		}
	}()

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	lat, lon, err = x.LatLong()
	if err != nil || math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > 90 || math.Abs(lon) > 180 {
		return 0, 0, false
	}
	return lat, lon, true
}

const (
	markerPrefix = 0xFF
	markerSOI    = 0xD8
	markerAPP1   = 0xE1
	markerSOS    = 0xDA
)

var exifHeader = []byte("Exif\x00\x00")

// jpegExif returns the raw APP1 Exif segment (marker included) of a JPEG,
// or nil.
func jpegExif(data []byte) []byte {
	if len(data) < 4 || data[0] != markerPrefix || data[1] != markerSOI {
		return nil
	}
	for i := 2; i+4 <= len(data); {
		if data[i] != markerPrefix {
			return nil
		}
		marker := data[i+1]
		if marker == markerSOS {
			return nil
		}
		size := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		end := i + 2 + size
		if size < 2 || end > len(data) {
			return nil
		}
		if marker == markerAPP1 && bytes.HasPrefix(data[i+4:end], exifHeader) {
			return data[i:end]
		}
		i = end
	}
	return nil
}

// insertSegment places seg right after the SOI marker of jpeg.
func insertSegment(jpeg, seg []byte) []byte {
	out := make([]byte, 0, len(jpeg)+len(seg))
	out = append(out, jpeg[:2]...)
	out = append(out, seg...)
	return append(out, jpeg[2:]...)
}
