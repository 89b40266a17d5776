package imagery

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengliwice/trees-backend/internal/imagery/imagerytest"
)

func sample(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// exifSegment builds a minimal APP1 Exif segment carrying payload.
func exifSegment(payload string) []byte {
	body := append([]byte("Exif\x00\x00"), payload...)
	size := len(body) + 2
	return append([]byte{0xFF, 0xE1, byte(size >> 8), byte(size)}, body...)
}

func TestDetect(t *testing.T) {
	typ, err := Detect(encodeJPEG(t, sample(8, 8)))
	require.NoError(t, err)
	assert.Equal(t, Type{Ext: "jpg", MIME: "image/jpeg"}, typ)

	typ, err = Detect(encodePNG(t, sample(8, 8)))
	require.NoError(t, err)
	assert.Equal(t, Type{Ext: "png", MIME: "image/png"}, typ)

	_, err = Detect([]byte("definitely not a picture"))
	assert.ErrorIs(t, err, ErrNotImage)

	_, err = Detect(nil)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestThumbnail_JPEGKeepsExif(t *testing.T) {
	orig := encodeJPEG(t, sample(640, 480))
	seg := exifSegment("MM\x00*orientation")
	withExif := insertSegment(orig, seg)

	thumb, typ, err := Thumbnail(withExif, Type{Ext: "jpg", MIME: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "jpg", typ.Ext)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, ThumbnailWidth, cfg.Width)
	assert.Equal(t, ThumbnailHeight, cfg.Height)
	assert.Equal(t, seg, jpegExif(thumb))
}

func TestThumbnail_JPEGWithoutExif(t *testing.T) {
	thumb, _, err := Thumbnail(encodeJPEG(t, sample(300, 300)), Type{Ext: "jpg", MIME: "image/jpeg"})
	require.NoError(t, err)
	assert.Nil(t, jpegExif(thumb))
}

func TestThumbnail_PNG(t *testing.T) {
	thumb, typ, err := Thumbnail(encodePNG(t, sample(50, 400)), Type{Ext: "png", MIME: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, Type{Ext: "png", MIME: "image/png"}, typ)

	cfg, err := png.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, ThumbnailWidth, cfg.Width)
	assert.Equal(t, ThumbnailHeight, cfg.Height)
}

// tinyWebP is a 1x1 lossless WebP.
const tinyWebP = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func TestThumbnail_WebPBecomesJPEG(t *testing.T) {
	data, err := base64.StdEncoding.DecodeString(tinyWebP)
	require.NoError(t, err)
	typ, err := Detect(data)
	require.NoError(t, err)
	require.Equal(t, "webp", typ.Ext)
	require.True(t, Thumbnailable(typ))

	thumb, out, err := Thumbnail(data, typ)
	require.NoError(t, err)
	assert.Equal(t, Type{Ext: "jpg", MIME: "image/jpeg"}, out)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, ThumbnailWidth, cfg.Width)
}

func TestThumbnail_Errors(t *testing.T) {
	_, _, err := Thumbnail([]byte("RIFF....WEBP"), Type{Ext: "webp", MIME: "image/webp"})
	assert.Error(t, err)
	assert.False(t, Thumbnailable(Type{Ext: "heif"}))
	assert.True(t, Thumbnailable(Type{Ext: "jpg"}))

	_, _, err = Thumbnail([]byte{0xFF, 0xD8, 0xFF, 0x00}, Type{Ext: "jpg", MIME: "image/jpeg"})
	assert.Error(t, err)
}

func TestGPS(t *testing.T) {
	photo := imagerytest.WithGPS(encodeJPEG(t, sample(16, 16)), imagerytest.DMS{50, 17, 24}, "N", imagerytest.DMS{18, 40, 12}, "E")

	lat, lon, ok := GPS(photo)
	require.True(t, ok)
	assert.InDelta(t, 50.29, lat, 1e-9)
	assert.InDelta(t, 18.67, lon, 1e-9)

	west := imagerytest.WithGPS(encodeJPEG(t, sample(16, 16)), imagerytest.DMS{33, 52, 4}, "S", imagerytest.DMS{151, 12, 36}, "W")
	lat, lon, ok = GPS(west)
	require.True(t, ok)
	assert.Less(t, lat, 0.0)
	assert.Less(t, lon, 0.0)
}

func TestGPS_Absent(t *testing.T) {
	_, _, ok := GPS(encodeJPEG(t, sample(16, 16)))
	assert.False(t, ok)

	_, _, ok = GPS(encodePNG(t, sample(16, 16)))
	assert.False(t, ok)

	noGPS := insertSegment(encodeJPEG(t, sample(16, 16)), exifSegment("MM\x00*orientation"))
	_, _, ok = GPS(noGPS)
	assert.False(t, ok)
}

func TestJpegExif_Malformed(t *testing.T) {
	assert.Nil(t, jpegExif([]byte{0x89, 'P', 'N', 'G'}))
	assert.Nil(t, jpegExif([]byte{0xFF, 0xD8, 0xFF, 0xE1, 0x00}))
	assert.Nil(t, jpegExif([]byte{0xFF, 0xD8, 0xFF, 0xE1, 0xFF, 0xFF, 0x00}))
}
