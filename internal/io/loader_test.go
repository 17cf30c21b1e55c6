package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-paint-agent/internal/core"
)

func newLoader(maxSize int) *ImageLoader {
	logger, _ := test.NewNullLogger()
	return NewImageLoader(logger, maxSize)
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 50, A: 128})
		}
	}
	return img
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	l := newLoader(0)
	path := filepath.Join(t.TempDir(), "nested", "out.png")
	src := gradient(30, 20)

	require.NoError(t, l.Save(src, path))
	got, err := l.Load(path)
	require.NoError(t, err)

	assert.Equal(t, src.Rect, got.Rect)
	assert.Equal(t, src.Pix, got.Pix, "PNG keeps RGB and alpha exactly")
}

func TestLoadFitsLargeImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.png")
	require.NoError(t, newLoader(0).Save(gradient(200, 100), path))

	got, err := newLoader(50).Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, got.Rect.Dx())
	assert.Equal(t, 25, got.Rect.Dy())
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.webp")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := newLoader(0).Load(path)
	assert.True(t, errors.Is(err, core.ErrInvalidImage))
}

func TestDecodeGrayGetsOpaqueAlpha(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 3))
	gray.SetGray(1, 1, color.Gray{Y: 77})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gray))

	got, err := newLoader(0).Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, color.NRGBA{R: 77, G: 77, B: 77, A: 255}, got.NRGBAAt(1, 1))
}

func TestDecodeGarbage(t *testing.T) {
	_, err := newLoader(0).Decode(bytes.NewReader([]byte("not an image")))
	assert.True(t, errors.Is(err, core.ErrInvalidImage))
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 1, 1), palette.Plan9), nil))
	data := buf.Bytes()
	// Logical screen width, little endian, right after "GIF89a".
	binary.LittleEndian.PutUint16(data[6:8], 40000)

	logger, hook := test.NewNullLogger()
	_, err := NewImageLoader(logger, 0).Decode(bytes.NewReader(data))

	assert.True(t, errors.Is(err, core.ErrInvalidImage))
	assert.Contains(t, err.Error(), "image too large")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "rejected image before decoding", hook.LastEntry().Message)
	assert.Equal(t, 40000, hook.LastEntry().Data["width"])
}

func TestPNGBytes(t *testing.T) {
	data, err := PNGBytes(gradient(4, 4))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
}

func TestIsSupportedImageFormat(t *testing.T) {
	assert.True(t, IsSupportedImageFormat("a/b/photo.JPG"))
	assert.True(t, IsSupportedImageFormat("scan.tif"))
	assert.False(t, IsSupportedImageFormat("notes.txt"))
	assert.False(t, IsSupportedImageFormat("noext"))
}

func TestGetSupportedFormats(t *testing.T) {
	formats := GetSupportedFormats()
	assert.Contains(t, formats, ".png")
	assert.Contains(t, formats, ".jpeg")

	formats[0] = ".exe"
	assert.False(t, IsSupportedImageFormat("x.exe"), "returned slice is a copy")
}
