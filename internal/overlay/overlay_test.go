package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"object-paint-agent/internal/core"
)

func canvas(alpha uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 20, B: 20, A: alpha})
		}
	}
	return img
}

func alphaOf(img *image.NRGBA) []uint8 {
	out := make([]uint8, 0, len(img.Pix)/4)
	for i := 3; i < len(img.Pix); i += 4 {
		out = append(out, img.Pix[i])
	}
	return out
}

func TestDrawBoxes(t *testing.T) {
	img := canvas(180)

	out := DrawBoxes(img, [][4]float64{{10, 10, 50, 40}, {60, 20, 90, 70}}, []string{"cup", ""}, 1)

	assert.Equal(t, color.NRGBA{R: 255, G: 200, B: 0, A: 180}, out.NRGBAAt(30, 10), "default box edge")
	assert.Equal(t, color.NRGBA{R: 0, G: 255, B: 0, A: 180}, out.NRGBAAt(75, 70), "highlighted box edge")
	assert.Equal(t, color.NRGBA{R: 20, G: 20, B: 20, A: 180}, out.NRGBAAt(30, 25), "interior untouched")
	assert.Equal(t, alphaOf(img), alphaOf(out))
	assert.Equal(t, color.NRGBA{R: 20, G: 20, B: 20, A: 180}, img.NRGBAAt(30, 10), "input not modified")
}

func TestDrawRect(t *testing.T) {
	img := canvas(255)

	out := DrawRect(img, core.RectHint{Left: 10, Top: 25, Right: 60, Bottom: 75})

	assert.Equal(t, color.NRGBA{R: 0, G: 255, B: 0, A: 255}, out.NRGBAAt(30, 20))
	assert.Equal(t, color.NRGBA{R: 20, G: 20, B: 20, A: 255}, out.NRGBAAt(30, 40))
}

func TestDrawRectInvalidDrawsNothing(t *testing.T) {
	img := canvas(255)

	out := DrawRect(img, core.RectHint{Left: 50, Top: 50, Right: 40, Bottom: 90})

	assert.Equal(t, img.Pix, out.Pix)
}

func TestDrawPoints(t *testing.T) {
	img := canvas(90)

	out := DrawPoints(img, core.PointHints{
		Foreground: []core.Point{{Row: 40, Col: 30}},
		Background: []core.Point{{Row: 40, Col: 70}},
	})

	assert.Equal(t, color.NRGBA{R: 0, G: 255, B: 0, A: 90}, out.NRGBAAt(44, 40))
	assert.Equal(t, color.NRGBA{R: 255, G: 0, B: 0, A: 90}, out.NRGBAAt(84, 40))
	assert.Equal(t, color.NRGBA{R: 20, G: 20, B: 20, A: 90}, out.NRGBAAt(30, 40), "circle center untouched")
	assert.Equal(t, alphaOf(img), alphaOf(out))
}
