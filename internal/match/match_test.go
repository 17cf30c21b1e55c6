package match

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"object-paint-agent/internal/core"
)

// Left half yellow, right half red, bottom rows of the red half in deep shade.
func twoToneObject() (*image.NRGBA, core.Mask) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	mask := core.NewMask(20, 10)
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			c := color.NRGBA{R: 230, G: 210, B: 30, A: 255}
			if x >= 10 {
				c = color.NRGBA{R: 210, G: 30, B: 30, A: 255}
				if y >= 8 {
					c = color.NRGBA{R: 40, G: 8, B: 8, A: 255}
				}
			}
			img.SetNRGBA(x, y, c)
			mask.Set(x, y, 1)
		}
	}
	return img, mask
}

func TestHueWeight(t *testing.T) {
	assert.Equal(t, 1.0, HueWeight(0, 25))
	assert.Equal(t, 1.0, HueWeight(30, 25))
	assert.Equal(t, 0.0, HueWeight(45, 25))
	assert.InDelta(t, 0.5, HueWeight(37.5, 25), 1e-9)
	assert.Equal(t, 1.0, HueWeight(0, 0), "zero tolerance still matches the exact hue")
	assert.Equal(t, 0.0, HueWeight(1, 0))
}

func TestWithinMaskSelectsReferenceHue(t *testing.T) {
	img, mask := twoToneObject()

	out := WithinMask(img, mask, "#FFD700", Options{HueTolerance: 25})

	assert.Equal(t, float32(1), out.At(2, 2), "yellow part selected")
	assert.Equal(t, float32(0), out.At(15, 2), "red accent excluded")
	assert.Equal(t, float32(1), out.At(15, 9), "dark shade always included")
}

func TestWithinMaskNeverExceedsObjectMask(t *testing.T) {
	img, mask := twoToneObject()
	for x := 0; x < 20; x++ {
		mask.Set(x, 0, 0)
		mask.Set(x, 1, 0.4)
	}

	out := WithinMask(img, mask, "#FFD700", Options{HueTolerance: 25})

	for i := range out.Values {
		assert.LessOrEqual(t, out.Values[i], mask.Values[i])
	}
	assert.Equal(t, float32(0), out.At(2, 0))
	assert.InDelta(t, 0.4, out.At(2, 1), 1e-6)
}

func TestWithinMaskHueWrapsAround(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 0, B: 20, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 255, G: 20, B: 0, A: 255})
	mask := core.NewMask(2, 1)
	mask.Set(0, 0, 1)
	mask.Set(1, 0, 1)

	out := WithinMask(img, mask, "#FF0000", Options{HueTolerance: 10})

	assert.Equal(t, float32(1), out.At(0, 0), "hue near 355 matches reference 0")
	assert.Equal(t, float32(1), out.At(1, 0))
}

func TestWithinMaskSaturationGate(t *testing.T) {
	img, mask := twoToneObject()

	out := WithinMask(img, mask, "#FFD700", Options{HueTolerance: 25, MinSaturation: 0.95})

	assert.Equal(t, float32(0), out.At(2, 2), "yellow saturation is below the gate")
	assert.Equal(t, float32(1), out.At(15, 9), "shadow union ignores gates")
}

func TestWithinMaskAchromaticReference(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 200, B: 205, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	mask := core.NewMask(2, 1)
	mask.Set(0, 0, 1)
	mask.Set(1, 0, 1)

	out := WithinMask(img, mask, "#C8C8C8", Options{HueTolerance: 25})

	assert.Equal(t, float32(1), out.At(0, 0))
	assert.Equal(t, float32(0), out.At(1, 0))
}
