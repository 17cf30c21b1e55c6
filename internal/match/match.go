// Package match restricts an object mask to the pixels whose hue is close to
// a reference color.
package match

import (
	"image"

	"object-paint-agent/internal/colors"
	"object-paint-agent/internal/core"
)

const (
	// Full weight up to tolerance*fullMatchFactor, linear falloff to zero at
	// tolerance*falloffFactor.
	fullMatchFactor = 1.2
	falloffFactor   = 1.8

	// Pixels darker than this inside the object lose reliable hue and are
	// always included.
	CastShadowValue = 0.25

	// References below this saturation are matched on grayness, not hue.
	achromaticSaturation = 0.1
	grayFullSaturation   = 0.15
	grayZeroSaturation   = 0.3
)

// Options tunes the hue match. HueTolerance is in degrees on the 0-360
// circle. Zero gates are permissive.
type Options struct {
	HueTolerance  float64
	MinSaturation float64
	MinValue      float64
}

// WithinMask returns objectMask multiplied by a per-pixel color-match weight
// against sourceColor, clipped to [0,1].
func WithinMask(img *image.NRGBA, objectMask core.Mask, sourceColor string, opts Options) core.Mask {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	mask := objectMask.Normalize(w, h)
	out := core.NewMask(w, h)

	refH, refS, _ := colors.Parse(sourceColor).HSV()
	achromatic := refS < achromaticSaturation

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mask.Values[i]
			if m <= 0 {
				continue
			}
			ph, ps, pv := colors.ToHSV(row[x*4], row[x*4+1], row[x*4+2])

			var weight float64
			if achromatic {
				weight = linearFalloff(ps, grayFullSaturation, grayZeroSaturation)
			} else {
				weight = HueWeight(colors.HueDistance(ph, refH), opts.HueTolerance)
			}
			if ps < opts.MinSaturation || pv < opts.MinValue {
				weight = 0
			}
			if pv < CastShadowValue {
				weight = 1
			}

			out.Values[i] = m * float32(weight)
		}
	}
	return out.Clip()
}

// HueWeight maps a hue distance in degrees to a match weight in [0,1].
func HueWeight(distance, tolerance float64) float64 {
	return linearFalloff(distance, tolerance*fullMatchFactor, tolerance*falloffFactor)
}

func linearFalloff(d, full, zero float64) float64 {
	switch {
	case d <= full:
		return 1
	case d >= zero:
		return 0
	}
	return (zero - d) / (zero - full)
}
