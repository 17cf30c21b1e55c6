// Package recolor paints the masked part of an image with a target hue while
// keeping the original brightness, so shading and highlights survive.
package recolor

import (
	"image"
	"math"

	"object-paint-agent/internal/colors"
	"object-paint-agent/internal/core"
	"object-paint-agent/internal/match"
)

const (
	// Painted pixels darker than shadowValue are lifted toward liftedValue,
	// scaled by mask weight.
	shadowValue = 0.2
	liftedValue = 0.35
)

// Recolor returns a copy of img with the masked region shifted toward
// req.TargetColor. Pixels outside the mask and the alpha channel are copied
// unchanged. When req.SourceColor is set only pixels near that hue are
// painted.
func Recolor(img image.Image, mask core.Mask, req core.RecolorRequest) *image.NRGBA {
	src := core.NormalizeImage(img)
	out := core.NormalizeImage(src)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return out
	}

	m := mask.Normalize(w, h)
	if req.SourceColor != "" {
		tol := req.HueTolerance
		if tol <= 0 {
			tol = core.DefaultHueTolerance
		}
		m = match.WithinMask(src, m, req.SourceColor, match.Options{HueTolerance: tol})
	}

	th, ts, _ := colors.Parse(req.TargetColor).HSV()
	strength := math.Max(0, math.Min(1, req.Strength))

	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			weight := sharpen(float64(m.Values[y*w+x]))
			if weight <= 0 {
				continue
			}
			px := row[x*4 : x*4+3]
			r, g, b := paint(px[0], px[1], px[2], th, ts, strength, weight)
			px[0] = composite(px[0], r, weight)
			px[1] = composite(px[1], g, weight)
			px[2] = composite(px[2], b, weight)
		}
	}
	return out
}

// sharpen pushes soft edges toward full coverage: values at or above 0.5
// become 1, lower values are doubled.
func sharpen(m float64) float64 {
	if m >= 0.5 {
		return 1
	}
	return math.Max(0, math.Min(1, m*2))
}

// paint returns the recolored pixel on the 0..1 scale.
func paint(r, g, b uint8, targetHue, targetSat, strength, m float64) (float64, float64, float64) {
	h, s, v := colors.ToHSV(r, g, b)

	h = colors.WrapHue(h + colors.HueDelta(h, targetHue)*m)
	s = math.Max(0, math.Min(1, s+(targetSat-s)*strength*m))
	if v < shadowValue {
		v += (liftedValue - v) * m
	}
	return colors.FromHSV(h, s, v)
}

func composite(orig uint8, painted, m float64) uint8 {
	v := float64(orig)*(1-m) + painted*255*m
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
