// Package overlay draws selection and detection annotations for display.
// Every function returns a new image and leaves alpha untouched.
package overlay

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"object-paint-agent/internal/core"
)

var (
	HighlightColor  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	DefaultColor    = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	ForegroundColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	BackgroundColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

const (
	boxThickness   = 2
	rectThickness  = 3
	pointRadius    = 14
	pointThickness = 4
)

// NoHighlight disables box highlighting in DrawBoxes.
const NoHighlight = -1

// DrawBoxes outlines pixel boxes given as [x1,y1,x2,y2]. The box at index
// highlight uses HighlightColor; a label is printed above each box that has
// one.
func DrawBoxes(img image.Image, boxes [][4]float64, labels []string, highlight int) *image.NRGBA {
	return draw(img, func(canvas *gocv.Mat) {
		for i, b := range boxes {
			c := DefaultColor
			if i == highlight {
				c = HighlightColor
			}
			x1, y1, x2, y2 := int(b[0]), int(b[1]), int(b[2]), int(b[3])
			gocv.Rectangle(canvas, image.Rect(x1, y1, x2, y2), c, boxThickness)
			if i < len(labels) && labels[i] != "" {
				gocv.PutTextWithParams(canvas, labels[i], image.Pt(x1, max(y1-5, 0)),
					gocv.FontHersheySimplex, 0.5, c, 1, gocv.LineAA, false)
			}
		}
	})
}

// DrawRect outlines a percentage hint. Hints that resolve to an empty box
// leave the image as is.
func DrawRect(img image.Image, hint core.RectHint) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	x1 := clampInt(int(math.Round(hint.Left/100*float64(w))), 0, w)
	y1 := clampInt(int(math.Round(hint.Top/100*float64(h))), 0, h)
	x2 := clampInt(int(math.Round(hint.Right/100*float64(w))), 0, w)
	y2 := clampInt(int(math.Round(hint.Bottom/100*float64(h))), 0, h)
	if x1 >= x2 || y1 >= y2 {
		return core.NormalizeImage(img)
	}
	return draw(img, func(canvas *gocv.Mat) {
		gocv.Rectangle(canvas, image.Rect(x1, y1, x2, y2), HighlightColor, rectThickness)
	})
}

// DrawPoints marks foreground clicks in green and background clicks in red.
func DrawPoints(img image.Image, hints core.PointHints) *image.NRGBA {
	return draw(img, func(canvas *gocv.Mat) {
		for _, p := range hints.Foreground {
			gocv.Circle(canvas, image.Pt(p.Col, p.Row), pointRadius, ForegroundColor, pointThickness)
		}
		for _, p := range hints.Background {
			gocv.Circle(canvas, image.Pt(p.Col, p.Row), pointRadius, BackgroundColor, pointThickness)
		}
	})
}

func draw(img image.Image, fn func(canvas *gocv.Mat)) *image.NRGBA {
	base := core.NormalizeImage(img)
	if base.Rect.Empty() {
		return base
	}
	canvas, err := core.ImageToBGRMat(base)
	if err != nil {
		return base
	}
	defer canvas.Close()

	fn(&canvas)
	return core.WriteBGRMat(base, canvas)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
