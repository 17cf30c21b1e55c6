// Region hints used to seed segmentation
package core

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// RectHint is a selection rectangle expressed as percentages (0-100) of the
// image width and height.
type RectHint struct {
	Left   float64 `json:"left" validate:"gte=0,lte=100"`
	Top    float64 `json:"top" validate:"gte=0,lte=100"`
	Right  float64 `json:"right" validate:"gte=0,lte=100"`
	Bottom float64 `json:"bottom" validate:"gte=0,lte=100"`
}

// Validate rejects hints that would produce an empty or inverted box.
func (r RectHint) Validate() error {
	for _, v := range []float64{r.Left, r.Top, r.Right, r.Bottom} {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return fmt.Errorf("%w: coordinates must be within [0,100], got (%g,%g,%g,%g)",
				ErrInvalidRegion, r.Left, r.Top, r.Right, r.Bottom)
		}
	}
	if r.Left >= r.Right {
		return fmt.Errorf("%w: left (%g) must be less than right (%g)", ErrInvalidRegion, r.Left, r.Right)
	}
	if r.Top >= r.Bottom {
		return fmt.Errorf("%w: top (%g) must be less than bottom (%g)", ErrInvalidRegion, r.Top, r.Bottom)
	}
	return nil
}

// ToPixels resolves the hint against a width x height image. The box is
// clamped to the image and always at least one pixel wide and tall.
func (r RectHint) ToPixels(width, height int) image.Rectangle {
	x := int(math.Round(r.Left / 100 * float64(width)))
	y := int(math.Round(r.Top / 100 * float64(height)))
	x2 := int(math.Round(r.Right / 100 * float64(width)))
	y2 := int(math.Round(r.Bottom / 100 * float64(height)))

	x = max(0, min(x, width-1))
	y = max(0, min(y, height-1))
	x2 = max(x+1, min(x2, width))
	y2 = max(y+1, min(y2, height))

	return image.Rect(x, y, x2, y2)
}

// Signature is a stable textual form used in cache keys.
func (r RectHint) Signature() string {
	return fmt.Sprintf("rect:%.2f,%.2f,%.2f,%.2f", r.Left, r.Top, r.Right, r.Bottom)
}

// Point is a pixel position in (row, col) order.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// In reports whether p lies inside a width x height image.
func (p Point) In(width, height int) bool {
	return p.Col >= 0 && p.Col < width && p.Row >= 0 && p.Row < height
}

// PointHints holds labeled click positions.
type PointHints struct {
	Foreground []Point `json:"foreground"`
	Background []Point `json:"background"`
}

// Empty reports whether no points were given.
func (p PointHints) Empty() bool {
	return len(p.Foreground) == 0 && len(p.Background) == 0
}

// Bounds returns the bounding rectangle of the foreground points.
func (p PointHints) Bounds() image.Rectangle {
	if len(p.Foreground) == 0 {
		return image.Rectangle{}
	}

	minX, minY := p.Foreground[0].Col, p.Foreground[0].Row
	maxX, maxY := minX, minY
	for _, pt := range p.Foreground {
		minX = min(minX, pt.Col)
		maxX = max(maxX, pt.Col)
		minY = min(minY, pt.Row)
		maxY = max(maxY, pt.Row)
	}

	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Signature is a stable textual form used in cache keys.
func (p PointHints) Signature() string {
	var sb strings.Builder
	sb.WriteString("pts:fg")
	for _, pt := range p.Foreground {
		fmt.Fprintf(&sb, ";%d,%d", pt.Row, pt.Col)
	}
	sb.WriteString(":bg")
	for _, pt := range p.Background {
		fmt.Fprintf(&sb, ";%d,%d", pt.Row, pt.Col)
	}
	return sb.String()
}

// ParsePoints reads "row,col;row,col" into points. Blank input yields nil.
func ParsePoints(s string) ([]Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var pts []Point
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var p Point
		if _, err := fmt.Sscanf(part, "%d,%d", &p.Row, &p.Col); err != nil {
			return nil, fmt.Errorf("%w: bad point %q", ErrInvalidRegion, part)
		}
		pts = append(pts, p)
	}
	return pts, nil
}

// ParseRect reads "left,top,right,bottom" percentages and validates them.
func ParseRect(s string) (RectHint, error) {
	var r RectHint
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g,%g,%g,%g", &r.Left, &r.Top, &r.Right, &r.Bottom); err != nil {
		return RectHint{}, fmt.Errorf("%w: expected left,top,right,bottom: %v", ErrInvalidRegion, err)
	}
	if err := r.Validate(); err != nil {
		return RectHint{}, err
	}
	return r, nil
}
