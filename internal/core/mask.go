package core

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Mask is a soft per-pixel membership map with values in [0,1], stored
// row-major.
type Mask struct {
	Width  int
	Height int
	Values []float32
}

// NewMask returns an all-background mask of the given size.
func NewMask(width, height int) Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Mask{Width: width, Height: height, Values: make([]float32, width*height)}
}

// At returns the value at column x, row y.
func (m Mask) At(x, y int) float32 {
	return m.Values[y*m.Width+x]
}

// Set stores v at column x, row y.
func (m Mask) Set(x, y int, v float32) {
	m.Values[y*m.Width+x] = v
}

// Empty reports whether the mask has no pixels.
func (m Mask) Empty() bool {
	return m.Width == 0 || m.Height == 0 || len(m.Values) == 0
}

// Clone returns a deep copy.
func (m Mask) Clone() Mask {
	out := Mask{Width: m.Width, Height: m.Height, Values: make([]float32, len(m.Values))}
	copy(out.Values, m.Values)
	return out
}

// Max returns the largest value, or 0 for an empty mask.
func (m Mask) Max() float32 {
	var mx float32
	for i, v := range m.Values {
		if i == 0 || v > mx {
			mx = v
		}
	}
	return mx
}

// Coverage returns the mean membership over all pixels.
func (m Mask) Coverage() float64 {
	if len(m.Values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range m.Values {
		sum += float64(v)
	}
	return sum / float64(len(m.Values))
}

// Clip returns a copy with every value clamped to [0,1]. NaN becomes 0.
func (m Mask) Clip() Mask {
	out := m.Clone()
	for i, v := range out.Values {
		out.Values[i] = clamp01(v)
	}
	return out
}

// Normalize conforms m to a width x height image: bilinear resize on a size
// mismatch, rescale from [0,255] when the maximum exceeds 1.5, then clip.
func (m Mask) Normalize(width, height int) Mask {
	out := m
	if m.Width != width || m.Height != height || len(m.Values) != width*height {
		out = m.Resize(width, height)
	}
	if out.Max() > 1.5 {
		out = out.Clone()
		for i := range out.Values {
			out.Values[i] /= 255
		}
	}
	return out.Clip()
}

// Resize returns the mask scaled to width x height with linear interpolation.
// A mask with no pixels resizes to all background.
func (m Mask) Resize(width, height int) Mask {
	if width <= 0 || height <= 0 {
		return NewMask(width, height)
	}
	if m.Empty() || len(m.Values) != m.Width*m.Height {
		return NewMask(width, height)
	}
	if m.Width == width && m.Height == height {
		return m.Clone()
	}

	src := m.ToMat()
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)

	return MaskFromMat(dst)
}

// ToMat converts the mask to a single-channel 32-bit float Mat.
func (m Mask) ToMat() gocv.Mat {
	mat := gocv.NewMatWithSize(m.Height, m.Width, gocv.MatTypeCV32F)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			mat.SetFloatAt(y, x, m.Values[y*m.Width+x])
		}
	}
	return mat
}

// ToBinaryMat thresholds the mask into an 8-bit Mat holding 0 or 255.
func (m Mask) ToBinaryMat(threshold float32) (gocv.Mat, error) {
	buf := make([]byte, len(m.Values))
	for i, v := range m.Values {
		if v >= threshold {
			buf[i] = 255
		}
	}
	return gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8U, buf)
}

// MaskFromMat reads a single-channel 8-bit (scaled by 1/255) or 32-bit float
// Mat into a Mask. Values are clipped to [0,1].
func MaskFromMat(mat gocv.Mat) Mask {
	out := NewMask(mat.Cols(), mat.Rows())
	switch mat.Type() {
	case gocv.MatTypeCV8U:
		buf := mat.ToBytes()
		for i := range out.Values {
			out.Values[i] = float32(buf[i]) / 255
		}
	case gocv.MatTypeCV32F:
		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				out.Values[y*out.Width+x] = clamp01(mat.GetFloatAt(y, x))
			}
		}
	}
	return out
}

// MaskFromGray scales an 8-bit gray image into a Mask.
func MaskFromGray(g *image.Gray) Mask {
	b := g.Bounds()
	out := NewMask(b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			out.Values[y*out.Width+x] = float32(g.GrayAt(b.Min.X+x, b.Min.Y+y).Y) / 255
		}
	}
	return out
}

// ToGray renders the mask on the 0..255 scale.
func (m Mask) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Values {
		g.Pix[i] = uint8(math.Round(float64(clamp01(v)) * 255))
	}
	return g
}

func clamp01(v float32) float32 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
