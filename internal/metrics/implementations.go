// Concrete implementations of paint quality metrics
package metrics

import (
	"errors"
	"math"
)

var errSizeMismatch = errors.New("image dimensions mismatch")

func checkPair(s Sample) error {
	if s.Original == nil || s.Painted == nil {
		return errors.New("empty images")
	}
	if !s.Original.Rect.Size().Eq(s.Painted.Rect.Size()) {
		return errSizeMismatch
	}
	return nil
}

// Coverage is the mean mask membership.
type Coverage struct{}

func (Coverage) Calculate(s Sample) (float64, error) {
	if s.Mask.Empty() {
		return 0, nil
	}
	return s.Mask.Coverage(), nil
}

func (Coverage) GetName() string              { return "Coverage" }
func (Coverage) GetDescription() string       { return "Mean object membership over the image" }
func (Coverage) GetRange() (float64, float64) { return 0, 1 }
func (Coverage) IsHigherBetter() bool         { return true }

// PSNR compares painted and original RGB, capped at maxPSNR for identical
// images.
type PSNR struct{}

const maxPSNR = 100.0

func (PSNR) Calculate(s Sample) (float64, error) {
	if err := checkPair(s); err != nil {
		return 0, err
	}
	w, h := s.Original.Rect.Dx(), s.Original.Rect.Dy()
	if w == 0 || h == 0 {
		return 0, errors.New("empty images")
	}

	var sum float64
	for y := 0; y < h; y++ {
		a := s.Original.Pix[y*s.Original.Stride:]
		b := s.Painted.Pix[y*s.Painted.Stride:]
		for x := 0; x < w; x++ {
			for c := 0; c < 3; c++ {
				d := float64(a[x*4+c]) - float64(b[x*4+c])
				sum += d * d
			}
		}
	}
	mse := sum / float64(w*h*3)
	if mse == 0 {
		return maxPSNR, nil
	}
	return math.Min(maxPSNR, 20*math.Log10(255/math.Sqrt(mse))), nil
}

func (PSNR) GetName() string              { return "PSNR" }
func (PSNR) GetDescription() string       { return "Peak signal-to-noise ratio of painted against original RGB" }
func (PSNR) GetRange() (float64, float64) { return 0, maxPSNR }
func (PSNR) IsHigherBetter() bool         { return true }

// OutsideChanged counts pixels with zero mask whose RGB differs.
type OutsideChanged struct{}

func (OutsideChanged) Calculate(s Sample) (float64, error) {
	if err := checkPair(s); err != nil {
		return 0, err
	}
	w, h := s.Original.Rect.Dx(), s.Original.Rect.Dy()
	mask := s.Mask.Normalize(w, h)

	changed := 0
	for y := 0; y < h; y++ {
		a := s.Original.Pix[y*s.Original.Stride:]
		b := s.Painted.Pix[y*s.Painted.Stride:]
		for x := 0; x < w; x++ {
			if mask.Values[y*w+x] > 0 {
				continue
			}
			i := x * 4
			if a[i] != b[i] || a[i+1] != b[i+1] || a[i+2] != b[i+2] {
				changed++
			}
		}
	}
	return float64(changed), nil
}

func (OutsideChanged) GetName() string              { return "Outside Changed" }
func (OutsideChanged) GetDescription() string       { return "Pixels outside the mask whose color changed" }
func (OutsideChanged) GetRange() (float64, float64) { return 0, math.MaxInt32 }
func (OutsideChanged) IsHigherBetter() bool         { return false }

// AlphaChanged counts pixels whose alpha differs.
type AlphaChanged struct{}

func (AlphaChanged) Calculate(s Sample) (float64, error) {
	if err := checkPair(s); err != nil {
		return 0, err
	}
	w, h := s.Original.Rect.Dx(), s.Original.Rect.Dy()

	changed := 0
	for y := 0; y < h; y++ {
		a := s.Original.Pix[y*s.Original.Stride:]
		b := s.Painted.Pix[y*s.Painted.Stride:]
		for x := 0; x < w; x++ {
			if a[x*4+3] != b[x*4+3] {
				changed++
			}
		}
	}
	return float64(changed), nil
}

func (AlphaChanged) GetName() string              { return "Alpha Changed" }
func (AlphaChanged) GetDescription() string       { return "Pixels whose alpha changed" }
func (AlphaChanged) GetRange() (float64, float64) { return 0, math.MaxInt32 }
func (AlphaChanged) IsHigherBetter() bool         { return false }
