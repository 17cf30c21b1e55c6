// Package refine cleans raw segmentation masks and grows them into adjacent
// cast shadows.
package refine

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"object-paint-agent/internal/algorithms"
	"object-paint-agent/internal/core"
)

const (
	maxMorphKernel = 9

	minShadowKernel = 3
	maxShadowKernel = 51

	minShadowValue = 0.1
	maxShadowValue = 0.9
)

// Refine binarizes mask at threshold, closes then opens it with an
// elliptical kernel and, when featherPx > 0, blurs the edges with
// sigma = max(0.5, featherPx). The result is clipped to [0,1].
//
// A mask whose buffer does not match its dimensions is treated as all
// background.
func Refine(mask core.Mask, morphKernel int, featherPx, threshold float64) core.Mask {
	if len(mask.Values) != mask.Width*mask.Height {
		mask = mask.Resize(mask.Width, mask.Height)
	}
	if mask.Empty() {
		return core.NewMask(mask.Width, mask.Height)
	}
	bin := make([]byte, len(mask.Values))
	t := float32(threshold)
	for i, v := range mask.Values {
		if v >= t {
			bin[i] = 255
		}
	}
	return refineBinary(bin, mask.Width, mask.Height, morphKernel, featherPx)
}

// RefineGray is Refine for an 8-bit mask; the threshold comparison happens on
// the 0..255 scale.
func RefineGray(g *image.Gray, morphKernel int, featherPx, threshold float64) core.Mask {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return core.NewMask(w, h)
	}
	t := uint8(math.Max(0, math.Min(255, float64(int(255*threshold)))))
	bin := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if g.GrayAt(b.Min.X+x, b.Min.Y+y).Y >= t {
				bin[y*w+x] = 255
			}
		}
	}
	return refineBinary(bin, w, h, morphKernel, featherPx)
}

// NormalizeKernel forces k odd and into [1,9].
func NormalizeKernel(k int) int {
	if k%2 == 0 {
		k++
	}
	return min(maxMorphKernel, max(1, k))
}

func refineBinary(bin []byte, w, h, morphKernel int, featherPx float64) core.Mask {
	binary := core.NewMask(w, h)
	for i, v := range bin {
		if v > 0 {
			binary.Values[i] = 1
		}
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, bin)
	if err != nil {
		return binary
	}
	defer mat.Close()

	k := NormalizeKernel(morphKernel)
	if k > 1 {
		params := map[string]interface{}{"kernel_size": k, "shape": "ellipse"}
		closed, err := algorithms.Apply("closing", mat, params)
		if err != nil {
			return binary
		}
		defer closed.Close()

		opened, err := algorithms.Apply("opening", closed, params)
		if err != nil {
			return binary
		}
		defer opened.Close()

		binary = core.MaskFromMat(opened)
	}

	if featherPx <= 0 {
		return binary
	}

	sigma := math.Max(0.5, featherPx)
	src := binary.ToMat()
	defer src.Close()

	blurred, err := algorithms.Apply("gaussian_feather", src, map[string]interface{}{
		"sigma":       sigma,
		"kernel_size": algorithms.FeatherKernelSize(sigma, w, h),
	})
	if err != nil {
		return binary
	}
	defer blurred.Close()

	return core.MaskFromMat(blurred)
}

// ShadowKernelSize maps a dilation distance to an odd kernel in [3,51].
func ShadowKernelSize(dilationPx int) int {
	k := 2*dilationPx + 1
	if k%2 == 0 {
		k++
	}
	return min(maxShadowKernel, max(minShadowKernel, k))
}

// ExpandForShadow adds to mask every pixel in the band around the object
// (dilated minus original) whose luma is below valueThreshold. Coverage
// never decreases: the result is max(mask, shadow) pointwise.
func ExpandForShadow(img *image.NRGBA, mask core.Mask, dilationPx int, valueThreshold float64) core.Mask {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := mask.Normalize(w, h)
	if out.Empty() {
		return out
	}

	bin, err := out.ToBinaryMat(0.5)
	if err != nil {
		return out
	}
	defer bin.Close()

	dilated, err := algorithms.Apply("dilation", bin, map[string]interface{}{
		"kernel_size": ShadowKernelSize(dilationPx),
		"shape":       "ellipse",
	})
	if err != nil {
		return out
	}
	defer dilated.Close()

	bgr, err := core.ImageToBGRMat(img)
	if err != nil {
		return out
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	if gray.Rows() != h || gray.Cols() != w {
		return out
	}

	thr := math.Min(maxShadowValue, math.Max(minShadowValue, valueThreshold))
	binBytes := bin.ToBytes()
	dilBytes := dilated.ToBytes()
	luma := gray.ToBytes()
	for i := range out.Values {
		inRing := dilBytes[i] > 0 && binBytes[i] == 0
		if inRing && float64(luma[i])/255 < thr {
			out.Values[i] = 1
		}
	}
	return out
}
