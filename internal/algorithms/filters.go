// Feathering filters for soft mask edges
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GaussianFeather blurs a float mask so composites fade across the boundary.
type GaussianFeather struct{}

// NewGaussianFeather creates a Gaussian feathering filter.
func NewGaussianFeather() *GaussianFeather {
	return &GaussianFeather{}
}

func (g *GaussianFeather) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input mask is empty")
	}

	sigma := floatParam(params, "sigma", 1.0)
	kernelSize := intParam(params, "kernel_size", 0)
	if kernelSize <= 0 {
		kernelSize = FeatherKernelSize(sigma, input.Cols(), input.Rows())
	}

	output := gocv.NewMat()
	gocv.GaussianBlur(input, &output, image.Pt(kernelSize, kernelSize), sigma, sigma, gocv.BorderDefault)

	return output, nil
}

// FeatherKernelSize returns the odd kernel size int(6*sigma+1)|1, capped to
// the smaller image dimension (also forced odd).
func FeatherKernelSize(sigma float64, width, height int) int {
	k := int(6*sigma+1) | 1
	return min(k, min(width, height)|1)
}

func (g *GaussianFeather) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"sigma": 2.0,
	}
}

func (g *GaussianFeather) GetName() string {
	return "Gaussian Feather"
}

func (g *GaussianFeather) GetDescription() string {
	return "Gaussian blur that softens hard mask edges"
}

func (g *GaussianFeather) Validate(params map[string]interface{}) error {
	if sigma := floatParam(params, "sigma", 1.0); sigma <= 0 {
		return fmt.Errorf("sigma must be positive")
	}
	if k := intParam(params, "kernel_size", 0); k != 0 && (k < 1 || k%2 == 0) {
		return fmt.Errorf("kernel_size must be a positive odd number")
	}
	return nil
}
