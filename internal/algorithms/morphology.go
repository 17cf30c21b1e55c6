// Morphological operations on binary masks
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

const maxMorphKernel = 51

// morphology implements dilation, opening and closing with a
// configurable structuring element. kernel_size must be odd.
type morphology struct {
	name        string
	description string
	op          gocv.MorphType
}

// NewDilation creates a morphological dilation.
func NewDilation() Algorithm {
	return &morphology{name: "Dilation", description: "Grows foreground regions into their surroundings", op: gocv.MorphDilate}
}

// NewOpening creates a morphological opening (erosion then dilation).
func NewOpening() Algorithm {
	return &morphology{name: "Opening", description: "Removes isolated specks smaller than the kernel", op: gocv.MorphOpen}
}

// NewClosing creates a morphological closing (dilation then erosion).
func NewClosing() Algorithm {
	return &morphology{name: "Closing", description: "Fills holes smaller than the kernel", op: gocv.MorphClose}
}

func (m *morphology) Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input mask is empty")
	}

	kernelSize := intParam(params, "kernel_size", 3)
	shape := gocv.MorphEllipse
	if s, ok := params["shape"].(string); ok && s == "rect" {
		shape = gocv.MorphRect
	}

	kernel := gocv.GetStructuringElement(shape, image.Pt(kernelSize, kernelSize))
	defer kernel.Close()

	output := gocv.NewMat()
	gocv.MorphologyEx(input, &output, m.op, kernel)

	return output, nil
}

func (m *morphology) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"kernel_size": 3,
		"shape":       "ellipse",
	}
}

func (m *morphology) GetName() string {
	return m.name
}

func (m *morphology) GetDescription() string {
	return m.description
}

func (m *morphology) Validate(params map[string]interface{}) error {
	k := intParam(params, "kernel_size", 3)
	if k < 1 || k > maxMorphKernel {
		return fmt.Errorf("kernel_size must be between 1 and %d", maxMorphKernel)
	}
	if k%2 == 0 {
		return fmt.Errorf("kernel_size must be odd, got %d", k)
	}
	if val, ok := params["shape"]; ok {
		if s, ok := val.(string); !ok || (s != "ellipse" && s != "rect") {
			return fmt.Errorf("shape must be \"ellipse\" or \"rect\"")
		}
	}
	return nil
}
