// Mask operation registry backed by GoCV
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Algorithm is a named operation over a single-channel mask Mat.
type Algorithm interface {
	Apply(input gocv.Mat, params map[string]interface{}) (gocv.Mat, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
}

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

// Apply validates params and runs the named algorithm. The caller owns the
// returned Mat.
func Apply(name string, input gocv.Mat, params map[string]interface{}) (gocv.Mat, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("algorithm not found: %s", name)
	}
	if err := algorithm.Validate(params); err != nil {
		return gocv.NewMat(), fmt.Errorf("%s: %w", name, err)
	}

	return algorithm.Apply(input, params)
}

func init() {
	Register("closing", NewClosing())
	Register("opening", NewOpening())
	Register("dilation", NewDilation())

	Register("gaussian_feather", NewGaussianFeather())
}

// intParam reads an integer parameter that may arrive as int or float64.
func intParam(params map[string]interface{}, key string, def int) int {
	val, ok := params[key]
	if !ok {
		return def
	}
	switch v := val.(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func floatParam(params map[string]interface{}, key string, def float64) float64 {
	val, ok := params[key]
	if !ok {
		return def
	}
	switch v := val.(type) {
	case int:
		return float64(v)
	case float64:
		return v
	}
	return def
}
