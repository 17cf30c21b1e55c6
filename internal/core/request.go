package core

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Recolor defaults. Configuration starts from these; WithDefaults fills the
// optional fields except Strength, where zero is a real request.
const (
	DefaultStrength             = 0.8
	DefaultHueTolerance         = 25.0
	DefaultShadowDilation       = 20
	DefaultShadowValueThreshold = 0.5
)

// RecolorRequest carries the parameters of a single recolor action.
type RecolorRequest struct {
	TargetColor string  `json:"target_color" validate:"required"`
	Strength    float64 `json:"strength" validate:"gte=0,lte=1"`
	// SourceColor restricts painting to pixels near this hue when set.
	SourceColor string `json:"source_color,omitempty"`
	// HueTolerance is in degrees on the 0-360 hue circle.
	HueTolerance float64 `json:"hue_tolerance" validate:"gte=0,lte=180"`

	IncludeShadow        bool    `json:"include_shadow"`
	ShadowDilation       int     `json:"shadow_dilation" validate:"gte=0,lte=200"`
	ShadowValueThreshold float64 `json:"shadow_value_threshold" validate:"gte=0,lte=1"`
}

// RefineParams controls mask cleanup and feathering.
type RefineParams struct {
	MorphKernel int     `json:"morph_kernel" validate:"gte=1,lte=9"`
	FeatherPx   float64 `json:"feather_px" validate:"gte=0,lte=50"`
	Threshold   float64 `json:"threshold" validate:"gte=0,lte=1"`
}

var validate = validator.New()

// Validate checks struct-level constraints and wraps failures in
// ErrInvalidRequest.
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// WithDefaults fills zero-valued optional fields.
func (r RecolorRequest) WithDefaults() RecolorRequest {
	if r.HueTolerance == 0 {
		r.HueTolerance = DefaultHueTolerance
	}
	if r.ShadowDilation == 0 {
		r.ShadowDilation = DefaultShadowDilation
	}
	if r.ShadowValueThreshold == 0 {
		r.ShadowValueThreshold = DefaultShadowValueThreshold
	}
	return r
}
