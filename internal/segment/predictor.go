package segment

import (
	"context"
	"image"

	"object-paint-agent/internal/core"
)

// PointPredictor is an optional model that segments an object from click
// prompts. Implementations wrap every failure in core.ErrAcceleratorUnavailable.
type PointPredictor interface {
	Name() string
	IsAvailable() bool
	Predict(ctx context.Context, img *image.NRGBA, fg, bg []core.Point) (core.Mask, error)
}

// Unavailable is a predictor that never runs.
type Unavailable struct{}

func (Unavailable) Name() string { return "none" }

func (Unavailable) IsAvailable() bool { return false }

func (Unavailable) Predict(context.Context, *image.NRGBA, []core.Point, []core.Point) (core.Mask, error) {
	return core.Mask{}, core.ErrAcceleratorUnavailable
}
