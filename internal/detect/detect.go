// Package detect provides best-effort object detection used to annotate the
// image and label the selected object. Detection never blocks painting.
package detect

import (
	"context"
	"image"

	"object-paint-agent/internal/core"
)

const (
	ModeGroundingDINO = "grounding_dino"
	ModeNone          = "none"
)

// DetectedObject is a labeled pixel box [x1,y1,x2,y2].
type DetectedObject struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
}

// Detector finds objects in an image. Implementations wrap every failure in
// core.ErrAcceleratorUnavailable.
type Detector interface {
	Name() string
	IsAvailable() bool
	Detect(ctx context.Context, img *image.NRGBA) ([]DetectedObject, error)
}

// Noop never detects anything.
type Noop struct{}

func (Noop) Name() string { return ModeNone }

func (Noop) IsAvailable() bool { return false }

func (Noop) Detect(context.Context, *image.NRGBA) ([]DetectedObject, error) {
	return nil, core.ErrAcceleratorUnavailable
}

// Run executes det when enabled. The mode is ModeGroundingDINO only when the
// detector ran successfully; a returned error is informational and callers
// continue without detections.
func Run(ctx context.Context, det Detector, img *image.NRGBA, enabled bool) ([]DetectedObject, string, error) {
	if !enabled || det == nil {
		return nil, ModeNone, nil
	}
	if !det.IsAvailable() {
		return nil, ModeNone, core.ErrAcceleratorUnavailable
	}
	objs, err := det.Detect(ctx, img)
	if err != nil {
		return nil, ModeNone, err
	}
	return objs, ModeGroundingDINO, nil
}

// Boxes splits detections into the box and label slices used by overlays.
func Boxes(objs []DetectedObject) ([][4]float64, []string) {
	boxes := make([][4]float64, len(objs))
	labels := make([]string, len(objs))
	for i, o := range objs {
		boxes[i] = o.BBox
		labels[i] = o.Label
	}
	return boxes, labels
}

// Containing returns the index of the most confident object whose box holds
// the pixel (x, y), or -1.
func Containing(objs []DetectedObject, x, y float64) int {
	best := -1
	for i, o := range objs {
		if x < o.BBox[0] || x > o.BBox[2] || y < o.BBox[1] || y > o.BBox[3] {
			continue
		}
		if best < 0 || o.Confidence > objs[best].Confidence {
			best = i
		}
	}
	return best
}
