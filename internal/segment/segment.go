// Package segment extracts a foreground mask from region hints with GrabCut,
// optionally trying a point-prompted model first.
package segment

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"object-paint-agent/internal/core"
)

const (
	ModeGrabCut     = "grabcut"
	ModeGrabCutRect = "grabcut_rect"

	DefaultIterations = 5
	DefaultSeedRadius = 5

	// GrabCut fits five-component color models and needs at least that many
	// samples on each side.
	minSamples = 5
)

// GrabCut pixel labels.
const (
	labelBGD   uint8 = 0
	labelFGD   uint8 = 1
	labelPrBGD uint8 = 2
	labelPrFGD uint8 = 3
)

// Config holds the classical segmentation parameters.
type Config struct {
	Iterations int `mapstructure:"iterations"`
	SeedRadius int `mapstructure:"seed_radius"`
}

// grabCutFunc matches gocv.GrabCut.
type grabCutFunc func(img gocv.Mat, mask *gocv.Mat, r image.Rectangle, bgdModel, fgdModel *gocv.Mat, iterCount int, mode gocv.GrabCutMode) error

// Segmenter turns rectangle or point hints into a binary object mask.
type Segmenter struct {
	predictor  PointPredictor
	iterations int
	seedRadius int
	cut        grabCutFunc
	logger     logrus.FieldLogger
}

// New returns a Segmenter. A nil predictor behaves like Unavailable.
func New(cfg Config, predictor PointPredictor, logger logrus.FieldLogger) *Segmenter {
	if predictor == nil {
		predictor = Unavailable{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	radius := cfg.SeedRadius
	if radius <= 0 {
		radius = DefaultSeedRadius
	}
	return &Segmenter{
		predictor:  predictor,
		iterations: iterations,
		seedRadius: radius,
		cut:        gocv.GrabCut,
		logger:     logger.WithField("component", "segmenter"),
	}
}

// Predictor returns the configured point predictor.
func (s *Segmenter) Predictor() PointPredictor {
	return s.predictor
}

// SegmentFromRect runs GrabCut initialized with the hint's pixel box.
// Invalid hints fail with core.ErrInvalidRegion before any work is done.
func (s *Segmenter) SegmentFromRect(img *image.NRGBA, hint core.RectHint) (core.Mask, string, error) {
	if err := hint.Validate(); err != nil {
		return core.Mask{}, ModeGrabCutRect, err
	}
	if err := core.ValidateImage(img); err != nil {
		return core.Mask{}, ModeGrabCutRect, err
	}

	w, h := img.Rect.Dx(), img.Rect.Dy()
	rect := hint.ToPixels(w, h)

	labels := make([]byte, w*h)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			labels[y*w+x] = labelPrFGD
		}
	}

	s.logger.WithFields(logrus.Fields{
		"width":  w,
		"height": h,
		"rect":   rect.String(),
	}).Debug("segmenting from rectangle")

	if !enoughSamples(labels) {
		return labelsToMask(labels, w, h), ModeGrabCutRect, nil
	}

	out, err := s.grabCut(img, labels, rect, gocv.GCInitWithRect)
	if err != nil {
		return core.Mask{}, ModeGrabCutRect, err
	}
	return out, ModeGrabCutRect, nil
}

// SegmentFromPoints tries the point predictor when one is available and
// falls back to GrabCut seeded with disks around each point. The returned
// mode names the path that produced the mask.
func (s *Segmenter) SegmentFromPoints(ctx context.Context, img *image.NRGBA, hints core.PointHints) (core.Mask, string, error) {
	if err := core.ValidateImage(img); err != nil {
		return core.Mask{}, ModeGrabCut, err
	}

	if s.predictor.IsAvailable() && len(hints.Foreground) > 0 {
		mask, err := s.predictor.Predict(ctx, img, hints.Foreground, hints.Background)
		if err == nil {
			return mask.Normalize(img.Rect.Dx(), img.Rect.Dy()), s.predictor.Name(), nil
		}
		s.logger.WithFields(logrus.Fields{
			"predictor": s.predictor.Name(),
			"error":     err,
		}).Warn("point predictor failed, falling back to grabcut")
	}

	if err := ctx.Err(); err != nil {
		return core.Mask{}, ModeGrabCut, err
	}
	return s.grabCutFromPoints(img, hints), ModeGrabCut, nil
}

func (s *Segmenter) grabCutFromPoints(img *image.NRGBA, hints core.PointHints) core.Mask {
	w, h := img.Rect.Dx(), img.Rect.Dy()

	labels := make([]byte, w*h)
	for i := range labels {
		labels[i] = labelPrBGD
	}

	seeded := 0
	for _, p := range hints.Foreground {
		if p.In(w, h) {
			stampDisk(labels, w, h, p, s.seedRadius, labelFGD)
			seeded++
		}
	}
	if seeded == 0 {
		return core.NewMask(w, h)
	}
	for _, p := range hints.Background {
		if p.In(w, h) {
			stampDisk(labels, w, h, p, s.seedRadius, labelBGD)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"width":      w,
		"height":     h,
		"foreground": len(hints.Foreground),
		"background": len(hints.Background),
	}).Debug("segmenting from points")

	if !enoughSamples(labels) {
		return labelsToMask(labels, w, h)
	}

	out, err := s.grabCut(img, labels, image.Rectangle{}, gocv.GCInitWithMask)
	if err != nil {
		s.logger.WithError(err).Warn("grabcut failed, returning seed mask")
		return labelsToMask(labels, w, h)
	}
	return out
}

func (s *Segmenter) grabCut(img *image.NRGBA, labels []byte, rect image.Rectangle, mode gocv.GrabCutMode) (core.Mask, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()

	bgr, err := core.ImageToBGRMat(img)
	if err != nil {
		return core.Mask{}, fmt.Errorf("converting image: %w", err)
	}
	defer bgr.Close()

	mask, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, labels)
	if err != nil {
		return core.Mask{}, fmt.Errorf("creating grabcut mask: %w", err)
	}
	defer mask.Close()

	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	if err := s.cut(bgr, &mask, rect, &bgdModel, &fgdModel, s.iterations, mode); err != nil {
		return core.Mask{}, fmt.Errorf("grabcut: %w", err)
	}

	if mask.Rows() != h || mask.Cols() != w {
		return core.Mask{}, errors.New("grabcut returned a mask of unexpected size")
	}
	return labelsToMask(mask.ToBytes(), w, h), nil
}

// stampDisk writes label into every pixel within radius of p.
func stampDisk(labels []byte, w, h int, p core.Point, radius int, label byte) {
	r2 := radius * radius
	for y := max(0, p.Row-radius); y <= min(h-1, p.Row+radius); y++ {
		for x := max(0, p.Col-radius); x <= min(w-1, p.Col+radius); x++ {
			dy, dx := y-p.Row, x-p.Col
			if dx*dx+dy*dy <= r2 {
				labels[y*w+x] = label
			}
		}
	}
}

func enoughSamples(labels []byte) bool {
	var fg, bg int
	for _, l := range labels {
		if l == labelFGD || l == labelPrFGD {
			fg++
		} else {
			bg++
		}
	}
	return fg >= minSamples && bg >= minSamples
}

// labelsToMask maps FGD and PR_FGD to 1, everything else to 0.
func labelsToMask(labels []byte, w, h int) core.Mask {
	out := core.NewMask(w, h)
	for i, l := range labels {
		if l == labelFGD || l == labelPrFGD {
			out.Values[i] = 1
		}
	}
	return out
}
