// Package pipeline runs detect, segment, refine, shadow and recolor for one
// paint request and assembles the result metadata.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"object-paint-agent/internal/cache"
	"object-paint-agent/internal/colors"
	"object-paint-agent/internal/core"
	"object-paint-agent/internal/detect"
	"object-paint-agent/internal/export"
	"object-paint-agent/internal/metrics"
	"object-paint-agent/internal/overlay"
	"object-paint-agent/internal/recolor"
	"object-paint-agent/internal/refine"
	"object-paint-agent/internal/segment"
)

// Stage timing keys in Metadata.TimingsSeconds.
const (
	StageDetect  = "detect_seconds"
	StageSegment = "segment_seconds"
	StageRefine  = "refine_seconds"
	StageShadow  = "shadow_seconds"
	StageRecolor = "recolor_seconds"
)

// ErrBusy is returned when no pipeline slot frees up within the queue timeout.
var ErrBusy = errors.New("processing queue is full, try again later")

// Job is one paint request. Exactly one of Rect or Points seeds segmentation;
// Rect wins when both are set.
type Job struct {
	Image   *image.NRGBA
	Rect    *core.RectHint
	Points  core.PointHints
	Refine  core.RefineParams
	Recolor core.RecolorRequest
	// Detect asks for best-effort object detection.
	Detect bool
	// SelectedObject overrides the label picked from detections.
	SelectedObject string
}

// Result carries every intermediate a caller may want to show or export.
type Result struct {
	Painted  *image.NRGBA
	RawMask  core.Mask
	Mask     core.Mask
	Overlay  *image.NRGBA
	Objects  []detect.DetectedObject
	Metadata export.Metadata
	Quality  metrics.QualityReport
}

type Config struct {
	MaxConcurrent int
	QueueTimeout  time.Duration
}

// Deps are the collaborators of a Pipeline. Nil values get no-op defaults.
type Deps struct {
	Segmenter *segment.Segmenter
	Detector  detect.Detector
	Cache     cache.MaskCache
	Recorder  *metrics.Recorder
	Logger    logrus.FieldLogger
}

type Pipeline struct {
	segmenter    *segment.Segmenter
	detector     detect.Detector
	cache        cache.MaskCache
	recorder     *metrics.Recorder
	evaluator    *metrics.Evaluator
	logger       logrus.FieldLogger
	semaphore    chan struct{}
	queueTimeout time.Duration
}

func New(cfg Config, deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	seg := deps.Segmenter
	if seg == nil {
		seg = segment.New(segment.Config{}, nil, logger)
	}
	det := deps.Detector
	if det == nil {
		det = detect.Noop{}
	}
	mc := deps.Cache
	if mc == nil {
		mc = cache.Noop{}
	}
	slots := cfg.MaxConcurrent
	if slots <= 0 {
		slots = 1
	}
	timeout := cfg.QueueTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pipeline{
		segmenter:    seg,
		detector:     det,
		cache:        mc,
		recorder:     deps.Recorder,
		evaluator:    metrics.NewEvaluator(),
		logger:       logger.WithField("component", "pipeline"),
		semaphore:    make(chan struct{}, slots),
		queueTimeout: timeout,
	}
}

// Validate checks a job without running it. Every error wraps one of the
// core input sentinels.
func Validate(job Job) error {
	if err := core.ValidateImage(job.Image); err != nil {
		return err
	}
	if job.Rect != nil {
		if err := job.Rect.Validate(); err != nil {
			return err
		}
	} else if job.Points.Empty() {
		return fmt.Errorf("%w: a rectangle or at least one point is required", core.ErrInvalidRegion)
	}
	if err := core.Validate(job.Refine); err != nil {
		return err
	}
	return core.Validate(job.Recolor.WithDefaults())
}

// Run executes the job. Invalid input fails before any stage runs.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Result, error) {
	if err := Validate(job); err != nil {
		return nil, err
	}
	req := job.Recolor.WithDefaults()

	release, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	img := job.Image
	timings := make(map[string]float64)
	res := &Result{}

	detectionMode := detect.ModeNone
	if job.Detect {
		start := time.Now()
		objs, mode, err := detect.Run(ctx, p.detector, img, true)
		p.observe(timings, StageDetect, start)
		if err != nil {
			p.recorder.ObserveFallback("detector")
			p.logger.WithError(err).Warn("object detection unavailable, continuing without it")
		}
		res.Objects = objs
		detectionMode = mode
	}

	start := time.Now()
	raw, segMode, err := p.segment(ctx, img, job)
	p.observe(timings, StageSegment, start)
	if err != nil {
		p.recorder.ObserveRun(segMode, "error")
		return nil, err
	}
	res.RawMask = raw

	start = time.Now()
	mask := refine.Refine(raw, job.Refine.MorphKernel, job.Refine.FeatherPx, job.Refine.Threshold)
	p.observe(timings, StageRefine, start)

	if req.IncludeShadow {
		start = time.Now()
		mask = refine.ExpandForShadow(img, mask, req.ShadowDilation, req.ShadowValueThreshold)
		p.observe(timings, StageShadow, start)
	}
	res.Mask = mask

	start = time.Now()
	res.Painted = recolor.Recolor(img, mask, req)
	p.observe(timings, StageRecolor, start)

	selected := p.selectObject(job, res.Objects)
	res.Overlay = p.drawOverlay(img, job, res.Objects, selected)

	res.Metadata = export.Metadata{
		ColorHex:         colors.Normalize(req.TargetColor),
		DetectionMode:    detectionMode,
		SegmentationMode: segMode,
		TimingsSeconds:   timings,
	}
	switch {
	case job.SelectedObject != "":
		label := job.SelectedObject
		res.Metadata.SelectedObject = &label
	case selected >= 0:
		label := res.Objects[selected].Label
		res.Metadata.SelectedObject = &label
	}

	res.Quality = p.evaluator.GenerateReport(metrics.Sample{Original: img, Painted: res.Painted, Mask: mask})
	if len(res.Quality.Issues) > 0 {
		p.logger.WithField("issues", res.Quality.Issues).Warn("paint result failed quality checks")
	}

	p.recorder.ObserveCoverage(mask.Coverage())
	p.recorder.ObserveRun(segMode, "ok")

	p.logger.WithFields(logrus.Fields{
		"segmentation_mode": segMode,
		"detection_mode":    detectionMode,
		"coverage":          round4(mask.Coverage()),
		"color":             res.Metadata.ColorHex,
		"timings":           timings,
	}).Info("paint completed")

	return res, nil
}

// Segment runs only the segmentation stage, with caching.
func (p *Pipeline) Segment(ctx context.Context, job Job) (core.Mask, string, error) {
	if err := core.ValidateImage(job.Image); err != nil {
		return core.Mask{}, "", err
	}
	release, err := p.acquire(ctx)
	if err != nil {
		return core.Mask{}, "", err
	}
	defer release()

	start := time.Now()
	mask, mode, err := p.segment(ctx, job.Image, job)
	p.recorder.ObserveStage(StageSegment, time.Since(start))
	return mask, mode, err
}

func (p *Pipeline) segment(ctx context.Context, img *image.NRGBA, job Job) (core.Mask, string, error) {
	var (
		signature string
		mode      string
	)
	switch {
	case job.Rect != nil:
		signature, mode = job.Rect.Signature(), segment.ModeGrabCutRect
	case !p.segmenter.Predictor().IsAvailable():
		signature, mode = job.Points.Signature(), segment.ModeGrabCut
	}

	var key string
	if signature != "" {
		key = cache.Key(cache.ImageDigest(img), signature)
		cached, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			p.logger.WithError(err).Debug("mask cache lookup failed")
		}
		if ok && cached.Width == img.Rect.Dx() && cached.Height == img.Rect.Dy() {
			p.logger.WithField("key", key).Debug("mask cache hit")
			return cached, mode, nil
		}
	}

	var (
		mask core.Mask
		err  error
	)
	if job.Rect != nil {
		mask, mode, err = p.segmenter.SegmentFromRect(img, *job.Rect)
	} else {
		mask, mode, err = p.segmenter.SegmentFromPoints(ctx, img, job.Points)
	}
	if err != nil {
		return core.Mask{}, mode, err
	}

	if key != "" {
		if err := p.cache.Set(ctx, key, mask); err != nil {
			p.logger.WithError(err).Debug("mask cache store failed")
		}
	}
	if job.Rect == nil && mode == segment.ModeGrabCut && p.segmenter.Predictor().IsAvailable() {
		p.recorder.ObserveFallback("segmenter")
	}
	return mask, mode, nil
}

func (p *Pipeline) acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, p.queueTimeout)
	defer cancel()

	select {
	case p.semaphore <- struct{}{}:
		return func() { <-p.semaphore }, nil
	case <-ctx.Done():
		return nil, ErrBusy
	}
}

// selectObject picks the detection under the center of the region hint.
func (p *Pipeline) selectObject(job Job, objs []detect.DetectedObject) int {
	if len(objs) == 0 {
		return -1
	}
	w, h := job.Image.Rect.Dx(), job.Image.Rect.Dy()
	var box image.Rectangle
	if job.Rect != nil {
		box = job.Rect.ToPixels(w, h)
	} else {
		box = job.Points.Bounds()
	}
	if box.Empty() {
		return -1
	}
	cx := float64(box.Min.X+box.Max.X) / 2
	cy := float64(box.Min.Y+box.Max.Y) / 2
	return detect.Containing(objs, cx, cy)
}

func (p *Pipeline) drawOverlay(img *image.NRGBA, job Job, objs []detect.DetectedObject, selected int) *image.NRGBA {
	if len(objs) > 0 {
		boxes, labels := detect.Boxes(objs)
		for i, o := range objs {
			labels[i] = fmt.Sprintf("%s (%.2f)", o.Label, o.Confidence)
		}
		return overlay.DrawBoxes(img, boxes, labels, selected)
	}
	if job.Rect != nil {
		return overlay.DrawRect(img, *job.Rect)
	}
	return overlay.DrawPoints(img, job.Points)
}

func (p *Pipeline) observe(timings map[string]float64, stage string, start time.Time) {
	d := time.Since(start)
	timings[stage] = round4(d.Seconds())
	p.recorder.ObserveStage(stage, d)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
