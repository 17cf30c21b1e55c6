package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"object-paint-agent/internal/cache"
	"object-paint-agent/internal/config"
	"object-paint-agent/internal/detect"
	"object-paint-agent/internal/metrics"
	"object-paint-agent/internal/segment"
)

// NewFromConfig wires a Pipeline from cfg. Optional models are only loaded
// when first used; a nil reg disables Prometheus recording.
func NewFromConfig(cfg *config.Config, reg prometheus.Registerer, logger logrus.FieldLogger) (*Pipeline, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var predictor segment.PointPredictor = segment.Unavailable{}
	if cfg.Accelerator.Enabled {
		predictor = segment.NewONNXPredictor(cfg.Paths.ModelsDir, logger)
	}
	seg := segment.New(segment.Config{
		Iterations: cfg.GrabCut.Iterations,
		SeedRadius: cfg.GrabCut.SeedRadius,
	}, predictor, logger)

	var det detect.Detector = detect.Noop{}
	if cfg.Detect.Enabled {
		det = detect.NewONNXDetector(cfg.Paths.ModelsDir, cfg.Detect.ScoreThreshold, logger)
	}

	mc, err := cache.New(cfg)
	if err != nil {
		return nil, err
	}

	var recorder *metrics.Recorder
	if reg != nil {
		recorder = metrics.NewRecorder(reg)
	}

	logger.WithFields(logrus.Fields{
		"accelerator": cfg.Accelerator.Enabled,
		"detect":      cfg.Detect.Enabled,
		"cache":       cfg.Cache.Backend,
	}).Debug("pipeline configured")

	return New(Config{
		MaxConcurrent: cfg.GrabCut.MaxConcurrent,
		QueueTimeout:  time.Duration(cfg.GrabCut.QueueTimeout) * time.Second,
	}, Deps{
		Segmenter: seg,
		Detector:  det,
		Cache:     mc,
		Recorder:  recorder,
		Logger:    logger,
	}), nil
}
