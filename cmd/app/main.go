// Object Paint Agent
// Author: Ervins Strauhmanis
// License: MIT
// Version: 1.0.0 - Object Recoloring + Shadow Masks

// Command app recolors one object in an image from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"object-paint-agent/internal/config"
	"object-paint-agent/internal/core"
	"object-paint-agent/internal/export"
	imgio "object-paint-agent/internal/io"
	"object-paint-agent/internal/pipeline"
)

const (
	AppName    = "Object Paint Agent"
	AppVersion = "1.0.0"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to the YAML config file")
		debugMode  = flag.Bool("debug", false, "Enable debug mode with verbose logging")
		inPath     = flag.String("in", "", "Input image path")
		outDir     = flag.String("out", "", "Output directory (defaults to the configured export sink)")
		name       = flag.String("name", "", "Base name of the exported files")
		overlayOut = flag.String("overlay", "", "Optional path for the annotated overlay image")
		rect       = flag.String("rect", "", "Selection rectangle as left,top,right,bottom percentages")
		fg         = flag.String("fg", "", "Foreground points as row,col;row,col")
		bg         = flag.String("bg", "", "Background points as row,col;row,col")
		colorHex   = flag.String("color", "", "Target color (#rrggbb or rgb(r,g,b))")
		strength   = flag.Float64("strength", -1, "Recolor strength 0..1")
		source     = flag.String("source", "", "Only repaint pixels near this color")
		tolerance  = flag.Float64("tolerance", -1, "Hue tolerance in degrees for -source")
		shadow     = flag.Bool("shadow", false, "Include the object's cast shadow")
		kernel     = flag.Int("kernel", 0, "Morphology kernel size 1..9")
		feather    = flag.Float64("feather", -1, "Edge feather radius in pixels")
		threshold  = flag.Float64("threshold", -1, "Binarization threshold 0..1")
		detectObj  = flag.Bool("detect", false, "Run object detection to label the selection")
	)
	flag.Parse()

	logger := initLogger(*debugMode)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": *debugMode,
	}).Info("Starting " + AppName)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: app -in image.png (-rect l,t,r,b | -fg row,col [-bg row,col]) [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	job, err := buildJob(cfg, jobFlags{
		rect: *rect, fg: *fg, bg: *bg,
		color: *colorHex, strength: *strength, source: *source, tolerance: *tolerance,
		shadow: *shadow, kernel: *kernel, feather: *feather, threshold: *threshold,
		detect: *detectObj || cfg.Detect.Enabled,
	})
	if err != nil {
		logger.WithError(err).Fatal("Invalid arguments")
	}

	loader := imgio.NewImageLoader(logger, cfg.Image.MaxSize)
	job.Image, err = loader.Load(*inPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load image")
	}

	p, err := pipeline.NewFromConfig(cfg, nil, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up pipeline")
	}

	ctx := context.Background()
	res, err := p.Run(ctx, job)
	if err != nil {
		logger.WithError(err).Fatal("Paint failed")
	}

	var sink export.Sink
	if *outDir != "" {
		sink = export.DirSink{Dir: *outDir}
	} else if sink, err = export.NewSink(ctx, cfg); err != nil {
		logger.WithError(err).Fatal("Failed to set up export")
	}

	base := *name
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(*inPath), filepath.Ext(*inPath))
	}
	paths, err := export.NewExporter(sink, logger).Export(ctx, res.Painted, res.Mask, res.Metadata, base)
	if err != nil {
		logger.WithError(err).Fatal("Export failed")
	}

	if *overlayOut != "" {
		if err := loader.Save(res.Overlay, *overlayOut); err != nil {
			logger.WithError(err).Error("Failed to save overlay")
		}
	}

	fmt.Println(paths.Painted)
	fmt.Println(paths.Mask)
	fmt.Println(paths.Metadata)
	logger.Info("Done")
}

type jobFlags struct {
	rect      string
	fg        string
	bg        string
	color     string
	source    string
	strength  float64
	tolerance float64
	shadow    bool
	kernel    int
	feather   float64
	threshold float64
	detect    bool
}

// buildJob merges flags over the configured defaults. Negative numeric flags
// mean "not set".
func buildJob(cfg *config.Config, f jobFlags) (pipeline.Job, error) {
	job := pipeline.Job{Detect: f.detect}

	if f.rect != "" {
		r, err := core.ParseRect(f.rect)
		if err != nil {
			return job, err
		}
		job.Rect = &r
	}
	var err error
	if job.Points.Foreground, err = core.ParsePoints(f.fg); err != nil {
		return job, err
	}
	if job.Points.Background, err = core.ParsePoints(f.bg); err != nil {
		return job, err
	}

	job.Refine = core.RefineParams{
		MorphKernel: cfg.Refine.MorphKernel,
		FeatherPx:   cfg.Refine.FeatherPx,
		Threshold:   cfg.Refine.Threshold,
	}
	if f.kernel > 0 {
		job.Refine.MorphKernel = f.kernel
	}
	if f.feather >= 0 {
		job.Refine.FeatherPx = f.feather
	}
	if f.threshold >= 0 {
		job.Refine.Threshold = f.threshold
	}

	rc := cfg.Recolor
	job.Recolor = core.RecolorRequest{
		TargetColor:          rc.Color,
		Strength:             rc.Strength,
		SourceColor:          f.source,
		HueTolerance:         rc.HueTolerance,
		IncludeShadow:        f.shadow || rc.IncludeShadow,
		ShadowDilation:       rc.ShadowDilation,
		ShadowValueThreshold: rc.ShadowValueThreshold,
	}
	if f.color != "" {
		job.Recolor.TargetColor = f.color
	}
	if f.strength >= 0 {
		job.Recolor.Strength = f.strength
	}
	if f.tolerance >= 0 {
		job.Recolor.HueTolerance = f.tolerance
	}

	if job.Rect == nil && job.Points.Empty() {
		return job, fmt.Errorf("%w: pass -rect or -fg", core.ErrInvalidRegion)
	}
	return job, nil
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
