package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-paint-agent/internal/colors"
	"object-paint-agent/internal/config"
	"object-paint-agent/internal/core"
)

func defaults(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func unset() jobFlags {
	return jobFlags{strength: -1, tolerance: -1, feather: -1, threshold: -1}
}

func TestBuildJobUsesConfigDefaults(t *testing.T) {
	f := unset()
	f.rect = "15,15,85,85"

	job, err := buildJob(defaults(t), f)
	require.NoError(t, err)

	require.NotNil(t, job.Rect)
	assert.Equal(t, core.RectHint{Left: 15, Top: 15, Right: 85, Bottom: 85}, *job.Rect)
	assert.Equal(t, core.RefineParams{MorphKernel: 3, FeatherPx: 2.0, Threshold: 0.5}, job.Refine)
	assert.Equal(t, "#E53935", job.Recolor.TargetColor)
	assert.Equal(t, 0.8, job.Recolor.Strength)
}

func TestBuildJobFlagsOverride(t *testing.T) {
	f := unset()
	f.fg, f.bg = "20,20", "2,2;38,38"
	f.color, f.strength, f.kernel, f.feather, f.threshold = "#00ff00", 0, 7, 1, 0.4
	f.shadow = true

	job, err := buildJob(defaults(t), f)
	require.NoError(t, err)

	assert.Nil(t, job.Rect)
	assert.Equal(t, []core.Point{{Row: 20, Col: 20}}, job.Points.Foreground)
	assert.Len(t, job.Points.Background, 2)
	assert.Equal(t, core.RefineParams{MorphKernel: 7, FeatherPx: 1, Threshold: 0.4}, job.Refine)
	assert.Equal(t, "#00ff00", job.Recolor.TargetColor)
	assert.Equal(t, 0.0, job.Recolor.Strength)
	assert.True(t, job.Recolor.IncludeShadow)
}

func TestBuildJobFunctionalColor(t *testing.T) {
	f := unset()
	f.rect = "15,15,85,85"
	f.color = "rgb(0,0,255)"

	job, err := buildJob(defaults(t), f)
	require.NoError(t, err)

	require.NoError(t, core.Validate(job.Recolor.WithDefaults()))
	assert.Equal(t, "#0000ff", colors.Normalize(job.Recolor.TargetColor))
}

func TestBuildJobErrors(t *testing.T) {
	_, err := buildJob(defaults(t), unset())
	assert.ErrorIs(t, err, core.ErrInvalidRegion)

	f := unset()
	f.rect = "50,50,40,90"
	_, err = buildJob(defaults(t), f)
	assert.ErrorIs(t, err, core.ErrInvalidRegion)

	f = unset()
	f.fg = "twenty"
	_, err = buildJob(defaults(t), f)
	assert.ErrorIs(t, err, core.ErrInvalidRegion)
}

func TestInitLogger(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, initLogger(true).GetLevel())
	assert.Equal(t, logrus.InfoLevel, initLogger(false).GetLevel())
}
