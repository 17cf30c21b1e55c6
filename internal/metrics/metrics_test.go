package metrics

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-paint-agent/internal/core"
)

func sample() Sample {
	orig := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range orig.Pix {
		orig.Pix[i] = 100
	}
	painted := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	copy(painted.Pix, orig.Pix)
	mask := core.NewMask(4, 4)
	mask.Set(1, 1, 1)
	painted.SetNRGBA(1, 1, color.NRGBA{R: 200, G: 0, B: 0, A: 100})
	return Sample{Original: orig, Painted: painted, Mask: mask}
}

func TestEvaluatorCleanSample(t *testing.T) {
	e := NewEvaluator()

	report := e.GenerateReport(sample())

	assert.Empty(t, report.Issues)
	assert.Equal(t, 0.0, report.Metrics["outside_changed"])
	assert.Equal(t, 0.0, report.Metrics["alpha_changed"])
	assert.InDelta(t, 1.0/16, report.Metrics["coverage"], 1e-9)
	assert.False(t, math.IsInf(report.Metrics["psnr"], 1))
}

func TestEvaluatorFlagsBrokenInvariants(t *testing.T) {
	s := sample()
	s.Painted.SetNRGBA(3, 3, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

	report := NewEvaluator().GenerateReport(s)

	assert.Equal(t, 1.0, report.Metrics["outside_changed"])
	assert.Equal(t, 1.0, report.Metrics["alpha_changed"])
	assert.Len(t, report.Issues, 2)
}

func TestPSNRIdentical(t *testing.T) {
	s := sample()
	s.Painted = s.Original

	v, err := PSNR{}.Calculate(s)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)
}

func TestCalculateAllSkipsFailingMetrics(t *testing.T) {
	s := sample()
	s.Painted = image.NewNRGBA(image.Rect(0, 0, 2, 2))

	results := NewEvaluator().CalculateAll(s)

	assert.Contains(t, results, "coverage")
	assert.NotContains(t, results, "outside_changed")
	assert.NotContains(t, results, "psnr")
}

func TestSizeMismatch(t *testing.T) {
	s := sample()
	s.Painted = image.NewNRGBA(image.Rect(0, 0, 2, 2))

	_, err := OutsideChanged{}.Calculate(s)
	assert.ErrorIs(t, err, errSizeMismatch)
}

func TestGetMetricInfoSorted(t *testing.T) {
	info := NewEvaluator().GetMetricInfo()

	require.Len(t, info, 4)
	assert.Equal(t, "Alpha Changed", info[0].Name)
}

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.ObserveStage("segment", 20*time.Millisecond)
	r.ObserveRun("grabcut", "ok")
	r.ObserveRun("grabcut", "ok")
	r.ObserveCoverage(0.3)
	r.ObserveFallback("segmenter")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("grabcut", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fallbacks.WithLabelValues("segmenter")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stageSeconds))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveStage("segment", time.Second)
		r.ObserveRun("grabcut", "ok")
		r.ObserveCoverage(1)
		r.ObserveFallback("detector")
	})
}
