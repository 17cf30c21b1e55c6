// Quality metrics for a paint result
package metrics

import (
	"fmt"
	"image"
	"sort"

	"object-paint-agent/internal/core"
)

// Sample is one paint result: the source image, the painted output and the
// mask that drove the recolor.
type Sample struct {
	Original *image.NRGBA
	Painted  *image.NRGBA
	Mask     core.Mask
}

// Metric scores a Sample.
type Metric interface {
	Calculate(s Sample) (float64, error)
	GetName() string
	GetDescription() string
	GetRange() (float64, float64)
	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}
	e.RegisterDefaultMetrics()
	return e
}

func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("coverage", Coverage{})
	e.Register("psnr", PSNR{})
	e.Register("outside_changed", OutsideChanged{})
	e.Register("alpha_changed", AlphaChanged{})
}

func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// CalculateAll skips metrics that fail on the sample.
func (e *Evaluator) CalculateAll(s Sample) map[string]float64 {
	results := make(map[string]float64)
	for name, metric := range e.metrics {
		if value, err := metric.Calculate(s); err == nil {
			results[name] = value
		}
	}
	return results
}

// MetricInfo provides metadata about a metric
type MetricInfo struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Range        [2]float64 `json:"range"`
	HigherBetter bool       `json:"higher_better"`
}

// GetMetricInfo lists registered metrics sorted by name.
func (e *Evaluator) GetMetricInfo() []MetricInfo {
	info := make([]MetricInfo, 0, len(e.metrics))
	for _, metric := range e.metrics {
		lo, hi := metric.GetRange()
		info = append(info, MetricInfo{
			Name:         metric.GetName(),
			Description:  metric.GetDescription(),
			Range:        [2]float64{lo, hi},
			HigherBetter: metric.IsHigherBetter(),
		})
	}
	sort.Slice(info, func(i, j int) bool { return info[i].Name < info[j].Name })
	return info
}

// QualityReport summarizes a Sample. Issues lists broken invariants; a
// correct paint has none.
type QualityReport struct {
	Metrics map[string]float64 `json:"metrics"`
	Issues  []string           `json:"issues,omitempty"`
}

func (e *Evaluator) GenerateReport(s Sample) QualityReport {
	metrics := e.CalculateAll(s)
	report := QualityReport{Metrics: metrics}

	if v, ok := metrics["outside_changed"]; ok && v > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d pixels outside the mask changed", int(v)))
	}
	if v, ok := metrics["alpha_changed"]; ok && v > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d alpha values changed", int(v)))
	}
	if v, ok := metrics["coverage"]; ok && v == 0 {
		report.Issues = append(report.Issues, "mask is empty")
	}
	return report
}
