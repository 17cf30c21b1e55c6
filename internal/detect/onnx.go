package detect

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"object-paint-agent/internal/core"
)

const (
	onnxModelDir   = "groundingdino"
	onnxModelFile  = "detector.onnx"
	onnxLabelsFile = "labels.txt"
	onnxInputSize  = 640

	// Each output row is x1, y1, x2, y2, score, class in input pixels.
	rowWidth = 6

	DefaultScoreThreshold = 0.35
)

// ONNXDetector runs a box detector exported to ONNX through the OpenCV DNN
// module. Weights and labels are read once on first use.
type ONNXDetector struct {
	dir       string
	threshold float64
	logger    logrus.FieldLogger

	once    sync.Once
	loadErr error
	net     gocv.Net
	labels  []string

	mu sync.Mutex
}

// NewONNXDetector looks for weights under <modelsDir>/groundingdino/.
func NewONNXDetector(modelsDir string, threshold float64, logger logrus.FieldLogger) *ONNXDetector {
	if threshold <= 0 {
		threshold = DefaultScoreThreshold
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ONNXDetector{
		dir:       filepath.Join(modelsDir, onnxModelDir),
		threshold: threshold,
		logger:    logger.WithField("component", "onnx_detector"),
	}
}

func (d *ONNXDetector) Name() string { return ModeGroundingDINO }

func (d *ONNXDetector) IsAvailable() bool {
	return d.load() == nil
}

func (d *ONNXDetector) load() error {
	d.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				d.loadErr = fmt.Errorf("%w: loading detector: %v", core.ErrAcceleratorUnavailable, r)
			}
		}()

		modelPath := filepath.Join(d.dir, onnxModelFile)
		if _, err := os.Stat(modelPath); err != nil {
			d.loadErr = fmt.Errorf("%w: %v", core.ErrAcceleratorUnavailable, err)
			return
		}
		labels, err := readLabels(filepath.Join(d.dir, onnxLabelsFile))
		if err != nil {
			d.loadErr = fmt.Errorf("%w: %v", core.ErrAcceleratorUnavailable, err)
			return
		}

		net := gocv.ReadNetFromONNX(modelPath)
		if net.Empty() {
			d.loadErr = fmt.Errorf("%w: could not read %s", core.ErrAcceleratorUnavailable, modelPath)
			return
		}
		d.net = net
		d.labels = labels
		d.logger.WithFields(logrus.Fields{
			"path":   modelPath,
			"labels": len(labels),
		}).Info("detector loaded")
	})
	return d.loadErr
}

// Detect returns objects scoring at least the configured threshold, with
// boxes mapped back to image pixels.
func (d *ONNXDetector) Detect(ctx context.Context, img *image.NRGBA) (objs []DetectedObject, err error) {
	if err := d.load(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAcceleratorUnavailable, err)
	}

	defer func() {
		if r := recover(); r != nil {
			objs = nil
			err = fmt.Errorf("%w: inference panic: %v", core.ErrAcceleratorUnavailable, r)
		}
	}()

	bgr, err := core.ImageToBGRMat(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAcceleratorUnavailable, err)
	}
	defer bgr.Close()

	blob := gocv.BlobFromImage(bgr, 1.0/255, image.Pt(onnxInputSize, onnxInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	out := forward(&d.mu, &d.net, blob)
	defer out.Close()

	rows, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("%w: reading output: %v", core.ErrAcceleratorUnavailable, err)
	}

	sx := float64(img.Rect.Dx()) / onnxInputSize
	sy := float64(img.Rect.Dy()) / onnxInputSize
	return decodeRows(rows, d.labels, d.threshold, sx, sy), nil
}

// decodeRows turns flat [x1,y1,x2,y2,score,class] rows into objects, scaling
// boxes by (sx, sy) and dropping rows below threshold.
func decodeRows(rows []float32, labels []string, threshold, sx, sy float64) []DetectedObject {
	var objs []DetectedObject
	for i := 0; i+rowWidth <= len(rows); i += rowWidth {
		r := rows[i : i+rowWidth]
		score := float64(r[4])
		if score < threshold {
			continue
		}
		label := "object"
		if c := int(r[5]); c >= 0 && c < len(labels) {
			label = labels[c]
		}
		objs = append(objs, DetectedObject{
			Label:      label,
			Confidence: score,
			BBox: [4]float64{
				float64(r[0]) * sx,
				float64(r[1]) * sy,
				float64(r[2]) * sx,
				float64(r[3]) * sy,
			},
		})
	}
	return objs
}

func readLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	return labels, scanner.Err()
}

// network is the part of gocv.Net used for inference.
type network interface {
	SetInput(blob gocv.Mat, name string)
	Forward(outputName string) gocv.Mat
}

// forward runs one inference while holding mu. The lock is released even if
// the network panics.
func forward(mu *sync.Mutex, net network, blob gocv.Mat) gocv.Mat {
	mu.Lock()
	defer mu.Unlock()
	net.SetInput(blob, "")
	return net.Forward("")
}
