package segment

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"object-paint-agent/internal/core"
)

const (
	onnxModelName = "sam"
	onnxModelFile = "point_segmenter.onnx"
	onnxInputSize = 512
	onnxClickRad  = 5
)

// ONNXPredictor runs a click-map segmentation network through the OpenCV DNN
// module. The model is loaded on first use; a failed load is remembered and
// every later call reports unavailable.
type ONNXPredictor struct {
	modelPath string
	logger    logrus.FieldLogger

	once    sync.Once
	loadErr error
	net     gocv.Net

	// cv::dnn::Net is not safe for concurrent Forward calls.
	mu sync.Mutex
}

// NewONNXPredictor looks for the model under <modelsDir>/sam/.
func NewONNXPredictor(modelsDir string, logger logrus.FieldLogger) *ONNXPredictor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ONNXPredictor{
		modelPath: filepath.Join(modelsDir, onnxModelName, onnxModelFile),
		logger:    logger.WithField("component", "onnx_predictor"),
	}
}

func (p *ONNXPredictor) Name() string { return onnxModelName }

// IsAvailable loads the model if needed and reports whether it is usable.
func (p *ONNXPredictor) IsAvailable() bool {
	return p.load() == nil
}

func (p *ONNXPredictor) load() error {
	p.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				p.loadErr = fmt.Errorf("%w: loading %s: %v", core.ErrAcceleratorUnavailable, p.modelPath, r)
			}
		}()

		if _, err := os.Stat(p.modelPath); err != nil {
			p.loadErr = fmt.Errorf("%w: %v", core.ErrAcceleratorUnavailable, err)
			p.logger.WithField("path", p.modelPath).Debug("point segmenter weights not found")
			return
		}

		net := gocv.ReadNetFromONNX(p.modelPath)
		if net.Empty() {
			p.loadErr = fmt.Errorf("%w: could not read %s", core.ErrAcceleratorUnavailable, p.modelPath)
			return
		}
		p.net = net
		p.logger.WithField("path", p.modelPath).Info("point segmenter loaded")
	})
	return p.loadErr
}

// Predict returns a soft mask for the object under the foreground clicks.
func (p *ONNXPredictor) Predict(ctx context.Context, img *image.NRGBA, fg, bg []core.Point) (mask core.Mask, err error) {
	if err := p.load(); err != nil {
		return core.Mask{}, err
	}
	if err := ctx.Err(); err != nil {
		return core.Mask{}, fmt.Errorf("%w: %v", core.ErrAcceleratorUnavailable, err)
	}

	defer func() {
		if r := recover(); r != nil {
			mask = core.Mask{}
			err = fmt.Errorf("%w: inference panic: %v", core.ErrAcceleratorUnavailable, r)
		}
	}()

	w, h := img.Rect.Dx(), img.Rect.Dy()
	blob, err := clickBlob(img, fg, bg)
	if err != nil {
		return core.Mask{}, fmt.Errorf("%w: %v", core.ErrAcceleratorUnavailable, err)
	}
	defer blob.Close()

	out := forward(&p.mu, &p.net, blob)
	defer out.Close()

	logits, err := out.DataPtrFloat32()
	if err != nil {
		return core.Mask{}, fmt.Errorf("%w: reading output: %v", core.ErrAcceleratorUnavailable, err)
	}
	if len(logits) != onnxInputSize*onnxInputSize {
		return core.Mask{}, fmt.Errorf("%w: unexpected output size %d", core.ErrAcceleratorUnavailable, len(logits))
	}

	small := core.NewMask(onnxInputSize, onnxInputSize)
	for i, v := range logits {
		small.Values[i] = float32(1 / (1 + math.Exp(-float64(v))))
	}
	return small.Resize(w, h).Clip(), nil
}

// clickBlob builds the 1x5xSxS network input: planar RGB in [0,1] followed by
// foreground and background click maps.
func clickBlob(img *image.NRGBA, fg, bg []core.Point) (gocv.Mat, error) {
	const s = onnxInputSize
	w, h := img.Rect.Dx(), img.Rect.Dy()
	resized := imaging.Resize(img, s, s, imaging.Linear)

	plane := s * s
	data := make([]float32, 5*plane)
	for y := 0; y < s; y++ {
		for x := 0; x < s; x++ {
			off := resized.PixOffset(x, y)
			i := y*s + x
			data[i] = float32(resized.Pix[off]) / 255
			data[plane+i] = float32(resized.Pix[off+1]) / 255
			data[2*plane+i] = float32(resized.Pix[off+2]) / 255
		}
	}

	stamp := func(channel int, pts []core.Point) {
		base := data[channel*plane : (channel+1)*plane]
		for _, pt := range pts {
			if !pt.In(w, h) {
				continue
			}
			cy := pt.Row * s / h
			cx := pt.Col * s / w
			for y := max(0, cy-onnxClickRad); y <= min(s-1, cy+onnxClickRad); y++ {
				for x := max(0, cx-onnxClickRad); x <= min(s-1, cx+onnxClickRad); x++ {
					if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= onnxClickRad*onnxClickRad {
						base[y*s+x] = 1
					}
				}
			}
		}
	}
	stamp(3, fg)
	stamp(4, bg)

	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return gocv.NewMatWithSizesFromBytes([]int{1, 5, s, s}, gocv.MatTypeCV32F, buf)
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
