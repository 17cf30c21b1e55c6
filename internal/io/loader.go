// Image loading and saving
package io

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"object-paint-agent/internal/core"
)

var supportedFormats = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".gif"}

// ImageLoader handles image file operations
type ImageLoader struct {
	logger  logrus.FieldLogger
	maxSize int
}

// NewImageLoader returns a loader that fits images whose longer side exceeds
// maxSize. A maxSize of 0 keeps the original size.
func NewImageLoader(logger logrus.FieldLogger, maxSize int) *ImageLoader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ImageLoader{
		logger:  logger,
		maxSize: maxSize,
	}
}

// Load reads, orients and fits an image file.
func (il *ImageLoader) Load(path string) (*image.NRGBA, error) {
	il.logger.WithField("filepath", path).Debug("loading image")

	if !IsSupportedImageFormat(path) {
		return nil, fmt.Errorf("%w: unsupported image format: %s", core.ErrInvalidImage, path)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load image %s: %v", core.ErrInvalidImage, path, err)
	}

	out, err := il.prepare(img)
	if err != nil {
		return nil, err
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    out.Rect.Dx(),
		"height":   out.Rect.Dy(),
	}).Info("image loaded")

	return out, nil
}

// Decode reads an uploaded image from r. The header is checked against the
// dimension limits before any pixels are decoded.
func (il *ImageLoader) Decode(r io.Reader) (*image.NRGBA, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	header, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidImage, err)
	}
	if err := core.ValidateDimensions(header.Width, header.Height); err != nil {
		il.logger.WithFields(logrus.Fields{
			"format": format,
			"width":  header.Width,
			"height": header.Height,
		}).Warn("rejected image before decoding")
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidImage, err)
	}
	return il.prepare(img)
}

func (il *ImageLoader) prepare(img image.Image) (*image.NRGBA, error) {
	if err := core.ValidateImage(img); err != nil {
		return nil, err
	}
	b := img.Bounds()
	if il.maxSize > 0 && (b.Dx() > il.maxSize || b.Dy() > il.maxSize) {
		fitted := imaging.Fit(img, il.maxSize, il.maxSize, imaging.Lanczos)
		il.logger.WithFields(logrus.Fields{
			"from": b.Size().String(),
			"to":   fitted.Rect.Size().String(),
		}).Debug("image fitted to max size")
		return fitted, nil
	}
	return core.NormalizeImage(img), nil
}

// Save writes img as PNG, creating the parent directory.
func (il *ImageLoader) Save(img image.Image, path string) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("cannot save empty image")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    img.Bounds().Dx(),
		"height":   img.Bounds().Dy(),
	}).Info("image saved")

	return nil
}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}

// PNGBytes encodes img as PNG in memory.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func IsSupportedImageFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// GetSupportedFormats lists the accepted file extensions.
func GetSupportedFormats() []string {
	return append([]string(nil), supportedFormats...)
}
