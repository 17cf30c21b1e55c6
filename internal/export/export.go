// Package export writes paint results: the painted image, the mask as an
// RGBA PNG and a metadata document.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"object-paint-agent/internal/core"
	imgio "object-paint-agent/internal/io"
)

// Metadata describes how a paint result was produced.
type Metadata struct {
	SelectedObject   *string            `json:"selected_object"`
	ColorHex         string             `json:"color_hex"`
	DetectionMode    string             `json:"detection_mode"`
	SegmentationMode string             `json:"segmentation_mode"`
	TimingsSeconds   map[string]float64 `json:"timings_seconds"`
}

// Paths are the sink locations of the three artifacts.
type Paths struct {
	Painted  string `json:"painted"`
	Mask     string `json:"mask"`
	Metadata string `json:"metadata"`
}

// Sink stores named blobs.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

type Exporter struct {
	sink   Sink
	logger logrus.FieldLogger
}

func NewExporter(sink Sink, logger logrus.FieldLogger) *Exporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Exporter{sink: sink, logger: logger.WithField("component", "exporter")}
}

// Export writes <base>_painted.png, <base>_mask.png and <base>_metadata.json.
// An empty base name gets a timestamped one.
func (e *Exporter) Export(ctx context.Context, painted *image.NRGBA, mask core.Mask, meta Metadata, baseName string) (Paths, error) {
	base := sanitize(baseName)
	if base == "" {
		base = "paint_" + time.Now().UTC().Format("20060102T150405")
	}

	paintedPNG, err := imgio.PNGBytes(painted)
	if err != nil {
		return Paths{}, fmt.Errorf("encoding painted image: %w", err)
	}
	maskPNG, err := imgio.PNGBytes(MaskImage(mask))
	if err != nil {
		return Paths{}, fmt.Errorf("encoding mask: %w", err)
	}
	metaJSON, err := MarshalMetadata(meta)
	if err != nil {
		return Paths{}, err
	}

	var out Paths
	if out.Painted, err = e.sink.Put(ctx, base+"_painted.png", "image/png", paintedPNG); err != nil {
		return Paths{}, err
	}
	if out.Mask, err = e.sink.Put(ctx, base+"_mask.png", "image/png", maskPNG); err != nil {
		return Paths{}, err
	}
	if out.Metadata, err = e.sink.Put(ctx, base+"_metadata.json", "application/json", metaJSON); err != nil {
		return Paths{}, err
	}

	e.logger.WithFields(logrus.Fields{
		"base":              base,
		"segmentation_mode": meta.SegmentationMode,
	}).Info("paint result exported")

	return out, nil
}

// MaskImage replicates the mask into RGB and uses it as alpha as well.
func MaskImage(mask core.Mask) *image.NRGBA {
	gray := mask.ToGray()
	img := image.NewNRGBA(image.Rect(0, 0, mask.Width, mask.Height))
	for i, v := range gray.Pix {
		p := img.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = v, v, v, v
	}
	return img
}

// MarshalMetadata renders meta as indented JSON. Missing timings encode as
// an empty object.
func MarshalMetadata(meta Metadata) ([]byte, error) {
	if meta.TimingsSeconds == nil {
		meta.TimingsSeconds = map[string]float64{}
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	return data, nil
}

func sanitize(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
