package server

import (
	"object-paint-agent/internal/detect"
	"object-paint-agent/internal/export"
	"object-paint-agent/internal/metrics"
)

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// SegmentData is the body of a successful segment call. Mask is a base64
// grayscale PNG.
type SegmentData struct {
	MD5              string  `json:"md5"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	SegmentationMode string  `json:"segmentation_mode"`
	Coverage         float64 `json:"coverage"`
	Mask             string  `json:"mask"`
}

type SegmentResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *SegmentData `json:"data,omitempty"`
}

// PaintData is the body of a successful paint call. Images are base64 PNGs.
type PaintData struct {
	MD5      string                  `json:"md5"`
	Painted  string                  `json:"painted"`
	Mask     string                  `json:"mask"`
	Overlay  string                  `json:"overlay"`
	Objects  []detect.DetectedObject `json:"objects"`
	Metadata export.Metadata         `json:"metadata"`
	Quality  metrics.QualityReport   `json:"quality"`
	Exported *export.Paths           `json:"exported,omitempty"`
}

type PaintResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    *PaintData `json:"data,omitempty"`
}
