package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"object-paint-agent/internal/cache"
	"object-paint-agent/internal/core"
	imgio "object-paint-agent/internal/io"
	"object-paint-agent/internal/pipeline"
)

type upload struct {
	image    *image.NRGBA
	md5      string
	filename string
}

// Segment returns the raw object mask for the uploaded image and hints.
func (s *Server) Segment(c *gin.Context) {
	up, ok := s.readUpload(c)
	if !ok {
		return
	}
	job, err := s.parseJob(c, up.image)
	if err != nil {
		s.fail(c, err)
		return
	}
	if job.Rect == nil && job.Points.Empty() {
		s.fail(c, fmt.Errorf("%w: a rectangle or at least one point is required", core.ErrInvalidRegion))
		return
	}

	mask, mode, err := s.pipeline.Segment(c.Request.Context(), job)
	if err != nil {
		s.fail(c, err)
		return
	}
	maskPNG, err := pngBase64(mask.ToGray())
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, SegmentResponse{
		Success: true,
		Message: "segmented",
		Data: &SegmentData{
			MD5:              up.md5,
			Width:            mask.Width,
			Height:           mask.Height,
			SegmentationMode: mode,
			Coverage:         mask.Coverage(),
			Mask:             maskPNG,
		},
	})
}

// Paint runs the full pipeline and optionally exports the result.
func (s *Server) Paint(c *gin.Context) {
	up, ok := s.readUpload(c)
	if !ok {
		return
	}
	job, err := s.parseJob(c, up.image)
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.pipeline.Run(c.Request.Context(), job)
	if err != nil {
		s.fail(c, err)
		return
	}

	data := &PaintData{
		MD5:      up.md5,
		Objects:  res.Objects,
		Metadata: res.Metadata,
		Quality:  res.Quality,
	}
	if data.Painted, err = pngBase64(res.Painted); err != nil {
		s.fail(c, err)
		return
	}
	if data.Mask, err = pngBase64(res.Mask.ToGray()); err != nil {
		s.fail(c, err)
		return
	}
	if data.Overlay, err = pngBase64(res.Overlay); err != nil {
		s.fail(c, err)
		return
	}

	if formBool(c, "export", false) && s.exporter != nil {
		paths, err := s.exporter.Export(c.Request.Context(), res.Painted, res.Mask, res.Metadata, up.filename)
		if err != nil {
			s.logger.WithError(err).Error("failed to export paint result")
			_ = c.Error(err)
		} else {
			data.Exported = &paths
		}
	}

	c.JSON(http.StatusOK, PaintResponse{
		Success: true,
		Message: "painted",
		Data:    data,
	})
}

func (s *Server) readUpload(c *gin.Context) (upload, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Message: "request body too large",
				Error:   err.Error(),
			})
			return upload{}, false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "an image file is required",
			Error:   err.Error(),
		})
		return upload{}, false
	}

	if file.Size > s.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("file exceeds the size limit (%d MB)", s.cfg.Upload.MaxSize/(1024*1024)),
		})
		return upload{}, false
	}

	if ext := filepath.Ext(file.Filename); ext != "" && !imgio.IsSupportedImageFormat(file.Filename) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "unsupported file extension, allowed: " + strings.Join(imgio.GetSupportedFormats(), ", "),
		})
		return upload{}, false
	}

	if !s.isAllowedType(file.Header.Get("Content-Type")) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "unsupported file type, allowed: " + strings.Join(s.cfg.Upload.AllowedTypes, ", "),
		})
		return upload{}, false
	}

	data, err := readFile(file)
	if err != nil {
		s.fail(c, err)
		return upload{}, false
	}

	img, err := s.loader.Decode(bytes.NewReader(data))
	if err != nil {
		s.fail(c, err)
		return upload{}, false
	}

	sum := cache.BytesMD5(data)
	s.logger.WithFields(logrus.Fields{
		"filename": file.Filename,
		"md5":      sum,
		"size":     file.Size,
	}).Debug("file uploaded")

	return upload{image: img, md5: sum, filename: file.Filename}, true
}

func (s *Server) parseJob(c *gin.Context, img *image.NRGBA) (pipeline.Job, error) {
	job := pipeline.Job{
		Image:          img,
		Detect:         formBool(c, "detect", s.cfg.Detect.Enabled),
		SelectedObject: strings.TrimSpace(c.PostForm("selected_object")),
	}

	if raw := strings.TrimSpace(c.PostForm("rect")); raw != "" {
		rect, err := core.ParseRect(raw)
		if err != nil {
			return job, err
		}
		job.Rect = &rect
	}
	var err error
	if job.Points.Foreground, err = core.ParsePoints(c.PostForm("fg")); err != nil {
		return job, err
	}
	if job.Points.Background, err = core.ParsePoints(c.PostForm("bg")); err != nil {
		return job, err
	}

	rc := s.cfg.Refine
	if job.Refine.MorphKernel, err = formInt(c, "morph_kernel", rc.MorphKernel); err != nil {
		return job, err
	}
	if job.Refine.FeatherPx, err = formFloat(c, "feather_px", rc.FeatherPx); err != nil {
		return job, err
	}
	if job.Refine.Threshold, err = formFloat(c, "threshold", rc.Threshold); err != nil {
		return job, err
	}

	cc := s.cfg.Recolor
	job.Recolor = core.RecolorRequest{
		TargetColor:   c.DefaultPostForm("color", cc.Color),
		SourceColor:   strings.TrimSpace(c.PostForm("source_color")),
		IncludeShadow: formBool(c, "include_shadow", cc.IncludeShadow),
	}
	if job.Recolor.Strength, err = formFloat(c, "strength", cc.Strength); err != nil {
		return job, err
	}
	if job.Recolor.HueTolerance, err = formFloat(c, "hue_tolerance", cc.HueTolerance); err != nil {
		return job, err
	}
	if job.Recolor.ShadowDilation, err = formInt(c, "shadow_dilation", cc.ShadowDilation); err != nil {
		return job, err
	}
	if job.Recolor.ShadowValueThreshold, err = formFloat(c, "shadow_value_threshold", cc.ShadowValueThreshold); err != nil {
		return job, err
	}
	return job, nil
}

// fail maps pipeline errors to HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "processing failed"
	switch {
	case errors.Is(err, core.ErrInvalidRegion):
		status, message = http.StatusBadRequest, "invalid region"
	case errors.Is(err, core.ErrInvalidImage):
		status, message = http.StatusBadRequest, "invalid image"
	case errors.Is(err, core.ErrInvalidRequest):
		status, message = http.StatusBadRequest, "invalid request"
	case errors.Is(err, pipeline.ErrBusy):
		status, message = http.StatusServiceUnavailable, "server busy"
	default:
		s.logger.WithError(err).Error("request failed")
	}
	_ = c.Error(err)
	c.JSON(status, ErrorResponse{Message: message, Error: err.Error()})
}

func (s *Server) isAllowedType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for _, allowed := range s.cfg.Upload.AllowedTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}

func pngBase64(img image.Image) (string, error) {
	data, err := imgio.PNGBytes(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func formFloat(c *gin.Context, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", core.ErrInvalidRequest, key)
	}
	return v, nil
}

func formInt(c *gin.Context, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", core.ErrInvalidRequest, key)
	}
	return v, nil
}

func formBool(c *gin.Context, key string, def bool) bool {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
