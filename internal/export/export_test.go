package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-paint-agent/internal/config"
	"object-paint-agent/internal/core"
)

type recordingPutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (r *recordingPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if r.err != nil {
		return nil, r.err
	}
	body, _ := io.ReadAll(in.Body)
	r.inputs = append(r.inputs, in)
	r.bodies = append(r.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func result() (*image.NRGBA, core.Mask, Metadata) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	mask := core.NewMask(4, 3)
	mask.Set(1, 1, 1)
	mask.Set(2, 1, 0.5)
	return img, mask, Metadata{
		ColorHex:         "#ff0000",
		DetectionMode:    "none",
		SegmentationMode: "grabcut",
		TimingsSeconds:   map[string]float64{"segment_seconds": 0.25},
	}
}

func newExporter(sink Sink) *Exporter {
	logger, _ := test.NewNullLogger()
	return NewExporter(sink, logger)
}

func TestExportToDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	img, mask, meta := result()

	paths, err := newExporter(DirSink{Dir: dir}).Export(context.Background(), img, mask, meta, "uploads/photo.jpg")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "photo_painted.png"), paths.Painted)
	assert.Equal(t, filepath.Join(dir, "photo_mask.png"), paths.Mask)
	assert.Equal(t, filepath.Join(dir, "photo_metadata.json"), paths.Metadata)

	f, err := os.Open(paths.Mask)
	require.NoError(t, err)
	defer f.Close()
	maskImg, err := png.Decode(f)
	require.NoError(t, err)
	got := color.NRGBAModel.Convert(maskImg.At(2, 1)).(color.NRGBA)
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 128}, got)

	data, err := os.ReadFile(paths.Metadata)
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Nil(t, doc["selected_object"])
	assert.Contains(t, doc, "selected_object", "null is written explicitly")
	assert.Equal(t, "#ff0000", doc["color_hex"])
	assert.Equal(t, "grabcut", doc["segmentation_mode"])
	assert.Equal(t, map[string]interface{}{"segment_seconds": 0.25}, doc["timings_seconds"])
}

func TestMarshalMetadataShape(t *testing.T) {
	label := "cup"
	data, err := MarshalMetadata(Metadata{SelectedObject: &label, ColorHex: "#00ff00", DetectionMode: "grounding_dino", SegmentationMode: "sam"})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(data, []byte("{\n  \"selected_object\": \"cup\"")))
	assert.Contains(t, string(data), `"timings_seconds": {}`)
}

func TestMaskImage(t *testing.T) {
	_, mask, _ := result()

	img := MaskImage(mask)

	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.NRGBAAt(1, 1))
	assert.Equal(t, color.NRGBA{}, img.NRGBAAt(0, 0))
}

func TestExportToS3(t *testing.T) {
	putter := &recordingPutter{}
	img, mask, meta := result()

	paths, err := newExporter(NewS3Sink(putter, "paint-bucket", "runs/42")).Export(context.Background(), img, mask, meta, "photo")
	require.NoError(t, err)

	assert.Equal(t, "s3://paint-bucket/runs/42/photo_painted.png", paths.Painted)
	require.Len(t, putter.inputs, 3)
	assert.Equal(t, "runs/42/photo_metadata.json", aws.ToString(putter.inputs[2].Key))
	assert.Equal(t, "application/json", aws.ToString(putter.inputs[2].ContentType))
	assert.Equal(t, "paint-bucket", aws.ToString(putter.inputs[0].Bucket))
	assert.NotEmpty(t, putter.bodies[0])
}

func TestExportStopsOnSinkError(t *testing.T) {
	img, mask, meta := result()

	_, err := newExporter(NewS3Sink(&recordingPutter{err: errors.New("denied")}, "b", "")).Export(context.Background(), img, mask, meta, "x")

	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "photo", sanitize("../../etc/photo.png"))
	assert.Equal(t, "shot", sanitize(`C:\pics\shot.jpg`))
	assert.Equal(t, "", sanitize(""))
}

func TestNewSinkDefaultsToDataDir(t *testing.T) {
	cfg := &config.Config{}
	cfg.Paths.DataDir = "/data"
	cfg.Export.Backend = "dir"

	sink, err := NewSink(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, DirSink{Dir: filepath.Join("/data", "outputs")}, sink)
}
