// Package cache stores segmentation masks keyed by image content and region
// hint, so repeated edits of the same selection skip GrabCut.
package cache

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"object-paint-agent/internal/config"
	"object-paint-agent/internal/core"
)

// MaskCache is a best-effort mask store. Callers treat errors as misses.
type MaskCache interface {
	Get(ctx context.Context, key string) (core.Mask, bool, error)
	Set(ctx context.Context, key string, mask core.Mask) error
}

// New builds the cache selected by cfg.Cache.Backend.
func New(cfg *config.Config) (MaskCache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return NewMemoryCache(cfg.Cache.MaxCost, cfg.Cache.TTL)
	case "redis":
		return NewRedisCache(cfg.Redis), nil
	case "none", "":
		return Noop{}, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
}

// Key combines an image digest with a hint signature and the segmentation
// mode that will run.
func Key(digest, hintSignature string) string {
	return digest + ":" + hintSignature
}

// BytesMD5 returns the hex MD5 of data.
func BytesMD5(data []byte) string {
	hash := md5.Sum(data)
	return hex.EncodeToString(hash[:])
}

// ImageDigest hashes the dimensions and pixels of img.
func ImageDigest(img *image.NRGBA) string {
	hash := md5.New()
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[:4], uint32(img.Rect.Dx()))
	binary.LittleEndian.PutUint32(dims[4:], uint32(img.Rect.Dy()))
	hash.Write(dims[:])
	rowLen := img.Rect.Dx() * 4
	for y := 0; y < img.Rect.Dy(); y++ {
		off := y * img.Stride
		hash.Write(img.Pix[off : off+rowLen])
	}
	return hex.EncodeToString(hash.Sum(nil))
}

func encodeMask(mask core.Mask) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, mask.ToGray(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding mask: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeMask(data []byte) (core.Mask, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return core.Mask{}, fmt.Errorf("decoding mask: %w", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		gray = image.NewGray(img.Bounds())
		draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	}
	return core.MaskFromGray(gray), nil
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (core.Mask, bool, error) { return core.Mask{}, false, nil }

func (Noop) Set(context.Context, string, core.Mask) error { return nil }
