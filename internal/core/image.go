// Core image normalization and validation
package core

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// maxDimension bounds decoded uploads to keep GrabCut memory in check.
const maxDimension = 16384

// NormalizeImage returns a zero-origin NRGBA copy of img. Sources without an
// alpha channel come out fully opaque; NRGBA sources keep their exact bytes.
func NormalizeImage(img image.Image) *image.NRGBA {
	if img == nil {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	if src, ok := img.(*image.NRGBA); ok {
		if src == nil {
			return image.NewNRGBA(image.Rect(0, 0, 0, 0))
		}
		b := src.Bounds()
		dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			srcOff := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[srcOff:srcOff+b.Dx()*4])
		}
		return dst
	}
	return imaging.Clone(img)
}

// ValidateImage checks the basic requirements an upload must satisfy before
// any pipeline stage runs.
func ValidateImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: image is nil", ErrInvalidImage)
	}
	if p, ok := img.(*image.NRGBA); ok && p == nil {
		return fmt.Errorf("%w: image is nil", ErrInvalidImage)
	}
	b := img.Bounds()
	return ValidateDimensions(b.Dx(), b.Dy())
}

// ValidateDimensions applies the size rules of ValidateImage to a width and
// height read from an image header.
func ValidateDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: invalid dimensions: %dx%d", ErrInvalidImage, w, h)
	}
	if w > maxDimension || h > maxDimension {
		return fmt.Errorf("%w: image too large: %dx%d (max: %d)", ErrInvalidImage, w, h, maxDimension)
	}
	return nil
}

// ImageToBGRMat packs the RGB channels of img into an 8UC3 Mat in OpenCV
// channel order. Alpha is dropped; callers keep the source for compositing.
func ImageToBGRMat(img *image.NRGBA) (gocv.Mat, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	buf := make([]byte, w*h*3)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			buf[i] = row[x*4+2]
			buf[i+1] = row[x*4+1]
			buf[i+2] = row[x*4]
		}
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, buf)
}

// WriteBGRMat copies the pixels of an 8UC3 BGR Mat back into a copy of base,
// leaving the alpha channel of base untouched.
func WriteBGRMat(base *image.NRGBA, mat gocv.Mat) *image.NRGBA {
	out := NormalizeImage(base)
	w, h := out.Rect.Dx(), out.Rect.Dy()
	if mat.Rows() != h || mat.Cols() != w || mat.Channels() != 3 {
		return out
	}
	buf := mat.ToBytes()
	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			row[x*4] = buf[i+2]
			row[x*4+1] = buf[i+1]
			row[x*4+2] = buf[i]
		}
	}
	return out
}
