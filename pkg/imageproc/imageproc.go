// Package imageproc loads receipt images and prepares cropped regions for OCR.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
)

const (
	// DefaultContrast is the contrast multiplier applied before recognition.
	DefaultContrast = 2.0
	// DefaultJPEGQuality is used when re-encoding the original image.
	DefaultJPEGQuality = 75
)

// Load decodes a JPEG or PNG and returns it as an opaque RGB image.
// Alpha is dropped, not composited.
func Load(r io.Reader) (*image.NRGBA, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to detect image format: %w", err)
	}
	if format != "jpeg" && format != "png" {
		return nil, format, fmt.Errorf("unsupported image format: %s", format)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, format, fmt.Errorf("failed to decode image: %w", err)
	}

	rgb := imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.A = 0xff
		return c
	})
	return rgb, format, nil
}

// Crop returns the part of img inside rect, re-based at the origin.
func Crop(img image.Image, rect image.Rectangle) (*image.NRGBA, error) {
	rect = rect.Add(img.Bounds().Min).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("crop region %v is empty or outside image bounds %v", rect, img.Bounds())
	}
	return imaging.Crop(img, rect), nil
}

// Enhance converts img to grayscale and stretches contrast around its mean
// luminance by factor. Factor 1 leaves the grayscale image unchanged.
func Enhance(img image.Image, factor float64) *image.NRGBA {
	gray := imaging.Grayscale(img)
	mean := meanLuminance(gray)

	return imaging.AdjustFunc(gray, func(c color.NRGBA) color.NRGBA {
		v := stretch(c.R, mean, factor)
		return color.NRGBA{R: v, G: v, B: v, A: c.A}
	})
}

// EncodePNG encodes img losslessly
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes img at the given quality. The output is deterministic
// for the same image and quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// meanLuminance rounds to the nearest integer level like a histogram mean.
func meanLuminance(gray *image.NRGBA) float64 {
	b := gray.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			sum += uint64(row[x])
		}
	}
	return float64(int(float64(sum)/float64(n) + 0.5))
}

func stretch(v uint8, mean, factor float64) uint8 {
	out := mean + factor*(float64(v)-mean)
	if out <= 0 {
		return 0
	}
	if out >= 255 {
		return 255
	}
	return uint8(out)
}
