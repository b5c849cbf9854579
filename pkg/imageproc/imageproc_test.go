package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"
)

func checkerboard(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
			} else {
				img.Set(x, y, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
			}
		}
	}
	return img
}

func TestLoad(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 0})

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, src); err != nil {
		t.Fatal(err)
	}
	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, src, nil); err != nil {
		t.Fatal(err)
	}
	var gifBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, src, nil); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		data        []byte
		format      string
		expectError bool
	}{
		{name: "png", data: pngBuf.Bytes(), format: "png"},
		{name: "jpeg", data: jpegBuf.Bytes(), format: "jpeg"},
		{name: "gif rejected", data: gifBuf.Bytes(), expectError: true},
		{name: "garbage", data: []byte("not an image"), expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, format, err := Load(bytes.NewReader(tt.data))
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
			if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
				t.Errorf("unexpected bounds %v", img.Bounds())
			}
			for i := 3; i < len(img.Pix); i += 4 {
				if img.Pix[i] != 0xff {
					t.Fatalf("pixel %d is not opaque: alpha=%d", i/4, img.Pix[i])
				}
			}
		})
	}
}

func TestCrop(t *testing.T) {
	img := checkerboard(20, 10)

	cropped, err := Crop(img, image.Rect(5, 2, 15, 8))
	if err != nil {
		t.Fatalf("Crop() error = %v", err)
	}
	if cropped.Bounds() != image.Rect(0, 0, 10, 6) {
		t.Errorf("unexpected bounds %v", cropped.Bounds())
	}
	if got, want := cropped.NRGBAAt(0, 0), img.NRGBAAt(5, 2); got != want {
		t.Errorf("cropped origin = %v, want %v", got, want)
	}

	if _, err := Crop(img, image.Rect(20, 10, 20, 10)); err == nil {
		t.Error("Expected error for empty crop")
	}
}

func TestEnhance(t *testing.T) {
	img := checkerboard(4, 4)

	enhanced := Enhance(img, DefaultContrast)
	// mean of 200 and 100 is 150; 150 +/- 2*50 -> 250 and 50
	if got := enhanced.NRGBAAt(0, 0); got != (color.NRGBA{R: 250, G: 250, B: 250, A: 255}) {
		t.Errorf("light pixel = %v", got)
	}
	if got := enhanced.NRGBAAt(1, 0); got != (color.NRGBA{R: 50, G: 50, B: 50, A: 255}) {
		t.Errorf("dark pixel = %v", got)
	}

	identity := Enhance(img, 1.0)
	if got := identity.NRGBAAt(0, 0).R; got != 200 {
		t.Errorf("factor 1 changed pixel to %d", got)
	}
}

func TestEnhanceClamps(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 255})

	enhanced := Enhance(img, 4.0)
	if enhanced.NRGBAAt(0, 0).R != 255 || enhanced.NRGBAAt(1, 0).R != 0 {
		t.Errorf("expected clamped extremes, got %v %v", enhanced.NRGBAAt(0, 0), enhanced.NRGBAAt(1, 0))
	}
}

func TestEncodeJPEGDeterministic(t *testing.T) {
	img := checkerboard(16, 16)

	first, err := EncodeJPEG(img, DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}
	second, err := EncodeJPEG(img, DefaultJPEGQuality)
	if err != nil {
		t.Fatalf("EncodeJPEG() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated encodes differ")
	}
	if _, err := jpeg.Decode(bytes.NewReader(first)); err != nil {
		t.Errorf("output is not a jpeg: %v", err)
	}
}

func TestEncodePNG(t *testing.T) {
	img := checkerboard(3, 3)
	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a png: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("bounds changed: %v", decoded.Bounds())
	}
}
