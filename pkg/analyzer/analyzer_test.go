package analyzer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/menta2k/facemask/pkg/detection"
	"github.com/menta2k/facemask/pkg/mask"
	"github.com/menta2k/facemask/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Fill with a gradient pattern
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}

	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestGetImageInfo(t *testing.T) {
	info := GetImageInfo(createTestImage(400, 300))

	if info.Width != 400 || info.Height != 300 {
		t.Errorf("Expected 400x300, got %dx%d", info.Width, info.Height)
	}
	if info.AspectRatio < 1.33 || info.AspectRatio > 1.34 {
		t.Errorf("Expected aspect ratio ~1.33, got %f", info.AspectRatio)
	}
	if info.Area != 120000 {
		t.Errorf("Expected area 120000, got %d", info.Area)
	}
}

func TestAnalyze(t *testing.T) {
	faces := detection.Static{
		{Box: types.Box{X: 10, Y: 10, Width: 40, Height: 40}, Age: 7.6, Confidence: 0.9},
		{Box: types.Box{X: 100, Y: 20, Width: 50, Height: 60}, Age: 35, Confidence: 0.8},
	}
	policy := mask.DefaultPolicy()
	policy.ChildOnly = true
	a := NewWithConfig(faces, Config{Policy: policy})

	data := encodePNG(t, createTestImage(200, 100))
	report, err := a.Analyze(context.Background(), "kids.png", data)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if report.Info.MimeType != "image/png" || report.Info.Bytes != len(data) {
		t.Errorf("Unexpected info %+v", report.Info)
	}
	if len(report.Faces) != 2 || len(report.Masks) != 1 {
		t.Fatalf("Expected 2 faces and 1 mask, got %d and %d", len(report.Faces), len(report.Masks))
	}
	if report.Suppressed != 1 || report.Minors != 1 {
		t.Errorf("Expected 1 suppressed and 1 minor, got %d and %d", report.Suppressed, report.Minors)
	}
	if report.Masks[0].EstimatedAge != 8 {
		t.Errorf("Expected rounded age 8, got %d", report.Masks[0].EstimatedAge)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	a := New(detection.Static(nil))
	if _, err := a.Analyze(context.Background(), "junk", []byte("junk")); err == nil {
		t.Error("Expected decode error")
	}

	failing := New(detection.Func(func(ctx context.Context, img image.Image, opts types.DetectOptions) ([]types.FaceDetection, error) {
		return nil, errors.New("model offline")
	}))
	if _, err := failing.Analyze(context.Background(), "a.png", encodePNG(t, createTestImage(10, 10))); err == nil {
		t.Error("Expected detector error")
	}

	if _, err := New(nil).Analyze(context.Background(), "a.png", nil); !errors.Is(err, detection.ErrNotLoaded) {
		t.Errorf("Expected ErrNotLoaded, got %v", err)
	}
}
