package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// createTestImage creates a simple gradient test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / width), uint8(y * 255 / height), 128, 255})
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

func TestEncodeDecodeFormats(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(64, 48)

	for _, format := range []string{"png", "jpeg", ".JPG", "webp"} {
		t.Run(format, func(t *testing.T) {
			data, err := p.Encode(img, EncodeOptions{Format: format, Quality: 80})
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if got, want := SniffMimeType(data), MimeType(format); got != want {
				t.Errorf("Expected %s bytes, got %s", want, got)
			}

			decoded, err := p.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.Bounds().Dx() != 64 || decoded.Bounds().Dy() != 48 {
				t.Errorf("Unexpected decoded size %v", decoded.Bounds())
			}
		})
	}
}

func TestEncodePNGIsDeterministic(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(32, 32)

	a, err := p.Encode(img, EncodeOptions{Format: FormatPNG})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	b, _ := p.Encode(img, EncodeOptions{Format: FormatPNG})
	if !bytes.Equal(a, b) {
		t.Error("Expected identical output for identical input")
	}
}

func TestDecodeInvalid(t *testing.T) {
	p := NewProcessor()
	if _, err := p.Decode([]byte("definitely not an image")); err == nil {
		t.Error("Expected error for invalid data")
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()

	encoded, err := p.PrepareImageForModel(createTestImage(200, 100), "jpg", 64, 85)
	if err != nil {
		t.Fatalf("PrepareImageForModel failed: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("Expected base64 output: %v", err)
	}
	img, err := p.Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 32 {
		t.Errorf("Expected 64x32, got %v", img.Bounds())
	}

	// Small images are sent as-is
	encoded, _ = p.PrepareImageForModel(createTestImage(40, 20), "png", 64, 85)
	raw, _ = base64.StdEncoding.DecodeString(encoded)
	img, err = p.Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 40 {
		t.Errorf("Expected unchanged width 40, got %d", img.Bounds().Dx())
	}
}

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"png", FormatPNG},
		{"PNG", FormatPNG},
		{"jpeg", FormatJPEG},
		{".jpg", FormatJPEG},
		{"webp", FormatWebP},
		{"", FormatPNG},
		{"tiff", FormatPNG},
	}
	for _, tt := range tests {
		if got := NormalizeFormat(tt.in); got != tt.want {
			t.Errorf("NormalizeFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		prefix, source, format string
		want                   string
	}{
		{"protected_", "family photo.jpg", "png", "protected_family photo.png"},
		{"protected_", "/tmp/kids.webp", "jpeg", "protected_kids.jpg"},
		{"", "beach.png", "webp", "beach.webp"},
		{"protected_", "", "png", "protected_photo.png"},
	}
	for _, tt := range tests {
		if got := OutputName(tt.prefix, tt.source, tt.format); got != tt.want {
			t.Errorf("OutputName(%q, %q, %q) = %q, want %q", tt.prefix, tt.source, tt.format, got, tt.want)
		}
	}
}

func TestDataURI(t *testing.T) {
	uri := DataURI("image/png", []byte("abc"))
	if uri != "data:image/png;base64,YWJj" {
		t.Errorf("Unexpected data URI %q", uri)
	}
	if got := SniffMimeType([]byte("hello")); got != "application/octet-stream" {
		t.Errorf("Expected octet-stream for text, got %q", got)
	}
}

func TestReadURL(t *testing.T) {
	data := encodePNG(t, createTestImage(8, 8))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/face.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(data)
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := NewProcessor()
	ctx := context.Background()

	got, err := p.ReadURL(ctx, server.URL+"/face.png")
	if err != nil {
		t.Fatalf("ReadURL failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("Downloaded bytes differ")
	}

	if _, err := p.ReadURL(ctx, server.URL+"/page"); err == nil || !strings.Contains(err.Error(), "does not point to an image") {
		t.Errorf("Expected content type error, got %v", err)
	}
	if _, err := p.ReadURL(ctx, server.URL+"/missing"); err == nil {
		t.Error("Expected error for 404")
	}
	if _, err := p.ReadURL(ctx, "ftp://example.com/a.png"); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
}
