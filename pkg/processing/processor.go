package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Supported output formats
const (
	FormatPNG  = "png"
	FormatJPEG = "jpg"
	FormatWebP = "webp"
)

// maxDownloadSize bounds remote image downloads
const maxDownloadSize = 64 << 20

// EncodeOptions controls output encoding
type EncodeOptions struct {
	Format   string
	Quality  int
	Lossless bool
}

// Processor handles image decoding and encoding
type Processor struct {
	httpClient *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ReadURL downloads image bytes from a URL
func (p *Processor) ReadURL(ctx context.Context, imageURL string) ([]byte, error) {
	// Validate URL
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "facemask/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	// Check content type
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// Decode decodes image bytes, with an explicit WebP fallback
func (p *Processor) Decode(data []byte) (image.Image, error) {
	// Try standard image.Decode first
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	// Try WebP decode
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// Encode encodes img in the requested format
func (p *Processor) Encode(img image.Image, opts EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	switch NormalizeFormat(opts.Format) {
	case FormatWebP:
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality(opts.Quality))}); err != nil {
			return nil, fmt.Errorf("webp encode failed: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality(opts.Quality)}); err != nil {
			return nil, fmt.Errorf("jpeg encode failed: %w", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("png encode failed: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// PrepareImageForModel downsizes an image so its longest side is at most
// maxDim and returns it base64 encoded for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, jpegQuality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// NormalizeFormat maps format names and extensions to a supported format
func NormalizeFormat(format string) string {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "jpg", "jpeg":
		return FormatJPEG
	case "webp":
		return FormatWebP
	default:
		return FormatPNG
	}
}

// MimeType returns the MIME type for a supported format
func MimeType(format string) string {
	switch NormalizeFormat(format) {
	case FormatJPEG:
		return "image/jpeg"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// SniffMimeType returns the MIME type of encoded image bytes
func SniffMimeType(data []byte) string {
	ct := http.DetectContentType(data)
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return "application/octet-stream"
}

// DataURI returns a data URI embedding data
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// OutputName returns the output file name for a source file name
func OutputName(prefix, sourceName, format string) string {
	base := filepath.Base(sourceName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		stem = "photo"
	}
	return prefix + stem + "." + NormalizeFormat(format)
}

func quality(q int) int {
	if q < 1 || q > 100 {
		return 90
	}
	return q
}
