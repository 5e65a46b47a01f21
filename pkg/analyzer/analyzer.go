// Package analyzer reports what masking would do to an image without
// painting anything: image metadata, detected faces and the masks the
// current policy derives from them.
package analyzer

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/menta2k/facemask/pkg/detection"
	"github.com/menta2k/facemask/pkg/mask"
	"github.com/menta2k/facemask/pkg/processing"
	"github.com/menta2k/facemask/pkg/types"
)

// Config holds configuration for the image analyzer
type Config struct {
	Policy mask.Policy
	Detect types.DetectOptions
	Logger *slog.Logger
}

// ImageAnalyzer inspects images with a face detector
type ImageAnalyzer struct {
	detector  detection.Detector
	processor *processing.Processor
	config    Config
}

// New creates a new ImageAnalyzer with the default masking policy
func New(detector detection.Detector) *ImageAnalyzer {
	return NewWithConfig(detector, Config{})
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(detector detection.Detector, config Config) *ImageAnalyzer {
	if config.Policy.SizePercent == 0 {
		config.Policy = mask.DefaultPolicy()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &ImageAnalyzer{
		detector:  detector,
		processor: processing.NewProcessor(),
		config:    config,
	}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
	MimeType    string  `json:"mime_type,omitempty"`
	Bytes       int     `json:"bytes,omitempty"`
}

// GetImageInfo returns basic information about an image
func GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{
		Width:  width,
		Height: height,
		Area:   width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// Report describes one analyzed image
type Report struct {
	Name  string                `json:"name"`
	Info  ImageInfo             `json:"info"`
	Faces []types.FaceDetection `json:"faces"`
	Masks []mask.Mask           `json:"masks"`
	// Minors counts masks classified as minors
	Minors int `json:"minors"`
	// Suppressed counts faces left unmasked by child-only mode
	Suppressed int `json:"suppressed"`
}

// Analyze decodes data, runs the detector and applies the masking policy
func (a *ImageAnalyzer) Analyze(ctx context.Context, name string, data []byte) (*Report, error) {
	if a.detector == nil || !a.detector.Ready() {
		return nil, detection.ErrNotLoaded
	}

	img, err := a.processor.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	faces, err := a.detector.Detect(ctx, img, a.config.Detect)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	masks := mask.FromDetections(faces, a.config.Policy)
	info := GetImageInfo(img)
	info.MimeType = processing.SniffMimeType(data)
	info.Bytes = len(data)

	report := &Report{
		Name:       name,
		Info:       info,
		Faces:      faces,
		Masks:      masks,
		Minors:     mask.CountMinors(masks),
		Suppressed: len(faces) - len(masks),
	}
	a.config.Logger.Debug("image analyzed", "file", name, "faces", len(faces), "masked", len(masks))
	return report, nil
}
