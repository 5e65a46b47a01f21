package detection

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/menta2k/facemask/pkg/client"
	"github.com/menta2k/facemask/pkg/geometry"
	"github.com/menta2k/facemask/pkg/processing"
	"github.com/menta2k/facemask/pkg/types"
)

// FacePrompt asks a vision model for every face with eye positions and age
const FacePrompt = `You are a face locator for a photo privacy tool.

Return JSON only:
{
  "faces": [
    {
      "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0},
      "left_eye": [{"x": 0.0, "y": 0.0}],
      "right_eye": [{"x": 0.0, "y": 0.0}],
      "age": 0,
      "confidence": 0.0
    }
  ]
}

HARD RULES
- Report EVERY human face, including small, partial, profile and background faces.
- All coordinates are normalized to [0,1] (NOT pixels), origin at the top-left.
- "box" tightly encloses the face from forehead to chin.
- "left_eye" is the eye on the LEFT side of the image, "right_eye" the one on the right. Omit them when not visible.
- "age" is your best estimate of the person's age in years.
- "confidence" is in [0,1].
- If there are no faces, return {"faces": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// VisionConfig configures a VisionDetector
type VisionConfig struct {
	Model string
	// Prompt overrides FacePrompt when set
	Prompt string
	// SendFormat is the encoding of the image sent to the model (jpg or png)
	SendFormat   string
	SendQuality  int
	NMSThreshold float64
	Logger       *slog.Logger
}

// VisionDetector detects faces by asking a vision model
type VisionDetector struct {
	client    client.VisionClient
	processor *processing.Processor
	config    VisionConfig
	ready     atomic.Bool
}

// NewVisionDetector creates a detector backed by a vision model client
func NewVisionDetector(c client.VisionClient, config VisionConfig) *VisionDetector {
	if config.Prompt == "" {
		config.Prompt = FacePrompt
	}
	if config.SendFormat == "" {
		config.SendFormat = "jpg"
	}
	if config.SendQuality <= 0 {
		config.SendQuality = 85
	}
	if config.NMSThreshold <= 0 {
		config.NMSThreshold = 0.4
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &VisionDetector{
		client:    c,
		processor: processing.NewProcessor(),
		config:    config,
	}
}

// Load checks that the backend answers and marks the detector ready
func (d *VisionDetector) Load(ctx context.Context) error {
	if err := d.client.Ping(ctx); err != nil {
		return fmt.Errorf("vision backend unavailable: %w", err)
	}
	d.ready.Store(true)
	d.config.Logger.Debug("vision detector ready", "model", d.config.Model)
	return nil
}

// Ready reports whether Load succeeded
func (d *VisionDetector) Ready() bool {
	return d.ready.Load()
}

// Detect returns the faces in img in pixel coordinates
func (d *VisionDetector) Detect(ctx context.Context, img image.Image, opts types.DetectOptions) ([]types.FaceDetection, error) {
	if !d.Ready() {
		return nil, ErrNotLoaded
	}

	imgB64, err := d.processor.PrepareImageForModel(img, d.config.SendFormat, opts.InputSize, d.config.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image for model: %w", err)
	}

	analysis, err := d.client.DetectFaces(ctx, d.config.Model, d.config.Prompt, imgB64)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	b := img.Bounds()
	sentW, sentH := sentSize(b.Dx(), b.Dy(), opts.InputSize)
	faces := make([]types.FaceDetection, 0, len(analysis.Faces))
	for _, mf := range analysis.Faces {
		if f, ok := toPixelSpace(mf, b, sentW, sentH); ok {
			faces = append(faces, f)
		}
	}

	before := len(faces)
	faces = filterConfidence(faces, opts.MinConfidence)
	if dropped := before - len(faces); dropped > 0 {
		d.config.Logger.Warn("faces dropped below confidence floor", "dropped", dropped, "min_confidence", opts.MinConfidence)
	}
	faces = NMS(faces, d.config.NMSThreshold)
	d.config.Logger.Debug("vision detection", "reported", len(analysis.Faces), "faces", len(faces))
	return faces, nil
}

// sentSize returns the dimensions of the image actually sent to the model
func sentSize(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}

// toPixelSpace converts a model face to image pixel coordinates. Models are
// asked for normalized coordinates; a box with values above 1 is taken to be
// in pixels of the image that was sent.
func toPixelSpace(mf types.ModelFace, bounds image.Rectangle, sentW, sentH int) (types.FaceDetection, bool) {
	sx, sy := 1.0, 1.0
	if mf.Box.X > 1 || mf.Box.Y > 1 || mf.Box.Width > 1 || mf.Box.Height > 1 {
		sx, sy = 1/float64(sentW), 1/float64(sentH)
	}
	norm := func(p geometry.Point) geometry.Point {
		return geometry.Point{
			X: clamp(p.X*sx, 0, 1),
			Y: clamp(p.Y*sy, 0, 1),
		}
	}

	x := clamp(mf.Box.X*sx, 0, 1)
	y := clamp(mf.Box.Y*sy, 0, 1)
	w := clamp(mf.Box.Width*sx, 0, 1-x)
	h := clamp(mf.Box.Height*sy, 0, 1-y)
	if w <= 0 || h <= 0 {
		return types.FaceDetection{}, false
	}

	W, H := float64(bounds.Dx()), float64(bounds.Dy())
	toPixel := func(p geometry.Point) geometry.Point {
		p = norm(p)
		return geometry.Point{X: float64(bounds.Min.X) + p.X*W, Y: float64(bounds.Min.Y) + p.Y*H}
	}

	det := types.FaceDetection{
		Box: types.Box{
			X:      float64(bounds.Min.X) + x*W,
			Y:      float64(bounds.Min.Y) + y*H,
			Width:  w * W,
			Height: h * H,
		},
		Age: mf.Age,
		// Unscored faces pass any confidence floor
		Confidence: 1,
	}
	if mf.Confidence != nil {
		det.Confidence = *mf.Confidence
	}

	if len(mf.LeftEye) > 0 && len(mf.RightEye) > 0 {
		lm := &types.Landmarks{}
		for _, p := range mf.LeftEye {
			lm.LeftEye = append(lm.LeftEye, toPixel(p))
		}
		for _, p := range mf.RightEye {
			lm.RightEye = append(lm.RightEye, toPixel(p))
		}
		det.Landmarks = lm
	}
	return det, true
}
