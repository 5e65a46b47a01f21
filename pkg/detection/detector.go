// Package detection locates faces in images. Detectors report pixel space
// boxes, optional eye landmarks and an age estimate per face.
package detection

import (
	"context"
	"errors"
	"image"

	"github.com/menta2k/facemask/pkg/types"
)

// ErrNotLoaded is returned by Detect before the detector has been loaded
var ErrNotLoaded = errors.New("detector not loaded")

// Detector finds faces in an image
type Detector interface {
	// Ready reports whether the detector can be invoked
	Ready() bool
	Detect(ctx context.Context, img image.Image, opts types.DetectOptions) ([]types.FaceDetection, error)
}

// Loader is implemented by detectors that need loading before first use
type Loader interface {
	Load(ctx context.Context) error
}

// Static always reports the same faces. It is always ready.
type Static []types.FaceDetection

func (s Static) Ready() bool { return true }

func (s Static) Detect(ctx context.Context, img image.Image, opts types.DetectOptions) ([]types.FaceDetection, error) {
	out := make([]types.FaceDetection, len(s))
	copy(out, s)
	return out, nil
}

// Func adapts a function to the Detector interface. It is always ready.
type Func func(ctx context.Context, img image.Image, opts types.DetectOptions) ([]types.FaceDetection, error)

func (f Func) Ready() bool { return true }

func (f Func) Detect(ctx context.Context, img image.Image, opts types.DetectOptions) ([]types.FaceDetection, error) {
	return f(ctx, img, opts)
}

// filterConfidence drops faces scoring below min
func filterConfidence(faces []types.FaceDetection, min float64) []types.FaceDetection {
	if min <= 0 {
		return faces
	}
	out := faces[:0]
	for _, f := range faces {
		if f.Confidence >= min {
			out = append(out, f)
		}
	}
	return out
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
