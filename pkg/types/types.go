package types

import "github.com/menta2k/facemask/pkg/geometry"

// Box represents a bounding box. Detector results use pixel coordinates;
// vision-model responses use coordinates normalized to the [0,1] range.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
}

// Center returns the center point of the box
func (b Box) Center() geometry.Point {
	return geometry.Point{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Landmarks holds the eye outlines reported by the detector. Each eye may be
// described by any number of points; only their centroids are used.
type Landmarks struct {
	LeftEye  []geometry.Point `json:"left_eye"`
	RightEye []geometry.Point `json:"right_eye"`
}

// FaceDetection is one face reported by a detector
type FaceDetection struct {
	Box        Box        `json:"box"`
	Landmarks  *Landmarks `json:"landmarks,omitempty"`
	Age        float64    `json:"age"`
	Confidence float64    `json:"confidence"`
}

// DetectOptions are passed to every detector invocation
type DetectOptions struct {
	MinConfidence float64
	InputSize     int
}

// ModelFace is one face as returned by a vision model, in normalized coordinates
type ModelFace struct {
	Box        Box              `json:"box"`
	LeftEye    []geometry.Point `json:"left_eye"`
	RightEye   []geometry.Point `json:"right_eye"`
	Age        float64          `json:"age"`
	// Confidence is nil when the model left the score out
	Confidence *float64 `json:"confidence,omitempty"`
}

// Score returns a model confidence value for ModelFace.Confidence
func Score(c float64) *float64 {
	return &c
}

// FaceAnalysis contains the complete face analysis returned by the vision model
type FaceAnalysis struct {
	Faces []ModelFace `json:"faces"`
}
