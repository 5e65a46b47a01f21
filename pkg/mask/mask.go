// Package mask defines a privacy mask and how one is derived from a face
// detection under the current masking policy.
package mask

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/menta2k/facemask/pkg/geometry"
	"github.com/menta2k/facemask/pkg/types"
)

// Size limits applied by interactive resizing
const (
	MinSize    = 30.0
	MaxSize    = 500.0
	ManualSize = 80.0
)

// Kind selects the compositing algorithm used for a mask
type Kind int

const (
	KindSymbol Kind = iota
	KindPixelate
	KindBlur
)

// String returns the config/CLI name of the kind
func (k Kind) String() string {
	switch k {
	case KindSymbol:
		return "symbol"
	case KindPixelate:
		return "pixelate"
	case KindBlur:
		return "blur"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses a kind name. "emoji" and "mosaic" are accepted as aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "symbol", "emoji", "":
		return KindSymbol, nil
	case "pixelate", "mosaic":
		return KindPixelate, nil
	case "blur":
		return KindBlur, nil
	default:
		return KindSymbol, fmt.Errorf("unknown mask kind: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Mask is one privacy overlay, in source image pixel coordinates
type Mask struct {
	ID             string         `json:"id"`
	Center         geometry.Point `json:"center"`
	Size           float64        `json:"size"`
	BoundingWidth  float64        `json:"bounding_width,omitempty"`
	BoundingHeight float64        `json:"bounding_height,omitempty"`
	Rotation       float64        `json:"rotation"`
	Symbol         string         `json:"symbol"`
	Kind           Kind           `json:"kind"`
	IsMinor        bool           `json:"is_minor"`
	EstimatedAge   int            `json:"estimated_age"`
}

// Policy controls which detections become masks and how they look
type Policy struct {
	Symbol       string
	SizePercent  int
	Kind         Kind
	ChildOnly    bool
	AgeThreshold int
}

// DefaultPolicy returns the policy used when nothing is configured
func DefaultPolicy() Policy {
	return Policy{
		Symbol:       "😊",
		SizePercent:  110,
		Kind:         KindSymbol,
		ChildOnly:    false,
		AgeThreshold: 12,
	}
}

// NewID returns a fresh mask identifier
func NewID() string {
	return "mask_" + uuid.NewString()
}

// FromDetection derives a mask from one detector result. ok is false when the
// policy suppresses the face (child-only mode and age above the threshold).
func FromDetection(det types.FaceDetection, p Policy) (Mask, bool) {
	age := int(math.Round(det.Age))
	isMinor := age <= p.AgeThreshold
	if p.ChildOnly && !isMinor {
		return Mask{}, false
	}

	return Mask{
		ID:             NewID(),
		Center:         det.Box.Center(),
		Size:           math.Max(det.Box.Width, det.Box.Height) * float64(p.SizePercent) / 100,
		BoundingWidth:  det.Box.Width,
		BoundingHeight: det.Box.Height,
		Rotation:       RotationFromLandmarks(det.Landmarks),
		Symbol:         p.Symbol,
		Kind:           p.Kind,
		IsMinor:        isMinor,
		EstimatedAge:   age,
	}, true
}

// FromDetections derives masks for every eligible detection, in detector order
func FromDetections(dets []types.FaceDetection, p Policy) []Mask {
	masks := make([]Mask, 0, len(dets))
	for _, det := range dets {
		if m, ok := FromDetection(det, p); ok {
			masks = append(masks, m)
		}
	}
	return masks
}

// RotationFromLandmarks returns the angle of the vector from the left eye
// centroid to the right eye centroid, or 0 without usable landmarks.
func RotationFromLandmarks(lm *types.Landmarks) float64 {
	if lm == nil {
		return 0
	}
	left, okL := geometry.Centroid(lm.LeftEye)
	right, okR := geometry.Centroid(lm.RightEye)
	if !okL || !okR {
		return 0
	}
	return geometry.Angle(left, right)
}

// NewManual returns a mask placed by hand. No detector informed it, so it is
// treated as a minor with unknown age.
func NewManual(center geometry.Point, symbol string, kind Kind) Mask {
	return Mask{
		ID:      NewID(),
		Center:  center,
		Size:    ManualSize,
		Symbol:  symbol,
		Kind:    kind,
		IsMinor: true,
	}
}

// Half returns half the mask size
func (m Mask) Half() float64 {
	return m.Size / 2
}

// Contains reports whether p is inside the mask's axis-aligned box.
// Rotation is ignored.
func (m Mask) Contains(p geometry.Point) bool {
	return geometry.PointInRect(p, m.Center, m.Size, m.Size)
}

// TopRight returns the unrotated top-right corner of the mask box
func (m Mask) TopRight() geometry.Point {
	return geometry.Point{X: m.Center.X + m.Half(), Y: m.Center.Y - m.Half()}
}

// BottomRight returns the unrotated bottom-right corner of the mask box
func (m Mask) BottomRight() geometry.Point {
	return geometry.Point{X: m.Center.X + m.Half(), Y: m.Center.Y + m.Half()}
}

// Valid reports whether the mask satisfies its invariants
func (m Mask) Valid() bool {
	return m.Size > 0 && m.Center.IsFinite()
}

// CloneAll returns a copy of masks that shares no memory with the input
func CloneAll(masks []Mask) []Mask {
	if masks == nil {
		return nil
	}
	out := make([]Mask, len(masks))
	copy(out, masks)
	return out
}

// ClampSize limits size to [lo, hi]. A non-positive hi means no ceiling.
func ClampSize(size, lo, hi float64) float64 {
	if size < lo {
		return lo
	}
	if hi > 0 && size > hi {
		return hi
	}
	return size
}

// CountMinors returns how many masks are classified as minors
func CountMinors(masks []Mask) int {
	n := 0
	for _, m := range masks {
		if m.IsMinor {
			n++
		}
	}
	return n
}
