package mask

import (
	"math"
	"strings"
	"testing"

	"github.com/menta2k/facemask/pkg/geometry"
	"github.com/menta2k/facemask/pkg/types"
)

func detection(x, y, w, h, age float64) types.FaceDetection {
	return types.FaceDetection{
		Box: types.Box{X: x, Y: y, Width: w, Height: h},
		Age: age,
	}
}

func TestFromDetection(t *testing.T) {
	p := DefaultPolicy()
	p.SizePercent = 150

	m, ok := FromDetection(detection(100, 200, 40, 60, 30), p)
	if !ok {
		t.Fatal("Expected a mask when child-only mode is off")
	}

	if m.Center != geometry.Pt(120, 230) {
		t.Errorf("Expected center (120,230), got %v", m.Center)
	}
	if m.Size != 90 {
		t.Errorf("Expected size 90, got %f", m.Size)
	}
	if m.BoundingWidth != 40 || m.BoundingHeight != 60 {
		t.Errorf("Expected bounding 40x60, got %fx%f", m.BoundingWidth, m.BoundingHeight)
	}
	if m.IsMinor {
		t.Error("Age 30 should not be classified as minor")
	}
	if m.Rotation != 0 {
		t.Errorf("Expected rotation 0 without landmarks, got %f", m.Rotation)
	}
	if !strings.HasPrefix(m.ID, "mask_") {
		t.Errorf("Unexpected id %q", m.ID)
	}
}

func TestFromDetectionsWithoutChildOnly(t *testing.T) {
	dets := []types.FaceDetection{
		detection(0, 0, 10, 10, 5),
		detection(0, 0, 10, 10, 40),
		detection(0, 0, 10, 10, 80),
	}

	masks := FromDetections(dets, DefaultPolicy())
	if len(masks) != len(dets) {
		t.Errorf("Expected %d masks, got %d", len(dets), len(masks))
	}
	if CountMinors(masks) != 1 {
		t.Errorf("Expected 1 minor, got %d", CountMinors(masks))
	}
}

func TestChildOnlyThresholdIsInclusive(t *testing.T) {
	p := DefaultPolicy()
	p.ChildOnly = true
	p.AgeThreshold = 12

	m, ok := FromDetection(detection(0, 0, 10, 10, 12), p)
	if !ok {
		t.Fatal("Age equal to threshold should yield a mask")
	}
	if !m.IsMinor {
		t.Error("Age equal to threshold should be minor")
	}

	if _, ok := FromDetection(detection(0, 0, 10, 10, 13), p); ok {
		t.Error("Age above threshold should be suppressed in child-only mode")
	}
}

func TestRotationFromLandmarks(t *testing.T) {
	horizontal := &types.Landmarks{
		LeftEye:  []geometry.Point{{X: 9, Y: 10}, {X: 11, Y: 10}},
		RightEye: []geometry.Point{{X: 19, Y: 10}, {X: 21, Y: 10}},
	}
	if r := RotationFromLandmarks(horizontal); math.Abs(r) > 1e-9 {
		t.Errorf("Expected rotation 0 for horizontal eyes, got %f", r)
	}

	tilted := &types.Landmarks{
		LeftEye:  []geometry.Point{{X: 10, Y: 10}},
		RightEye: []geometry.Point{{X: 20, Y: 20}},
	}
	if r := RotationFromLandmarks(tilted); math.Abs(r-math.Pi/4) > 1e-9 {
		t.Errorf("Expected rotation pi/4, got %f", r)
	}

	missing := &types.Landmarks{LeftEye: []geometry.Point{{X: 10, Y: 10}}}
	if r := RotationFromLandmarks(missing); r != 0 {
		t.Errorf("Expected rotation 0 with one eye missing, got %f", r)
	}
}

func TestNewManual(t *testing.T) {
	m := NewManual(geometry.Pt(5, 6), "🐱", KindBlur)
	if m.Size != ManualSize || m.Rotation != 0 || !m.IsMinor || m.EstimatedAge != 0 {
		t.Errorf("Unexpected manual defaults: %+v", m)
	}
	if m.Kind != KindBlur || m.Symbol != "🐱" {
		t.Errorf("Expected kind and symbol to be kept, got %v %q", m.Kind, m.Symbol)
	}
}

func TestContainsIgnoresRotation(t *testing.T) {
	m := Mask{Center: geometry.Pt(50, 50), Size: 20, Rotation: math.Pi / 4}
	if !m.Contains(geometry.Pt(59, 59)) {
		t.Error("Expected box corner region to be hit regardless of rotation")
	}
	if m.Contains(geometry.Pt(61, 50)) {
		t.Error("Expected point outside the box to miss")
	}
}

func TestCloneAll(t *testing.T) {
	orig := []Mask{{ID: "a", Size: 10}, {ID: "b", Size: 20}}
	cp := CloneAll(orig)
	cp[0].Size = 99
	if orig[0].Size != 10 {
		t.Error("CloneAll should not alias the input")
	}
}

func TestClampSize(t *testing.T) {
	if s := ClampSize(10, MinSize, MaxSize); s != MinSize {
		t.Errorf("Expected %f, got %f", MinSize, s)
	}
	if s := ClampSize(900, MinSize, MaxSize); s != MaxSize {
		t.Errorf("Expected %f, got %f", MaxSize, s)
	}
	if s := ClampSize(900, MinSize, 0); s != 900 {
		t.Errorf("Expected no ceiling, got %f", s)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{"emoji": KindSymbol, "mosaic": KindPixelate, "Blur": KindBlur, "pixelate": KindPixelate}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseKind("sparkles"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}
