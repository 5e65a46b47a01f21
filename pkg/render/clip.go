package render

import (
	"image"
	"image/color"
	"math"

	"github.com/menta2k/facemask/pkg/geometry"
)

// Clip is a circular destination mask in surface coordinates. A pixel is
// inside when its center lies strictly within the radius.
type Clip struct {
	center geometry.Point
	radius float64
	bounds image.Rectangle
}

func newCircleClip(c geometry.Point, r float64) *Clip {
	return &Clip{
		center: c,
		radius: r,
		bounds: image.Rect(
			int(math.Floor(c.X-r)), int(math.Floor(c.Y-r)),
			int(math.Ceil(c.X+r)), int(math.Ceil(c.Y+r)),
		),
	}
}

// Contains reports whether pixel (x, y) is inside the clip
func (c *Clip) Contains(x, y int) bool {
	p := geometry.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
	return geometry.PointInCircle(p, c.center, c.radius)
}

func (c *Clip) ColorModel() color.Model {
	return color.AlphaModel
}

func (c *Clip) Bounds() image.Rectangle {
	return c.bounds
}

func (c *Clip) At(x, y int) color.Color {
	if c.Contains(x, y) {
		return color.Alpha{A: 0xff}
	}
	return color.Alpha{}
}
