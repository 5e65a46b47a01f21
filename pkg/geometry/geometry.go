// Package geometry provides the small amount of 2D math used by mask
// placement and gesture handling: distances, angles, centers and hit tests.
package geometry

import "math"

// Point represents a 2D point in floating point pixel coordinates
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{x, y}
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p multiplied by k on both axes
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// IsFinite reports whether both coordinates are finite numbers
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Distance returns the euclidean distance between a and b
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Angle returns the angle in radians of the vector from a to b
func Angle(a, b Point) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// Midpoint returns the point halfway between a and b
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Centroid returns the mean of the given points. ok is false for an empty set.
func Centroid(pts []Point) (c Point, ok bool) {
	if len(pts) == 0 {
		return Point{}, false
	}
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(pts))
	return Point{X: c.X / n, Y: c.Y / n}, true
}

// PointInCircle reports whether p lies strictly inside the circle (c, r)
func PointInCircle(p, c Point, r float64) bool {
	return Distance(p, c) < r
}

// PointInRect reports whether p lies inside the axis-aligned rectangle of
// size w x h centered at center. Edges count as inside.
func PointInRect(p, center Point, w, h float64) bool {
	hw, hh := w/2, h/2
	return p.X >= center.X-hw && p.X <= center.X+hw &&
		p.Y >= center.Y-hh && p.Y <= center.Y+hh
}

// PointInRotatedRect reports whether p lies inside the w x h rectangle
// centered at center and rotated by theta radians around it.
func PointInRotatedRect(p, center Point, w, h, theta float64) bool {
	d := p.Sub(center)
	sin, cos := math.Sincos(-theta)
	local := Point{X: d.X*cos - d.Y*sin, Y: d.X*sin + d.Y*cos}
	return PointInRect(local, Point{}, w, h)
}

// TouchDistance returns the distance between the first two touch points
func TouchDistance(touches []Point) float64 {
	if len(touches) < 2 {
		return 0
	}
	return Distance(touches[0], touches[1])
}

// TouchAngle returns the angle from the first to the second touch point
func TouchAngle(touches []Point) float64 {
	if len(touches) < 2 {
		return 0
	}
	return Angle(touches[0], touches[1])
}

// TouchCenter returns the midpoint between the first two touch points
func TouchCenter(touches []Point) Point {
	if len(touches) < 2 {
		if len(touches) == 1 {
			return touches[0]
		}
		return Point{}
	}
	return Midpoint(touches[0], touches[1])
}
