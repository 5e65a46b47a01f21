package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/menta2k/facemask/pkg/geometry"
)

// SurfaceOptions is passed explicitly to every surface a renderer creates
type SurfaceOptions struct {
	// Interpolator used for smooth painting (symbols, blur). Nil means
	// ApproxBiLinear. Pixelation always uses nearest neighbor.
	Interpolator xdraw.Interpolator
}

func (o SurfaceOptions) interpolator() xdraw.Interpolator {
	if o.Interpolator == nil {
		return xdraw.ApproxBiLinear
	}
	return o.Interpolator
}

var identity = f64.Aff3{1, 0, 0, 0, 1, 0}

// Surface is a paintable RGBA image with an explicit transform stack.
// Painting operations interpret coordinates in the current local frame.
type Surface struct {
	img   *image.RGBA
	opts  SurfaceOptions
	ctm   f64.Aff3
	stack []f64.Aff3
}

// NewSurface creates a blank surface covering r
func NewSurface(r image.Rectangle, opts SurfaceOptions) *Surface {
	return &Surface{
		img:  image.NewRGBA(r),
		opts: opts,
		ctm:  identity,
	}
}

// NewSurfaceFrom creates a surface holding a copy of src
func NewSurfaceFrom(src image.Image, opts SurfaceOptions) *Surface {
	s := NewSurface(src.Bounds(), opts)
	draw.Draw(s.img, s.img.Bounds(), src, src.Bounds().Min, draw.Src)
	return s
}

// Image returns the backing image
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// Options returns the options the surface was created with
func (s *Surface) Options() SurfaceOptions {
	return s.opts
}

// Push saves the current transform
func (s *Surface) Push() {
	s.stack = append(s.stack, s.ctm)
}

// Pop restores the transform saved by the matching Push
func (s *Surface) Pop() {
	if len(s.stack) == 0 {
		s.ctm = identity
		return
	}
	s.ctm = s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
}

// Depth returns the number of saved transforms
func (s *Surface) Depth() int {
	return len(s.stack)
}

// Transform returns the current local-to-surface transform
func (s *Surface) Transform() f64.Aff3 {
	return s.ctm
}

// Translate moves the local origin by (tx, ty)
func (s *Surface) Translate(tx, ty float64) {
	s.ctm = mul(s.ctm, f64.Aff3{1, 0, tx, 0, 1, ty})
}

// Rotate rotates the local frame by theta radians
func (s *Surface) Rotate(theta float64) {
	sin, cos := math.Sincos(theta)
	s.ctm = mul(s.ctm, f64.Aff3{cos, -sin, 0, sin, cos, 0})
}

// Scale scales the local frame
func (s *Surface) Scale(sx, sy float64) {
	s.ctm = mul(s.ctm, f64.Aff3{sx, 0, 0, 0, sy, 0})
}

// Apply maps a local point to surface coordinates
func (s *Surface) Apply(p geometry.Point) geometry.Point {
	m := s.ctm
	return geometry.Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

// CircleClip returns a clip for the circle of radius r around the local
// point c, resolved against the current transform.
func (s *Surface) CircleClip(c geometry.Point, r float64) *Clip {
	return newCircleClip(s.Apply(c), r*s.DeviceScale())
}

// DeviceScale returns the surface pixels per local unit of the current
// transform
func (s *Surface) DeviceScale() float64 {
	return math.Hypot(s.ctm[0], s.ctm[3])
}

// DrawImage paints the sr part of src with its top-left corner at the local
// point at. Pixels outside clip are left untouched when clip is non-nil.
func (s *Surface) DrawImage(src image.Image, sr image.Rectangle, at geometry.Point, interp xdraw.Interpolator, clip *Clip) {
	if sr.Empty() {
		return
	}
	if interp == nil {
		interp = s.opts.interpolator()
	}
	s2d := mul(s.ctm, f64.Aff3{1, 0, at.X - float64(sr.Min.X), 0, 1, at.Y - float64(sr.Min.Y)})

	var opts *xdraw.Options
	if clip != nil {
		opts = &xdraw.Options{DstMask: clip}
	}
	interp.Transform(s.img, s2d, src, sr, xdraw.Over, opts)
}

// FillCircle paints a solid disc of radius r around the local point c
func (s *Surface) FillCircle(c geometry.Point, r float64, col color.Color) {
	if r <= 0 {
		return
	}
	clip := s.CircleClip(c, r)
	side := int(math.Ceil(2 * r))
	at := geometry.Point{X: c.X - r, Y: c.Y - r}
	s.DrawImage(image.NewUniform(col), image.Rect(0, 0, side, side), at, xdraw.NearestNeighbor, clip)
}

// mul returns the transform a∘b (apply b first, then a)
func mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}
