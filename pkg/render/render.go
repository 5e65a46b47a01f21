// Package render paints privacy masks onto images.
//
// Every mask is drawn in a local frame translated to the mask center and
// rotated by the mask rotation. Three algorithms are supported:
//
//   - Symbol: the mask glyph at font size equal to the mask size
//   - Pixelate: flat blocks sampled from the source, clipped to a circle
//   - Blur: the source region downsampled to 10% and scaled back, clipped
//     to the same circle
//
// Compositing reads only from the source image passed in and writes only to
// the surface passed in.
package render

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"

	"github.com/menta2k/facemask/pkg/geometry"
	"github.com/menta2k/facemask/pkg/mask"
)

const (
	minBlockSize = 8
	blurScale    = 0.1
)

// Config holds renderer configuration
type Config struct {
	Fonts       *Fonts
	SymbolColor color.Color
	Surface     SurfaceOptions
}

// Renderer composites masks onto surfaces
type Renderer struct {
	config Config
}

// New creates a Renderer with Go Regular and a black symbol color
func New() *Renderer {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a Renderer with custom configuration
func NewWithConfig(config Config) *Renderer {
	if config.Fonts == nil {
		config.Fonts = DefaultFonts()
	}
	if config.SymbolColor == nil {
		config.SymbolColor = color.Black
	}
	return &Renderer{config: config}
}

// NewSurface creates a surface holding a copy of src using the renderer's
// surface options
func (r *Renderer) NewSurface(src image.Image) *Surface {
	return NewSurfaceFrom(src, r.config.Surface)
}

// CompositeAll copies src and paints every mask onto the copy in order
func (r *Renderer) CompositeAll(src image.Image, masks []mask.Mask) *image.RGBA {
	s := r.NewSurface(src)
	for _, m := range masks {
		r.Composite(s, src, m)
	}
	return s.Image()
}

// Composite paints one mask onto s, sampling from src
func (r *Renderer) Composite(s *Surface, src image.Image, m mask.Mask) {
	if !m.Valid() {
		return
	}

	s.Push()
	defer s.Pop()
	s.Translate(m.Center.X, m.Center.Y)
	s.Rotate(m.Rotation)

	switch m.Kind {
	case mask.KindPixelate:
		r.drawPixelate(s, src, m)
	case mask.KindBlur:
		r.drawBlur(s, src, m)
	default:
		r.drawSymbol(s, m)
	}
}

func (r *Renderer) drawSymbol(s *Surface, m mask.Mask) {
	f := r.config.Fonts.pick(m.Symbol)
	if f != nil {
		raster, scale := glyphRaster(fontSize(m.Size), s.DeviceScale(), s.Image().Bounds())
		glyph, err := rasterizeGlyph(f, m.Symbol, raster, r.config.SymbolColor)
		if err == nil && glyph != nil {
			b := glyph.Bounds()
			at := geometry.Point{X: -float64(b.Dx()) / 2, Y: -float64(b.Dy()) / 2}
			s.Push()
			s.Scale(scale, scale)
			s.DrawImage(glyph, b, at, nil, nil)
			s.Pop()
			return
		}
	}
	// No font can draw the symbol; cover the face with a disc instead
	s.FillCircle(geometry.Point{}, m.Half(), r.config.SymbolColor)
}

func (r *Renderer) drawPixelate(s *Surface, src image.Image, m mask.Mask) {
	region, offset := sampleRegion(src.Bounds(), m)
	if region.Empty() {
		return
	}

	bs := BlockSize(m.Size)
	blocks := sampleBlocks(src, region, bs)
	clip := s.CircleClip(geometry.Point{}, m.Half())

	s.Push()
	defer s.Pop()
	s.Translate(offset.X, offset.Y)
	s.Scale(float64(bs), float64(bs))
	s.DrawImage(blocks, blocks.Bounds(), geometry.Point{}, xdraw.NearestNeighbor, clip)
}

func (r *Renderer) drawBlur(s *Surface, src image.Image, m mask.Mask) {
	region, offset := sampleRegion(src.Bounds(), m)
	if region.Empty() {
		return
	}

	blurred := blurRegion(src, region)
	clip := s.CircleClip(geometry.Point{}, m.Half())
	s.DrawImage(blurred, blurred.Bounds(), offset, nil, clip)
}

// BlockSize returns the pixelation block edge for a mask of the given size
func BlockSize(size float64) int {
	bs := int(math.Floor(size / 8))
	if bs < minBlockSize {
		return minBlockSize
	}
	return bs
}

// sampleRegion returns the axis-aligned source region covered by the mask,
// clamped to bounds, and the offset of its top-left corner from the mask
// center.
func sampleRegion(bounds image.Rectangle, m mask.Mask) (image.Rectangle, geometry.Point) {
	half := m.Half()
	region := image.Rect(
		int(math.Floor(m.Center.X-half)), int(math.Floor(m.Center.Y-half)),
		int(math.Ceil(m.Center.X+half)), int(math.Ceil(m.Center.Y+half)),
	).Intersect(bounds)

	offset := geometry.Point{
		X: float64(region.Min.X) - m.Center.X,
		Y: float64(region.Min.Y) - m.Center.Y,
	}
	return region, offset
}

// sampleBlocks returns one pixel per block: the top-left pixel of each bs x bs
// block of region. Painted at scale bs with nearest neighbor it yields the
// pixelated region.
func sampleBlocks(src image.Image, region image.Rectangle, bs int) *image.NRGBA {
	nx := (region.Dx() + bs - 1) / bs
	ny := (region.Dy() + bs - 1) / bs
	blocks := image.NewNRGBA(image.Rect(0, 0, nx, ny))
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			c := color.NRGBAModel.Convert(src.At(region.Min.X+i*bs, region.Min.Y+j*bs)).(color.NRGBA)
			c.A = 0xff
			blocks.SetNRGBA(i, j, c)
		}
	}
	return blocks
}

// blurRegion blurs region by resampling it down to 10% and back up
func blurRegion(src image.Image, region image.Rectangle) *image.NRGBA {
	w, h := region.Dx(), region.Dy()
	sw := int(math.Max(1, math.Round(float64(w)*blurScale)))
	sh := int(math.Max(1, math.Round(float64(h)*blurScale)))

	crop := imaging.Crop(src, region)
	small := imaging.Resize(crop, sw, sh, imaging.Box)
	return imaging.Resize(small, w, h, imaging.Linear)
}
