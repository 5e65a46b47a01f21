package editor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/menta2k/facemask/pkg/geometry"
)

// Overlay colors
var (
	selectionColor = color.NRGBA{0x63, 0x66, 0xf1, 0xff}
	deleteColor    = color.NRGBA{0xef, 0x44, 0x44, 0xff}
	deleteMark     = color.NRGBA{0xff, 0xff, 0xff, 0xff}
)

const (
	selectionStroke = 2
	dashLength      = 5
	deleteDotRadius = 12
	resizeDotRadius = 8
)

// Preview renders the working scene at display scale: the masks composited
// over the original image plus the selection box, delete and resize
// affordances of the selected mask.
func (s *Session) Preview() (*image.NRGBA, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.source == nil {
		img, err := s.renderer.Decode(s.entry)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", s.entry.SourceName, err)
		}
		s.source = img
	}

	composited := s.config.Renderer.CompositeAll(s.source, s.masks)
	b := composited.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*s.config.DisplayScale)))
	h := max(1, int(math.Round(float64(b.Dy())*s.config.DisplayScale)))

	var preview *image.NRGBA
	if w == b.Dx() && h == b.Dy() {
		preview = imaging.Clone(composited)
	} else {
		preview = imaging.Resize(composited, w, h, imaging.Linear)
	}

	if m, ok := s.selectedMask(); ok {
		scale := s.config.DisplayScale
		c := m.Center.Scale(scale)
		half := m.Half() * scale
		drawDashedBox(preview, c.X-half, c.Y-half, c.X+half, c.Y+half, selectionColor, selectionStroke)

		tr := m.TopRight().Scale(scale)
		surface := s.config.Renderer.NewSurface(preview)
		surface.FillCircle(tr, deleteDotRadius, deleteColor)
		surface.FillCircle(m.BottomRight().Scale(scale), resizeDotRadius, selectionColor)
		preview = imaging.Clone(surface.Image())

		drawCross(preview, tr, deleteDotRadius/2, deleteMark)
	}
	return preview, nil
}

func drawDashedBox(img *image.NRGBA, fx0, fy0, fx1, fy1 float64, c color.NRGBA, stroke int) {
	x0, y0 := int(math.Round(fx0)), int(math.Round(fy0))
	x1, y1 := int(math.Round(fx1)), int(math.Round(fy1))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, c, dashLength)
		drawHLine(img, y1-1-s, x0, x1, c, dashLength)
		drawVLine(img, x0+s, y0, y1, c, dashLength)
		drawVLine(img, x1-1-s, y0, y1, c, dashLength)
	}
}

// drawHLine draws a horizontal line. A positive dash alternates dash long
// segments and gaps.
func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA, dash int) {
	b := img.Bounds()
	if y < b.Min.Y || y >= b.Max.Y {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	for x := max(x0, b.Min.X); x < min(x1, b.Max.X); x++ {
		if dash > 0 && ((x-x0)/dash)%2 == 1 {
			continue
		}
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA, dash int) {
	b := img.Bounds()
	if x < b.Min.X || x >= b.Max.X {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for y := max(y0, b.Min.Y); y < min(y1, b.Max.Y); y++ {
		if dash > 0 && ((y-y0)/dash)%2 == 1 {
			continue
		}
		img.SetNRGBA(x, y, c)
	}
}

func drawCross(img *image.NRGBA, center geometry.Point, arm float64, c color.NRGBA) {
	n := int(math.Round(arm))
	cx, cy := int(math.Round(center.X)), int(math.Round(center.Y))
	for i := -n; i <= n; i++ {
		for _, p := range []image.Point{{cx + i, cy + i}, {cx + i, cy - i}} {
			if p.In(img.Bounds()) {
				img.SetNRGBA(p.X, p.Y, c)
			}
		}
	}
}
