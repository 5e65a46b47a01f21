package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

var (
	goRegularOnce sync.Once
	goRegular     *opentype.Font
	goRegularErr  error
)

func defaultFont() (*opentype.Font, error) {
	goRegularOnce.Do(func() {
		goRegular, goRegularErr = opentype.Parse(goregular.TTF)
	})
	return goRegular, goRegularErr
}

// Fonts is an ordered list of fonts used to draw symbol glyphs. The first
// font that has every glyph of a symbol wins.
type Fonts struct {
	fonts []*opentype.Font
}

// DefaultFonts returns a font list holding only Go Regular
func DefaultFonts() *Fonts {
	f, err := defaultFont()
	if err != nil {
		return &Fonts{}
	}
	return &Fonts{fonts: []*opentype.Font{f}}
}

// LoadFonts parses the given font files, in order, and appends Go Regular
// as a last resort.
func LoadFonts(paths ...string) (*Fonts, error) {
	fs := &Fonts{}
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
		}
		fs.fonts = append(fs.fonts, f)
	}
	if f, err := defaultFont(); err == nil {
		fs.fonts = append(fs.fonts, f)
	}
	return fs, nil
}

// pick returns the first font covering every visible rune of text
func (fs *Fonts) pick(text string) *opentype.Font {
	if fs == nil {
		return nil
	}
	var buf sfnt.Buffer
	for _, f := range fs.fonts {
		if covers(f, &buf, text) {
			return f
		}
	}
	return nil
}

func covers(f *opentype.Font, buf *sfnt.Buffer, text string) bool {
	seen := false
	for _, r := range text {
		if isInvisible(r) {
			continue
		}
		idx, err := f.GlyphIndex(buf, r)
		if err != nil || idx == 0 {
			return false
		}
		seen = true
	}
	return seen
}

// isInvisible reports runes that only modify neighbouring glyphs
func isInvisible(r rune) bool {
	switch {
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // variation selectors
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	}
	return false
}

// rasterizeGlyph draws text at the given font size into a tightly cropped
// image. It returns nil when the text has no visible ink.
func rasterizeGlyph(f *opentype.Font, text string, size float64, col color.Color) (*image.RGBA, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	b, _ := font.BoundString(face, text)
	w := (b.Max.X - b.Min.X).Ceil()
	h := (b.Max.Y - b.Min.Y).Ceil()
	if w <= 0 || h <= 0 {
		return nil, nil
	}

	glyph := image.NewRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  glyph,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: -b.Min.X, Y: -b.Min.Y},
	}
	d.DrawString(text)
	return glyph, nil
}

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa"
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color: %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color: %q", s)
	}
	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

func fontSize(size float64) float64 {
	return math.Max(1, size)
}

// maxGlyphRaster bounds the font size a glyph is rasterized at
const maxGlyphRaster = 4096.0

// glyphRaster returns the font size to rasterize a glyph of the given size
// at and the local scale that maps the raster back to size. The raster
// matches device resolution but never exceeds twice the longest side of the
// surface bounds.
func glyphRaster(size, deviceScale float64, bounds image.Rectangle) (raster, scale float64) {
	limit := math.Min(maxGlyphRaster, 2*float64(max(bounds.Dx(), bounds.Dy())))
	raster = math.Max(1, math.Min(size*deviceScale, limit))
	return raster, size / raster
}
