// Package editor implements interactive mask editing for one processed image.
//
// A Session holds a private copy of the image's masks. Pointer and touch
// events move, resize, rotate, add and delete masks in that copy; nothing
// reaches the store until Commit.
package editor

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/menta2k/facemask/pkg/geometry"
	"github.com/menta2k/facemask/pkg/mask"
	"github.com/menta2k/facemask/pkg/render"
	"github.com/menta2k/facemask/pkg/session"
)

var (
	// ErrNoSuchImage is returned when the image to edit is not in the store
	ErrNoSuchImage = errors.New("no such image")
	// ErrClosed is returned for any use of a committed or cancelled session
	ErrClosed = errors.New("edit session is closed")
)

// Mode is the interaction state. Pinching and Rotating are set together.
type Mode uint8

const (
	ModeIdle       Mode = 0
	ModeAddPending Mode = 1 << (iota - 1)
	ModeDragging
	ModeResizing
	ModePinching
	ModeRotating
)

// Has reports whether every flag of f is set
func (m Mode) Has(f Mode) bool {
	return f != 0 && m&f == f
}

func (m Mode) String() string {
	if m == ModeIdle {
		return "idle"
	}
	var names []string
	for _, f := range []struct {
		flag Mode
		name string
	}{
		{ModeAddPending, "add-pending"},
		{ModeDragging, "dragging"},
		{ModeResizing, "resizing"},
		{ModePinching, "pinching"},
		{ModeRotating, "rotating"},
	} {
		if m.Has(f.flag) {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "+")
}

// Haptics gives tactile feedback. Implementations may do nothing.
type Haptics interface {
	Vibrate(d time.Duration)
}

// HapticsFunc adapts a function to the Haptics interface
type HapticsFunc func(d time.Duration)

func (f HapticsFunc) Vibrate(d time.Duration) { f(d) }

// Haptic pulse lengths
const (
	PulseStart = 10 * time.Millisecond
	PulseEnd   = 5 * time.Millisecond
)

// Recompositor renders masks over the original image of an entry
type Recompositor interface {
	Decode(entry *session.ProcessedImage) (image.Image, error)
	Recomposite(entry *session.ProcessedImage, masks []mask.Mask) (*session.ProcessedImage, error)
}

// Config holds editor configuration. Radii are in display pixels, sizes in
// source pixels.
type Config struct {
	// DisplayScale converts source pixels to display pixels
	DisplayScale float64
	MinSize      float64
	MaxSize      float64
	ManualSize   float64
	DeleteRadius float64
	ResizeRadius float64
	// Symbol and Kind are used for masks added by hand
	Symbol   string
	Kind     mask.Kind
	Haptics  Haptics
	Renderer *render.Renderer
	Logger   *slog.Logger
}

// DefaultConfig returns the editor defaults at display scale 1
func DefaultConfig() Config {
	return Config{
		DisplayScale: 1,
		MinSize:      mask.MinSize,
		MaxSize:      mask.MaxSize,
		ManualSize:   mask.ManualSize,
		DeleteRadius: 15,
		ResizeRadius: 12,
		Symbol:       mask.DefaultPolicy().Symbol,
		Kind:         mask.KindSymbol,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DisplayScale <= 0 {
		c.DisplayScale = d.DisplayScale
	}
	if c.MinSize <= 0 {
		c.MinSize = d.MinSize
	}
	if c.MaxSize <= 0 {
		c.MaxSize = d.MaxSize
	}
	if c.ManualSize <= 0 {
		c.ManualSize = d.ManualSize
	}
	if c.DeleteRadius <= 0 {
		c.DeleteRadius = d.DeleteRadius
	}
	if c.ResizeRadius <= 0 {
		c.ResizeRadius = d.ResizeRadius
	}
	if c.Symbol == "" {
		c.Symbol = d.Symbol
	}
	if c.Haptics == nil {
		c.Haptics = HapticsFunc(func(time.Duration) {})
	}
	if c.Renderer == nil {
		c.Renderer = render.New()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// gesture holds the state captured when a gesture starts
type gesture struct {
	dragOffset    geometry.Point
	startDistance float64
	startAngle    float64
	startSize     float64
	startRotation float64
	lastCenter    geometry.Point
}

// Session is the editing state of one image. It is not safe for concurrent
// use.
type Session struct {
	store    *session.Store
	renderer Recompositor
	config   Config

	entry    *session.ProcessedImage
	source   image.Image
	masks    []mask.Mask
	selected int
	mode     Mode
	g        gesture
	closed   bool
}

// Open starts editing the entry at index. The display scale is fixed for the
// lifetime of the session.
func Open(store *session.Store, index int, r Recompositor, config Config) (*Session, error) {
	entry, ok := store.At(index)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrNoSuchImage, index)
	}
	config = config.withDefaults()
	config.Logger.Debug("edit session opened", "file", entry.SourceName, "index", index, "masks", len(entry.Masks))

	return &Session{
		store:    store,
		renderer: r,
		config:   config,
		entry:    entry,
		masks:    mask.CloneAll(entry.Masks),
		selected: -1,
	}, nil
}

// EntryID returns the ID of the image being edited
func (s *Session) EntryID() string { return s.entry.ID }

// Masks returns a copy of the working masks
func (s *Session) Masks() []mask.Mask { return mask.CloneAll(s.masks) }

// Selected returns the selected mask index, or -1
func (s *Session) Selected() int { return s.selected }

// Mode returns the current interaction mode
func (s *Session) Mode() Mode { return s.mode }

// Scale returns the display scale
func (s *Session) Scale() float64 { return s.config.DisplayScale }

// Closed reports whether the session was committed or cancelled
func (s *Session) Closed() bool { return s.closed }

// Symbol returns the symbol used for new masks
func (s *Session) Symbol() string { return s.config.Symbol }

// Kind returns the mask kind used for new masks
func (s *Session) Kind() mask.Kind { return s.config.Kind }

// Commit writes the working masks to the store, re-renders the image from
// its original and closes the session. It returns the updated entry.
func (s *Session) Commit() (*session.ProcessedImage, error) {
	if s.closed {
		return nil, ErrClosed
	}

	var updated *session.ProcessedImage
	found, err := s.store.Update(s.entry.ID, func(p *session.ProcessedImage) error {
		out, err := s.renderer.Recomposite(p, s.masks)
		if err != nil {
			return err
		}
		*p = *out
		updated = out.Clone()
		return nil
	})
	if !found {
		s.closed = true
		return nil, fmt.Errorf("%w: %s", ErrNoSuchImage, s.entry.SourceName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to re-render %s: %w", s.entry.SourceName, err)
	}

	s.closed = true
	s.config.Logger.Debug("edit session committed", "file", s.entry.SourceName, "masked", updated.MaskedCount)
	return updated, nil
}

// Cancel discards all edits and closes the session
func (s *Session) Cancel() {
	s.closed = true
	s.masks = nil
	s.selected = -1
	s.mode = ModeIdle
}

// toSource converts a display point to source image coordinates
func (s *Session) toSource(p geometry.Point) geometry.Point {
	return p.Scale(1 / s.config.DisplayScale)
}
