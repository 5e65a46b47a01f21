package editor

import (
	"fmt"

	"github.com/menta2k/facemask/pkg/geometry"
	"github.com/menta2k/facemask/pkg/mask"
)

// EventKind identifies an editor input
type EventKind int

const (
	EventPointerDown EventKind = iota
	EventPointerMove
	EventPointerUp
	EventPointerLeave
	EventTouchStart
	EventTouchMove
	EventTouchEnd
	EventToggleAdd
	EventSelectSymbol
	EventSelectKind
	EventDeleteSelected
)

var eventNames = map[EventKind]string{
	EventPointerDown:    "pointer-down",
	EventPointerMove:    "pointer-move",
	EventPointerUp:      "pointer-up",
	EventPointerLeave:   "pointer-leave",
	EventTouchStart:     "touch-start",
	EventTouchMove:      "touch-move",
	EventTouchEnd:       "touch-end",
	EventToggleAdd:      "toggle-add",
	EventSelectSymbol:   "select-symbol",
	EventSelectKind:     "select-kind",
	EventDeleteSelected: "delete-selected",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// ParseEventKind parses an event name as returned by String
func ParseEventKind(s string) (EventKind, error) {
	for k, name := range eventNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *EventKind) UnmarshalText(b []byte) error {
	parsed, err := ParseEventKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event is one editor input. Point and Touches are in display pixels.
// Touches lists the touch points still active after the event.
type Event struct {
	Kind     EventKind        `json:"kind" yaml:"kind"`
	Point    geometry.Point   `json:"point" yaml:"point"`
	Touches  []geometry.Point `json:"touches,omitempty" yaml:"touches,omitempty"`
	Symbol   string           `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	MaskKind mask.Kind        `json:"mask_kind,omitempty" yaml:"mask_kind,omitempty"`
}

type handler func(s *Session, ev Event) bool

var handlers = map[EventKind]handler{
	EventPointerDown:    (*Session).pointerDown,
	EventPointerMove:    (*Session).pointerMove,
	EventPointerUp:      (*Session).pointerUp,
	EventPointerLeave:   (*Session).pointerUp,
	EventTouchStart:     (*Session).touchStart,
	EventTouchMove:      (*Session).touchMove,
	EventTouchEnd:       (*Session).touchEnd,
	EventToggleAdd:      (*Session).toggleAdd,
	EventSelectSymbol:   (*Session).selectSymbol,
	EventSelectKind:     (*Session).selectKind,
	EventDeleteSelected: (*Session).deleteSelected,
}

// Dispatch applies an event and reports whether the scene changed and needs
// to be redrawn
func (s *Session) Dispatch(ev Event) (bool, error) {
	if s.closed {
		return false, ErrClosed
	}
	h, ok := handlers[ev.Kind]
	if !ok {
		return false, fmt.Errorf("unknown event: %s", ev.Kind)
	}
	return h(s, ev), nil
}

func (s *Session) pointerDown(ev Event) bool {
	p := s.toSource(ev.Point)

	if s.mode.Has(ModeAddPending) {
		m := mask.NewManual(p, s.config.Symbol, s.config.Kind)
		m.Size = s.config.ManualSize
		s.masks = append(s.masks, m)
		s.selected = len(s.masks) - 1
		s.mode = ModeIdle
		return true
	}

	if m, ok := s.selectedMask(); ok {
		if geometry.PointInCircle(p, m.TopRight(), s.config.DeleteRadius/s.config.DisplayScale) {
			s.removeSelected()
			return true
		}
		if geometry.PointInCircle(p, m.BottomRight(), s.config.ResizeRadius/s.config.DisplayScale) {
			s.mode = ModeResizing
			return false
		}
	}

	prev := s.selected
	s.selected = s.hitTest(p)
	if s.selected >= 0 {
		s.mode = ModeDragging
		s.g.dragOffset = p.Sub(s.masks[s.selected].Center)
	}
	return s.selected != prev
}

func (s *Session) pointerMove(ev Event) bool {
	m := s.selectedPtr()
	if m == nil {
		return false
	}
	p := s.toSource(ev.Point)

	switch {
	case s.mode.Has(ModeDragging):
		m.Center = p.Sub(s.g.dragOffset)
		return true
	case s.mode.Has(ModeResizing):
		m.Size = mask.ClampSize(2*geometry.Distance(p, m.Center), s.config.MinSize, 0)
		return true
	}
	return false
}

func (s *Session) pointerUp(ev Event) bool {
	if s.mode.Has(ModeDragging) || s.mode.Has(ModeResizing) {
		s.mode = ModeIdle
	}
	return false
}

func (s *Session) touchStart(ev Event) bool {
	switch {
	case len(ev.Touches) == 1:
		return s.pointerDown(Event{Kind: EventPointerDown, Point: ev.Touches[0]})
	case len(ev.Touches) == 2 && s.selected >= 0:
		m := s.masks[s.selected]
		s.mode = ModePinching | ModeRotating
		s.g.startDistance = geometry.TouchDistance(ev.Touches)
		s.g.startSize = m.Size
		s.g.startAngle = geometry.TouchAngle(ev.Touches)
		s.g.startRotation = m.Rotation
		s.g.lastCenter = geometry.TouchCenter(ev.Touches)
		s.config.Haptics.Vibrate(PulseStart)
	}
	return false
}

func (s *Session) touchMove(ev Event) bool {
	if len(ev.Touches) == 1 {
		return s.pointerMove(Event{Kind: EventPointerMove, Point: ev.Touches[0]})
	}
	if len(ev.Touches) != 2 || !s.mode.Has(ModePinching|ModeRotating) {
		return false
	}
	m := s.selectedPtr()
	if m == nil {
		return false
	}

	if s.g.startDistance > 0 {
		ratio := geometry.TouchDistance(ev.Touches) / s.g.startDistance
		m.Size = mask.ClampSize(s.g.startSize*ratio, s.config.MinSize, s.config.MaxSize)
	}
	m.Rotation = s.g.startRotation + (geometry.TouchAngle(ev.Touches) - s.g.startAngle)

	center := geometry.TouchCenter(ev.Touches)
	m.Center = m.Center.Add(s.toSource(center.Sub(s.g.lastCenter)))
	s.g.lastCenter = center
	return true
}

func (s *Session) touchEnd(ev Event) bool {
	pinching := s.mode.Has(ModePinching) || s.mode.Has(ModeRotating)
	switch len(ev.Touches) {
	case 0:
		if pinching {
			s.config.Haptics.Vibrate(PulseEnd)
		}
		s.mode &^= ModePinching | ModeRotating | ModeDragging | ModeResizing
	case 1:
		// The remaining finger does not resume dragging
		s.mode &^= ModePinching | ModeRotating
	}
	return false
}

func (s *Session) toggleAdd(ev Event) bool {
	prev := s.selected
	if s.mode.Has(ModeAddPending) {
		s.mode = ModeIdle
	} else {
		s.mode = ModeAddPending
	}
	s.selected = -1
	return prev != -1
}

func (s *Session) selectSymbol(ev Event) bool {
	if ev.Symbol == "" {
		return false
	}
	s.config.Symbol = ev.Symbol
	if m := s.selectedPtr(); m != nil {
		m.Symbol = ev.Symbol
		return true
	}
	return false
}

func (s *Session) selectKind(ev Event) bool {
	s.config.Kind = ev.MaskKind
	if m := s.selectedPtr(); m != nil && m.Kind != ev.MaskKind {
		m.Kind = ev.MaskKind
		return true
	}
	return false
}

func (s *Session) deleteSelected(ev Event) bool {
	if s.selected < 0 {
		return false
	}
	s.removeSelected()
	return true
}

// hitTest returns the topmost mask whose axis-aligned box contains p, or -1.
// Rotation is ignored.
func (s *Session) hitTest(p geometry.Point) int {
	for i := len(s.masks) - 1; i >= 0; i-- {
		if s.masks[i].Contains(p) {
			return i
		}
	}
	return -1
}

func (s *Session) selectedMask() (mask.Mask, bool) {
	if m := s.selectedPtr(); m != nil {
		return *m, true
	}
	return mask.Mask{}, false
}

func (s *Session) selectedPtr() *mask.Mask {
	if s.selected < 0 || s.selected >= len(s.masks) {
		return nil
	}
	return &s.masks[s.selected]
}

func (s *Session) removeSelected() {
	s.masks = append(s.masks[:s.selected], s.masks[s.selected+1:]...)
	s.selected = -1
	s.mode = ModeIdle
}
