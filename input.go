package trellis

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

const defaultDragDeadZone = 4.0 // pixels

// ClickContext describes a press and release over the same element.
type ClickContext struct {
	Element *Element
	// X, Y are screen coordinates; LocalX, LocalY are relative to the element.
	X, Y           float64
	LocalX, LocalY float64
}

// DragContext describes a drag gesture that started on Element.
type DragContext struct {
	Element        *Element
	X, Y           float64
	StartX, StartY float64
	// DeltaX, DeltaY is the movement since the previous drag event.
	DeltaX, DeltaY float64
}

type pointerState struct {
	down     bool
	startX   float64
	startY   float64
	lastX    float64
	lastY    float64
	hit      *Element
	dragging bool
}

type hitEntry struct {
	e      *Element
	wx, wy float64
}

// SetDragDeadZone sets the distance the pointer must travel while pressed
// before a drag starts.
func (s *Scene) SetDragDeadZone(pixels float64) {
	s.dragDeadZone = pixels
}

// collectInteractable walks the tree in painter order (parents first, siblings
// in ZIndex order), appending elements with a non-empty area. Invisible or
// non-interactable subtrees are skipped.
func (s *Scene) collectInteractable(e *Element, ox, oy float64, buf []hitEntry) []hitEntry {
	if !e.Interactable || !e.Visible() {
		return buf
	}
	x, y := ox+e.X(), oy+e.Y()
	if e.Width() > 0 && e.Height() > 0 {
		buf = append(buf, hitEntry{e: e, wx: x, wy: y})
	}
	for _, child := range e.SortedChildren() {
		buf = s.collectInteractable(child, x, y, buf)
	}
	return buf
}

// HitTest returns the topmost interactable element containing the screen
// point (x, y), or nil.
func (s *Scene) HitTest(x, y float64) *Element {
	e, _, _ := s.hitTest(x, y)
	return e
}

func (s *Scene) hitTest(x, y float64) (*Element, float64, float64) {
	s.hitBuf = s.collectInteractable(s.root, 0, 0, s.hitBuf[:0])
	for i := len(s.hitBuf) - 1; i >= 0; i-- {
		h := s.hitBuf[i]
		r := Rect{X: h.wx, Y: h.wy, Width: h.e.Width(), Height: h.e.Height()}
		if r.Contains(x, y) {
			return h.e, h.wx, h.wy
		}
	}
	return nil, 0, 0
}

// processInput is called from Scene.Update to feed injected events, or the
// mouse when none are queued, into the pointer state machine.
func (s *Scene) processInput() {
	if s.processInjectedInput() {
		return
	}
	mx, my := ebiten.CursorPosition()
	s.processPointer(float64(mx), float64(my), ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
}

// processPointer runs the press / drag / release state machine.
func (s *Scene) processPointer(x, y float64, pressed bool) {
	ps := &s.pointer
	switch {
	case pressed && !ps.down:
		ps.down = true
		ps.startX, ps.startY = x, y
		ps.lastX, ps.lastY = x, y
		ps.hit, _, _ = s.hitTest(x, y)
		ps.dragging = false

	case pressed && ps.down:
		if x == ps.lastX && y == ps.lastY {
			return
		}
		if !ps.dragging && ps.hit != nil {
			if math.Hypot(x-ps.startX, y-ps.startY) > s.dragDeadZone {
				ps.dragging = true
			}
		}
		if ps.dragging && !ps.hit.IsDisposed() && ps.hit.OnDrag != nil {
			ps.hit.OnDrag(DragContext{
				Element: ps.hit,
				X:       x, Y: y,
				StartX: ps.startX, StartY: ps.startY,
				DeltaX: x - ps.lastX, DeltaY: y - ps.lastY,
			})
		}
		ps.lastX, ps.lastY = x, y

	case !pressed && ps.down:
		hit := ps.hit
		if hit != nil && !hit.IsDisposed() {
			if ps.dragging {
				if hit.OnDragEnd != nil {
					hit.OnDragEnd(DragContext{
						Element: hit,
						X:       x, Y: y,
						StartX: ps.startX, StartY: ps.startY,
						DeltaX: x - ps.lastX, DeltaY: y - ps.lastY,
					})
				}
			} else if target, wx, wy := s.hitTest(x, y); target == hit && hit.OnClick != nil {
				hit.OnClick(ClickContext{Element: hit, X: x, Y: y, LocalX: x - wx, LocalY: y - wy})
			}
		}
		*ps = pointerState{lastX: x, lastY: y}
	}
}
