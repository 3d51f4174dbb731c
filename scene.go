package trellis

import (
	"slices"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"
)

// EntityStore is the interface for optional ECS integration.
// When set on a Scene, property changes of elements with a non-zero EntityID
// are forwarded to it.
type EntityStore interface {
	EmitEvent(event PropertyChangeEvent)
}

// PropertyChangeEvent carries a committed property change for the ECS bridge.
type PropertyChangeEvent struct {
	EntityID uint32
	Element  string // element name
	Owner    string // property owner type
	Property string
	OldValue any
	NewValue any
}

// Scene is the top-level object that owns the element tree, the binding
// manager and the running tweens.
type Scene struct {
	// ClearColor fills the screen before drawing when its alpha is non-zero.
	ClearColor Color

	root     *Element
	bindings *BindingManager
	tweens   []*TweenGroup
	store    EntityStore
	debug    bool

	updateFunc func() error

	pointer      pointerState
	dragDeadZone float64
	hitBuf       []hitEntry
	injectQueue  []pointerEvent
	testRunner   *TestRunner

	reportedLeaks map[*Binding]struct{}
}

// NewScene creates a new scene with a pre-created root element. Bindings are
// resolved against DefaultRegistry.
func NewScene() *Scene {
	return NewSceneWithRegistry(DefaultRegistry)
}

// NewSceneWithRegistry creates a scene whose binding manager resolves
// property names in reg.
func NewSceneWithRegistry(reg *Registry) *Scene {
	s := &Scene{
		root:         NewElement("root"),
		bindings:     NewBindingManager(reg),
		dragDeadZone: defaultDragDeadZone,
	}
	s.root.scene = s
	return s
}

// Root returns the scene's root element.
func (s *Scene) Root() *Element {
	return s.root
}

// Bindings returns the scene's binding manager.
func (s *Scene) Bindings() *BindingManager {
	return s.bindings
}

// Bind is shorthand for s.Bindings().Bind.
func (s *Scene) Bind(source any, sourcePath string, target any, targetPath string, mode Mode, conv Converter) (*Binding, error) {
	return s.bindings.Bind(source, sourcePath, target, targetPath, mode, conv)
}

// AddTween registers g to be advanced by Update until it is done.
func (s *Scene) AddTween(g *TweenGroup) {
	if g == nil {
		panic("trellis: cannot add nil tween")
	}
	s.tweens = append(s.tweens, g)
}

// NumTweens returns the number of running tweens.
func (s *Scene) NumTweens() int {
	return len(s.tweens)
}

// Update steps the test runner, processes injected or real mouse input, then
// advances tweens by one tick (1/TPS seconds).
func (s *Scene) Update() {
	if s.testRunner != nil {
		s.testRunner.step(s)
	}
	s.processInput()
	s.Advance(float32(1.0 / float64(ebiten.TPS())))
}

// Advance advances tweens by dt seconds, drops finished ones and, in debug
// mode, reports leaked bindings. Errors raised by tweens are logged.
func (s *Scene) Advance(dt float32) {
	for _, g := range slices.Clone(s.tweens) {
		if err := g.Update(dt); err != nil {
			logger.Warn("trellis: tween update failed", zap.Error(err))
		}
	}
	s.tweens = slices.DeleteFunc(s.tweens, func(g *TweenGroup) bool { return g.Done })
	if s.debug {
		s.debugReportLeaks()
	}
}

// Draw fills each visible element's bounds with its color, parents first and
// siblings in ZIndex order. Alpha multiplies down the tree.
func (s *Scene) Draw(screen *ebiten.Image) {
	if s.ClearColor.A > 0 {
		screen.Fill(s.ClearColor.RGBA())
	}
	s.draw(screen, s.root, 0, 0, 1)
}

var whitePixel *ebiten.Image

func (s *Scene) draw(screen *ebiten.Image, e *Element, ox, oy, alpha float64) {
	if !e.Visible() {
		return
	}
	x, y := ox+e.X(), oy+e.Y()
	alpha *= e.Alpha()
	if w, h := e.Width(), e.Height(); w > 0 && h > 0 && alpha > 0 {
		if whitePixel == nil {
			whitePixel = ebiten.NewImage(1, 1)
			whitePixel.Fill(ColorWhite.RGBA())
		}
		c := e.Color()
		c.A *= alpha
		var op ebiten.DrawImageOptions
		op.GeoM.Scale(w, h)
		op.GeoM.Translate(x, y)
		op.ColorScale = c.ColorScale()
		screen.DrawImage(whitePixel, &op)
	}
	for _, child := range e.SortedChildren() {
		s.draw(screen, child, x, y, alpha)
	}
}

// SetUpdateFunc sets a callback Run invokes once per tick, after Update.
func (s *Scene) SetUpdateFunc(fn func() error) {
	s.updateFunc = fn
}

// SetEntityStore sets the optional ECS bridge.
func (s *Scene) SetEntityStore(store EntityStore) {
	s.store = store
}

func (s *Scene) elementChanged(e *Element, c PropertyChange) {
	if s.store == nil {
		return
	}
	s.store.EmitEvent(PropertyChangeEvent{
		EntityID: e.EntityID,
		Element:  e.Name,
		Owner:    c.Property.OwnerType().Name(),
		Property: c.Property.Name(),
		OldValue: c.OldValue,
		NewValue: c.NewValue,
	})
}

// SetDebugMode enables or disables debug mode. When enabled, disposed-element
// access panics, tree depth and child count warnings are logged, and Update
// logs bindings that keep disposed elements alive. A development logger is
// installed unless SetLogger was called.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
	if enabled {
		ensureDevelopmentLogger()
	}
}

// Dispose unbinds every binding of the scene, stops tweens and disposes the
// element tree.
func (s *Scene) Dispose() {
	s.bindings.UnbindAll()
	s.tweens = nil
	s.pointer = pointerState{}
	s.hitBuf = nil
	s.injectQueue = nil
	s.testRunner = nil
	s.root.Dispose()
}
