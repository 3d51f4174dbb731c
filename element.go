package trellis

import (
	"cmp"
	"reflect"
	"slices"

	"github.com/spf13/cast"
)

// elementHolder is satisfied by Element and every type embedding it.
type elementHolder interface {
	element() *Element
}

var elementType = reflect.TypeFor[Element]()

// Element dependency properties. They live in DefaultRegistry.
var (
	XProperty      = MustRegister("X", reflect.TypeFor[float64](), elementType, nil, nil)
	YProperty      = MustRegister("Y", reflect.TypeFor[float64](), elementType, nil, nil)
	WidthProperty  = MustRegister("Width", reflect.TypeFor[float64](), elementType, nil, nonNegative)
	HeightProperty = MustRegister("Height", reflect.TypeFor[float64](), elementType, nil, nonNegative)

	// AlphaProperty is clamped into [0, 1] by coercion.
	AlphaProperty = MustRegister("Alpha", reflect.TypeFor[float64](), elementType,
		NewMetadata(1.0).WithCoerce(coerceUnit), unitRange)

	VisibleProperty = MustRegister("Visible", reflect.TypeFor[bool](), elementType, NewMetadata(true), nil)
	ColorProperty   = MustRegister("Color", reflect.TypeFor[Color](), elementType, NewMetadata(ColorWhite), nil)

	// ZIndexProperty orders siblings in SortedChildren.
	ZIndexProperty = MustRegister("ZIndex", reflect.TypeFor[int](), elementType,
		NewMetadata(0).OnChanged(zIndexChanged), nil)
)

func nonNegative(v any) bool {
	return v.(float64) >= 0
}

func unitRange(v any) bool {
	f := v.(float64)
	return f >= 0 && f <= 1
}

func coerceUnit(_ DependencyObject, v any) any {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return v
	}
	return clamp01(f)
}

func zIndexChanged(c PropertyChange) {
	if h, ok := c.Object.(elementHolder); ok {
		if p := h.element().Parent; p != nil {
			p.childrenSorted = false
		}
	}
}

// elementIDCounter is a plain counter (no atomic, trellis is single-threaded).
var elementIDCounter uint32

func nextElementID() uint32 {
	elementIDCounter++
	return elementIDCounter
}

// Element is a retained tree node whose visual state is held in dependency
// properties, so it can be bound, tweened and themed. Embed Element to
// declare widget types; their own properties are registered with the
// embedding type as owner.
type Element struct {
	Object

	// Identity
	ID   uint32
	Name string

	// Hierarchy
	Parent   *Element
	children []*Element

	// Metadata
	UserData any
	EntityID uint32

	// Interaction. Elements are hit-tested by their bounds; set
	// Interactable to false to exclude an element and its subtree.
	Interactable bool
	OnClick      func(ClickContext)
	OnDrag       func(DragContext)
	OnDragEnd    func(DragContext)

	// scene is set on a scene's root element only.
	scene *Scene

	disposed       bool
	childrenSorted bool
	sortedChildren []*Element
}

// NewElement creates an element with default property values.
func NewElement(name string) *Element {
	e := &Element{}
	InitElement(e, name)
	return e
}

// InitElement prepares an Element embedded in d. Widget constructors call it
// once on the outer value:
//
//	type Label struct {
//		trellis.Element
//	}
//
//	func NewLabel(name string) *Label {
//		l := &Label{}
//		trellis.InitElement(l, name)
//		return l
//	}
func InitElement(d interface {
	DependencyObject
	elementHolder
}, name string) {
	InitObject(d)
	e := d.element()
	e.ID = nextElementID()
	e.Name = name
	e.Interactable = true
	e.childrenSorted = true
	e.changeHook = e.forwardChange
}

func (e *Element) element() *Element { return e }

// forwardChange hands the change to the scene owning e's tree, if any.
func (e *Element) forwardChange(c PropertyChange) {
	if e.EntityID == 0 {
		return
	}
	root := e
	for root.Parent != nil {
		root = root.Parent
	}
	if root.scene != nil {
		root.scene.elementChanged(e, c)
	}
}

// --- Property accessors ---

// X returns the X property.
func (e *Element) X() float64 { return e.GetValue(XProperty).(float64) }

// SetX sets the X property.
func (e *Element) SetX(v float64) error { return e.SetValue(XProperty, v) }

// Y returns the Y property.
func (e *Element) Y() float64 { return e.GetValue(YProperty).(float64) }

// SetY sets the Y property.
func (e *Element) SetY(v float64) error { return e.SetValue(YProperty, v) }

// Width returns the Width property.
func (e *Element) Width() float64 { return e.GetValue(WidthProperty).(float64) }

// SetWidth sets the Width property. Negative widths are rejected.
func (e *Element) SetWidth(v float64) error { return e.SetValue(WidthProperty, v) }

// Height returns the Height property.
func (e *Element) Height() float64 { return e.GetValue(HeightProperty).(float64) }

// SetHeight sets the Height property. Negative heights are rejected.
func (e *Element) SetHeight(v float64) error { return e.SetValue(HeightProperty, v) }

// Alpha returns the Alpha property.
func (e *Element) Alpha() float64 { return e.GetValue(AlphaProperty).(float64) }

// SetAlpha sets the Alpha property, clamped into [0, 1].
func (e *Element) SetAlpha(v float64) error { return e.SetValue(AlphaProperty, v) }

// Visible returns the Visible property.
func (e *Element) Visible() bool { return e.GetValue(VisibleProperty).(bool) }

// SetVisible sets the Visible property.
func (e *Element) SetVisible(v bool) error { return e.SetValue(VisibleProperty, v) }

// Color returns the Color property.
func (e *Element) Color() Color { return e.GetValue(ColorProperty).(Color) }

// SetColor sets the Color property.
func (e *Element) SetColor(c Color) error { return e.SetValue(ColorProperty, c) }

// ZIndex returns the ZIndex property.
func (e *Element) ZIndex() int { return e.GetValue(ZIndexProperty).(int) }

// SetZIndex sets the ZIndex property and marks the parent's children as
// unsorted.
func (e *Element) SetZIndex(z int) error { return e.SetValue(ZIndexProperty, z) }

// Bounds returns the element's rectangle in its parent's coordinates.
func (e *Element) Bounds() Rect {
	return Rect{X: e.X(), Y: e.Y(), Width: e.Width(), Height: e.Height()}
}

// WorldPosition returns the element's position with every ancestor's offset
// applied.
func (e *Element) WorldPosition() Vec2 {
	var v Vec2
	for n := e; n != nil; n = n.Parent {
		v.X += n.X()
		v.Y += n.Y()
	}
	return v
}

// WorldAlpha returns the product of the element's and its ancestors' alpha.
func (e *Element) WorldAlpha() float64 {
	a := 1.0
	for n := e; n != nil; n = n.Parent {
		a *= n.Alpha()
	}
	return a
}

// --- Tree manipulation ---

// AddChild appends child to this element's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this element (cycle).
func (e *Element) AddChild(child *Element) {
	if child == nil {
		panic("trellis: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(e, "AddChild (parent)")
		debugCheckDisposed(child, "AddChild (child)")
	}
	if isAncestor(child, e) {
		panic("trellis: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	child.Parent = e
	e.children = append(e.children, child)
	e.childrenSorted = false
	if globalDebug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(e)
	}
}

// AddChildAt inserts child at the given index.
// Same reparenting and cycle-check behavior as AddChild.
func (e *Element) AddChildAt(child *Element, index int) {
	if child == nil {
		panic("trellis: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(e, "AddChildAt (parent)")
		debugCheckDisposed(child, "AddChildAt (child)")
	}
	if isAncestor(child, e) {
		panic("trellis: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	if index < 0 || index > len(e.children) {
		panic("trellis: child index out of range")
	}
	child.Parent = e
	e.children = slices.Insert(e.children, index, child)
	e.childrenSorted = false
	if globalDebug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(e)
	}
}

// RemoveChild detaches child from this element.
// Panics if child.Parent != e.
func (e *Element) RemoveChild(child *Element) {
	if globalDebug {
		debugCheckDisposed(e, "RemoveChild (parent)")
		debugCheckDisposed(child, "RemoveChild (child)")
	}
	if child.Parent != e {
		panic("trellis: child's parent is not this element")
	}
	e.removeChildByPtr(child)
	child.Parent = nil
	e.childrenSorted = false
}

// RemoveChildAt removes and returns the child at the given index.
func (e *Element) RemoveChildAt(index int) *Element {
	if globalDebug {
		debugCheckDisposed(e, "RemoveChildAt")
	}
	if index < 0 || index >= len(e.children) {
		panic("trellis: child index out of range")
	}
	child := e.children[index]
	e.children = slices.Delete(e.children, index, index+1)
	child.Parent = nil
	e.childrenSorted = false
	return child
}

// RemoveFromParent detaches this element from its parent.
// No-op if this element has no parent.
func (e *Element) RemoveFromParent() {
	if e.Parent == nil {
		return
	}
	e.Parent.RemoveChild(e)
}

// RemoveChildren detaches all children from this element.
// Children are NOT disposed.
func (e *Element) RemoveChildren() {
	for _, child := range e.children {
		child.Parent = nil
	}
	clear(e.children)
	e.children = e.children[:0]
	e.childrenSorted = true
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (e *Element) Children() []*Element {
	return e.children
}

// NumChildren returns the number of children.
func (e *Element) NumChildren() int {
	return len(e.children)
}

// ChildAt returns the child at the given index.
func (e *Element) ChildAt(index int) *Element {
	return e.children[index]
}

// FindChild returns the first descendant (depth first) with the given name.
func (e *Element) FindChild(name string) *Element {
	for _, c := range e.children {
		if c.Name == name {
			return c
		}
		if f := c.FindChild(name); f != nil {
			return f
		}
	}
	return nil
}

// SetChildIndex moves child to a new index among its siblings.
func (e *Element) SetChildIndex(child *Element, index int) {
	if child.Parent != e {
		panic("trellis: child's parent is not this element")
	}
	if index < 0 || index >= len(e.children) {
		panic("trellis: child index out of range")
	}
	oldIndex := slices.Index(e.children, child)
	if oldIndex == index {
		return
	}
	e.children = slices.Delete(e.children, oldIndex, oldIndex+1)
	e.children = slices.Insert(e.children, index, child)
	e.childrenSorted = false
}

// SortedChildren returns the children ordered by ZIndex, insertion order
// breaking ties. The returned slice is reused and MUST NOT be retained.
func (e *Element) SortedChildren() []*Element {
	if !e.childrenSorted || len(e.sortedChildren) != len(e.children) {
		e.sortedChildren = append(e.sortedChildren[:0], e.children...)
		slices.SortStableFunc(e.sortedChildren, func(a, b *Element) int {
			return cmp.Compare(a.ZIndex(), b.ZIndex())
		})
		e.childrenSorted = true
	}
	return e.sortedChildren
}

// --- Disposal ---

// Dispose removes this element from its parent, unbinds every binding that
// uses it as a dependency-property endpoint, marks it as disposed, and
// recursively disposes all descendants.
func (e *Element) Dispose() {
	if e.disposed {
		return
	}
	e.RemoveFromParent()
	e.dispose()
}

func (e *Element) dispose() {
	e.UnbindAll()
	e.disposed = true
	e.ID = 0
	for _, child := range e.children {
		child.Parent = nil
		child.dispose()
	}
	e.children = nil
	e.sortedChildren = nil
	e.Parent = nil
	e.UserData = nil
	e.OnClick = nil
	e.OnDrag = nil
	e.OnDragEnd = nil
	e.OnPropertyChanged = nil
	e.changeHook = nil
	e.scene = nil
}

// IsDisposed returns true if this element has been disposed.
func (e *Element) IsDisposed() bool {
	return e.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of e.
func isAncestor(candidate, e *Element) bool {
	for p := e; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from e.children without clearing child.Parent.
func (e *Element) removeChildByPtr(child *Element) {
	if i := slices.Index(e.children, child); i >= 0 {
		e.children = slices.Delete(e.children, i, i+1)
	}
}
