// Package trellis is a dependency-property and data-binding runtime for
// retained-mode game UIs built on [Ebitengine].
//
// # Dependency properties
//
// A dependency object is any struct that embeds [Object], directly or through
// another dependency object. Embedding forms the type hierarchy: a type's base
// is its first embedded dependency object.
//
// Properties are registered once per (owner type, name), usually in
// package-level variables:
//
//	type Slider struct {
//		trellis.Element
//	}
//
//	var ValueProperty = trellis.MustRegister("Value",
//		reflect.TypeFor[float64](), reflect.TypeFor[Slider](),
//		trellis.NewMetadata(0.0).OnChanged(func(c trellis.PropertyChange) {
//			// redraw
//		}), nil)
//
// Values are stored per instance. [Object.GetValue] returns a temporary value
// if one is set, else the base value, else the default from the metadata in
// effect for the instance's type. Derived types change defaults, coercion and
// callbacks with [Property.OverrideMetadata].
//
// # Bindings
//
// A [BindingManager] keeps two members synchronized. A member is a dependency
// property, an exported field, a Name()/SetName(v) method pair, an
// [Accessor], or a package-level variable ([StaticMember]):
//
//	b, err := scene.Bind(model, "Health", bar, "Width", trellis.OneWay, nil)
//
// Bindings hold strong references to both endpoints. Call [Binding.Unbind],
// [BindingManager.UnbindObject] or [Element.Dispose] before dropping an
// endpoint; [BindingManager.Leaks] and Scene debug mode report bindings that
// still reference disposed elements.
//
// Plain structs announce changes by embedding [Notifier] and calling
// Changed; other plain endpoints update only on [Binding.Synchronize].
//
// # Scene
//
// [Scene] owns an [Element] tree, a binding manager and running
// [TweenGroup]s (via [gween]). Property changes of elements with an EntityID
// can be forwarded to a [Donburi] world with trellis/ecs.
//
// Scene.Update hit-tests elements by their bounds and fires OnClick, OnDrag
// and OnDragEnd. Input can be injected ([Scene.InjectDrag]) or scripted with
// a [TestRunner] that also checks member values between frames.
//
// Nothing in this package is safe for concurrent use. Like Ebitengine's game
// loop, it is driven from a single goroutine.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package trellis
