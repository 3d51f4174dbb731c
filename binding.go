package trellis

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode is the direction of a binding.
type Mode uint8

const (
	// OneWay copies source changes to the target.
	OneWay Mode = iota
	// TwoWay also copies target changes back to the source.
	TwoWay
)

func (m Mode) String() string {
	switch m {
	case OneWay:
		return "OneWay"
	case TwoWay:
		return "TwoWay"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Binding keeps a target member synchronized with a source member. Bindings
// are created by a BindingManager and stay active until Unbind is called.
// An active binding holds strong references to both endpoints; callers must
// Unbind (or UnbindObject / Element.Dispose) before dropping an endpoint.
//
// The binding remembers the last value it saw or wrote on each side. A change
// is only written to the other side when its converted value differs from
// that side's cached value, which stops A->B->A echoes.
type Binding struct {
	id        uuid.UUID
	source    *Member
	target    *Member
	mode      Mode
	converter Converter
	manager   *BindingManager

	sourceCache any
	targetCache any

	active bool

	sourceSub    HandlerID
	targetSub    HandlerID
	hasSourceSub bool
	hasTargetSub bool
}

// ID returns the binding's unique id, used in logs and leak reports.
func (b *Binding) ID() uuid.UUID { return b.id }

// Source returns the source member.
func (b *Binding) Source() *Member { return b.source }

// Target returns the target member.
func (b *Binding) Target() *Member { return b.target }

// Mode returns the binding direction.
func (b *Binding) Mode() Mode { return b.mode }

// Converter returns the converter in use, or nil when both endpoints have the
// same type.
func (b *Binding) Converter() Converter { return b.converter }

// IsBinding reports whether the binding is still active.
func (b *Binding) IsBinding() bool { return b.active }

func (b *Binding) String() string {
	arrow := "->"
	if b.mode == TwoWay {
		arrow = "<->"
	}
	return fmt.Sprintf("%s %s %s [%s]", b.source, arrow, b.target, b.id)
}

func (b *Binding) convert(v any) any {
	if b.converter == nil {
		return v
	}
	return b.converter.Convert(v)
}

func (b *Binding) convertBack(v any) any {
	if b.converter == nil {
		return v
	}
	return b.converter.ConvertBack(v)
}

// captureCaches records the current endpoint values without writing either.
func (b *Binding) captureCaches() {
	b.sourceCache = b.source.Value()
	if b.target.CanRead() {
		b.targetCache = b.target.Value()
	}
}

// attach subscribes to change notification on the source and, for TwoWay
// bindings, on the target.
func (b *Binding) attach() {
	b.active = true
	if b.source.obj != nil {
		b.source.obj.addBinding(b)
	} else if n := b.source.notifier; n != nil {
		b.sourceSub = n.AddPropertyChangedHandler(b.sourceNotified)
		b.hasSourceSub = true
	}
	if b.target.obj != nil {
		// per-object lists also carry OneWay targets so UnbindAll sees them
		b.target.obj.addBinding(b)
	} else if n := b.target.notifier; n != nil && b.mode == TwoWay {
		b.targetSub = n.AddPropertyChangedHandler(b.targetNotified)
		b.hasTargetSub = true
	}
}

// detach removes every subscription and per-object list entry. The registry
// entry is left to the caller.
func (b *Binding) detach() {
	b.active = false
	if b.source.obj != nil {
		b.source.obj.removeBinding(b)
	}
	if b.target.obj != nil {
		b.target.obj.removeBinding(b)
	}
	if b.hasSourceSub {
		b.source.notifier.RemovePropertyChangedHandler(b.sourceSub)
		b.hasSourceSub = false
	}
	if b.hasTargetSub {
		b.target.notifier.RemovePropertyChangedHandler(b.targetSub)
		b.hasTargetSub = false
	}
}

func (b *Binding) sourceNotified(name string) {
	if name != b.source.name || !b.active {
		return
	}
	if err := b.onSourceChanged(b.source.Value()); err != nil {
		logger.Warn("trellis: binding update failed", zap.Stringer("binding", b), zap.Error(err))
	}
}

func (b *Binding) targetNotified(name string) {
	if name != b.target.name || !b.active {
		return
	}
	if err := b.onTargetChanged(b.target.Value()); err != nil {
		logger.Warn("trellis: binding update failed", zap.Stringer("binding", b), zap.Error(err))
	}
}

// onSourceChanged converts v and writes it to the target unless the result is
// Unset or equals the cached target value.
func (b *Binding) onSourceChanged(v any) error {
	if !b.active {
		return nil
	}
	b.sourceCache = v
	tv := b.convert(v)
	if IsUnset(tv) || valuesEqual(tv, b.targetCache) {
		return nil
	}
	return b.writeTarget(tv)
}

// onTargetChanged is the reverse of onSourceChanged for TwoWay bindings.
func (b *Binding) onTargetChanged(v any) error {
	if !b.active || b.mode != TwoWay {
		return nil
	}
	b.targetCache = v
	sv := b.convertBack(v)
	if IsUnset(sv) || valuesEqual(sv, b.sourceCache) {
		return nil
	}
	return b.writeSource(sv)
}

func (b *Binding) writeTarget(tv any) error {
	b.targetCache = tv
	if err := b.target.SetValue(tv); err != nil {
		if b.target.CanRead() {
			b.targetCache = b.target.Value()
		}
		return &BindingError{Op: "update target", Source: b.source.String(), Target: b.target.String(), Err: err}
	}
	return nil
}

func (b *Binding) writeSource(sv any) error {
	b.sourceCache = sv
	if err := b.source.SetValue(sv); err != nil {
		b.sourceCache = b.source.Value()
		return &BindingError{Op: "update source", Source: b.source.String(), Target: b.target.String(), Err: err}
	}
	return nil
}

// UpdateTarget reads the source and writes its converted value to the target
// regardless of the caches. A converter returning Unset skips the write.
func (b *Binding) UpdateTarget() error {
	if !b.active {
		return nil
	}
	sv := b.source.Value()
	b.sourceCache = sv
	tv := b.convert(sv)
	if IsUnset(tv) {
		return nil
	}
	return b.writeTarget(tv)
}

// UpdateSource reads the target and writes its converted value back to the
// source. Only TwoWay bindings update their source.
func (b *Binding) UpdateSource() error {
	if !b.active || b.mode != TwoWay {
		return nil
	}
	tv := b.target.Value()
	b.targetCache = tv
	sv := b.convertBack(tv)
	if IsUnset(sv) {
		return nil
	}
	return b.writeSource(sv)
}

// Synchronize pushes whichever side changed since the binding last saw it.
// The source wins: if it changed, it is pushed to the target in any mode.
// Otherwise a TwoWay binding pushes a changed target back to the source.
// No-op once unbound.
func (b *Binding) Synchronize() error {
	if !b.active {
		return nil
	}
	if !valuesEqual(b.source.Value(), b.sourceCache) {
		return b.UpdateTarget()
	}
	if b.mode == TwoWay && !valuesEqual(b.target.Value(), b.targetCache) {
		return b.UpdateSource()
	}
	return nil
}

// Unbind deactivates the binding and removes it from its manager, the
// endpoints' binding lists and any notifier. Calling it again does nothing.
func (b *Binding) Unbind() {
	if !b.active {
		return
	}
	b.detach()
	if b.manager != nil {
		b.manager.remove(b)
	}
}

// touches reports whether obj is the owner of either endpoint.
func (b *Binding) touches(obj any) bool {
	return b.source.touches(obj) || b.target.touches(obj)
}
