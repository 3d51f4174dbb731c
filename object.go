package trellis

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
)

// DependencyObject is implemented by every type that embeds Object. The method
// is unexported, so embedding Object is the only way to satisfy it.
type DependencyObject interface {
	dependencyObject() *Object
}

// valueEntry is the per-instance slot of one property. A slot may hold a base
// value, a temporary value layered over it, or both.
type valueEntry struct {
	base    any
	temp    any
	hasBase bool
	hasTemp bool
}

func (e *valueEntry) effective() (any, bool) {
	if e.hasTemp {
		return e.temp, true
	}
	if e.hasBase {
		return e.base, true
	}
	return nil, false
}

// Object is the root of every dependency-object type. Embed it (directly or
// through another dependency object) and call InitObject once on the outer
// value so metadata overrides of the outer type apply:
//
//	type Slider struct {
//		trellis.Object
//	}
//
//	func NewSlider() *Slider {
//		s := &Slider{}
//		trellis.InitObject(s)
//		return s
//	}
//
// An Object is owned by a single goroutine; no method is safe for concurrent
// use.
type Object struct {
	self     DependencyObject
	values   map[*Property]*valueEntry
	bindings []*Binding

	// cached hierarchy node of the outer type, per registry
	typeReg  *Registry
	typeNode *TypeNode

	// changeHook is set by host types (Element) that forward changes.
	changeHook func(PropertyChange)

	// OnPropertyChanged, when set, is called for every committed change after
	// the metadata callbacks and before bindings are updated.
	OnPropertyChanged func(PropertyChange)
}

// InitObject records d as the outer value of its embedded Object. It is
// idempotent.
func InitObject(d DependencyObject) {
	o := d.dependencyObject()
	if o.self != d {
		o.self = d
		o.typeReg = nil
		o.typeNode = nil
	}
}

func (o *Object) dependencyObject() *Object { return o }

// outer returns the value the Object is embedded in, or o itself when
// InitObject was never called.
func (o *Object) outer() DependencyObject {
	if o.self != nil {
		return o.self
	}
	return o
}

// Self returns the outermost value registered with InitObject, or the Object
// itself.
func (o *Object) Self() DependencyObject {
	return o.outer()
}

func (o *Object) metadata(p *Property) *Metadata {
	if p.attached || len(p.overrides) == 0 {
		return p.defaultMetadata
	}
	if o.typeReg != p.reg {
		o.typeReg = p.reg
		o.typeNode = p.reg.types.From(reflect.TypeOf(o.outer()))
	}
	return p.Metadata(o.typeNode)
}

// GetValue returns the effective value of p: the temporary value if one is
// set, else the base value, else the metadata default for this object's type.
func (o *Object) GetValue(p *Property) any {
	if e, ok := o.values[p]; ok {
		if v, ok := e.effective(); ok {
			return v
		}
	}
	return o.metadata(p).defaultValue
}

// SetValue validates v (coercing it through the metadata when invalid) and
// commits it as the base value, discarding any temporary value. Changed
// callbacks and bindings run only when the effective value changes.
func (o *Object) SetValue(p *Property, v any) error {
	return o.setValue(p, v, false)
}

// SetValueTemporarily layers v over the base value without discarding it.
// RestoreValue reverts to the base value.
func (o *Object) SetValueTemporarily(p *Property, v any) error {
	return o.setValue(p, v, true)
}

func (o *Object) setValue(p *Property, v any, temporary bool) error {
	md := o.metadata(p)
	nv, err := o.resolveValue(p, md, v)
	if err != nil {
		return err
	}
	old := o.GetValue(p)

	e := o.values[p]
	if e == nil {
		if o.values == nil {
			o.values = make(map[*Property]*valueEntry)
		}
		e = &valueEntry{}
		o.values[p] = e
	}
	if temporary {
		e.temp, e.hasTemp = nv, true
	} else {
		e.base, e.hasBase = nv, true
		e.temp, e.hasTemp = nil, false
	}

	if valuesEqual(old, nv) {
		return nil
	}
	return o.changed(p, md, old, nv)
}

// resolveValue validates v and falls back to the metadata coercion when it is
// invalid.
func (o *Object) resolveValue(p *Property, md *Metadata, v any) (any, error) {
	nv, err := p.validateValue(v)
	if err == nil {
		return nv, nil
	}
	if md.coerce == nil {
		return nil, propertyError("set", p, v, err)
	}
	cv := md.coerce(o.outer(), v)
	nv, cerr := p.validateValue(cv)
	if cerr != nil {
		return nil, propertyError("set", p, cv, fmt.Errorf("%w: %v", ErrInvalidCoercedValue, cerr))
	}
	return nv, nil
}

// RestoreValue discards the temporary value of p. Notifies only when the
// restored value differs from the temporary one.
func (o *Object) RestoreValue(p *Property) error {
	e, ok := o.values[p]
	if !ok || !e.hasTemp {
		return nil
	}
	md := o.metadata(p)
	old := e.temp
	e.temp, e.hasTemp = nil, false
	nv := md.defaultValue
	if e.hasBase {
		nv = e.base
	} else {
		delete(o.values, p)
	}
	if valuesEqual(old, nv) {
		return nil
	}
	return o.changed(p, md, old, nv)
}

// ClearValue removes any base and temporary value of p, reverting to the
// metadata default.
func (o *Object) ClearValue(p *Property) error {
	e, ok := o.values[p]
	if !ok {
		return nil
	}
	old, _ := e.effective()
	delete(o.values, p)
	md := o.metadata(p)
	nv := md.defaultValue
	if valuesEqual(old, nv) {
		return nil
	}
	return o.changed(p, md, old, nv)
}

// HasLocalValue reports whether p has a base or temporary value on o.
func (o *Object) HasLocalValue(p *Property) bool {
	_, ok := o.values[p]
	return ok
}

// HasTemporaryValue reports whether p currently has a temporary value.
func (o *Object) HasTemporaryValue(p *Property) bool {
	e, ok := o.values[p]
	return ok && e.hasTemp
}

// changed runs the notification chain for a committed change: metadata
// callbacks, the host hook, OnPropertyChanged, then bindings.
func (o *Object) changed(p *Property, md *Metadata, old, nv any) error {
	change := PropertyChange{
		Object:   o.outer(),
		Property: p,
		Metadata: md,
		OldValue: old,
		NewValue: nv,
	}
	md.notify(change)
	if o.changeHook != nil {
		o.changeHook(change)
	}
	if o.OnPropertyChanged != nil {
		o.OnPropertyChanged(change)
	}
	return o.notifyBindings(p)
}

// notifyBindings dispatches a change of p to every binding that has o.p as
// source, or as target of a TwoWay binding. The current value is re-read for
// each binding since callbacks may have changed it again.
func (o *Object) notifyBindings(p *Property) error {
	if len(o.bindings) == 0 {
		return nil
	}
	var errs []error
	for _, b := range slices.Clone(o.bindings) {
		if !b.active {
			continue
		}
		if b.source.refersTo(o, p) {
			if err := b.onSourceChanged(o.GetValue(p)); err != nil {
				errs = append(errs, err)
			}
		}
		if b.active && b.mode == TwoWay && b.target.refersTo(o, p) {
			if err := b.onTargetChanged(o.GetValue(p)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Bindings returns the active bindings that use o as an endpoint.
func (o *Object) Bindings() []*Binding {
	return slices.Clone(o.bindings)
}

// UnbindAll unbinds every binding that uses o as an endpoint and returns how
// many were removed.
func (o *Object) UnbindAll() int {
	list := slices.Clone(o.bindings)
	for _, b := range list {
		b.Unbind()
	}
	return len(list)
}

func (o *Object) addBinding(b *Binding) {
	if !slices.Contains(o.bindings, b) {
		o.bindings = append(o.bindings, b)
	}
}

func (o *Object) removeBinding(b *Binding) {
	if i := slices.Index(o.bindings, b); i >= 0 {
		o.bindings = slices.Delete(o.bindings, i, i+1)
	}
}

// GetAs returns the effective value of p on d as a T. It returns the zero T
// when the value is nil or not a T.
func GetAs[T any](d DependencyObject, p *Property) T {
	v, _ := d.dependencyObject().GetValue(p).(T)
	return v
}

// SetAs sets p on d to v.
func SetAs[T any](d DependencyObject, p *Property, v T) error {
	return d.dependencyObject().SetValue(p, v)
}

// valuesEqual compares by value: == for dynamically comparable values of the
// same type, reflect.DeepEqual otherwise. NaN equals NaN, also inside structs
// and arrays, so repeated NaN writes are no-ops.
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	return equalValues(va, vb)
}

func equalValues(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Float32, reflect.Float64:
		return equalFloats(a.Float(), b.Float())
	case reflect.Complex64, reflect.Complex128:
		x, y := a.Complex(), b.Complex()
		return equalFloats(real(x), real(y)) && equalFloats(imag(x), imag(y))
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		ea, eb := a.Elem(), b.Elem()
		return ea.Type() == eb.Type() && equalValues(ea, eb)
	case reflect.Struct:
		if a.Comparable() && b.Comparable() {
			for i := range a.NumField() {
				if !equalValues(a.Field(i), b.Field(i)) {
					return false
				}
			}
			return true
		}
	case reflect.Array:
		if a.Comparable() && b.Comparable() {
			for i := range a.Len() {
				if !equalValues(a.Index(i), b.Index(i)) {
					return false
				}
			}
			return true
		}
	}
	if a.Comparable() && b.Comparable() {
		return a.Equal(b)
	}
	if a.CanInterface() && b.CanInterface() {
		return reflect.DeepEqual(a.Interface(), b.Interface())
	}
	return false
}

func equalFloats(x, y float64) bool {
	return x == y || (math.IsNaN(x) && math.IsNaN(y))
}
