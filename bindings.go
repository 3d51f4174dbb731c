package trellis

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type bindingKey struct {
	source memberKey
	target memberKey
}

// BindingManager creates bindings and tracks the active ones. It rejects a
// second binding between the same two endpoints. Use one manager per scene
// or application; it is not safe for concurrent use.
type BindingManager struct {
	// Registry resolves dependency-property names in member paths.
	Registry *Registry
	// Converters supplies default converters when Bind gets none.
	Converters *ConverterTable

	set  map[bindingKey]*Binding
	list []*Binding
}

// NewBindingManager creates a manager resolving property names in reg (or
// DefaultRegistry when nil) with its own copy of DefaultConverters.
func NewBindingManager(reg *Registry) *BindingManager {
	if reg == nil {
		reg = DefaultRegistry
	}
	return &BindingManager{
		Registry:   reg,
		Converters: DefaultConverters.Clone(),
		set:        make(map[bindingKey]*Binding),
	}
}

// Bind resolves sourcePath on source and targetPath on target and binds them.
// conv may be nil to pick a converter from m.Converters. The binding starts
// with its caches holding the current endpoint values; nothing is written
// until a value changes, Synchronize sees a difference, or UpdateTarget is
// called.
func (m *BindingManager) Bind(source any, sourcePath string, target any, targetPath string, mode Mode, conv Converter) (*Binding, error) {
	if source == nil || isNilPointer(source) || target == nil || isNilPointer(target) {
		return nil, &BindingError{Op: "bind", Source: sourcePath, Target: targetPath, Err: ErrNilArgument}
	}
	src, err := ResolveMember(m.Registry, source, sourcePath)
	if err != nil {
		return nil, &BindingError{Op: "bind", Source: typeName(source) + "." + sourcePath, Target: typeName(target) + "." + targetPath, Err: err}
	}
	tgt, err := ResolveMember(m.Registry, target, targetPath)
	if err != nil {
		return nil, &BindingError{Op: "bind", Source: src.String(), Target: typeName(target) + "." + targetPath, Err: err}
	}
	return m.BindMembers(src, tgt, mode, conv)
}

// BindProperties binds dependency property sp of source to tp of target.
func (m *BindingManager) BindProperties(source DependencyObject, sp *Property, target DependencyObject, tp *Property, mode Mode, conv Converter) (*Binding, error) {
	if source == nil || target == nil || sp == nil || tp == nil {
		return nil, &BindingError{Op: "bind", Err: ErrNilArgument}
	}
	return m.BindMembers(PropertyMember(source, sp), PropertyMember(target, tp), mode, conv)
}

// MustBind is like Bind but panics on error.
func (m *BindingManager) MustBind(source any, sourcePath string, target any, targetPath string, mode Mode, conv Converter) *Binding {
	b, err := m.Bind(source, sourcePath, target, targetPath, mode, conv)
	if err != nil {
		panic(err.Error())
	}
	return b
}

// BindMembers binds two already resolved members.
func (m *BindingManager) BindMembers(src, tgt *Member, mode Mode, conv Converter) (*Binding, error) {
	if src == nil || tgt == nil {
		return nil, &BindingError{Op: "bind", Err: ErrNilArgument}
	}
	fail := func(err error) (*Binding, error) {
		return nil, &BindingError{Op: "bind", Source: src.String(), Target: tgt.String(), Err: err}
	}
	if mode != OneWay && mode != TwoWay {
		return fail(fmt.Errorf("%w: unknown mode %s", ErrBindingContract, mode))
	}
	if !src.CanRead() {
		return fail(fmt.Errorf("%w: source is not readable", ErrBindingContract))
	}
	if !tgt.CanWrite() {
		return fail(fmt.Errorf("%w: target is not writable", ErrBindingContract))
	}
	if mode == TwoWay {
		if !tgt.CanRead() {
			return fail(fmt.Errorf("%w: TwoWay target is not readable", ErrBindingContract))
		}
		if !src.CanWrite() {
			return fail(fmt.Errorf("%w: TwoWay source is not writable", ErrBindingContract))
		}
	}
	if src.Equal(tgt) {
		return fail(fmt.Errorf("%w: source and target are the same member", ErrBindingContract))
	}
	key := bindingKey{source: src.key(), target: tgt.key()}
	if existing, ok := m.set[key]; ok {
		return fail(fmt.Errorf("%w: %s", ErrDuplicateBinding, existing.id))
	}
	if conv == nil {
		c, err := m.Converters.Resolve(src.ValueType(), tgt.ValueType())
		if err != nil {
			return fail(err)
		}
		conv = c
	}

	b := &Binding{
		id:        uuid.New(),
		source:    src,
		target:    tgt,
		mode:      mode,
		converter: conv,
		manager:   m,
	}
	b.captureCaches()
	b.attach()
	if m.set == nil {
		m.set = make(map[bindingKey]*Binding)
	}
	m.set[key] = b
	m.list = append(m.list, b)
	logger.Debug("trellis: bound", zap.Stringer("binding", b))
	return b, nil
}

func (m *BindingManager) remove(b *Binding) {
	key := bindingKey{source: b.source.key(), target: b.target.key()}
	if m.set[key] == b {
		delete(m.set, key)
	}
	if i := slices.Index(m.list, b); i >= 0 {
		m.list = slices.Delete(m.list, i, i+1)
	}
}

// Unbind unbinds b. Same as b.Unbind.
func (m *BindingManager) Unbind(b *Binding) {
	if b != nil {
		b.Unbind()
	}
}

// UnbindObject unbinds every binding with obj (by identity) as the owner of
// its source or target and returns how many were removed. The registry is
// swept once.
func (m *BindingManager) UnbindObject(obj any) int {
	if obj == nil {
		return 0
	}
	n := 0
	kept := m.list[:0]
	for _, b := range m.list {
		if !b.touches(obj) {
			kept = append(kept, b)
			continue
		}
		b.detach()
		delete(m.set, bindingKey{source: b.source.key(), target: b.target.key()})
		n++
	}
	clear(m.list[len(kept):])
	m.list = kept
	return n
}

// UnbindAll unbinds every binding of the manager.
func (m *BindingManager) UnbindAll() {
	for _, b := range m.list {
		b.detach()
	}
	clear(m.list)
	m.list = m.list[:0]
	clear(m.set)
}

// Len returns the number of active bindings.
func (m *BindingManager) Len() int {
	return len(m.list)
}

// Bindings returns the active bindings in creation order.
func (m *BindingManager) Bindings() []*Binding {
	return slices.Clone(m.list)
}

// Lookup returns the active binding between the two members, if any.
func (m *BindingManager) Lookup(src, tgt *Member) (*Binding, bool) {
	b, ok := m.set[bindingKey{source: src.key(), target: tgt.key()}]
	return b, ok
}

// SynchronizeAll calls Synchronize on every active binding and returns the
// first error.
func (m *BindingManager) SynchronizeAll() error {
	var first error
	for _, b := range slices.Clone(m.list) {
		if err := b.Synchronize(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type disposable interface {
	IsDisposed() bool
}

// Leaks returns the active bindings that still reference a disposed
// endpoint. Such bindings pin the endpoint in memory until unbound.
func (m *BindingManager) Leaks() []*Binding {
	var out []*Binding
	for _, b := range m.list {
		if isDisposed(b.source.Owner()) || isDisposed(b.target.Owner()) {
			out = append(out, b)
		}
	}
	return out
}

func isDisposed(v any) bool {
	d, ok := v.(disposable)
	return ok && d.IsDisposed()
}
