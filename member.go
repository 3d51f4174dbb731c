package trellis

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// MemberKind tells how a Member reaches its value.
type MemberKind uint8

const (
	MemberProperty MemberKind = iota // dependency property of a dependency object
	MemberField                      // exported struct field
	MemberMethod                     // Name()/SetName(v) method pair
	MemberAccessor                   // explicit Accessor supplied by the owner
	MemberStatic                     // package-level variable, no target object
)

// Accessor is an explicit get/set pair for one member. Get or Set may be nil
// for write-only or read-only members.
type Accessor struct {
	Type reflect.Type
	Get  func() any
	Set  func(any)
}

// AccessorProvider lets a type expose members without reflection. It is
// consulted before struct fields and methods.
type AccessorProvider interface {
	Accessor(name string) (Accessor, bool)
}

// Member is a uniform get/set view of one bindable member: a dependency
// property, a struct field, a getter/setter method pair, an explicit
// Accessor, or a package-level variable. Readability and writability are
// fixed at construction.
type Member struct {
	kind      MemberKind
	target    any // identity of the owning object; the pointer for statics
	owner     any // owning object as given by the caller, nil for statics
	name      string
	path      string
	valueType reflect.Type
	readable  bool
	writable  bool

	obj  *Object
	prop *Property

	notifier PropertyNotifier

	// field is the addressed struct field for MemberField members.
	field reflect.Value

	get func() any
	set func(any) error
}

// Kind returns how the member is accessed.
func (m *Member) Kind() MemberKind { return m.kind }

// Name returns the member name (the last path segment, or the property name).
func (m *Member) Name() string { return m.name }

// Path returns the path the member was resolved from.
func (m *Member) Path() string { return m.path }

// ValueType returns the member's static type.
func (m *Member) ValueType() reflect.Type { return m.valueType }

// CanRead reports whether Value may be called.
func (m *Member) CanRead() bool { return m.readable }

// CanWrite reports whether SetValue may be called.
func (m *Member) CanWrite() bool { return m.writable }

// Owner returns the object owning the member, or nil for static members.
func (m *Member) Owner() any { return m.owner }

// Property returns the dependency property for MemberProperty members.
func (m *Member) Property() *Property { return m.prop }

// Value reads the member. Returns nil for members that cannot be read.
func (m *Member) Value() any {
	if !m.readable {
		return nil
	}
	return m.get()
}

// SetValue writes the member. Dependency-property members validate through
// the property system; other members only check type assignability.
func (m *Member) SetValue(v any) error {
	if !m.writable {
		return fmt.Errorf("%w: %s is not writable", ErrBindingContract, m)
	}
	return m.set(v)
}

// Equal reports whether both members address the same object (by identity),
// member name and value type.
func (m *Member) Equal(o *Member) bool {
	return m.key() == o.key()
}

type memberKey struct {
	target any
	name   string
	typ    reflect.Type
}

func (m *Member) key() memberKey {
	name := m.name
	if m.prop != nil {
		name = m.prop.String()
	}
	return memberKey{target: m.target, name: name, typ: m.valueType}
}

// refersTo reports whether m is property p of o.
func (m *Member) refersTo(o *Object, p *Property) bool {
	return m.obj == o && m.prop == p
}

// touches reports whether obj is the member's owner, by identity.
func (m *Member) touches(obj any) bool {
	if m.owner == nil || obj == nil {
		return false
	}
	if d, ok := obj.(DependencyObject); ok && m.obj != nil {
		return m.obj == d.dependencyObject()
	}
	id, ok := ownerIdentity(obj)
	return ok && m.target == id
}

// ownerRef identifies a map, slice or func owner by its data pointer.
type ownerRef struct {
	typ reflect.Type
	ptr uintptr
}

// ownerIdentity returns a comparable key standing for v. Values that are
// neither comparable nor reference-like have no identity.
func ownerIdentity(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return ownerRef{typ: rv.Type(), ptr: rv.Pointer()}, true
	}
	if !rv.Comparable() {
		return nil, false
	}
	return v, true
}

func (m *Member) String() string {
	if m.kind == MemberStatic {
		return "static." + m.name
	}
	if m.prop != nil {
		return typeName(m.owner) + "." + m.prop.Name()
	}
	return typeName(m.owner) + "." + m.path
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}

// PropertyMember returns a member for dependency property p of d. It is
// always readable and writable.
func PropertyMember(d DependencyObject, p *Property) *Member {
	o := d.dependencyObject()
	return &Member{
		kind:      MemberProperty,
		target:    o,
		owner:     o.outer(),
		name:      p.Name(),
		path:      p.Name(),
		valueType: p.ValueType(),
		readable:  true,
		writable:  true,
		obj:       o,
		prop:      p,
		get:       func() any { return o.GetValue(p) },
		set:       func(v any) error { return o.SetValue(p, v) },
	}
}

// StaticMember returns a member for the variable ptr points to. The member
// has no target object.
func StaticMember(name string, ptr any) (*Member, error) {
	rv := reflect.ValueOf(ptr)
	if ptr == nil || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("%w: static member %q needs a non-nil pointer", ErrNilArgument, name)
	}
	elem := rv.Elem()
	return &Member{
		kind:      MemberStatic,
		target:    ptr,
		name:      name,
		path:      name,
		valueType: elem.Type(),
		readable:  true,
		writable:  true,
		get:       func() any { return elem.Interface() },
		set:       func(v any) error { return assignValue(elem, v) },
	}, nil
}

// AccessorMember returns a member backed by an explicit Accessor owned by
// owner.
func AccessorMember(owner any, name string, a Accessor) (*Member, error) {
	if owner == nil {
		return nil, fmt.Errorf("%w: accessor owner", ErrNilArgument)
	}
	if a.Type == nil {
		return nil, fmt.Errorf("%w: accessor %q has no type", ErrInvalidOperation, name)
	}
	id, ok := ownerIdentity(owner)
	if !ok {
		return nil, fmt.Errorf("%w: accessor owner %T has no identity; pass a pointer", ErrInvalidOperation, owner)
	}
	m := &Member{
		kind:      MemberAccessor,
		target:    id,
		owner:     owner,
		name:      name,
		path:      name,
		valueType: a.Type,
		readable:  a.Get != nil,
		writable:  a.Set != nil,
		get:       a.Get,
	}
	if a.Set != nil {
		m.set = func(v any) error {
			cv, err := conformValue(v, a.Type)
			if err != nil {
				return err
			}
			a.Set(cv)
			return nil
		}
	}
	m.notifier, _ = owner.(PropertyNotifier)
	return m, nil
}

// ResolveMember resolves path on obj. A path is a member name or a dotted
// chain of names ("Stats.Health"); intermediate segments are read once, at
// resolution time. On a dependency object, a segment naming a registered
// property (searched in reg, ancestors included) resolves to that property.
// Otherwise an Accessor, an exported field, or a Name()/SetName(v) method pair
// is used, in that order.
func ResolveMember(reg *Registry, obj any, path string) (*Member, error) {
	if obj == nil {
		return nil, fmt.Errorf("%w: object for %q", ErrNilArgument, path)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path on %s", ErrMissingMember, typeName(obj))
	}
	segments := strings.Split(path, ".")
	owner := obj
	for i, seg := range segments[:len(segments)-1] {
		m, err := resolveSegment(reg, owner, seg)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", strings.Join(segments[:i+1], "."), err)
		}
		if !m.readable {
			return nil, fmt.Errorf("%w: %s is not readable", ErrMissingMember, m)
		}
		var next any
		if m.field.IsValid() && m.field.Kind() == reflect.Struct && m.field.CanAddr() {
			// struct values are walked in place so writes reach the owner
			next = m.field.Addr().Interface()
		} else {
			next = m.Value()
		}
		if next == nil || isNilPointer(next) {
			return nil, fmt.Errorf("%w: %s is nil", ErrMissingMember, m)
		}
		owner = next
	}
	m, err := resolveSegment(reg, owner, segments[len(segments)-1])
	if err != nil {
		return nil, err
	}
	m.path = path
	return m, nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func resolveSegment(reg *Registry, owner any, name string) (*Member, error) {
	if d, ok := owner.(DependencyObject); ok && reg != nil {
		p, err := reg.Search(name, reflect.TypeOf(d.dependencyObject().outer()))
		if err == nil {
			return PropertyMember(d, p), nil
		}
		if !errors.Is(err, ErrMissingProperty) {
			return nil, err
		}
	}
	if ap, ok := owner.(AccessorProvider); ok {
		if a, ok := ap.Accessor(name); ok {
			return AccessorMember(owner, name, a)
		}
	}
	return reflectMember(owner, name)
}

// reflectMember resolves an exported field or method pair on a pointer to a
// struct. Fields tagged `bind:"-"` are hidden and `bind:"readonly"` are not
// writable.
func reflectMember(owner any, name string) (*Member, error) {
	rv := reflect.ValueOf(owner)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return nil, fmt.Errorf("%w: %s.%s: owner must be a non-nil pointer", ErrMissingMember, typeName(owner), name)
	}
	m := &Member{
		target: owner,
		owner:  owner,
		name:   name,
		path:   name,
	}
	m.notifier, _ = owner.(PropertyNotifier)

	elem := rv.Elem()
	if elem.Kind() == reflect.Struct {
		if sf, ok := elem.Type().FieldByName(name); ok && sf.IsExported() && sf.Tag.Get("bind") != "-" {
			fv, err := elem.FieldByIndexErr(sf.Index)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %v", ErrMissingMember, typeName(owner), name, err)
			}
			m.kind = MemberField
			m.field = fv
			m.valueType = sf.Type
			m.readable = true
			m.writable = fv.CanSet() && sf.Tag.Get("bind") != "readonly"
			m.get = func() any { return fv.Interface() }
			m.set = func(v any) error { return assignValue(fv, v) }
			return m, nil
		}
	}

	getter := methodByName(rv, name)
	if !getter.IsValid() {
		getter = methodByName(rv, "Get"+name)
	}
	if getter.IsValid() && (getter.Type().NumIn() != 0 || getter.Type().NumOut() != 1) {
		getter = reflect.Value{}
	}
	setter := methodByName(rv, "Set"+name)
	if setter.IsValid() && !isSetterSignature(setter.Type()) {
		setter = reflect.Value{}
	}
	if !getter.IsValid() && !setter.IsValid() {
		return nil, fmt.Errorf("%w: %s has no member %s", ErrMissingMember, typeName(owner), name)
	}
	if getter.IsValid() && setter.IsValid() && getter.Type().Out(0) != setter.Type().In(0) {
		return nil, fmt.Errorf("%w: %s.%s getter and setter types differ", ErrMissingMember, typeName(owner), name)
	}

	m.kind = MemberMethod
	if getter.IsValid() {
		m.valueType = getter.Type().Out(0)
		m.readable = true
		m.get = func() any { return getter.Call(nil)[0].Interface() }
	}
	if setter.IsValid() {
		m.valueType = setter.Type().In(0)
		m.writable = true
		m.set = func(v any) error {
			cv, err := conformValue(v, m.valueType)
			if err != nil {
				return err
			}
			arg := reflect.Zero(m.valueType)
			if cv != nil {
				arg = reflect.ValueOf(cv)
			}
			out := setter.Call([]reflect.Value{arg})
			if len(out) == 1 && !out[0].IsNil() {
				return out[0].Interface().(error)
			}
			return nil
		}
	}
	return m, nil
}

func methodByName(rv reflect.Value, name string) reflect.Value {
	if _, ok := rv.Type().MethodByName(name); !ok {
		return reflect.Value{}
	}
	return rv.MethodByName(name)
}

var errorType = reflect.TypeFor[error]()

func isSetterSignature(t reflect.Type) bool {
	if t.NumIn() != 1 {
		return false
	}
	switch t.NumOut() {
	case 0:
		return true
	case 1:
		return t.Out(0) == errorType
	}
	return false
}

// assignValue stores v into the settable value dst.
func assignValue(dst reflect.Value, v any) error {
	cv, err := conformValue(v, dst.Type())
	if err != nil {
		return err
	}
	if cv == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	dst.Set(reflect.ValueOf(cv))
	return nil
}

// conformValue returns v as a value of type t: unchanged when its type is t,
// converted when assignable or when a numeric conversion is lossless. nil is
// accepted for nillable types.
func conformValue(v any, t reflect.Type) (any, error) {
	if v == nil {
		if !isNillable(t) {
			return nil, fmt.Errorf("%w: nil for non-nillable type %s", ErrInvalidValue, t)
		}
		return reflect.Zero(t).Interface(), nil
	}
	rv := reflect.ValueOf(v)
	rt := rv.Type()
	switch {
	case rt == t:
		return v, nil
	case rt.AssignableTo(t):
		if t.Kind() == reflect.Interface {
			return v, nil
		}
		return rv.Convert(t).Interface(), nil
	case isNumeric(rt) && isNumeric(t):
		cv := rv.Convert(t)
		if cv.Convert(rt).Interface() != v {
			return nil, fmt.Errorf("%w: %v does not fit %s", ErrInvalidValue, v, t)
		}
		return cv.Interface(), nil
	}
	return nil, fmt.Errorf("%w: %s is not assignable to %s", ErrInvalidValue, rt, t)
}
