package trellis

import (
	"fmt"
	"reflect"
	"slices"
)

// ValidateFunc is an optional per-property value predicate. It sees values
// that already passed the type check.
type ValidateFunc func(value any) bool

// Property is the identity of a dependency property: a (name, owner type)
// pair with a value type, default metadata, and per-type metadata overrides.
// Properties are created through a Registry and never destroyed.
type Property struct {
	name      string
	valueType reflect.Type
	owner     *TypeNode
	reg       *Registry
	attached  bool
	validate  ValidateFunc

	defaultMetadata *Metadata
	overrides       []metadataOverride // most derived first

	// generation is bumped by every override; cache entries computed under an
	// older generation are stale.
	generation uint64
	cache      map[*TypeNode]cachedMetadata
}

type metadataOverride struct {
	typ *TypeNode
	md  *Metadata
}

type cachedMetadata struct {
	md  *Metadata
	gen uint64
}

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// ValueType returns the declared value type.
func (p *Property) ValueType() reflect.Type { return p.valueType }

// OwnerType returns the declaring type's node.
func (p *Property) OwnerType() *TypeNode { return p.owner }

// IsAttached reports whether the property was registered as attached.
func (p *Property) IsAttached() bool { return p.attached }

// Registry returns the registry the property belongs to.
func (p *Property) Registry() *Registry { return p.reg }

// DefaultMetadata returns the metadata supplied at registration.
func (p *Property) DefaultMetadata() *Metadata { return p.defaultMetadata }

func (p *Property) String() string {
	return p.owner.Name() + "." + p.name
}

// Metadata returns the metadata in effect for instances of t: the override
// registered for the most derived ancestor of t (t included), or the default
// metadata. Attached properties always use the default metadata.
func (p *Property) Metadata(t *TypeNode) *Metadata {
	if t == nil || p.attached || len(p.overrides) == 0 {
		return p.defaultMetadata
	}
	if c, ok := p.cache[t]; ok && c.gen == p.generation {
		return c.md
	}
	md := p.defaultMetadata
	for _, o := range p.overrides {
		if t.IsA(o.typ) {
			md = o.md
			break
		}
	}
	if p.cache == nil {
		p.cache = make(map[*TypeNode]cachedMetadata)
	}
	p.cache[t] = cachedMetadata{md: md, gen: p.generation}
	return md
}

// MetadataOf returns the metadata in effect for the dynamic type of d.
func (p *Property) MetadataOf(d DependencyObject) *Metadata {
	return p.Metadata(p.reg.types.From(reflect.TypeOf(d.dependencyObject().outer())))
}

// MetadataFor returns the metadata in effect for the Go type t.
func (p *Property) MetadataFor(t reflect.Type) *Metadata {
	return p.Metadata(p.reg.types.From(t))
}

// Overrides returns the types that override this property's metadata, most
// derived first.
func (p *Property) Overrides() []*TypeNode {
	out := make([]*TypeNode, len(p.overrides))
	for i, o := range p.overrides {
		out[i] = o.typ
	}
	return out
}

// OverrideMetadata installs md as the metadata for ownerType and the types
// deriving from it. md is merged with the metadata currently in effect for
// ownerType and sealed. Fails for attached properties, already sealed
// metadata, a type that does not derive from the declaring type, or a type
// that already has an override.
func (p *Property) OverrideMetadata(ownerType reflect.Type, md *Metadata) error {
	if md == nil {
		return propertyError("override metadata", p, nil, ErrNilArgument)
	}
	if p.attached {
		return propertyError("override metadata", p, nil,
			fmt.Errorf("%w: attached property metadata cannot be overridden", ErrInvalidOperation))
	}
	if md.sealed {
		return propertyError("override metadata", p, nil,
			fmt.Errorf("%w: metadata is already in use", ErrInvalidOperation))
	}
	node := p.reg.types.From(ownerType)
	if !node.IsSubclassOf(p.owner) {
		return propertyError("override metadata", p, nil,
			fmt.Errorf("%w: %s does not derive from %s", ErrInvalidOperation, node.Name(), p.owner.Name()))
	}
	for _, o := range p.overrides {
		if o.typ == node {
			return propertyError("override metadata", p, nil,
				fmt.Errorf("%w: %s already overrides this property", ErrInvalidOperation, node.Name()))
		}
	}
	if md.hasDefault {
		v, err := p.validateValue(md.defaultValue)
		if err != nil {
			return propertyError("override metadata", p, md.defaultValue, ErrInvalidDefaultValue)
		}
		md.defaultValue = v
	}

	parent := p.Metadata(node)
	md.merge(parent)
	parent.seal()
	md.seal()

	p.overrides = append(p.overrides, metadataOverride{typ: node, md: md})
	slices.SortStableFunc(p.overrides, func(a, b metadataOverride) int {
		return CompareTypeNodes(a.typ, b.typ)
	})
	p.generation++
	return nil
}

// MustOverrideMetadata is like OverrideMetadata but panics on error.
func (p *Property) MustOverrideMetadata(ownerType reflect.Type, md *Metadata) {
	if err := p.OverrideMetadata(ownerType, md); err != nil {
		panic(err.Error())
	}
}

// IsValidValue reports whether v would be accepted by SetValue without
// coercion.
func (p *Property) IsValidValue(v any) bool {
	_, err := p.validateValue(v)
	return err == nil
}

// validateValue type-checks v against the value type and runs the custom
// validator. It returns v normalized to the value type: unnamed values are
// converted to the declared named type and numeric values are converted when
// the conversion is lossless.
func (p *Property) validateValue(v any) (any, error) {
	v, err := conformValue(v, p.valueType)
	if err != nil {
		return nil, err
	}
	if p.validate != nil && !p.validate(v) {
		return nil, fmt.Errorf("%w: rejected by validator", ErrInvalidValue)
	}
	return v, nil
}

func isNillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func isNumeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
