package trellis

import (
	"fmt"
	"reflect"
)

type propertyKey struct {
	owner *TypeNode
	name  string
}

// Registry is the table of property identities keyed by (owner type, name),
// together with the TypeIndex used to resolve owner hierarchies.
// Not safe for concurrent use; registration normally happens from package
// initialization on the UI goroutine.
type Registry struct {
	types   *TypeIndex
	props   map[propertyKey]*Property
	byOwner map[*TypeNode][]*Property
}

// DefaultRegistry is the process-wide registry used by Element and by the
// package-level Register functions.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry with its own TypeIndex.
func NewRegistry() *Registry {
	return &Registry{
		types:   NewTypeIndex(),
		props:   make(map[propertyKey]*Property),
		byOwner: make(map[*TypeNode][]*Property),
	}
}

// Types returns the registry's type hierarchy index.
func (r *Registry) Types() *TypeIndex {
	return r.types
}

// Len returns the number of registered properties.
func (r *Registry) Len() int {
	return len(r.props)
}

// Register declares a property named name with the given value type on
// ownerType. md may be nil, in which case the default value is the zero value
// of valueType. validate may be nil.
func (r *Registry) Register(name string, valueType, ownerType reflect.Type, md *Metadata, validate ValidateFunc) (*Property, error) {
	return r.register(name, valueType, ownerType, md, validate, false)
}

// RegisterAttached declares a property usable on any dependency object. Its
// metadata can never be overridden.
func (r *Registry) RegisterAttached(name string, valueType, ownerType reflect.Type, md *Metadata, validate ValidateFunc) (*Property, error) {
	return r.register(name, valueType, ownerType, md, validate, true)
}

// MustRegister is like Register but panics on error. Intended for
// package-level property variables.
func (r *Registry) MustRegister(name string, valueType, ownerType reflect.Type, md *Metadata, validate ValidateFunc) *Property {
	p, err := r.Register(name, valueType, ownerType, md, validate)
	if err != nil {
		panic(err.Error())
	}
	return p
}

// MustRegisterAttached is like RegisterAttached but panics on error.
func (r *Registry) MustRegisterAttached(name string, valueType, ownerType reflect.Type, md *Metadata, validate ValidateFunc) *Property {
	p, err := r.RegisterAttached(name, valueType, ownerType, md, validate)
	if err != nil {
		panic(err.Error())
	}
	return p
}

func (r *Registry) register(name string, valueType, ownerType reflect.Type, md *Metadata, validate ValidateFunc, attached bool) (*Property, error) {
	if valueType == nil || ownerType == nil {
		return nil, &PropertyError{Op: "register", Name: name, Err: ErrNilArgument}
	}
	if name == "" {
		return nil, &PropertyError{Op: "register", Err: fmt.Errorf("%w: empty property name", ErrInvalidOperation)}
	}
	owner := r.types.From(ownerType)
	if !attached && !owner.IsA(r.types.Root()) {
		return nil, &PropertyError{Op: "register", Owner: owner.Name(), Name: name,
			Err: fmt.Errorf("%w: owner type does not embed Object", ErrInvalidOperation)}
	}
	key := propertyKey{owner: owner, name: name}
	if _, exists := r.props[key]; exists {
		return nil, &PropertyError{Op: "register", Owner: owner.Name(), Name: name, Err: ErrDuplicateRegistration}
	}
	if md == nil {
		md = EmptyMetadata()
	}
	if md.sealed {
		return nil, &PropertyError{Op: "register", Owner: owner.Name(), Name: name,
			Err: fmt.Errorf("%w: metadata is already in use", ErrInvalidOperation)}
	}

	p := &Property{
		name:            name,
		valueType:       valueType,
		owner:           owner,
		reg:             r,
		attached:        attached,
		validate:        validate,
		defaultMetadata: md,
	}
	if md.hasDefault {
		v, err := p.validateValue(md.defaultValue)
		if err != nil {
			return nil, &PropertyError{Op: "register", Owner: owner.Name(), Name: name,
				Value: md.defaultValue, Err: fmt.Errorf("%w: %v", ErrInvalidDefaultValue, err)}
		}
		md.defaultValue = v
	} else {
		zero := reflect.Zero(valueType).Interface()
		if validate != nil && !validate(zero) {
			return nil, &PropertyError{Op: "register", Owner: owner.Name(), Name: name,
				Value: zero, Err: fmt.Errorf("%w: zero value rejected by validator", ErrInvalidDefaultValue)}
		}
		md.defaultValue = zero
		md.hasDefault = true
	}
	md.seal()

	r.props[key] = p
	r.byOwner[owner] = append(r.byOwner[owner], p)
	return p, nil
}

// Search finds the property called name declared on ownerType or the nearest
// of its ancestors.
func (r *Registry) Search(name string, ownerType reflect.Type) (*Property, error) {
	return r.SearchNode(name, r.types.From(ownerType))
}

// SearchNode is Search starting from an already resolved type node.
func (r *Registry) SearchNode(name string, owner *TypeNode) (*Property, error) {
	for n := owner; n != nil; n = n.base {
		if p, ok := r.props[propertyKey{owner: n, name: name}]; ok {
			return p, nil
		}
	}
	return nil, &PropertyError{Op: "search", Owner: owner.Name(), Name: name, Err: ErrMissingProperty}
}

// Properties returns the properties declared directly on ownerType, in
// registration order.
func (r *Registry) Properties(ownerType reflect.Type) []*Property {
	props := r.byOwner[r.types.From(ownerType)]
	out := make([]*Property, len(props))
	copy(out, props)
	return out
}

// Register declares a property on DefaultRegistry.
func Register(name string, valueType, ownerType reflect.Type, md *Metadata, validate ValidateFunc) (*Property, error) {
	return DefaultRegistry.Register(name, valueType, ownerType, md, validate)
}

// RegisterAttached declares an attached property on DefaultRegistry.
func RegisterAttached(name string, valueType, ownerType reflect.Type, md *Metadata, validate ValidateFunc) (*Property, error) {
	return DefaultRegistry.RegisterAttached(name, valueType, ownerType, md, validate)
}

// MustRegister declares a property on DefaultRegistry, panicking on error.
func MustRegister(name string, valueType, ownerType reflect.Type, md *Metadata, validate ValidateFunc) *Property {
	return DefaultRegistry.MustRegister(name, valueType, ownerType, md, validate)
}

// MustRegisterAttached declares an attached property on DefaultRegistry,
// panicking on error.
func MustRegisterAttached(name string, valueType, ownerType reflect.Type, md *Metadata, validate ValidateFunc) *Property {
	return DefaultRegistry.MustRegisterAttached(name, valueType, ownerType, md, validate)
}
