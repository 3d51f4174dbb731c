package trellis

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrDuplicateRegistration = errors.New("duplicate property registration")
	ErrInvalidDefaultValue   = errors.New("invalid default value")
	ErrInvalidOperation      = errors.New("invalid operation")
	ErrMissingProperty       = errors.New("missing property")
	ErrMissingMember         = errors.New("missing member")
	ErrInvalidValue          = errors.New("invalid value")
	ErrInvalidCoercedValue   = errors.New("invalid coerced value")
	ErrNilArgument           = errors.New("nil argument")
	ErrBindingContract       = errors.New("binding contract violation")
	ErrDuplicateBinding      = errors.New("duplicate binding")
	ErrNoConverter           = errors.New("no converter available")
)

// PropertyError reports a failure involving a dependency property. Owner and
// Name identify the property; Value is the offending value when there is one.
type PropertyError struct {
	Op    string
	Owner string
	Name  string
	Value any
	Err   error
}

func (e *PropertyError) Error() string {
	id := e.Name
	if e.Owner != "" {
		id = e.Owner + "." + e.Name
	}
	if e.Value != nil {
		return fmt.Sprintf("trellis: %s %s: %v (value %#v)", e.Op, id, e.Err, e.Value)
	}
	return fmt.Sprintf("trellis: %s %s: %v", e.Op, id, e.Err)
}

func (e *PropertyError) Unwrap() error { return e.Err }

func propertyError(op string, p *Property, value any, err error) *PropertyError {
	return &PropertyError{Op: op, Owner: p.OwnerType().Name(), Name: p.Name(), Value: value, Err: err}
}

// BindingError reports a failure creating or driving a binding. Source and
// Target describe the two endpoints as "Type.Member".
type BindingError struct {
	Op     string
	Source string
	Target string
	Err    error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("trellis: %s %s -> %s: %v", e.Op, e.Source, e.Target, e.Err)
}

func (e *BindingError) Unwrap() error { return e.Err }
