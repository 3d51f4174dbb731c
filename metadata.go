package trellis

// PropertyChange carries the data of one committed value change. It is passed
// to metadata changed callbacks and to Object.OnPropertyChanged.
type PropertyChange struct {
	Object   DependencyObject
	Property *Property
	Metadata *Metadata
	OldValue any
	NewValue any
}

// ChangedCallback is invoked synchronously after a change is committed.
type ChangedCallback func(PropertyChange)

// CoerceCallback adjusts a value that failed validation into one that may
// pass. The result is validated again before commit.
type CoerceCallback func(d DependencyObject, value any) any

// CallbackID identifies a changed callback registered on a Metadata.
type CallbackID uint32

type changedHandler struct {
	id CallbackID
	fn ChangedCallback
}

// Metadata holds the per-type policy of a property: default value, coercion
// and changed callbacks. It is mutable until sealed; sealing happens when the
// metadata is attached to a property (registration or override) or inherited
// by an override.
type Metadata struct {
	defaultValue any
	hasDefault   bool
	coerce       CoerceCallback
	changed      []changedHandler
	nextID       CallbackID
	sealed       bool
}

// NewMetadata creates metadata with the given default value.
func NewMetadata(defaultValue any) *Metadata {
	return &Metadata{defaultValue: defaultValue, hasDefault: true}
}

// EmptyMetadata creates metadata with no default value. When used as an
// override the default is inherited from the base type's metadata.
func EmptyMetadata() *Metadata {
	return &Metadata{}
}

// Default returns the default value.
func (m *Metadata) Default() any { return m.defaultValue }

// HasDefault reports whether a default value was set (directly or inherited).
func (m *Metadata) HasDefault() bool { return m.hasDefault }

// CoerceFunc returns the coercion callback, or nil.
func (m *Metadata) CoerceFunc() CoerceCallback { return m.coerce }

// IsSealed reports whether the metadata can no longer be modified.
func (m *Metadata) IsSealed() bool { return m.sealed }

// NumChangedCallbacks returns the number of changed callbacks, inherited ones
// included.
func (m *Metadata) NumChangedCallbacks() int { return len(m.changed) }

// SetDefault sets the default value. Panics if sealed.
func (m *Metadata) SetDefault(v any) *Metadata {
	m.mustBeMutable("SetDefault")
	m.defaultValue = v
	m.hasDefault = true
	return m
}

// WithCoerce sets the coercion callback. Panics if sealed.
func (m *Metadata) WithCoerce(fn CoerceCallback) *Metadata {
	m.mustBeMutable("WithCoerce")
	m.coerce = fn
	return m
}

// OnChanged appends a changed callback and returns m for chaining. Panics if
// sealed.
func (m *Metadata) OnChanged(fn ChangedCallback) *Metadata {
	m.AddChangedCallback(fn)
	return m
}

// AddChangedCallback appends a changed callback and returns a handle for
// RemoveChangedCallback. Panics if sealed.
func (m *Metadata) AddChangedCallback(fn ChangedCallback) CallbackID {
	m.mustBeMutable("AddChangedCallback")
	if fn == nil {
		panic("trellis: nil changed callback")
	}
	m.nextID++
	m.changed = append(m.changed, changedHandler{id: m.nextID, fn: fn})
	return m.nextID
}

// RemoveChangedCallback removes a callback added with AddChangedCallback.
// Reports whether it was found. Panics if sealed.
func (m *Metadata) RemoveChangedCallback(id CallbackID) bool {
	m.mustBeMutable("RemoveChangedCallback")
	for i, h := range m.changed {
		if h.id == id {
			m.changed = append(m.changed[:i], m.changed[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Metadata) mustBeMutable(op string) {
	if m.sealed {
		panic("trellis: " + op + " on sealed metadata")
	}
}

func (m *Metadata) seal() {
	m.sealed = true
}

// merge folds the effective parent metadata into m. The default and coercion
// are inherited only when m left them unset; changed callbacks are combined,
// parent's first.
func (m *Metadata) merge(parent *Metadata) {
	if parent == nil {
		return
	}
	if !m.hasDefault {
		m.defaultValue = parent.defaultValue
		m.hasDefault = parent.hasDefault
	}
	if m.coerce == nil {
		m.coerce = parent.coerce
	}
	if len(parent.changed) > 0 {
		combined := make([]changedHandler, 0, len(parent.changed)+len(m.changed))
		combined = append(combined, parent.changed...)
		combined = append(combined, m.changed...)
		m.changed = combined
	}
}

// notify runs the changed callbacks in registration order.
func (m *Metadata) notify(change PropertyChange) {
	for _, h := range m.changed {
		h.fn(change)
	}
}
