package trellis

import (
	"reflect"
)

var (
	objectType           = reflect.TypeFor[Object]()
	dependencyObjectType = reflect.TypeFor[DependencyObject]()
)

// TypeNode is the cached hierarchy entry for one concrete type. The base link
// follows struct embedding: a type's base is the first embedded field that is
// itself a dependency object (Object, or a struct embedding one).
type TypeNode struct {
	id    uint32
	typ   reflect.Type
	base  *TypeNode
	depth int
}

// Type returns the reflected (non-pointer) type this node describes.
func (n *TypeNode) Type() reflect.Type { return n.typ }

// Base returns the node of the nearest embedded dependency-object type, or nil
// for the root.
func (n *TypeNode) Base() *TypeNode { return n.base }

// Depth is the number of base links between n and its root.
func (n *TypeNode) Depth() int { return n.depth }

// Name returns the unqualified type name.
func (n *TypeNode) Name() string {
	if n == nil {
		return ""
	}
	if name := n.typ.Name(); name != "" {
		return name
	}
	return n.typ.String()
}

func (n *TypeNode) String() string { return n.typ.String() }

// IsSubclassOf reports whether other is a strict ancestor of n.
func (n *TypeNode) IsSubclassOf(other *TypeNode) bool {
	if n == nil || other == nil {
		return false
	}
	for b := n.base; b != nil; b = b.base {
		if b == other {
			return true
		}
	}
	return false
}

// IsA reports whether n is other or derives from it.
func (n *TypeNode) IsA(other *TypeNode) bool {
	return n == other || n.IsSubclassOf(other)
}

// CompareTypeNodes orders nodes by specificity: identical nodes compare equal,
// a subclass sorts before its ancestors, and unrelated nodes sort deeper first
// and then by creation order so the ordering is total.
func CompareTypeNodes(a, b *TypeNode) int {
	switch {
	case a == b:
		return 0
	case a.IsSubclassOf(b):
		return -1
	case b.IsSubclassOf(a):
		return 1
	case a.depth != b.depth:
		if a.depth > b.depth {
			return -1
		}
		return 1
	case a.id < b.id:
		return -1
	default:
		return 1
	}
}

// TypeIndex memoizes TypeNodes. Nodes are created on first request and live as
// long as the index. Not safe for concurrent use.
type TypeIndex struct {
	nodes  map[reflect.Type]*TypeNode
	byName map[string]*TypeNode
	nextID uint32
}

// NewTypeIndex creates an empty index.
func NewTypeIndex() *TypeIndex {
	return &TypeIndex{
		nodes:  make(map[reflect.Type]*TypeNode),
		byName: make(map[string]*TypeNode),
	}
}

// Root returns the node for Object, the root of every dependency-object
// hierarchy.
func (x *TypeIndex) Root() *TypeNode {
	return x.From(objectType)
}

// From returns the node for t, creating and linking it (and its bases) on
// first request. Pointer types are resolved to their element type.
func (x *TypeIndex) From(t reflect.Type) *TypeNode {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if n, ok := x.nodes[t]; ok {
		return n
	}
	var base *TypeNode
	if bt := embeddedBase(t); bt != nil {
		base = x.From(bt)
	}
	x.nextID++
	n := &TypeNode{id: x.nextID, typ: t, base: base}
	if base != nil {
		n.depth = base.depth + 1
	}
	x.nodes[t] = n
	if _, taken := x.byName[t.Name()]; !taken && t.Name() != "" {
		x.byName[t.Name()] = n
	}
	x.byName[t.String()] = n
	return n
}

// FromValue returns the node for the dynamic type of v.
func (x *TypeIndex) FromValue(v any) *TypeNode {
	return x.From(reflect.TypeOf(v))
}

// Lookup finds an already indexed type by its unqualified name ("Button") or
// its qualified name ("widgets.Button").
func (x *TypeIndex) Lookup(name string) (*TypeNode, bool) {
	n, ok := x.byName[name]
	return n, ok
}

// Len returns the number of indexed types.
func (x *TypeIndex) Len() int {
	return len(x.nodes)
}

// embeddedBase returns the type of the first anonymous field of t that is a
// dependency object, or nil when t is Object itself or embeds none.
func embeddedBase(t reflect.Type) reflect.Type {
	if t == objectType || t.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft == objectType {
			return ft
		}
		if ft.Kind() == reflect.Struct && reflect.PointerTo(ft).Implements(dependencyObjectType) {
			return ft
		}
	}
	return nil
}
