package trellis

import (
	"fmt"
	"reflect"
	"slices"

	"gopkg.in/yaml.v3"
)

// Theme is a set of per-type default values, keyed by type name and property
// name:
//
//	Button:
//	  Width: 120
//	  Color: "#3a7bd5"
//	Label:
//	  Alpha: 0.8
type Theme struct {
	Types map[string]map[string]any
}

// LoadTheme parses a YAML theme document.
func LoadTheme(data []byte) (*Theme, error) {
	var t Theme
	if err := yaml.Unmarshal(data, &t.Types); err != nil {
		return nil, fmt.Errorf("parse theme: %w", err)
	}
	return &t, nil
}

// Apply overrides the metadata default of every listed property for every
// listed type in reg. Values that do not already have the property's type go
// through conv (DefaultConverters when nil). Types must already be known to
// the registry and must derive from the property's declaring type; a type
// cannot be themed twice for the same property.
func (t *Theme) Apply(reg *Registry, conv *ConverterTable) error {
	if conv == nil {
		conv = DefaultConverters
	}
	for _, typeName := range sortedKeys(t.Types) {
		node, ok := reg.Types().Lookup(typeName)
		if !ok {
			return fmt.Errorf("apply theme: %w: unknown type %q", ErrInvalidOperation, typeName)
		}
		props := t.Types[typeName]
		for _, name := range sortedKeys(props) {
			p, err := reg.SearchNode(name, node)
			if err != nil {
				return fmt.Errorf("apply theme: %w", err)
			}
			v, err := documentValue(props[name], p.ValueType(), conv)
			if err != nil {
				return fmt.Errorf("apply theme: %w", propertyError("theme", p, props[name], err))
			}
			if err := p.OverrideMetadata(node.Type(), NewMetadata(v)); err != nil {
				return fmt.Errorf("apply theme %s: %w", typeName, err)
			}
		}
	}
	return nil
}

// documentValue converts a loosely typed YAML value to type to.
func documentValue(raw any, to reflect.Type, conv *ConverterTable) (any, error) {
	if v, err := conformValue(raw, to); err == nil {
		return v, nil
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: null for %s", ErrInvalidValue, to)
	}
	c, err := conv.Resolve(reflect.TypeOf(raw), to)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return raw, nil
	}
	v := c.Convert(raw)
	if IsUnset(v) {
		return nil, fmt.Errorf("%w: cannot convert %v to %s", ErrInvalidValue, raw, to)
	}
	return v, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
