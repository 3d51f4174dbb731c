package trellis

import (
	"fmt"
	"maps"
	"reflect"
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Converter changes a value's representation between the source and target
// of a binding. Either direction may return Unset to skip the update.
type Converter interface {
	Convert(value any) any
	ConvertBack(value any) any
}

type unsetValue struct{}

func (unsetValue) String() string { return "Unset" }

// Unset is returned by a Converter to signal "no value": the binding leaves
// the other endpoint untouched.
var Unset any = unsetValue{}

// IsUnset reports whether v is the Unset sentinel.
func IsUnset(v any) bool {
	_, ok := v.(unsetValue)
	return ok
}

// ConverterFuncs adapts a pair of functions to Converter. A nil function
// converts to Unset.
type ConverterFuncs struct {
	To   func(any) any
	Back func(any) any
}

func (c ConverterFuncs) Convert(v any) any {
	if c.To == nil {
		return Unset
	}
	return c.To(v)
}

func (c ConverterFuncs) ConvertBack(v any) any {
	if c.Back == nil {
		return Unset
	}
	return c.Back(v)
}

// identityConverter passes values through unchanged.
type identityConverter struct{}

func (identityConverter) Convert(v any) any     { return v }
func (identityConverter) ConvertBack(v any) any { return v }

// Identity is a Converter that returns its input.
var Identity Converter = identityConverter{}

type converterKey struct {
	from, to reflect.Type
}

// ConverterTable maps (source type, target type) pairs to default converters.
type ConverterTable struct {
	m map[converterKey]Converter
}

// NewConverterTable creates an empty table.
func NewConverterTable() *ConverterTable {
	return &ConverterTable{m: make(map[converterKey]Converter)}
}

// Register installs c as the default converter from one type to another,
// replacing any previous entry.
func (t *ConverterTable) Register(from, to reflect.Type, c Converter) {
	t.m[converterKey{from, to}] = c
}

// RegisterPair installs c for from->to and its inverse for to->from.
func (t *ConverterTable) RegisterPair(from, to reflect.Type, c Converter) {
	t.Register(from, to, c)
	t.Register(to, from, inverseConverter{c})
}

// Clone returns a copy of t. Registering on the copy leaves t unchanged.
func (t *ConverterTable) Clone() *ConverterTable {
	m := maps.Clone(t.m)
	if m == nil {
		m = make(map[converterKey]Converter)
	}
	return &ConverterTable{m: m}
}

// Lookup returns the converter registered for the exact pair.
func (t *ConverterTable) Lookup(from, to reflect.Type) (Converter, bool) {
	c, ok := t.m[converterKey{from, to}]
	return c, ok
}

// Len returns the number of registered pairs.
func (t *ConverterTable) Len() int {
	return len(t.m)
}

// Resolve picks the converter for a binding from one type to another. It
// returns nil when the types are identical, or when one side is an interface
// the other satisfies (values are then checked on every write). Otherwise it
// uses the exact table entry, then the runtime conversion between basic kinds,
// and fails with ErrNoConverter when neither applies.
func (t *ConverterTable) Resolve(from, to reflect.Type) (Converter, error) {
	if from == to {
		return nil, nil
	}
	if (to.Kind() == reflect.Interface && from.AssignableTo(to)) ||
		(from.Kind() == reflect.Interface && to.AssignableTo(from)) {
		return nil, nil
	}
	if c, ok := t.Lookup(from, to); ok {
		return c, nil
	}
	if systemConvertible(from, to) {
		return systemConverter{from: from, to: to}, nil
	}
	return nil, fmt.Errorf("%w: %s to %s", ErrNoConverter, from, to)
}

type inverseConverter struct {
	c Converter
}

func (i inverseConverter) Convert(v any) any     { return i.c.ConvertBack(v) }
func (i inverseConverter) ConvertBack(v any) any { return i.c.Convert(v) }

// systemConverter converts between basic kinds (bool, numbers, strings) at
// runtime. Failed conversions are logged and yield Unset.
type systemConverter struct {
	from, to reflect.Type
}

func (s systemConverter) Convert(v any) any {
	return s.convert(v, s.to)
}

func (s systemConverter) ConvertBack(v any) any {
	return s.convert(v, s.from)
}

func (s systemConverter) convert(v any, to reflect.Type) any {
	out, err := ConvertBasic(v, to)
	if err != nil {
		logger.Warn("trellis: runtime conversion failed",
			zap.Stringer("to", to), zap.Any("value", v), zap.Error(err))
		return Unset
	}
	return out
}

func isBasicKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func systemConvertible(from, to reflect.Type) bool {
	return isBasicKind(from.Kind()) && isBasicKind(to.Kind())
}

// basicTypes maps a basic kind to its predeclared type, so named types can be
// unwrapped before handing them to cast.
var basicTypes = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeFor[bool](),
	reflect.String:  reflect.TypeFor[string](),
	reflect.Int:     reflect.TypeFor[int](),
	reflect.Int8:    reflect.TypeFor[int8](),
	reflect.Int16:   reflect.TypeFor[int16](),
	reflect.Int32:   reflect.TypeFor[int32](),
	reflect.Int64:   reflect.TypeFor[int64](),
	reflect.Uint:    reflect.TypeFor[uint](),
	reflect.Uint8:   reflect.TypeFor[uint8](),
	reflect.Uint16:  reflect.TypeFor[uint16](),
	reflect.Uint32:  reflect.TypeFor[uint32](),
	reflect.Uint64:  reflect.TypeFor[uint64](),
	reflect.Float32: reflect.TypeFor[float32](),
	reflect.Float64: reflect.TypeFor[float64](),
}

// ConvertBasic converts v to the basic-kinded type to, failing when the value
// cannot be represented (unparsable strings, integer overflow).
func ConvertBasic(v any, to reflect.Type) (any, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidValue)
	}
	rv := reflect.ValueOf(v)
	if bt, ok := basicTypes[rv.Kind()]; ok && rv.Type() != bt {
		v = rv.Convert(bt).Interface()
	}

	var out reflect.Value
	switch to.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		out = reflect.ValueOf(s)
	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, err
		}
		out = reflect.ValueOf(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if reflect.Zero(to).OverflowInt(n) {
			return nil, fmt.Errorf("%w: %d overflows %s", ErrInvalidValue, n, to)
		}
		out = reflect.ValueOf(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toUint64(v)
		if err != nil {
			return nil, err
		}
		if reflect.Zero(to).OverflowUint(n) {
			return nil, fmt.Errorf("%w: %d overflows %s", ErrInvalidValue, n, to)
		}
		out = reflect.ValueOf(n)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, err
		}
		out = reflect.ValueOf(f)
	default:
		return nil, fmt.Errorf("%w: %s is not a basic type", ErrNoConverter, to)
	}
	return out.Convert(to).Interface(), nil
}

// toInt64 parses strings as decimal ("010" is 10) and leaves other kinds to
// cast.
func toInt64(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return cast.ToInt64E(v)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a decimal integer", ErrInvalidValue, s)
	}
	return n, nil
}

func toUint64(v any) (uint64, error) {
	s, ok := v.(string)
	if !ok {
		return cast.ToUint64E(v)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a decimal unsigned integer", ErrInvalidValue, s)
	}
	return n, nil
}

// DefaultConverters is the table new BindingManagers copy at creation.
var DefaultConverters = newDefaultConverters()

func newDefaultConverters() *ConverterTable {
	t := NewConverterTable()
	var (
		intType    = reflect.TypeFor[int]()
		floatType  = reflect.TypeFor[float64]()
		boolType   = reflect.TypeFor[bool]()
		stringType = reflect.TypeFor[string]()
		colorType  = reflect.TypeFor[Color]()
		scaleType  = reflect.TypeFor[ebiten.ColorScale]()
	)
	t.RegisterPair(intType, stringType, IntStringConverter)
	t.RegisterPair(floatType, stringType, ConverterFuncs{
		To: func(v any) any { return strconv.FormatFloat(v.(float64), 'g', -1, 64) },
		Back: func(v any) any {
			f, err := strconv.ParseFloat(v.(string), 64)
			if err != nil {
				return Unset
			}
			return f
		},
	})
	t.RegisterPair(boolType, stringType, ConverterFuncs{
		To: func(v any) any { return strconv.FormatBool(v.(bool)) },
		Back: func(v any) any {
			b, err := strconv.ParseBool(v.(string))
			if err != nil {
				return Unset
			}
			return b
		},
	})
	t.RegisterPair(colorType, stringType, ConverterFuncs{
		To: func(v any) any { return v.(Color).Hex() },
		Back: func(v any) any {
			c, err := ParseColor(v.(string))
			if err != nil {
				return Unset
			}
			return c
		},
	})
	t.Register(colorType, scaleType, ConverterFuncs{
		To:   func(v any) any { return v.(Color).ColorScale() },
		Back: func(v any) any { return ColorFromScale(v.(ebiten.ColorScale)) },
	})
	return t
}

// IntStringConverter converts int to its decimal string and back. Unparsable
// strings convert back to Unset.
var IntStringConverter Converter = ConverterFuncs{
	To: func(v any) any { return strconv.Itoa(v.(int)) },
	Back: func(v any) any {
		n, err := strconv.Atoi(v.(string))
		if err != nil {
			return Unset
		}
		return n
	},
}
