package trellis

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bindingFixture registers Value (int) and Text (string) on widget in a
// fresh registry and counts changed-callback invocations of Value.
type bindingFixture struct {
	reg     *Registry
	mgr     *BindingManager
	value   *Property
	text    *Property
	changes int
}

func newBindingFixture(t *testing.T) *bindingFixture {
	t.Helper()
	f := &bindingFixture{reg: NewRegistry()}
	f.value = f.reg.MustRegister("Value", intType, widgetType,
		NewMetadata(0).OnChanged(func(PropertyChange) { f.changes++ }), nil)
	f.text = f.reg.MustRegister("Text", stringType, widgetType, NewMetadata(""), nil)
	f.mgr = NewBindingManager(f.reg)
	return f
}

func TestOneWayPropagatesWithoutEcho(t *testing.T) {
	f := newBindingFixture(t)
	src, tgt := newWidget(), newWidget()

	b, err := f.mgr.Bind(src, "Value", tgt, "Value", OneWay, nil)
	require.NoError(t, err)
	assert.True(t, b.IsBinding())
	assert.Nil(t, b.Converter())

	require.NoError(t, src.SetValue(f.value, 5))
	assert.Equal(t, 5, tgt.GetValue(f.value))

	require.NoError(t, tgt.SetValue(f.value, 9))
	assert.Equal(t, 5, src.GetValue(f.value), "OneWay never writes the source")
}

func TestTwoWayConverges(t *testing.T) {
	f := newBindingFixture(t)
	a, b := newWidget(), newWidget()
	_, err := f.mgr.Bind(a, "Value", b, "Value", TwoWay, Identity)
	require.NoError(t, err)

	f.changes = 0
	require.NoError(t, a.SetValue(f.value, 3))
	assert.Equal(t, 3, b.GetValue(f.value))
	assert.LessOrEqual(t, f.changes, 2)

	f.changes = 0
	require.NoError(t, b.SetValue(f.value, 8))
	assert.Equal(t, 8, a.GetValue(f.value))
	assert.LessOrEqual(t, f.changes, 2)
}

func TestTwoWayConvergesThroughCoercion(t *testing.T) {
	reg := NewRegistry()
	small := reg.MustRegister("Small", intType, widgetType,
		NewMetadata(0).WithCoerce(func(_ DependencyObject, v any) any { return 10 }),
		func(v any) bool { return v.(int) <= 10 })
	big := reg.MustRegister("Big", intType, widgetType, nil, nil)
	mgr := NewBindingManager(reg)
	a, b := newWidget(), newWidget()

	_, err := mgr.Bind(a, "Big", b, "Small", TwoWay, nil)
	require.NoError(t, err)

	require.NoError(t, a.SetValue(big, 50))
	assert.Equal(t, 10, b.GetValue(small))
	assert.Equal(t, 10, a.GetValue(big), "coerced target value flows back")
}

func TestDuplicateBindingRejected(t *testing.T) {
	f := newBindingFixture(t)
	a, b := newWidget(), newWidget()

	_, err := f.mgr.Bind(a, "Value", b, "Value", OneWay, nil)
	require.NoError(t, err)
	_, err = f.mgr.Bind(a, "Value", b, "Value", TwoWay, nil)
	assert.ErrorIs(t, err, ErrDuplicateBinding)

	var be *BindingError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "widget.Value", be.Source)

	// the reverse direction is a different pair
	_, err = f.mgr.Bind(b, "Value", a, "Value", OneWay, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, f.mgr.Len())
}

func TestUnbindObjectRemovesEveryBindingTouchingIt(t *testing.T) {
	f := newBindingFixture(t)
	x, y, z := newWidget(), newWidget(), newWidget()

	b1 := f.mgr.MustBind(x, "Value", y, "Value", OneWay, nil)
	b2 := f.mgr.MustBind(z, "Value", x, "Value", OneWay, nil)
	b3 := f.mgr.MustBind(x, "Value", z, "Text", TwoWay, nil)
	keep := f.mgr.MustBind(y, "Value", z, "Value", OneWay, nil)

	assert.Equal(t, 3, f.mgr.UnbindObject(x))
	for _, b := range []*Binding{b1, b2, b3} {
		assert.False(t, b.IsBinding())
	}
	assert.True(t, keep.IsBinding())
	assert.Equal(t, []*Binding{keep}, f.mgr.Bindings())
	assert.Empty(t, x.Bindings())

	_, err := f.mgr.Bind(x, "Value", y, "Value", OneWay, nil)
	assert.NoError(t, err, "identical binding can be created again")
}

func TestUnbindIsIdempotentAndStopsUpdates(t *testing.T) {
	f := newBindingFixture(t)
	a, b := newWidget(), newWidget()
	bd := f.mgr.MustBind(a, "Value", b, "Value", OneWay, nil)

	bd.Unbind()
	bd.Unbind()
	assert.False(t, bd.IsBinding())
	assert.Zero(t, f.mgr.Len())
	assert.Empty(t, a.Bindings())

	require.NoError(t, a.SetValue(f.value, 4))
	assert.Equal(t, 0, b.GetValue(f.value))
	assert.NoError(t, bd.Synchronize())
	assert.Equal(t, 0, b.GetValue(f.value))
}

func TestObjectUnbindAll(t *testing.T) {
	f := newBindingFixture(t)
	a, b, c := newWidget(), newWidget(), newWidget()
	f.mgr.MustBind(a, "Value", b, "Value", OneWay, nil)
	f.mgr.MustBind(c, "Value", a, "Value", OneWay, nil)

	assert.Equal(t, 2, a.UnbindAll())
	assert.Zero(t, f.mgr.Len())
}

func TestBindingContractViolations(t *testing.T) {
	f := newBindingFixture(t)
	w := newWidget()
	p := &player{}

	_, err := f.mgr.Bind(nil, "Value", w, "Value", OneWay, nil)
	assert.ErrorIs(t, err, ErrNilArgument)
	var nilWidget *widget
	_, err = f.mgr.Bind(w, "Value", nilWidget, "Value", OneWay, nil)
	assert.ErrorIs(t, err, ErrNilArgument)

	_, err = f.mgr.Bind(w, "Missing", p, "Level", OneWay, nil)
	assert.ErrorIs(t, err, ErrMissingMember)

	// ReadOnlyScore cannot be a target
	_, err = f.mgr.Bind(w, "Value", p, "ReadOnlyScore", OneWay, nil)
	assert.ErrorIs(t, err, ErrBindingContract)

	// a read-only source is fine OneWay but not TwoWay
	_, err = f.mgr.Bind(p, "ReadOnlyScore", w, "Value", OneWay, nil)
	assert.NoError(t, err)
	_, err = f.mgr.Bind(p, "ReadOnlyScore", newWidget(), "Value", TwoWay, nil)
	assert.ErrorIs(t, err, ErrBindingContract)

	_, err = f.mgr.Bind(w, "Text", w, "Text", OneWay, nil)
	assert.ErrorIs(t, err, ErrBindingContract, "self binding")
}

func TestConverterResolution(t *testing.T) {
	f := newBindingFixture(t)
	a, b := newWidget(), newWidget()

	bd := f.mgr.MustBind(a, "Value", b, "Text", TwoWay, nil)
	assert.NotNil(t, bd.Converter(), "int to string comes from the table")

	require.NoError(t, a.SetValue(f.value, 12))
	assert.Equal(t, "12", b.GetValue(f.text))
	require.NoError(t, b.SetValue(f.text, "-4"))
	assert.Equal(t, -4, a.GetValue(f.value))

	// unparsable text converts back to Unset: the source is left alone
	require.NoError(t, b.SetValue(f.text, "abc"))
	assert.Equal(t, -4, a.GetValue(f.value))

	p := &player{}
	_, err := f.mgr.Bind(a, "Value", p, "Stats", OneWay, nil)
	assert.ErrorIs(t, err, ErrNoConverter)
}

func TestSystemConverterBetweenBasicKinds(t *testing.T) {
	reg := NewRegistry()
	ratio := reg.MustRegister("Ratio", float64Kind, widgetType, nil, nil)
	flag := reg.MustRegister("Flag", reflect.TypeFor[bool](), widgetType, nil, nil)
	mgr := NewBindingManager(reg)
	a, b := newWidget(), newWidget()

	mgr.MustBind(a, "Ratio", b, "Flag", OneWay, nil)
	require.NoError(t, a.SetValue(ratio, 1.0))
	assert.Equal(t, true, b.GetValue(flag))
}

func TestUnsetConverterSkipsWrite(t *testing.T) {
	f := newBindingFixture(t)
	a, b := newWidget(), newWidget()
	evenOnly := ConverterFuncs{To: func(v any) any {
		if v.(int)%2 != 0 {
			return Unset
		}
		return v
	}}
	f.mgr.MustBind(a, "Value", b, "Value", OneWay, evenOnly)

	require.NoError(t, a.SetValue(f.value, 2))
	require.NoError(t, a.SetValue(f.value, 3))
	assert.Equal(t, 2, b.GetValue(f.value))
}

func TestSynchronizeSourceWins(t *testing.T) {
	f := newBindingFixture(t)
	src := &player{Name: "a"}
	dst := &player{Name: "b"}
	bd := f.mgr.MustBind(src, "Name", dst, "Name", TwoWay, nil)

	// plain fields without notification only move on Synchronize
	src.Name = "x"
	dst.Name = "y"
	require.NoError(t, bd.Synchronize())
	assert.Equal(t, "x", dst.Name, "source has priority")

	dst.Name = "z"
	require.NoError(t, bd.Synchronize())
	assert.Equal(t, "z", src.Name, "TwoWay pushes a changed target back")

	require.NoError(t, bd.Synchronize())
	assert.Equal(t, "z", src.Name)
	assert.Equal(t, "z", dst.Name)
}

func TestCreateCapturesWithoutPushing(t *testing.T) {
	f := newBindingFixture(t)
	a, b := newWidget(), newWidget()
	require.NoError(t, a.SetValue(f.value, 7))

	bd := f.mgr.MustBind(a, "Value", b, "Value", OneWay, nil)
	assert.Equal(t, 0, b.GetValue(f.value))
	require.NoError(t, bd.Synchronize())
	assert.Equal(t, 0, b.GetValue(f.value), "source unchanged since creation")

	require.NoError(t, bd.UpdateTarget())
	assert.Equal(t, 7, b.GetValue(f.value))
}

func TestNotifierEndpoint(t *testing.T) {
	f := newBindingFixture(t)
	p := &player{}
	w := newWidget()
	bd := f.mgr.MustBind(p, "Level", w, "Value", TwoWay, nil)
	assert.Equal(t, 1, p.NumHandlers())

	p.SetLevel(6)
	assert.Equal(t, 6, w.GetValue(f.value))

	require.NoError(t, w.SetValue(f.value, 2))
	assert.Equal(t, 2, p.Level())

	p.Changed("Name") // other members are filtered out
	bd.Unbind()
	assert.Zero(t, p.NumHandlers())
}

func TestStaticMemberBinding(t *testing.T) {
	f := newBindingFixture(t)
	volume := 3
	m, err := StaticMember("Volume", &volume)
	require.NoError(t, err)
	w := newWidget()

	bd, err := f.mgr.BindMembers(PropertyMember(w, f.value), m, OneWay, nil)
	require.NoError(t, err)
	require.NoError(t, w.SetValue(f.value, 11))
	assert.Equal(t, 11, volume)
	assert.Same(t, bd, f.mgr.Bindings()[0])
}

func TestTargetErrorsReturnedFromSetValue(t *testing.T) {
	reg := NewRegistry()
	v := reg.MustRegister("V", intType, widgetType, nil, nil)
	positive := reg.MustRegister("P", intType, widgetType, NewMetadata(1), func(x any) bool { return x.(int) > 0 })
	mgr := NewBindingManager(reg)
	a, b := newWidget(), newWidget()
	mgr.MustBind(a, "V", b, "P", OneWay, nil)

	err := a.SetValue(v, -5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidValue)
	var be *BindingError
	assert.True(t, errors.As(err, &be))
	assert.Equal(t, -5, a.GetValue(v), "source commit stays in effect")
	assert.Equal(t, 1, b.GetValue(positive))
}

func TestChainedBindings(t *testing.T) {
	f := newBindingFixture(t)
	a, b, c := newWidget(), newWidget(), newWidget()
	f.mgr.MustBind(a, "Value", b, "Value", TwoWay, nil)
	f.mgr.MustBind(b, "Value", c, "Value", TwoWay, nil)

	require.NoError(t, a.SetValue(f.value, 1))
	assert.Equal(t, 1, c.GetValue(f.value))
	require.NoError(t, c.SetValue(f.value, 2))
	assert.Equal(t, 2, a.GetValue(f.value))
}

func TestLeaksReportsDisposedEndpoints(t *testing.T) {
	mgr := NewBindingManager(nil)
	a, b := NewElement("a"), NewElement("b")
	mgr.MustBind(a, "Name", b, "Name", OneWay, nil)
	live := mgr.MustBind(a, "X", b, "X", OneWay, nil)

	b.Dispose()
	assert.False(t, live.IsBinding(), "Dispose unbinds property endpoints")
	leaks := mgr.Leaks()
	require.Len(t, leaks, 1, "field bindings are not in the per-object list")
	assert.Equal(t, "Name", leaks[0].Target().Name())

	assert.Equal(t, 1, mgr.UnbindObject(b))
	assert.Empty(t, mgr.Leaks())
}

func TestTwoWayNaNConverges(t *testing.T) {
	reg := NewRegistry()
	changes := 0
	ratio := reg.MustRegister("Ratio", reflect.TypeFor[float64](), widgetType,
		NewMetadata(0.0).OnChanged(func(PropertyChange) { changes++ }), nil)
	mgr := NewBindingManager(reg)
	a, b := newWidget(), newWidget()
	_, err := mgr.Bind(a, "Ratio", b, "Ratio", TwoWay, nil)
	require.NoError(t, err)

	require.NoError(t, a.SetValue(ratio, math.NaN()))
	assert.True(t, math.IsNaN(b.GetValue(ratio).(float64)))
	assert.LessOrEqual(t, changes, 2)

	changes = 0
	require.NoError(t, b.SetValue(ratio, 1.5))
	assert.Equal(t, 1.5, a.GetValue(ratio))
	assert.LessOrEqual(t, changes, 2)
}

func TestManagersHaveSeparateConverters(t *testing.T) {
	f := newBindingFixture(t)
	other := NewBindingManager(f.reg)
	custom := ConverterFuncs{
		To:   func(v any) any { return "n" },
		Back: func(v any) any { return 0 },
	}
	f.mgr.Converters.Register(intType, stringType, custom)

	c, err := f.mgr.Converters.Resolve(intType, stringType)
	require.NoError(t, err)
	assert.Equal(t, "n", c.Convert(5))

	c, err = other.Converters.Resolve(intType, stringType)
	require.NoError(t, err)
	assert.Equal(t, "5", c.Convert(5), "other managers keep the defaults")
	c, _ = DefaultConverters.Resolve(intType, stringType)
	assert.Equal(t, "5", c.Convert(5))
}
