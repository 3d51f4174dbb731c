package trellis

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Health int
	Armor  int `bind:"readonly"`
	Secret int `bind:"-"`
	hidden int
}

type player struct {
	Notifier
	Name  string
	Stats *stats
	Inner stats

	level int
	title string
}

func (p *player) Level() int { return p.level }

func (p *player) SetLevel(n int) {
	p.level = n
	p.Changed("Level")
}

func (p *player) Title() string { return p.title }

func (p *player) SetTitle(s string) error {
	if s == "" {
		return errors.New("empty title")
	}
	p.title = s
	return nil
}

func (p *player) ReadOnlyScore() int { return 42 }

type gauge struct {
	value float64
}

func (g *gauge) Accessor(name string) (Accessor, bool) {
	if name != "Value" {
		return Accessor{}, false
	}
	return Accessor{
		Type: reflect.TypeFor[float64](),
		Get:  func() any { return g.value },
		Set:  func(v any) { g.value = v.(float64) },
	}, true
}

func TestResolveMemberField(t *testing.T) {
	p := &player{Name: "ann"}
	m, err := ResolveMember(nil, p, "Name")
	require.NoError(t, err)

	assert.Equal(t, MemberField, m.Kind())
	assert.Equal(t, stringType, m.ValueType())
	assert.True(t, m.CanRead())
	assert.True(t, m.CanWrite())
	assert.Equal(t, "ann", m.Value())

	require.NoError(t, m.SetValue("bob"))
	assert.Equal(t, "bob", p.Name)

	assert.ErrorIs(t, m.SetValue(3), ErrInvalidValue)
}

func TestResolveMemberMethodPair(t *testing.T) {
	p := &player{}
	m, err := ResolveMember(nil, p, "Level")
	require.NoError(t, err)
	assert.Equal(t, MemberMethod, m.Kind())
	require.NoError(t, m.SetValue(3))
	assert.Equal(t, 3, m.Value())

	title, err := ResolveMember(nil, p, "Title")
	require.NoError(t, err)
	assert.Error(t, title.SetValue(""), "setter errors are returned")
	require.NoError(t, title.SetValue("hero"))
	assert.Equal(t, "hero", p.Title())

	ro, err := ResolveMember(nil, p, "ReadOnlyScore")
	require.NoError(t, err)
	assert.True(t, ro.CanRead())
	assert.False(t, ro.CanWrite())
	assert.ErrorIs(t, ro.SetValue(1), ErrBindingContract)
}

func TestResolveMemberTags(t *testing.T) {
	s := &stats{}
	armor, err := ResolveMember(nil, s, "Armor")
	require.NoError(t, err)
	assert.False(t, armor.CanWrite())

	_, err = ResolveMember(nil, s, "Secret")
	assert.ErrorIs(t, err, ErrMissingMember)
	_, err = ResolveMember(nil, s, "hidden")
	assert.ErrorIs(t, err, ErrMissingMember)
}

func TestResolveMemberDottedPath(t *testing.T) {
	p := &player{Stats: &stats{Health: 10}}
	m, err := ResolveMember(nil, p, "Stats.Health")
	require.NoError(t, err)
	assert.Equal(t, 10, m.Value())
	assert.Equal(t, "Stats.Health", m.Path())
	assert.Same(t, p.Stats, m.Owner())

	inner, err := ResolveMember(nil, p, "Inner.Health")
	require.NoError(t, err)
	require.NoError(t, inner.SetValue(5))
	assert.Equal(t, 5, p.Inner.Health, "embedded struct values are addressed in place")

	_, err = ResolveMember(nil, &player{}, "Stats.Health")
	assert.ErrorIs(t, err, ErrMissingMember, "nil intermediate")
}

func TestResolveMemberAccessorAndMissing(t *testing.T) {
	g := &gauge{}
	m, err := ResolveMember(nil, g, "Value")
	require.NoError(t, err)
	assert.Equal(t, MemberAccessor, m.Kind())
	require.NoError(t, m.SetValue(2))
	assert.Equal(t, 2.0, g.value)

	_, err = ResolveMember(nil, g, "Nope")
	assert.ErrorIs(t, err, ErrMissingMember)
	_, err = ResolveMember(nil, nil, "Value")
	assert.ErrorIs(t, err, ErrNilArgument)
	_, err = ResolveMember(nil, player{}, "Name")
	assert.ErrorIs(t, err, ErrMissingMember, "non-pointer owner")
}

func TestResolveMemberDependencyProperty(t *testing.T) {
	reg := NewRegistry()
	size := reg.MustRegister("Size", intType, widgetType, NewMetadata(1), nil)
	b := newButton()

	m, err := ResolveMember(reg, b, "Size")
	require.NoError(t, err)
	assert.Equal(t, MemberProperty, m.Kind())
	assert.Same(t, size, m.Property())
	assert.Same(t, b, m.Owner())
	require.NoError(t, m.SetValue(4))
	assert.Equal(t, 4, b.GetValue(size))

	// plain fields of a dependency object still resolve
	label, err := ResolveMember(reg, b, "Label")
	require.NoError(t, err)
	assert.Equal(t, MemberField, label.Kind())
}

func TestStaticMember(t *testing.T) {
	var volume = 0.5
	m, err := StaticMember("Volume", &volume)
	require.NoError(t, err)
	assert.Nil(t, m.Owner())
	require.NoError(t, m.SetValue(0.75))
	assert.Equal(t, 0.75, volume)

	_, err = StaticMember("Bad", nil)
	assert.ErrorIs(t, err, ErrNilArgument)
}

func TestMemberEquality(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("Size", intType, widgetType, nil, nil)
	w1, w2 := newWidget(), newWidget()

	a, _ := ResolveMember(reg, w1, "Size")
	b, _ := ResolveMember(reg, w1, "Size")
	c, _ := ResolveMember(reg, w2, "Size")
	d, _ := ResolveMember(reg, w1, "Label")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c), "different object")
	assert.False(t, a.Equal(d), "different member")

	p := &player{}
	f1, _ := ResolveMember(nil, p, "Name")
	f2, _ := ResolveMember(nil, p, "Name")
	assert.True(t, f1.Equal(f2))
}

// scoreboard is a map-typed owner exposing each key as an int member.
type scoreboard map[string]int

func (s scoreboard) Accessor(name string) (Accessor, bool) {
	if _, ok := s[name]; !ok {
		return Accessor{}, false
	}
	return Accessor{
		Type: intType,
		Get:  func() any { return s[name] },
		Set:  func(v any) { s[name] = v.(int) },
	}, true
}

// labelSet is a struct owner passed by value that holds a slice, so it has no
// identity.
type labelSet struct {
	tags []string
}

func (tg labelSet) Accessor(name string) (Accessor, bool) {
	return Accessor{Type: intType, Get: func() any { return len(tg.tags) }}, name == "Count"
}

func TestMapOwnerBinds(t *testing.T) {
	mgr := NewBindingManager(NewRegistry())
	home, away := scoreboard{"A": 1}, scoreboard{"B": 2}

	b, err := mgr.Bind(home, "A", away, "B", OneWay, nil)
	require.NoError(t, err)
	require.NoError(t, b.UpdateTarget())
	assert.Equal(t, 1, away["B"])

	_, err = mgr.Bind(home, "A", away, "B", OneWay, nil)
	assert.ErrorIs(t, err, ErrDuplicateBinding, "map owners are identified by reference")

	m1, _ := ResolveMember(nil, home, "A")
	m2, _ := ResolveMember(nil, scoreboard{"A": 1}, "A")
	assert.False(t, m1.Equal(m2), "equal contents, different maps")

	assert.Equal(t, 1, mgr.UnbindObject(away))
	assert.Zero(t, mgr.Len())
}

func TestAccessorOwnerWithoutIdentity(t *testing.T) {
	_, err := ResolveMember(nil, labelSet{tags: []string{"x"}}, "Count")
	assert.ErrorIs(t, err, ErrInvalidOperation)

	m, err := ResolveMember(nil, &labelSet{tags: []string{"x"}}, "Count")
	require.NoError(t, err, "a pointer gives the owner an identity")
	assert.Equal(t, 1, m.Value())
}
