package trellis

import (
	"errors"
	"reflect"

	"github.com/spf13/cast"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 float64 dependency properties of one object
// simultaneously. Intermediate values are applied with SetValueTemporarily,
// so bindings and changed callbacks see every frame while the base value stays
// untouched. When all tweens finish, the last value is committed as the base
// value if Commit is set, otherwise the base value is restored.
//
// Create one via the convenience constructors and call Update(dt) each frame,
// or hand it to Scene.AddTween. If the target element is disposed, the group
// stops immediately.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	props  [4]*Property
	values [4]float64
	// to holds the exact end values; the last frame snaps to them.
	to     [4]float64
	target DependencyObject

	// color groups write all four channels into ColorProperty
	color bool

	// Commit keeps the final value as the base value when the group finishes.
	Commit bool
	// OnComplete is called once after the group finishes.
	OnComplete func()

	Done bool
}

var float64Type = reflect.TypeFor[float64]()

func floatValue(d DependencyObject, p *Property) float32 {
	return float32(cast.ToFloat64(d.dependencyObject().GetValue(p)))
}

// TweenProperty creates a TweenGroup that animates the float64 property p of d
// to the given value. Panics if p does not hold float64 values.
func TweenProperty(d DependencyObject, p *Property, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	if p.ValueType() != float64Type {
		panic("trellis: TweenProperty needs a float64 property, got " + p.String())
	}
	g := &TweenGroup{count: 1, target: d, Commit: true}
	g.tweens[0] = gween.New(floatValue(d, p), float32(to), duration, fn)
	g.props[0] = p
	g.to[0] = to
	return g
}

// TweenPosition creates a TweenGroup that animates X and Y of e to the given
// coordinates over the specified duration using the easing function.
func TweenPosition(e *Element, toX, toY float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 2, target: e.Self(), Commit: true}
	g.tweens[0] = gween.New(float32(e.X()), float32(toX), duration, fn)
	g.tweens[1] = gween.New(float32(e.Y()), float32(toY), duration, fn)
	g.props[0] = XProperty
	g.props[1] = YProperty
	g.to = [4]float64{toX, toY}
	return g
}

// TweenSize creates a TweenGroup that animates Width and Height of e.
func TweenSize(e *Element, toW, toH float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 2, target: e.Self(), Commit: true}
	g.tweens[0] = gween.New(float32(e.Width()), float32(toW), duration, fn)
	g.tweens[1] = gween.New(float32(e.Height()), float32(toH), duration, fn)
	g.props[0] = WidthProperty
	g.props[1] = HeightProperty
	g.to = [4]float64{toW, toH}
	return g
}

// TweenAlpha creates a TweenGroup that animates the Alpha of e.
func TweenAlpha(e *Element, to float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 1, target: e.Self(), Commit: true}
	g.tweens[0] = gween.New(float32(e.Alpha()), float32(to), duration, fn)
	g.props[0] = AlphaProperty
	g.to[0] = to
	return g
}

// TweenColor creates a TweenGroup that animates all four components of the
// Color of e to the target color.
func TweenColor(e *Element, to Color, duration float32, fn ease.TweenFunc) *TweenGroup {
	from := e.Color()
	g := &TweenGroup{count: 4, target: e.Self(), color: true, Commit: true}
	g.tweens[0] = gween.New(float32(from.R), float32(to.R), duration, fn)
	g.tweens[1] = gween.New(float32(from.G), float32(to.G), duration, fn)
	g.tweens[2] = gween.New(float32(from.B), float32(to.B), duration, fn)
	g.tweens[3] = gween.New(float32(from.A), float32(to.A), duration, fn)
	for i := range g.props[:4] {
		g.props[i] = ColorProperty
	}
	g.to = [4]float64{to.R, to.G, to.B, to.A}
	return g
}

// Target returns the animated object.
func (g *TweenGroup) Target() DependencyObject { return g.target }

// Update advances all tweens by dt seconds and applies the values as
// temporary values. Errors from the property system (including binding
// errors raised by the change) are returned; the group keeps running.
func (g *TweenGroup) Update(dt float32) error {
	if g.Done {
		return nil
	}
	if isDisposed(g.target) {
		g.Done = true
		return nil
	}

	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		g.values[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	if allDone {
		g.values = g.to
	}
	err := g.apply()
	if allDone {
		g.Done = true
		err = errors.Join(err, g.finish())
	}
	return err
}

func (g *TweenGroup) apply() error {
	o := g.target.dependencyObject()
	if g.color {
		c := Color{R: g.values[0], G: g.values[1], B: g.values[2], A: g.values[3]}
		return o.SetValueTemporarily(ColorProperty, c)
	}
	var errs []error
	for i := 0; i < g.count; i++ {
		if err := o.SetValueTemporarily(g.props[i], g.values[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// finish commits or restores the animated properties and runs OnComplete.
func (g *TweenGroup) finish() error {
	o := g.target.dependencyObject()
	var errs []error
	n := g.count
	if g.color {
		n = 1
	}
	for i := 0; i < n; i++ {
		p := g.props[i]
		var err error
		if g.Commit {
			err = o.SetValue(p, o.GetValue(p))
		} else {
			err = o.RestoreValue(p)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if g.OnComplete != nil {
		g.OnComplete()
	}
	return errors.Join(errs...)
}

// Stop ends the group early. The current values are committed or restored
// as if the group had finished.
func (g *TweenGroup) Stop() error {
	if g.Done {
		return nil
	}
	g.Done = true
	if isDisposed(g.target) {
		return nil
	}
	return g.finish()
}
