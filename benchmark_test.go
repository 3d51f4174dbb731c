package trellis

import (
	"testing"

	"github.com/tanema/gween/ease"
)

// setupBenchTree creates a Scene with n child elements laid out on a grid.
func setupBenchTree(n int) *Scene {
	s := NewScene()
	root := s.Root()
	for i := 0; i < n; i++ {
		e := NewElement("e")
		_ = e.SetX(float64(i%100) * 40)
		_ = e.SetY(float64(i/100) * 40)
		root.AddChild(e)
	}
	return s
}

func BenchmarkGetValue_Default(b *testing.B) {
	e := NewElement("e")
	b.ReportAllocs()
	for b.Loop() {
		_ = e.GetValue(AlphaProperty)
	}
}

func BenchmarkGetValue_Local(b *testing.B) {
	e := NewElement("e")
	_ = e.SetX(3)
	b.ReportAllocs()
	for b.Loop() {
		_ = e.GetValue(XProperty)
	}
}

func BenchmarkSetValue(b *testing.B) {
	e := NewElement("e")
	x := 0.0
	b.ReportAllocs()
	for b.Loop() {
		x++
		_ = e.SetX(x)
	}
}

func BenchmarkMetadataLookup_Derived(b *testing.B) {
	reg := NewRegistry()
	p := reg.MustRegister("Size", intType, widgetType, NewMetadata(1), nil)
	_ = p.OverrideMetadata(buttonType, NewMetadata(2))
	f := newFancyButton()
	b.ReportAllocs()
	for b.Loop() {
		_ = f.GetValue(p)
	}
}

func BenchmarkBinding_OneWayPropagation(b *testing.B) {
	mgr := NewBindingManager(nil)
	src, dst := NewElement("src"), NewElement("dst")
	mgr.MustBind(src, "X", dst, "X", OneWay, nil)
	x := 0.0
	b.ReportAllocs()
	for b.Loop() {
		x++
		_ = src.SetX(x)
	}
}

func BenchmarkBinding_TwoWayChain(b *testing.B) {
	mgr := NewBindingManager(nil)
	elems := make([]*Element, 10)
	for i := range elems {
		elems[i] = NewElement("e")
		if i > 0 {
			mgr.MustBind(elems[i-1], "Y", elems[i], "Y", TwoWay, nil)
		}
	}
	y := 0.0
	b.ReportAllocs()
	for b.Loop() {
		y++
		_ = elems[0].SetY(y)
	}
}

func BenchmarkUnbindObject_1000(b *testing.B) {
	for b.Loop() {
		b.StopTimer()
		mgr := NewBindingManager(nil)
		hub := NewElement("hub")
		for i := 0; i < 1000; i++ {
			mgr.MustBind(hub, "X", NewElement("leaf"), "X", OneWay, nil)
		}
		b.StartTimer()
		mgr.UnbindObject(hub)
	}
}

func BenchmarkScene_Advance_1000Tweens(b *testing.B) {
	s := setupBenchTree(1000)
	for _, e := range s.Root().Children() {
		g := TweenAlpha(e, 0, 1e9, ease.Linear)
		s.AddTween(g)
	}
	b.ReportAllocs()
	for b.Loop() {
		s.Advance(1.0 / 60)
	}
}

func BenchmarkSortedChildren_1000(b *testing.B) {
	s := setupBenchTree(1000)
	root := s.Root()
	for i, e := range root.Children() {
		_ = e.SetZIndex(-i)
	}
	b.ReportAllocs()
	for b.Loop() {
		root.childrenSorted = false
		_ = root.SortedChildren()
	}
}
