package ecs

import (
	"testing"

	"github.com/phanxgames/trellis"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

func TestNewDonburiStore(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)
	if store == nil {
		t.Fatal("NewDonburiStore returned nil")
	}
}

func TestDonburiStore_EmitEvent(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)

	var received []trellis.PropertyChangeEvent
	PropertyChangeEventType.Subscribe(world, func(w donburi.World, e trellis.PropertyChangeEvent) {
		received = append(received, e)
	})

	store.EmitEvent(trellis.PropertyChangeEvent{
		EntityID: 42,
		Element:  "hp",
		Property: "Width",
		OldValue: 0.0,
		NewValue: 100.0,
	})
	store.EmitEvent(trellis.PropertyChangeEvent{EntityID: 7, Property: "Alpha"})

	// Events are queued; process them.
	PropertyChangeEventType.ProcessEvents(world)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	e0 := received[0]
	if e0.EntityID != 42 || e0.Property != "Width" || e0.NewValue != 100.0 {
		t.Errorf("event 0: %+v", e0)
	}
	if received[1].EntityID != 7 {
		t.Errorf("event 1: %+v", received[1])
	}
}

func TestDonburiStore_ImplementsEntityStore(t *testing.T) {
	world := donburi.NewWorld()
	var store trellis.EntityStore = NewDonburiStore(world)
	_ = store // compile-time interface check
}

func TestDonburiStore_SceneForwardsEntityChanges(t *testing.T) {
	world := donburi.NewWorld()
	scene := trellis.NewScene()
	scene.SetEntityStore(NewDonburiStore(world))

	tagged := trellis.NewElement("tagged")
	tagged.EntityID = 9
	plain := trellis.NewElement("plain")
	scene.Root().AddChild(tagged)
	scene.Root().AddChild(plain)

	var received []trellis.PropertyChangeEvent
	PropertyChangeEventType.Subscribe(world, func(w donburi.World, e trellis.PropertyChangeEvent) {
		received = append(received, e)
	})

	if err := tagged.SetX(12); err != nil {
		t.Fatal(err)
	}
	if err := plain.SetX(5); err != nil {
		t.Fatal(err)
	}
	events.ProcessAllEvents(world)

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	e := received[0]
	if e.EntityID != 9 || e.Element != "tagged" || e.Property != "X" || e.NewValue != 12.0 {
		t.Errorf("event: %+v", e)
	}
	if Entity(e) != donburi.Entity(9) {
		t.Errorf("Entity = %v, want 9", Entity(e))
	}
}

func TestDonburiStore_MultipleSubscribers(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)

	var count1, count2 int
	PropertyChangeEventType.Subscribe(world, func(w donburi.World, e trellis.PropertyChangeEvent) {
		count1++
	})
	PropertyChangeEventType.Subscribe(world, func(w donburi.World, e trellis.PropertyChangeEvent) {
		count2++
	})

	store.EmitEvent(trellis.PropertyChangeEvent{EntityID: 1, Property: "Visible"})
	events.ProcessAllEvents(world)

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both subscribers called once, got %d and %d", count1, count2)
	}
}
