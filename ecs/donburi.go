package ecs

import (
	"github.com/phanxgames/trellis"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// PropertyChangeEventType is the Donburi event type for trellis property
// changes. Events are queued; call ProcessEvents from a system to deliver them.
var PropertyChangeEventType = events.NewEventType[trellis.PropertyChangeEvent]()

type donburiStore struct {
	world donburi.World
}

// NewDonburiStore creates an EntityStore backed by a Donburi world.
func NewDonburiStore(world donburi.World) trellis.EntityStore {
	return &donburiStore{world: world}
}

func (s *donburiStore) EmitEvent(event trellis.PropertyChangeEvent) {
	PropertyChangeEventType.Publish(s.world, event)
}

// Entity returns the Donburi entity a property change refers to. EntityID is
// expected to hold the value of a donburi.Entity.
func Entity(event trellis.PropertyChangeEvent) donburi.Entity {
	return donburi.Entity(event.EntityID)
}
