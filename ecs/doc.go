// Package ecs provides ECS adapters for trellis property changes.
//
// The primary adapter is [NewDonburiStore], which publishes every property
// change of an element with a non-zero EntityID into a [Donburi] world as a
// typed event. Subscribe to [PropertyChangeEventType] in your ECS systems to
// keep components in sync with the UI.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	scene.SetEntityStore(store)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
