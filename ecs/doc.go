// Package ecs bridges fiber interaction events into an ECS world.
//
// The primary adapter is [NewDonburiStore], which publishes every handler
// invocation on an instance carrying an "entity" prop into a [Donburi]
// world as a typed event. Subscribe to [InteractionEventType] in your ECS
// systems to receive them.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	rt.Events.SetEntityStore(store)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
