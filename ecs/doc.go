// Package ecs provides ECS adapters for isopick's picking events.
//
// [NewDonburiSink] bridges engine events (indexed, removed, rebuilt, hover
// enter and leave) into a [Donburi] world as typed events. Subscribe to
// [PickEventType] in your ECS systems to receive them.
//
// Usage:
//
//	tokens.SetEventSink(ecs.NewDonburiSink(world))
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
