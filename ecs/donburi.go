package ecs

import (
	"github.com/phanxgames/isopick"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// PickEventType is the Donburi event type for picking engine events.
// Subscribe to it in your ECS systems to react to objects entering or
// leaving an index, buffer rebuilds and hover changes.
var PickEventType = events.NewEventType[isopick.PickEvent]()

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates an EventSink that publishes every picking event to
// PickEventType in world. Events are queued until ProcessEvents runs.
func NewDonburiSink(world donburi.World) isopick.EventSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) HandlePickEvent(ev isopick.PickEvent) {
	PickEventType.Publish(s.world, ev)
}
