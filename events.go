package isopick

import "fmt"

// PickEventKind identifies a picking engine event.
type PickEventKind uint8

const (
	PickIndexed    PickEventKind = iota // an object entered the index
	PickRemoved                         // an object left the index
	PickRebuilt                         // the index buffer was redrawn
	PickHoverEnter                      // the hover glow moved onto an object
	PickHoverLeave                      // the hover glow left an object
)

// String returns the event kind name.
func (k PickEventKind) String() string {
	switch k {
	case PickIndexed:
		return "indexed"
	case PickRemoved:
		return "removed"
	case PickRebuilt:
		return "rebuilt"
	case PickHoverEnter:
		return "hover-enter"
	case PickHoverLeave:
		return "hover-leave"
	default:
		return fmt.Sprintf("PickEventKind(%d)", k)
	}
}

// PickEvent reports a change in an engine's index. Object and Index are
// zero for PickRebuilt.
type PickEvent struct {
	Kind   PickEventKind
	Object ObjectID
	Index  ColorIndex
	Engine string
}

// EventSink receives picking events synchronously on the update thread.
type EventSink interface {
	HandlePickEvent(PickEvent)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(PickEvent)

// HandlePickEvent calls f(ev).
func (f EventSinkFunc) HandlePickEvent(ev PickEvent) { f(ev) }
