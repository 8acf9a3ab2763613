package ecs

import (
	"image"
	"testing"

	"github.com/phanxgames/isopick"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

func TestNewDonburiSink(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)
	if sink == nil {
		t.Fatal("NewDonburiSink returned nil")
	}
}

func TestDonburiSink_HandlePickEvent(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)

	var received []isopick.PickEvent
	PickEventType.Subscribe(world, func(w donburi.World, e isopick.PickEvent) {
		received = append(received, e)
	})

	sink.HandlePickEvent(isopick.PickEvent{Kind: isopick.PickIndexed, Object: 42, Index: 7, Engine: "tokens"})
	sink.HandlePickEvent(isopick.PickEvent{Kind: isopick.PickRebuilt, Engine: "tokens"})

	if len(received) != 0 {
		t.Fatalf("events delivered before ProcessEvents: %d", len(received))
	}
	PickEventType.ProcessEvents(world)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	if e := received[0]; e.Kind != isopick.PickIndexed || e.Object != 42 || e.Index != 7 {
		t.Errorf("event 0: %+v", e)
	}
	if e := received[1]; e.Kind != isopick.PickRebuilt || e.Engine != "tokens" {
		t.Errorf("event 1: %+v", e)
	}
}

func TestDonburiSink_MultipleSubscribers(t *testing.T) {
	world := donburi.NewWorld()
	sink := NewDonburiSink(world)

	var count1, count2 int
	PickEventType.Subscribe(world, func(w donburi.World, e isopick.PickEvent) {
		count1++
	})
	PickEventType.Subscribe(world, func(w donburi.World, e isopick.PickEvent) {
		count2++
	})

	sink.HandlePickEvent(isopick.PickEvent{Kind: isopick.PickHoverEnter})
	events.ProcessAllEvents(world)

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both subscribers called once, got %d and %d", count1, count2)
	}
}

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

func TestDonburiSink_EngineLifecycle(t *testing.T) {
	world := donburi.NewWorld()

	layer := isopick.NewContainer("tokens")
	a := isopick.NewSprite("a", solid(8, 8))
	layer.AddChild(a)

	cfg := isopick.TokenConfig(isopick.Rect{Width: 64, Height: 64})
	cfg.Backend = isopick.BackendSoftware
	e := isopick.NewEngine(layer, cfg)
	e.SetEventSink(NewDonburiSink(world))

	var kinds []isopick.PickEventKind
	PickEventType.Subscribe(world, func(w donburi.World, ev isopick.PickEvent) {
		kinds = append(kinds, ev.Kind)
	})

	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	e.DeleteFromIndex(a.PickID())
	e.Flush()
	PickEventType.ProcessEvents(world)

	want := []isopick.PickEventKind{isopick.PickIndexed, isopick.PickRebuilt, isopick.PickRemoved, isopick.PickRebuilt}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}
