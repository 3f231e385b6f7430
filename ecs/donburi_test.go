package ecs

import (
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"
	fiber "github.com/pmndrs/react-three-fiber-sub004"
	"github.com/pmndrs/react-three-fiber-sub004/objects"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

func TestDonburiStore_EmitEvent(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world)

	var received []fiber.InteractionEvent
	InteractionEventType.Subscribe(world, func(w donburi.World, e fiber.InteractionEvent) {
		received = append(received, e)
	})

	store.EmitEvent(fiber.InteractionEvent{Kind: fiber.OnPointerDown, EntityID: 42, Distance: 3})
	store.EmitEvent(fiber.InteractionEvent{Kind: fiber.OnClick, EntityID: 42})

	if len(received) != 0 {
		t.Fatal("events should stay queued until processed")
	}
	InteractionEventType.ProcessEvents(world)

	if len(received) != 2 {
		t.Fatalf("expected 2 events, got %d", len(received))
	}
	if e := received[0]; e.Kind != fiber.OnPointerDown || e.EntityID != 42 || e.Distance != 3 {
		t.Errorf("event 0: %+v", e)
	}
	if received[1].Kind != fiber.OnClick {
		t.Errorf("event 1: %+v", received[1])
	}
}

func TestDonburiStore_KindFilter(t *testing.T) {
	world := donburi.NewWorld()
	store := NewDonburiStore(world, fiber.OnClick)

	var count int
	InteractionEventType.Subscribe(world, func(donburi.World, fiber.InteractionEvent) { count++ })
	store.EmitEvent(fiber.InteractionEvent{Kind: fiber.OnPointerMove})
	store.EmitEvent(fiber.InteractionEvent{Kind: fiber.OnClick})
	events.ProcessAllEvents(world)

	if count != 1 {
		t.Errorf("expected only the click, got %d events", count)
	}
}

func TestDonburiStore_FromDispatch(t *testing.T) {
	rt := fiber.NewRuntime(fiber.WithLogger(log.New(io.Discard)))
	if err := objects.Register(rt.Ctx.Types); err != nil {
		t.Fatal(err)
	}
	cam := objects.NewPerspectiveCamera(50, 1, 0.1, 100)
	cam.Position.Z = 5
	id, err := rt.Roots.CreateRoot(0, fiber.RootConfig{
		Camera: cam,
		Size:   fiber.Size{Width: 200, Height: 200, PixelRatio: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	r, _ := rt.Roots.Get(id)
	mesh, err := rt.Reconciler.Mount(r.Instance(), objects.TagMesh, fiber.Props{
		"entity":        7,
		"onPointerDown": func(*fiber.Event) {},
	}, fiber.AttachHint{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rt.Reconciler.Mount(mesh, objects.TagSphereGeometry, fiber.Props{"args": []any{1}}, fiber.AttachHint{}); err != nil {
		t.Fatal(err)
	}

	world := donburi.NewWorld()
	rt.Events.SetEntityStore(NewDonburiStore(world))
	var got []fiber.InteractionEvent
	InteractionEventType.Subscribe(world, func(_ donburi.World, e fiber.InteractionEvent) {
		got = append(got, e)
	})

	if err := rt.Events.Dispatch(id, fiber.Pointer{Kind: fiber.PointerDown, X: 100, Y: 100}); err != nil {
		t.Fatal(err)
	}
	InteractionEventType.ProcessEvents(world)

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	e := got[0]
	if e.EntityID != 7 || e.Instance != mesh || e.Kind != fiber.OnPointerDown {
		t.Errorf("event = %+v", e)
	}
	if math.Abs(e.Distance-4) > 1e-9 {
		t.Errorf("distance = %v, want 4", e.Distance)
	}
}
