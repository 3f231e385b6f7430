package ecs

import (
	fiber "github.com/pmndrs/react-three-fiber-sub004"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// InteractionEventType is the Donburi event type for fiber interaction
// events. Events are queued and delivered by ProcessEvents.
var InteractionEventType = events.NewEventType[fiber.InteractionEvent]()

// DonburiStore publishes interaction events into a Donburi world.
type DonburiStore struct {
	world donburi.World
	kinds map[fiber.HandlerKind]bool
}

// NewDonburiStore creates an EntityStore backed by world. With no kinds
// every event is published; otherwise only the listed handler kinds are.
func NewDonburiStore(world donburi.World, kinds ...fiber.HandlerKind) *DonburiStore {
	s := &DonburiStore{world: world}
	if len(kinds) > 0 {
		s.kinds = make(map[fiber.HandlerKind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
	return s
}

// EmitEvent implements fiber.EntityStore.
func (s *DonburiStore) EmitEvent(event fiber.InteractionEvent) {
	if s.kinds != nil && !s.kinds[event.Kind] {
		return
	}
	InteractionEventType.Publish(s.world, event)
}

// World returns the backing world.
func (s *DonburiStore) World() donburi.World { return s.world }

var _ fiber.EntityStore = (*DonburiStore)(nil)
