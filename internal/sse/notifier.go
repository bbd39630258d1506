package sse

import (
	"context"
	"time"

	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

// BusPublisher mirrors the redis bus publish side without importing it,
// which would cycle back through this package.
type BusPublisher interface {
	Publish(ctx context.Context, msg Message) error
}

// StateNotifier pushes workflow state transitions to stream listeners.
// With a bus configured, events round-trip through redis so every replica's
// hub sees them; otherwise they go straight to the local hub.
type StateNotifier struct {
	log *logger.Logger
	hub *Hub
	bus BusPublisher
}

func NewStateNotifier(log *logger.Logger, hub *Hub, bus BusPublisher) *StateNotifier {
	return &StateNotifier{
		log: log.With("component", "StateNotifier"),
		hub: hub,
		bus: bus,
	}
}

func (n *StateNotifier) PublishState(designID, state string, payload map[string]any) {
	msg := Message{
		Channel: DesignChannel(designID),
		Event:   state,
		Data:    payload,
	}
	if n.bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := n.bus.Publish(ctx, msg); err != nil {
			n.log.Warn("bus publish failed; falling back to local hub", "design_id", designID, "error", err)
			n.hub.Broadcast(msg)
		}
		return
	}
	n.hub.Broadcast(msg)
}
