// Package events announces committed node mutations so live views can refresh.
// Publishing is best effort: the mutation has already committed when an
// event goes out, so a failed publish is logged and never rolled back.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Actions announced besides the history actions (create, update, delete,
// restore).
const (
	ActionMove  = "move"
	ActionPurge = "purge"
)

// Event describes one committed mutation.
type Event struct {
	Action  string    `json:"action"`
	NodeIDs []uint64  `json:"nodeIds"`
	Parent  *uint64   `json:"parent,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher sends events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// Encode renders the wire payload of an event.
func Encode(evt Event) ([]byte, error) {
	if evt.NodeIDs == nil {
		evt.NodeIDs = []uint64{}
	}
	return json.Marshal(evt)
}

type noopPublisher struct{}

// NewNoop returns a Publisher that drops every event.
func NewNoop() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, Event) error { return nil }
func (noopPublisher) Close() error                         { return nil }
