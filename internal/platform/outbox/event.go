// Package outbox stores domain events in Postgres inside the business
// transaction and relays them to Kafka afterwards.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event is the envelope written to outbox_events. The Kafka topic equals
// EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// NewEvent marshals payload into an Event.
func NewEvent(aggregateType, aggregateID, eventType string, payload interface{}) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       b,
	}, nil
}

// Recorder persists events. Implementations join the transaction carried
// by ctx.
type Recorder interface {
	Record(ctx context.Context, evt Event) error
}

// NopRecorder drops every event.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) error { return nil }
