// Package models holds the event envelope shared by every aggregate.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Aggregate types partition the log.
const (
	AggregateChild        = "child"
	AggregateConsent      = "consent"
	AggregateRelationship = "relationship"
)

// Event is an immutable domain fact. Version is assigned by the log at append
// time (1-based, contiguous per aggregate); Offset is the global position used
// by catch-up consumers.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	Type          string          `json:"event_type"`
	Version       int64           `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      Metadata        `json:"metadata"`
	Offset        int64           `json:"offset"`
}

// Metadata is request provenance, never domain data.
type Metadata struct {
	Actor     string `json:"actor,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewEvent marshals a typed payload into an uncommitted event.
func NewEvent(aggregateType string, aggregateID uuid.UUID, eventType string, payload any, at time.Time) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Type:          eventType,
		OccurredAt:    at.UTC(),
		Payload:       raw,
	}, nil
}

// Decode unmarshals the payload into dst.
func Decode(e Event, dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s v%d: %w", e.Type, e.Version, err)
	}
	return nil
}

// StreamKey identifies one aggregate's stream.
type StreamKey struct {
	AggregateType string
	AggregateID   uuid.UUID
}

func (k StreamKey) String() string {
	return k.AggregateType + "/" + k.AggregateID.String()
}
