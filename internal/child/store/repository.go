// Package store persists child profiles as event streams and holds the
// artifact stores for interaction content.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"guardian/internal/child/models"
	eventmodels "guardian/internal/eventlog/models"
	id "guardian/pkg/domain"
	"guardian/pkg/platform/sentinel"
)

// EventLog is the subset of eventlog.Log the repository needs.
type EventLog interface {
	Append(ctx context.Context, aggregateType string, aggregateID uuid.UUID, expectedVersion int64, events []eventmodels.Event) (int64, error)
	Load(ctx context.Context, aggregateType string, aggregateID uuid.UUID, fromVersion int64) ([]eventmodels.Event, error)
}

// Repository rebuilds profiles from the event log and appends their
// uncommitted events.
type Repository struct {
	log EventLog
}

func NewRepository(log EventLog) *Repository {
	return &Repository{log: log}
}

// Load replays the full stream. Returns sentinel.ErrNotFound for an empty stream.
func (r *Repository) Load(ctx context.Context, childID id.ChildID) (*models.Profile, error) {
	events, err := r.log.Load(ctx, eventmodels.AggregateChild, uuid.UUID(childID), 0)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("child %s: %w", childID, sentinel.ErrNotFound)
	}
	return models.Replay(events)
}

// Save appends the profile's uncommitted events at its persisted version and
// clears the buffer on success. On failure the buffer is left untouched and
// the caller must discard the profile and reload.
func (r *Repository) Save(ctx context.Context, p *models.Profile) (int64, error) {
	pending := p.Uncommitted()
	if len(pending) == 0 {
		return p.Version, nil
	}
	head, err := r.log.Append(ctx, eventmodels.AggregateChild, uuid.UUID(p.ID), p.PersistedVersion(), pending)
	if err != nil {
		return 0, err
	}
	p.ClearUncommitted()
	return head, nil
}
