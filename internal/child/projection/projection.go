// Package projection maintains a per-parent directory of child summaries
// from the child event stream.
package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"guardian/internal/child/models"
	eventmodels "guardian/internal/eventlog/models"
	id "guardian/pkg/domain"
	"guardian/pkg/platform/sentinel"
)

// Summary is the read-side view of one child. It carries no interaction
// content and is scrubbed when the child's data is erased.
type Summary struct {
	ChildID           id.ChildID  `json:"child_id"`
	ParentID          id.ParentID `json:"parent_id"`
	Name              string      `json:"name,omitempty"`
	Language          string      `json:"language,omitempty"`
	Interactions      int         `json:"interactions"`
	LastInteractionAt *time.Time  `json:"last_interaction_at,omitempty"`
	Erased            bool        `json:"erased"`
	Version           int64       `json:"version"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// Store persists summaries. Put must not overwrite a summary whose Version is
// equal or newer.
type Store interface {
	Get(ctx context.Context, childID id.ChildID) (*Summary, error)
	Put(ctx context.Context, s *Summary) error
	ListByParent(ctx context.Context, parentID id.ParentID) ([]*Summary, error)
}

type Projector struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{store: store, logger: logger}
}

// Handle applies one event. Events for other aggregates and events at or
// below the stored version are ignored, so redelivery is harmless.
func (p *Projector) Handle(ctx context.Context, e eventmodels.Event) error {
	if e.AggregateType != eventmodels.AggregateChild {
		return nil
	}
	childID := id.ChildID(e.AggregateID)
	cur, err := p.store.Get(ctx, childID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		if e.Type != models.EventChildRegistered {
			p.logger.WarnContext(ctx, "child event before registration; skipping",
				"child_id", childID,
				"event_type", e.Type,
				"version", e.Version,
			)
			return nil
		}
		cur = &Summary{ChildID: childID}
	case err != nil:
		return fmt.Errorf("load child summary: %w", err)
	}
	if e.Version <= cur.Version {
		return nil
	}
	if err := apply(cur, e); err != nil {
		return err
	}
	cur.Version = e.Version
	cur.UpdatedAt = e.OccurredAt
	if err := p.store.Put(ctx, cur); err != nil {
		return fmt.Errorf("save child summary: %w", err)
	}
	return nil
}

func apply(s *Summary, e eventmodels.Event) error {
	switch e.Type {
	case models.EventChildRegistered:
		var ev models.ChildRegistered
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		s.ParentID = ev.RegisteredBy
		s.Name = ev.Name
		s.Language = ev.Language
	case models.EventInteractionRecorded:
		var ev models.InteractionRecorded
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		s.Interactions++
		s.touch(ev.RecordedAt)
	case models.EventInteractionTimeUpdated:
		var ev models.InteractionTimeUpdated
		if err := eventmodels.Decode(e, &ev); err != nil {
			return err
		}
		s.touch(ev.At)
	case models.EventChildDataErased:
		s.Name = ""
		s.Language = ""
		s.Interactions = 0
		s.LastInteractionAt = nil
		s.Erased = true
	}
	return nil
}

func (s *Summary) touch(at time.Time) {
	if s.LastInteractionAt == nil || at.After(*s.LastInteractionAt) {
		t := at.UTC()
		s.LastInteractionAt = &t
	}
}

// Children lists the parent's children that still hold data.
func (p *Projector) Children(ctx context.Context, parentID id.ParentID) ([]*Summary, error) {
	all, err := p.store.ListByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list child summaries: %w", err)
	}
	out := make([]*Summary, 0, len(all))
	for _, s := range all {
		if !s.Erased {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *Summary) int {
		return strings.Compare(a.ChildID.String(), b.ChildID.String())
	})
	return out, nil
}
