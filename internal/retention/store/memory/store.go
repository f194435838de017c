// Package memory keeps data registrations in a map for tests and
// single-process deployments.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"guardian/internal/retention/models"
	id "guardian/pkg/domain"
	"guardian/pkg/platform/sentinel"
)

type Store struct {
	mu   sync.RWMutex
	regs map[id.RegistrationID]models.DataRegistration
}

func New() *Store {
	return &Store{regs: make(map[id.RegistrationID]models.DataRegistration)}
}

func (s *Store) Save(_ context.Context, r *models.DataRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[r.ID] = *r
	return nil
}

func (s *Store) FindByID(_ context.Context, regID id.RegistrationID) (*models.DataRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.regs[regID]
	if !ok {
		return nil, fmt.Errorf("registration %s: %w", regID, sentinel.ErrNotFound)
	}
	return &r, nil
}

// ListDue returns open registrations scheduled at or before now that have
// not been attempted since now. Never-attempted ones come first, then the
// least recently attempted, then the earliest scheduled. limit <= 0 means
// no limit.
func (s *Store) ListDue(_ context.Context, now time.Time, limit int) ([]*models.DataRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DataRegistration
	for _, r := range s.regs {
		if r.AwaitingAttempt(now) {
			out = append(out, &r)
		}
	}
	slices.SortFunc(out, func(a, b *models.DataRegistration) int {
		switch {
		case a.LastAttemptAt == nil && b.LastAttemptAt != nil:
			return -1
		case a.LastAttemptAt != nil && b.LastAttemptAt == nil:
			return 1
		case a.LastAttemptAt != nil:
			if c := a.LastAttemptAt.Compare(*b.LastAttemptAt); c != 0 {
				return c
			}
		}
		return compareSchedule(a, b)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListByChild(_ context.Context, childID id.ChildID) ([]*models.DataRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DataRegistration
	for _, r := range s.regs {
		if r.ChildID == childID {
			out = append(out, &r)
		}
	}
	sortBySchedule(out)
	return out, nil
}

func sortBySchedule(regs []*models.DataRegistration) {
	slices.SortFunc(regs, compareSchedule)
}

func compareSchedule(a, b *models.DataRegistration) int {
	if c := a.ScheduledDeletionAt.Compare(b.ScheduledDeletionAt); c != 0 {
		return c
	}
	return slices.Compare(a.ID[:], b.ID[:])
}
