// Package memory provides in-memory consent and relationship stores for
// tests and single-process deployments. Records are copied on the way in and
// out so callers never share state with the store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"guardian/internal/consent/models"
	id "guardian/pkg/domain"
	"guardian/pkg/platform/sentinel"
)

type ConsentStore struct {
	mu      sync.RWMutex
	records map[id.ConsentID]models.ConsentRecord
}

func NewConsentStore() *ConsentStore {
	return &ConsentStore{records: make(map[id.ConsentID]models.ConsentRecord)}
}

func (s *ConsentStore) Save(_ context.Context, r *models.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = *r
	return nil
}

func (s *ConsentStore) FindByID(_ context.Context, consentID id.ConsentID) (*models.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[consentID]
	if !ok {
		return nil, fmt.Errorf("consent %s: %w", consentID, sentinel.ErrNotFound)
	}
	return &r, nil
}

// ListByChild returns the child's records oldest first.
func (s *ConsentStore) ListByChild(_ context.Context, childID id.ChildID) ([]*models.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ConsentRecord
	for _, r := range s.records {
		if r.ChildID == childID {
			out = append(out, &r)
		}
	}
	slices.SortFunc(out, func(a, b *models.ConsentRecord) int {
		if c := a.RequestedAt.Compare(b.RequestedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

type RelationshipStore struct {
	mu   sync.RWMutex
	rels map[id.RelationshipID]models.Relationship
}

func NewRelationshipStore() *RelationshipStore {
	return &RelationshipStore{rels: make(map[id.RelationshipID]models.Relationship)}
}

// Create fails with sentinel.ErrConflict when the pair is already linked.
func (s *RelationshipStore) Create(_ context.Context, r *models.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rels {
		if existing.ParentID == r.ParentID && existing.ChildID == r.ChildID {
			return fmt.Errorf("relationship %s/%s: %w", r.ParentID, r.ChildID, sentinel.ErrConflict)
		}
	}
	s.rels[r.ID] = *r
	return nil
}

func (s *RelationshipStore) Save(_ context.Context, r *models.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rels[r.ID]; !ok {
		return fmt.Errorf("relationship %s: %w", r.ID, sentinel.ErrNotFound)
	}
	s.rels[r.ID] = *r
	return nil
}

func (s *RelationshipStore) FindByID(_ context.Context, relID id.RelationshipID) (*models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rels[relID]
	if !ok {
		return nil, fmt.Errorf("relationship %s: %w", relID, sentinel.ErrNotFound)
	}
	return &r, nil
}

func (s *RelationshipStore) FindByParentAndChild(_ context.Context, parentID id.ParentID, childID id.ChildID) (*models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rels {
		if r.ParentID == parentID && r.ChildID == childID {
			return &r, nil
		}
	}
	return nil, fmt.Errorf("relationship %s/%s: %w", parentID, childID, sentinel.ErrNotFound)
}

func (s *RelationshipStore) ListByChild(_ context.Context, childID id.ChildID) ([]*models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Relationship
	for _, r := range s.rels {
		if r.ChildID == childID {
			out = append(out, &r)
		}
	}
	slices.SortFunc(out, func(a, b *models.Relationship) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}
