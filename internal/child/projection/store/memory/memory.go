package memory

import (
	"context"
	"fmt"
	"sync"

	"guardian/internal/child/projection"
	id "guardian/pkg/domain"
	"guardian/pkg/platform/sentinel"
)

type Store struct {
	mu       sync.RWMutex
	children map[id.ChildID]projection.Summary
}

func New() *Store {
	return &Store{children: make(map[id.ChildID]projection.Summary)}
}

func (s *Store) Get(_ context.Context, childID id.ChildID) (*projection.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum, ok := s.children[childID]
	if !ok {
		return nil, fmt.Errorf("child summary %s: %w", childID, sentinel.ErrNotFound)
	}
	return &sum, nil
}

func (s *Store) Put(_ context.Context, sum *projection.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.children[sum.ChildID]; ok && cur.Version >= sum.Version {
		return nil
	}
	s.children[sum.ChildID] = *sum
	return nil
}

func (s *Store) ListByParent(_ context.Context, parentID id.ParentID) ([]*projection.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*projection.Summary
	for _, sum := range s.children {
		if sum.ParentID == parentID {
			out = append(out, &sum)
		}
	}
	return out, nil
}
