package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"guardian/internal/child/models"
	id "guardian/pkg/domain"
)

type artifactKey struct {
	interaction id.InteractionID
	category    id.DataCategory
}

// ArtifactStore keeps interaction content in memory, grouped by child.
type ArtifactStore struct {
	mu      sync.RWMutex
	byChild map[id.ChildID]map[artifactKey]models.Artifact
}

func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{byChild: make(map[id.ChildID]map[artifactKey]models.Artifact)}
}

func (s *ArtifactStore) Save(_ context.Context, a models.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byChild[a.ChildID]
	if !ok {
		m = make(map[artifactKey]models.Artifact)
		s.byChild[a.ChildID] = m
	}
	a.Content = slices.Clone(a.Content)
	m[artifactKey{a.InteractionID, a.Category}] = a
	return nil
}

// Delete removes the given categories of one interaction. Missing artifacts
// are ignored so retries are safe.
func (s *ArtifactStore) Delete(_ context.Context, childID id.ChildID, interactionID id.InteractionID, categories []id.DataCategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.byChild[childID]
	for k := range m {
		if k.interaction == interactionID && (len(categories) == 0 || slices.Contains(categories, k.category)) {
			delete(m, k)
		}
	}
	return nil
}

func (s *ArtifactStore) DeleteChild(_ context.Context, childID id.ChildID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byChild, childID)
	return nil
}

func (s *ArtifactStore) ListByChild(_ context.Context, childID id.ChildID) ([]models.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Artifact, 0, len(s.byChild[childID]))
	for _, a := range s.byChild[childID] {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b models.Artifact) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.InteractionID != b.InteractionID {
			return slices.Compare(a.InteractionID[:], b.InteractionID[:])
		}
		return strings.Compare(string(a.Category), string(b.Category))
	})
	return out, nil
}
