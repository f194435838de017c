package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"guardian/internal/eventlog/models"
	"guardian/pkg/platform/sentinel"
)

// Store is an in-memory event log. Streams are copied in and out so callers
// can never mutate committed events.
type Store struct {
	mu      sync.RWMutex
	streams map[models.StreamKey][]models.Event
	all     []models.Event
	failErr error
}

func New() *Store {
	return &Store{streams: make(map[models.StreamKey][]models.Event)}
}

// FailAppends makes Append return err until cleared with nil.
func (s *Store) FailAppends(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Append commits events atomically when expectedVersion matches the stream head.
func (s *Store) Append(_ context.Context, key models.StreamKey, expectedVersion int64, events []models.Event) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return nil, s.failErr
	}
	stream := s.streams[key]
	if int64(len(stream)) != expectedVersion {
		return nil, sentinel.ErrConflict
	}

	committed := make([]models.Event, len(events))
	for i, e := range events {
		e.AggregateType = key.AggregateType
		e.AggregateID = key.AggregateID
		e.Version = expectedVersion + int64(i) + 1
		e.Offset = int64(len(s.all)) + int64(i) + 1
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.Payload = append([]byte(nil), e.Payload...)
		committed[i] = e
	}
	s.streams[key] = append(stream, committed...)
	s.all = append(s.all, committed...)
	return append([]models.Event(nil), committed...), nil
}

// Load returns events with Version > fromVersion in version order.
func (s *Store) Load(_ context.Context, key models.StreamKey, fromVersion int64) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[key]
	if fromVersion < 0 {
		fromVersion = 0
	}
	if fromVersion >= int64(len(stream)) {
		return nil, nil
	}
	return cloneEvents(stream[fromVersion:]), nil
}

// LoadFromOffset returns up to limit events with Offset > offset.
func (s *Store) LoadFromOffset(_ context.Context, offset int64, limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= int64(len(s.all)) {
		return nil, nil
	}
	end := int64(len(s.all))
	if limit > 0 && offset+int64(limit) < end {
		end = offset + int64(limit)
	}
	return cloneEvents(s.all[offset:end]), nil
}

// Version returns the stream head, 0 for an unknown stream.
func (s *Store) Version(_ context.Context, key models.StreamKey) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.streams[key])), nil
}

func cloneEvents(in []models.Event) []models.Event {
	out := make([]models.Event, len(in))
	for i, e := range in {
		e.Payload = append([]byte(nil), e.Payload...)
		out[i] = e
	}
	return out
}
