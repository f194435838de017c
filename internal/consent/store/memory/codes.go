package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"guardian/internal/consent/models"
	"guardian/pkg/platform/sentinel"
)

// CodeStore keeps verification codes in memory. Consume holds the lock
// across check and delete so a code is accepted at most once.
type CodeStore struct {
	mu    sync.Mutex
	codes map[uuid.UUID]models.VerificationCode
}

func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[uuid.UUID]models.VerificationCode)}
}

// Save replaces any code already issued for the subject.
func (s *CodeStore) Save(_ context.Context, c models.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[c.SubjectID] = c
	return nil
}

func (s *CodeStore) Delete(_ context.Context, subject uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, subject)
	return nil
}

func (s *CodeStore) Consume(_ context.Context, subject uuid.UUID, purpose models.Purpose, now time.Time, verify func(models.VerificationCode) error) (models.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[subject]
	if !ok || c.Purpose != purpose {
		return models.VerificationCode{}, fmt.Errorf("verification code: %w", sentinel.ErrNotFound)
	}
	if c.Expired(now) {
		delete(s.codes, subject)
		return c, fmt.Errorf("verification code: %w", sentinel.ErrExpired)
	}
	if err := verify(c); err != nil {
		c.Attempts++
		if c.Exhausted() {
			delete(s.codes, subject)
		} else {
			s.codes[subject] = c
		}
		return c, fmt.Errorf("verification code: %w", sentinel.ErrMismatch)
	}
	delete(s.codes, subject)
	return c, nil
}
