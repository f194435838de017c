package models

import (
	"time"

	"github.com/google/uuid"
)

// Purpose says what a verification code unlocks.
type Purpose string

const (
	PurposeConsent      Purpose = "consent"
	PurposeRelationship Purpose = "relationship"
)

// VerificationCode is a single-use code bound to one record. Only the hash
// is stored.
type VerificationCode struct {
	SubjectID   uuid.UUID `json:"subject_id"`
	Purpose     Purpose   `json:"purpose"`
	Hash        []byte    `json:"hash"`
	Channel     Method    `json:"channel"`
	Destination string    `json:"destination"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
}

func (c VerificationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

func (c VerificationCode) Exhausted() bool {
	return c.MaxAttempts > 0 && c.Attempts >= c.MaxAttempts
}

// RemainingAttempts is never negative.
func (c VerificationCode) RemainingAttempts() int {
	if n := c.MaxAttempts - c.Attempts; n > 0 {
		return n
	}
	return 0
}

// RateLimitResult is the outcome of one sliding-window check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}
