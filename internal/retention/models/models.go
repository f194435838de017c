// Package models holds deletion obligations for stored child data.
package models

import (
	"fmt"
	"time"

	"guardian/internal/policy"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

type Status string

const (
	StatusScheduled         Status = "scheduled"
	StatusDeletionRequested Status = "deletion_requested"
	StatusDeleted           Status = "deleted"
	StatusEscalated         Status = "escalated"
)

// Open reports whether the obligation still has to be met.
func (s Status) Open() bool {
	return s == StatusScheduled || s == StatusDeletionRequested || s == StatusEscalated
}

// DataRegistration is the promise to delete one category of data for a child.
// SubjectID names the interaction; it is nil for profile data.
type DataRegistration struct {
	ID                  id.RegistrationID     `json:"id"`
	ChildID             id.ChildID            `json:"child_id"`
	SubjectID           id.InteractionID      `json:"subject_id"`
	Category            id.DataCategory       `json:"category"`
	Classification      policy.Classification `json:"classification"`
	CollectedAt         time.Time             `json:"collected_at"`
	ScheduledDeletionAt time.Time             `json:"scheduled_deletion_at"`
	Status              Status                `json:"status"`
	Attempts            int                   `json:"attempts"`
	LastError           string                `json:"last_error,omitempty"`
	LastAttemptAt       *time.Time            `json:"last_attempt_at,omitempty"`
	DeletionRequestedAt *time.Time            `json:"deletion_requested_at,omitempty"`
	DeletedAt           *time.Time            `json:"deleted_at,omitempty"`
	EscalatedAt         *time.Time            `json:"escalated_at,omitempty"`
}

// NewRegistration computes the deletion date from the retention period.
func NewRegistration(childID id.ChildID, subject id.InteractionID, category id.DataCategory, class policy.Classification, collectedAt time.Time, retention time.Duration) (*DataRegistration, error) {
	if childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child is required")
	}
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown data category: "+string(category))
	}
	if retention <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "retention must be positive")
	}
	at := collectedAt.UTC()
	return &DataRegistration{
		ID:                  id.NewRegistrationID(),
		ChildID:             childID,
		SubjectID:           subject,
		Category:            category,
		Classification:      class,
		CollectedAt:         at,
		ScheduledDeletionAt: at.Add(retention),
		Status:              StatusScheduled,
	}, nil
}

// IsProfile reports whether the registration covers the profile itself.
func (r *DataRegistration) IsProfile() bool {
	return r.SubjectID.IsNil()
}

// Due reports whether deletion may run at now.
func (r *DataRegistration) Due(now time.Time) bool {
	return r.Status.Open() && !now.Before(r.ScheduledDeletionAt)
}

// AwaitingAttempt reports whether the registration is due and has not been
// attempted at or after now, so one scheduler pass tries it at most once.
func (r *DataRegistration) AwaitingAttempt(now time.Time) bool {
	return r.Due(now) && (r.LastAttemptAt == nil || r.LastAttemptAt.Before(now))
}

// MarkAttempted stamps the start of a deletion attempt.
func (r *DataRegistration) MarkAttempted(now time.Time) {
	t := now.UTC()
	r.LastAttemptAt = &t
}

// Overdue reports whether the grace window after the deletion date has passed.
func (r *DataRegistration) Overdue(now time.Time, grace time.Duration) bool {
	return r.Status.Open() && now.After(r.ScheduledDeletionAt.Add(grace))
}

// Reschedule moves the deletion date to at. The date only ever moves
// forward; an earlier at is ignored. Reports whether it changed.
func (r *DataRegistration) Reschedule(at time.Time) bool {
	if r.Status != StatusScheduled || !at.After(r.ScheduledDeletionAt) {
		return false
	}
	r.ScheduledDeletionAt = at.UTC()
	return true
}

func (r *DataRegistration) MarkDeletionRequested(now time.Time) {
	if r.DeletionRequestedAt == nil {
		t := now.UTC()
		r.DeletionRequestedAt = &t
	}
	if r.Status == StatusScheduled {
		r.Status = StatusDeletionRequested
	}
}

func (r *DataRegistration) MarkDeleted(now time.Time) error {
	if !r.Status.Open() {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("registration is %s", r.Status))
	}
	t := now.UTC()
	r.Status = StatusDeleted
	r.DeletedAt = &t
	r.LastError = ""
	return nil
}

// MarkFailed records a failed attempt. The registration stays open.
func (r *DataRegistration) MarkFailed(err error) {
	r.Attempts++
	r.LastError = err.Error()
}

// Escalate flags the registration for operator attention. Returns false if
// it was already escalated.
func (r *DataRegistration) Escalate(now time.Time) bool {
	if r.Status == StatusEscalated || !r.Status.Open() {
		return false
	}
	t := now.UTC()
	r.Status = StatusEscalated
	r.EscalatedAt = &t
	return true
}
