package models

import (
	"fmt"
	"time"

	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

type RelationshipType string

const (
	RelationshipBiological    RelationshipType = "biological"
	RelationshipLegalGuardian RelationshipType = "legal_guardian"
	RelationshipOther         RelationshipType = "other"
)

func ParseRelationshipType(s string) (RelationshipType, error) {
	switch t := RelationshipType(s); t {
	case RelationshipBiological, RelationshipLegalGuardian, RelationshipOther:
		return t, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported relationship type %q", s))
	}
}

type RelationshipStatus string

const (
	RelationshipPending  RelationshipStatus = "pending"
	RelationshipVerified RelationshipStatus = "verified"
	RelationshipRejected RelationshipStatus = "rejected"
)

// Relationship links one parent to one child. It decides who may act.
type Relationship struct {
	ID         id.RelationshipID  `json:"id"`
	ParentID   id.ParentID        `json:"parent_id"`
	ChildID    id.ChildID         `json:"child_id"`
	Type       RelationshipType   `json:"type"`
	Status     RelationshipStatus `json:"status"`
	Method     Method             `json:"method,omitempty"`
	Reason     string             `json:"reason,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	VerifiedAt *time.Time         `json:"verified_at,omitempty"`
	RejectedAt *time.Time         `json:"rejected_at,omitempty"`
}

func NewRelationship(parentID id.ParentID, childID id.ChildID, t RelationshipType, now time.Time) (*Relationship, error) {
	if childID.IsNil() || parentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child and parent are required")
	}
	if _, err := ParseRelationshipType(string(t)); err != nil {
		return nil, err
	}
	return &Relationship{
		ID:        id.NewRelationshipID(),
		ParentID:  parentID,
		ChildID:   childID,
		Type:      t,
		Status:    RelationshipPending,
		CreatedAt: now,
	}, nil
}

func (r *Relationship) IsVerified() bool {
	return r.Status == RelationshipVerified
}

func (r *Relationship) Verify(method Method, now time.Time) error {
	if r.Status != RelationshipPending {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("relationship is %s; only pending can be verified", r.Status))
	}
	r.Status = RelationshipVerified
	r.Method = method
	r.VerifiedAt = &now
	return nil
}

func (r *Relationship) Reject(reason string, now time.Time) error {
	if r.Status != RelationshipPending {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("relationship is %s; only pending can be rejected", r.Status))
	}
	r.Status = RelationshipRejected
	r.Reason = reason
	r.RejectedAt = &now
	return nil
}
