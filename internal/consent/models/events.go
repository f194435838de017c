package models

import (
	"time"

	id "guardian/pkg/domain"
)

// Event types on the consent and relationship streams.
const (
	EventConsentRequested              = "ConsentRequested"
	EventConsentVerificationInitiated  = "ConsentVerificationInitiated"
	EventConsentGranted                = "ConsentGranted"
	EventConsentDenied                 = "ConsentDenied"
	EventConsentRevoked                = "ConsentRevoked"
	EventRelationshipCreated           = "RelationshipCreated"
	EventRelationshipVerificationStart = "RelationshipVerificationInitiated"
	EventRelationshipVerified          = "RelationshipVerified"
	EventRelationshipRejected          = "RelationshipRejected"
)

// ConsentTransition is the payload of every consent event: the record as it
// stood after the transition.
type ConsentTransition struct {
	ConsentID id.ConsentID       `json:"consent_id"`
	ChildID   id.ChildID         `json:"child_id"`
	ParentID  id.ParentID        `json:"parent_id"`
	Category  id.ConsentCategory `json:"category"`
	Status    Status             `json:"status"`
	Method    Method             `json:"method,omitempty"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

func TransitionOf(r *ConsentRecord) ConsentTransition {
	return ConsentTransition{
		ConsentID: r.ID,
		ChildID:   r.ChildID,
		ParentID:  r.ParentID,
		Category:  r.Category,
		Status:    r.Status,
		Method:    r.VerificationMethod,
		ExpiresAt: r.ExpiresAt,
		Reason:    r.DenialReason,
	}
}

type RelationshipTransition struct {
	RelationshipID id.RelationshipID  `json:"relationship_id"`
	ParentID       id.ParentID        `json:"parent_id"`
	ChildID        id.ChildID         `json:"child_id"`
	Type           RelationshipType   `json:"type"`
	Status         RelationshipStatus `json:"status"`
	Method         Method             `json:"method,omitempty"`
	Reason         string             `json:"reason,omitempty"`
}

func RelationshipTransitionOf(r *Relationship) RelationshipTransition {
	return RelationshipTransition{
		RelationshipID: r.ID,
		ParentID:       r.ParentID,
		ChildID:        r.ChildID,
		Type:           r.Type,
		Status:         r.Status,
		Method:         r.Method,
		Reason:         r.Reason,
	}
}
