// Package models holds the consent and relationship records and their state
// machines. The two record types reference a child and a parent only by id.
package models

import (
	"fmt"
	"time"

	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

type Status string

const (
	StatusRequested           Status = "requested"
	StatusPendingVerification Status = "pending_verification"
	StatusGranted             Status = "granted"
	StatusDenied              Status = "denied"
	StatusRevoked             Status = "revoked"
)

// IsOpen reports whether the record may still become Granted.
func (s Status) IsOpen() bool {
	return s == StatusRequested || s == StatusPendingVerification
}

// Method is how a parent proved control of a contact point.
type Method string

const (
	MethodEmail          Method = "email"
	MethodSMS            Method = "sms"
	MethodStrongIdentity Method = "strong_identity"
)

// ParseChannel accepts the methods that deliver a code out of band.
func ParseChannel(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodEmail, MethodSMS:
		return m, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unsupported verification channel %q", s))
	}
}

// Denial reasons recorded on the record.
const (
	DenialCodeExpired       = "code_expired"
	DenialAttemptsExhausted = "attempts_exhausted"
	DenialRequestExpired    = "request_expired"
	DenialParentDeclined    = "parent_declined"
)

// ConsentRecord is one parental authorization attempt for one category.
// Revoked and Denied are terminal; re-authorizing needs a new record.
type ConsentRecord struct {
	ID                 id.ConsentID       `json:"id"`
	ChildID            id.ChildID         `json:"child_id"`
	ParentID           id.ParentID        `json:"parent_id"`
	Category           id.ConsentCategory `json:"category"`
	Status             Status             `json:"status"`
	VerificationMethod Method             `json:"verification_method,omitempty"`
	RequestedAt        time.Time          `json:"requested_at"`
	GrantedAt          *time.Time         `json:"granted_at,omitempty"`
	ExpiresAt          *time.Time         `json:"expires_at,omitempty"`
	RevokedAt          *time.Time         `json:"revoked_at,omitempty"`
	DeniedAt           *time.Time         `json:"denied_at,omitempty"`
	DenialReason       string             `json:"denial_reason,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewConsentRecord starts a record in Requested.
func NewConsentRecord(childID id.ChildID, parentID id.ParentID, category id.ConsentCategory, now time.Time) (*ConsentRecord, error) {
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported consent category: "+string(category))
	}
	if childID.IsNil() || parentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child and parent are required")
	}
	return &ConsentRecord{
		ID:          id.NewConsentID(),
		ChildID:     childID,
		ParentID:    parentID,
		Category:    category,
		Status:      StatusRequested,
		RequestedAt: now,
		UpdatedAt:   now,
	}, nil
}

// IsAuthorizing reports whether this record, on its own, grants the category at now.
func (r *ConsentRecord) IsAuthorizing(now time.Time) bool {
	return r.Status == StatusGranted && (r.ExpiresAt == nil || now.Before(*r.ExpiresAt))
}

// RequestExpired reports whether an open record has outlived ttl.
func (r *ConsentRecord) RequestExpired(now time.Time, ttl time.Duration) bool {
	return r.Status.IsOpen() && ttl > 0 && !now.Before(r.RequestedAt.Add(ttl))
}

// StartVerification moves Requested to PendingVerification. Re-initiating
// while pending is allowed and keeps the state.
func (r *ConsentRecord) StartVerification(method Method, now time.Time) error {
	if !r.Status.IsOpen() {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("consent is %s; verification cannot start", r.Status))
	}
	r.Status = StatusPendingVerification
	r.VerificationMethod = method
	r.UpdatedAt = now
	return nil
}

// Grant completes a pending verification. validity 0 means no expiry.
func (r *ConsentRecord) Grant(now time.Time, validity time.Duration) error {
	if r.Status != StatusPendingVerification {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("consent is %s; only pending verification can be granted", r.Status))
	}
	r.Status = StatusGranted
	r.GrantedAt = &now
	if validity > 0 {
		exp := now.Add(validity)
		r.ExpiresAt = &exp
	}
	r.UpdatedAt = now
	return nil
}

// Deny closes an open record.
func (r *ConsentRecord) Deny(reason string, now time.Time) error {
	if !r.Status.IsOpen() {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("consent is %s; only open requests can be denied", r.Status))
	}
	r.Status = StatusDenied
	r.DeniedAt = &now
	r.DenialReason = reason
	r.UpdatedAt = now
	return nil
}

// Revoke withdraws a grant.
func (r *ConsentRecord) Revoke(now time.Time) error {
	if r.Status != StatusGranted {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("consent is %s; only granted consent can be revoked", r.Status))
	}
	r.Status = StatusRevoked
	r.RevokedAt = &now
	r.UpdatedAt = now
	return nil
}

// IsAuthorized applies the authorization rule over every record of one
// (child, category): exactly one unexpired Granted record and no Revoked
// record revoked after that grant.
func IsAuthorized(records []*ConsentRecord, now time.Time) bool {
	var granted *ConsentRecord
	for _, r := range records {
		if r.IsAuthorizing(now) {
			if granted != nil {
				return false
			}
			granted = r
		}
	}
	if granted == nil {
		return false
	}
	for _, r := range records {
		if r.Status == StatusRevoked && r.RevokedAt != nil && r.RevokedAt.After(*granted.GrantedAt) {
			return false
		}
	}
	return true
}
