package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "guardian/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: consent
	// changes, authorization checks on child data, erasure.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events that need human attention: retention
	// escalations, safety incidents, verification abuse.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is the transport-agnostic audit record. It never carries content or
// profile fields, only identifiers and outcomes.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	ChildID   id.ChildID
	ParentID  id.ParentID
	// Actor is "parent", "device" or "system".
	Actor  string
	Action string
	// ConsentCategory is set for consent checks and transitions.
	ConsentCategory string
	Decision        string
	Reason          string
	RequestID       string
	ClientIP        string
	UserAgent       string
	Severity        Severity
}

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Action string

const (
	// Consent lifecycle
	ActionConsentRequested             Action = "consent_requested"
	ActionConsentVerificationInitiated Action = "consent_verification_initiated"
	ActionConsentGranted               Action = "consent_granted"
	ActionConsentDenied                Action = "consent_denied"
	ActionConsentRevoked               Action = "consent_revoked"

	// Access checks against child data
	ActionConsentChecked      Action = "consent_checked"
	ActionRelationshipChecked Action = "relationship_checked"

	// Relationship lifecycle
	ActionRelationshipCreated               Action = "relationship_created"
	ActionRelationshipVerificationInitiated Action = "relationship_verification_initiated"
	ActionRelationshipVerified              Action = "relationship_verified"
	ActionRelationshipRejected              Action = "relationship_rejected"

	// Retention and erasure
	ActionDataDeletionRequested   Action = "data_deletion_requested"
	ActionDataErased              Action = "data_erased"
	ActionRetentionDeletionFailed Action = "retention_deletion_failed"
	ActionRetentionEscalated      Action = "retention_escalated"
	ActionDataExported            Action = "data_exported"

	// Safety
	ActionSafetyBlocked   Action = "safety_blocked"
	ActionSafetyEscalated Action = "safety_escalated"

	// Verification abuse
	ActionVerificationRateLimited Action = "verification_rate_limited"
)

// Decision values for access checks.
const (
	DecisionAllowed = "allowed"
	DecisionDenied  = "denied"
)

var actionCategories = map[Action]EventCategory{
	ActionConsentRequested:                  CategoryCompliance,
	ActionConsentVerificationInitiated:      CategoryCompliance,
	ActionConsentGranted:                    CategoryCompliance,
	ActionConsentDenied:                     CategoryCompliance,
	ActionConsentRevoked:                    CategoryCompliance,
	ActionConsentChecked:                    CategoryCompliance,
	ActionRelationshipChecked:               CategoryCompliance,
	ActionRelationshipCreated:               CategoryCompliance,
	ActionRelationshipVerificationInitiated: CategoryCompliance,
	ActionRelationshipVerified:              CategoryCompliance,
	ActionRelationshipRejected:              CategoryCompliance,
	ActionDataDeletionRequested:             CategoryCompliance,
	ActionDataErased:                        CategoryCompliance,
	ActionDataExported:                      CategoryCompliance,

	ActionRetentionDeletionFailed: CategorySecurity,
	ActionRetentionEscalated:      CategorySecurity,
	ActionSafetyBlocked:           CategorySecurity,
	ActionSafetyEscalated:         CategorySecurity,
	ActionVerificationRateLimited: CategorySecurity,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// IsAccessCheck reports whether the action belongs to the access audit trail.
func (a Action) IsAccessCheck() bool {
	return a == ActionConsentChecked || a == ActionRelationshipChecked
}

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByChild(ctx context.Context, childID id.ChildID) ([]Event, error)
}
