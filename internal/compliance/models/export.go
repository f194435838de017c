// Package models holds the versioned compliance export record.
package models

import (
	"time"

	childmodels "guardian/internal/child/models"
	consentmodels "guardian/internal/consent/models"
	id "guardian/pkg/domain"
)

// FormatVersion changes whenever a field is removed or its meaning changes.
const FormatVersion = "1"

// Export is everything held about one child. Slices are sorted oldest first
// with ties broken by id, so two exports of unchanged data are identical
// apart from GeneratedAt.
type Export struct {
	FormatVersion string                        `json:"format_version"`
	ChildID       id.ChildID                    `json:"child_id"`
	GeneratedAt   time.Time                     `json:"generated_at"`
	Profile       *childmodels.Profile          `json:"profile"`
	Consents      []consentmodels.ConsentRecord `json:"consents"`
	Relationships []consentmodels.Relationship  `json:"relationships"`
	AccessAudit   []AccessRecord                `json:"access_audit"`
}

// AccessRecord is one audited authorization check against the child's data.
type AccessRecord struct {
	Timestamp       time.Time   `json:"timestamp"`
	Action          string      `json:"action"`
	Actor           string      `json:"actor,omitempty"`
	ParentID        id.ParentID `json:"parent_id"`
	ConsentCategory string      `json:"consent_category,omitempty"`
	Decision        string      `json:"decision"`
	Reason          string      `json:"reason,omitempty"`
	RequestID       string      `json:"request_id,omitempty"`
}
