// Package service serves the compliance surfaces: a complete export of what
// is held about a child and an erasure request that follows the same path
// retention uses.
package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	childmodels "guardian/internal/child/models"
	childservice "guardian/internal/child/service"
	"guardian/internal/compliance/models"
	consentmodels "guardian/internal/consent/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	"guardian/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Consents,Profiles

type Consents interface {
	RequireVerifiedRelationship(ctx context.Context, parentID id.ParentID, childID id.ChildID) error
	ListConsents(ctx context.Context, childID id.ChildID) ([]*consentmodels.ConsentRecord, error)
	ListRelationships(ctx context.Context, childID id.ChildID) ([]*consentmodels.Relationship, error)
	GetAccessAuditTrail(ctx context.Context, childID id.ChildID) ([]audit.Event, error)
}

type Profiles interface {
	Get(ctx context.Context, childID id.ChildID) (*childmodels.Profile, error)
	Erase(ctx context.Context, req childservice.ErasureRequest) (*childmodels.Profile, error)
}

// ComplianceAuditor is fail-closed: an export is not returned unless it was
// recorded.
type ComplianceAuditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	consents Consents
	profiles Profiles
	auditor  ComplianceAuditor
	logger   *slog.Logger
}

func New(consents Consents, profiles Profiles, auditor ComplianceAuditor, logger *slog.Logger) (*Service, error) {
	switch {
	case consents == nil:
		return nil, errors.New("consent service is required")
	case profiles == nil:
		return nil, errors.New("profile service is required")
	case auditor == nil:
		return nil, errors.New("compliance auditor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{consents: consents, profiles: profiles, auditor: auditor, logger: logger}, nil
}

// ExportChild assembles the versioned export for the child.
func (s *Service) ExportChild(ctx context.Context, childID id.ChildID) (*models.Export, error) {
	if err := s.authorize(ctx, childID); err != nil {
		return nil, err
	}
	profile, err := s.profiles.Get(ctx, childID)
	if err != nil {
		return nil, err
	}
	consents, err := s.consents.ListConsents(ctx, childID)
	if err != nil {
		return nil, err
	}
	rels, err := s.consents.ListRelationships(ctx, childID)
	if err != nil {
		return nil, err
	}
	trail, err := s.consents.GetAccessAuditTrail(ctx, childID)
	if err != nil {
		return nil, err
	}

	out := &models.Export{
		FormatVersion: models.FormatVersion,
		ChildID:       childID,
		GeneratedAt:   requestcontext.Now(ctx).UTC(),
		Profile:       profile,
		Consents:      make([]consentmodels.ConsentRecord, 0, len(consents)),
		Relationships: make([]consentmodels.Relationship, 0, len(rels)),
		AccessAudit:   make([]models.AccessRecord, 0, len(trail)),
	}
	for _, c := range consents {
		out.Consents = append(out.Consents, *c)
	}
	slices.SortFunc(out.Consents, func(a, b consentmodels.ConsentRecord) int {
		return cmp.Or(a.RequestedAt.Compare(b.RequestedAt), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	for _, r := range rels {
		out.Relationships = append(out.Relationships, *r)
	}
	slices.SortFunc(out.Relationships, func(a, b consentmodels.Relationship) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	slices.SortStableFunc(trail, func(a, b audit.Event) int {
		return cmp.Or(a.Timestamp.Compare(b.Timestamp), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	for _, e := range trail {
		out.AccessAudit = append(out.AccessAudit, models.AccessRecord{
			Timestamp:       e.Timestamp.UTC(),
			Action:          e.Action,
			Actor:           e.Actor,
			ParentID:        e.ParentID,
			ConsentCategory: e.ConsentCategory,
			Decision:        e.Decision,
			Reason:          e.Reason,
			RequestID:       e.RequestID,
		})
	}

	if err := s.auditor.Emit(ctx, audit.Event{
		Action:   string(audit.ActionDataExported),
		ChildID:  childID,
		Decision: audit.DecisionAllowed,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "compliance audit unavailable")
	}
	s.logger.InfoContext(ctx, "child data exported",
		"child_id", childID,
		"consents", len(out.Consents),
		"relationships", len(out.Relationships),
		"access_records", len(out.AccessAudit),
		"request_id", requestcontext.RequestID(ctx),
	)
	return out, nil
}

// RequestErasure erases the whole profile, or one interaction when
// interactionID is set, on behalf of a verified parent.
func (s *Service) RequestErasure(ctx context.Context, childID id.ChildID, scope childmodels.ErasureScope, interactionID id.InteractionID) (*childmodels.Profile, error) {
	parentID := requestcontext.ParentID(ctx)
	if requestcontext.ActorOf(ctx) != requestcontext.ActorParent || parentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "a signed-in parent is required")
	}
	if err := s.consents.RequireVerifiedRelationship(ctx, parentID, childID); err != nil {
		return nil, err
	}
	return s.profiles.Erase(ctx, childservice.ErasureRequest{
		ChildID:       childID,
		Scope:         scope,
		InteractionID: interactionID,
		Reason:        childmodels.ReasonParentRequest,
	})
}

func (s *Service) authorize(ctx context.Context, childID id.ChildID) error {
	switch requestcontext.ActorOf(ctx) {
	case requestcontext.ActorSystem:
		return nil
	case requestcontext.ActorParent:
		parentID := requestcontext.ParentID(ctx)
		if parentID.IsNil() {
			return dErrors.New(dErrors.CodeUnauthorized, "a signed-in parent is required")
		}
		return s.consents.RequireVerifiedRelationship(ctx, parentID, childID)
	default:
		return dErrors.New(dErrors.CodeForbidden, "exports are available to parents only")
	}
}
