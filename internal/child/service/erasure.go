package service

import (
	"context"

	"guardian/internal/child/models"
	retentionmodels "guardian/internal/retention/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	"guardian/pkg/requestcontext"
)

// ErasureRequest names the data to erase. For interaction scope an empty
// Categories list covers every category the interaction still holds.
type ErasureRequest struct {
	ChildID       id.ChildID
	Scope         models.ErasureScope
	InteractionID id.InteractionID
	Categories    []id.DataCategory
	Reason        models.DeletionReason
}

func (r ErasureRequest) validate() error {
	switch r.Scope {
	case models.ScopeAll:
		return nil
	case models.ScopeInteraction:
		if r.InteractionID.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "interaction erasure requires an interaction id")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, "scope must be interaction or all")
	}
}

// RequestDataDeletion is a parent's request to delete data now. It runs the
// same erasure path as expired retention.
func (s *Service) RequestDataDeletion(ctx context.Context, childID id.ChildID, scope models.ErasureScope, interactionID id.InteractionID, categories []id.DataCategory) (*models.Profile, error) {
	if _, err := actingParent(ctx); err != nil {
		return nil, err
	}
	return s.Erase(ctx, ErasureRequest{
		ChildID:       childID,
		Scope:         scope,
		InteractionID: interactionID,
		Categories:    categories,
		Reason:        models.ReasonParentRequest,
	})
}

// Erase records the deletion obligation, purges stored content and then
// records the erasure. Each step is idempotent so a failed erasure can be
// driven again from the start by either the scheduler or a parent.
func (s *Service) Erase(ctx context.Context, req ErasureRequest) (*models.Profile, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, req.ChildID, false); err != nil {
		return nil, err
	}
	p, err := s.erase(ctx, req)
	s.metrics.IncOperation("erase", outcome(err))
	if err != nil {
		return nil, err
	}
	s.metrics.IncErasure(string(req.Scope), string(req.Reason))
	return p, nil
}

func (s *Service) erase(ctx context.Context, req ErasureRequest) (*models.Profile, error) {
	now := requestcontext.Now(ctx)
	_, err := s.mutate(ctx, "request_data_deletion", req.ChildID, func(p *models.Profile) error {
		if p.Erased {
			return nil
		}
		return p.RequestDataDeletion(req.Scope, req.InteractionID, req.Categories, req.Reason, now)
	})
	if err != nil {
		return nil, err
	}
	if err := s.purge(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "stored content could not be deleted",
			"child_id", req.ChildID,
			"scope", req.Scope,
			"interaction_id", req.InteractionID,
			"error", err,
		)
		return nil, err
	}
	p, err := s.mutate(ctx, "erase", req.ChildID, func(p *models.Profile) error {
		if req.Scope == models.ScopeAll {
			return p.Erase(req.Reason, now)
		}
		if p.Erased {
			return nil
		}
		return p.EraseInteraction(req.InteractionID, req.Categories, now)
	})
	if err != nil {
		return nil, err
	}

	subject, categories := req.InteractionID, req.Categories
	if req.Scope == models.ScopeAll {
		subject, categories = id.InteractionID{}, nil
	}
	if err := s.retention.Close(ctx, req.ChildID, subject, categories, now); err != nil {
		// Open registrations are erased again when due; erasure is idempotent.
		s.logger.WarnContext(ctx, "failed to close retention registrations",
			"child_id", req.ChildID,
			"error", err,
		)
	}
	if err := s.audit(ctx, req); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "child data erased",
		"child_id", req.ChildID,
		"scope", req.Scope,
		"interaction_id", req.InteractionID,
		"reason", req.Reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}

func (s *Service) audit(ctx context.Context, req ErasureRequest) error {
	if s.auditor == nil {
		return nil
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Action:   string(audit.ActionDataErased),
		ChildID:  req.ChildID,
		Decision: string(req.Scope),
		Reason:   string(req.Reason),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "compliance audit unavailable")
	}
	return nil
}

func (s *Service) purge(ctx context.Context, req ErasureRequest) error {
	var err error
	if req.Scope == models.ScopeAll {
		err = s.artifacts.DeleteChild(ctx, req.ChildID)
	} else {
		err = s.artifacts.Delete(ctx, req.ChildID, req.InteractionID, req.Categories)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeRetentionDeletionFailed, "failed to delete stored content")
	}
	return nil
}

// EraseRegistration erases the data one retention registration covers.
// Content whose profile or interaction was never recorded is purged
// directly so the obligation can still be met.
func (s *Service) EraseRegistration(ctx context.Context, reg *retentionmodels.DataRegistration) error {
	req := ErasureRequest{ChildID: reg.ChildID, Reason: models.ReasonRetentionExpired}
	if reg.IsProfile() {
		req.Scope = models.ScopeAll
	} else {
		req.Scope = models.ScopeInteraction
		req.InteractionID = reg.SubjectID
		req.Categories = []id.DataCategory{reg.Category}
	}
	_, err := s.Erase(ctx, req)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return s.purge(ctx, req)
	}
	return err
}
