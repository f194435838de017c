package service

import (
	"context"
	"errors"

	"guardian/internal/consent/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	"guardian/pkg/platform/sentinel"
	"guardian/pkg/requestcontext"
)

// Check reports whether category is authorized for the child right now.
// The outcome is audited before it is returned.
func (s *Service) Check(ctx context.Context, childID id.ChildID, category id.ConsentCategory) (bool, error) {
	missing, err := s.evaluate(ctx, childID, []id.ConsentCategory{category})
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// Require fails with a *models.ConsentRequiredError naming every category
// that is not authorized. Each category check is audited.
func (s *Service) Require(ctx context.Context, childID id.ChildID, categories []id.ConsentCategory) error {
	if len(categories) == 0 {
		return nil
	}
	missing, err := s.evaluate(ctx, childID, categories)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &models.ConsentRequiredError{ChildID: childID, Missing: missing}
	}
	return nil
}

func (s *Service) evaluate(ctx context.Context, childID id.ChildID, categories []id.ConsentCategory) ([]id.ConsentCategory, error) {
	records, err := s.consents.ListByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consents")
	}
	now := requestcontext.Now(ctx)
	byCategory := make(map[id.ConsentCategory][]*models.ConsentRecord)
	for _, r := range records {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	var missing []id.ConsentCategory
	for _, c := range categories {
		ok := models.IsAuthorized(byCategory[c], now)
		decision := audit.DecisionAllowed
		if !ok {
			decision = audit.DecisionDenied
			missing = append(missing, c)
		}
		if err := s.emit(ctx, audit.Event{
			Action:          string(audit.ActionConsentChecked),
			ChildID:         childID,
			ConsentCategory: string(c),
			Decision:        decision,
		}); err != nil {
			s.metrics.IncCheck("consent", "audit_failed")
			return nil, err
		}
		s.metrics.IncCheck("consent", decision)
	}
	return missing, nil
}

// CheckRelationshipValidity reports whether parentID holds a verified
// relationship to the child. The outcome is audited.
func (s *Service) CheckRelationshipValidity(ctx context.Context, parentID id.ParentID, childID id.ChildID) (bool, error) {
	status, err := s.relationshipStatus(ctx, parentID, childID)
	if err != nil {
		return false, err
	}
	return status == models.RelationshipVerified, nil
}

// RequireVerifiedRelationship fails with a *models.RelationshipNotVerifiedError
// when parentID may not act for the child.
func (s *Service) RequireVerifiedRelationship(ctx context.Context, parentID id.ParentID, childID id.ChildID) error {
	status, err := s.relationshipStatus(ctx, parentID, childID)
	if err != nil {
		return err
	}
	if status != models.RelationshipVerified {
		return &models.RelationshipNotVerifiedError{ParentID: parentID, ChildID: childID, Status: status}
	}
	return nil
}

func (s *Service) relationshipStatus(ctx context.Context, parentID id.ParentID, childID id.ChildID) (models.RelationshipStatus, error) {
	var status models.RelationshipStatus
	rel, err := s.relationships.FindByParentAndChild(ctx, parentID, childID)
	switch {
	case err == nil:
		status = rel.Status
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load relationship")
	}

	decision := audit.DecisionDenied
	if status == models.RelationshipVerified {
		decision = audit.DecisionAllowed
	}
	reason := string(status)
	if reason == "" {
		reason = "none"
	}
	if err := s.emit(ctx, audit.Event{
		Action:   string(audit.ActionRelationshipChecked),
		ChildID:  childID,
		ParentID: parentID,
		Decision: decision,
		Reason:   reason,
	}); err != nil {
		s.metrics.IncCheck("relationship", "audit_failed")
		return "", err
	}
	s.metrics.IncCheck("relationship", decision)
	return status, nil
}

// GetAccessAuditTrail returns the audited authorization checks for the
// child, oldest first. Parents need a verified relationship to read it.
func (s *Service) GetAccessAuditTrail(ctx context.Context, childID id.ChildID) ([]audit.Event, error) {
	if requestcontext.ActorOf(ctx) != requestcontext.ActorSystem {
		parentID, err := actingParent(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.RequireVerifiedRelationship(ctx, parentID, childID); err != nil {
			return nil, err
		}
	}
	events, err := s.trail.ListByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail")
	}
	var out []audit.Event
	for _, e := range events {
		if audit.Action(e.Action).IsAccessCheck() {
			out = append(out, e)
		}
	}
	return out, nil
}
