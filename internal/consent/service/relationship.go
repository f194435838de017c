package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"guardian/internal/consent/channel"
	"guardian/internal/consent/models"
	eventmodels "guardian/internal/eventlog/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	"guardian/pkg/platform/sentinel"
	"guardian/pkg/requestcontext"
)

func uuidOf(consentID id.ConsentID) uuid.UUID {
	return uuid.UUID(consentID)
}

// CreateRelationship links the acting parent to the child as Pending.
func (s *Service) CreateRelationship(ctx context.Context, childID id.ChildID, t models.RelationshipType) (*models.Relationship, error) {
	parentID, err := actingParent(ctx)
	if err != nil {
		return nil, err
	}
	var rel *models.Relationship
	err = s.inChild(ctx, childID, func(ctx context.Context) error {
		rel, err = models.NewRelationship(parentID, childID, t, requestcontext.Now(ctx))
		if err != nil {
			return err
		}
		return s.persistRelationship(ctx, rel, true, models.EventRelationshipCreated, audit.ActionRelationshipCreated)
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

func (s *Service) parentLink(ctx context.Context, parentID id.ParentID, childID id.ChildID) (*models.Relationship, error) {
	rel, err := s.relationships.FindByParentAndChild(ctx, parentID, childID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no relationship to this child is on file")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load relationship")
	}
	return rel, nil
}

// InitiateRelationshipVerification sends the acting parent a code that
// proves control of destination. The relationship stays Pending.
func (s *Service) InitiateRelationshipVerification(ctx context.Context, childID id.ChildID, method models.Method, destination string) (*models.Relationship, error) {
	parentID, err := actingParent(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseChannel(string(method)); err != nil {
		return nil, err
	}
	if err := channel.ValidateDestination(method, destination); err != nil {
		return nil, err
	}
	var rel *models.Relationship
	err = s.inChild(ctx, childID, func(ctx context.Context) error {
		rel, err = s.parentLink(ctx, parentID, childID)
		if err != nil {
			return err
		}
		if rel.Status != models.RelationshipPending {
			return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("relationship is %s; verification cannot start", rel.Status))
		}
		if err := s.issueCode(ctx, parentID, childID, uuid.UUID(rel.ID), models.PurposeRelationship, method, destination); err != nil {
			return err
		}
		pending := *rel
		pending.Method = method
		if err := s.appendEvent(ctx, eventmodels.AggregateRelationship, uuid.UUID(rel.ID), models.EventRelationshipVerificationStart, models.RelationshipTransitionOf(&pending)); err != nil {
			return err
		}
		return s.emit(ctx, audit.Event{
			Action:   string(audit.ActionRelationshipVerificationInitiated),
			ChildID:  childID,
			ParentID: parentID,
			Decision: string(rel.Status),
			Reason:   string(method),
		})
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// CompleteRelationshipVerification verifies the acting parent's relationship
// when code matches. Failed attempts leave it Pending; a new code can be
// requested within the rate limit.
func (s *Service) CompleteRelationshipVerification(ctx context.Context, childID id.ChildID, code string) (*models.Relationship, error) {
	parentID, err := actingParent(ctx)
	if err != nil {
		return nil, err
	}
	var rel *models.Relationship
	err = s.inChild(ctx, childID, func(ctx context.Context) error {
		rel, err = s.parentLink(ctx, parentID, childID)
		if err != nil {
			return err
		}
		if rel.Status != models.RelationshipPending {
			return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("relationship is %s; no verification is in progress", rel.Status))
		}
		v, c, err := s.consumeCode(ctx, uuid.UUID(rel.ID), models.PurposeRelationship, code)
		if err != nil {
			return err
		}
		switch v {
		case verdictAccepted:
			if err := rel.Verify(c.Channel, requestcontext.Now(ctx)); err != nil {
				return err
			}
			return s.persistRelationship(ctx, rel, false, models.EventRelationshipVerified, audit.ActionRelationshipVerified)
		case verdictWrong:
			return dErrors.New(dErrors.CodeVerificationInvalid,
				fmt.Sprintf("verification code is incorrect; %d attempts left", c.RemainingAttempts()))
		case verdictExhausted:
			return dErrors.New(dErrors.CodeVerificationInvalid, "verification code is incorrect and no attempts are left; request a new code")
		default:
			return dErrors.New(dErrors.CodeVerificationExpired, "verification code has expired; request a new code")
		}
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// VerifyRelationship records a verification made outside the code flow,
// such as a strong identity check. Only the system may call it.
func (s *Service) VerifyRelationship(ctx context.Context, relID id.RelationshipID, method models.Method) (*models.Relationship, error) {
	return s.systemTransition(ctx, relID, func(ctx context.Context, rel *models.Relationship) error {
		if err := rel.Verify(method, requestcontext.Now(ctx)); err != nil {
			return err
		}
		return s.persistRelationship(ctx, rel, false, models.EventRelationshipVerified, audit.ActionRelationshipVerified)
	})
}

// RejectRelationship closes a pending relationship. Only the system may call it.
func (s *Service) RejectRelationship(ctx context.Context, relID id.RelationshipID, reason string) (*models.Relationship, error) {
	return s.systemTransition(ctx, relID, func(ctx context.Context, rel *models.Relationship) error {
		if err := rel.Reject(reason, requestcontext.Now(ctx)); err != nil {
			return err
		}
		_ = s.codes.Delete(ctx, uuid.UUID(rel.ID))
		return s.persistRelationship(ctx, rel, false, models.EventRelationshipRejected, audit.ActionRelationshipRejected)
	})
}

func (s *Service) systemTransition(ctx context.Context, relID id.RelationshipID, fn func(ctx context.Context, rel *models.Relationship) error) (*models.Relationship, error) {
	if requestcontext.ActorOf(ctx) != requestcontext.ActorSystem {
		return nil, dErrors.New(dErrors.CodeForbidden, "relationship decisions are made by the verification system")
	}
	find := func(ctx context.Context) (*models.Relationship, error) {
		rel, err := s.relationships.FindByID(ctx, relID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "relationship not found")
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load relationship")
		}
		return rel, nil
	}
	first, err := find(ctx)
	if err != nil {
		return nil, err
	}
	var rel *models.Relationship
	err = s.inChild(ctx, first.ChildID, func(ctx context.Context) error {
		rel, err = find(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, rel)
	})
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// ListRelationships returns every relationship for the child, oldest first.
func (s *Service) ListRelationships(ctx context.Context, childID id.ChildID) ([]*models.Relationship, error) {
	rels, err := s.relationships.ListByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load relationships")
	}
	return rels, nil
}
