package service

import (
	"context"
	"errors"
	"fmt"

	"guardian/internal/consent/channel"
	"guardian/internal/consent/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	"guardian/pkg/platform/sentinel"
	"guardian/pkg/requestcontext"
)

// RequestConsent opens a record for category on behalf of the acting parent,
// who must hold a verified relationship to the child. A category that is
// already authorized, or has an open request, is a conflict. Open requests
// past the request TTL are closed as Denied first.
func (s *Service) RequestConsent(ctx context.Context, childID id.ChildID, category id.ConsentCategory) (*models.ConsentRecord, error) {
	parentID, err := actingParent(ctx)
	if err != nil {
		return nil, err
	}
	if !category.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported consent category: "+string(category))
	}

	var rec *models.ConsentRecord
	err = s.inChild(ctx, childID, func(ctx context.Context) error {
		if err := s.RequireVerifiedRelationship(ctx, parentID, childID); err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		existing, err := s.consents.ListByChild(ctx, childID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consents")
		}
		for _, r := range existing {
			if r.Category != category {
				continue
			}
			if r.IsAuthorizing(now) {
				return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("consent for %s is already granted", category))
			}
			if r.RequestExpired(now, s.cfg.RequestTTL) {
				if err := s.expireRequest(ctx, r); err != nil {
					return err
				}
				continue
			}
			if r.Status.IsOpen() {
				return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("a consent request for %s is already open", category))
			}
		}

		rec, err = models.NewConsentRecord(childID, parentID, category, now)
		if err != nil {
			return err
		}
		return s.persistConsent(ctx, rec, models.EventConsentRequested, audit.ActionConsentRequested)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) expireRequest(ctx context.Context, r *models.ConsentRecord) error {
	if err := r.Deny(models.DenialRequestExpired, requestcontext.Now(ctx)); err != nil {
		return err
	}
	return s.persistConsent(ctx, r, models.EventConsentDenied, audit.ActionConsentDenied)
}

// load reads a record outside any unit of work, only to learn its child.
func (s *Service) load(ctx context.Context, consentID id.ConsentID) (*models.ConsentRecord, error) {
	r, err := s.consents.FindByID(ctx, consentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent")
	}
	return r, nil
}

// ownedBy reloads the record inside the unit of work and checks the acting
// parent may operate on it.
func (s *Service) ownedBy(ctx context.Context, consentID id.ConsentID, parentID id.ParentID) (*models.ConsentRecord, error) {
	r, err := s.load(ctx, consentID)
	if err != nil {
		return nil, err
	}
	if r.ParentID != parentID {
		return nil, dErrors.New(dErrors.CodeForbidden, "consent belongs to another parent")
	}
	return r, nil
}

// InitiateVerification sends a single-use code for the record over method
// and moves it to PendingVerification. Re-initiating replaces the code.
// Delivery failure returns CodeVerificationDeliveryFailed and changes nothing.
func (s *Service) InitiateVerification(ctx context.Context, consentID id.ConsentID, method models.Method, destination string) (*models.ConsentRecord, error) {
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
	first, err := s.load(ctx, consentID)
	if err != nil {
		return nil, err
	}

	var (
		rec     *models.ConsentRecord
		outcome error
	)
	err = s.inChild(ctx, first.ChildID, func(ctx context.Context) error {
		r, err := s.ownedBy(ctx, consentID, parentID)
		if err != nil {
			return err
		}
		rec = r
		if r.RequestExpired(requestcontext.Now(ctx), s.cfg.RequestTTL) {
			outcome = dErrors.New(dErrors.CodeVerificationExpired, "consent request has expired; request consent again")
			return s.expireRequest(ctx, r)
		}
		if !r.Status.IsOpen() {
			return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("consent is %s; verification cannot start", r.Status))
		}
		if err := s.issueCode(ctx, parentID, r.ChildID, uuidOf(r.ID), models.PurposeConsent, method, destination); err != nil {
			return err
		}
		if err := r.StartVerification(method, requestcontext.Now(ctx)); err != nil {
			return err
		}
		return s.persistConsent(ctx, r, models.EventConsentVerificationInitiated, audit.ActionConsentVerificationInitiated)
	})
	if err != nil {
		return nil, err
	}
	return rec, outcome
}

// CompleteVerification checks code against the record's pending code. A
// match grants the record. A wrong code costs an attempt; the last attempt,
// or an expired code, denies the record. Denials are committed and returned
// together with the record and a verification error.
func (s *Service) CompleteVerification(ctx context.Context, consentID id.ConsentID, code string) (*models.ConsentRecord, error) {
	parentID, err := actingParent(ctx)
	if err != nil {
		return nil, err
	}
	first, err := s.load(ctx, consentID)
	if err != nil {
		return nil, err
	}

	var (
		rec     *models.ConsentRecord
		outcome error
	)
	err = s.inChild(ctx, first.ChildID, func(ctx context.Context) error {
		r, err := s.ownedBy(ctx, consentID, parentID)
		if err != nil {
			return err
		}
		rec = r
		now := requestcontext.Now(ctx)
		if r.RequestExpired(now, s.cfg.RequestTTL) {
			_ = s.codes.Delete(ctx, uuidOf(r.ID))
			outcome = dErrors.New(dErrors.CodeVerificationExpired, "consent request has expired; request consent again")
			return s.expireRequest(ctx, r)
		}
		if r.Status != models.StatusPendingVerification {
			return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("consent is %s; no verification is in progress", r.Status))
		}

		v, c, err := s.consumeCode(ctx, uuidOf(r.ID), models.PurposeConsent, code)
		if err != nil {
			return err
		}
		switch v {
		case verdictAccepted:
			if err := r.Grant(now, s.cfg.Validity); err != nil {
				return err
			}
			return s.persistConsent(ctx, r, models.EventConsentGranted, audit.ActionConsentGranted)
		case verdictWrong:
			return dErrors.New(dErrors.CodeVerificationInvalid,
				fmt.Sprintf("verification code is incorrect; %d attempts left", c.RemainingAttempts()))
		case verdictExhausted:
			outcome = dErrors.New(dErrors.CodeVerificationInvalid, "verification code is incorrect and no attempts are left; request consent again")
			if err := r.Deny(models.DenialAttemptsExhausted, now); err != nil {
				return err
			}
		default:
			outcome = dErrors.New(dErrors.CodeVerificationExpired, "verification code has expired; request consent again")
			if err := r.Deny(models.DenialCodeExpired, now); err != nil {
				return err
			}
		}
		return s.persistConsent(ctx, r, models.EventConsentDenied, audit.ActionConsentDenied)
	})
	if err != nil {
		return nil, err
	}
	return rec, outcome
}

// Deny closes an open request at the parent's request.
func (s *Service) Deny(ctx context.Context, consentID id.ConsentID) (*models.ConsentRecord, error) {
	parentID, err := actingParent(ctx)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, consentID, func(ctx context.Context, r *models.ConsentRecord) error {
		if r.ParentID != parentID {
			return dErrors.New(dErrors.CodeForbidden, "consent belongs to another parent")
		}
		if err := r.Deny(models.DenialParentDeclined, requestcontext.Now(ctx)); err != nil {
			return err
		}
		_ = s.codes.Delete(ctx, uuidOf(r.ID))
		return s.persistConsent(ctx, r, models.EventConsentDenied, audit.ActionConsentDenied)
	})
}

// Revoke withdraws a grant. Any parent with a verified relationship to the
// child may revoke; so may the system.
func (s *Service) Revoke(ctx context.Context, consentID id.ConsentID) (*models.ConsentRecord, error) {
	return s.transition(ctx, consentID, func(ctx context.Context, r *models.ConsentRecord) error {
		if requestcontext.ActorOf(ctx) != requestcontext.ActorSystem {
			parentID, err := actingParent(ctx)
			if err != nil {
				return err
			}
			if err := s.RequireVerifiedRelationship(ctx, parentID, r.ChildID); err != nil {
				return err
			}
		}
		if err := r.Revoke(requestcontext.Now(ctx)); err != nil {
			return err
		}
		return s.persistConsent(ctx, r, models.EventConsentRevoked, audit.ActionConsentRevoked)
	})
}

func (s *Service) transition(ctx context.Context, consentID id.ConsentID, fn func(ctx context.Context, r *models.ConsentRecord) error) (*models.ConsentRecord, error) {
	first, err := s.load(ctx, consentID)
	if err != nil {
		return nil, err
	}
	var rec *models.ConsentRecord
	err = s.inChild(ctx, first.ChildID, func(ctx context.Context) error {
		r, err := s.load(ctx, consentID)
		if err != nil {
			return err
		}
		rec = r
		return fn(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListConsents returns every record for the child, oldest first.
func (s *Service) ListConsents(ctx context.Context, childID id.ChildID) ([]*models.ConsentRecord, error) {
	records, err := s.consents.ListByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consents")
	}
	return records, nil
}
