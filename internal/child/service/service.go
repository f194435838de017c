// Package service runs child-profile operations against the event-sourced
// aggregate.
//
// Every operation loads the profile from its stream, checks who is acting
// and which consent the policy demands, lets the aggregate decide, then
// appends at the loaded version. A concurrent append reloads and reapplies
// the operation; no lock is held across the append.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"guardian/internal/child/metrics"
	"guardian/internal/child/models"
	consentmodels "guardian/internal/consent/models"
	"guardian/internal/policy"
	retentionmodels "guardian/internal/retention/models"
	safetymodels "guardian/internal/safety/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	"guardian/pkg/platform/retry"
	"guardian/pkg/platform/sentinel"
	"guardian/pkg/requestcontext"
)

type Repository interface {
	Load(ctx context.Context, childID id.ChildID) (*models.Profile, error)
	Save(ctx context.Context, p *models.Profile) (int64, error)
}

// ConsentGate answers authorization questions and audits each one.
type ConsentGate interface {
	Require(ctx context.Context, childID id.ChildID, categories []id.ConsentCategory) error
	RequireVerifiedRelationship(ctx context.Context, parentID id.ParentID, childID id.ChildID) error
}

type RelationshipCreator interface {
	CreateRelationship(ctx context.Context, childID id.ChildID, t consentmodels.RelationshipType) (*consentmodels.Relationship, error)
}

// Retention records and closes deletion obligations.
type Retention interface {
	Register(ctx context.Context, childID id.ChildID, subject id.InteractionID, categories []id.DataCategory, class policy.Classification, collectedAt time.Time) ([]*retentionmodels.DataRegistration, error)
	Extend(ctx context.Context, childID id.ChildID, category id.DataCategory, at time.Time) error
	Close(ctx context.Context, childID id.ChildID, subject id.InteractionID, categories []id.DataCategory, now time.Time) error
}

type SafetyGate interface {
	Evaluate(ctx context.Context, c safetymodels.Candidate, child safetymodels.ChildContext) (*safetymodels.Result, error)
}

// ArtifactStore holds interaction content. Deletes must be idempotent.
type ArtifactStore interface {
	Save(ctx context.Context, a models.Artifact) error
	Delete(ctx context.Context, childID id.ChildID, interactionID id.InteractionID, categories []id.DataCategory) error
	DeleteChild(ctx context.Context, childID id.ChildID) error
}

type Policy interface {
	Classify(age int) policy.Classification
	SupportedAgeRange() (int, int)
	RequiredConsentCategories(age int, op policy.Operation) ([]id.ConsentCategory, error)
}

// ComplianceAuditor records erasures. A returned error fails the erasure,
// which is then safe to drive again.
type ComplianceAuditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Deps are the collaborators the service cannot run without.
type Deps struct {
	Profiles      Repository
	Consent       ConsentGate
	Relationships RelationshipCreator
	Retention     Retention
	Safety        SafetyGate
	Artifacts     ArtifactStore
	Policy        Policy
}

type Service struct {
	profiles      Repository
	consent       ConsentGate
	relationships RelationshipCreator
	retention     Retention
	safety        SafetyGate
	artifacts     ArtifactStore
	policy        Policy
	auditor       ComplianceAuditor
	retry         retry.Policy
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(a ComplianceAuditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithRetryPolicy bounds the reload-and-retry loop on append conflicts.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		s.retry = p
	}
}

func New(d Deps, opts ...Option) (*Service, error) {
	switch {
	case d.Profiles == nil:
		return nil, errors.New("profile repository is required")
	case d.Consent == nil:
		return nil, errors.New("consent gate is required")
	case d.Relationships == nil:
		return nil, errors.New("relationship creator is required")
	case d.Retention == nil:
		return nil, errors.New("retention registrar is required")
	case d.Safety == nil:
		return nil, errors.New("safety gate is required")
	case d.Artifacts == nil:
		return nil, errors.New("artifact store is required")
	case d.Policy == nil:
		return nil, errors.New("policy is required")
	}
	s := &Service{
		profiles:      d.Profiles,
		consent:       d.Consent,
		relationships: d.Relationships,
		retention:     d.Retention,
		safety:        d.Safety,
		artifacts:     d.Artifacts,
		policy:        d.Policy,
		retry:         retry.DefaultPolicy(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterRequest is what a parent supplies for a new profile.
type RegisterRequest struct {
	Name         string
	Birthdate    time.Time
	Language     string
	Relationship consentmodels.RelationshipType
}

// Register creates the profile, links the acting parent as Pending and
// records the profile's retention obligation before the first append.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Profile, error) {
	parentID, err := actingParent(ctx)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	minAge, maxAge := s.policy.SupportedAgeRange()
	p, err := models.Register(id.NewChildID(), parentID, models.RegisterInput{
		Name:      req.Name,
		Birthdate: req.Birthdate,
		Language:  req.Language,
	}, models.AgeRange{Min: minAge, Max: maxAge}, now)
	if err != nil {
		s.metrics.IncOperation("register", string(dErrors.CodeOf(err)))
		return nil, err
	}
	age := p.AgeAt(now)
	if err := s.requireConsent(ctx, p, policy.OpRegister, age); err != nil {
		return nil, err
	}
	if _, err := s.retention.Register(ctx, p.ID, id.InteractionID{}, []id.DataCategory{id.DataProfile}, s.policy.Classify(age), now); err != nil {
		return nil, err
	}
	if _, err := s.profiles.Save(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist child profile")
	}
	if _, err := s.relationships.CreateRelationship(ctx, p.ID, req.Relationship); err != nil {
		s.logger.ErrorContext(ctx, "child registered without a relationship record",
			"child_id", p.ID,
			"parent_id", parentID,
			"error", err,
		)
		return p, err
	}
	s.metrics.IncOperation("register", "ok")
	s.logger.InfoContext(ctx, "child registered",
		"child_id", p.ID,
		"parent_id", parentID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}

// Get returns the profile to a verified parent or to the system.
func (s *Service) Get(ctx context.Context, childID id.ChildID) (*models.Profile, error) {
	if err := s.authorize(ctx, childID, false); err != nil {
		return nil, err
	}
	return s.load(ctx, childID)
}

func (s *Service) AddAllowedTopic(ctx context.Context, childID id.ChildID, topic string) (*models.Profile, error) {
	return s.parentUpdate(ctx, "add_allowed_topic", childID, policy.OpAddAllowedTopic, func(p *models.Profile, now time.Time) error {
		return p.AddAllowedTopic(topic, now)
	})
}

func (s *Service) AddRestrictedTopic(ctx context.Context, childID id.ChildID, topic string) (*models.Profile, error) {
	return s.parentUpdate(ctx, "add_restricted_topic", childID, policy.OpAddRestrictedTopic, func(p *models.Profile, now time.Time) error {
		return p.AddRestrictedTopic(topic, now)
	})
}

func (s *Service) UpdateParentalControls(ctx context.Context, childID id.ChildID, c models.ParentalControls) (*models.Profile, error) {
	return s.parentUpdate(ctx, "update_parental_controls", childID, policy.OpUpdateParentalControls, func(p *models.Profile, now time.Time) error {
		return p.UpdateParentalControls(c, now)
	})
}

// parentUpdate runs a settings change for a verified parent.
func (s *Service) parentUpdate(ctx context.Context, name string, childID id.ChildID, op policy.Operation, fn func(p *models.Profile, now time.Time) error) (*models.Profile, error) {
	if _, err := actingParent(ctx); err != nil {
		return nil, err
	}
	p, err := s.gated(ctx, name, childID, op, false, fn)
	s.metrics.IncOperation(name, outcome(err))
	return p, err
}

// gated authorizes the actor, enforces the operation's consent at the
// child's current age and applies fn.
func (s *Service) gated(ctx context.Context, name string, childID id.ChildID, op policy.Operation, allowDevice bool, fn func(p *models.Profile, now time.Time) error) (*models.Profile, error) {
	if err := s.authorize(ctx, childID, allowDevice); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	p, err := s.load(ctx, childID)
	if err != nil {
		return nil, err
	}
	if p.Erased {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "child data has been erased")
	}
	if err := s.requireConsent(ctx, p, op, p.AgeAt(now)); err != nil {
		return nil, err
	}
	return s.mutate(ctx, name, childID, func(p *models.Profile) error {
		return fn(p, now)
	})
}

// authorize admits a parent with a verified relationship and the system.
// Devices are admitted only where allowDevice is set, and only for the
// child they are paired with.
func (s *Service) authorize(ctx context.Context, childID id.ChildID, allowDevice bool) error {
	switch requestcontext.ActorOf(ctx) {
	case requestcontext.ActorSystem:
		return nil
	case requestcontext.ActorParent:
		parentID, err := actingParent(ctx)
		if err != nil {
			return err
		}
		return s.consent.RequireVerifiedRelationship(ctx, parentID, childID)
	default:
		if !allowDevice {
			return dErrors.New(dErrors.CodeForbidden, "this operation requires a parent")
		}
		if requestcontext.PairedChildID(ctx) != childID {
			return dErrors.New(dErrors.CodeForbidden, "device is not paired with this child")
		}
		return nil
	}
}

func (s *Service) requireConsent(ctx context.Context, p *models.Profile, op policy.Operation, age int) error {
	cats, err := s.policy.RequiredConsentCategories(age, op)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return nil
	}
	return s.consent.Require(ctx, p.ID, cats)
}

func (s *Service) load(ctx context.Context, childID id.ChildID) (*models.Profile, error) {
	p, err := s.profiles.Load(ctx, childID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "child profile not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load child profile")
	}
	return p, nil
}

// mutate loads the profile, applies fn and appends what it raised. On a
// concurrent append the profile is discarded, reloaded and fn reapplied;
// fn must therefore depend only on the profile it is given.
func (s *Service) mutate(ctx context.Context, name string, childID id.ChildID, fn func(p *models.Profile) error) (*models.Profile, error) {
	var out *models.Profile
	err := retry.Do(ctx, s.retry, isConflict, func(ctx context.Context) error {
		p, err := s.load(ctx, childID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if _, err := s.profiles.Save(ctx, p); err != nil {
			if isConflict(err) {
				s.metrics.IncConflict(name)
			}
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isConflict(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeConcurrencyConflict)
}

func actingParent(ctx context.Context) (id.ParentID, error) {
	pid := requestcontext.ParentID(ctx)
	if requestcontext.ActorOf(ctx) != requestcontext.ActorParent || pid.IsNil() {
		return id.ParentID{}, dErrors.New(dErrors.CodeUnauthorized, "a signed-in parent is required")
	}
	return pid, nil
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(err))
}
