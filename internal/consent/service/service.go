// Package service runs the consent and relationship state machines.
//
// Every transition is written to its store, appended to the event log under
// the record's own stream and recorded in the compliance audit inside one unit
// of work serialized on the child. Authorization checks are audited before
// they return; if the audit write fails the check fails.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"guardian/internal/consent/channel"
	"guardian/internal/consent/codes"
	"guardian/internal/consent/metrics"
	"guardian/internal/consent/models"
	eventmodels "guardian/internal/eventlog/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	"guardian/pkg/platform/sentinel"
	"guardian/pkg/platform/tx"
	"guardian/pkg/requestcontext"
)

type ConsentStore interface {
	Save(ctx context.Context, r *models.ConsentRecord) error
	FindByID(ctx context.Context, consentID id.ConsentID) (*models.ConsentRecord, error)
	ListByChild(ctx context.Context, childID id.ChildID) ([]*models.ConsentRecord, error)
}

type RelationshipStore interface {
	Create(ctx context.Context, r *models.Relationship) error
	Save(ctx context.Context, r *models.Relationship) error
	FindByID(ctx context.Context, relID id.RelationshipID) (*models.Relationship, error)
	FindByParentAndChild(ctx context.Context, parentID id.ParentID, childID id.ChildID) (*models.Relationship, error)
	ListByChild(ctx context.Context, childID id.ChildID) ([]*models.Relationship, error)
}

type CodeStore interface {
	Save(ctx context.Context, c models.VerificationCode) error
	Delete(ctx context.Context, subject uuid.UUID) error
	Consume(ctx context.Context, subject uuid.UUID, purpose models.Purpose, now time.Time, verify func(models.VerificationCode) error) (models.VerificationCode, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (models.RateLimitResult, error)
}

type Sender interface {
	Send(ctx context.Context, msg channel.Message) error
}

type EventLog interface {
	Append(ctx context.Context, aggregateType string, aggregateID uuid.UUID, expectedVersion int64, events []eventmodels.Event) (int64, error)
	Version(ctx context.Context, aggregateType string, aggregateID uuid.UUID) (int64, error)
}

// ComplianceAuditor is fail-closed: a returned error must abort the caller.
type ComplianceAuditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SecurityAuditor is best-effort.
type SecurityAuditor interface {
	Emit(ctx context.Context, event audit.Event)
}

type AuditTrail interface {
	ListByChild(ctx context.Context, childID id.ChildID) ([]audit.Event, error)
}

// Config bounds codes, requests and verification traffic.
type Config struct {
	CodeTTL        time.Duration
	RequestTTL     time.Duration
	Validity       time.Duration
	MaxAttempts    int
	SendsPerWindow int
	SendWindow     time.Duration
}

func DefaultConfig() Config {
	return Config{
		CodeTTL:        15 * time.Minute,
		RequestTTL:     72 * time.Hour,
		MaxAttempts:    5,
		SendsPerWindow: 3,
		SendWindow:     15 * time.Minute,
	}
}

// Deps are the collaborators the service cannot run without.
type Deps struct {
	Consents      ConsentStore
	Relationships RelationshipStore
	Codes         CodeStore
	Limiter       RateLimiter
	Sender        Sender
	Events        EventLog
	Tx            tx.Runner
	Compliance    ComplianceAuditor
	Trail         AuditTrail
}

type Service struct {
	consents      ConsentStore
	relationships RelationshipStore
	codes         CodeStore
	limiter       RateLimiter
	sender        Sender
	events        EventLog
	tx            tx.Runner
	compliance    ComplianceAuditor
	trail         AuditTrail
	security      SecurityAuditor
	cfg           Config
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

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func WithSecurityAuditor(a SecurityAuditor) Option {
	return func(s *Service) {
		s.security = a
	}
}

func New(d Deps, opts ...Option) (*Service, error) {
	switch {
	case d.Consents == nil:
		return nil, errors.New("consent store is required")
	case d.Relationships == nil:
		return nil, errors.New("relationship store is required")
	case d.Codes == nil:
		return nil, errors.New("code store is required")
	case d.Limiter == nil:
		return nil, errors.New("rate limiter is required")
	case d.Sender == nil:
		return nil, errors.New("verification sender is required")
	case d.Events == nil:
		return nil, errors.New("event log is required")
	case d.Tx == nil:
		return nil, errors.New("transaction runner is required")
	case d.Compliance == nil:
		return nil, errors.New("compliance auditor is required")
	case d.Trail == nil:
		return nil, errors.New("audit trail is required")
	}
	s := &Service{
		consents:      d.Consents,
		relationships: d.Relationships,
		codes:         d.Codes,
		limiter:       d.Limiter,
		sender:        d.Sender,
		events:        d.Events,
		tx:            d.Tx,
		compliance:    d.Compliance,
		trail:         d.Trail,
		cfg:           DefaultConfig(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1")
	}
	if s.cfg.CodeTTL <= 0 {
		return nil, fmt.Errorf("code ttl must be positive")
	}
	return s, nil
}

// inChild runs fn as one unit of work serialized on the child.
func (s *Service) inChild(ctx context.Context, childID id.ChildID, fn func(ctx context.Context) error) error {
	return s.tx.RunInTx(tx.WithShardKey(ctx, "child:"+childID.String()), fn)
}

// actingParent returns the authenticated parent or CodeUnauthorized.
func actingParent(ctx context.Context) (id.ParentID, error) {
	pid := requestcontext.ParentID(ctx)
	if requestcontext.ActorOf(ctx) != requestcontext.ActorParent || pid.IsNil() {
		return id.ParentID{}, dErrors.New(dErrors.CodeUnauthorized, "a signed-in parent is required")
	}
	return pid, nil
}

func (s *Service) appendEvent(ctx context.Context, aggregateType string, aggregateID uuid.UUID, eventType string, payload any) error {
	e, err := eventmodels.NewEvent(aggregateType, aggregateID, eventType, payload, requestcontext.Now(ctx))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode event")
	}
	version, err := s.events.Version(ctx, aggregateType, aggregateID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read stream version")
	}
	if _, err := s.events.Append(ctx, aggregateType, aggregateID, version, []eventmodels.Event{e}); err != nil {
		return err
	}
	s.metrics.IncTransition(eventType)
	return nil
}

func (s *Service) emit(ctx context.Context, e audit.Event) error {
	if err := s.compliance.Emit(ctx, e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "compliance audit unavailable")
	}
	return nil
}

func (s *Service) emitSecurity(ctx context.Context, e audit.Event) {
	if s.security == nil {
		return
	}
	if e.Category == "" {
		e.Category = audit.Action(e.Action).Category()
	}
	s.security.Emit(ctx, e)
}

// persistConsent saves the record, audits it and appends its transition.
// The append is the last fallible step: the event stream is not part of
// the caller's unit of work, so nothing after it may fail and roll the
// record back. Callers hold the child's unit of work.
func (s *Service) persistConsent(ctx context.Context, r *models.ConsentRecord, eventType string, action audit.Action) error {
	if err := s.consents.Save(ctx, r); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
	}
	if err := s.emit(ctx, audit.Event{
		Action:          string(action),
		ChildID:         r.ChildID,
		ConsentCategory: string(r.Category),
		Decision:        string(r.Status),
		Reason:          r.DenialReason,
	}); err != nil {
		return err
	}
	return s.appendEvent(ctx, eventmodels.AggregateConsent, uuid.UUID(r.ID), eventType, models.TransitionOf(r))
}

// persistRelationship follows the same order as persistConsent.
func (s *Service) persistRelationship(ctx context.Context, r *models.Relationship, create bool, eventType string, action audit.Action) error {
	var err error
	if create {
		err = s.relationships.Create(ctx, r)
	} else {
		err = s.relationships.Save(ctx, r)
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "a relationship to this child already exists")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save relationship")
	}
	if err := s.emit(ctx, audit.Event{
		Action:   string(action),
		ChildID:  r.ChildID,
		ParentID: r.ParentID,
		Decision: string(r.Status),
		Reason:   r.Reason,
	}); err != nil {
		return err
	}
	return s.appendEvent(ctx, eventmodels.AggregateRelationship, uuid.UUID(r.ID), eventType, models.RelationshipTransitionOf(r))
}

// issueCode rate-limits, stores and sends a fresh code for subject. A send
// failure removes the code and leaves the caller's record untouched.
func (s *Service) issueCode(ctx context.Context, parentID id.ParentID, childID id.ChildID, subject uuid.UUID, purpose models.Purpose, method models.Method, destination string) error {
	now := requestcontext.Now(ctx)
	res, err := s.limiter.Allow(ctx, parentID.String()+":"+string(method), s.cfg.SendsPerWindow, s.cfg.SendWindow, now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rate limiter unavailable")
	}
	if !res.Allowed {
		s.metrics.IncRateLimited()
		s.emitSecurity(ctx, audit.Event{
			Action:   string(audit.ActionVerificationRateLimited),
			ChildID:  childID,
			ParentID: parentID,
			Reason:   string(method),
			Severity: audit.SeverityWarning,
		})
		return dErrors.New(dErrors.CodeRateLimited,
			fmt.Sprintf("too many %s codes requested; try again after %s", method, res.ResetAt.UTC().Format(time.RFC3339)))
	}

	plain, err := codes.Generate()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	hash, err := codes.Hash(plain)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash code")
	}
	code := models.VerificationCode{
		SubjectID:   subject,
		Purpose:     purpose,
		Hash:        hash,
		Channel:     method,
		Destination: destination,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.cfg.CodeTTL),
		MaxAttempts: s.cfg.MaxAttempts,
	}
	if err := s.codes.Save(ctx, code); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
	}
	err = s.sender.Send(ctx, channel.Message{
		Method:      method,
		Destination: destination,
		Code:        plain,
		Purpose:     purpose,
		ExpiresAt:   code.ExpiresAt,
	})
	if err != nil {
		s.metrics.IncDelivery(string(method), "failed")
		if derr := s.codes.Delete(ctx, subject); derr != nil {
			s.logger.WarnContext(ctx, "failed to discard undelivered code", "error", derr)
		}
		if !dErrors.HasCode(err, dErrors.CodeVerificationDeliveryFailed) {
			err = dErrors.Wrap(err, dErrors.CodeVerificationDeliveryFailed, "could not deliver verification code")
		}
		return err
	}
	s.metrics.IncDelivery(string(method), "sent")
	return nil
}

// verdict is the result of consuming a code.
type verdict int

const (
	verdictAccepted verdict = iota
	verdictWrong
	verdictExhausted
	verdictExpired
)

func (s *Service) consumeCode(ctx context.Context, subject uuid.UUID, purpose models.Purpose, submitted string) (verdict, models.VerificationCode, error) {
	c, err := s.codes.Consume(ctx, subject, purpose, requestcontext.Now(ctx), func(c models.VerificationCode) error {
		return codes.Verify(submitted, c.Hash)
	})
	switch {
	case err == nil:
		s.metrics.IncVerification(string(purpose), "accepted")
		return verdictAccepted, c, nil
	case errors.Is(err, sentinel.ErrMismatch):
		if c.Exhausted() {
			s.metrics.IncVerification(string(purpose), "exhausted")
			return verdictExhausted, c, nil
		}
		s.metrics.IncVerification(string(purpose), "wrong")
		return verdictWrong, c, nil
	case errors.Is(err, sentinel.ErrExpired), errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncVerification(string(purpose), "expired")
		return verdictExpired, c, nil
	default:
		return 0, c, dErrors.Wrap(err, dErrors.CodeInternal, "verification code store unavailable")
	}
}
