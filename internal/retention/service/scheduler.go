package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"guardian/internal/retention/metrics"
	"guardian/internal/retention/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	"guardian/pkg/requestcontext"
)

// Eraser deletes the data one registration covers through the profile's
// erasure path. It must be idempotent.
type Eraser interface {
	EraseRegistration(ctx context.Context, r *models.DataRegistration) error
}

// SecurityAuditor receives escalations. It must not block.
type SecurityAuditor interface {
	Emit(ctx context.Context, event audit.Event)
}

// Report summarizes one scheduler pass.
type Report struct {
	Due       int
	Deleted   int
	Failed    int
	Escalated int
}

// Scheduler deletes data whose retention has elapsed. It never acts before
// a registration's scheduled deletion time and escalates anything still
// present after the grace window, while continuing to retry it.
type Scheduler struct {
	store     Store
	eraser    Eraser
	grace     time.Duration
	security  SecurityAuditor
	logger    *slog.Logger
	metrics   *metrics.Metrics
	batchSize int
	interval  time.Duration
	clock     func() time.Time
}

type SchedulerOption func(*Scheduler)

func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

func WithSecurityAuditor(a SecurityAuditor) SchedulerOption {
	return func(s *Scheduler) { s.security = a }
}

func WithBatchSize(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithClock(clock func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.clock = clock }
}

func NewScheduler(store Store, eraser Eraser, grace time.Duration, opts ...SchedulerOption) (*Scheduler, error) {
	if store == nil {
		return nil, fmt.Errorf("registration store is required")
	}
	if eraser == nil {
		return nil, fmt.Errorf("eraser is required")
	}
	if grace < 0 {
		return nil, fmt.Errorf("grace must not be negative")
	}
	s := &Scheduler{
		store:     store,
		eraser:    eraser,
		grace:     grace,
		logger:    slog.Default(),
		batchSize: 100,
		interval:  time.Hour,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RunOnce attempts every registration due at now once, one page at a time.
// Each attempt is stamped before it runs, so registrations that keep
// failing drop behind the ones not yet tried in this pass.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveRun(time.Since(start).Seconds()) }()

	var rep Report
	seen := make(map[id.RegistrationID]struct{})
	sysCtx := requestcontext.AsSystem(requestcontext.WithTime(ctx, now))
	for {
		page, err := s.store.ListDue(ctx, now, s.batchSize)
		if err != nil {
			return rep, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list due registrations")
		}
		fresh := 0
		for _, reg := range page {
			if _, ok := seen[reg.ID]; ok {
				continue
			}
			seen[reg.ID] = struct{}{}
			fresh++
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			rep.Due++
			s.metrics.AddDue(1)
			deleted, escalated, err := s.process(sysCtx, reg, now)
			if err != nil {
				return rep, err
			}
			if deleted {
				rep.Deleted++
			} else {
				rep.Failed++
			}
			if escalated {
				rep.Escalated++
			}
		}
		if fresh == 0 {
			return rep, nil
		}
	}
}

// process returns an error only when the registration itself cannot be
// saved; deletion failures are recorded on the registration.
func (s *Scheduler) process(ctx context.Context, reg *models.DataRegistration, now time.Time) (deleted, escalated bool, err error) {
	reg.MarkDeletionRequested(now)
	reg.MarkAttempted(now)
	if err := s.store.Save(ctx, reg); err != nil {
		return false, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
	}

	eraseErr := s.eraser.EraseRegistration(ctx, reg)
	if eraseErr == nil {
		if err := reg.MarkDeleted(now); err != nil {
			return false, false, err
		}
		if err := s.store.Save(ctx, reg); err != nil {
			return false, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
		}
		s.metrics.IncDeleted(string(reg.Category))
		s.logger.InfoContext(ctx, "retained data deleted",
			"registration_id", reg.ID,
			"child_id", reg.ChildID,
			"category", reg.Category,
		)
		return true, false, nil
	}

	reg.MarkFailed(eraseErr)
	s.metrics.IncFailed(string(reg.Category))
	s.logger.WarnContext(ctx, "retention deletion failed",
		"registration_id", reg.ID,
		"child_id", reg.ChildID,
		"category", reg.Category,
		"attempts", reg.Attempts,
		"error", eraseErr,
	)
	s.emit(ctx, reg, audit.ActionRetentionDeletionFailed, audit.SeverityWarning, eraseErr.Error())

	if reg.Overdue(now, s.grace) && reg.Escalate(now) {
		escalated = true
		s.metrics.IncEscalated()
		s.logger.ErrorContext(ctx, "CRITICAL: retained data not deleted within grace window",
			"registration_id", reg.ID,
			"child_id", reg.ChildID,
			"category", reg.Category,
			"scheduled_deletion_at", reg.ScheduledDeletionAt,
			"attempts", reg.Attempts,
			"error", eraseErr,
		)
		s.emit(ctx, reg, audit.ActionRetentionEscalated, audit.SeverityCritical,
			fmt.Sprintf("deletion overdue since %s: %v", reg.ScheduledDeletionAt.Add(s.grace).Format(time.RFC3339), eraseErr))
	}
	if err := s.store.Save(ctx, reg); err != nil {
		return false, escalated, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration")
	}
	return false, escalated, nil
}

func (s *Scheduler) emit(ctx context.Context, reg *models.DataRegistration, action audit.Action, severity audit.Severity, reason string) {
	if s.security == nil {
		return
	}
	s.security.Emit(ctx, audit.Event{
		Category: action.Category(),
		Action:   string(action),
		ChildID:  reg.ChildID,
		Actor:    string(requestcontext.ActorSystem),
		Reason:   reason,
		Severity: severity,
	})
}

// Run calls RunOnce every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		rep, err := s.RunOnce(ctx, s.clock())
		switch {
		case err != nil && ctx.Err() == nil:
			s.logger.ErrorContext(ctx, "retention pass failed", "error", err)
		case rep.Due > 0:
			s.logger.InfoContext(ctx, "retention pass complete",
				"due", rep.Due, "deleted", rep.Deleted, "failed", rep.Failed, "escalated", rep.Escalated)
		}
		if err == nil && rep.Deleted == s.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
