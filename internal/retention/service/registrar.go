// Package service registers deletion obligations and runs the scheduler
// that meets them.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"guardian/internal/policy"
	"guardian/internal/retention/metrics"
	"guardian/internal/retention/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
)

// Store persists registrations.
type Store interface {
	Save(ctx context.Context, r *models.DataRegistration) error
	FindByID(ctx context.Context, regID id.RegistrationID) (*models.DataRegistration, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.DataRegistration, error)
	ListByChild(ctx context.Context, childID id.ChildID) ([]*models.DataRegistration, error)
}

// Policy supplies retention periods.
type Policy interface {
	RetentionPeriod(category id.DataCategory, class policy.Classification) (time.Duration, error)
}

// Registrar records deletion obligations as data is collected.
type Registrar struct {
	store   Store
	policy  Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type RegistrarOption func(*Registrar)

func WithRegistrarLogger(logger *slog.Logger) RegistrarOption {
	return func(r *Registrar) { r.logger = logger }
}

func WithRegistrarMetrics(m *metrics.Metrics) RegistrarOption {
	return func(r *Registrar) { r.metrics = m }
}

func NewRegistrar(store Store, p Policy, opts ...RegistrarOption) (*Registrar, error) {
	if store == nil {
		return nil, fmt.Errorf("registration store is required")
	}
	if p == nil {
		return nil, fmt.Errorf("retention policy is required")
	}
	r := &Registrar{store: store, policy: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register creates one registration per category. subject is nil for
// profile data.
func (r *Registrar) Register(ctx context.Context, childID id.ChildID, subject id.InteractionID, categories []id.DataCategory, class policy.Classification, collectedAt time.Time) ([]*models.DataRegistration, error) {
	out := make([]*models.DataRegistration, 0, len(categories))
	for _, c := range categories {
		period, err := r.policy.RetentionPeriod(c, class)
		if err != nil {
			return nil, err
		}
		reg, err := models.NewRegistration(childID, subject, c, class, collectedAt, period)
		if err != nil {
			return nil, err
		}
		if err := r.store.Save(ctx, reg); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register retention")
		}
		r.metrics.IncRegistered(string(c))
		out = append(out, reg)
	}
	return out, nil
}

// Extend pushes the child's open registrations of category forward so they
// count from activity at. Dates never move earlier.
func (r *Registrar) Extend(ctx context.Context, childID id.ChildID, category id.DataCategory, at time.Time) error {
	return r.reschedule(ctx, childID, func(reg *models.DataRegistration) (time.Time, bool, error) {
		if reg.Category != category {
			return time.Time{}, false, nil
		}
		period, err := r.policy.RetentionPeriod(reg.Category, reg.Classification)
		return at.Add(period), true, err
	})
}

// Recompute applies the current policy to the child's open registrations.
// A longer period moves the date forward; a shorter one is ignored so a
// promise already made is never shortened.
func (r *Registrar) Recompute(ctx context.Context, childID id.ChildID) error {
	return r.reschedule(ctx, childID, func(reg *models.DataRegistration) (time.Time, bool, error) {
		period, err := r.policy.RetentionPeriod(reg.Category, reg.Classification)
		return reg.CollectedAt.Add(period), true, err
	})
}

func (r *Registrar) reschedule(ctx context.Context, childID id.ChildID, next func(*models.DataRegistration) (time.Time, bool, error)) error {
	regs, err := r.store.ListByChild(ctx, childID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registrations")
	}
	for _, reg := range regs {
		at, ok, err := next(reg)
		if err != nil {
			return err
		}
		if !ok || !reg.Reschedule(at) {
			continue
		}
		if err := r.store.Save(ctx, reg); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reschedule retention")
		}
	}
	return nil
}

// Close marks the child's open registrations as met once their data is
// gone outside the scheduler. A nil subject with no categories closes
// every registration for the child.
func (r *Registrar) Close(ctx context.Context, childID id.ChildID, subject id.InteractionID, categories []id.DataCategory, now time.Time) error {
	regs, err := r.store.ListByChild(ctx, childID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registrations")
	}
	for _, reg := range regs {
		if !reg.Status.Open() {
			continue
		}
		if !subject.IsNil() && reg.SubjectID != subject {
			continue
		}
		if len(categories) > 0 && !slices.Contains(categories, reg.Category) {
			continue
		}
		if err := reg.MarkDeleted(now); err != nil {
			return err
		}
		if err := r.store.Save(ctx, reg); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close registration")
		}
	}
	return nil
}

// ListByChild returns the child's registrations, earliest deletion first.
func (r *Registrar) ListByChild(ctx context.Context, childID id.ChildID) ([]*models.DataRegistration, error) {
	regs, err := r.store.ListByChild(ctx, childID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registrations")
	}
	return regs, nil
}
