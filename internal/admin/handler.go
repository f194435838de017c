// Package admin exposes operator endpoints. The router mounts them behind
// the admin token, so every request here runs as the system actor.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	retentionservice "guardian/internal/retention/service"
	"guardian/pkg/platform/httputil"
	"guardian/pkg/requestcontext"
)

type RetentionRunner interface {
	RunOnce(ctx context.Context, now time.Time) (retentionservice.Report, error)
}

type Handler struct {
	retention RetentionRunner
	logger    *slog.Logger
}

func New(retention RetentionRunner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{retention: retention, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/retention/run", h.HandleRunRetention)
}

// HandleRunRetention runs one scheduler pass now instead of waiting for the
// next tick.
func (h *Handler) HandleRunRetention(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := requestcontext.Now(ctx)
	report, err := h.retention.RunOnce(ctx, now)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual retention pass failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "manual retention pass",
		"request_id", requestcontext.RequestID(ctx),
		"due", report.Due,
		"deleted", report.Deleted,
		"escalated", report.Escalated,
	)
	httputil.WriteJSON(w, http.StatusOK, RetentionRunResponse{
		RanAt:     now,
		Due:       report.Due,
		Deleted:   report.Deleted,
		Failed:    report.Failed,
		Escalated: report.Escalated,
	})
}
