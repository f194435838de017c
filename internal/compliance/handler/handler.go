// Package handler exposes the compliance export and erasure surfaces.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	childmodels "guardian/internal/child/models"
	"guardian/internal/compliance/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/httputil"
	"guardian/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type Service interface {
	ExportChild(ctx context.Context, childID id.ChildID) (*models.Export, error)
	RequestErasure(ctx context.Context, childID id.ChildID, scope childmodels.ErasureScope, interactionID id.InteractionID) (*childmodels.Profile, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/children/{childID}/export", h.HandleExport)
	r.Post("/children/{childID}/erasure", h.HandleErasure)
}

// ErasureRequest is the body for POST /children/{childID}/erasure. An empty
// interaction_id erases the whole profile.
type ErasureRequest struct {
	InteractionID string `json:"interaction_id,omitempty"`

	scope       childmodels.ErasureScope
	interaction id.InteractionID
}

func (r *ErasureRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.InteractionID == "" {
		r.scope = childmodels.ScopeAll
		return nil
	}
	iid, err := id.ParseInteractionID(r.InteractionID)
	if err != nil {
		return err
	}
	r.scope, r.interaction = childmodels.ScopeInteraction, iid
	return nil
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, err := id.ParseChildID(chi.URLParam(r, "childID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	export, err := h.service.ExportChild(ctx, childID)
	if err != nil {
		h.fail(ctx, w, "export failed", err, "child_id", childID)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="child-`+childID.String()+`.json"`)
	httputil.WriteJSON(w, http.StatusOK, export)
}

func (h *Handler) HandleErasure(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, err := id.ParseChildID(chi.URLParam(r, "childID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ErasureRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.RequestErasure(ctx, childID, req.scope, req.interaction)
	if err != nil {
		h.fail(ctx, w, "erasure failed", err, "child_id", childID, "scope", req.scope)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeRetentionDeletionFailed:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
