// Package handler exposes parental consent and relationship verification
// over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guardian/internal/consent/models"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	audit "guardian/pkg/platform/audit"
	"guardian/pkg/platform/httputil"
	"guardian/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the consent engine as seen by the transport.
type Service interface {
	RequestConsent(ctx context.Context, childID id.ChildID, category id.ConsentCategory) (*models.ConsentRecord, error)
	InitiateVerification(ctx context.Context, consentID id.ConsentID, method models.Method, destination string) (*models.ConsentRecord, error)
	CompleteVerification(ctx context.Context, consentID id.ConsentID, code string) (*models.ConsentRecord, error)
	Deny(ctx context.Context, consentID id.ConsentID) (*models.ConsentRecord, error)
	Revoke(ctx context.Context, consentID id.ConsentID) (*models.ConsentRecord, error)
	ListConsents(ctx context.Context, childID id.ChildID) ([]*models.ConsentRecord, error)

	CreateRelationship(ctx context.Context, childID id.ChildID, t models.RelationshipType) (*models.Relationship, error)
	InitiateRelationshipVerification(ctx context.Context, childID id.ChildID, method models.Method, destination string) (*models.Relationship, error)
	CompleteRelationshipVerification(ctx context.Context, childID id.ChildID, code string) (*models.Relationship, error)
	VerifyRelationship(ctx context.Context, relID id.RelationshipID, method models.Method) (*models.Relationship, error)
	RejectRelationship(ctx context.Context, relID id.RelationshipID, reason string) (*models.Relationship, error)
	ListRelationships(ctx context.Context, childID id.ChildID) ([]*models.Relationship, error)

	RequireVerifiedRelationship(ctx context.Context, parentID id.ParentID, childID id.ChildID) error
	GetAccessAuditTrail(ctx context.Context, childID id.ChildID) ([]audit.Event, error)
}

// Handler wires consent endpoints to the consent service.
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

// Register mounts the parent-facing endpoints. The router is expected to
// require an authenticated parent.
func (h *Handler) Register(r chi.Router) {
	r.Post("/children/{childID}/relationships", h.HandleCreateRelationship)
	r.Get("/children/{childID}/relationships", h.HandleListRelationships)
	r.Post("/children/{childID}/relationships/verification", h.HandleInitiateRelationshipVerification)
	r.Post("/children/{childID}/relationships/verification/complete", h.HandleCompleteRelationshipVerification)

	r.Post("/children/{childID}/consents", h.HandleRequestConsent)
	r.Get("/children/{childID}/consents", h.HandleListConsents)
	r.Get("/children/{childID}/access-audit", h.HandleAccessAuditTrail)

	r.Post("/consents/{consentID}/verification", h.HandleInitiateVerification)
	r.Post("/consents/{consentID}/verification/complete", h.HandleCompleteVerification)
	r.Post("/consents/{consentID}/deny", h.HandleDeny)
	r.Post("/consents/{consentID}/revoke", h.HandleRevoke)
}

// RegisterAdmin mounts operator endpoints. Requests reach them as the
// system actor.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/relationships/{relationshipID}/decision", h.HandleDecideRelationship)
}

func (h *Handler) HandleRequestConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RequestConsentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.service.RequestConsent(ctx, childID, req.parsed)
	if err != nil {
		h.fail(ctx, w, "consent request failed", err, "child_id", childID, "category", req.parsed)
		return
	}
	h.logger.InfoContext(ctx, "consent requested",
		"request_id", requestcontext.RequestID(ctx),
		"child_id", childID,
		"consent_id", rec.ID,
		"category", rec.Category,
	)
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) HandleInitiateVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[InitiateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.service.InitiateVerification(ctx, consentID, req.parsed, req.Destination)
	if err != nil {
		h.fail(ctx, w, "consent verification could not start", err, "consent_id", consentID, "method", req.parsed)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, rec)
}

func (h *Handler) HandleCompleteVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.service.CompleteVerification(ctx, consentID, req.Code)
	if err != nil {
		h.fail(ctx, w, "consent verification failed", err, "consent_id", consentID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	h.consentTransition(w, r, "deny", h.service.Deny)
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	h.consentTransition(w, r, "revoke", h.service.Revoke)
}

func (h *Handler) consentTransition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, id.ConsentID) (*models.ConsentRecord, error)) {
	ctx := r.Context()
	consentID, ok := h.consentID(w, r)
	if !ok {
		return
	}
	rec, err := fn(ctx, consentID)
	if err != nil {
		h.fail(ctx, w, "consent "+op+" failed", err, "consent_id", consentID)
		return
	}
	h.logger.InfoContext(ctx, "consent "+op,
		"request_id", requestcontext.RequestID(ctx),
		"consent_id", consentID,
		"status", rec.Status,
	)
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleListConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.authorizedChild(w, r)
	if !ok {
		return
	}
	records, err := h.service.ListConsents(ctx, childID)
	if err != nil {
		h.fail(ctx, w, "list consents failed", err, "child_id", childID)
		return
	}
	if records == nil {
		records = []*models.ConsentRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, consentsResponse{Consents: records})
}

func (h *Handler) HandleCreateRelationship(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRelationshipRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rel, err := h.service.CreateRelationship(ctx, childID, req.parsed)
	if err != nil {
		h.fail(ctx, w, "relationship create failed", err, "child_id", childID)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rel)
}

func (h *Handler) HandleInitiateRelationshipVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[InitiateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rel, err := h.service.InitiateRelationshipVerification(ctx, childID, req.parsed, req.Destination)
	if err != nil {
		h.fail(ctx, w, "relationship verification could not start", err, "child_id", childID, "method", req.parsed)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, rel)
}

func (h *Handler) HandleCompleteRelationshipVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rel, err := h.service.CompleteRelationshipVerification(ctx, childID, req.Code)
	if err != nil {
		h.fail(ctx, w, "relationship verification failed", err, "child_id", childID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rel)
}

func (h *Handler) HandleListRelationships(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.authorizedChild(w, r)
	if !ok {
		return
	}
	rels, err := h.service.ListRelationships(ctx, childID)
	if err != nil {
		h.fail(ctx, w, "list relationships failed", err, "child_id", childID)
		return
	}
	if rels == nil {
		rels = []*models.Relationship{}
	}
	httputil.WriteJSON(w, http.StatusOK, relationshipsResponse{Relationships: rels})
}

func (h *Handler) HandleAccessAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	events, err := h.service.GetAccessAuditTrail(ctx, childID)
	if err != nil {
		h.fail(ctx, w, "access audit read failed", err, "child_id", childID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAccessTrail(events))
}

func (h *Handler) HandleDecideRelationship(w http.ResponseWriter, r *http.Request) {
	ctx := requestcontext.AsSystem(r.Context())
	relID, err := id.ParseRelationshipID(chi.URLParam(r, "relationshipID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[DecideRelationshipRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	var rel *models.Relationship
	if req.Decision == "verify" {
		rel, err = h.service.VerifyRelationship(ctx, relID, models.MethodStrongIdentity)
	} else {
		rel, err = h.service.RejectRelationship(ctx, relID, req.Reason)
	}
	if err != nil {
		h.fail(ctx, w, "relationship decision failed", err, "relationship_id", relID, "decision", req.Decision)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rel)
}

func (h *Handler) childID(w http.ResponseWriter, r *http.Request) (id.ChildID, bool) {
	childID, err := id.ParseChildID(chi.URLParam(r, "childID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ChildID{}, false
	}
	return childID, true
}

func (h *Handler) consentID(w http.ResponseWriter, r *http.Request) (id.ConsentID, bool) {
	consentID, err := id.ParseConsentID(chi.URLParam(r, "consentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ConsentID{}, false
	}
	return consentID, true
}

// authorizedChild parses the child and requires a verified link for parents.
func (h *Handler) authorizedChild(w http.ResponseWriter, r *http.Request) (id.ChildID, bool) {
	childID, ok := h.childID(w, r)
	if !ok {
		return id.ChildID{}, false
	}
	ctx := r.Context()
	if requestcontext.ActorOf(ctx) == requestcontext.ActorSystem {
		return childID, true
	}
	parentID := requestcontext.ParentID(ctx)
	if parentID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.ChildID{}, false
	}
	if err := h.service.RequireVerifiedRelationship(ctx, parentID, childID); err != nil {
		h.fail(ctx, w, "relationship check failed", err, "child_id", childID)
		return id.ChildID{}, false
	}
	return childID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeVerificationDeliveryFailed:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
