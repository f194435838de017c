// Package handler exposes child profiles, interactions and deletion
// requests over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"guardian/internal/child/models"
	"guardian/internal/child/service"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/httputil"
	"guardian/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the profile service as seen by the transport.
type Service interface {
	Register(ctx context.Context, req service.RegisterRequest) (*models.Profile, error)
	Get(ctx context.Context, childID id.ChildID) (*models.Profile, error)
	StoreInteraction(ctx context.Context, childID id.ChildID, in service.InteractionInput) (*service.InteractionResult, error)
	TouchInteraction(ctx context.Context, childID id.ChildID) (*models.Profile, error)
	AddAllowedTopic(ctx context.Context, childID id.ChildID, topic string) (*models.Profile, error)
	AddRestrictedTopic(ctx context.Context, childID id.ChildID, topic string) (*models.Profile, error)
	UpdateParentalControls(ctx context.Context, childID id.ChildID, c models.ParentalControls) (*models.Profile, error)
	RequestDataDeletion(ctx context.Context, childID id.ChildID, scope models.ErasureScope, interactionID id.InteractionID, categories []id.DataCategory) (*models.Profile, error)
}

// DeviceTokens mints tokens bound to a single child.
type DeviceTokens interface {
	GenerateDeviceToken(deviceID string, childID id.ChildID, expiresIn time.Duration) (string, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger

	devices   DeviceTokens
	deviceTTL time.Duration
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// WithDevicePairing enables POST /children/{childID}/devices.
func (h *Handler) WithDevicePairing(tokens DeviceTokens, ttl time.Duration) *Handler {
	h.devices = tokens
	h.deviceTTL = ttl
	return h
}

// Register mounts parent-facing profile endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/children", h.HandleRegister)
	r.Get("/children/{childID}", h.HandleGet)
	r.Post("/children/{childID}/topics/allowed", h.HandleAddAllowedTopic)
	r.Post("/children/{childID}/topics/restricted", h.HandleAddRestrictedTopic)
	r.Put("/children/{childID}/parental-controls", h.HandleUpdateParentalControls)
	r.Post("/children/{childID}/deletion-requests", h.HandleRequestDataDeletion)
	if h.devices != nil {
		r.Post("/children/{childID}/devices", h.HandlePairDevice)
	}
}

// RegisterDevice mounts the endpoints a paired device calls. Parents may
// call them too.
func (h *Handler) RegisterDevice(r chi.Router) {
	r.Post("/children/{childID}/interactions", h.HandleStoreInteraction)
	r.Post("/children/{childID}/interactions/touch", h.HandleTouchInteraction)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RegisterChildRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.Register(ctx, req.parsed)
	if err != nil {
		h.fail(ctx, w, "child registration failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(ctx, childID)
	if err != nil {
		h.fail(ctx, w, "profile read failed", err, "child_id", childID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleStoreInteraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[StoreInteractionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.service.StoreInteraction(ctx, childID, req.input())
	if err != nil {
		h.fail(ctx, w, "interaction not stored", err, "child_id", childID, "device_id", requestcontext.DeviceID(ctx))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) HandleTouchInteraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	if _, err := h.service.TouchInteraction(ctx, childID); err != nil {
		h.fail(ctx, w, "interaction time not updated", err, "child_id", childID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAddAllowedTopic(w http.ResponseWriter, r *http.Request) {
	h.topic(w, r, "allowed", h.service.AddAllowedTopic)
}

func (h *Handler) HandleAddRestrictedTopic(w http.ResponseWriter, r *http.Request) {
	h.topic(w, r, "restricted", h.service.AddRestrictedTopic)
}

func (h *Handler) topic(w http.ResponseWriter, r *http.Request, kind string, fn func(context.Context, id.ChildID, string) (*models.Profile, error)) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TopicRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := fn(ctx, childID, req.Topic)
	if err != nil {
		h.fail(ctx, w, kind+" topic not added", err, "child_id", childID, "topic", req.Topic)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleUpdateParentalControls(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ParentalControlsRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.UpdateParentalControls(ctx, childID, req.parsed)
	if err != nil {
		h.fail(ctx, w, "parental controls not updated", err, "child_id", childID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleRequestDataDeletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DeletionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.RequestDataDeletion(ctx, childID, req.scope, req.interaction, req.categories)
	if err != nil {
		h.fail(ctx, w, "data deletion failed", err, "child_id", childID, "scope", req.scope)
		return
	}
	h.logger.InfoContext(ctx, "data deletion completed",
		"request_id", requestcontext.RequestID(ctx),
		"child_id", childID,
		"scope", req.scope,
	)
	httputil.WriteJSON(w, http.StatusOK, p)
}

// HandlePairDevice issues a token that lets one device act for this child
// only. The caller must be a verified parent of the child.
func (h *Handler) HandlePairDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	childID, ok := h.childID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[PairDeviceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.Get(ctx, childID)
	if err != nil {
		h.fail(ctx, w, "device pairing refused", err, "child_id", childID, "device_id", req.DeviceID)
		return
	}
	if p.Erased {
		h.fail(ctx, w, "device pairing refused", dErrors.New(dErrors.CodeInvariantViolation, "child data has been erased"), "child_id", childID)
		return
	}
	expiresAt := requestcontext.Now(ctx).Add(h.deviceTTL)
	token, err := h.devices.GenerateDeviceToken(req.DeviceID, childID, h.deviceTTL)
	if err != nil {
		h.fail(ctx, w, "device token not issued", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue device token"), "child_id", childID)
		return
	}
	h.logger.InfoContext(ctx, "device paired",
		"request_id", requestcontext.RequestID(ctx),
		"child_id", childID,
		"device_id", req.DeviceID,
		"parent_id", requestcontext.ParentID(ctx),
	)
	httputil.WriteJSON(w, http.StatusCreated, PairDeviceResponse{
		DeviceID:    req.DeviceID,
		ChildID:     childID,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	})
}

func (h *Handler) childID(w http.ResponseWriter, r *http.Request) (id.ChildID, bool) {
	childID, err := id.ParseChildID(chi.URLParam(r, "childID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ChildID{}, false
	}
	return childID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeRetentionDeletionFailed, dErrors.CodeSafetyAnalyzerUnavailable:
		h.logger.ErrorContext(ctx, msg, attrs...)
	default:
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
