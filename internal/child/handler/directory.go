package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guardian/internal/child/projection"
	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/httputil"
	"guardian/pkg/requestcontext"
)

// Directory lists a parent's children from the read model. It can lag the
// event log by the relay delay.
type Directory interface {
	Children(ctx context.Context, parentID id.ParentID) ([]*projection.Summary, error)
}

type DirectoryHandler struct {
	directory Directory
	logger    *slog.Logger
}

func NewDirectory(directory Directory, logger *slog.Logger) *DirectoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryHandler{directory: directory, logger: logger}
}

func (h *DirectoryHandler) Register(r chi.Router) {
	r.Get("/me/children", h.HandleList)
}

type childrenResponse struct {
	Children []*projection.Summary `json:"children"`
}

func (h *DirectoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parentID := requestcontext.ParentID(ctx)
	if parentID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "a signed-in parent is required"))
		return
	}
	children, err := h.directory.Children(ctx, parentID)
	if err != nil {
		h.logger.ErrorContext(ctx, "child directory read failed",
			"parent_id", parentID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list children"))
		return
	}
	if children == nil {
		children = []*projection.Summary{}
	}
	httputil.WriteJSON(w, http.StatusOK, childrenResponse{Children: children})
}
