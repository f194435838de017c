// Package httptransport assembles the module handlers into one chi router
// with authentication groups for parents, devices and operators.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"guardian/internal/admin"
	childhandler "guardian/internal/child/handler"
	compliancehandler "guardian/internal/compliance/handler"
	consenthandler "guardian/internal/consent/handler"
	"guardian/pkg/platform/httputil"
	adminmw "guardian/pkg/platform/middleware/admin"
	authmw "guardian/pkg/platform/middleware/auth"
	"guardian/pkg/platform/middleware/metadata"
	"guardian/pkg/platform/middleware/requesttime"
)

// Handlers are the module adapters the router mounts.
type Handlers struct {
	Consent    *consenthandler.Handler
	Children   *childhandler.Handler
	Directory  *childhandler.DirectoryHandler
	Compliance *compliancehandler.Handler
	Admin      *admin.Handler
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Tokens     authmw.TokenValidator
	AdminToken string
	Metrics    http.Handler
	Health     map[string]HealthCheck
	Logger     *slog.Logger
}

func NewRouter(h Handlers, cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", healthHandler(cfg.Health, logger))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(cfg.Tokens, logger))

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireParent)
			h.Consent.Register(r)
			h.Children.Register(r)
			h.Directory.Register(r)
			h.Compliance.Register(r)
		})

		// Paired devices and parents.
		h.Children.RegisterDevice(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(cfg.AdminToken, logger))
		h.Consent.RegisterAdmin(r)
		h.Admin.Register(r)
	})
	return r
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				status[name] = "unavailable"
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "dependencies": status})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "dependencies": status})
	}
}
