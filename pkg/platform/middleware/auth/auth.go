package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "guardian/pkg/domain"
	dErrors "guardian/pkg/domain-errors"
	"guardian/pkg/platform/httputil"
	"guardian/pkg/requestcontext"
)

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	Kind     string
	ParentID string
	DeviceID string
	ChildID  string
	JTI      string
}

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and records the
// principal in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}

			p, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
				return
			}

			switch p.Kind {
			case "parent":
				parentID, err := id.ParseParentID(p.ParentID)
				if err != nil {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid token subject"))
					return
				}
				ctx = requestcontext.WithParentID(ctx, parentID)
			case "device":
				childID, err := id.ParseChildID(p.ChildID)
				if err != nil || p.DeviceID == "" {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Device is not paired with a child"))
					return
				}
				ctx = requestcontext.WithDeviceID(ctx, p.DeviceID, childID)
			default:
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid token subject"))
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireParent only admits authenticated parents.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestcontext.ActorOf(r.Context()) != requestcontext.ActorParent {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "parent credentials required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
