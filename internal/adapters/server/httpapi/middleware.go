package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/hylla/shopfloor/internal/adapters/server/common"
	"github.com/hylla/shopfloor/internal/auth"
	"github.com/hylla/shopfloor/internal/domain"
)

// SessionCookie names the cookie that carries the session token.
const SessionCookie = "auth"

type userContextKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(domain.User)
	return user, ok
}

// TokenFromRequest reads a bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

// authenticate rejects requests without a valid session.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return RequireAuth(h.auth)(next)
}

// RequireAuth builds middleware that resolves the caller through svc and stores it on the context.
func RequireAuth(svc common.AuthService, perms ...domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		gated := requirePermission(perms...)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if svc == nil {
				writeErrorFrom(w, auth.ErrUnauthorized)
				return
			}
			user, err := svc.Authenticate(r.Context(), TokenFromRequest(r))
			if err != nil {
				writeErrorFrom(w, err)
				return
			}
			gated.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// requirePermission allows callers holding any of perms. No perms means any authenticated caller.
func requirePermission(perms ...domain.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeErrorFrom(w, auth.ErrUnauthorized)
				return
			}
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			for _, perm := range perms {
				if user.Can(perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSONError(w, http.StatusForbidden, APIError{
				Code:    "forbidden",
				Message: "missing permission",
				Context: map[string]any{"required": perms},
			})
		})
	}
}
