package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type sessionContextKey struct{}

// Session gives each visitor a stable uuid cookie. All per-visitor
// state (cart, menu, analytics snapshot, notifications) is keyed by
// this id; a new browser session starts from scratch, matching the
// page-lifetime semantics of the state containers.
func Session(cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string

			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				if _, err := uuid.Parse(c.Value); err == nil {
					sessionID = c.Value
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), sessionID)))
		})
	}
}

// WithSessionID attaches a session id to the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sessionID)
}

// SessionID returns the visitor's session id, or "" outside the
// Session middleware.
func SessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionContextKey{}).(string); ok {
		return id
	}
	return ""
}
