package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/newdim001/biz-pro/internal/platform/httpx"
	"github.com/newdim001/biz-pro/internal/shared"
)

// CookieName carries the session token for browser clients.
const CookieName = "bizpro_session"

type principalContextKey struct{}

// ContextWithPrincipal stores p in ctx along with its username as actor.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, principalContextKey{}, p)
	return shared.ContextWithActor(ctx, p.Username)
}

// PrincipalFromContext extracts the authenticated principal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// Middleware wires authentication and authorization helpers for HTTP handlers.
type Middleware struct {
	Sessions *SessionManager
	Logger   *slog.Logger
}

// Authenticate rejects requests without a valid session.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := m.Sessions.Lookup(r.Context(), TokenFromRequest(r))
		if err != nil {
			if !errors.Is(err, shared.ErrInvalidCredentials) && m.Logger != nil {
				m.Logger.Error("auth lookup session", slog.Any("error", err))
			}
			if errors.Is(err, shared.ErrInvalidCredentials) {
				err = httpx.ErrUnauthorized
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}

// RequireAny ensures the principal holds at least one of the features.
func (m Middleware) RequireAny(features ...Feature) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			for _, f := range features {
				if p.Can(f) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.RespondError(w, ErrFeatureDenied)
		})
	}
}

// TokenFromRequest reads a bearer token or the session cookie.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}
