package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/config"
)

// TokenCookie is the cookie the admin pages read the access token from.
const TokenCookie = "access_token"

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// RoleLookup returns the current role of a user from the profile store.
type RoleLookup func(ctx context.Context, userID string) (auth.Role, error)

// LocalPrincipal is attached to every request when authentication is
// disabled for local development.
var LocalPrincipal = auth.Principal{UserID: "local", Email: "local@localhost", Role: auth.SuperAdmin}

// Authenticate verifies the bearer token (or the access_token cookie) and
// stores the principal in the request context. The role always comes from
// the profile store, never from the token.
//
// Requests without valid credentials continue without a principal; the
// per-route auth.Require rejects them. If RequireAuth is false every
// request runs as LocalPrincipal.
func Authenticate(cfg *config.SecurityConfig, verifier TokenVerifier, lookup RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAuth {
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), LocalPrincipal)))
				return
			}

			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				slog.Warn("auth: invalid token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			role, err := lookup(r.Context(), claims.Subject)
			if err != nil {
				level := slog.LevelWarn
				if !errors.Is(err, auth.ErrUnauthorized) {
					level = slog.LevelError
				}
				slog.Log(r.Context(), level, "auth: role lookup failed",
					"user_id", claims.Subject,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			p := auth.Principal{UserID: claims.Subject, Email: claims.Email, Role: role}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "bearer "
		if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
			return strings.TrimSpace(h[len(prefix):])
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}
