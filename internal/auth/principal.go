package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

var (
	// ErrUnauthorized means the request carried no usable credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the caller's role lacks the permission.
	ErrForbidden = errors.New("forbidden")
)

// Principal is the authenticated admin behind a request.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

// Can reports whether the principal holds perm.
func (p Principal) Can(perm Permission) bool { return HasPermission(p.Role, perm) }

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Require returns middleware that admits only principals holding perm.
// Requests with no principal get 401; principals without perm get 403.
func Require(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				denyJSON(w, http.StatusUnauthorized, "authentication required", "AUTH001")
				return
			}
			if !p.Can(perm) {
				slog.Warn("auth: permission denied",
					"user_id", p.UserID,
					"role", p.Role,
					"permission", perm,
					"path", r.URL.Path,
				)
				denyJSON(w, http.StatusForbidden, "you do not have permission to do this", "AUTH002")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func denyJSON(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
