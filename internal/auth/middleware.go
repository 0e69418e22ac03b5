package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

type contextKey int

const userContextKey contextKey = iota

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext returns the authenticated user stored by Authenticator.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userContextKey).(*user.User)
	return u, ok
}

// BearerToken extracts the credential from an Authorization header of the
// form "Bearer <token>".
func BearerToken(r *http.Request) (uuid.UUID, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return uuid.Nil, false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return uuid.Nil, false
	}

	tokenID, err := uuid.FromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return uuid.Nil, false
	}

	return tokenID, true
}

// Authenticator resolves the bearer token to an active user and stores it in
// the request context. Requests without a valid credential are rejected with
// 401 before reaching any handler.
func Authenticator(svc Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenID, ok := BearerToken(r)
			if !ok {
				respondUnauthorized(w, "authentication required")
				return
			}

			u, err := svc.Authenticate(r.Context(), tokenID)
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) {
					log.Error().Err(err).Msg("middleware: failed to authenticate request")
				}
				respondUnauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not in the allowed
// set. It must sit below Authenticator in the middleware chain.
func RequireRole(roles ...user.Role) func(http.Handler) http.Handler {
	allowed := make(map[user.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				respondUnauthorized(w, "authentication required")
				return
			}
			if !allowed[u.Role] {
				respondForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission checks the caller's role against the capability matrix.
func RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				respondUnauthorized(w, "authentication required")
				return
			}
			if !Allowed(u.Role, perm) {
				respondForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + message + `"}`))
}

func respondForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"success":false,"error":"insufficient permissions"}`))
}
