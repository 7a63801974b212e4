package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openkmj/timjs/models"
	"github.com/openkmj/timjs/services"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	adminContextKey contextKey = "admin"
)

// Authenticator is the subset of services.AuthService the middleware needs.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*models.User, error)
	ValidateAdminToken(token string) (*services.AdminClaims, error)
}

// Authenticate resolves the bearer API key to a user. With allowQuery the
// key may also come from the "token" query parameter, for clients that
// cannot set headers on a websocket handshake.
func Authenticate(auth Authenticator, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerToken(r)
			if key == "" && allowQuery {
				key = r.URL.Query().Get("token")
			}
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing or malformed API key")
				return
			}

			user, err := auth.Authenticate(r.Context(), key)
			if err != nil {
				if errors.Is(err, services.ErrAuthenticationFailed) {
					writeError(w, http.StatusUnauthorized, "invalid API key")
					return
				}
				LoggerFromContext(r.Context()).ErrorContext(r.Context(), "api key lookup failed", slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAdmin accepts only a valid admin JWT.
func RequireAdmin(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := auth.ValidateAdminToken(bearerToken(r))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "admin authentication required")
				return
			}
			ctx := context.WithValue(r.Context(), adminContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok && user != nil
}

func AdminFromContext(ctx context.Context) (*services.AdminClaims, bool) {
	claims, ok := ctx.Value(adminContextKey).(*services.AdminClaims)
	return claims, ok && claims != nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
