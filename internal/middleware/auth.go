package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"astral-server/internal/auth"
	"astral-server/internal/shared/errors"
	"astral-server/internal/shared/response"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

type Authenticator struct {
	tokens *auth.TokenService
}

func NewAuthenticator(tokens *auth.TokenService) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// JWT requires a valid bearer token and stores its claims in the request
// context.
func (a *Authenticator) JWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := slog.With(
			"middleware", "jwt",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		logger.Debug("Processing JWT authentication")

		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			response.Error(w, r, logger, errors.Unauthorized("authentication required"))
			return
		}

		claims, err := a.tokens.Validate(token)
		if err != nil {
			response.Error(w, r, logger, errors.Unauthorized("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		logger.Debug("JWT authentication successful", "subject", claims.Subject, "role", claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetClaimsFromContext(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(ClaimsContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
