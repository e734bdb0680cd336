package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/apperr"
	"clinic-booking-api/internal/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// ErrorWriter renders an apperr.Error; handler.WriteError satisfies it.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// bearerToken returns the credential after the scheme, "" if none.
func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Auth rejects requests without a token (401) or with an invalid or expired
// one (403) before they reach the wrapped handler.
func Auth(secret string, logger *logrus.Logger, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r.Header.Get("Authorization"))
			if raw == "" {
				writeErr(w, r, apperr.Unauthorized("Access denied. No token provided."))
				return
			}

			claims, err := auth.ParseToken(raw, secret)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"path":       r.URL.Path,
					"request_id": RequestID(r.Context()),
				}).WithError(err).Warn("token rejected")
				writeErr(w, r, apperr.Forbidden("Invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Claims returns the verified token claims stored by Auth.
func Claims(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}

// WithClaims is used by tests that call handlers without the middleware.
func WithClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}
