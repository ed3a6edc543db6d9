package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/qanlink/qanlink-backend/api/responses"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
)

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// WriteRateLimit throttles authenticated mutating requests per account.
// Reads pass through untouched. CurrentUser must run first.
func WriteRateLimit(store rateLimiterStore, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || limit <= 0 || window <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			userID := UserIDFromContext(r.Context())
			scope := fmt.Sprintf("writes:%s", userID)

			allowed, count, err := store.FixedWindowAllow(r.Context(), scope, limit, window)
			if err != nil {
				// Redis being down should not take writes with it.
				if logg != nil {
					logg.Warn(r.Context(), "rate limit check failed, allowing request")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if logg != nil {
					ctx := logg.WithFields(r.Context(), map[string]any{
						"scope": scope,
						"count": count,
						"limit": limit,
					})
					logg.Warn(ctx, "request rate limited")
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
