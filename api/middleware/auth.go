package middleware

import (
	"net/http"
	"strings"

	"github.com/qanlink/qanlink-backend/api/responses"
	pkgauth "github.com/qanlink/qanlink-backend/pkg/auth"
	"github.com/qanlink/qanlink-backend/pkg/config"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// verified identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if claims.ExternalID() == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing subject"))
				return
			}

			ctx := WithIdentity(r.Context(), Identity{
				ExternalID: claims.ExternalID(),
				Name:       claims.Name,
				Email:      claims.Email,
			})

			if logg != nil {
				ctx = logg.WithField(ctx, "external_id", claims.ExternalID())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
