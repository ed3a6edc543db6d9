package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/api/responses"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
)

// AccountResolver maps a verified identity onto a local account,
// creating one on first contact.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, externalID, name, email string) (uuid.UUID, error)
}

// CurrentUser resolves the token identity to an account id and seeds
// the request context with it. Auth must run first.
func CurrentUser(resolver AccountResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity.ExternalID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
				return
			}
			if resolver == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account resolver unavailable"))
				return
			}

			userID, err := resolver.ResolveAccount(r.Context(), identity.ExternalID, identity.Name, identity.Email)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, userID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
