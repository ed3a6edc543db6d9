package controllers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/qanlink/qanlink-backend/api/responses"
	"github.com/qanlink/qanlink-backend/pkg/config"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
)

const readyCheckTimeout = 5 * time.Second

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-QanLink-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency. Nil pingers are skipped so
// processes that carry a subset of the stack can reuse the handler.
func HealthReady(cfg *config.Config, logg *logger.Logger, database, cache, broker Pinger) http.HandlerFunc {
	checks := []struct {
		name   string
		pinger Pinger
	}{
		{"database", database},
		{"redis", cache},
		{"pubsub", broker},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-QanLink-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		var combined error
		failing := make([]string, 0, len(checks))
		for _, check := range checks {
			if check.pinger == nil {
				continue
			}
			if err := check.pinger.Ping(ctx); err != nil {
				combined = multierr.Append(combined, err)
				failing = append(failing, check.name)
			}
		}

		if combined != nil {
			err := pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "readiness check failed").
				WithDetails(map[string]any{"failing": failing})
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
