package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/brianmwirigi/sokofresh-backend/api/responses"
	"github.com/brianmwirigi/sokofresh-backend/pkg/config"
	pkgerrors "github.com/brianmwirigi/sokofresh-backend/pkg/errors"
	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
)

const envHeader = "X-SokoFresh-Env"

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the datasource and redis are reachable before the
// instance accepts traffic.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]pinger{
			"db":    db,
			"redis": cache,
		}
		for name, dep := range checks {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
