package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/sheelmorjaria/rdjcustoms-payments/api/responses"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/config"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is the dependency surface readiness checks probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady pings every registered dependency and reports the first failure.
func HealthReady(logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "unavailable"
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" is unavailable").WithDetails(checks))
				return
			}
			checks[name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{
			"status": "ready",
			"checks": checks,
		})
	}
}
