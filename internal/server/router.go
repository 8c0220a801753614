package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/vanshika/creditscore/internal/scoreapi"
)

const healthProbeTimeout = 2 * time.Second

// RouterDependencies collects handler dependencies. Nil members switch the
// matching routes off.
type RouterDependencies struct {
	Health           HealthService
	API              *APIHandlers
	Metrics          *Metrics
	AllowedOrigins   []string
	AllowCredentials bool
}

// NewRouter mounts the score backend routes and wraps them in request ID,
// logging, metrics and CORS middleware, outermost last.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", healthHandler(logger, deps.Health))

	if deps.API != nil {
		mux.HandleFunc(scoreapi.Path, deps.API.handleAction)
		mux.HandleFunc("/api/plans", deps.API.handlePlans)
	}
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = loggingMiddleware(logger, handler)
	if deps.Metrics != nil {
		handler = deps.Metrics.middleware(handler)
	}
	handler = requestIDMiddleware(handler)
	if len(deps.AllowedOrigins) > 0 {
		handler = corsMiddleware(deps.AllowedOrigins, deps.AllowCredentials)(handler)
	}
	return handler
}

func healthHandler(logger *slog.Logger, health HealthService) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()

		payload := map[string]any{"status": "ok"}
		var err error
		switch h := health.(type) {
		case nil:
		case HealthChecks:
			payload["checks"], err = h.Results(ctx)
		default:
			err = h.Probe(ctx)
		}

		status := http.StatusOK
		if err != nil {
			logger.Error("health probe failed", "error", err)
			status = http.StatusServiceUnavailable
			payload["status"] = "degraded"
			payload["error"] = err.Error()
		}
		respondJSON(w, status, payload)
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}
