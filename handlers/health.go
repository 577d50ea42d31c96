package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/sop-assistant/app"
	"github.com/upb/sop-assistant/utils"
	"go.uber.org/zap"
)

// Version is reported by the status endpoint
const Version = "0.1.0"

// HealthCheck returns a simple health check handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessCheck reports ready only when the database answers
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := "ready"
		checks := map[string]string{}

		switch {
		case deps.DB == nil:
			status = "not_ready"
			checks["database"] = "not_initialized"
		default:
			if err := deps.DB.HealthCheck(ctx); err != nil {
				status = "not_ready"
				checks["database"] = "unhealthy"
				deps.Logger.Error("database health check failed", zap.Error(err))
			} else {
				checks["database"] = "healthy"
			}
		}

		// provider reachability is reported but does not gate readiness, since
		// requests may carry their own key
		switch {
		case deps.Provider == nil:
			checks["providers"] = "none_configured"
		case deps.Provider.IsAvailable(ctx):
			checks["providers"] = "available"
		default:
			checks["providers"] = "unavailable"
			deps.Logger.Warn("language model provider unreachable", zap.String("provider", deps.Provider.Name()))
		}

		code := http.StatusOK
		if status != "ready" {
			code = http.StatusServiceUnavailable
		}
		_ = utils.WriteJSON(w, code, map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerNames := []string{}
		if deps.Provider != nil {
			providerNames = append(providerNames, deps.Provider.Name())
		}

		response := map[string]interface{}{
			"version":     Version,
			"environment": deps.Config.Environment,
			"providers":   providerNames,
			"models": map[string]string{
				"chat":      deps.Config.OpenAI.ChatModel,
				"embedding": deps.Config.OpenAI.EmbeddingModel,
			},
		}

		_ = utils.WriteJSON(w, http.StatusOK, response)
	}
}
