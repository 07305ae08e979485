package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"ideas-feedback/internal/repository"

	"github.com/rs/zerolog"
)

const serviceName = "ideas-feedback"

type HealthHandler struct {
	version string
	checks  map[string]repository.Pinger
	log     zerolog.Logger
	startAt time.Time
}

// NewHealthHandler builds the probes. checks maps a dependency name to
// something that can be pinged; nil entries are skipped. Ping errors go to
// log only, the response just reports "down".
func NewHealthHandler(version string, checks map[string]repository.Pinger, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		version: version,
		checks:  checks,
		log:     log,
		startAt: time.Now(),
	}
}

// Index handles GET /
func (h *HealthHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "online",
		"service": serviceName,
		"version": h.version,
	})
}

// Live handles GET /health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /health/ready, pinging every configured dependency.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name, p := range h.checks {
		if p != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	overall := "healthy"
	checks := make(map[string]interface{}, len(names))
	for _, name := range names {
		start := time.Now()
		err := h.checks[name].Ping(ctx)
		check := map[string]interface{}{
			"status":     "up",
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if err != nil {
			h.log.Warn().Err(err).Str("check", name).Msg("readiness check failed")
			check["status"] = "down"
			overall = "degraded"
		}
		checks[name] = check
	}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"status":         overall,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        h.version,
	})
}
