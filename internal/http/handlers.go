package http

import (
	"context"
	"net/http"
	"time"

	applog "salesdash/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.ledger == nil {
		checks["ledger"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if err := s.ledger.Ping(ctx); err != nil {
		applog.FromContext(r.Context()).Warn("Ledger readiness probe failed", applog.FieldError, err)
		checks["ledger"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["ledger"] = "ok"
	}

	// Reports are optional: a failing store degrades /anomalies/latest only.
	if s.reports == nil {
		checks["reports"] = "disabled"
	} else if err := s.reports.Ping(ctx); err != nil {
		checks["reports"] = "failed: " + err.Error()
	} else {
		checks["reports"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"rejected":       s.rateLimiter.Rejected(),
	}

	resp := NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"source":    s.source,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
	if httpStatus == http.StatusServiceUnavailable {
		resp.Header("Retry-After", "5")
	}
	resp.Write(w)
}

// handleMetrics exposes the Prometheus registry.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	if s.metrics == nil {
		NotFoundError("metrics are disabled").Write(w)
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}
