package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tradedash/internal/core"
	applog "tradedash/internal/log"
	"tradedash/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().NoStore().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports ready once a dataset is loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	stats := s.dashboard.Stats()
	status, code := "ready", http.StatusOK
	if !s.dashboard.Ready() {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	NewJSONResponse().Status(code).NoStore().Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"dataset":   stats,
	}).Write(w)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.dashboard.Options()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(opts).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	req, err := ParseSelectionRequest(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	sel, err := s.dashboard.Resolve(req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.viewTimeout)
	defer cancel()

	view, err := s.dashboard.View(ctx, sel)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).WithComponent(applog.ComponentComparison).DebugContext(r.Context(), "Dashboard served",
		applog.NewFields().WithSelection(sel.Year, sel.Countries(), sel.Theme).ToSlice()...)

	NewJSONResponse().Body(toDashboard(view, time.Now())).Write(w)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	// Resolve fills in the latest year when none is given.
	sel, err := s.dashboard.Resolve(services.SelectionRequest{Year: year, CountriesSet: true})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	rows, err := s.dashboard.Comparison(sel.Year)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	metrics, ok := services.ExtractMetrics(rows)

	NewJSONResponse().Body(comparisonResponse{
		Year:       sel.Year,
		Comparison: toRows(rows),
		HasMetrics: ok,
		Metrics:    toMetrics(metrics, ok),
	}).Write(w)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.reloadTimeout)
	defer cancel()

	stats, err := s.dashboard.ReloadAndNotify(ctx)
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Reload failed, keeping current dataset", err, applog.ComponentDataset, applog.OpReload, nil)
		BadGatewayError("reload failed: " + err.Error()).Write(w)
		return
	}

	NewJSONResponse().NoStore().Body(stats).Write(w)
}

// handleStats exposes dataset, request and rate limiter counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().NoStore().Body(map[string]any{
		"dataset":        s.dashboard.Stats(),
		"requests":       s.trace.GetMetrics(),
		"rate_limited":   s.limiter.Rejected(),
		"active_clients": s.limiter.ActiveClients(),
	}).Write(w)
}

// writeServiceError maps service errors to HTTP responses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidYear), errors.Is(err, core.ErrUnknownTheme):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, services.ErrNotLoaded):
		ServiceUnavailableError(err.Error()).Write(w)
	case errors.Is(err, services.ErrNoYears):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		ErrorResponse(http.StatusGatewayTimeout, "timeout", "request timed out").Write(w)
	default:
		applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).ErrorContext(r.Context(),
			"Unhandled service error", applog.FieldError, err, applog.FieldPath, r.URL.Path)
		InternalServerError("internal error").Write(w)
	}
}
