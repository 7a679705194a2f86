package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"tradedash/internal/core"
	applog "tradedash/internal/log"
	"tradedash/internal/middleware/ratelimit"
	"tradedash/internal/middleware/security"
	"tradedash/internal/middleware/trace"
	"tradedash/internal/services"
)

// Dashboard is what the HTTP layer needs from the dashboard service.
type Dashboard interface {
	Resolve(req services.SelectionRequest) (core.Selection, error)
	View(ctx context.Context, sel core.Selection) (core.DashboardView, error)
	Comparison(year int) ([]core.YearlyRow, error)
	Options() (services.Options, error)
	Stats() services.Stats
	Ready() bool
	ReloadAndNotify(ctx context.Context) (services.Stats, error)
}

var _ Dashboard = (*services.DashboardService)(nil)

type Options struct {
	RateLimitPerMinute int
	AllowOrigin        string
	ViewTimeout        time.Duration
	ReloadTimeout      time.Duration
}

type Server struct {
	http.Server

	dashboard     Dashboard
	limiter       *ratelimit.Limiter
	trace         *trace.Middleware
	startedAt     time.Time
	viewTimeout   time.Duration
	reloadTimeout time.Duration
	shutdownOnce  sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, dashboard Dashboard, logger *applog.Logger, opts Options) *Server {
	if opts.ViewTimeout <= 0 {
		opts.ViewTimeout = 10 * time.Second
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = 2 * time.Minute
	}

	ipResolver := security.NewClientIPResolver()
	s := &Server{
		dashboard:     dashboard,
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		trace:         trace.NewMiddleware(logger, ipResolver.ClientIP),
		startedAt:     time.Now(),
		viewTimeout:   opts.ViewTimeout,
		reloadTimeout: opts.ReloadTimeout,
	}

	limited := s.limiter.Middleware(ipResolver.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/options", s.handleOptions)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/comparison", s.handleComparison)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.Handle("POST /api/reload", limited(http.HandlerFunc(s.handleReload)))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no route for " + r.Method + " " + r.URL.Path).Write(w)
	})

	headers := security.DefaultHeadersConfig()
	headers.AllowOrigin = opts.AllowOrigin

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(headers).Middleware(handler)
	handler = s.trace.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      opts.ReloadTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// ListenAndServe runs the server until Shutdown; http.ErrServerClosed is
// not reported as an error.
func (s *Server) ListenAndServe() error {
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
