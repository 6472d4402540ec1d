package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"salesdash/internal/backend"
	applog "salesdash/internal/log"
	"salesdash/internal/metrics"
	"salesdash/internal/middleware/ratelimit"
	"salesdash/internal/middleware/security"
	"salesdash/internal/middleware/trace"
	"salesdash/internal/reports"
	"salesdash/internal/services"
)

const (
	readyProbeTimeout = 2 * time.Second
	rateLimitWindow   = 60
)

// Deps are the collaborators the server routes to. Reports and Metrics may
// be nil; a nil Reports disables /anomalies/latest.
type Deps struct {
	Backend   backend.Backend
	Source    string
	Anomalies *services.AnomalyService
	Summaries *services.SummaryService
	Reports   reports.Store
	Metrics   *metrics.Collectors
	Logger    *applog.Logger

	CORSOrigins []string
	// WritesPerMinute bounds POST and DELETE requests per client.
	WritesPerMinute int
	Now             func() time.Time
}

type Server struct {
	http.Server
	ledger    backend.Backend
	source    string
	anomalies *services.AnomalyService
	summaries *services.SummaryService
	reports   reports.Store
	metrics   *metrics.Collectors
	logger    *applog.Logger
	now       func() time.Time
	started   time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	summaries := deps.Summaries
	if summaries == nil {
		summaries = services.NewSummaryService(services.DefaultSummaryLength)
	}
	source := deps.Source
	if source == "" {
		source = "sales ledger"
	}

	s := &Server{
		ledger:    deps.Backend,
		source:    source,
		anomalies: deps.Anomalies,
		summaries: summaries,
		reports:   deps.Reports,
		metrics:   deps.Metrics,
		logger:    logger,
		now:       now,
		started:   now(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.WritesPerMinute,
			Methods:           []string{http.MethodPost, http.MethodDelete},
		}),
		securityDetector: security.NewDetector(deps.Metrics.SuspiciousRequest),
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, deps.Metrics)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/anomalies", s.handleAnomalies)
	mux.HandleFunc("/anomalies/categories", s.handleCategoryAnomalies)
	mux.HandleFunc("/anomalies/latest", s.handleLatestReport)
	mux.HandleFunc("/anomalies/history", s.handleReportHistory)

	mux.HandleFunc("/get-all-sales", s.handleListSales)
	mux.HandleFunc("/add-sales", s.handleAddSale)
	mux.HandleFunc("/delete-sales/{id}", s.handleDeleteSale)
	mux.HandleFunc("/summarize", s.handleSummarize)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = security.NewCORSMiddleware(security.DefaultCORSConfig(deps.CORSOrigins)).Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.Middleware(logger, trace.RequestID)(handler)
	handler = s.traceMiddleware.Handler(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Shutdown stops the background limiter cleanup, then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	applog.FromContext(r.Context()).Warn("Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError(rateLimitWindow).Write(w)
}

// writeError maps err to its response. Server-side failures are logged at
// error level, client mistakes at debug.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFromErr(err)
	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().WithOperation(op).WithError(err).ToSlice()
	if resp.StatusCode() >= http.StatusInternalServerError {
		logger.Error("Request failed", fields...)
	} else {
		logger.Debug("Request rejected", fields...)
	}
	resp.Write(w)
}
