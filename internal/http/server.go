package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
)

// Config holds the transport settings of the API server.
type Config struct {
	Addr               string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	Logger             *log.Logger
}

// Server is the ledger JSON API.
type Server struct {
	http.Server
	svc            *services.Services
	requestTimeout time.Duration
	started        time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc *services.Services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	detector := security.NewDetector()
	s := &Server{
		svc:              svc,
		requestTimeout:   cfg.RequestTimeout,
		started:          time.Now(),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
		}),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, ratelimit.MutatingOnly, s.handleRateLimited)(handler)
	handler = s.withReadTimeout(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = log.ComponentMiddleware(log.ComponentHTTP)(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /incomes", s.handleCreateIncome)
	mux.HandleFunc("GET /incomes", s.handleListIncomes)
	mux.HandleFunc("GET /incomes/summary", s.handleIncomeSummary)
	mux.HandleFunc("GET /incomes/dues/outstanding", s.handleOutstandingDues)
	mux.HandleFunc("GET /incomes/{id}", s.handleGetIncome)
	mux.HandleFunc("PATCH /incomes/{id}", s.handleUpdateIncome)
	mux.HandleFunc("DELETE /incomes/{id}", s.handleDeleteIncome)
	mux.HandleFunc("POST /incomes/{id}/mark-paid", s.handleMarkDueAsPaid)

	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("GET /expenses/summary", s.handleExpenseSummary)
	mux.HandleFunc("GET /expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PATCH /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /financial/summary", s.handleFinancialSummary)
	mux.HandleFunc("GET /financial/analytics", s.handleFinancialAnalytics)
	mux.HandleFunc("GET /financial/balance-sheet", s.handleBalanceSheet)

	mux.HandleFunc("GET /invoices/next-number/{businessUnit}", s.handleNextInvoiceNumber)
	mux.HandleFunc("GET /invoices/stats", s.handleInvoiceStats)
	mux.HandleFunc("POST /invoices", s.handleCreateInvoice)
	mux.HandleFunc("GET /invoices", s.handleListInvoices)
	mux.HandleFunc("GET /invoices/{id}", s.handleGetInvoice)
	mux.HandleFunc("PATCH /invoices/{id}", s.handleUpdateInvoice)
	mux.HandleFunc("DELETE /invoices/{id}", s.handleDeleteInvoice)
}

// withReadTimeout bounds read requests. Writes run to completion so a
// committed change is never reported as a timeout.
func (s *Server) withReadTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r))
	writeJSON(w, http.StatusTooManyRequests, ErrorBody{
		Error:   "rate_limited",
		Message: "rate limit exceeded, please try again later",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	status, code := "ready", http.StatusOK
	if err := s.svc.Ready(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
		checks["database"] = "failed"
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": checks,
		"rateLimiter": map[string]int64{
			"activeClients": s.rateLimiter.GetMetrics().ClientCount,
		},
	})
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
