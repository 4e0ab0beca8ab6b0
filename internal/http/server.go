package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "montra/internal/log"
	"montra/internal/middleware/identity"
	"montra/internal/middleware/ratelimit"
	"montra/internal/middleware/security"
	"montra/internal/middleware/trace"
	"montra/internal/report"
	"montra/internal/services"
	"montra/internal/sheets"
)

// Deps carries what the server needs from the rest of the application.
type Deps struct {
	Ledger  *services.LedgerService
	Reports *report.Cached
	// Sheets may be nil; the sheets export then answers 503.
	Sheets    sheets.RowExporter
	SheetName string
	Identity  *identity.Resolver
	Logger    *applog.Logger
	RateLimit ratelimit.Config
	// TrustedProxies are added to the private ranges trusted for
	// X-Forwarded-For.
	TrustedProxies []string
}

type appMetrics struct {
	started             time.Time
	transactionsCreated int64
	exports             int64
}

type Server struct {
	http.Server
	ledger    *services.LedgerService
	reports   *report.Cached
	sheets    sheets.RowExporter
	sheetName string
	identity  *identity.Resolver
	logger    *applog.Logger

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter
	metrics  appMetrics

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.NewDefault()
	}
	if deps.Identity == nil {
		deps.Identity = identity.NewResolver(identity.Config{})
	}
	if deps.SheetName == "" {
		deps.SheetName = "Montra"
	}

	s := &Server{
		ledger:    deps.Ledger,
		reports:   deps.Reports,
		sheets:    deps.Sheets,
		sheetName: deps.SheetName,
		identity:  deps.Identity,
		logger:    deps.Logger.WithComponent(applog.ComponentHTTP),
		tracer:    trace.NewMiddleware(),
		detector:  security.NewDetector(),
		limiter:   ratelimit.NewLimiter(deps.RateLimit),
		metrics:   appMetrics{started: time.Now()},
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("/api/", s.identity.Middleware(s.unauthorized)(s.apiRoutes()))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) apiRoutes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/dashboard", s.handleDashboard)

	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("POST /api/transactions/quick-add", s.handleQuickAdd)
	api.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	api.HandleFunc("GET /api/categories", s.handleListCategories)
	api.HandleFunc("POST /api/categories", s.handleCreateCategory)
	api.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	api.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	api.HandleFunc("GET /api/budgets", s.handleListBudgets)
	api.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	api.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	api.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	api.HandleFunc("GET /api/savings", s.handleListGoals)
	api.HandleFunc("POST /api/savings", s.handleCreateGoal)
	api.HandleFunc("PUT /api/savings/{id}", s.handleUpdateGoal)
	api.HandleFunc("DELETE /api/savings/{id}", s.handleDeleteGoal)
	api.HandleFunc("POST /api/savings/{id}/add-money", s.handleAddMoney)

	api.HandleFunc("GET /api/profile", s.handleGetProfile)
	api.HandleFunc("PUT /api/profile", s.handleUpdateProfile)

	api.HandleFunc("GET /api/reports", s.handleAnnualReport)
	api.HandleFunc("GET /api/reports/export/csv", s.handleExportCSV)
	api.HandleFunc("GET /api/reports/export/pdf", s.handleExportPDF)
	api.HandleFunc("GET /api/reports/export/xlsx", s.handleExportXLSX)
	api.HandleFunc("POST /api/reports/export/sheets", s.handleExportSheets)
	api.HandleFunc("GET /api/charts/{chart}", s.handleChart)
	return api
}

// chain wraps h with the middleware stack, outermost first: request id and
// metrics, security headers, probe detection, request logging, then rate
// limiting of mutating requests.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.rateLimited)(h)
	h = applog.AccessMiddleware(s.detector.ExtractClientIP)(h)
	h = applog.RequestIDMiddleware(trace.FromRequest)(h)
	h = applog.Middleware(s.logger)(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentIdentity).WarnContext(r.Context(),
		"Request without valid identity",
		applog.FieldPath, r.URL.Path,
		applog.FieldErrorType, applog.ErrorTypeAuth,
		applog.FieldError, err)
	ErrorResponse(http.StatusUnauthorized, "unauthorized").Write(w)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
		"Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// userID returns the caller resolved by the identity middleware.
func userID(r *http.Request) int64 {
	id, _ := identity.UserID(r.Context())
	return id
}

func (s *Server) countExport() { atomic.AddInt64(&s.metrics.exports, 1) }

// Shutdown stops background workers and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
	})
	return s.Server.Shutdown(ctx)
}
