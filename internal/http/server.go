// Package http exposes the dashboard metrics and ledger writes as a JSON API.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// DashboardAPI is the read side served by the API.
type DashboardAPI interface {
	Overview(ctx context.Context, userID string, month core.Date) (*services.Dashboard, error)
	Trend(ctx context.Context, userID string, month core.Date, months int) ([]metrics.TrendPoint, []metrics.BalancePoint, error)
	Convert(ctx context.Context, userID string, amount decimal.Decimal, from, to string) (services.Conversion, error)
}

// LedgerAPI is the write side served by the API.
type LedgerAPI interface {
	RecordTransaction(ctx context.Context, in services.TransactionInput) (core.Transaction, error)
	RecordTransfer(ctx context.Context, in services.TransferInput) (services.Transfer, error)
	ListTransactions(ctx context.Context, userID string, month core.Date) ([]core.Transaction, error)
	SaveAccount(ctx context.Context, a core.Account) (core.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	SaveGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	AddGoalFunds(ctx context.Context, userID, goalID, amount string) (core.Goal, error)
	SetBudget(ctx context.Context, userID, category, amount, month string) (core.Budget, error)
	SetExchangeRate(ctx context.Context, userID string, r core.ExchangeRate) error
	ListSnapshots(ctx context.Context, userID string) ([]core.MonthSnapshot, error)
}

var (
	_ DashboardAPI = (*services.DashboardService)(nil)
	_ LedgerAPI    = (*services.LedgerService)(nil)
)

// Options tunes the server beyond its dependencies.
type Options struct {
	BaseCurrency       string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	dashboard      DashboardAPI
	ledger         LedgerAPI
	baseCurrency   string
	allowedOrigins []string
	ready          func(ctx context.Context) error
	limiter        *ratelimit.Limiter
	logger         *log.Logger
	shutdownOnce   sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, dashboard DashboardAPI, ledger LedgerAPI, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.BaseCurrency == "" {
		opts.BaseCurrency = metrics.BaseCurrency
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		dashboard:      dashboard,
		ledger:         ledger,
		baseCurrency:   strings.ToUpper(opts.BaseCurrency),
		allowedOrigins: opts.AllowedOrigins,
		ready:          opts.Ready,
		limiter:        ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		logger:         logger,
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	detector := security.NewDetector()
	tracer := trace.NewMiddleware(s.logger, detector.ExtractClientIP)

	r := chi.NewRouter()
	r.Use(tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(detector.Middleware(s.logger))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", UserHeader, trace.RequestIDHeader},
		ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(middleware.StripSlashes)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)
		r.Use(s.limiter.Middleware(userID, func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
		}))
		r.Use(middleware.Timeout(20 * time.Second))

		r.Get("/dashboard", s.dashboardView(dashboardAll))
		r.Get("/net-worth", s.dashboardView(netWorthView))
		r.Get("/trend", s.handleTrend)
		r.Get("/categories", s.dashboardView(categoriesView))
		r.Get("/spending-comparison", s.dashboardView(spendingView))
		r.Get("/savings-rate", s.dashboardView(savingsRateView))
		r.Get("/emergency-fund", s.dashboardView(emergencyFundView))
		r.Get("/health-score", s.dashboardView(healthView))
		r.Get("/budgets/summary", s.dashboardView(budgetsView))
		r.Put("/budgets", s.handleSetBudget)
		r.Get("/goals", s.dashboardView(goalsView))
		r.Post("/goals", s.handleSaveGoal)
		r.Post("/goals/{id}/funds", s.handleAddGoalFunds)
		r.Get("/convert", s.handleConvert)
		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Post("/transfers", s.handleCreateTransfer)
		r.Get("/accounts", s.handleListAccounts)
		r.Post("/accounts", s.handleSaveAccount)
		r.Put("/exchange-rates", s.handleSetExchangeRate)
		r.Get("/snapshots", s.handleListSnapshots)
	})

	return r
}

// requireUser rejects API calls without a caller identity.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := userID(r)
		if id == "" || len(id) > 128 {
			BadRequestError("missing or invalid " + UserHeader + " header").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
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

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}
