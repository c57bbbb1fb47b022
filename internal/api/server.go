// Package api exposes the payroll engine, pay-code catalogue and balance
// ledger over HTTP.
//
// Routes:
//
//	GET  /healthz
//	POST /api/payroll/calculate
//	POST /api/payroll/batch
//	POST /api/payroll/compare
//	GET  /api/paycodes
//	POST /api/paycodes/earnings
//	POST /api/balances/impact
//	POST /api/balances/validate
//	POST /api/overtime/validate
//	GET  /api/rates
//	GET  /api/rates/{year}
//
// With a ledger configured:
//
//	POST /api/balances/transactions
//	GET  /api/balances/{employeeID}/{balanceType}
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

// RouterOptions configures the middleware stack
type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Production     bool
	// RequestsPerMinute limits each client IP; zero disables the limit.
	RequestsPerMinute int
}

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	timeout := 30 * time.Second
	if opts.RequestTimeout > 0 {
		timeout = opts.RequestTimeout
	}
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           opts.Production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !opts.Production,
	})

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := secureMiddleware.Process(w, r); err != nil {
				h.logger.Warn("secure headers blocked request", slog.Any("error", err))
				writeError(w, http.StatusBadRequest, "Request blocked", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	if opts.RequestsPerMinute > 0 {
		r.Use(httprate.Limit(opts.RequestsPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), nil)
			}),
		))
	}

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/payroll", func(r chi.Router) {
			r.Post("/calculate", h.CalculatePayroll)
			r.Post("/batch", h.CalculateBatch)
			r.Post("/compare", h.ComparePayroll)
		})

		r.Route("/paycodes", func(r chi.Router) {
			r.Get("/", h.ListPayCodes)
			r.Post("/earnings", h.CalculateEarnings)
		})

		r.Route("/balances", func(r chi.Router) {
			r.Post("/impact", h.BalanceImpact)
			r.Post("/validate", h.ValidateBalance)
			if h.ledger != nil {
				r.Post("/transactions", h.RecordTransaction)
				r.Get("/{employeeID}/{balanceType}", h.GetBalance)
			}
		})

		r.Post("/overtime/validate", h.ValidateOvertime)

		r.Route("/rates", func(r chi.Router) {
			r.Get("/", h.ListRateYears)
			r.Get("/{year}", h.GetRateTable)
		})
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
