// Package server provides the HTTP API for PaperProfit.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/paperprofit/internal/database"
	"github.com/aristath/paperprofit/internal/modules/accounts"
	"github.com/aristath/paperprofit/internal/modules/instruments"
	"github.com/aristath/paperprofit/internal/modules/orders"
	"github.com/aristath/paperprofit/internal/modules/positions"
	"github.com/aristath/paperprofit/internal/modules/signals"
	"github.com/aristath/paperprofit/internal/modules/syslog"
	"github.com/aristath/paperprofit/internal/modules/trades"
	"github.com/aristath/paperprofit/internal/scheduler"
)

// Config holds everything the API surface needs.
type Config struct {
	Log         zerolog.Logger
	DB          *database.DB
	Host        string
	Port        int
	Accounts    *accounts.Repository
	Positions   *positions.Repository
	Orders      *orders.Repository
	Trades      *trades.Repository
	Signals     *signals.Repository
	Instruments *instruments.Service
	Syslog      *syslog.Repository
	Jobs        *scheduler.Controller
}

// Server is the HTTP server.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	system  *SystemHandlers
	trading *TradingHandlers
}

// New creates the HTTP server and wires all routes.
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		system:  NewSystemHandlers(cfg.Log, cfg.DB, cfg.Jobs, cfg.Syslog),
		trading: NewTradingHandlers(cfg.Log, cfg.Accounts, cfg.Positions, cfg.Orders, cfg.Trades, cfg.Signals, cfg.Instruments),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.system.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.system.HandleSystemStatus)
			r.Get("/logs", s.system.HandleSystemLogs)
			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", s.system.HandleJobsStatus)
				r.Post("/{name}/start", s.system.HandleJobStart)
				r.Post("/{name}/stop", s.system.HandleJobStop)
			})
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.trading.HandleListAccounts)
			r.Get("/{accountID}", s.trading.HandleGetAccount)
			r.Get("/{accountID}/positions", s.trading.HandleListPositions)
			r.Get("/{accountID}/orders", s.trading.HandleListOrders)
			r.Get("/{accountID}/trades", s.trading.HandleListTrades)
		})

		r.Post("/orders", s.trading.HandleCreateOrder)
		r.Get("/signals", s.trading.HandleListSignals)

		r.Route("/watchlist", func(r chi.Router) {
			r.Get("/", s.trading.HandleListWatchlist)
			r.Post("/", s.trading.HandleAddToWatchlist)
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving. Blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
