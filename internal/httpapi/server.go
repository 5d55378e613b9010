// Package httpapi exposes the REST surface: generic CRUD for transactions,
// categories and subscriptions, plus balance, stats and report endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ojeda-dev/fintrack/internal/events"
	"github.com/ojeda-dev/fintrack/internal/finance"
	"github.com/ojeda-dev/fintrack/internal/validate"
)

// Config carries the dependencies a Server needs. Stores are required;
// Events, Log and Now default to no-op publisher, slog.Default and time.Now.
type Config struct {
	Transactions  TransactionStore
	Categories    CategoryStore
	Subscriptions SubscriptionStore
	Reports       ReportStore
	Events        events.Publisher
	Log           *slog.Logger
	Now           func() time.Time
}

// Server routes HTTP traffic to the stores. Create with New.
type Server struct {
	tx      TransactionStore
	cats    CategoryStore
	subs    SubscriptionStore
	reports ReportStore
	events  events.Publisher
	log     *slog.Logger
	now     func() time.Time
	rt      *chi.Mux
}

func New(cfg Config) *Server {
	s := &Server{
		tx:      cfg.Transactions,
		cats:    cfg.Categories,
		subs:    cfg.Subscriptions,
		reports: cfg.Reports,
		events:  cfg.Events,
		log:     cfg.Log,
		now:     cfg.Now,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.rt = chi.NewRouter()
	s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

func (s *Server) routes() {
	s.rt.Use(chimw.RequestID)
	s.rt.Use(requestLogger(s.log))
	s.rt.Use(recoverer(s.log))
	s.rt.Use(metricsMiddleware)

	s.rt.Route("/api", func(r chi.Router) {
		r.Route("/transactions", s.transactionRoutes)
		r.Route("/categories", s.categoryRoutes)
		r.Route("/subscriptions", s.subscriptionRoutes)
		r.Get("/balance", s.balance)
		r.Get("/reports/monthly", s.monthlyReport)
	})

	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}

func (s *Server) categoryRoutes(r chi.Router) {
	crud := NewCrud(CrudConfig[finance.Category, finance.CategoryCreate, finance.CategoryPatch]{
		Store:          s.cats,
		Resource:       "categories",
		Display:        "Category",
		ValidateCreate: validate.CategoryCreate,
		ValidateUpdate: validate.CategoryPatch,
		Events:         s.events,
		Log:            s.log,
		Now:            s.now,
	})
	crud.Mount(r)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports ready only when every store that exposes a readiness probe
// answers it.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, dep := range []any{s.tx, s.cats, s.subs, s.reports} {
		rc, ok := dep.(ReadyChecker)
		if !ok {
			continue
		}
		if err := rc.Ready(ctx); err != nil {
			s.log.Error("readiness check failed", "error", err.Error())
			toJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	toJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
