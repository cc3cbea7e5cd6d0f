// Package httpapi is the JSON-over-HTTP surface of the server: routing,
// authentication through the gate, request validation and error mapping.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/metrics"
	"github.com/dmitrijs2005/metaltracker/internal/server/prices"
	"github.com/dmitrijs2005/metaltracker/internal/server/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/ulule/limiter/v3"
)

type PriceProvider interface {
	Prices(ctx context.Context) (*prices.Quote, error)
}

// ReadyCheck reports whether a backing service answers.
type ReadyCheck func(ctx context.Context) error

// Deps are the collaborators of the HTTP layer. OAuth, Limiter and Metrics
// may be nil, which disables Google sign-in, rate limiting and metrics.
type Deps struct {
	Users     *services.UserService
	Keys      *services.APIKeyService
	Gate      *services.Gate
	Positions *services.PositionService
	Portfolio *services.PortfolioService
	Settings  *services.SettingsService
	Export    *services.ExportService
	OAuth     *services.OAuthService
	Prices    PriceProvider

	Metrics  *metrics.Metrics
	Limiter  *limiter.Limiter
	Sessions sessions.Store
	Checks   map[string]ReadyCheck
	Logger   logging.Logger

	FrontendURL        string
	TrustForwardHeader bool
}

type Server struct {
	deps   Deps
	logger logging.Logger
	router chi.Router
	now    func() time.Time
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		deps:   deps,
		logger: logger.With("component", "httpapi"),
		now:    time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if s.deps.TrustForwardHeader {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(requestLogger(s.logger, s.deps.Metrics))
	r.Use(chimiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, ErrBadRequest.WithMessage("Method not allowed"))
	})

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/prices", s.listPrices)
		r.Get("/prices/{metal}", s.getPrice)

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(rateLimit(s.deps.Limiter))
				r.Post("/register", s.register)
				r.Post("/login", s.login)
				r.Post("/refresh", s.refresh)
				r.Get("/google", s.googleLogin)
				r.Get("/google/callback", s.googleCallback)
			})
			r.Group(func(r chi.Router) {
				r.Use(s.authenticate)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
				r.Get("/tier-info", s.tierInfo)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/keys", s.listKeys)
			r.Post("/keys", s.createKey)
			r.Delete("/keys/{id}", s.revokeKey)

			r.Get("/positions", s.listPositions)
			r.Post("/positions", s.createPosition)
			r.Get("/positions/{id}", s.getPosition)
			r.Put("/positions/{id}", s.updatePosition)
			r.Delete("/positions/{id}", s.deletePosition)

			r.Get("/settings", s.getSettings)
			r.Put("/settings", s.updateSettings)

			r.Get("/summary", s.summary)
			r.Get("/history", s.history)
			r.Post("/export", s.export)

			r.With(requireAdmin).Put("/admin/users/{id}/tier", s.setTier)
		})
	})

	return r
}

// fail writes the response for a service error. Internal errors are logged
// and never leak their text.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := AsAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError && apiErr != ErrUnavailable {
		s.logger.Error(r.Context(), "request failed", "error", err, "request_id", chimiddleware.GetReqID(r.Context()))
	}
	writeError(w, apiErr)
}

func identity(r *http.Request) *services.Identity {
	id, _ := services.IdentityFromContext(r.Context())
	return id
}
