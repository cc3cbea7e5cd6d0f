package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/metrics"
	"github.com/dmitrijs2005/metaltracker/internal/server/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
)

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.status = code
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// routeLabel is the matched chi pattern, so ids in the path do not explode
// metric cardinality.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func requestLogger(logger logging.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			elapsed := time.Since(start)
			route := routeLabel(r)
			if m != nil {
				m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
				m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
			}
			logger.Info(r.Context(), "request",
				"method", r.Method,
				"route", route,
				"status", sw.status,
				"duration", elapsed,
				"request_id", chimiddleware.GetReqID(r.Context()),
			)
		})
	}
}

// authenticate resolves the caller through the gate and stores the identity
// in the request context. Every rejection looks the same to the client.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get(common.APIKeyHeaderName)
		authorization := r.Header.Get(common.AuthorizationHeaderName)
		identity, err := s.deps.Gate.ResolveIdentity(r.Context(), apiKey, authorization)
		if err != nil {
			if !errors.Is(err, common.ErrorUnauthorized) {
				s.logger.Error(r.Context(), "identity resolution failed", "error", err)
				writeError(w, ErrInternal)
				return
			}
			if s.deps.Metrics != nil {
				reason := "missing_credentials"
				if apiKey != "" || authorization != "" {
					reason = failureReason(err)
				}
				s.deps.Metrics.AuthFailures.WithLabelValues(reason).Inc()
			}
			writeError(w, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(services.WithIdentity(r.Context(), identity)))
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, common.ErrKeyNotFound):
		return "invalid_api_key"
	case errors.Is(err, common.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, common.ErrTokenRevoked):
		return "token_revoked"
	case errors.Is(err, common.ErrTokenMalformed):
		return "token_malformed"
	case errors.Is(err, common.ErrorNotFound):
		return "unknown_user"
	}
	return "rejected"
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := services.IdentityFromContext(r.Context())
		if !ok || !identity.IsAdmin {
			writeError(w, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit limits per client IP. A nil limiter disables it.
func rateLimit(l *limiter.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	mw := stdlib.NewMiddleware(l,
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, ErrRateLimited)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, ErrInternal)
		}),
	)
	return mw.Handler
}
