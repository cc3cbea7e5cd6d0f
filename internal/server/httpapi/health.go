package httpapi

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]string{"status": "ok"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(s.deps.Checks))
	for name := range s.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		if err := s.deps.Checks[name](ctx); err != nil {
			s.logger.Warn(ctx, "readiness check failed", "check", name, "error", err)
			status[name] = "unhealthy"
			healthy = false
			continue
		}
		status[name] = "healthy"
	}

	if !healthy {
		writeError(w, ErrUnavailable.WithMessage("Service not ready").WithDetails(status))
		return
	}
	ok(w, status)
}

func (s *Server) listPrices(w http.ResponseWriter, r *http.Request) {
	quote, err := s.deps.Prices.Prices(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, quote)
}

func (s *Server) getPrice(w http.ResponseWriter, r *http.Request) {
	metal := models.Metal(strings.ToLower(chiParam(r, "metal")))
	if !metal.Valid() {
		writeError(w, ErrValidation.WithMessage("Unknown metal type"))
		return
	}
	quote, err := s.deps.Prices.Prices(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	price, found := quote.Prices[metal]
	if !found {
		writeError(w, ErrNotFound)
		return
	}
	ok(w, map[string]any{
		"metal_type":        price.Metal,
		"spot_per_gram_eur": price.PerGramEUR,
		"spot_per_oz_eur":   price.PerOunceEUR,
		"source":            quote.Source,
		"timestamp":         quote.Timestamp,
	})
}
