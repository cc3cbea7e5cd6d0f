package httpapi

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/services"
	"github.com/go-chi/chi/v5"
)

func chiParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func pathID(r *http.Request) (int64, *APIError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadRequest.WithMessage("Invalid id")
	}
	return id, nil
}

func (s *Server) listKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.deps.Keys.List(r.Context(), identity(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]apiKeyResponse, 0, len(keys))
	for _, k := range keys {
		out = append(out, newAPIKeyResponse(k))
	}
	ok(w, out)
}

func (s *Server) createKey(w http.ResponseWriter, r *http.Request) {
	var req createKeyRequest
	if apiErr := decode(w, r, &req, true); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	key, plaintext, err := s.deps.Keys.Create(r.Context(), identity(r).UserID, req.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.APIKeysCreated.Inc()
	}
	created(w, createdKeyResponse{apiKeyResponse: newAPIKeyResponse(key), Key: plaintext})
}

func (s *Server) revokeKey(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	if err := s.deps.Keys.Revoke(r.Context(), identity(r).UserID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) listPositions(w http.ResponseWriter, r *http.Request) {
	var metal *models.Metal
	if v := r.URL.Query().Get("metal_type"); v != "" {
		m := models.Metal(v)
		metal = &m
	}
	list, err := s.deps.Positions.List(r.Context(), identity(r).UserID, metal)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]positionResponse, 0, len(list))
	for _, p := range list {
		out = append(out, newPositionResponse(p))
	}
	ok(w, out)
}

func (s *Server) createPosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if apiErr := decode(w, r, &req, false); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	p, err := s.deps.Positions.Create(r.Context(), identity(r), req.toInput())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, newPositionResponse(p))
}

func (s *Server) getPosition(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	p, err := s.deps.Positions.Get(r.Context(), identity(r).UserID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, newPositionResponse(p))
}

func (s *Server) updatePosition(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	var req positionRequest
	if apiErr := decode(w, r, &req, false); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	p, err := s.deps.Positions.Update(r.Context(), identity(r).UserID, id, req.toInput())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, newPositionResponse(p))
}

func (s *Server) deletePosition(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	if err := s.deps.Positions.Delete(r.Context(), identity(r).UserID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	noContent(w)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.Get(r.Context(), identity(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, newSettingsBody(settings))
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsBody
	if apiErr := decode(w, r, &req, false); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	settings, err := s.deps.Settings.Update(r.Context(), &models.UserSettings{
		UserID:                   identity(r).UserID,
		DefaultDiscountGold:      req.DefaultDiscountGold,
		DefaultDiscountSilver:    req.DefaultDiscountSilver,
		DefaultDiscountPlatinum:  req.DefaultDiscountPlatinum,
		DefaultDiscountPalladium: req.DefaultDiscountPalladium,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, newSettingsBody(settings))
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Portfolio.Summary(r.Context(), identity(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, newSummaryResponse(sum))
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	days := services.DefaultHistoryDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > services.MaxHistoryDays {
			writeError(w, ErrValidation.WithMessage("days must be between 1 and "+strconv.Itoa(services.MaxHistoryDays)))
			return
		}
		days = n
	}
	snaps, err := s.deps.Portfolio.History(r.Context(), identity(r).UserID, days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, newHistoryResponse(days, snaps))
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	if s.deps.Export == nil || !s.deps.Export.Enabled() {
		writeError(w, ErrUnavailable.WithMessage("Export storage is not configured"))
		return
	}
	url, expiresAt, err := s.deps.Export.Export(r.Context(), identity(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, exportResponse{URL: url, ExpiresAt: expiresAt})
}

func (s *Server) setTier(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r)
	if apiErr != nil {
		writeError(w, apiErr)
		return
	}
	var req setTierRequest
	if apiErr := decode(w, r, &req, false); apiErr != nil {
		writeError(w, apiErr)
		return
	}
	if err := s.deps.Users.SetTier(r.Context(), id, models.Tier(req.Tier)); err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "tier changed", "user_id", id, "tier", req.Tier, "by", identity(r).UserID)
	noContent(w)
}
