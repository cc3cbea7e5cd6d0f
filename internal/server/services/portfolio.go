package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/metaltracker/internal/timex"
)

const (
	DefaultHistoryDays = 30
	MaxHistoryDays     = 3650
)

type PortfolioService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	prices      PriceSource
	settings    *SettingsService
	now         func() time.Time
}

func NewPortfolioService(db *sql.DB, m repomanager.RepositoryManager, ps PriceSource, settings *SettingsService) *PortfolioService {
	return &PortfolioService{db: db, repomanager: m, prices: ps, settings: settings, now: time.Now}
}

// Summary values all of the user's positions at the current prices.
func (s *PortfolioService) Summary(ctx context.Context, userID int64) (*Summary, error) {
	list, err := s.repomanager.Positions(s.db).List(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	quote, err := s.prices.Prices(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Summarize(list, quote, settings), nil
}

// History returns the daily snapshots of the last days days, oldest first.
// days is clamped to [1, MaxHistoryDays]; zero means DefaultHistoryDays.
func (s *PortfolioService) History(ctx context.Context, userID int64, days int) ([]*models.Snapshot, error) {
	switch {
	case days == 0:
		days = DefaultHistoryDays
	case days < 1:
		days = 1
	case days > MaxHistoryDays:
		days = MaxHistoryDays
	}
	since := timex.StartOfDay(s.now()).AddDate(0, 0, -(days - 1))
	return s.repomanager.Snapshots(s.db).ListSince(ctx, userID, since)
}
