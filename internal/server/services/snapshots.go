package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/prices"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/metaltracker/internal/timex"
)

// Report counts the outcome of one snapshot run.
type Report struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// SnapshotService records daily portfolio totals.
type SnapshotService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	prices      PriceSource
	settings    *SettingsService
	logger      logging.Logger
}

func NewSnapshotService(db *sql.DB, m repomanager.RepositoryManager, ps PriceSource, settings *SettingsService, logger logging.Logger) *SnapshotService {
	return &SnapshotService{
		db:          db,
		repomanager: m,
		prices:      ps,
		settings:    settings,
		logger:      logger.With("module", "snapshots"),
	}
}

// RunDaily stores one snapshot per active user holding positions for the
// calendar day of date. Prices are fetched once for the whole run. A user
// whose snapshot fails does not stop the others; the returned error joins
// all per-user failures.
func (s *SnapshotService) RunDaily(ctx context.Context, date time.Time) (*Report, error) {
	day := timex.StartOfDay(date)

	quote, err := s.prices.Prices(ctx)
	if err != nil {
		return nil, fmt.Errorf("error fetching prices: %w", err)
	}

	users, err := s.repomanager.Users(s.db).ListActiveWithPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	s.logger.Info(ctx, "snapshot run started", "date", day.Format(time.DateOnly), "users", len(users), "price_source", quote.Source)

	report := &Report{}
	var errs []error
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		stored, err := s.snapshotUser(ctx, u, day, quote)
		switch {
		case err != nil:
			report.Failed++
			errs = append(errs, fmt.Errorf("user %d: %w", u.ID, err))
			s.logger.Error(ctx, "snapshot failed", "user_id", u.ID, "error", err)
		case !stored:
			report.Skipped++
		default:
			report.Succeeded++
		}
	}

	s.logger.Info(ctx, "snapshot run finished",
		"succeeded", report.Succeeded, "skipped", report.Skipped, "failed", report.Failed)

	return report, errors.Join(errs...)
}

func (s *SnapshotService) snapshotUser(ctx context.Context, u *models.User, day time.Time, quote *prices.Quote) (bool, error) {
	list, err := s.repomanager.Positions(s.db).List(ctx, u.ID, nil)
	if err != nil {
		return false, err
	}
	// Positions may have been deleted since the user list was read.
	if len(list) == 0 {
		return false, nil
	}

	settings, err := s.settings.Get(ctx, u.ID)
	if err != nil {
		return false, err
	}

	sum := Summarize(list, quote, settings)
	err = s.repomanager.Snapshots(s.db).Upsert(ctx, &models.Snapshot{
		UserID:                u.ID,
		Date:                  day,
		TotalPurchaseValueEUR: sum.TotalPurchaseValueEUR,
		TotalCurrentValueEUR:  sum.TotalCurrentValueEUR,
		GoldWeightGrams:       sum.ByMetal[models.MetalGold].WeightGrams,
		SilverWeightGrams:     sum.ByMetal[models.MetalSilver].WeightGrams,
		PlatinumWeightGrams:   sum.ByMetal[models.MetalPlatinum].WeightGrams,
		PalladiumWeightGrams:  sum.ByMetal[models.MetalPalladium].WeightGrams,
		PositionsCount:        sum.PositionsCount,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
