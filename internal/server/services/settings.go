package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
)

type SettingsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewSettingsService(db *sql.DB, m repomanager.RepositoryManager) *SettingsService {
	return &SettingsService{db: db, repomanager: m}
}

// Get returns the user's settings; a user who never saved any gets zeros.
func (s *SettingsService) Get(ctx context.Context, userID int64) (*models.UserSettings, error) {
	settings, err := s.repomanager.Settings(s.db).Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &models.UserSettings{UserID: userID}, nil
		}
		return nil, err
	}
	return settings, nil
}

func (s *SettingsService) Update(ctx context.Context, settings *models.UserSettings) (*models.UserSettings, error) {
	for _, m := range models.Metals {
		if err := validateDiscount(settings.DiscountFor(m)); err != nil {
			return nil, fmt.Errorf("%w (%s)", err, m)
		}
	}
	if err := s.repomanager.Settings(s.db).Upsert(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func validateDiscount(d float64) error {
	if !(d >= 0 && d <= 100) {
		return fmt.Errorf("%w: discount must be between 0 and 100", common.ErrorValidation)
	}
	return nil
}
