package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/dbx"
	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/prices"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
)

// PriceSource supplies current spot prices.
type PriceSource interface {
	Prices(ctx context.Context) (*prices.Quote, error)
}

// PositionInput carries the user-editable fields of a position.
type PositionInput struct {
	MetalType        models.Metal
	ProductType      string
	Description      *string
	Quantity         float64
	WeightPerUnit    float64
	WeightUnit       models.WeightUnit
	PurchasePriceEUR float64
	PurchaseDate     time.Time
	DiscountPercent  *float64
}

func (in *PositionInput) validate() error {
	switch {
	case !in.MetalType.Valid():
		return fmt.Errorf("%w: unknown metal %q", common.ErrorValidation, in.MetalType)
	case in.WeightUnit.Grams() == 0:
		return fmt.Errorf("%w: unknown weight unit %q", common.ErrorValidation, in.WeightUnit)
	case strings.TrimSpace(in.ProductType) == "":
		return fmt.Errorf("%w: product type is required", common.ErrorValidation)
	case !(in.Quantity > 0):
		return fmt.Errorf("%w: quantity must be positive", common.ErrorValidation)
	case !(in.WeightPerUnit > 0):
		return fmt.Errorf("%w: weight per unit must be positive", common.ErrorValidation)
	case !(in.PurchasePriceEUR >= 0):
		return fmt.Errorf("%w: purchase price must not be negative", common.ErrorValidation)
	case in.PurchaseDate.IsZero():
		return fmt.Errorf("%w: purchase date is required", common.ErrorValidation)
	}
	if in.DiscountPercent != nil {
		return validateDiscount(*in.DiscountPercent)
	}
	return nil
}

func (in *PositionInput) apply(p *models.Position) {
	p.MetalType = in.MetalType
	p.ProductType = strings.TrimSpace(in.ProductType)
	p.Description = in.Description
	p.Quantity = in.Quantity
	p.WeightPerUnit = in.WeightPerUnit
	p.WeightUnit = in.WeightUnit
	p.WeightGrams = WeightGrams(in.Quantity, in.WeightPerUnit, in.WeightUnit)
	p.PurchasePriceEUR = in.PurchasePriceEUR
	p.PurchaseDate = in.PurchaseDate
	p.DiscountPercent = in.DiscountPercent
}

// PositionService manages positions. Every call is scoped by the owner; ids
// belonging to other users behave as missing.
type PositionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	prices      PriceSource
	settings    *SettingsService
	logger      logging.Logger
}

func NewPositionService(db *sql.DB, m repomanager.RepositoryManager, ps PriceSource, settings *SettingsService, logger logging.Logger) *PositionService {
	return &PositionService{
		db:          db,
		repomanager: m,
		prices:      ps,
		settings:    settings,
		logger:      logger.With("module", "positions"),
	}
}

// Create stores a position for the caller after checking the tier quota.
// The quota check and the insert share a transaction holding the owner's
// row lock.
func (s *PositionService) Create(ctx context.Context, identity *Identity, in *PositionInput) (*ValuedPosition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &models.Position{UserID: identity.UserID}
	in.apply(p)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).LockByID(ctx, identity.UserID); err != nil {
			return err
		}
		if err := checkPositionLimit(ctx, s.repomanager, tx, identity); err != nil {
			return err
		}
		var err error
		p, err = s.repomanager.Positions(tx).Create(ctx, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "position created", "user_id", identity.UserID, "position_id", p.ID)

	valued, err := s.value(ctx, identity.UserID, []*models.Position{p})
	if err != nil {
		return nil, err
	}
	return valued[0], nil
}

func (s *PositionService) Get(ctx context.Context, userID, id int64) (*ValuedPosition, error) {
	p, err := s.repomanager.Positions(s.db).Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	valued, err := s.value(ctx, userID, []*models.Position{p})
	if err != nil {
		return nil, err
	}
	return valued[0], nil
}

// List returns the user's positions, optionally only those of one metal.
func (s *PositionService) List(ctx context.Context, userID int64, metal *models.Metal) ([]*ValuedPosition, error) {
	if metal != nil && !metal.Valid() {
		return nil, fmt.Errorf("%w: unknown metal %q", common.ErrorValidation, *metal)
	}
	list, err := s.repomanager.Positions(s.db).List(ctx, userID, metal)
	if err != nil {
		return nil, err
	}
	return s.value(ctx, userID, list)
}

func (s *PositionService) Update(ctx context.Context, userID, id int64, in *PositionInput) (*ValuedPosition, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &models.Position{ID: id, UserID: userID}
	in.apply(p)

	p, err := s.repomanager.Positions(s.db).Update(ctx, p)
	if err != nil {
		return nil, err
	}
	valued, err := s.value(ctx, userID, []*models.Position{p})
	if err != nil {
		return nil, err
	}
	return valued[0], nil
}

func (s *PositionService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repomanager.Positions(s.db).Delete(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "position deleted", "user_id", userID, "position_id", id)
	return nil
}

func (s *PositionService) value(ctx context.Context, userID int64, list []*models.Position) ([]*ValuedPosition, error) {
	quote, err := s.prices.Prices(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]*ValuedPosition, 0, len(list))
	for _, p := range list {
		result = append(result, &ValuedPosition{Position: p, Valuation: Value(p, quote, settings)})
	}
	return result, nil
}
