package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/dbx"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID int64) (*models.UserSettings, error) {
	query :=
		`SELECT user_id, default_discount_gold, default_discount_silver,
			default_discount_platinum, default_discount_palladium
		 FROM user_settings
		 WHERE user_id = $1`

	s := &models.UserSettings{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.DefaultDiscountGold,
		&s.DefaultDiscountSilver, &s.DefaultDiscountPlatinum, &s.DefaultDiscountPalladium)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, s *models.UserSettings) error {
	query :=
		`INSERT INTO user_settings (user_id, default_discount_gold, default_discount_silver,
			default_discount_platinum, default_discount_palladium)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
			default_discount_gold = EXCLUDED.default_discount_gold,
			default_discount_silver = EXCLUDED.default_discount_silver,
			default_discount_platinum = EXCLUDED.default_discount_platinum,
			default_discount_palladium = EXCLUDED.default_discount_palladium`

	_, err := r.db.ExecContext(ctx, query, s.UserID, s.DefaultDiscountGold, s.DefaultDiscountSilver,
		s.DefaultDiscountPlatinum, s.DefaultDiscountPalladium)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
