package snapshots

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/dbx"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, s *models.Snapshot) error {
	query :=
		`INSERT INTO portfolio_snapshots (user_id, date, total_purchase_value_eur, total_current_value_eur,
			gold_weight_grams, silver_weight_grams, platinum_weight_grams, palladium_weight_grams, positions_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id, date) DO UPDATE SET
			total_purchase_value_eur = EXCLUDED.total_purchase_value_eur,
			total_current_value_eur = EXCLUDED.total_current_value_eur,
			gold_weight_grams = EXCLUDED.gold_weight_grams,
			silver_weight_grams = EXCLUDED.silver_weight_grams,
			platinum_weight_grams = EXCLUDED.platinum_weight_grams,
			palladium_weight_grams = EXCLUDED.palladium_weight_grams,
			positions_count = EXCLUDED.positions_count`

	_, err := r.db.ExecContext(ctx, query, s.UserID, s.Date, s.TotalPurchaseValueEUR, s.TotalCurrentValueEUR,
		s.GoldWeightGrams, s.SilverWeightGrams, s.PlatinumWeightGrams, s.PalladiumWeightGrams, s.PositionsCount)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListSince(ctx context.Context, userID int64, since time.Time) ([]*models.Snapshot, error) {
	query :=
		`SELECT id, user_id, date, total_purchase_value_eur, total_current_value_eur, gold_weight_grams,
			silver_weight_grams, platinum_weight_grams, palladium_weight_grams, positions_count, created_at
		 FROM portfolio_snapshots
		 WHERE user_id = $1 AND date >= $2
		 ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Snapshot, 0)
	for rows.Next() {
		s := &models.Snapshot{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Date, &s.TotalPurchaseValueEUR, &s.TotalCurrentValueEUR,
			&s.GoldWeightGrams, &s.SilverWeightGrams, &s.PlatinumWeightGrams, &s.PalladiumWeightGrams,
			&s.PositionsCount, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
