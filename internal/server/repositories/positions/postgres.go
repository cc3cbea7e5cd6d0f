package positions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/dbx"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
)

const positionColumns = `id, user_id, metal_type, product_type, description, quantity, weight_per_unit,
	weight_unit, weight_grams, purchase_price_eur, purchase_date, discount_percent, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Position) (*models.Position, error) {
	query :=
		`INSERT INTO positions (user_id, metal_type, product_type, description, quantity, weight_per_unit,
			weight_unit, weight_grams, purchase_price_eur, purchase_date, discount_percent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.MetalType, p.ProductType, p.Description, p.Quantity, p.WeightPerUnit,
		p.WeightUnit, p.WeightGrams, p.PurchasePriceEUR, p.PurchaseDate, p.DiscountPercent,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id int64) (*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE id = $1 AND user_id = $2`

	p, err := scanPosition(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID int64, metal *models.Metal) ([]*models.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE user_id = $1`
	args := []any{userID}
	if metal != nil {
		query += ` AND metal_type = $2`
		args = append(args, *metal)
	}
	query += ` ORDER BY purchase_date DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Position, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p *models.Position) (*models.Position, error) {
	query :=
		`UPDATE positions SET metal_type = $3, product_type = $4, description = $5, quantity = $6,
			weight_per_unit = $7, weight_unit = $8, weight_grams = $9, purchase_price_eur = $10,
			purchase_date = $11, discount_percent = $12, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.UserID, p.MetalType, p.ProductType, p.Description, p.Quantity,
		p.WeightPerUnit, p.WeightUnit, p.WeightGrams, p.PurchasePriceEUR, p.PurchaseDate, p.DiscountPercent,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id int64) error {
	return dbx.ExecOne(ctx, r.db, common.ErrorNotFound,
		`DELETE FROM positions WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *PostgresRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM positions WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPosition(s scanner) (*models.Position, error) {
	p := &models.Position{}
	err := s.Scan(&p.ID, &p.UserID, &p.MetalType, &p.ProductType, &p.Description, &p.Quantity,
		&p.WeightPerUnit, &p.WeightUnit, &p.WeightGrams, &p.PurchasePriceEUR, &p.PurchaseDate,
		&p.DiscountPercent, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
