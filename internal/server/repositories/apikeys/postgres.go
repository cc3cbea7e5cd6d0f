package apikeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM api_keys WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Create(ctx context.Context, key *models.APIKey) (*models.APIKey, error) {
	query :=
		`INSERT INTO api_keys (user_id, name, key_hash, key_prefix)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, key.UserID, key.Name, key.KeyHash, key.KeyPrefix).
		Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return key, nil
}

func (r *PostgresRepository) FindByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	query :=
		`SELECT id, user_id, name, key_hash, key_prefix, created_at, last_used_at
		 FROM api_keys
		 WHERE key_hash = $1`

	k := &models.APIKey{}
	err := r.db.QueryRowContext(ctx, query, keyHash).
		Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.CreatedAt, &k.LastUsedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrKeyNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return k, nil
}

// ListByUser never selects key_hash; listings only carry display metadata.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.APIKey, error) {
	query :=
		`SELECT id, user_id, name, key_prefix, created_at, last_used_at
		 FROM api_keys
		 WHERE user_id = $1
		 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.APIKey, 0)
	for rows.Next() {
		k := &models.APIKey{}
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyPrefix, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, keyID int64) error {
	return dbx.ExecOne(ctx, r.db, common.ErrKeyNotFound,
		`DELETE FROM api_keys WHERE id = $1 AND user_id = $2`, keyID, userID)
}

func (r *PostgresRepository) TouchLastUsed(ctx context.Context, keyID int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, keyID, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
