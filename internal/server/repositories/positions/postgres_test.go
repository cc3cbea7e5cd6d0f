package positions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "user_id", "metal_type", "product_type", "description", "quantity", "weight_per_unit",
	"weight_unit", "weight_grams", "purchase_price_eur", "purchase_date", "discount_percent", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func samplePosition() *models.Position {
	return &models.Position{
		UserID:           7,
		MetalType:        models.MetalGold,
		ProductType:      "coin",
		Quantity:         2,
		WeightPerUnit:    1,
		WeightUnit:       models.UnitOunce,
		WeightGrams:      62.207,
		PurchasePriceEUR: 3800,
		PurchaseDate:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()
	p := samplePosition()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+positions.*RETURNING\s+id,\s*created_at,\s*updated_at`).
		WithArgs(int64(7), models.MetalGold, "coin", nil, 2.0, 1.0, models.UnitOunce, 62.207, 3800.0, p.PurchaseDate, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(5), now, now))

	got, err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_ScopedToOwner(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()
	discount := 2.5

	mock.ExpectQuery(`(?s)FROM\s+positions\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
		WithArgs(int64(5), int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(5), int64(7), "silver", "bar", "1kg bar", 1.0, 1.0,
			"kg", 1000.0, 900.0, now, discount, now, now))

	p, err := repo.Get(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Equal(t, models.MetalSilver, p.MetalType)
	assert.Equal(t, models.UnitKilogram, p.WeightUnit)
	require.NotNil(t, p.Description)
	require.NotNil(t, p.DiscountPercent)
	assert.Equal(t, 2.5, *p.DiscountPercent)

	mock.ExpectQuery(`FROM\s+positions`).
		WithArgs(int64(5), int64(8)).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), 8, 5)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList_WithAndWithoutFilter(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`(?s)FROM\s+positions\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(1), int64(7), "gold", "coin", nil, 1.0, 1.0, "oz", 31.1035, 1800.0, now, nil, now, now).
			AddRow(int64(2), int64(7), "silver", "coin", nil, 10.0, 1.0, "oz", 311.035, 250.0, now, nil, now, now))

	all, err := repo.List(context.Background(), 7, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	metal := models.MetalSilver
	mock.ExpectQuery(`(?s)WHERE\s+user_id\s*=\s*\$1\s+AND\s+metal_type\s*=\s*\$2`).
		WithArgs(int64(7), models.MetalSilver).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(int64(2), int64(7), "silver", "coin", nil, 10.0, 1.0, "oz", 311.035, 250.0, now, nil, now, now))

	silver, err := repo.List(context.Background(), 7, &metal)
	require.NoError(t, err)
	require.Len(t, silver, 1)
	assert.Equal(t, models.MetalSilver, silver[0].MetalType)
}

func TestUpdate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()
	p := samplePosition()
	p.ID = 5

	mock.ExpectQuery(`(?s)UPDATE\s+positions\s+SET.*WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	_, err := repo.Update(context.Background(), p)
	require.NoError(t, err)

	mock.ExpectQuery(`UPDATE\s+positions`).WillReturnError(sql.ErrNoRows)
	_, err = repo.Update(context.Background(), p)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`DELETE\s+FROM\s+positions\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
		WithArgs(int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), 7, 5))

	mock.ExpectExec(`DELETE\s+FROM\s+positions`).
		WithArgs(int64(5), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), 8, 5), common.ErrorNotFound)

	mock.ExpectExec(`DELETE\s+FROM\s+positions`).WillReturnError(errors.New("db err"))
	assert.Error(t, repo.Delete(context.Background(), 7, 5))
}

func TestCountByUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT\s+count\(\*\)\s+FROM\s+positions\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))

	n, err := repo.CountByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}
