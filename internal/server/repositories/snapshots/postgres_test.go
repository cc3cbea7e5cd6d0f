package snapshots

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestUpsert_OnePerUserAndDay(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+portfolio_snapshots.*ON\s+CONFLICT\s+\(user_id,\s*date\)\s+DO\s+UPDATE`).
		WithArgs(int64(7), day, 1000.0, 1200.0, 31.1035, 0.0, 0.0, 0.0, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), &models.Snapshot{
		UserID: 7, Date: day, TotalPurchaseValueEUR: 1000, TotalCurrentValueEUR: 1200,
		GoldWeightGrams: 31.1035, PositionsCount: 1,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+portfolio_snapshots`).WillReturnError(errors.New("db err"))

	err := repo.Upsert(context.Background(), &models.Snapshot{UserID: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestListSince(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	d1 := since.AddDate(0, 0, 1)
	d2 := since.AddDate(0, 0, 2)

	cols := []string{"id", "user_id", "date", "p", "c", "g", "s", "pt", "pd", "n", "created_at"}
	mock.ExpectQuery(`(?s)FROM\s+portfolio_snapshots\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+date\s*>=\s*\$2\s+ORDER\s+BY\s+date`).
		WithArgs(int64(7), since).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), int64(7), d1, 100.0, 110.0, 1.0, 0.0, 0.0, 0.0, 1, d1).
			AddRow(int64(2), int64(7), d2, 100.0, 120.0, 1.0, 0.0, 0.0, 0.0, 1, d2))

	list, err := repo.ListSince(context.Background(), 7, since)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 120.0, list[1].TotalCurrentValueEUR)
	assert.Equal(t, d1, list[0].Date)
}
