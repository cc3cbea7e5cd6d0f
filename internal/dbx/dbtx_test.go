package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)`)
	require.NoError(t, err)
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	return n
}

func TestWithTx_Commits(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('ok')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, db))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := setupDB(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('fail')`)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countRows(t, db))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := setupDB(t)

	assert.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO t(v) VALUES ('panic')`)
			require.NoError(t, err)
			panic("kaput")
		})
	})
	assert.Equal(t, 0, countRows(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "begin tx")
	assert.False(t, called)
}

func TestWithTx_CommitError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(sql.ErrConnDone)

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error { return nil })
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecOne(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	notFound := errors.New("missing")
	_, err := db.Exec(`INSERT INTO t(id, v) VALUES (1, 'a')`)
	require.NoError(t, err)

	require.NoError(t, ExecOne(ctx, db, notFound, `UPDATE t SET v = ? WHERE id = ?`, "b", 1))
	assert.ErrorIs(t, ExecOne(ctx, db, notFound, `UPDATE t SET v = ? WHERE id = ?`, "b", 2), notFound)

	err = ExecOne(ctx, db, notFound, `UPDATE nope SET v = 1`)
	assert.ErrorContains(t, err, "db error")
	assert.NotErrorIs(t, err, notFound)
}

func TestExecCount(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	_, err := db.Exec(`INSERT INTO t(v) VALUES ('a'), ('b'), ('c')`)
	require.NoError(t, err)

	n, err := ExecCount(ctx, db, `DELETE FROM t WHERE v <> ?`, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestExecCount_RowsAffectedError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewErrorResult(errors.New("no count")))

	_, err = ExecCount(context.Background(), db, `DELETE FROM t`)
	assert.ErrorContains(t, err, "no count")
}
