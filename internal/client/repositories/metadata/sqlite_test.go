package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/dbx"
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

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL)`)
	require.NoError(t, err)
	return db
}

func TestSQLiteRepository_SetGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "access_token", []byte("a1")))
	v, err := r.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, []byte("a1"), v)

	require.NoError(t, r.Set(ctx, "access_token", []byte("a2")))
	v, err = r.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, []byte("a2"), v)
}

func TestSQLiteRepository_SetNilStoresEmpty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", nil))
	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSQLiteRepository_GetMissing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, common.ErrKeyNotFound)
}

func TestSQLiteRepository_Delete(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{1}))
	require.NoError(t, r.Set(ctx, "b", []byte{2}))
	require.NoError(t, r.Set(ctx, "c", []byte{3}))

	require.NoError(t, r.Delete(ctx, "a", "b", "missing"))
	require.NoError(t, r.Delete(ctx))

	_, err := r.Get(ctx, "a")
	assert.ErrorIs(t, err, common.ErrKeyNotFound)
	_, err = r.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrKeyNotFound)
	v, err := r.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, v)
}

func TestSQLiteRepository_InsideTx(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := NewSQLiteRepository(tx)
		if err := r.Set(ctx, "a", []byte("x")); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = NewSQLiteRepository(db).Get(ctx, "a")
	assert.ErrorIs(t, err, common.ErrKeyNotFound)
}

func TestSQLiteRepository_ClosedDB(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	assert.ErrorContains(t, err, `get metadata "k"`)
	assert.NotErrorIs(t, err, common.ErrKeyNotFound)

	assert.ErrorContains(t, r.Set(ctx, "k", []byte("v")), `set metadata "k"`)
	assert.ErrorContains(t, r.Delete(ctx, "k"), "delete metadata")
}
