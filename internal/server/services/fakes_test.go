package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/metaltracker/internal/logging"
	"github.com/dmitrijs2005/metaltracker/internal/server/auth"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/prices"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repotest"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testTokenSecret = "test-secret-test-secret-test-secret"

type fakePrices struct {
	quote *prices.Quote
	err   error
	calls int
}

func (f *fakePrices) Prices(context.Context) (*prices.Quote, error) {
	f.calls++
	return f.quote, f.err
}

func testQuote() *prices.Quote {
	return &prices.Quote{
		Prices: map[models.Metal]prices.Price{
			models.MetalGold:      {Metal: models.MetalGold, PerGramEUR: 100},
			models.MetalSilver:    {Metal: models.MetalSilver, PerGramEUR: 1},
			models.MetalPlatinum:  {Metal: models.MetalPlatinum, PerGramEUR: 30},
			models.MetalPalladium: {Metal: models.MetalPalladium, PerGramEUR: 40},
		},
		Source:    prices.SourceLive,
		Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// fixture wires every service against one in-memory store and a sqlmock DB that
// accepts any number of transactions.
type fixture struct {
	store    *repotest.Store
	db       *sql.DB
	mock     sqlmock.Sqlmock
	rm       repomanager.RepositoryManager
	tokens   *auth.TokenIssuer
	denylist auth.Denylist
	prices   *fakePrices

	users     *UserService
	keys      *APIKeyService
	gate      *Gate
	settings  *SettingsService
	positions *PositionService
	portfolio *PortfolioService
	snapshots *SnapshotService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenIssuer(testTokenSecret, time.Hour, 0)
	require.NoError(t, err)
	passwords, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	hasher, err := auth.NewKeyHasher("test-pepper")
	require.NoError(t, err)

	f := &fixture{
		store:    repotest.NewStore(),
		db:       db,
		mock:     mock,
		tokens:   tokens,
		denylist: auth.NewMemoryDenylist(100, 2*time.Hour),
		prices:   &fakePrices{quote: testQuote()},
	}
	f.rm = f.store.Manager()

	log := logging.Nop()
	f.users = NewUserService(db, f.rm, tokens, passwords, f.denylist, 24*time.Hour, log)
	f.keys = NewAPIKeyService(db, f.rm, hasher, log)
	f.gate = NewGate(db, f.rm, tokens, f.denylist, f.keys)
	f.settings = NewSettingsService(db, f.rm)
	f.positions = NewPositionService(db, f.rm, f.prices, f.settings, log)
	f.portfolio = NewPortfolioService(db, f.rm, f.prices, f.settings)
	f.snapshots = NewSnapshotService(db, f.rm, f.prices, f.settings, log)
	return f
}

// expectTx queues n transactions that commit.
func (f *fixture) expectTx(n int) {
	for i := 0; i < n; i++ {
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
	}
}

func (f *fixture) expectRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}

func (f *fixture) register(t *testing.T, email string) (*models.User, *TokenPair) {
	t.Helper()
	u, pair, err := f.users.Register(context.Background(), email, "correct horse")
	require.NoError(t, err)
	return u, pair
}
