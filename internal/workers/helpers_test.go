package workers

import (
	"context"
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paperprofit/internal/database"
	"github.com/aristath/paperprofit/internal/modules/accounts"
	"github.com/aristath/paperprofit/internal/modules/instruments"
	"github.com/aristath/paperprofit/internal/modules/marketdata"
	"github.com/aristath/paperprofit/internal/modules/orders"
	"github.com/aristath/paperprofit/internal/modules/positions"
	"github.com/aristath/paperprofit/internal/modules/signals"
	"github.com/aristath/paperprofit/internal/modules/strategies"
	"github.com/aristath/paperprofit/internal/modules/syslog"
	"github.com/aristath/paperprofit/internal/modules/trades"
	"github.com/aristath/paperprofit/internal/providers"
)

// testStore bundles an in-memory database with every repository the workers
// touch.
type testStore struct {
	db          *sql.DB
	accounts    *accounts.Repository
	instruments *instruments.Repository
	orders      *orders.Repository
	positions   *positions.Repository
	trades      *trades.Repository
	signals     *signals.Repository
	strategies  *strategies.Repository
	marketdata  *marketdata.Repository
	syslog      *syslog.Repository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// In-memory sqlite is per-connection; keep the pool at one.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.Schema)
	require.NoError(t, err)

	log := zerolog.Nop()
	return &testStore{
		db:          db,
		accounts:    accounts.NewRepository(db, log),
		instruments: instruments.NewRepository(db, log),
		orders:      orders.NewRepository(db, log),
		positions:   positions.NewRepository(db, log),
		trades:      trades.NewRepository(db, log),
		signals:     signals.NewRepository(db, log),
		strategies:  strategies.NewRepository(db, log),
		marketdata:  marketdata.NewRepository(db, log),
		syslog:      syslog.NewRepository(db, log),
	}
}

func (s *testStore) account(t *testing.T, id string, cash string) *accounts.Account {
	t.Helper()
	a := &accounts.Account{
		AccountID:   id,
		AccountName: id,
		CashBalance: mustDecimal(t, cash),
		IsActive:    true,
	}
	require.NoError(t, s.accounts.Create(a))
	return a
}

func (s *testStore) tradingAccount(t *testing.T, id, cash string, strategyID int64) *accounts.Account {
	t.Helper()
	a := &accounts.Account{
		AccountID:   id,
		AccountName: id,
		CashBalance: mustDecimal(t, cash),
		StrategyID:  &strategyID,
		IsActive:    true,
	}
	require.NoError(t, s.accounts.Create(a))
	return a
}

func (s *testStore) instrument(t *testing.T, symbol string) *instruments.Instrument {
	t.Helper()
	inst := &instruments.Instrument{Symbol: symbol, Name: symbol, IsActive: true}
	_, err := s.instruments.Create(inst)
	require.NoError(t, err)
	return inst
}

func (s *testStore) strategy(t *testing.T, st *strategies.Strategy) *strategies.Strategy {
	t.Helper()
	_, err := s.strategies.Create(st)
	require.NoError(t, err)
	return st
}

func (s *testStore) position(t *testing.T, accountID string, symbolID int64, qty, avg string) *positions.Position {
	t.Helper()
	p := &positions.Position{
		AccountID:         accountID,
		SymbolID:          symbolID,
		Quantity:          mustDecimal(t, qty),
		AverageEntryPrice: mustDecimal(t, avg),
	}
	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		return s.positions.CreateTx(tx, p)
	})
	require.NoError(t, err)
	return p
}

func (s *testStore) pendingOrder(t *testing.T, o *orders.Order) *orders.Order {
	t.Helper()
	require.NoError(t, s.orders.Create(o))
	return o
}

func mustDecimal(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func decPtr(t *testing.T, v string) *decimal.Decimal {
	t.Helper()
	d := mustDecimal(t, v)
	return &d
}

// fakePrices is a PriceSource backed by a static quote table.
type fakePrices struct {
	quotes map[string]float64
}

func (f *fakePrices) CurrentPrice(_ context.Context, symbol string) (float64, bool) {
	price, ok := f.quotes[symbol]
	return price, ok
}

// fakeInfo is an InfoSource returning a fixed company profile.
type fakeInfo struct {
	info *providers.Info
}

func (f *fakeInfo) FetchInfo(_ context.Context, _ string) *providers.Info {
	return f.info
}

// fakeStockLists is a canned StockListSource.
type fakeStockLists struct {
	symbols []string
	cached  bool
	err     error
	calls   int
}

func (f *fakeStockLists) StockList(_ context.Context, _, _ string) ([]string, bool, error) {
	f.calls++
	return f.symbols, f.cached, f.err
}
