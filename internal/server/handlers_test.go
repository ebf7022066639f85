package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paperprofit/internal/database"
	"github.com/aristath/paperprofit/internal/modules/accounts"
	"github.com/aristath/paperprofit/internal/modules/instruments"
	"github.com/aristath/paperprofit/internal/modules/orders"
	"github.com/aristath/paperprofit/internal/modules/positions"
	"github.com/aristath/paperprofit/internal/modules/signals"
	"github.com/aristath/paperprofit/internal/modules/syslog"
	"github.com/aristath/paperprofit/internal/modules/trades"
	"github.com/aristath/paperprofit/internal/scheduler"
)

type testEnv struct {
	srv         *Server
	db          *database.DB
	accounts    *accounts.Repository
	positions   *positions.Repository
	orders      *orders.Repository
	signals     *signals.Repository
	instruments *instruments.Repository
	jobs        *scheduler.Controller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
		Name: "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	require.NoError(t, database.NewMigrator(db, log).Init())

	conn := db.Conn()
	accountsRepo := accounts.NewRepository(conn, log)
	positionsRepo := positions.NewRepository(conn, log)
	ordersRepo := orders.NewRepository(conn, log)
	tradesRepo := trades.NewRepository(conn, log)
	signalsRepo := signals.NewRepository(conn, log)
	instrumentsRepo := instruments.NewRepository(conn, log)
	syslogRepo := syslog.NewRepository(conn, log)
	jobs := scheduler.NewController(syslogRepo, log)

	srv := New(Config{
		Log:         log,
		DB:          db,
		Host:        "127.0.0.1",
		Port:        0,
		Accounts:    accountsRepo,
		Positions:   positionsRepo,
		Orders:      ordersRepo,
		Trades:      tradesRepo,
		Signals:     signalsRepo,
		Instruments: instruments.NewService(instrumentsRepo, nil, nil, log),
		Syslog:      syslogRepo,
		Jobs:        jobs,
	})

	return &testEnv{
		srv:         srv,
		db:          db,
		accounts:    accountsRepo,
		positions:   positionsRepo,
		orders:      ordersRepo,
		signals:     signalsRepo,
		instruments: instrumentsRepo,
		jobs:        jobs,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func mustDec(t *testing.T, v string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(v)
	require.NoError(t, err)
	return d
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestAccountEndpoints(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.accounts.Create(&accounts.Account{
		AccountID:   "acct-1",
		AccountName: "Paper One",
		CashBalance: mustDec(t, "10000"),
		IsActive:    true,
	}))

	rec := e.do(t, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeJSON[[]accountResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "acct-1", list[0].AccountID)
	assert.True(t, list[0].CashBalance.Equal(mustDec(t, "10000")))

	rec = e.do(t, http.MethodGet, "/api/accounts/acct-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeJSON[accountResponse](t, rec)
	assert.Equal(t, "Paper One", got.AccountName)

	rec = e.do(t, http.MethodGet, "/api/accounts/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrderEndpoint(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.accounts.Create(&accounts.Account{
		AccountID:   "acct-1",
		AccountName: "Paper One",
		CashBalance: mustDec(t, "10000"),
		IsActive:    true,
	}))

	rec := e.do(t, http.MethodPost, "/api/orders", map[string]interface{}{
		"account_id": "acct-1",
		"symbol":     "aapl",
		"side":       orders.SideBuy,
		"order_type": orders.TypeLimit,
		"quantity":   "5",
		"price":      "150",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decodeJSON[orderResponse](t, rec)
	assert.Equal(t, orders.StatusPending, created.Status)
	assert.NotEmpty(t, created.OrderID)
	assert.True(t, created.Quantity.Equal(mustDec(t, "5")))

	// The symbol was created lazily and uppercased.
	inst, err := e.instruments.GetBySymbol("AAPL")
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Equal(t, inst.ID, created.SymbolID)

	rec = e.do(t, http.MethodGet, "/api/accounts/acct-1/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeJSON[[]orderResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, created.OrderID, list[0].OrderID)
}

func TestCreateOrderValidation(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.accounts.Create(&accounts.Account{
		AccountID:   "acct-1",
		AccountName: "Paper One",
		CashBalance: mustDec(t, "10000"),
		IsActive:    true,
	}))

	rec := e.do(t, http.MethodPost, "/api/orders", map[string]interface{}{
		"account_id": "missing",
		"symbol":     "AAPL",
		"side":       orders.SideBuy,
		"order_type": orders.TypeMarket,
		"quantity":   "1",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/orders", map[string]interface{}{
		"account_id": "acct-1",
		"symbol":     "AAPL",
		"side":       orders.SideBuy,
		"order_type": orders.TypeMarket,
		"quantity":   "0",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPositionsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.accounts.Create(&accounts.Account{
		AccountID:   "acct-1",
		AccountName: "Paper One",
		CashBalance: mustDec(t, "0"),
		IsActive:    true,
	}))
	inst := &instruments.Instrument{Symbol: "AAPL", Name: "AAPL", IsActive: true}
	_, err := e.instruments.Create(inst)
	require.NoError(t, err)

	err = database.WithTransaction(e.db.Conn(), func(tx *sql.Tx) error {
		return e.positions.CreateTx(tx, &positions.Position{
			AccountID:         "acct-1",
			SymbolID:          inst.ID,
			Quantity:          mustDec(t, "10"),
			AverageEntryPrice: mustDec(t, "100"),
		})
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/api/accounts/acct-1/positions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeJSON[[]positionResponse](t, rec)
	require.Len(t, list, 1)
	assert.True(t, list[0].Quantity.Equal(mustDec(t, "10")))
}

func TestWatchlistEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/watchlist", map[string]string{"symbol": "msft"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decodeJSON[instrumentResponse](t, rec)
	assert.Equal(t, "MSFT", added.Symbol)
	assert.True(t, added.WatchList)

	rec = e.do(t, http.MethodGet, "/api/watchlist", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeJSON[[]instrumentResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "MSFT", list[0].Symbol)

	rec = e.do(t, http.MethodPost, "/api/watchlist", map[string]string{"symbol": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignalsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	inst := &instruments.Instrument{Symbol: "AAPL", Name: "AAPL", IsActive: true}
	_, err := e.instruments.Create(inst)
	require.NoError(t, err)

	price := 150.0
	require.NoError(t, e.signals.Create(&signals.Signal{
		SymbolID:   inst.ID,
		Timestamp:  time.Now().UTC(),
		SignalType: signals.TypeBuy,
		Strength:   4,
		Price:      &price,
		Confidence: 0.9,
		Reason:     "RSI oversold (22.10)",
	}))

	rec := e.do(t, http.MethodGet, "/api/signals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeJSON[[]signalResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, signals.TypeBuy, list[0].SignalType)

	rec = e.do(t, http.MethodGet, "/api/signals?symbol=AAPL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeJSON[[]signalResponse](t, rec)
	require.Len(t, list, 1)

	rec = e.do(t, http.MethodGet, "/api/signals?symbol=UNKNOWN", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeJSON[[]signalResponse](t, rec)
	assert.Empty(t, list)
}

func TestJobControlEndpoints(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.jobs.Register("noop", func(ctx context.Context) error {
		return nil
	}, time.Hour))
	t.Cleanup(func() { e.jobs.Stop("") })

	rec := e.do(t, http.MethodGet, "/api/system/jobs/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeJSON[map[string]interface{}](t, rec)
	assert.Equal(t, float64(1), body["total_jobs"])

	rec = e.do(t, http.MethodPost, "/api/system/jobs/noop/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/system/jobs/noop/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/system/jobs/unknown/start", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSystemStatusEndpoint(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/system/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decodeJSON[SystemStatusResponse](t, rec)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "test", status.DatabaseName)
	assert.GreaterOrEqual(t, status.UptimeHours, 0.0)
}

func TestSystemLogsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	syslogRepo := syslog.NewRepository(e.db.Conn(), zerolog.Nop())
	syslogRepo.Info("test_module", "hello")

	rec := e.do(t, http.MethodGet, "/api/system/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeJSON[[]logEntryResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "test_module", list[0].Module)
}
