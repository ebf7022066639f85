package workers

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paperprofit/internal/modules/orders"
)

func newMatcher(s *testStore, prices *fakePrices) *Matcher {
	return NewMatcher(s.db, s.orders, s.accounts, s.positions, s.trades,
		s.instruments, prices, s.syslog, zerolog.Nop())
}

func TestBuyFillDebitsCashAndCreatesPosition(t *testing.T) {
	s := newTestStore(t)
	s.account(t, "acct-1", "900")
	inst := s.instrument(t, "AAPL")
	o := s.pendingOrder(t, &orders.Order{
		AccountID: "acct-1",
		SymbolID:  inst.ID,
		OrderType: orders.TypeMarket,
		Side:      orders.SideBuy,
		Quantity:  mustDecimal(t, "2"),
		Price:     decPtr(t, "100"),
	})

	m := newMatcher(s, &fakePrices{})
	require.NoError(t, m.Run(context.Background()))

	filled, err := s.orders.GetByOrderID(o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusFilled, filled.Status)
	assert.True(t, filled.FilledQuantity.Equal(mustDecimal(t, "2")))
	require.NotNil(t, filled.AverageFillPrice)
	assert.True(t, filled.AverageFillPrice.Equal(mustDecimal(t, "100")))

	acct, err := s.accounts.GetByID("acct-1")
	require.NoError(t, err)
	assert.True(t, acct.CashBalance.Equal(mustDecimal(t, "700")), "cash %s", acct.CashBalance)

	pos, err := s.positions.GetByAccountAndSymbol("acct-1", inst.ID)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.True(t, pos.Quantity.Equal(mustDecimal(t, "2")))
	assert.True(t, pos.AverageEntryPrice.Equal(mustDecimal(t, "100")))
}

func TestBuyInsufficientFundsRejectsOrder(t *testing.T) {
	s := newTestStore(t)
	s.account(t, "acct-1", "100")
	inst := s.instrument(t, "AAPL")
	o := s.pendingOrder(t, &orders.Order{
		AccountID: "acct-1",
		SymbolID:  inst.ID,
		OrderType: orders.TypeMarket,
		Side:      orders.SideBuy,
		Quantity:  mustDecimal(t, "2"),
		Price:     decPtr(t, "100"),
	})

	m := newMatcher(s, &fakePrices{})
	require.NoError(t, m.Run(context.Background()))

	rejected, err := s.orders.GetByOrderID(o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusRejected, rejected.Status)

	acct, err := s.accounts.GetByID("acct-1")
	require.NoError(t, err)
	assert.True(t, acct.CashBalance.Equal(mustDecimal(t, "100")), "cash must be untouched")

	pos, err := s.positions.GetByAccountAndSymbol("acct-1", inst.ID)
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestBuyMergesWeightedAverageEntry(t *testing.T) {
	s := newTestStore(t)
	s.account(t, "acct-1", "10000")
	inst := s.instrument(t, "AAPL")
	s.position(t, "acct-1", inst.ID, "10", "100")
	s.pendingOrder(t, &orders.Order{
		AccountID: "acct-1",
		SymbolID:  inst.ID,
		OrderType: orders.TypeMarket,
		Side:      orders.SideBuy,
		Quantity:  mustDecimal(t, "5"),
		Price:     decPtr(t, "120"),
	})

	m := newMatcher(s, &fakePrices{})
	require.NoError(t, m.Run(context.Background()))

	pos, err := s.positions.GetByAccountAndSymbol("acct-1", inst.ID)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.True(t, pos.Quantity.Equal(mustDecimal(t, "15")))

	// (10*100 + 5*120) / 15
	want := mustDecimal(t, "1600").Div(mustDecimal(t, "15"))
	assert.True(t, pos.AverageEntryPrice.Equal(want),
		"avg entry %s, want %s", pos.AverageEntryPrice, want)
}

func TestSellFullExitCreditsCashAndRecordsTrade(t *testing.T) {
	s := newTestStore(t)
	s.account(t, "acct-1", "50")
	inst := s.instrument(t, "AAPL")
	s.position(t, "acct-1", inst.ID, "8", "90")
	o := s.pendingOrder(t, &orders.Order{
		AccountID: "acct-1",
		SymbolID:  inst.ID,
		OrderType: orders.TypeMarket,
		Side:      orders.SideSell,
		Quantity:  mustDecimal(t, "8"),
		Price:     decPtr(t, "110"),
	})

	m := newMatcher(s, &fakePrices{})
	require.NoError(t, m.Run(context.Background()))

	filled, err := s.orders.GetByOrderID(o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusFilled, filled.Status)

	acct, err := s.accounts.GetByID("acct-1")
	require.NoError(t, err)
	assert.True(t, acct.CashBalance.Equal(mustDecimal(t, "930")), "cash %s", acct.CashBalance)

	pos, err := s.positions.GetByAccountAndSymbol("acct-1", inst.ID)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.True(t, pos.Quantity.IsZero())
	assert.True(t, pos.AverageEntryPrice.Equal(mustDecimal(t, "90")), "entry price survives the exit")

	recorded, err := s.trades.ListByAccount("acct-1", 10)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.True(t, recorded[0].GrossPnL.Equal(mustDecimal(t, "160")), "gross %s", recorded[0].GrossPnL)
	assert.True(t, recorded[0].NetPnL.Equal(mustDecimal(t, "160")))
	assert.True(t, recorded[0].EntryPrice.Equal(mustDecimal(t, "90")))
	assert.True(t, recorded[0].ExitPrice.Equal(mustDecimal(t, "110")))
}

func TestSellPartialExitKeepsPositionAndSkipsTrade(t *testing.T) {
	s := newTestStore(t)
	s.account(t, "acct-1", "0")
	inst := s.instrument(t, "AAPL")
	s.position(t, "acct-1", inst.ID, "10", "90")
	s.pendingOrder(t, &orders.Order{
		AccountID: "acct-1",
		SymbolID:  inst.ID,
		OrderType: orders.TypeMarket,
		Side:      orders.SideSell,
		Quantity:  mustDecimal(t, "4"),
		Price:     decPtr(t, "100"),
	})

	m := newMatcher(s, &fakePrices{})
	require.NoError(t, m.Run(context.Background()))

	pos, err := s.positions.GetByAccountAndSymbol("acct-1", inst.ID)
	require.NoError(t, err)
	assert.True(t, pos.Quantity.Equal(mustDecimal(t, "6")))

	recorded, err := s.trades.ListByAccount("acct-1", 10)
	require.NoError(t, err)
	assert.Empty(t, recorded, "partial exits do not record a round trip")
}

func TestSellInsufficientSharesStaysPending(t *testing.T) {
	s := newTestStore(t)
	s.account(t, "acct-1", "0")
	inst := s.instrument(t, "AAPL")
	s.position(t, "acct-1", inst.ID, "5", "90")
	o := s.pendingOrder(t, &orders.Order{
		AccountID: "acct-1",
		SymbolID:  inst.ID,
		OrderType: orders.TypeMarket,
		Side:      orders.SideSell,
		Quantity:  mustDecimal(t, "10"),
		Price:     decPtr(t, "100"),
	})

	m := newMatcher(s, &fakePrices{})
	require.NoError(t, m.Run(context.Background()))

	still, err := s.orders.GetByOrderID(o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, still.Status)

	pos, err := s.positions.GetByAccountAndSymbol("acct-1", inst.ID)
	require.NoError(t, err)
	assert.True(t, pos.Quantity.Equal(mustDecimal(t, "5")), "position untouched")

	entries, err := s.syslog.Recent(10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "ERROR", entries[0].Level)
	assert.Equal(t, "order_matcher", entries[0].Module)
}

func TestMarketOrderUsesLiveQuote(t *testing.T) {
	s := newTestStore(t)
	s.account(t, "acct-1", "1000")
	inst := s.instrument(t, "AAPL")
	o := s.pendingOrder(t, &orders.Order{
		AccountID: "acct-1",
		SymbolID:  inst.ID,
		OrderType: orders.TypeMarket,
		Side:      orders.SideBuy,
		Quantity:  mustDecimal(t, "3"),
	})

	m := newMatcher(s, &fakePrices{quotes: map[string]float64{"AAPL": 50}})
	require.NoError(t, m.Run(context.Background()))

	filled, err := s.orders.GetByOrderID(o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusFilled, filled.Status)
	require.NotNil(t, filled.AverageFillPrice)
	assert.True(t, filled.AverageFillPrice.Equal(mustDecimal(t, "50")))
}

func TestNoFillPriceLeavesOrderPending(t *testing.T) {
	s := newTestStore(t)
	s.account(t, "acct-1", "1000")
	inst := s.instrument(t, "AAPL")
	o := s.pendingOrder(t, &orders.Order{
		AccountID: "acct-1",
		SymbolID:  inst.ID,
		OrderType: orders.TypeMarket,
		Side:      orders.SideBuy,
		Quantity:  mustDecimal(t, "3"),
	})

	m := newMatcher(s, &fakePrices{})
	require.NoError(t, m.Run(context.Background()))

	still, err := s.orders.GetByOrderID(o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, still.Status)
}

func TestFIFOProcessing(t *testing.T) {
	s := newTestStore(t)
	s.account(t, "acct-1", "150")
	inst := s.instrument(t, "AAPL")

	// Both orders cost 100; only the first can fill.
	first := s.pendingOrder(t, &orders.Order{
		AccountID: "acct-1", SymbolID: inst.ID, OrderType: orders.TypeMarket,
		Side: orders.SideBuy, Quantity: mustDecimal(t, "1"), Price: decPtr(t, "100"),
	})
	second := s.pendingOrder(t, &orders.Order{
		AccountID: "acct-1", SymbolID: inst.ID, OrderType: orders.TypeMarket,
		Side: orders.SideBuy, Quantity: mustDecimal(t, "1"), Price: decPtr(t, "100"),
	})

	m := newMatcher(s, &fakePrices{})
	require.NoError(t, m.Run(context.Background()))

	a, err := s.orders.GetByOrderID(first.OrderID)
	require.NoError(t, err)
	b, err := s.orders.GetByOrderID(second.OrderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusFilled, a.Status)
	assert.Equal(t, orders.StatusRejected, b.Status)
}

func TestPositionSize(t *testing.T) {
	cases := []struct {
		name    string
		cash    string
		price   float64
		percent float64
		want    int64
	}{
		{"quarter of cash", "900", 100, 25, 2},
		{"too small for one share", "900", 100, 10, 0},
		{"capped at available cash", "900", 100, 200, 9},
		{"zero price", "900", 0, 25, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := positionSize(mustDecimal(t, tc.cash), tc.price, tc.percent)
			assert.Equal(t, tc.want, got)
		})
	}
}
