package workers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/paperprofit/internal/analysis/technical"
	"github.com/aristath/paperprofit/internal/modules/instruments"
	"github.com/aristath/paperprofit/internal/modules/marketdata"
	"github.com/aristath/paperprofit/internal/modules/orders"
	"github.com/aristath/paperprofit/internal/modules/positions"
	"github.com/aristath/paperprofit/internal/modules/signals"
	"github.com/aristath/paperprofit/internal/modules/strategies"
	"github.com/aristath/paperprofit/internal/providers"
)

func newBot(s *testStore, prices PriceSource, lists StockListSource) *TradingBot {
	svc := instruments.NewService(s.instruments, nil, nil, zerolog.Nop())
	return NewTradingBot(s.accounts, s.strategies, s.positions, s.orders,
		s.signals, s.marketdata, svc, prices, nil, lists, s.syslog, zerolog.Nop())
}

func fptr(v float64) *float64 { return &v }

func TestBotPersistsHoldSignalFromSyntheticBar(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{
		Name:      "manual",
		StockList: "AAPL",
		IsActive:  true,
	})
	s.tradingAccount(t, "acct-1", "1000", strat.ID)

	bot := newBot(s, &fakePrices{quotes: map[string]float64{"AAPL": 50}}, nil)
	require.NoError(t, bot.Run(context.Background()))

	// The instrument was auto-created.
	inst, err := s.instruments.GetBySymbol("AAPL")
	require.NoError(t, err)
	require.NotNil(t, inst)

	recent, err := s.signals.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	sig := recent[0]
	assert.Equal(t, signals.TypeHold, sig.SignalType)
	assert.Equal(t, 0.0, sig.Strength)
	assert.Equal(t, 0.5, sig.Confidence)
	require.NotNil(t, sig.Price)
	assert.Equal(t, 50.0, *sig.Price)
	require.NotNil(t, sig.IndicatorsUsed)
	assert.Contains(t, sig.IndicatorsUsed, "signal_score")
	assert.Contains(t, sig.IndicatorsUsed, "close")

	// No order from a HOLD.
	placed, err := s.orders.ListByAccount("acct-1", 10)
	require.NoError(t, err)
	assert.Empty(t, placed)
}

func TestBotLowVolumeEmitsHold(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{
		Name:      "manual",
		StockList: "AAPL",
		IsActive:  true,
	})
	s.tradingAccount(t, "acct-1", "1000", strat.ID)
	inst := s.instrument(t, "AAPL")

	bar := marketdata.QuoteBar(inst.ID, 100, 100, marketdata.Interval1Day, time.Now().UTC())
	require.NoError(t, s.marketdata.Create(&bar))

	bot := newBot(s, &fakePrices{}, nil)
	require.NoError(t, bot.Run(context.Background()))

	recent, err := s.signals.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, signals.TypeHold, recent[0].SignalType)
	assert.Equal(t, "Low volume", recent[0].Reason)
}

func TestBotTradesAtExactMinVolume(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{
		Name:       "manual",
		StockList:  "AAPL",
		Parameters: strategies.Params{"min_volume": float64(100)},
		IsActive:   true,
	})
	s.tradingAccount(t, "acct-1", "1000", strat.ID)
	inst := s.instrument(t, "AAPL")

	// Volume exactly at the threshold still gets evaluated.
	bar := marketdata.QuoteBar(inst.ID, 100, 100, marketdata.Interval1Day, time.Now().UTC())
	require.NoError(t, s.marketdata.Create(&bar))

	bot := newBot(s, &fakePrices{}, nil)
	require.NoError(t, bot.Run(context.Background()))

	recent, err := s.signals.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, signals.TypeHold, recent[0].SignalType)
	assert.Equal(t, "No clear signal", recent[0].Reason)
}

func TestDecideCompositeScore(t *testing.T) {
	bot := &TradingBot{log: zerolog.Nop()}
	params := strategies.ParseParams("")

	buySnap := technical.Snapshot{
		RSI:         fptr(25),
		Trend:       technical.TrendBullish,
		Oversold:    true,
		NearSupport: true,
	}
	d := bot.decide(context.Background(), "AAPL", params, buySnap, 100)
	assert.Equal(t, signals.TypeBuy, d.action)
	assert.Equal(t, 5, d.score)
	assert.Equal(t, 0.9, d.confidence)
	assert.Contains(t, d.reason, "RSI oversold")

	sellSnap := technical.Snapshot{
		RSI:            fptr(80),
		Trend:          technical.TrendBearish,
		Overbought:     true,
		NearResistance: true,
	}
	d = bot.decide(context.Background(), "AAPL", params, sellSnap, 100)
	assert.Equal(t, signals.TypeSell, d.action)
	assert.Equal(t, -5, d.score)
	assert.Equal(t, 0.9, d.confidence)

	holdSnap := technical.Snapshot{Trend: technical.TrendBullish}
	d = bot.decide(context.Background(), "AAPL", params, holdSnap, 100)
	assert.Equal(t, signals.TypeHold, d.action)
	assert.Equal(t, 1, d.score)
	assert.Equal(t, 0.6, d.confidence)
	assert.Contains(t, d.reason, "Mixed signals")

	empty := technical.Snapshot{Trend: technical.TrendSideways}
	d = bot.decide(context.Background(), "AAPL", params, empty, 100)
	assert.Equal(t, signals.TypeHold, d.action)
	assert.Equal(t, 0, d.score)
	assert.Equal(t, 0.5, d.confidence)
	assert.Equal(t, "No clear signal", d.reason)
}

func TestDecideHonorsStrategyThresholds(t *testing.T) {
	bot := &TradingBot{log: zerolog.Nop()}
	params := strategies.ParseParams(`{"rsi_oversold": 40}`)

	snap := technical.Snapshot{RSI: fptr(35)}
	d := bot.decide(context.Background(), "AAPL", params, snap, 100)
	assert.Equal(t, 2, d.score, "custom oversold threshold applies")
}

func TestDecideValuationBonusFromMarginOfSafety(t *testing.T) {
	info := &fakeInfo{info: &providers.Info{PERatio: fptr(10), PBRatio: fptr(1)}}
	bot := &TradingBot{info: info, log: zerolog.Nop()}
	params := strategies.ParseParams(`{"required_margin_of_safety_percent": 20}`)

	snap := technical.Snapshot{Trend: technical.TrendBullish, NearSupport: true}
	d := bot.decide(context.Background(), "AAPL", params, snap, 100)
	assert.Equal(t, signals.TypeBuy, d.action)
	assert.Equal(t, 3, d.score, "margin-of-safety key activates the valuation bonus")
	assert.Contains(t, d.reason, "Good valuation")

	// Without any valuation key the same setup stays a HOLD.
	d = bot.decide(context.Background(), "AAPL", strategies.ParseParams(""), snap, 100)
	assert.Equal(t, signals.TypeHold, d.action)
	assert.Equal(t, 2, d.score)
}

func TestPlaceBuySizingAndGuards(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{Name: "sizer", IsActive: true})
	acct := s.tradingAccount(t, "acct-1", "900", strat.ID)
	inst := s.instrument(t, "AAPL")

	bot := newBot(s, &fakePrices{}, nil)
	params := strategies.ParseParams(`{"max_position_size_percent": 25}`)
	d := decision{action: signals.TypeBuy, price: 100}

	require.NoError(t, bot.placeBuy(acct, strat, inst, params, d, nil))

	placed, err := s.orders.ListByAccount("acct-1", 10)
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.Equal(t, orders.SideBuy, placed[0].Side)
	assert.Equal(t, orders.TypeMarket, placed[0].OrderType)
	assert.Equal(t, orders.StatusPending, placed[0].Status)
	assert.True(t, placed[0].Quantity.Equal(mustDecimal(t, "2")), "25%% of 900 buys 2 shares at 100")
	require.NotNil(t, placed[0].StrategyID)
	assert.Equal(t, strat.ID, *placed[0].StrategyID)
}

func TestPlaceBuySkipsWhenTooSmallOrCapped(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{Name: "guards", IsActive: true})
	acct := s.tradingAccount(t, "acct-1", "900", strat.ID)
	aapl := s.instrument(t, "AAPL")
	msft := s.instrument(t, "MSFT")

	bot := newBot(s, &fakePrices{}, nil)
	d := decision{action: signals.TypeBuy, price: 100}

	// 10% of 900 cannot buy one share at 100.
	small := strategies.ParseParams(`{"max_position_size_percent": 10}`)
	require.NoError(t, bot.placeBuy(acct, strat, aapl, small, d, nil))

	// The max_positions cap refuses new entries.
	s.position(t, "acct-1", msft.ID, "1", "100")
	capped := strategies.ParseParams(`{"max_position_size_percent": 50, "max_positions": 1}`)
	require.NoError(t, bot.placeBuy(acct, strat, aapl, capped, d, nil))

	placed, err := s.orders.ListByAccount("acct-1", 10)
	require.NoError(t, err)
	assert.Empty(t, placed)
}

func TestPlaceBuySkipsExistingPosition(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{Name: "held", IsActive: true})
	acct := s.tradingAccount(t, "acct-1", "10000", strat.ID)
	inst := s.instrument(t, "AAPL")
	pos := s.position(t, "acct-1", inst.ID, "5", "90")

	bot := newBot(s, &fakePrices{}, nil)
	params := strategies.ParseParams("")

	require.NoError(t, bot.placeBuy(acct, strat, inst, params,
		decision{action: signals.TypeBuy, price: 100},
		map[int64]positions.Position{inst.ID: *pos}))

	placed, err := s.orders.ListByAccount("acct-1", 10)
	require.NoError(t, err)
	assert.Empty(t, placed)
}

func TestPlaceSellRequiresPositionAndSellsAll(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{Name: "seller", IsActive: true})
	acct := s.tradingAccount(t, "acct-1", "0", strat.ID)
	inst := s.instrument(t, "AAPL")

	bot := newBot(s, &fakePrices{}, nil)
	d := decision{action: signals.TypeSell, price: 120}

	// No position: nothing happens.
	require.NoError(t, bot.placeSell(acct, strat, inst, d, nil))
	placed, err := s.orders.ListByAccount("acct-1", 10)
	require.NoError(t, err)
	assert.Empty(t, placed)

	pos := s.position(t, "acct-1", inst.ID, "7", "90")
	require.NoError(t, bot.placeSell(acct, strat, inst, d,
		map[int64]positions.Position{inst.ID: *pos}))

	placed, err = s.orders.ListByAccount("acct-1", 10)
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.Equal(t, orders.SideSell, placed[0].Side)
	assert.True(t, placed[0].Quantity.Equal(mustDecimal(t, "7")), "entire holding is sold")
}

func TestResolveUniverseManual(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{
		Name:      "manual",
		StockList: "AAPL, MSFT\nGOOGL",
		IsActive:  true,
	})

	bot := newBot(s, &fakePrices{}, nil)
	got := bot.resolveUniverse(context.Background(), strat, strat.Parameters.Merge())
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL"}, got)
}

func TestResolveUniverseAIStoresGeneratedList(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{
		Name:              "ai",
		StockListMode:     strategies.StockListAI,
		StockListAIPrompt: "growth stocks",
		IsActive:          true,
	})

	lists := &fakeStockLists{symbols: []string{"NVDA", "AMD"}}
	bot := newBot(s, &fakePrices{}, lists)

	got := bot.resolveUniverse(context.Background(), strat, strat.Parameters.Merge())
	assert.Equal(t, []string{"NVDA", "AMD"}, got)
	assert.Equal(t, 1, lists.calls)

	stored, err := s.strategies.GetByID(strat.ID)
	require.NoError(t, err)
	assert.Equal(t, "NVDA,AMD", stored.StockList)
}

func TestResolveUniverseAICacheHitSkipsStore(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{
		Name:              "ai",
		StockListMode:     strategies.StockListAI,
		StockListAIPrompt: "growth stocks",
		StockList:         "OLD",
		IsActive:          true,
	})

	lists := &fakeStockLists{symbols: []string{"NVDA"}, cached: true}
	bot := newBot(s, &fakePrices{}, lists)

	got := bot.resolveUniverse(context.Background(), strat, strat.Parameters.Merge())
	assert.Equal(t, []string{"NVDA"}, got)

	stored, err := s.strategies.GetByID(strat.ID)
	require.NoError(t, err)
	assert.Equal(t, "OLD", stored.StockList, "cache hits do not rewrite the stored list")
}

func TestResolveUniverseAIFallsBackToStoredList(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{
		Name:              "ai",
		StockListMode:     strategies.StockListAI,
		StockListAIPrompt: "growth stocks",
		StockList:         "AAPL,MSFT",
		IsActive:          true,
	})

	bot := newBot(s, &fakePrices{}, &fakeStockLists{})
	got := bot.resolveUniverse(context.Background(), strat, strat.Parameters.Merge())
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestResolveUniverseAIFallsBackToKeywordBucket(t *testing.T) {
	s := newTestStore(t)
	strat := s.strategy(t, &strategies.Strategy{
		Name:              "ai",
		StockListMode:     strategies.StockListAI,
		StockListAIPrompt: "promising technology companies",
		IsActive:          true,
	})

	bot := newBot(s, &fakePrices{}, &fakeStockLists{})
	got := bot.resolveUniverse(context.Background(), strat, strat.Parameters.Merge())
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META"}, got)
}
