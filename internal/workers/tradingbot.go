package workers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paperprofit/internal/ai"
	"github.com/aristath/paperprofit/internal/analysis/fundamental"
	"github.com/aristath/paperprofit/internal/analysis/technical"
	"github.com/aristath/paperprofit/internal/modules/accounts"
	"github.com/aristath/paperprofit/internal/modules/instruments"
	"github.com/aristath/paperprofit/internal/modules/marketdata"
	"github.com/aristath/paperprofit/internal/modules/orders"
	"github.com/aristath/paperprofit/internal/modules/positions"
	"github.com/aristath/paperprofit/internal/modules/signals"
	"github.com/aristath/paperprofit/internal/modules/strategies"
	"github.com/aristath/paperprofit/internal/modules/syslog"
	"github.com/aristath/paperprofit/internal/providers"
)

// historyBars bounds the daily history window fed into the indicator
// pipeline.
const historyBars = 250

// syntheticVolume is assumed on bars synthesized from a live quote so the
// volume filter does not reject symbols that simply lack stored history.
const syntheticVolume = 1_000_000

// signal thresholds of the composite score.
const (
	buyThreshold  = 3
	sellThreshold = -3
)

// TradingBot runs the per-account decision pipeline: resolve the strategy
// universe, score each symbol, persist the signal, and emit MARKET orders.
type TradingBot struct {
	accounts    *accounts.Repository
	strategies  *strategies.Repository
	positions   *positions.Repository
	orders      *orders.Repository
	signals     *signals.Repository
	marketdata  *marketdata.Repository
	instruments *instruments.Service
	prices      PriceSource
	info        InfoSource
	stockLists  StockListSource
	syslog      *syslog.Repository
	log         zerolog.Logger
}

// NewTradingBot creates the trading bot worker. info and stockLists may be
// nil; fundamental analysis and AI universes degrade gracefully without them.
func NewTradingBot(accountsRepo *accounts.Repository, strategiesRepo *strategies.Repository,
	positionsRepo *positions.Repository, ordersRepo *orders.Repository,
	signalsRepo *signals.Repository, marketdataRepo *marketdata.Repository,
	instrumentsSvc *instruments.Service, prices PriceSource, info InfoSource,
	stockLists StockListSource, syslogRepo *syslog.Repository, log zerolog.Logger) *TradingBot {
	return &TradingBot{
		accounts:    accountsRepo,
		strategies:  strategiesRepo,
		positions:   positionsRepo,
		orders:      ordersRepo,
		signals:     signalsRepo,
		marketdata:  marketdataRepo,
		instruments: instrumentsSvc,
		prices:      prices,
		info:        info,
		stockLists:  stockLists,
		syslog:      syslogRepo,
		log:         log.With().Str("worker", "trading_bot").Logger(),
	}
}

// Run executes one bot cycle over every active trading account.
func (b *TradingBot) Run(ctx context.Context) error {
	accts, err := b.accounts.ActiveTrading()
	if err != nil {
		return err
	}

	for i := range accts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		acct := &accts[i]
		if err := b.runAccount(ctx, acct); err != nil {
			b.log.Error().Err(err).Str("account", acct.AccountID).Msg("Account cycle failed")
			b.syslog.Error("trading_bot",
				fmt.Sprintf("Cycle failed for account %s", acct.AccountID), err.Error())
		}
	}
	return nil
}

func (b *TradingBot) runAccount(ctx context.Context, acct *accounts.Account) error {
	strat, err := b.strategies.GetByID(*acct.StrategyID)
	if err != nil {
		return err
	}
	if strat == nil {
		b.log.Warn().Str("account", acct.AccountID).Int64("strategy_id", *acct.StrategyID).
			Msg("Strategy not found, skipping account")
		return nil
	}

	params := strat.Parameters.Merge()

	universe := b.resolveUniverse(ctx, strat, params)
	if len(universe) == 0 {
		b.log.Warn().Str("account", acct.AccountID).Str("strategy", strat.Name).
			Msg("Empty stock universe, nothing to evaluate")
		return nil
	}

	held, err := b.positions.ListByAccount(acct.AccountID, true)
	if err != nil {
		return err
	}
	bySymbol := make(map[int64]positions.Position, len(held))
	for _, p := range held {
		bySymbol[p.SymbolID] = p
	}

	b.log.Info().Str("account", acct.AccountID).Str("strategy", strat.Name).
		Int("universe", len(universe)).Msg("Evaluating symbols")

	for _, symbol := range universe {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := b.evaluateSymbol(ctx, acct, strat, params, symbol, bySymbol); err != nil {
			b.log.Error().Err(err).Str("symbol", symbol).Msg("Symbol evaluation failed")
			b.syslog.Error("trading_bot",
				fmt.Sprintf("Evaluation failed for %s", symbol), err.Error())
		}
	}
	return nil
}

// resolveUniverse yields the symbols a strategy trades this cycle. AI mode
// falls back to the stored list, then to a keyword-bucketed default.
func (b *TradingBot) resolveUniverse(ctx context.Context, strat *strategies.Strategy, params strategies.Params) []string {
	if strat.StockListMode == strategies.StockListAI && strat.StockListAIPrompt != "" && b.stockLists != nil {
		platform := params.String("ai_platform", ai.DefaultPlatform)

		list, cached, err := b.stockLists.StockList(ctx, platform, strat.StockListAIPrompt)
		if err != nil {
			b.log.Warn().Err(err).Str("platform", platform).Msg("AI stock list generation failed")
		}
		if len(list) > 0 {
			if !cached {
				if err := b.strategies.UpdateStockList(strat.ID, strings.Join(list, ",")); err != nil {
					b.log.Warn().Err(err).Int64("strategy_id", strat.ID).Msg("Failed to store AI stock list")
				}
			}
			return list
		}

		if fallback := ParseUniverse(strat.StockList); len(fallback) > 0 {
			b.log.Info().Str("strategy", strat.Name).Msg("Using stored stock list as AI fallback")
			return fallback
		}
		return DefaultUniverse(strat.StockListAIPrompt)
	}

	return ParseUniverse(strat.StockList)
}

func (b *TradingBot) evaluateSymbol(ctx context.Context, acct *accounts.Account,
	strat *strategies.Strategy, params strategies.Params, symbol string,
	held map[int64]positions.Position) error {

	inst, err := b.instruments.EnsureExists(symbol)
	if err != nil {
		return err
	}

	bar, synthetic := b.latestBar(ctx, inst)
	if bar == nil {
		b.log.Warn().Str("symbol", symbol).Msg("No market data and no live quote, skipping")
		return nil
	}

	snap, err := b.analyze(inst.ID, bar, synthetic)
	if err != nil {
		return err
	}

	if float64(bar.Volume) < params.Float("min_volume", 1_000_000) {
		return b.persistSignal(inst, strat, snap, decision{
			action: signals.TypeHold,
			reason: "Low volume",
			price:  bar.Close,
		})
	}

	d := b.decide(ctx, symbol, params, snap, bar.Close)
	if err := b.persistSignal(inst, strat, snap, d); err != nil {
		return err
	}

	switch d.action {
	case signals.TypeBuy:
		return b.placeBuy(acct, strat, inst, params, d, held)
	case signals.TypeSell:
		return b.placeSell(acct, strat, inst, d, held)
	}
	return nil
}

// latestBar returns the newest daily bar, synthesizing one from a live quote
// when no history exists.
func (b *TradingBot) latestBar(ctx context.Context, inst *instruments.Instrument) (*marketdata.Bar, bool) {
	bar, err := b.marketdata.LatestBar(inst.ID, marketdata.Interval1Day)
	if err != nil {
		b.log.Warn().Err(err).Str("symbol", inst.Symbol).Msg("Latest bar lookup failed")
	}
	if bar != nil {
		return bar, false
	}

	price, ok := b.prices.CurrentPrice(ctx, inst.Symbol)
	if !ok || price <= 0 {
		return nil, false
	}
	synthetic := marketdata.QuoteBar(inst.ID, price, syntheticVolume, marketdata.Interval1Day, time.Now().UTC())
	return &synthetic, true
}

// analyze runs the indicator pipeline over stored daily history, appending
// the synthetic bar when the latest bar did not come from the store.
func (b *TradingBot) analyze(symbolID int64, bar *marketdata.Bar, synthetic bool) (technical.Snapshot, error) {
	hist, err := b.marketdata.History(symbolID, marketdata.Interval1Day, historyBars)
	if err != nil {
		return technical.Snapshot{}, err
	}
	if synthetic {
		hist = append(hist, *bar)
	}

	highs := make([]float64, len(hist))
	lows := make([]float64, len(hist))
	closes := make([]float64, len(hist))
	for i, h := range hist {
		highs[i] = h.High
		lows[i] = h.Low
		closes[i] = h.Close
	}
	return technical.Analyze(highs, lows, closes, bar.Volume), nil
}

// decision is one per-symbol outcome of the composite scorer.
type decision struct {
	action     string
	score      int
	confidence float64
	reason     string
	price      float64
}

// decide computes the composite signal score and maps it onto
// BUY / SELL / HOLD.
func (b *TradingBot) decide(ctx context.Context, symbol string, params strategies.Params,
	snap technical.Snapshot, price float64) decision {

	score := 0
	var reasons []string

	if snap.RSI != nil {
		switch rsi := *snap.RSI; {
		case rsi < params.Float("rsi_oversold", 30):
			score += 2
			reasons = append(reasons, fmt.Sprintf("RSI oversold (%.2f)", rsi))
		case rsi > params.Float("rsi_overbought", 70):
			score -= 2
			reasons = append(reasons, fmt.Sprintf("RSI overbought (%.2f)", rsi))
		}
	}

	switch snap.Trend {
	case technical.TrendBullish:
		score++
		reasons = append(reasons, "Bullish price trend")
	case technical.TrendBearish:
		score--
		reasons = append(reasons, "Bearish price trend")
	}

	if snap.Oversold {
		score++
		reasons = append(reasons, "Oversold condition")
	}
	if snap.Overbought {
		score--
		reasons = append(reasons, "Overbought condition")
	}

	if params.HasFundamentalKeys() && b.info != nil {
		if info := b.info.FetchInfo(ctx, symbol); info != nil {
			m := metricsFromInfo(info)

			quality := fundamental.QualityScore(m)
			if float64(quality) > params.Float("min_quality_score", fundamental.DefaultMinQuality) {
				score++
				reasons = append(reasons, fmt.Sprintf("High quality score (%d)", quality))
			}

			if params.Bool("underlying_quality_required", false) &&
				fundamental.MeetsQuality(m, params.Float("min_quality_score", fundamental.DefaultMinQuality)) {
				score++
				reasons = append(reasons, "Meets quality requirements")
			}

			if params.HasValuationKeys() {
				mv := fundamental.MeetsValuation(m,
					params.Float("max_pe", fundamental.DefaultMaxPE),
					params.Float("max_pb", fundamental.DefaultMaxPB))
				if mv != nil && *mv {
					score++
					reasons = append(reasons, "Good valuation")
				}
			}
		}
	}

	if snap.NearSupport {
		score++
		reasons = append(reasons, "Price near support level")
	}
	if snap.NearResistance {
		score--
		reasons = append(reasons, "Price near resistance level")
	}

	d := decision{score: score, price: price}
	switch {
	case score >= buyThreshold:
		d.action = signals.TypeBuy
		d.reason = strings.Join(reasons, ", ")
	case score <= sellThreshold:
		d.action = signals.TypeSell
		d.reason = strings.Join(reasons, ", ")
	default:
		d.action = signals.TypeHold
		if len(reasons) > 0 {
			d.reason = "Mixed signals: " + strings.Join(reasons, ", ")
		} else {
			d.reason = "No clear signal"
		}
	}

	abs := score
	if abs < 0 {
		abs = -abs
	}
	d.confidence = float64(abs)/10 + 0.5
	if d.confidence > 0.9 {
		d.confidence = 0.9
	}
	return d
}

// persistSignal records the decision, HOLDs included, before any order is
// created.
func (b *TradingBot) persistSignal(inst *instruments.Instrument, strat *strategies.Strategy,
	snap technical.Snapshot, d decision) error {

	confidence := d.confidence
	if confidence == 0 {
		confidence = 0.5
	}

	doc := snap.Indicators()
	doc["signal_score"] = d.score
	doc["confidence"] = confidence

	price := d.price

	sig := &signals.Signal{
		SymbolID:       inst.ID,
		StrategyID:     &strat.ID,
		SignalType:     d.action,
		Strength:       float64(d.score),
		Price:          &price,
		Confidence:     confidence,
		IndicatorsUsed: doc,
		Reason:         d.reason,
	}
	if err := b.signals.Create(sig); err != nil {
		return fmt.Errorf("failed to persist %s signal for %s: %w", d.action, inst.Symbol, err)
	}

	b.log.Info().Str("symbol", inst.Symbol).Str("action", d.action).
		Int("score", d.score).Float64("confidence", confidence).
		Str("reason", d.reason).Msg("Signal recorded")
	return nil
}

func (b *TradingBot) placeBuy(acct *accounts.Account, strat *strategies.Strategy,
	inst *instruments.Instrument, params strategies.Params, d decision,
	held map[int64]positions.Position) error {

	if pos, ok := held[inst.ID]; ok && pos.Quantity.IsPositive() {
		b.log.Info().Str("symbol", inst.Symbol).Msg("Position already held, skipping BUY")
		return nil
	}

	open, err := b.positions.CountOpen(acct.AccountID)
	if err != nil {
		return err
	}
	if open >= params.Int("max_positions", 10) {
		b.log.Info().Str("account", acct.AccountID).Int("open", open).
			Msg("Maximum positions reached, skipping BUY")
		return nil
	}

	shares := positionSize(acct.CashBalance, d.price, params.Float("max_position_size_percent", 10))
	if shares < 1 {
		b.log.Info().Str("symbol", inst.Symbol).Msg("Insufficient funds for BUY")
		return nil
	}

	price := decimal.NewFromFloat(d.price)
	order := &orders.Order{
		AccountID:  acct.AccountID,
		SymbolID:   inst.ID,
		StrategyID: &strat.ID,
		OrderType:  orders.TypeMarket,
		Side:       orders.SideBuy,
		Quantity:   decimal.NewFromInt(shares),
		Price:      &price,
	}
	if err := b.orders.Create(order); err != nil {
		return fmt.Errorf("failed to create BUY order for %s: %w", inst.Symbol, err)
	}

	b.log.Info().Str("symbol", inst.Symbol).Int64("shares", shares).
		Str("price", price.String()).Msg("BUY order submitted")
	return nil
}

func (b *TradingBot) placeSell(acct *accounts.Account, strat *strategies.Strategy,
	inst *instruments.Instrument, d decision, held map[int64]positions.Position) error {

	pos, ok := held[inst.ID]
	if !ok || !pos.Quantity.IsPositive() {
		b.log.Info().Str("symbol", inst.Symbol).Msg("No position to sell")
		return nil
	}

	price := decimal.NewFromFloat(d.price)
	order := &orders.Order{
		AccountID:  acct.AccountID,
		SymbolID:   inst.ID,
		StrategyID: &strat.ID,
		OrderType:  orders.TypeMarket,
		Side:       orders.SideSell,
		Quantity:   pos.Quantity,
		Price:      &price,
	}
	if err := b.orders.Create(order); err != nil {
		return fmt.Errorf("failed to create SELL order for %s: %w", inst.Symbol, err)
	}

	b.log.Info().Str("symbol", inst.Symbol).Str("shares", pos.Quantity.String()).
		Str("price", price.String()).Msg("SELL order submitted")
	return nil
}

// positionSize returns the whole-share count the account can afford, capped
// at maxPercent of cash.
func positionSize(cash decimal.Decimal, price float64, maxPercent float64) int64 {
	if price <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(price)

	maxValue := cash.Mul(decimal.NewFromFloat(maxPercent)).Div(decimal.NewFromInt(100))
	if maxValue.GreaterThan(cash) {
		maxValue = cash
	}
	return maxValue.Div(p).IntPart()
}

// metricsFromInfo maps the vendor info payload onto the fundamental metric
// bundle.
func metricsFromInfo(info *providers.Info) fundamental.Metrics {
	return fundamental.Metrics{
		PERatio:       info.PERatio,
		PBRatio:       info.PBRatio,
		MarketCap:     info.MarketCap,
		Beta:          info.Beta,
		DividendYield: info.DividendYield,
		ROE:           info.ROE,
		RevenueGrowth: info.RevenueGrowth,
		EPSGrowth:     info.EPSGrowth,
		Sector:        info.Sector,
	}
}
