package workers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paperprofit/internal/database"
	"github.com/aristath/paperprofit/internal/modules/accounts"
	"github.com/aristath/paperprofit/internal/modules/instruments"
	"github.com/aristath/paperprofit/internal/modules/orders"
	"github.com/aristath/paperprofit/internal/modules/positions"
	"github.com/aristath/paperprofit/internal/modules/syslog"
	"github.com/aristath/paperprofit/internal/modules/trades"
)

// Matcher drains PENDING orders and simulates fills. Cash movement, position
// mutation, and the order status change commit in one transaction; a failed
// order stays PENDING for the next tick.
type Matcher struct {
	db          *sql.DB
	orders      *orders.Repository
	accounts    *accounts.Repository
	positions   *positions.Repository
	trades      *trades.Repository
	instruments *instruments.Repository
	prices      PriceSource
	syslog      *syslog.Repository
	log         zerolog.Logger
}

// NewMatcher creates the order matcher worker.
func NewMatcher(db *sql.DB, ordersRepo *orders.Repository, accountsRepo *accounts.Repository,
	positionsRepo *positions.Repository, tradesRepo *trades.Repository,
	instrumentsRepo *instruments.Repository, prices PriceSource,
	syslogRepo *syslog.Repository, log zerolog.Logger) *Matcher {
	return &Matcher{
		db:          db,
		orders:      ordersRepo,
		accounts:    accountsRepo,
		positions:   positionsRepo,
		trades:      tradesRepo,
		instruments: instrumentsRepo,
		prices:      prices,
		syslog:      syslogRepo,
		log:         log.With().Str("worker", "order_matcher").Logger(),
	}
}

// Run processes all PENDING orders oldest first. A failure on one order is
// logged and the rest of the queue still runs.
func (m *Matcher) Run(ctx context.Context) error {
	pending, err := m.orders.PendingFIFO()
	if err != nil {
		return fmt.Errorf("failed to list pending orders: %w", err)
	}

	for i := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o := &pending[i]
		if err := m.process(ctx, o); err != nil {
			m.log.Error().Err(err).Str("order_id", o.OrderID).Msg("Order processing failed")
			m.syslog.Error("order_matcher",
				fmt.Sprintf("Failed to process order %s", o.OrderID), err.Error())
		}
	}
	return nil
}

func (m *Matcher) process(ctx context.Context, o *orders.Order) error {
	price, ok := m.fillPrice(ctx, o)
	if !ok {
		m.log.Warn().Str("order_id", o.OrderID).Int64("symbol_id", o.SymbolID).
			Msg("No fill price available, order stays pending")
		m.syslog.Warning("order_matcher",
			fmt.Sprintf("No fill price for order %s, leaving pending", o.OrderID))
		return nil
	}

	switch o.Side {
	case orders.SideBuy:
		return m.fillBuy(o, price)
	case orders.SideSell:
		return m.fillSell(o, price)
	default:
		return fmt.Errorf("unknown order side %q", o.Side)
	}
}

// fillPrice resolves the execution price: the order's limit price when set,
// otherwise the live market price.
func (m *Matcher) fillPrice(ctx context.Context, o *orders.Order) (decimal.Decimal, bool) {
	if o.Price != nil {
		return *o.Price, true
	}

	inst, err := m.instruments.GetByID(o.SymbolID)
	if err != nil || inst == nil {
		return decimal.Zero, false
	}
	price, ok := m.prices.CurrentPrice(ctx, inst.Symbol)
	if !ok || price <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(price), true
}

func (m *Matcher) fillBuy(o *orders.Order, price decimal.Decimal) error {
	acct, err := m.accounts.GetByID(o.AccountID)
	if err != nil {
		return err
	}
	if acct == nil {
		return fmt.Errorf("account %s not found", o.AccountID)
	}

	cost := o.Quantity.Mul(price)
	if acct.CashBalance.LessThan(cost) {
		if err := m.orders.UpdateStatus(o.ID, orders.StatusRejected, nil, nil); err != nil {
			return err
		}
		m.log.Warn().Str("order_id", o.OrderID).
			Str("cost", cost.String()).Str("cash", acct.CashBalance.String()).
			Msg("Insufficient funds, order rejected")
		m.syslog.Warning("order_matcher",
			fmt.Sprintf("Order %s rejected: cost %s exceeds cash %s",
				o.OrderID, cost.StringFixed(2), acct.CashBalance.StringFixed(2)))
		return nil
	}

	err = database.WithTransaction(m.db, func(tx *sql.Tx) error {
		if err := m.accounts.UpdateCashBalanceTx(tx, o.AccountID, acct.CashBalance.Sub(cost)); err != nil {
			return err
		}

		pos, err := m.positions.GetByAccountAndSymbolTx(tx, o.AccountID, o.SymbolID)
		if err != nil {
			return err
		}
		if pos != nil {
			newQty, newAvg := pos.MergeBuy(o.Quantity, price)
			if err := m.positions.UpdateHoldingTx(tx, pos.ID, newQty, newAvg); err != nil {
				return err
			}
		} else {
			created := &positions.Position{
				AccountID:         o.AccountID,
				SymbolID:          o.SymbolID,
				Quantity:          o.Quantity,
				AverageEntryPrice: price,
			}
			if err := m.positions.CreateTx(tx, created); err != nil {
				return err
			}
		}

		return m.orders.UpdateStatusTx(tx, o.ID, orders.StatusFilled, &o.Quantity, &price)
	})
	if err != nil {
		return err
	}

	m.log.Info().Str("order_id", o.OrderID).Int64("symbol_id", o.SymbolID).
		Str("quantity", o.Quantity.String()).Str("price", price.String()).
		Msg("BUY order filled")
	return nil
}

func (m *Matcher) fillSell(o *orders.Order, price decimal.Decimal) error {
	pos, err := m.positions.GetByAccountAndSymbol(o.AccountID, o.SymbolID)
	if err != nil {
		return err
	}
	if pos == nil || pos.Quantity.LessThan(o.Quantity) {
		held := "0"
		if pos != nil {
			held = pos.Quantity.String()
		}
		m.log.Error().Str("order_id", o.OrderID).Int64("symbol_id", o.SymbolID).
			Str("held", held).Str("requested", o.Quantity.String()).
			Msg("Insufficient shares to sell, order stays pending")
		m.syslog.Error("order_matcher",
			fmt.Sprintf("Order %s cannot sell %s shares", o.OrderID, o.Quantity),
			fmt.Sprintf("position holds %s", held))
		return nil
	}

	acct, err := m.accounts.GetByID(o.AccountID)
	if err != nil {
		return err
	}
	if acct == nil {
		return fmt.Errorf("account %s not found", o.AccountID)
	}

	proceeds := o.Quantity.Mul(price)
	fullExit := pos.Quantity.Equal(o.Quantity)

	err = database.WithTransaction(m.db, func(tx *sql.Tx) error {
		newQty := pos.Quantity.Sub(o.Quantity)
		if err := m.positions.UpdateHoldingTx(tx, pos.ID, newQty, pos.AverageEntryPrice); err != nil {
			return err
		}
		if err := m.accounts.UpdateCashBalanceTx(tx, o.AccountID, acct.CashBalance.Add(proceeds)); err != nil {
			return err
		}
		if err := m.orders.UpdateStatusTx(tx, o.ID, orders.StatusFilled, &o.Quantity, &price); err != nil {
			return err
		}

		if fullExit {
			return m.trades.CreateTx(tx, m.buildTrade(o, pos, price))
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.log.Info().Str("order_id", o.OrderID).Int64("symbol_id", o.SymbolID).
		Str("quantity", o.Quantity.String()).Str("price", price.String()).
		Bool("full_exit", fullExit).Msg("SELL order filled")
	return nil
}

// buildTrade records the realized round trip on a full position exit.
func (m *Matcher) buildTrade(o *orders.Order, pos *positions.Position, price decimal.Decimal) *trades.Trade {
	gross := price.Sub(pos.AverageEntryPrice).Mul(o.Quantity)
	net := gross.Sub(o.Commission)

	t := &trades.Trade{
		AccountID:  o.AccountID,
		SymbolID:   o.SymbolID,
		StrategyID: o.StrategyID,
		Side:       o.Side,
		Quantity:   o.Quantity,
		EntryPrice: pos.AverageEntryPrice,
		ExitPrice:  price,
		GrossPnL:   gross,
		NetPnL:     net,
		Commission: o.Commission,
		ExitTime:   time.Now().UTC(),
	}

	basis := pos.AverageEntryPrice.Mul(o.Quantity)
	if !basis.IsZero() {
		pct, _ := gross.Div(basis).Mul(decimal.NewFromInt(100)).Float64()
		t.PnLPercent = &pct
	}
	if !pos.OpenedAt.IsZero() {
		opened := pos.OpenedAt
		t.EntryTime = &opened
		days := int64(t.ExitTime.Sub(opened).Hours() / 24)
		t.HoldingDays = &days
	}
	return t
}
