package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/paperprofit/internal/modules/accounts"
	"github.com/aristath/paperprofit/internal/modules/instruments"
	"github.com/aristath/paperprofit/internal/modules/orders"
	"github.com/aristath/paperprofit/internal/modules/positions"
	"github.com/aristath/paperprofit/internal/modules/signals"
	"github.com/aristath/paperprofit/internal/modules/trades"
)

// TradingHandlers serves the accounts, positions, orders, trades, signals,
// and watchlist endpoints.
type TradingHandlers struct {
	log         zerolog.Logger
	accounts    *accounts.Repository
	positions   *positions.Repository
	orders      *orders.Repository
	trades      *trades.Repository
	signals     *signals.Repository
	instruments *instruments.Service
}

// NewTradingHandlers creates the trading handlers.
func NewTradingHandlers(
	log zerolog.Logger,
	accountsRepo *accounts.Repository,
	positionsRepo *positions.Repository,
	ordersRepo *orders.Repository,
	tradesRepo *trades.Repository,
	signalsRepo *signals.Repository,
	instrumentsSvc *instruments.Service,
) *TradingHandlers {
	return &TradingHandlers{
		log:         log.With().Str("component", "trading_handlers").Logger(),
		accounts:    accountsRepo,
		positions:   positionsRepo,
		orders:      ordersRepo,
		trades:      tradesRepo,
		signals:     signalsRepo,
		instruments: instrumentsSvc,
	}
}

type accountResponse struct {
	AccountID   string          `json:"account_id"`
	AccountName string          `json:"account_name"`
	AccountType string          `json:"account_type"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	StrategyID  *int64          `json:"strategy_id,omitempty"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toAccountResponse(a accounts.Account) accountResponse {
	return accountResponse{
		AccountID:   a.AccountID,
		AccountName: a.AccountName,
		AccountType: a.AccountType,
		CashBalance: a.CashBalance,
		Currency:    a.Currency,
		Status:      a.Status,
		Description: a.Description,
		StrategyID:  a.StrategyID,
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// HandleListAccounts returns all accounts; ?active=true filters to live ones.
func (h *TradingHandlers) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	list, err := h.accounts.List(activeOnly)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		writeError(w, http.StatusInternalServerError, "failed to list accounts")
		return
	}

	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetAccount returns a single account by its external id.
func (h *TradingHandlers) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	a, err := h.accounts.GetByID(accountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to get account")
		writeError(w, http.StatusInternalServerError, "failed to get account")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(*a))
}

type positionResponse struct {
	ID                int64            `json:"id"`
	AccountID         string           `json:"account_id"`
	SymbolID          int64            `json:"symbol_id"`
	Quantity          decimal.Decimal  `json:"quantity"`
	AverageEntryPrice decimal.Decimal  `json:"average_entry_price"`
	CurrentPrice      *decimal.Decimal `json:"current_price,omitempty"`
	UnrealizedPnL     *decimal.Decimal `json:"unrealized_pnl,omitempty"`
	RealizedPnL       decimal.Decimal  `json:"realized_pnl"`
	OpenedAt          time.Time        `json:"opened_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// HandleListPositions returns an account's positions. ?open=false includes
// closed-out rows.
func (h *TradingHandlers) HandleListPositions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	openOnly := r.URL.Query().Get("open") != "false"

	list, err := h.positions.ListByAccount(accountID, openOnly)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to list positions")
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	out := make([]positionResponse, 0, len(list))
	for _, p := range list {
		out = append(out, positionResponse{
			ID:                p.ID,
			AccountID:         p.AccountID,
			SymbolID:          p.SymbolID,
			Quantity:          p.Quantity,
			AverageEntryPrice: p.AverageEntryPrice,
			CurrentPrice:      p.CurrentPrice,
			UnrealizedPnL:     p.UnrealizedPnL,
			RealizedPnL:       p.RealizedPnL,
			OpenedAt:          p.OpenedAt,
			UpdatedAt:         p.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type orderResponse struct {
	ID               int64            `json:"id"`
	OrderID          string           `json:"order_id"`
	AccountID        string           `json:"account_id"`
	SymbolID         int64            `json:"symbol_id"`
	StrategyID       *int64           `json:"strategy_id,omitempty"`
	OrderType        string           `json:"order_type"`
	Side             string           `json:"side"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Price            *decimal.Decimal `json:"price,omitempty"`
	StopPrice        *decimal.Decimal `json:"stop_price,omitempty"`
	Status           string           `json:"status"`
	FilledQuantity   decimal.Decimal  `json:"filled_quantity"`
	AverageFillPrice *decimal.Decimal `json:"average_fill_price,omitempty"`
	Commission       decimal.Decimal  `json:"commission"`
	SubmittedAt      time.Time        `json:"submitted_at"`
	FilledAt         *time.Time       `json:"filled_at,omitempty"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty"`
}

func toOrderResponse(o orders.Order) orderResponse {
	return orderResponse{
		ID:               o.ID,
		OrderID:          o.OrderID,
		AccountID:        o.AccountID,
		SymbolID:         o.SymbolID,
		StrategyID:       o.StrategyID,
		OrderType:        o.OrderType,
		Side:             o.Side,
		Quantity:         o.Quantity,
		Price:            o.Price,
		StopPrice:        o.StopPrice,
		Status:           o.Status,
		FilledQuantity:   o.FilledQuantity,
		AverageFillPrice: o.AverageFillPrice,
		Commission:       o.Commission,
		SubmittedAt:      o.SubmittedAt,
		FilledAt:         o.FilledAt,
		CancelledAt:      o.CancelledAt,
	}
}

// HandleListOrders returns an account's orders, newest first.
func (h *TradingHandlers) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	limit := queryInt(r, "limit", 100)

	list, err := h.orders.ListByAccount(accountID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to list orders")
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

type createOrderRequest struct {
	AccountID string           `json:"account_id"`
	Symbol    string           `json:"symbol"`
	Side      string           `json:"side"`
	OrderType string           `json:"order_type"`
	Quantity  decimal.Decimal  `json:"quantity"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	StopPrice *decimal.Decimal `json:"stop_price,omitempty"`
}

// HandleCreateOrder submits an order. The fill happens asynchronously in the
// order matcher, so the response is always PENDING.
func (h *TradingHandlers) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.accounts.GetByID(req.AccountID)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", req.AccountID).Msg("Failed to get account")
		writeError(w, http.StatusInternalServerError, "failed to get account")
		return
	}
	if acct == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	inst, err := h.instruments.EnsureExists(req.Symbol)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o := &orders.Order{
		AccountID: req.AccountID,
		SymbolID:  inst.ID,
		OrderType: req.OrderType,
		Side:      req.Side,
		Quantity:  req.Quantity,
		Price:     req.Price,
		StopPrice: req.StopPrice,
	}
	if err := h.orders.Create(o); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.log.Info().
		Str("order_id", o.OrderID).
		Str("account_id", o.AccountID).
		Str("symbol", inst.Symbol).
		Str("side", o.Side).
		Msg("Order submitted via API")

	writeJSON(w, http.StatusCreated, toOrderResponse(*o))
}

type tradeResponse struct {
	ID          int64           `json:"id"`
	AccountID   string          `json:"account_id"`
	SymbolID    int64           `json:"symbol_id"`
	StrategyID  *int64          `json:"strategy_id,omitempty"`
	Side        string          `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	GrossPnL    decimal.Decimal `json:"gross_pnl"`
	NetPnL      decimal.Decimal `json:"net_pnl"`
	PnLPercent  *float64        `json:"pnl_percent,omitempty"`
	Commission  decimal.Decimal `json:"commission"`
	EntryTime   *time.Time      `json:"entry_time,omitempty"`
	ExitTime    time.Time       `json:"exit_time"`
	HoldingDays *int64          `json:"holding_days,omitempty"`
}

// HandleListTrades returns an account's realized round trips, newest first.
func (h *TradingHandlers) HandleListTrades(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	limit := queryInt(r, "limit", 100)

	list, err := h.trades.ListByAccount(accountID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to list trades")
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	out := make([]tradeResponse, 0, len(list))
	for _, t := range list {
		out = append(out, tradeResponse{
			ID:          t.ID,
			AccountID:   t.AccountID,
			SymbolID:    t.SymbolID,
			StrategyID:  t.StrategyID,
			Side:        t.Side,
			Quantity:    t.Quantity,
			EntryPrice:  t.EntryPrice,
			ExitPrice:   t.ExitPrice,
			GrossPnL:    t.GrossPnL,
			NetPnL:      t.NetPnL,
			PnLPercent:  t.PnLPercent,
			Commission:  t.Commission,
			EntryTime:   t.EntryTime,
			ExitTime:    t.ExitTime,
			HoldingDays: t.HoldingDays,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type signalResponse struct {
	ID             int64                  `json:"id"`
	SymbolID       int64                  `json:"symbol_id"`
	StrategyID     *int64                 `json:"strategy_id,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	SignalType     string                 `json:"signal_type"`
	Strength       float64                `json:"strength"`
	Price          *float64               `json:"price,omitempty"`
	Confidence     float64                `json:"confidence"`
	IndicatorsUsed map[string]interface{} `json:"indicators_used,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
}

// HandleListSignals returns recent signals, optionally filtered by
// ?symbol=. An unknown symbol yields an empty list.
func (h *TradingHandlers) HandleListSignals(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	symbol := r.URL.Query().Get("symbol")

	var list []signals.Signal
	var err error
	if symbol != "" {
		inst, lookupErr := h.instruments.Lookup(symbol)
		if lookupErr != nil {
			h.log.Error().Err(lookupErr).Str("symbol", symbol).Msg("Failed to look up instrument")
			writeError(w, http.StatusInternalServerError, "failed to look up instrument")
			return
		}
		if inst == nil {
			writeJSON(w, http.StatusOK, []signalResponse{})
			return
		}
		list, err = h.signals.ListBySymbol(inst.ID, limit)
	} else {
		list, err = h.signals.ListRecent(limit)
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list signals")
		writeError(w, http.StatusInternalServerError, "failed to list signals")
		return
	}

	out := make([]signalResponse, 0, len(list))
	for _, sig := range list {
		out = append(out, signalResponse{
			ID:             sig.ID,
			SymbolID:       sig.SymbolID,
			StrategyID:     sig.StrategyID,
			Timestamp:      sig.Timestamp,
			SignalType:     sig.SignalType,
			Strength:       sig.Strength,
			Price:          sig.Price,
			Confidence:     sig.Confidence,
			IndicatorsUsed: sig.IndicatorsUsed,
			Reason:         sig.Reason,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type instrumentResponse struct {
	ID           int64    `json:"id"`
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	Exchange     string   `json:"exchange,omitempty"`
	Currency     string   `json:"currency"`
	IsActive     bool     `json:"is_active"`
	WatchList    bool     `json:"watch_list"`
	OverallScore *float64 `json:"overall_score,omitempty"`
	RiskScore    *float64 `json:"risk_score,omitempty"`
	SectorBucket string   `json:"sector_bucket,omitempty"`
}

func toInstrumentResponse(i instruments.Instrument) instrumentResponse {
	return instrumentResponse{
		ID:           i.ID,
		Symbol:       i.Symbol,
		Name:         i.Name,
		Exchange:     i.Exchange,
		Currency:     i.Currency,
		IsActive:     i.IsActive,
		WatchList:    i.WatchList,
		OverallScore: i.OverallScore,
		RiskScore:    i.RiskScore,
		SectorBucket: i.SectorBucket,
	}
}

// HandleListWatchlist returns watchlisted instruments.
func (h *TradingHandlers) HandleListWatchlist(w http.ResponseWriter, r *http.Request) {
	list, err := h.instruments.Watchlist()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list watchlist")
		writeError(w, http.StatusInternalServerError, "failed to list watchlist")
		return
	}

	out := make([]instrumentResponse, 0, len(list))
	for _, i := range list {
		out = append(out, toInstrumentResponse(i))
	}
	writeJSON(w, http.StatusOK, out)
}

type addWatchlistRequest struct {
	Symbol string `json:"symbol"`
}

// HandleAddToWatchlist creates or flags an instrument on the watchlist.
func (h *TradingHandlers) HandleAddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var req addWatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inst, err := h.instruments.AddToWatchlist(req.Symbol)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toInstrumentResponse(*inst))
}
