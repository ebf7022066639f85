package signals

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles trading signal database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new signals repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "signals").Logger(),
	}
}

// Create appends a signal. IndicatorsUsed is normalized before
// serialization so non-scalar values survive the round trip.
func (r *Repository) Create(s *Signal) error {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}

	var indicators sql.NullString
	if s.IndicatorsUsed != nil {
		data, err := json.Marshal(NormalizeIndicators(s.IndicatorsUsed))
		if err != nil {
			return fmt.Errorf("failed to serialize indicators: %w", err)
		}
		indicators = sql.NullString{String: string(data), Valid: true}
	}

	res, err := r.db.Exec(`
		INSERT INTO trading_signals (symbol_id, strategy_id, timestamp,
			signal_type, strength, price, confidence, indicators_used, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.SymbolID, s.StrategyID, s.Timestamp.UTC().Format(time.RFC3339),
		s.SignalType, s.Strength, s.Price, s.Confidence, indicators, s.Reason)
	if err != nil {
		return fmt.Errorf("failed to create signal for symbol %d: %w", s.SymbolID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get signal id: %w", err)
	}
	s.ID = id
	return nil
}

// ListBySymbol returns signals for a symbol, newest first.
func (r *Repository) ListBySymbol(symbolID int64, limit int) ([]Signal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT id, symbol_id, strategy_id, timestamp, signal_type, strength,
			price, confidence, indicators_used, reason
		FROM trading_signals
		WHERE symbol_id = ?
		ORDER BY timestamp DESC LIMIT ?
	`, symbolID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals for symbol %d: %w", symbolID, err)
	}
	defer rows.Close()
	return collect(rows)
}

// ListRecent returns the newest signals across all symbols.
func (r *Repository) ListRecent(limit int) ([]Signal, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT id, symbol_id, strategy_id, timestamp, signal_type, strength,
			price, confidence, indicators_used, reason
		FROM trading_signals
		ORDER BY timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent signals: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]Signal, error) {
	var result []Signal
	for rows.Next() {
		var s Signal
		var strategyID sql.NullInt64
		var ts string
		var price sql.NullFloat64
		var indicators, reason sql.NullString

		err := rows.Scan(&s.ID, &s.SymbolID, &strategyID, &ts, &s.SignalType,
			&s.Strength, &price, &s.Confidence, &indicators, &reason)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}

		if strategyID.Valid {
			s.StrategyID = &strategyID.Int64
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			s.Timestamp = t
		}
		if price.Valid {
			s.Price = &price.Float64
		}
		if indicators.Valid && indicators.String != "" {
			var doc map[string]interface{}
			if err := json.Unmarshal([]byte(indicators.String), &doc); err == nil {
				s.IndicatorsUsed = doc
			}
		}
		s.Reason = reason.String
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}
	return result, nil
}
