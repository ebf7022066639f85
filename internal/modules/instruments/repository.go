package instruments

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles instrument database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new instruments repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "instruments").Logger(),
	}
}

// Create inserts an instrument and returns its id. Symbols are stored
// uppercase.
func (r *Repository) Create(inst *Instrument) (int64, error) {
	inst.Symbol = strings.ToUpper(strings.TrimSpace(inst.Symbol))
	if inst.Currency == "" {
		inst.Currency = "USD"
	}
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := r.db.Exec(`
		INSERT INTO instruments (symbol, name, exchange, currency, is_active,
			watch_list, sector_bucket, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inst.Symbol, inst.Name, inst.Exchange, inst.Currency,
		boolToInt(inst.IsActive), boolToInt(inst.WatchList), inst.SectorBucket, now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create instrument %s: %w", inst.Symbol, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get instrument id: %w", err)
	}
	inst.ID = id
	return id, nil
}

// GetBySymbol returns the instrument for a symbol, or nil when absent.
func (r *Repository) GetBySymbol(symbol string) (*Instrument, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	row := r.db.QueryRow(selectColumns+" FROM instruments WHERE symbol = ?", symbol)

	inst, err := scanInstrument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument %s: %w", symbol, err)
	}
	return inst, nil
}

// GetByID returns the instrument with the given id, or nil when absent.
func (r *Repository) GetByID(id int64) (*Instrument, error) {
	row := r.db.QueryRow(selectColumns+" FROM instruments WHERE id = ?", id)

	inst, err := scanInstrument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument %d: %w", id, err)
	}
	return inst, nil
}

// ListActive returns all active instruments.
func (r *Repository) ListActive() ([]Instrument, error) {
	rows, err := r.db.Query(selectColumns + " FROM instruments WHERE is_active = 1 ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// ListWatchlist returns active instruments flagged for the watchlist.
func (r *Repository) ListWatchlist() ([]Instrument, error) {
	rows, err := r.db.Query(selectColumns + " FROM instruments WHERE is_active = 1 AND watch_list = 1 ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

// SetWatchlist flags or unflags an instrument on the watchlist.
func (r *Repository) SetWatchlist(id int64, flag bool) error {
	_, err := r.db.Exec(`
		UPDATE instruments SET watch_list = ?, updated_at = ? WHERE id = ?
	`, boolToInt(flag), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to set watchlist flag for %d: %w", id, err)
	}
	return nil
}

// UpdateScores stores precomputed overall/risk scores and sector bucket.
func (r *Repository) UpdateScores(id int64, overall, risk float64, sectorBucket string) error {
	_, err := r.db.Exec(`
		UPDATE instruments SET overall_score = ?, risk_score = ?, sector_bucket = ?,
			updated_at = ? WHERE id = ?
	`, overall, risk, sectorBucket, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update scores for %d: %w", id, err)
	}
	return nil
}

const selectColumns = `
	SELECT id, symbol, name, exchange, currency, is_active, watch_list,
		overall_score, risk_score, sector_bucket, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstrument(row rowScanner) (*Instrument, error) {
	var inst Instrument
	var name, exchange, sectorBucket sql.NullString
	var isActive, watchList int
	var overall, risk sql.NullFloat64
	var createdAt, updatedAt string

	err := row.Scan(&inst.ID, &inst.Symbol, &name, &exchange, &inst.Currency,
		&isActive, &watchList, &overall, &risk, &sectorBucket, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	inst.Name = name.String
	inst.Exchange = exchange.String
	inst.SectorBucket = sectorBucket.String
	inst.IsActive = isActive != 0
	inst.WatchList = watchList != 0
	if overall.Valid {
		inst.OverallScore = &overall.Float64
	}
	if risk.Valid {
		inst.RiskScore = &risk.Float64
	}
	inst.CreatedAt = parseTime(createdAt)
	inst.UpdatedAt = parseTime(updatedAt)
	return &inst, nil
}

func collect(rows *sql.Rows) ([]Instrument, error) {
	var result []Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		result = append(result, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instruments: %w", err)
	}
	return result, nil
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
