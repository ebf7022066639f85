package strategies

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles strategy database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new strategies repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "strategies").Logger(),
	}
}

// Create inserts a strategy and returns its id.
func (r *Repository) Create(s *Strategy) (int64, error) {
	if s.Category == "" {
		s.Category = "Long"
	}
	if s.StockListMode == "" {
		s.StockListMode = StockListManual
	}
	params, err := s.Parameters.Encode()
	if err != nil {
		return 0, fmt.Errorf("failed to encode strategy parameters: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := r.db.Exec(`
		INSERT INTO strategies (name, description, category, strategy_type,
			stock_list_mode, stock_list, stock_list_ai_prompt, parameters,
			is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.Name, s.Description, s.Category, s.StrategyType, s.StockListMode,
		s.StockList, s.StockListAIPrompt, params, boolToInt(s.IsActive), now, now)
	if err != nil {
		return 0, fmt.Errorf("failed to create strategy %s: %w", s.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get strategy id: %w", err)
	}
	s.ID = id
	return id, nil
}

// GetByID returns the strategy with the given id, or nil when absent.
func (r *Repository) GetByID(id int64) (*Strategy, error) {
	row := r.db.QueryRow(`
		SELECT id, name, description, category, strategy_type, stock_list_mode,
			stock_list, stock_list_ai_prompt, parameters, is_active, created_at, updated_at
		FROM strategies WHERE id = ?
	`, id)

	s, err := scanStrategy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy %d: %w", id, err)
	}
	return s, nil
}

// GetByName returns the strategy with the given name, or nil when absent.
func (r *Repository) GetByName(name string) (*Strategy, error) {
	row := r.db.QueryRow(`
		SELECT id, name, description, category, strategy_type, stock_list_mode,
			stock_list, stock_list_ai_prompt, parameters, is_active, created_at, updated_at
		FROM strategies WHERE name = ?
	`, name)

	s, err := scanStrategy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get strategy %s: %w", name, err)
	}
	return s, nil
}

// UpdateStockList stores the resolved stock list so Manual mode can fall
// back to the last AI-generated universe.
func (r *Repository) UpdateStockList(id int64, stockList string) error {
	_, err := r.db.Exec(`
		UPDATE strategies SET stock_list = ?, updated_at = ? WHERE id = ?
	`, stockList, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update stock list for strategy %d: %w", id, err)
	}
	return nil
}

func scanStrategy(row interface{ Scan(...interface{}) error }) (*Strategy, error) {
	var s Strategy
	var description, strategyType, stockList, aiPrompt, params sql.NullString
	var isActive int
	var createdAt, updatedAt string

	err := row.Scan(&s.ID, &s.Name, &description, &s.Category, &strategyType,
		&s.StockListMode, &stockList, &aiPrompt, &params, &isActive,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	s.Description = description.String
	s.StrategyType = strategyType.String
	s.StockList = stockList.String
	s.StockListAIPrompt = aiPrompt.String
	s.Parameters = ParseParams(params.String)
	s.IsActive = isActive != 0
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
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
