package accounts

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository handles account database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new accounts repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "accounts").Logger(),
	}
}

// Create inserts a new account.
func (r *Repository) Create(a *Account) error {
	if a.AccountType == "" {
		a.AccountType = "virtual"
	}
	if a.Currency == "" {
		a.Currency = "USD"
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO accounts (account_id, account_name, account_type, cash_balance,
			currency, status, description, strategy_id, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.AccountID, a.AccountName, a.AccountType, a.CashBalance, a.Currency,
		a.Status, a.Description, a.StrategyID, boolToInt(a.IsActive),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID returns the account with the given id, or nil when absent.
func (r *Repository) GetByID(accountID string) (*Account, error) {
	row := r.db.QueryRow(`
		SELECT account_id, account_name, account_type, cash_balance, currency,
			status, description, strategy_id, is_active, created_at, updated_at
		FROM accounts WHERE account_id = ?
	`, accountID)

	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	return a, nil
}

// List returns all accounts; with activeOnly set, soft-deleted rows are skipped.
func (r *Repository) List(activeOnly bool) ([]Account, error) {
	query := `
		SELECT account_id, account_name, account_type, cash_balance, currency,
			status, description, strategy_id, is_active, created_at, updated_at
		FROM accounts`
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY created_at"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var result []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return result, nil
}

// ActiveTrading returns accounts eligible for the trading bot: not
// soft-deleted, status active, and bound to a strategy.
func (r *Repository) ActiveTrading() ([]Account, error) {
	rows, err := r.db.Query(`
		SELECT account_id, account_name, account_type, cash_balance, currency,
			status, description, strategy_id, is_active, created_at, updated_at
		FROM accounts
		WHERE is_active = 1 AND status = ? AND strategy_id IS NOT NULL
		ORDER BY created_at
	`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list trading accounts: %w", err)
	}
	defer rows.Close()

	var result []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return result, nil
}

// UpdateCashBalanceTx sets the cash balance inside an open transaction.
// Used by the order matcher so cash and position mutations commit together.
func (r *Repository) UpdateCashBalanceTx(tx *sql.Tx, accountID string, balance decimal.Decimal) error {
	res, err := tx.Exec(`
		UPDATE accounts SET cash_balance = ?, updated_at = ? WHERE account_id = ?
	`, balance, time.Now().UTC().Format(time.RFC3339), accountID)
	if err != nil {
		return fmt.Errorf("failed to update cash balance for %s: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("account %s not found", accountID)
	}
	return nil
}

// SoftDelete flags an account as deleted without removing its history.
func (r *Repository) SoftDelete(accountID string) error {
	_, err := r.db.Exec(`
		UPDATE accounts SET is_active = 0, updated_at = ? WHERE account_id = ?
	`, time.Now().UTC().Format(time.RFC3339), accountID)
	if err != nil {
		return fmt.Errorf("failed to soft-delete account %s: %w", accountID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var a Account
	var description sql.NullString
	var strategyID sql.NullInt64
	var isActive int
	var createdAt, updatedAt string

	err := row.Scan(&a.AccountID, &a.AccountName, &a.AccountType, &a.CashBalance,
		&a.Currency, &a.Status, &description, &strategyID, &isActive,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	a.Description = description.String
	if strategyID.Valid {
		a.StrategyID = &strategyID.Int64
	}
	a.IsActive = isActive != 0
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
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
