// Package syslog persists worker and service events to the system_logs
// table, alongside the structured logger.
package syslog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Log levels.
const (
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// Entry is one persisted log row.
type Entry struct {
	ID        int64
	Level     string
	Module    string
	Message   string
	Details   string
	AccountID string
	Timestamp time.Time
}

// Repository handles system log database operations. Append-only.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new system log repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "system_logs").Logger(),
	}
}

// Log appends an entry. details and accountID may be empty.
func (r *Repository) Log(level, module, message, details, accountID string) error {
	var detailsArg, accountArg interface{}
	if details != "" {
		detailsArg = details
	}
	if accountID != "" {
		accountArg = accountID
	}

	_, err := r.db.Exec(`
		INSERT INTO system_logs (level, module, message, details, account_id, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, level, module, message, detailsArg, accountArg, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write system log: %w", err)
	}
	return nil
}

// Info logs an INFO entry, swallowing persistence errors.
func (r *Repository) Info(module, message string) {
	if err := r.Log(LevelInfo, module, message, "", ""); err != nil {
		r.log.Warn().Err(err).Msg("Failed to persist info log")
	}
}

// Warning logs a WARNING entry, swallowing persistence errors.
func (r *Repository) Warning(module, message string) {
	if err := r.Log(LevelWarning, module, message, "", ""); err != nil {
		r.log.Warn().Err(err).Msg("Failed to persist warning log")
	}
}

// Error logs an ERROR entry with optional details, swallowing persistence
// errors.
func (r *Repository) Error(module, message, details string) {
	if err := r.Log(LevelError, module, message, details, ""); err != nil {
		r.log.Warn().Err(err).Msg("Failed to persist error log")
	}
}

// Recent returns the newest entries.
func (r *Repository) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT id, level, module, message, details, account_id, timestamp
		FROM system_logs ORDER BY timestamp DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list system logs: %w", err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		var details, accountID sql.NullString
		var ts string
		if err := rows.Scan(&e.ID, &e.Level, &e.Module, &e.Message, &details, &accountID, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan system log: %w", err)
		}
		e.Details = details.String
		e.AccountID = accountID.String
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating system logs: %w", err)
	}
	return result, nil
}

// Prune deletes entries older than the retention window and returns the
// number removed.
func (r *Repository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	res, err := r.db.Exec("DELETE FROM system_logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune system logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
