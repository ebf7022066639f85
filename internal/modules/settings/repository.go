package settings

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository handles settings database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new settings repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "settings").Logger(),
	}
}

// GetByName retrieves a setting by name. Returns nil if absent (not an
// error).
func (r *Repository) GetByName(name string) (*Setting, error) {
	row := r.db.QueryRow(`
		SELECT id, name, parameters, category, is_active, created_at, updated_at
		FROM settings WHERE name = ?
	`, name)

	var s Setting
	var parameters, category sql.NullString
	var isActive int
	var createdAt, updatedAt string

	err := row.Scan(&s.ID, &s.Name, &parameters, &category, &isActive, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %s: %w", name, err)
	}

	s.Parameters = parameters.String
	s.Category = category.String
	s.IsActive = isActive != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		s.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		s.UpdatedAt = t
	}
	return &s, nil
}

// Upsert inserts or replaces a setting by name. This is the concurrency-safe
// primitive the AI cache relies on.
func (r *Repository) Upsert(name, parameters, category string, active bool) error {
	now := time.Now().UTC().Format(time.RFC3339)
	activeInt := 0
	if active {
		activeInt = 1
	}

	_, err := r.db.Exec(`
		INSERT INTO settings (name, parameters, category, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			parameters = excluded.parameters,
			category = excluded.category,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`, name, parameters, category, activeInt, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", name, err)
	}
	return nil
}

// Delete removes a setting. Idempotent.
func (r *Repository) Delete(name string) error {
	_, err := r.db.Exec("DELETE FROM settings WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", name, err)
	}
	return nil
}

// APIKey extracts the "key" field from a credential setting's JSON
// parameters. Returns empty when the setting or field is missing.
func (r *Repository) APIKey(name string) (string, error) {
	s, err := r.GetByName(name)
	if err != nil {
		return "", err
	}
	if s == nil || s.Parameters == "" {
		return "", nil
	}

	var doc struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal([]byte(s.Parameters), &doc); err != nil {
		r.log.Warn().Err(err).Str("setting", name).Msg("Credential setting is not valid JSON")
		return "", nil
	}
	return doc.Key, nil
}
