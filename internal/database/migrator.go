package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Migrator handles schema initialization and raw SQL migrations.
type Migrator struct {
	db  *DB
	log zerolog.Logger
}

// NewMigrator creates a migrator bound to a database.
func NewMigrator(db *DB, log zerolog.Logger) *Migrator {
	return &Migrator{
		db:  db,
		log: log.With().Str("component", "migrator").Logger(),
	}
}

// Init applies the built-in schema. Safe to run at every startup.
func (m *Migrator) Init() error {
	err := WithTransaction(m.db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(Schema); err != nil {
			errStr := err.Error()
			if strings.Contains(errStr, "duplicate column") ||
				strings.Contains(errStr, "already exists") {
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	m.log.Info().Str("db", m.db.Name()).Msg("Schema initialized")
	return nil
}

// Status verifies that every required table exists. Returns the missing
// table names, if any.
func (m *Migrator) Status() ([]string, error) {
	var missing []string
	for _, table := range RequiredTables {
		var name string
		err := m.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			missing = append(missing, table)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check table %s: %w", table, err)
		}
	}
	return missing, nil
}

// RunSQLFile executes the statements of a raw SQL migration file, skipping
// statements already applied (existing tables, existing columns).
func (m *Migrator) RunSQLFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	statements := splitStatements(string(content))
	applied := 0
	for _, stmt := range statements {
		skip, err := m.shouldSkip(stmt)
		if err != nil {
			return err
		}
		if skip {
			m.log.Debug().Str("statement", truncate(stmt, 80)).Msg("Skipping already-applied statement")
			continue
		}
		if _, err := m.db.Exec(stmt); err != nil {
			errStr := err.Error()
			if strings.Contains(errStr, "duplicate column") ||
				strings.Contains(errStr, "already exists") {
				continue
			}
			return fmt.Errorf("migration statement failed: %w", err)
		}
		applied++
	}

	m.log.Info().
		Str("file", filepath.Base(path)).
		Int("applied", applied).
		Int("total", len(statements)).
		Msg("Migration file executed")
	return nil
}

// RunAll executes every *.sql file in dir in lexical order (001_, 002_, ...).
func (m *Migrator) RunAll(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migration directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return fmt.Errorf("no migration files found in %s", dir)
	}

	for _, f := range files {
		if err := m.RunSQLFile(filepath.Join(dir, f)); err != nil {
			return fmt.Errorf("migration %s failed: %w", f, err)
		}
	}
	return nil
}

// shouldSkip checks whether a statement would fail against the existing schema.
func (m *Migrator) shouldSkip(stmt string) (bool, error) {
	upper := strings.ToUpper(stmt)

	// IF NOT EXISTS forms are already idempotent.
	if strings.Contains(upper, "IF NOT EXISTS") {
		return false, nil
	}

	if strings.Contains(upper, "ALTER TABLE") && strings.Contains(upper, "ADD COLUMN") {
		table, column, ok := parseAddColumn(stmt)
		if !ok {
			return false, nil
		}
		exists, err := m.columnExists(table, column)
		if err != nil {
			return false, err
		}
		return exists, nil
	}

	if strings.HasPrefix(upper, "CREATE TABLE") {
		table, ok := parseCreateTable(stmt)
		if !ok {
			return false, nil
		}
		var name string
		err := m.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to check table %s: %w", table, err)
		}
		return true, nil
	}

	return false, nil
}

func (m *Migrator) columnExists(table, column string) (bool, error) {
	rows, err := m.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("failed to scan column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// splitStatements breaks SQL text into individual statements, dropping
// comments and blank lines.
func splitStatements(content string) []string {
	var statements []string
	var current []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
			if line == "" {
				continue
			}
		}

		if strings.HasSuffix(line, ";") {
			line = strings.TrimSpace(strings.TrimSuffix(line, ";"))
			if line != "" {
				current = append(current, line)
			}
			stmt := strings.Join(current, " ")
			if strings.TrimSpace(stmt) != "" {
				statements = append(statements, stmt)
			}
			current = nil
			continue
		}

		current = append(current, line)
	}

	if len(current) > 0 {
		stmt := strings.Join(current, " ")
		if strings.TrimSpace(stmt) != "" {
			statements = append(statements, stmt)
		}
	}

	return statements
}

func parseAddColumn(stmt string) (table, column string, ok bool) {
	fields := strings.Fields(stmt)
	for i, f := range fields {
		if strings.EqualFold(f, "TABLE") && i+1 < len(fields) {
			table = fields[i+1]
		}
		if strings.EqualFold(f, "COLUMN") && i+1 < len(fields) {
			column = fields[i+1]
		}
	}
	return table, column, table != "" && column != ""
}

func parseCreateTable(stmt string) (string, bool) {
	fields := strings.Fields(stmt)
	for i, f := range fields {
		if strings.EqualFold(f, "TABLE") && i+1 < len(fields) {
			table := strings.TrimSuffix(fields[i+1], "(")
			if idx := strings.Index(table, "("); idx >= 0 {
				table = table[:idx]
			}
			return table, table != ""
		}
	}
	return "", false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
