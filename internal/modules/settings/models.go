// Package settings stores named configuration documents: vendor credentials,
// AI stock-list cache entries, and operator-tunable knobs.
package settings

import "time"

// Categories with dedicated behaviour.
const (
	CategoryAICache = "ai_cache"
)

// Setting is one named document. Parameters is free-form text, typically a
// JSON object.
type Setting struct {
	ID         int64
	Name       string
	Parameters string
	Category   string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
