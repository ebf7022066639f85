// Package instruments manages tradeable equity instruments.
package instruments

import "time"

// Instrument is a tradeable symbol. Rows are created lazily on first
// reference (orders, price fetch, AI list import); scores are populated by
// the scoring service.
type Instrument struct {
	ID           int64
	Symbol       string
	Name         string
	Exchange     string
	Currency     string
	IsActive     bool
	WatchList    bool
	OverallScore *float64
	RiskScore    *float64
	SectorBucket string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
