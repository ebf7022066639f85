// Package accounts manages virtual brokerage accounts.
package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// Account is a virtual brokerage account. Cash is mutated only by the order
// matcher; accounts are soft-deleted, never removed.
type Account struct {
	AccountID   string
	AccountName string
	AccountType string
	CashBalance decimal.Decimal
	Currency    string
	Status      string
	Description string
	StrategyID  *int64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
