package domain

import (
	"github.com/shopspring/decimal"
)

// Account represents a cardholder account in the shared ledger.
// Balance is a precise decimal and must never be negative at any point
// observable outside the ledger's per-account lock.
type Account struct {
	AccountID      string          `json:"accountID"` // Also the card serial presented at the machine
	PINHash        string          `json:"-"`         // bcrypt hash, never serialized
	Balance        decimal.Decimal `json:"balance"`
	DailyWithdrawn decimal.Decimal `json:"dailyWithdrawn"` // Cumulative withdrawals for WithdrawnDay
	WithdrawnDay   string          `json:"withdrawnDay"`   // UTC date (2006-01-02) the daily total applies to
	Active         bool            `json:"active"`
	AuditFields
}
