package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the cardholder operation a record describes.
type TransactionType string

const (
	Withdrawal TransactionType = "WITHDRAWAL"
	Deposit    TransactionType = "DEPOSIT"
	Transfer   TransactionType = "TRANSFER"
	Inquiry    TransactionType = "INQUIRY"
)

// TransactionStatus is the lifecycle status of a transaction record.
// Committed, RolledBack and Rejected are terminal; a record is appended to
// the audit trail only once it reaches a terminal status and is never
// mutated afterward.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "PENDING"
	StatusAuthorized TransactionStatus = "AUTHORIZED"
	StatusCommitted  TransactionStatus = "COMMITTED"
	StatusRolledBack TransactionStatus = "ROLLED_BACK"
	StatusRejected   TransactionStatus = "REJECTED"
)

// IsTerminal reports whether the status closes the record.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCommitted || s == StatusRolledBack || s == StatusRejected
}

// TransactionRecord is one entry in the per-account audit trail.
type TransactionRecord struct {
	TransactionID   string            `json:"transactionID"`
	Type            TransactionType   `json:"type"`
	Amount          decimal.Decimal   `json:"amount"`
	SourceAccountID string            `json:"sourceAccountID"`
	TargetAccountID string            `json:"targetAccountID,omitempty"` // Transfers only
	Status          TransactionStatus `json:"status"`
	Detail          string            `json:"detail,omitempty"` // Rejection reason, distinct timeout note, etc.
	CreatedAt       time.Time         `json:"createdAt"`
}
