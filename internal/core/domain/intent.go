package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DispenseIntent records that a withdrawal is about to debit the ledger and
// hand cash to the cardholder. It is persisted before the debit and cleared
// only after the dispense is confirmed or a compensating credit is applied,
// so a restart between the two can never leave a debited-but-undispensed
// amount unresolved.
type DispenseIntent struct {
	TransactionID string          `json:"transactionID"`
	AccountID     string          `json:"accountID"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedAt     time.Time       `json:"createdAt"`
}
