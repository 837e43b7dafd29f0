package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/core/domain"
)

// TransactionResponse mirrors a terminal-status transaction record.
type TransactionResponse struct {
	TransactionID   string                   `json:"transactionID"`
	Type            domain.TransactionType   `json:"type"`
	Amount          decimal.Decimal          `json:"amount"`
	SourceAccountID string                   `json:"sourceAccountID"`
	TargetAccountID string                   `json:"targetAccountID,omitempty"`
	Status          domain.TransactionStatus `json:"status"`
	Detail          string                   `json:"detail,omitempty"`
	CreatedAt       time.Time                `json:"createdAt"`
}

// ToTransactionResponse converts a domain.TransactionRecord to its DTO.
func ToTransactionResponse(rec *domain.TransactionRecord) TransactionResponse {
	return TransactionResponse{
		TransactionID:   rec.TransactionID,
		Type:            rec.Type,
		Amount:          rec.Amount,
		SourceAccountID: rec.SourceAccountID,
		TargetAccountID: rec.TargetAccountID,
		Status:          rec.Status,
		Detail:          rec.Detail,
		CreatedAt:       rec.CreatedAt,
	}
}

// ToTransactionResponses converts a slice of records, preserving order.
func ToTransactionResponses(records []domain.TransactionRecord) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(records))
	for i := range records {
		out = append(out, ToTransactionResponse(&records[i]))
	}
	return out
}

// BalanceResponse carries an inquiry result.
type BalanceResponse struct {
	AccountID string          `json:"accountID"`
	Balance   decimal.Decimal `json:"balance"`
}
