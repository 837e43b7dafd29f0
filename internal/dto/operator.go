package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/core/domain"
)

// CreateAccountRequest provisions a new cardholder account.
type CreateAccountRequest struct {
	AccountID      string          `json:"accountID" binding:"required"`
	PIN            string          `json:"pin" binding:"required,numeric,min=4,max=6"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
}

// AccountResponse is the operator view of an account. The PIN hash is never
// exposed.
type AccountResponse struct {
	AccountID      string          `json:"accountID"`
	Balance        decimal.Decimal `json:"balance"`
	DailyWithdrawn decimal.Decimal `json:"dailyWithdrawn"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"createdAt"`
	CreatedBy      string          `json:"createdBy"`
}

// ToAccountResponse converts a domain.Account to its operator DTO.
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:      acc.AccountID,
		Balance:        acc.Balance,
		DailyWithdrawn: acc.DailyWithdrawn,
		Active:         acc.Active,
		CreatedAt:      acc.CreatedAt,
		CreatedBy:      acc.CreatedBy,
	}
}

// LoadCashRequest replenishes one denomination.
type LoadCashRequest struct {
	Denomination int64 `json:"denomination" binding:"required,gt=0"`
	Count        int   `json:"count" binding:"required,gt=0"`
}

// InventoryResponse reports the machine's cash state.
type InventoryResponse struct {
	MachineID string          `json:"machineID"`
	Counts    map[int64]int   `json:"counts"`
	RejectBin int             `json:"rejectBin"`
	Total     decimal.Decimal `json:"total"`
}

// LoginRequest authenticates an operator.
type LoginRequest struct {
	OperatorID string `json:"operatorID" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
}

// LoginResponse carries the minted JWT.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
