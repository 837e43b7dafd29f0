package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/core/domain"
)

// InsertCardRequest opens a new cardholder session.
type InsertCardRequest struct {
	CardNumber string `json:"cardNumber" binding:"required"`
}

// EnterPINRequest submits the PIN for the session.
type EnterPINRequest struct {
	PIN string `json:"pin" binding:"required,numeric,min=4,max=6"`
}

// AmountRequest carries a decimal amount for withdraw/deposit operations.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// TransferRequest carries a transfer target and amount.
type TransferRequest struct {
	TargetAccountID string          `json:"targetAccountID" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
}

// ChangePINRequest carries the old and new PIN.
type ChangePINRequest struct {
	OldPIN string `json:"oldPIN" binding:"required,numeric,min=4,max=6"`
	NewPIN string `json:"newPIN" binding:"required,numeric,min=4,max=6"`
}

// SessionResponse is the externally visible session snapshot.
type SessionResponse struct {
	SessionID      string              `json:"sessionID"`
	State          domain.SessionState `json:"state"`
	FailedPINCount int                 `json:"failedPINCount"`
	CardEjected    bool                `json:"cardEjected"`
	CardRetained   bool                `json:"cardRetained"`
	Deadline       time.Time           `json:"deadline"`
}

// ToSessionResponse converts a domain.CardSession to its DTO.
func ToSessionResponse(sess *domain.CardSession) SessionResponse {
	return SessionResponse{
		SessionID:      sess.SessionID,
		State:          sess.State,
		FailedPINCount: sess.FailedPINCount,
		CardEjected:    sess.CardEjected,
		CardRetained:   sess.CardRetained,
		Deadline:       sess.Deadline,
	}
}
