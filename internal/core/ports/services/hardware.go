package services

import (
	"context"

	"github.com/bankbank/atm-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CardReader is the physical card-reader driver boundary. EjectCard and
// RetainCard are each called exactly once per session, at a terminal state.
type CardReader interface {
	EjectCard(sessionID string)
	RetainCard(sessionID string)
}

// Display is the terminal rendering boundary. Show is fire-and-forget and
// must never block the calling transaction.
type Display interface {
	Show(sessionID string, message string)
}

// CashUnit is the dispenser motor-control boundary. DispenseBills returns nil
// only when the full plan has been physically handed out; any error means no
// bill reached the cardholder and the staged bills are still in the machine.
type CashUnit interface {
	DispenseBills(ctx context.Context, plan domain.DenominationPlan) error
}

// DepositSlot is the deposit-accepting hardware boundary. Accept validates
// the inserted currency and returns an error when it cannot; no ledger credit
// happens in that case.
type DepositSlot interface {
	Accept(ctx context.Context, amount decimal.Decimal) error
}
