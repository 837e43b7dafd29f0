package services

import (
	"context"

	"github.com/bankbank/atm-core/internal/core/domain"
	"github.com/shopspring/decimal"
)

// GatewayAuthorizer is the boundary to the remote authorizing bank. The call
// resolves within a configured deadline; an unresponsive bank yields
// domain.AuthTimeout, which callers treat like a decline for rollback
// purposes but log distinctly.
type GatewayAuthorizer interface {
	Authorize(ctx context.Context, accountID string, amount decimal.Decimal) (domain.AuthDecision, error)
}
