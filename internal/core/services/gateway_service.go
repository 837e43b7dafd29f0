package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankbank/atm-core/internal/core/domain"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/internal/middleware"
)

// DecisionFunc is the underlying authorization call to the bank. It may take
// arbitrarily long; the gateway service bounds it with the configured deadline.
type DecisionFunc func(ctx context.Context, accountID string, amount decimal.Decimal) (domain.AuthDecision, error)

// gatewayService wraps the remote bank authorization call with a deadline.
// An unresponsive bank resolves to AuthTimeout rather than an error: the
// coordinator treats a timeout like a decline for rollback purposes, but it
// is logged distinctly here.
type gatewayService struct {
	decide  DecisionFunc
	timeout time.Duration
}

// NewGatewayService creates an authorization gateway with the given deadline.
func NewGatewayService(decide DecisionFunc, timeout time.Duration) portssvc.GatewayAuthorizer {
	return &gatewayService{decide: decide, timeout: timeout}
}

// Ensure gatewayService implements the GatewayAuthorizer interface.
var _ portssvc.GatewayAuthorizer = (*gatewayService)(nil)

// ApproveAll is a DecisionFunc that approves every request. Used by the
// standalone simulator; a production deployment supplies the real bank call.
func ApproveAll(ctx context.Context, accountID string, amount decimal.Decimal) (domain.AuthDecision, error) {
	return domain.AuthApproved, nil
}

func (s *gatewayService) Authorize(ctx context.Context, accountID string, amount decimal.Decimal) (domain.AuthDecision, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		decision domain.AuthDecision
		err      error
	}
	ch := make(chan result, 1)
	go func() {
		decision, err := s.decide(ctx, accountID, amount)
		ch <- result{decision, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			logger.Warn("Authorization call failed",
				slog.String("account_id", accountID),
				slog.String("error", res.err.Error()))
			return domain.AuthDeclined, res.err
		}
		logger.Info("Authorization decision received",
			slog.String("account_id", accountID),
			slog.String("decision", string(res.decision)))
		return res.decision, nil
	case <-ctx.Done():
		logger.Warn("Authorization timed out",
			slog.String("account_id", accountID),
			slog.String("amount", amount.String()),
			slog.Duration("deadline", s.timeout))
		return domain.AuthTimeout, nil
	}
}
