package services

import (
	portsrepo "github.com/bankbank/atm-core/internal/core/ports/repositories"
	portssvc "github.com/bankbank/atm-core/internal/core/ports/services"
	"github.com/bankbank/atm-core/pkg/config"
)

// Hardware bundles the physical collaborators of one machine.
type Hardware struct {
	CardReader  portssvc.CardReader
	Display     portssvc.Display
	CashUnit    portssvc.CashUnit
	DepositSlot portssvc.DepositSlot
}

// NewServiceContainer creates a new service container with properly
// initialized dependencies for one machine.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, hw Hardware, decide DecisionFunc) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Ledger = NewLedgerService(repos.AccountRepo, cfg.PerTransactionCap, cfg.DailyWithdrawalCap)
	container.Dispenser = NewDispenserService(hw.CashUnit, cfg.InitialCash, cfg.MaxDispenseRetries, cfg.MinimumCashThreshold)
	container.Gateway = NewGatewayService(decide, cfg.GatewayTimeout)
	container.Sessions = NewSessionService(container.Ledger, hw.CardReader, hw.Display, cfg.IdleTimeout, cfg.PinLockoutThreshold)
	container.Coordinator = NewCoordinatorService(
		container.Ledger,
		container.Dispenser,
		container.Gateway,
		hw.DepositSlot,
		repos.TransactionRepo,
		repos.IntentRepo,
		cfg.HistoryLimit,
	)

	return container
}
