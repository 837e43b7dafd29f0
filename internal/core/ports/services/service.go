package services

// ServiceContainer holds all the core services for dependency injection.
type ServiceContainer struct {
	Ledger      LedgerSvcFacade
	Dispenser   DispenserSvcFacade
	Gateway     GatewayAuthorizer
	Sessions    SessionSvcFacade
	Coordinator CoordinatorSvcFacade
}
