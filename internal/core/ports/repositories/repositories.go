package repositories

// RepositoryProvider bundles the repositories the service layer needs.
type RepositoryProvider struct {
	AccountRepo     AccountRepositoryFacade
	TransactionRepo TransactionRepository
	IntentRepo      IntentRepository
}
