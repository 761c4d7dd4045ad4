package repositories

// RepositoryProvider holds all repository interfaces needed by services.
// It keeps the service container wiring independent of the storage adapter.
type RepositoryProvider struct {
	ImportRepo      ImportRepository
	TransactionRepo TransactionRepository
	AccountingRepo  AccountingRepository
}
