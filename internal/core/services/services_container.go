package services

import (
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
	"github.com/reconlab/bank_recon_app/pkg/config"
)

// NewServiceContainer creates a new service container with properly
// initialized dependencies. The document parser and field encryptor are
// external collaborators and arrive pre-built from main.
func NewServiceContainer(
	cfg *config.Config,
	repos portsrepo.RepositoryProvider,
	docParser portssvc.DocumentParser,
	encryptor portssvc.FieldEncryptor,
) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Import = NewImportService(
		repos.ImportRepo,
		repos.TransactionRepo,
		docParser,
		encryptor,
		cfg.ImportStaleAfter,
	)
	container.Transaction = NewTransactionService(repos.TransactionRepo)
	container.Reconciliation = NewReconciliationService(repos.TransactionRepo, repos.AccountingRepo)

	return container
}
