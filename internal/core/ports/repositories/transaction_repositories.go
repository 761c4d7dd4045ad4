package repositories

import (
	"context"
	"time"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
)

// ListTransactionsFilter narrows a tenant-scoped transaction listing.
type ListTransactionsFilter struct {
	ImportID  string
	Status    domain.ReconciliationStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	NextToken string
}

// TransactionRepository defines persistence operations for bank transactions.
type TransactionRepository interface {
	// SaveTransactions bulk-inserts one batch of transactions.
	SaveTransactions(ctx context.Context, txns []domain.BankTransaction) error
	FindTransactionByID(ctx context.Context, businessID, transactionID string) (*domain.BankTransaction, error)
	ListTransactions(ctx context.Context, businessID string, filter ListTransactionsFilter) ([]domain.BankTransaction, string, error)
	// UpdateMatchState persists the reconciliation fields of txn, guarded by
	// the status the caller last read. A concurrent change surfaces as a
	// BusinessError with code INVALID_TRANSITION.
	UpdateMatchState(ctx context.Context, txn *domain.BankTransaction, expectedStatus domain.ReconciliationStatus) error
	CountMatchedByImport(ctx context.Context, businessID, importID string) (int, error)
	// DeleteByImport removes every transaction belonging to the import.
	DeleteByImport(ctx context.Context, businessID, importID string) error
}
