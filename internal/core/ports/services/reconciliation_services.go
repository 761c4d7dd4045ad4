package services

import (
	"context"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
)

// ReconciliationSvcFacade drives the per-transaction matching state machine
// and produces scored match candidates.
type ReconciliationSvcFacade interface {
	// Suggest queries nearby unreconciled accounting records and returns
	// candidates scoring at or above the floor, ranked descending.
	Suggest(ctx context.Context, businessID, transactionID string, limit int) ([]domain.MatchCandidate, error)
	Match(ctx context.Context, businessID, transactionID string, recordType domain.MatchRecordType, recordID string) (*domain.BankTransaction, error)
	Unmatch(ctx context.Context, businessID, transactionID string) (*domain.BankTransaction, error)
	Ignore(ctx context.Context, businessID, transactionID string) (*domain.BankTransaction, error)
}

// TransactionSvcFacade exposes tenant-scoped transaction reads.
type TransactionSvcFacade interface {
	GetTransaction(ctx context.Context, businessID, transactionID string) (*domain.BankTransaction, error)
	ListTransactions(ctx context.Context, businessID string, filter portsrepo.ListTransactionsFilter) ([]domain.BankTransaction, string, error)
}
