package services

import (
	"context"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
)

const defaultListLimit = 50

// transactionService exposes tenant-scoped transaction reads.
type transactionService struct {
	txnRepo portsrepo.TransactionRepository
}

// NewTransactionService creates the transaction query service.
func NewTransactionService(txnRepo portsrepo.TransactionRepository) portssvc.TransactionSvcFacade {
	return &transactionService{txnRepo: txnRepo}
}

var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)

func (s *transactionService) GetTransaction(ctx context.Context, businessID, transactionID string) (*domain.BankTransaction, error) {
	return s.txnRepo.FindTransactionByID(ctx, businessID, transactionID)
}

func (s *transactionService) ListTransactions(ctx context.Context, businessID string, filter portsrepo.ListTransactionsFilter) ([]domain.BankTransaction, string, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return s.txnRepo.ListTransactions(ctx, businessID, filter)
}
