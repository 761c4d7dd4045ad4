package repositories

import (
	"context"
	"time"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
)

// AccountingRepository is the accounting-store collaborator: candidate
// expense/invoice queries inside a date window plus the reconciled-flag
// writes the matcher keeps in sync. Invoices carry no flag here; their
// payment status is owned elsewhere.
type AccountingRepository interface {
	FindUnreconciledExpenses(ctx context.Context, businessID string, from, to time.Time) ([]domain.Expense, error)
	FindOpenInvoices(ctx context.Context, businessID string, from, to time.Time) ([]domain.Invoice, error)
	FindExpenseByID(ctx context.Context, businessID, expenseID string) (*domain.Expense, error)
	FindInvoiceByID(ctx context.Context, businessID, invoiceID string) (*domain.Invoice, error)
	SetExpenseReconciled(ctx context.Context, businessID, expenseID string, reconciled bool) error
}
