package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
)

// PgxAccountingRepository is the accounting-store collaborator backed by the
// expenses and invoices tables this deployment shares with the accounting
// system.
type PgxAccountingRepository struct {
	pool *pgxpool.Pool
}

// NewAccountingRepository creates a new accounting-store adapter.
func NewAccountingRepository(pool *pgxpool.Pool) portsrepo.AccountingRepository {
	return &PgxAccountingRepository{pool: pool}
}

func (r *PgxAccountingRepository) FindUnreconciledExpenses(ctx context.Context, businessID string, from, to time.Time) ([]domain.Expense, error) {
	query := `
		SELECT expense_id, business_id, description, counterparty, amount, expense_date, reconciled
		FROM expenses
		WHERE business_id = $1 AND reconciled = FALSE AND expense_date BETWEEN $2 AND $3
		ORDER BY expense_date;
	`
	rows, err := r.pool.Query(ctx, query, businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query unreconciled expenses: %w", err)
	}
	defer rows.Close()

	expenses := []domain.Expense{}
	for rows.Next() {
		var expense domain.Expense
		if err := rows.Scan(
			&expense.ExpenseID,
			&expense.BusinessID,
			&expense.Description,
			&expense.Counterparty,
			&expense.Amount,
			&expense.ExpenseDate,
			&expense.Reconciled,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense row: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense rows: %w", err)
	}
	return expenses, nil
}

func (r *PgxAccountingRepository) FindOpenInvoices(ctx context.Context, businessID string, from, to time.Time) ([]domain.Invoice, error) {
	query := `
		SELECT invoice_id, business_id, description, counterparty, amount, invoice_date
		FROM invoices
		WHERE business_id = $1 AND open = TRUE AND invoice_date BETWEEN $2 AND $3
		ORDER BY invoice_date;
	`
	rows, err := r.pool.Query(ctx, query, businessID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query open invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		var invoice domain.Invoice
		if err := rows.Scan(
			&invoice.InvoiceID,
			&invoice.BusinessID,
			&invoice.Description,
			&invoice.Counterparty,
			&invoice.Amount,
			&invoice.InvoiceDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}
	return invoices, nil
}

func (r *PgxAccountingRepository) FindExpenseByID(ctx context.Context, businessID, expenseID string) (*domain.Expense, error) {
	query := `
		SELECT expense_id, business_id, description, counterparty, amount, expense_date, reconciled
		FROM expenses
		WHERE expense_id = $1 AND business_id = $2;
	`
	var expense domain.Expense
	err := r.pool.QueryRow(ctx, query, expenseID, businessID).Scan(
		&expense.ExpenseID,
		&expense.BusinessID,
		&expense.Description,
		&expense.Counterparty,
		&expense.Amount,
		&expense.ExpenseDate,
		&expense.Reconciled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find expense %s: %w", expenseID, err)
	}
	return &expense, nil
}

func (r *PgxAccountingRepository) FindInvoiceByID(ctx context.Context, businessID, invoiceID string) (*domain.Invoice, error) {
	query := `
		SELECT invoice_id, business_id, description, counterparty, amount, invoice_date
		FROM invoices
		WHERE invoice_id = $1 AND business_id = $2;
	`
	var invoice domain.Invoice
	err := r.pool.QueryRow(ctx, query, invoiceID, businessID).Scan(
		&invoice.InvoiceID,
		&invoice.BusinessID,
		&invoice.Description,
		&invoice.Counterparty,
		&invoice.Amount,
		&invoice.InvoiceDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find invoice %s: %w", invoiceID, err)
	}
	return &invoice, nil
}

func (r *PgxAccountingRepository) SetExpenseReconciled(ctx context.Context, businessID, expenseID string, reconciled bool) error {
	query := `UPDATE expenses SET reconciled = $1 WHERE expense_id = $2 AND business_id = $3;`
	tag, err := r.pool.Exec(ctx, query, reconciled, expenseID, businessID)
	if err != nil {
		return fmt.Errorf("failed to update reconciled flag for expense %s: %w", expenseID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
