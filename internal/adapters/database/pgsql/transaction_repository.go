package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
	"github.com/reconlab/bank_recon_app/internal/utils/pagination"
)

// PgxTransactionRepository persists bank transactions. Description and
// reference pass through the field encryptor on the way in and out, so only
// ciphertext reaches the database.
type PgxTransactionRepository struct {
	pool      *pgxpool.Pool
	encryptor portssvc.FieldEncryptor
}

// NewTransactionRepository creates a new repository for bank transactions.
func NewTransactionRepository(pool *pgxpool.Pool, encryptor portssvc.FieldEncryptor) portsrepo.TransactionRepository {
	return &PgxTransactionRepository{pool: pool, encryptor: encryptor}
}

const transactionColumns = `transaction_id, import_id, business_id, transaction_date, description, reference, debit_amount, credit_amount, balance, status, matched_expense_id, matched_invoice_id, match_confidence, created_at, last_updated_at`

// SaveTransactions bulk-inserts one batch using pgx batching.
func (r *PgxTransactionRepository) SaveTransactions(ctx context.Context, txns []domain.BankTransaction) error {
	if len(txns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO bank_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	for _, txn := range txns {
		description, err := r.encryptor.Encrypt(txn.Description)
		if err != nil {
			return fmt.Errorf("failed to encrypt description for transaction %s: %w", txn.TransactionID, err)
		}
		reference := ""
		if txn.Reference != "" {
			reference, err = r.encryptor.Encrypt(txn.Reference)
			if err != nil {
				return fmt.Errorf("failed to encrypt reference for transaction %s: %w", txn.TransactionID, err)
			}
		}
		batch.Queue(query,
			txn.TransactionID,
			txn.ImportID,
			txn.BusinessID,
			txn.TransactionDate,
			description,
			reference,
			txn.DebitAmount,
			txn.CreditAmount,
			txn.Balance,
			txn.Status,
			txn.MatchedExpenseID,
			txn.MatchedInvoiceID,
			txn.MatchConfidence,
			txn.CreatedAt,
			txn.LastUpdatedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to execute transaction insert batch: %w", err)
	}
	return nil
}

func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, businessID, transactionID string) (*domain.BankTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM bank_transactions WHERE transaction_id = $1 AND business_id = $2;`
	txn, err := r.scanTransaction(r.pool.QueryRow(ctx, query, transactionID, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find transaction %s: %w", transactionID, err)
	}
	return txn, nil
}

func (r *PgxTransactionRepository) ListTransactions(ctx context.Context, businessID string, filter portsrepo.ListTransactionsFilter) ([]domain.BankTransaction, string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + transactionColumns + ` FROM bank_transactions WHERE business_id = $1`
	args := []interface{}{businessID}

	if filter.ImportID != "" {
		args = append(args, filter.ImportID)
		query += fmt.Sprintf(` AND import_id = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		query += fmt.Sprintf(` AND transaction_date >= $%d`, len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		query += fmt.Sprintf(` AND transaction_date <= $%d`, len(args))
	}
	if filter.NextToken != "" {
		dateBefore, createdBefore, err := pagination.DecodeToken(filter.NextToken)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		args = append(args, dateBefore, createdBefore)
		query += fmt.Sprintf(` AND (transaction_date, created_at) < ($%d, $%d)`, len(args)-1, len(args))
	}
	query += fmt.Sprintf(` ORDER BY transaction_date DESC, created_at DESC LIMIT %d;`, limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.BankTransaction{}
	for rows.Next() {
		txn, err := r.scanTransaction(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan transaction row: %w", err)
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating transaction rows: %w", err)
	}

	next := ""
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[limit-1]
		next = pagination.EncodeToken(last.TransactionDate, last.CreatedAt)
	}
	return txns, next, nil
}

// UpdateMatchState persists the reconciliation fields guarded by the status
// the caller last read, rejecting concurrent modifications.
func (r *PgxTransactionRepository) UpdateMatchState(ctx context.Context, txn *domain.BankTransaction, expectedStatus domain.ReconciliationStatus) error {
	query := `
		UPDATE bank_transactions
		SET status = $1, matched_expense_id = $2, matched_invoice_id = $3,
		    match_confidence = $4, last_updated_at = $5
		WHERE transaction_id = $6 AND business_id = $7 AND status = $8;
	`
	tag, err := r.pool.Exec(ctx, query,
		txn.Status,
		txn.MatchedExpenseID,
		txn.MatchedInvoiceID,
		txn.MatchConfidence,
		txn.LastUpdatedAt,
		txn.TransactionID,
		txn.BusinessID,
		expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to update match state for transaction %s: %w", txn.TransactionID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewBusinessError(apperrors.BusinessInvalidTransition,
			"transaction was modified concurrently; re-read and retry")
	}
	return nil
}

func (r *PgxTransactionRepository) CountMatchedByImport(ctx context.Context, businessID, importID string) (int, error) {
	query := `SELECT COUNT(*) FROM bank_transactions WHERE import_id = $1 AND business_id = $2 AND status = $3;`
	var count int
	if err := r.pool.QueryRow(ctx, query, importID, businessID, domain.TxnMatched).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matched transactions for import %s: %w", importID, err)
	}
	return count, nil
}

func (r *PgxTransactionRepository) DeleteByImport(ctx context.Context, businessID, importID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM bank_transactions WHERE import_id = $1 AND business_id = $2;`, importID, businessID)
	if err != nil {
		return fmt.Errorf("failed to delete transactions for import %s: %w", importID, err)
	}
	return nil
}

func (r *PgxTransactionRepository) scanTransaction(row pgx.Row) (*domain.BankTransaction, error) {
	var txn domain.BankTransaction
	var description, reference string

	if err := row.Scan(
		&txn.TransactionID,
		&txn.ImportID,
		&txn.BusinessID,
		&txn.TransactionDate,
		&description,
		&reference,
		&txn.DebitAmount,
		&txn.CreditAmount,
		&txn.Balance,
		&txn.Status,
		&txn.MatchedExpenseID,
		&txn.MatchedInvoiceID,
		&txn.MatchConfidence,
		&txn.CreatedAt,
		&txn.LastUpdatedAt,
	); err != nil {
		return nil, err
	}

	plainDescription, err := r.encryptor.Decrypt(description)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt description for transaction %s: %w", txn.TransactionID, err)
	}
	txn.Description = plainDescription

	if reference != "" {
		plainReference, err := r.encryptor.Decrypt(reference)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt reference for transaction %s: %w", txn.TransactionID, err)
		}
		txn.Reference = plainReference
	}
	return &txn, nil
}
