package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
	"github.com/reconlab/bank_recon_app/internal/utils/pagination"
)

type PgxImportRepository struct {
	pool *pgxpool.Pool
}

// NewImportRepository creates a new repository for statement imports.
func NewImportRepository(pool *pgxpool.Pool) portsrepo.ImportRepository {
	return &PgxImportRepository{pool: pool}
}

const importColumns = `import_id, business_id, file_name, file_kind, bank_name, status, column_mapping, total_rows, imported_rows, error_message, row_errors, row_snapshot, created_at, last_updated_at`

func (r *PgxImportRepository) SaveImport(ctx context.Context, imp domain.Import) error {
	mappingJSON, rowErrorsJSON, err := marshalImportJSON(&imp)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO imports (` + importColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err = r.pool.Exec(ctx, query,
		imp.ImportID,
		imp.BusinessID,
		imp.FileName,
		imp.FileKind,
		imp.BankName,
		imp.Status,
		mappingJSON,
		imp.TotalRows,
		imp.ImportedRows,
		imp.ErrorMessage,
		rowErrorsJSON,
		imp.RowSnapshot,
		imp.CreatedAt,
		imp.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert import %s: %w", imp.ImportID, err)
	}
	return nil
}

func (r *PgxImportRepository) FindImportByID(ctx context.Context, businessID, importID string) (*domain.Import, error) {
	query := `SELECT ` + importColumns + ` FROM imports WHERE import_id = $1 AND business_id = $2;`
	imp, err := scanImport(r.pool.QueryRow(ctx, query, importID, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find import %s: %w", importID, err)
	}
	return imp, nil
}

func (r *PgxImportRepository) ListImports(ctx context.Context, businessID string, limit int, nextToken string) ([]domain.Import, string, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + importColumns + ` FROM imports WHERE business_id = $1`
	args := []interface{}{businessID}
	if nextToken != "" {
		createdBefore, err := pagination.DecodeDateBasedToken(nextToken)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		query += ` AND created_at < $2`
		args = append(args, createdBefore)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d;`, limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list imports: %w", err)
	}
	defer rows.Close()

	imports := []domain.Import{}
	for rows.Next() {
		imp, err := scanImport(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan import row: %w", err)
		}
		imports = append(imports, *imp)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating import rows: %w", err)
	}

	next := ""
	if len(imports) > limit {
		imports = imports[:limit]
		next = pagination.EncodeDateBasedToken(imports[limit-1].CreatedAt)
	}
	return imports, next, nil
}

func (r *PgxImportRepository) UpdateImport(ctx context.Context, imp *domain.Import) error {
	mappingJSON, rowErrorsJSON, err := marshalImportJSON(imp)
	if err != nil {
		return err
	}

	query := `
		UPDATE imports
		SET status = $1, column_mapping = $2, total_rows = $3, imported_rows = $4,
		    error_message = $5, row_errors = $6, last_updated_at = $7
		WHERE import_id = $8 AND business_id = $9;
	`
	tag, err := r.pool.Exec(ctx, query,
		imp.Status,
		mappingJSON,
		imp.TotalRows,
		imp.ImportedRows,
		imp.ErrorMessage,
		rowErrorsJSON,
		imp.LastUpdatedAt,
		imp.ImportID,
		imp.BusinessID,
	)
	if err != nil {
		return fmt.Errorf("failed to update import %s: %w", imp.ImportID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteImport removes the import and its transactions in one database
// transaction. The matched-transaction guard lives in the service layer.
func (r *PgxImportRepository) DeleteImport(ctx context.Context, businessID, importID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM bank_transactions WHERE import_id = $1 AND business_id = $2;`, importID, businessID); err != nil {
		return fmt.Errorf("failed to delete transactions for import %s: %w", importID, err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM imports WHERE import_id = $1 AND business_id = $2;`, importID, businessID)
	if err != nil {
		return fmt.Errorf("failed to delete import %s: %w", importID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return tx.Commit(ctx)
}

func marshalImportJSON(imp *domain.Import) ([]byte, []byte, error) {
	var mappingJSON []byte
	if imp.Mapping != nil {
		raw, err := json.Marshal(imp.Mapping)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal column mapping: %w", err)
		}
		mappingJSON = raw
	}
	var rowErrorsJSON []byte
	if len(imp.RowErrors) > 0 {
		raw, err := json.Marshal(imp.RowErrors)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal row errors: %w", err)
		}
		rowErrorsJSON = raw
	}
	return mappingJSON, rowErrorsJSON, nil
}

func scanImport(row pgx.Row) (*domain.Import, error) {
	var imp domain.Import
	var mappingJSON, rowErrorsJSON []byte

	if err := row.Scan(
		&imp.ImportID,
		&imp.BusinessID,
		&imp.FileName,
		&imp.FileKind,
		&imp.BankName,
		&imp.Status,
		&mappingJSON,
		&imp.TotalRows,
		&imp.ImportedRows,
		&imp.ErrorMessage,
		&rowErrorsJSON,
		&imp.RowSnapshot,
		&imp.CreatedAt,
		&imp.LastUpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(mappingJSON) > 0 {
		var mapping domain.ColumnMapping
		if err := json.Unmarshal(mappingJSON, &mapping); err != nil {
			return nil, fmt.Errorf("failed to unmarshal column mapping: %w", err)
		}
		imp.Mapping = &mapping
	}
	if len(rowErrorsJSON) > 0 {
		if err := json.Unmarshal(rowErrorsJSON, &imp.RowErrors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row errors: %w", err)
		}
	}
	return &imp, nil
}
