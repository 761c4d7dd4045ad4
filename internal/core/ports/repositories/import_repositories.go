package repositories

import (
	"context"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
)

// ImportRepository defines persistence operations for statement imports.
// Every read and write is scoped by business ID; lookups for another
// business's records return apperrors.ErrNotFound.
type ImportRepository interface {
	SaveImport(ctx context.Context, imp domain.Import) error
	FindImportByID(ctx context.Context, businessID, importID string) (*domain.Import, error)
	ListImports(ctx context.Context, businessID string, limit int, nextToken string) ([]domain.Import, string, error)
	UpdateImport(ctx context.Context, imp *domain.Import) error
	// DeleteImport removes the import and cascades to its transactions.
	DeleteImport(ctx context.Context, businessID, importID string) error
}
