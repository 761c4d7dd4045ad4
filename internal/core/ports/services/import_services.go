package services

import (
	"context"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
	"github.com/reconlab/bank_recon_app/internal/dto"
)

// ImportSvcFacade owns the import lifecycle state machine. It is the only
// component that mutates an import's mapping, row counts and status.
type ImportSvcFacade interface {
	// CreateImport decodes the upload, stores the encrypted row snapshot and
	// lands the import in MAPPING (with a suggested mapping when inference is
	// confident) or FAILED on a parse error.
	CreateImport(ctx context.Context, businessID string, req dto.CreateImportRequest) (*domain.Import, error)
	// SubmitMapping validates and replaces the column mapping. Only legal
	// while the import is still in PENDING or MAPPING.
	SubmitMapping(ctx context.Context, businessID, importID string, mapping domain.ColumnMapping) (*domain.Import, error)
	// ProcessImport drives MAPPING -> IMPORTING -> COMPLETED|FAILED,
	// normalizing and persisting every row. Re-entry on a stale IMPORTING
	// import resets and reprocesses it.
	ProcessImport(ctx context.Context, businessID, importID string) (*domain.Import, error)
	GetImport(ctx context.Context, businessID, importID string) (*domain.Import, error)
	ListImports(ctx context.Context, businessID string, limit int, nextToken string) ([]domain.Import, string, error)
	// DeleteImport cascades to the import's transactions; refused while any
	// transaction is MATCHED.
	DeleteImport(ctx context.Context, businessID, importID string) error
}
