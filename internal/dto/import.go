package dto

import (
	"time"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
)

// CreateImportRequest carries one uploaded statement file.
type CreateImportRequest struct {
	FileName string          `json:"fileName" binding:"required"`
	FileKind domain.FileKind `json:"fileKind" binding:"required,oneof=csv pdf"`
	BankName string          `json:"bankName"`
	Data     []byte          `json:"-"`
}

// SubmitMappingRequest replaces an import's column mapping wholesale.
type SubmitMappingRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Balance     string `json:"balance"`
	Reference   string `json:"reference"`
}

// ToColumnMapping converts the request into the domain mapping.
func (r SubmitMappingRequest) ToColumnMapping() domain.ColumnMapping {
	return domain.ColumnMapping{
		Date:        r.Date,
		Description: r.Description,
		Debit:       r.Debit,
		Credit:      r.Credit,
		Balance:     r.Balance,
		Reference:   r.Reference,
	}
}

// ImportResponse is the external view of an import.
type ImportResponse struct {
	ImportID     string                `json:"importID"`
	FileName     string                `json:"fileName"`
	FileKind     domain.FileKind       `json:"fileKind"`
	BankName     string                `json:"bankName,omitempty"`
	Status       domain.ImportStatus   `json:"status"`
	Mapping      *domain.ColumnMapping `json:"mapping,omitempty"`
	TotalRows    int                   `json:"totalRows"`
	ImportedRows int                   `json:"importedRows"`
	ErrorMessage string                `json:"errorMessage,omitempty"`
	RowErrors    []domain.RowError     `json:"rowErrors,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
}

// ToImportResponse converts a domain.Import to its response DTO.
func ToImportResponse(imp *domain.Import) ImportResponse {
	return ImportResponse{
		ImportID:     imp.ImportID,
		FileName:     imp.FileName,
		FileKind:     imp.FileKind,
		BankName:     imp.BankName,
		Status:       imp.Status,
		Mapping:      imp.Mapping,
		TotalRows:    imp.TotalRows,
		ImportedRows: imp.ImportedRows,
		ErrorMessage: imp.ErrorMessage,
		RowErrors:    imp.RowErrors,
		CreatedAt:    imp.CreatedAt,
	}
}

// ToImportResponses converts a slice of imports.
func ToImportResponses(imps []domain.Import) []ImportResponse {
	responses := make([]ImportResponse, len(imps))
	for i := range imps {
		responses[i] = ToImportResponse(&imps[i])
	}
	return responses
}

// ListImportsResponse is a paginated import listing.
type ListImportsResponse struct {
	Imports   []ImportResponse `json:"imports"`
	NextToken string           `json:"nextToken,omitempty"`
}
