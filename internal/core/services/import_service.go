package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
	"github.com/reconlab/bank_recon_app/internal/dto"
	"github.com/reconlab/bank_recon_app/internal/middleware"
	"github.com/reconlab/bank_recon_app/internal/statement"
)

const (
	// importWorkers bounds the normalization worker pool.
	importWorkers = 4
	// progressBatchSize is how many rows are persisted per flush; progress
	// counters update at the same cadence so mid-run state is observable.
	progressBatchSize = 100
	// rowErrorSample caps how many row failures are reported per import.
	rowErrorSample = 20
)

// importService owns the import lifecycle state machine. All durable state
// of an import is mutated here and nowhere else.
type importService struct {
	importRepo portsrepo.ImportRepository
	txnRepo    portsrepo.TransactionRepository
	docParser  portssvc.DocumentParser
	encryptor  portssvc.FieldEncryptor
	staleAfter time.Duration
	now        func() time.Time
}

// NewImportService creates the import lifecycle service. staleAfter is the
// window after which an IMPORTING import left mid-flight becomes eligible for
// reset and re-entry.
func NewImportService(
	importRepo portsrepo.ImportRepository,
	txnRepo portsrepo.TransactionRepository,
	docParser portssvc.DocumentParser,
	encryptor portssvc.FieldEncryptor,
	staleAfter time.Duration,
) portssvc.ImportSvcFacade {
	return &importService{
		importRepo: importRepo,
		txnRepo:    txnRepo,
		docParser:  docParser,
		encryptor:  encryptor,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

var _ portssvc.ImportSvcFacade = (*importService)(nil)

// transition moves the import to the next status after consulting the
// allowed-transition table.
func (s *importService) transition(imp *domain.Import, to domain.ImportStatus) error {
	if !imp.Status.CanTransition(to) {
		return apperrors.NewBusinessError(apperrors.BusinessInvalidTransition,
			fmt.Sprintf("import cannot move from %s to %s", imp.Status, to))
	}
	imp.Status = to
	imp.LastUpdatedAt = s.now()
	return nil
}

// CreateImport decodes the upload, runs column inference and lands the import
// in MAPPING, or FAILED when the file cannot be decoded. The decoded rows are
// stored as an encrypted snapshot so the plaintext upload is never persisted.
func (s *importService) CreateImport(ctx context.Context, businessID string, req dto.CreateImportRequest) (*domain.Import, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if !req.FileKind.Valid() {
		return nil, fmt.Errorf("%w: unsupported file kind %q", apperrors.ErrValidation, req.FileKind)
	}

	nowTime := s.now()
	imp := &domain.Import{
		ImportID:   uuid.NewString(),
		BusinessID: businessID,
		FileName:   req.FileName,
		FileKind:   req.FileKind,
		BankName:   req.BankName,
		Status:     domain.ImportPending,
		AuditFields: domain.AuditFields{
			CreatedAt:     nowTime,
			LastUpdatedAt: nowTime,
		},
	}

	if err := s.transition(imp, domain.ImportParsing); err != nil {
		return nil, err
	}

	rows, err := statement.Decode(ctx, req.Data, req.FileKind, s.docParser)
	if err != nil {
		imp.Status = domain.ImportFailed
		imp.ErrorMessage = err.Error()
		imp.LastUpdatedAt = s.now()
		if saveErr := s.importRepo.SaveImport(ctx, *imp); saveErr != nil {
			logger.Error("Failed to persist failed import", slog.String("error", saveErr.Error()))
		}
		logger.Warn("Statement decode failed", slog.String("import_id", imp.ImportID), slog.String("error", err.Error()))
		return imp, err
	}

	snapshot, err := s.encryptSnapshot(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt row snapshot: %w", err)
	}
	imp.RowSnapshot = snapshot
	imp.TotalRows = len(rows)

	inferred := statement.InferColumns(rows)
	if inferred.Confident() {
		mapping := inferred.ToColumnMapping()
		imp.Mapping = &mapping
	}

	if err := s.transition(imp, domain.ImportMapping); err != nil {
		return nil, err
	}
	if err := s.importRepo.SaveImport(ctx, *imp); err != nil {
		return nil, fmt.Errorf("failed to save import: %w", err)
	}

	logger.Info("Import created",
		slog.String("import_id", imp.ImportID),
		slog.Int("total_rows", imp.TotalRows),
		slog.Bool("mapping_suggested", imp.Mapping != nil),
	)
	return imp, nil
}

// SubmitMapping validates and stores an externally supplied column mapping.
// An invalid mapping leaves the import untouched. Resubmitting the same valid
// mapping is idempotent; rows are only touched by ProcessImport.
func (s *importService) SubmitMapping(ctx context.Context, businessID, importID string, mapping domain.ColumnMapping) (*domain.Import, error) {
	imp, err := s.importRepo.FindImportByID(ctx, businessID, importID)
	if err != nil {
		return nil, err
	}

	if imp.Status != domain.ImportPending && imp.Status != domain.ImportMapping {
		return nil, apperrors.NewBusinessError(apperrors.BusinessInvalidTransition,
			fmt.Sprintf("mapping can no longer be submitted while the import is %s", imp.Status))
	}

	if missing := mapping.MissingRoles(); len(missing) > 0 {
		return nil, &apperrors.ValidationError{Missing: missing}
	}

	imp.Mapping = &mapping
	if err := s.transition(imp, domain.ImportMapping); err != nil {
		return nil, err
	}
	if err := s.importRepo.UpdateImport(ctx, imp); err != nil {
		return nil, fmt.Errorf("failed to update import mapping: %w", err)
	}
	return imp, nil
}

// ProcessImport bulk-processes every decoded row through the normalizer and
// persists the resulting transactions. Row failures are collected, not fatal;
// the import still completes with a row-error summary attached. Only an error
// that aborts the whole batch marks the import FAILED.
func (s *importService) ProcessImport(ctx context.Context, businessID, importID string) (*domain.Import, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	imp, err := s.importRepo.FindImportByID(ctx, businessID, importID)
	if err != nil {
		return nil, err
	}

	switch imp.Status {
	case domain.ImportImporting:
		// Re-entry. A fresh run is still in flight; a stale one was
		// interrupted and is reset for an idempotent retry.
		if s.now().Sub(imp.LastUpdatedAt) < s.staleAfter {
			return nil, apperrors.NewBusinessError(apperrors.BusinessImportBusy, "import is already being processed")
		}
		logger.Warn("Resetting stale import for re-entry", slog.String("import_id", imp.ImportID))
		if err := s.txnRepo.DeleteByImport(ctx, businessID, importID); err != nil {
			return nil, fmt.Errorf("failed to reset stale import: %w", err)
		}
		imp.ImportedRows = 0
		imp.RowErrors = nil
	case domain.ImportMapping:
		if imp.Mapping == nil {
			return nil, fmt.Errorf("%w: no column mapping confirmed", apperrors.ErrValidation)
		}
		if err := s.transition(imp, domain.ImportImporting); err != nil {
			return nil, err
		}
		if err := s.importRepo.UpdateImport(ctx, imp); err != nil {
			return nil, fmt.Errorf("failed to update import status: %w", err)
		}
	default:
		return nil, apperrors.NewBusinessError(apperrors.BusinessInvalidTransition,
			fmt.Sprintf("import cannot be processed while %s", imp.Status))
	}

	rows, err := s.decryptSnapshot(imp.RowSnapshot)
	if err != nil {
		return imp, s.failImport(ctx, imp, fmt.Sprintf("cannot restore row snapshot: %v", err))
	}

	txns, rowErrors := s.normalizeAll(ctx, imp, rows)

	imported := 0
	for start := 0; start < len(txns); start += progressBatchSize {
		end := start + progressBatchSize
		if end > len(txns) {
			end = len(txns)
		}
		if err := s.txnRepo.SaveTransactions(ctx, txns[start:end]); err != nil {
			return imp, s.failImport(ctx, imp, fmt.Sprintf("persisting rows failed at row %d: %v", imported, err))
		}
		imported = end
		imp.ImportedRows = imported
		imp.LastUpdatedAt = s.now()
		if err := s.importRepo.UpdateImport(ctx, imp); err != nil {
			return imp, s.failImport(ctx, imp, fmt.Sprintf("updating progress failed: %v", err))
		}
	}

	imp.ImportedRows = imported
	imp.RowErrors = rowErrors
	imp.ErrorMessage = ""
	if err := s.transition(imp, domain.ImportCompleted); err != nil {
		return imp, err
	}
	if err := s.importRepo.UpdateImport(ctx, imp); err != nil {
		return imp, fmt.Errorf("failed to finalize import: %w", err)
	}

	logger.Info("Import completed",
		slog.String("import_id", imp.ImportID),
		slog.Int("imported_rows", imp.ImportedRows),
		slog.Int("failed_rows", imp.TotalRows-imp.ImportedRows),
	)
	return imp, nil
}

type rowOutcome struct {
	index int
	txn   *domain.BankTransaction
	err   error
}

// normalizeAll fans rows out to a bounded worker pool and aggregates the
// outcomes in a single goroutine, so counters are never updated concurrently.
// The result keeps the original row order.
func (s *importService) normalizeAll(ctx context.Context, imp *domain.Import, rows []statement.Row) ([]domain.BankTransaction, []domain.RowError) {
	mapping := *imp.Mapping
	jobs := make(chan statement.Row)
	outcomes := make(chan rowOutcome)

	var wg sync.WaitGroup
	for i := 0; i < importWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for row := range jobs {
				normalized, err := statement.NormalizeRow(row, mapping)
				if err != nil {
					outcomes <- rowOutcome{index: row.Index, err: err}
					continue
				}
				outcomes <- rowOutcome{index: row.Index, txn: s.buildTransaction(imp, normalized)}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, row := range rows {
			select {
			case jobs <- row:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	collected := make([]rowOutcome, 0, len(rows))
	for outcome := range outcomes {
		collected = append(collected, outcome)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	txns := make([]domain.BankTransaction, 0, len(collected))
	var rowErrors []domain.RowError
	for _, outcome := range collected {
		if outcome.err != nil {
			if len(rowErrors) < rowErrorSample {
				rowErrors = append(rowErrors, domain.RowError{RowIndex: outcome.index, Message: outcome.err.Error()})
			}
			continue
		}
		txns = append(txns, *outcome.txn)
	}
	return txns, rowErrors
}

func (s *importService) buildTransaction(imp *domain.Import, normalized *statement.NormalizedRow) *domain.BankTransaction {
	nowTime := s.now()
	return &domain.BankTransaction{
		TransactionID:   uuid.NewString(),
		ImportID:        imp.ImportID,
		BusinessID:      imp.BusinessID,
		TransactionDate: normalized.Date,
		Description:     normalized.Description,
		Reference:       normalized.Reference,
		DebitAmount:     normalized.Debit,
		CreditAmount:    normalized.Credit,
		Balance:         normalized.Balance,
		Status:          domain.TxnUnmatched,
		AuditFields: domain.AuditFields{
			CreatedAt:     nowTime,
			LastUpdatedAt: nowTime,
		},
	}
}

// failImport marks the import FAILED with a human-readable message and
// returns an error carrying the same message.
func (s *importService) failImport(ctx context.Context, imp *domain.Import, message string) error {
	logger := middleware.GetLoggerFromCtx(ctx)
	imp.Status = domain.ImportFailed
	imp.ErrorMessage = message
	imp.LastUpdatedAt = s.now()
	if err := s.importRepo.UpdateImport(ctx, imp); err != nil {
		logger.Error("Failed to persist failed import state", slog.String("import_id", imp.ImportID), slog.String("error", err.Error()))
	}
	return fmt.Errorf("import %s failed: %s", imp.ImportID, message)
}

func (s *importService) GetImport(ctx context.Context, businessID, importID string) (*domain.Import, error) {
	return s.importRepo.FindImportByID(ctx, businessID, importID)
}

func (s *importService) ListImports(ctx context.Context, businessID string, limit int, nextToken string) ([]domain.Import, string, error) {
	return s.importRepo.ListImports(ctx, businessID, limit, nextToken)
}

// DeleteImport cascades to the import's transactions, unless any of them is
// matched: a matched transaction pins its import.
func (s *importService) DeleteImport(ctx context.Context, businessID, importID string) error {
	if _, err := s.importRepo.FindImportByID(ctx, businessID, importID); err != nil {
		return err
	}

	matched, err := s.txnRepo.CountMatchedByImport(ctx, businessID, importID)
	if err != nil {
		return fmt.Errorf("failed to count matched transactions: %w", err)
	}
	if matched > 0 {
		return apperrors.NewBusinessError(apperrors.BusinessHasMatchedTransactions,
			fmt.Sprintf("%d matched transaction(s) must be unmatched first", matched))
	}
	return s.importRepo.DeleteImport(ctx, businessID, importID)
}

func (s *importService) encryptSnapshot(rows []statement.Row) (string, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return "", err
	}
	return s.encryptor.Encrypt(string(raw))
}

func (s *importService) decryptSnapshot(snapshot string) ([]statement.Row, error) {
	plain, err := s.encryptor.Decrypt(snapshot)
	if err != nil {
		return nil, err
	}
	var rows []statement.Row
	if err := json.Unmarshal([]byte(plain), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
