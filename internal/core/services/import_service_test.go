package services_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
	"github.com/reconlab/bank_recon_app/internal/core/services"
	"github.com/reconlab/bank_recon_app/internal/dto"
	"github.com/reconlab/bank_recon_app/internal/statement"
)

// MockImportRepository is a mock type for the ImportRepository interface
type MockImportRepository struct {
	mock.Mock
}

func (m *MockImportRepository) SaveImport(ctx context.Context, imp domain.Import) error {
	args := m.Called(ctx, imp)
	return args.Error(0)
}

func (m *MockImportRepository) FindImportByID(ctx context.Context, businessID, importID string) (*domain.Import, error) {
	args := m.Called(ctx, businessID, importID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Import), args.Error(1)
}

func (m *MockImportRepository) ListImports(ctx context.Context, businessID string, limit int, nextToken string) ([]domain.Import, string, error) {
	args := m.Called(ctx, businessID, limit, nextToken)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]domain.Import), args.String(1), args.Error(2)
}

func (m *MockImportRepository) UpdateImport(ctx context.Context, imp *domain.Import) error {
	args := m.Called(ctx, imp)
	return args.Error(0)
}

func (m *MockImportRepository) DeleteImport(ctx context.Context, businessID, importID string) error {
	args := m.Called(ctx, businessID, importID)
	return args.Error(0)
}

var _ portsrepo.ImportRepository = (*MockImportRepository)(nil)

// MockTransactionRepository is a mock type for the TransactionRepository interface
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) SaveTransactions(ctx context.Context, txns []domain.BankTransaction) error {
	args := m.Called(ctx, txns)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, businessID, transactionID string) (*domain.BankTransaction, error) {
	args := m.Called(ctx, businessID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankTransaction), args.Error(1)
}

func (m *MockTransactionRepository) ListTransactions(ctx context.Context, businessID string, filter portsrepo.ListTransactionsFilter) ([]domain.BankTransaction, string, error) {
	args := m.Called(ctx, businessID, filter)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]domain.BankTransaction), args.String(1), args.Error(2)
}

func (m *MockTransactionRepository) UpdateMatchState(ctx context.Context, txn *domain.BankTransaction, expectedStatus domain.ReconciliationStatus) error {
	args := m.Called(ctx, txn, expectedStatus)
	return args.Error(0)
}

func (m *MockTransactionRepository) CountMatchedByImport(ctx context.Context, businessID, importID string) (int, error) {
	args := m.Called(ctx, businessID, importID)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepository) DeleteByImport(ctx context.Context, businessID, importID string) error {
	args := m.Called(ctx, businessID, importID)
	return args.Error(0)
}

var _ portsrepo.TransactionRepository = (*MockTransactionRepository)(nil)

// fakeEncryptor is a reversible stand-in for the field encryptor.
type fakeEncryptor struct{}

func (fakeEncryptor) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (fakeEncryptor) Decrypt(ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

var _ portssvc.FieldEncryptor = fakeEncryptor{}

// --- Test Suite Setup ---

type ImportServiceTestSuite struct {
	suite.Suite
	mockImportRepo *MockImportRepository
	mockTxnRepo    *MockTransactionRepository
	service        portssvc.ImportSvcFacade
	businessID     string
}

func (suite *ImportServiceTestSuite) SetupTest() {
	suite.mockImportRepo = new(MockImportRepository)
	suite.mockTxnRepo = new(MockTransactionRepository)
	suite.service = services.NewImportService(suite.mockImportRepo, suite.mockTxnRepo, nil, fakeEncryptor{}, 30*time.Minute)
	suite.businessID = uuid.NewString()
}

func (suite *ImportServiceTestSuite) snapshotFor(rows []statement.Row) string {
	raw, err := json.Marshal(rows)
	suite.Require().NoError(err)
	encrypted, err := fakeEncryptor{}.Encrypt(string(raw))
	suite.Require().NoError(err)
	return encrypted
}

func statementRows() []statement.Row {
	return []statement.Row{
		{Index: 0, Values: map[string]string{
			"Value Date": "15/12/2025", "Narrative": "COFFEE SHOP LONDON", "Withdrawal": "4.50", "Deposit": "",
		}},
		{Index: 1, Values: map[string]string{
			"Value Date": "16/12/2025", "Narrative": "SALARY PAYMENT", "Withdrawal": "", "Deposit": "2500.00",
		}},
	}
}

func mappedImport(businessID string) *domain.Import {
	now := time.Now()
	return &domain.Import{
		ImportID:   uuid.NewString(),
		BusinessID: businessID,
		FileName:   "statement.csv",
		FileKind:   domain.FileKindCSV,
		Status:     domain.ImportMapping,
		TotalRows:  2,
		Mapping: &domain.ColumnMapping{
			Date:        "Value Date",
			Description: "Narrative",
			Debit:       "Withdrawal",
			Credit:      "Deposit",
		},
		AuditFields: domain.AuditFields{CreatedAt: now, LastUpdatedAt: now},
	}
}

// --- CreateImport ---

func (suite *ImportServiceTestSuite) TestCreateImport_CSVWithConfidentInference() {
	ctx := context.Background()
	csv := "Value Date,Narrative,Withdrawal,Deposit\n" +
		"15/12/2025,COFFEE SHOP LONDON,4.50,\n" +
		"16/12/2025,SALARY PAYMENT,,2500.00\n"

	suite.mockImportRepo.On("SaveImport", ctx, mock.AnythingOfType("domain.Import")).Return(nil).Once()

	imp, err := suite.service.CreateImport(ctx, suite.businessID, dto.CreateImportRequest{
		FileName: "statement.csv",
		FileKind: domain.FileKindCSV,
		Data:     []byte(csv),
	})

	suite.Require().NoError(err)
	suite.Require().NotNil(imp)
	suite.Equal(domain.ImportMapping, imp.Status)
	suite.Equal(2, imp.TotalRows)
	suite.Require().NotNil(imp.Mapping, "confident inference must attach a suggested mapping")
	suite.Equal("Value Date", imp.Mapping.Date)
	suite.Equal("Narrative", imp.Mapping.Description)
	suite.True(strings.HasPrefix(imp.RowSnapshot, "enc:"), "snapshot must be stored encrypted")
	suite.mockImportRepo.AssertExpectations(suite.T())
}

func (suite *ImportServiceTestSuite) TestCreateImport_DecodeFailurePersistsFailedImport() {
	ctx := context.Background()

	// No document parser is configured, so a pdf upload cannot be decoded.
	suite.mockImportRepo.On("SaveImport", ctx, mock.MatchedBy(func(imp domain.Import) bool {
		return imp.Status == domain.ImportFailed && imp.ErrorMessage != ""
	})).Return(nil).Once()

	imp, err := suite.service.CreateImport(ctx, suite.businessID, dto.CreateImportRequest{
		FileName: "statement.pdf",
		FileKind: domain.FileKindPDF,
		Data:     []byte("%PDF"),
	})

	var parseErr *apperrors.ParseError
	suite.Require().ErrorAs(err, &parseErr)
	suite.Require().NotNil(imp, "the failed import is still returned for inspection")
	suite.Equal(domain.ImportFailed, imp.Status)
	suite.mockImportRepo.AssertExpectations(suite.T())
}

// --- SubmitMapping ---

func (suite *ImportServiceTestSuite) TestSubmitMapping_MissingMandatoryRoles() {
	ctx := context.Background()
	imp := mappedImport(suite.businessID)
	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()

	_, err := suite.service.SubmitMapping(ctx, suite.businessID, imp.ImportID, domain.ColumnMapping{Balance: "Balance"})

	var validationErr *apperrors.ValidationError
	suite.Require().ErrorAs(err, &validationErr)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Len(validationErr.Missing, 3)
	suite.mockImportRepo.AssertNotCalled(suite.T(), "UpdateImport", mock.Anything, mock.Anything)
}

func (suite *ImportServiceTestSuite) TestSubmitMapping_ReplacesMappingWholesale() {
	ctx := context.Background()
	imp := mappedImport(suite.businessID)
	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()
	suite.mockImportRepo.On("UpdateImport", ctx, mock.AnythingOfType("*domain.Import")).Return(nil).Once()

	// The new mapping has no reference column; the old one must not linger.
	updated, err := suite.service.SubmitMapping(ctx, suite.businessID, imp.ImportID, domain.ColumnMapping{
		Date:        "Value Date",
		Description: "Narrative",
		Credit:      "Deposit",
	})

	suite.Require().NoError(err)
	suite.Equal(domain.ImportMapping, updated.Status)
	suite.Empty(updated.Mapping.Debit)
	suite.Equal("Deposit", updated.Mapping.Credit)
	suite.mockImportRepo.AssertExpectations(suite.T())
}

func (suite *ImportServiceTestSuite) TestSubmitMapping_RejectedAfterCompletion() {
	ctx := context.Background()
	imp := mappedImport(suite.businessID)
	imp.Status = domain.ImportCompleted
	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()

	_, err := suite.service.SubmitMapping(ctx, suite.businessID, imp.ImportID, *imp.Mapping)

	var bizErr *apperrors.BusinessError
	suite.Require().ErrorAs(err, &bizErr)
	suite.Equal(apperrors.BusinessInvalidTransition, bizErr.Code)
}

// --- ProcessImport ---

func (suite *ImportServiceTestSuite) TestProcessImport_CompletesAndPersistsRows() {
	ctx := context.Background()
	imp := mappedImport(suite.businessID)
	imp.RowSnapshot = suite.snapshotFor(statementRows())

	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()
	suite.mockImportRepo.On("UpdateImport", ctx, mock.AnythingOfType("*domain.Import")).Return(nil)
	suite.mockTxnRepo.On("SaveTransactions", ctx, mock.MatchedBy(func(txns []domain.BankTransaction) bool {
		return len(txns) == 2 &&
			txns[0].Description == "COFFEE SHOP LONDON" && txns[0].DebitAmount != nil &&
			txns[1].Description == "SALARY PAYMENT" && txns[1].CreditAmount != nil
	})).Return(nil).Once()

	processed, err := suite.service.ProcessImport(ctx, suite.businessID, imp.ImportID)

	suite.Require().NoError(err)
	suite.Equal(domain.ImportCompleted, processed.Status)
	suite.Equal(2, processed.ImportedRows)
	suite.Empty(processed.RowErrors)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *ImportServiceTestSuite) TestProcessImport_BadRowsCollectedNotFatal() {
	ctx := context.Background()
	rows := statementRows()
	rows = append(rows, statement.Row{Index: 2, Values: map[string]string{
		"Value Date": "not a date", "Narrative": "BROKEN ROW", "Withdrawal": "1.00", "Deposit": "",
	}})
	imp := mappedImport(suite.businessID)
	imp.TotalRows = 3
	imp.RowSnapshot = suite.snapshotFor(rows)

	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()
	suite.mockImportRepo.On("UpdateImport", ctx, mock.AnythingOfType("*domain.Import")).Return(nil)
	suite.mockTxnRepo.On("SaveTransactions", ctx, mock.MatchedBy(func(txns []domain.BankTransaction) bool {
		return len(txns) == 2
	})).Return(nil).Once()

	processed, err := suite.service.ProcessImport(ctx, suite.businessID, imp.ImportID)

	suite.Require().NoError(err)
	suite.Equal(domain.ImportCompleted, processed.Status)
	suite.Equal(2, processed.ImportedRows)
	suite.Require().Len(processed.RowErrors, 1)
	suite.Equal(2, processed.RowErrors[0].RowIndex)
}

func (suite *ImportServiceTestSuite) TestProcessImport_WithoutMapping() {
	ctx := context.Background()
	imp := mappedImport(suite.businessID)
	imp.Mapping = nil
	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()

	_, err := suite.service.ProcessImport(ctx, suite.businessID, imp.ImportID)

	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ImportServiceTestSuite) TestProcessImport_FreshImportingIsBusy() {
	ctx := context.Background()
	imp := mappedImport(suite.businessID)
	imp.Status = domain.ImportImporting
	imp.LastUpdatedAt = time.Now()
	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()

	_, err := suite.service.ProcessImport(ctx, suite.businessID, imp.ImportID)

	var bizErr *apperrors.BusinessError
	suite.Require().ErrorAs(err, &bizErr)
	suite.Equal(apperrors.BusinessImportBusy, bizErr.Code)
	suite.mockTxnRepo.AssertNotCalled(suite.T(), "DeleteByImport", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ImportServiceTestSuite) TestProcessImport_StaleImportingResetsAndReruns() {
	ctx := context.Background()
	imp := mappedImport(suite.businessID)
	imp.Status = domain.ImportImporting
	imp.ImportedRows = 1
	imp.LastUpdatedAt = time.Now().Add(-2 * time.Hour)
	imp.RowSnapshot = suite.snapshotFor(statementRows())

	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()
	suite.mockTxnRepo.On("DeleteByImport", ctx, suite.businessID, imp.ImportID).Return(nil).Once()
	suite.mockImportRepo.On("UpdateImport", ctx, mock.AnythingOfType("*domain.Import")).Return(nil)
	suite.mockTxnRepo.On("SaveTransactions", ctx, mock.AnythingOfType("[]domain.BankTransaction")).Return(nil).Once()

	processed, err := suite.service.ProcessImport(ctx, suite.businessID, imp.ImportID)

	suite.Require().NoError(err)
	suite.Equal(domain.ImportCompleted, processed.Status)
	suite.Equal(2, processed.ImportedRows)
	suite.mockTxnRepo.AssertExpectations(suite.T())
}

func (suite *ImportServiceTestSuite) TestProcessImport_PersistenceFailureFailsImport() {
	ctx := context.Background()
	imp := mappedImport(suite.businessID)
	imp.RowSnapshot = suite.snapshotFor(statementRows())

	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()
	suite.mockImportRepo.On("UpdateImport", ctx, mock.AnythingOfType("*domain.Import")).Return(nil)
	suite.mockTxnRepo.On("SaveTransactions", ctx, mock.AnythingOfType("[]domain.BankTransaction")).
		Return(assertableError("connection lost")).Once()

	processed, err := suite.service.ProcessImport(ctx, suite.businessID, imp.ImportID)

	suite.Require().Error(err)
	suite.Equal(domain.ImportFailed, processed.Status)
	suite.NotEmpty(processed.ErrorMessage)
}

// --- DeleteImport ---

func (suite *ImportServiceTestSuite) TestDeleteImport_RefusedWithMatchedTransactions() {
	ctx := context.Background()
	imp := mappedImport(suite.businessID)
	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()
	suite.mockTxnRepo.On("CountMatchedByImport", ctx, suite.businessID, imp.ImportID).Return(3, nil).Once()

	err := suite.service.DeleteImport(ctx, suite.businessID, imp.ImportID)

	var bizErr *apperrors.BusinessError
	suite.Require().ErrorAs(err, &bizErr)
	suite.Equal(apperrors.BusinessHasMatchedTransactions, bizErr.Code)
	suite.Contains(bizErr.Detail, "3")
	suite.mockImportRepo.AssertNotCalled(suite.T(), "DeleteImport", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ImportServiceTestSuite) TestDeleteImport_Cascades() {
	ctx := context.Background()
	imp := mappedImport(suite.businessID)
	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, imp.ImportID).Return(imp, nil).Once()
	suite.mockTxnRepo.On("CountMatchedByImport", ctx, suite.businessID, imp.ImportID).Return(0, nil).Once()
	suite.mockImportRepo.On("DeleteImport", ctx, suite.businessID, imp.ImportID).Return(nil).Once()

	err := suite.service.DeleteImport(ctx, suite.businessID, imp.ImportID)

	suite.Require().NoError(err)
	suite.mockImportRepo.AssertExpectations(suite.T())
}

func (suite *ImportServiceTestSuite) TestGetImport_NotFoundPassesThrough() {
	ctx := context.Background()
	suite.mockImportRepo.On("FindImportByID", ctx, suite.businessID, "missing").Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.GetImport(ctx, suite.businessID, "missing")

	suite.ErrorIs(err, apperrors.ErrNotFound)
}

type assertableError string

func (e assertableError) Error() string { return string(e) }

func TestImportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ImportServiceTestSuite))
}
