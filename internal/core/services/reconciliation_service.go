package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
	"github.com/reconlab/bank_recon_app/internal/middleware"
)

// Scoring constant table. The weights are deliberately explicit values, not
// control flow, so they stay independently testable and tunable.
const (
	suggestionFloor       = 60
	defaultMaxSuggestions = 5
	dateToleranceDays     = 3

	amountExactPts = 40
	amountNearPts  = 35
	amountClosePts = 25

	dateSameDayPts = 30
	dateOneDayPts  = 25
	dateWindowPts  = 20

	textStrongPts   = 30 // three or more shared description tokens
	textSharedPts   = 20 // at least one shared significant token
	counterpartyPts = 15 // counterparty name appears in the description
	textCapPts      = 30

	// minTokenLen filters noise words before token overlap is counted.
	minTokenLen = 4
)

var (
	amountNearUnit  = decimal.NewFromInt(1)
	amountCloseFrac = decimal.NewFromFloat(0.05)
)

// reconciliationService drives the per-transaction matching state machine.
type reconciliationService struct {
	txnRepo  portsrepo.TransactionRepository
	acctRepo portsrepo.AccountingRepository
	now      func() time.Time
}

// NewReconciliationService creates the reconciliation matcher.
func NewReconciliationService(txnRepo portsrepo.TransactionRepository, acctRepo portsrepo.AccountingRepository) portssvc.ReconciliationSvcFacade {
	return &reconciliationService{
		txnRepo:  txnRepo,
		acctRepo: acctRepo,
		now:      time.Now,
	}
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

// Suggest queries unreconciled expenses (debits) or open invoices (credits)
// inside the date tolerance window, scores each candidate and returns the
// ranked shortlist. The transaction moves to SUGGESTED with the top
// confidence recorded when candidates are found.
func (s *reconciliationService) Suggest(ctx context.Context, businessID, transactionID string, limit int) ([]domain.MatchCandidate, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	txn, err := s.txnRepo.FindTransactionByID(ctx, businessID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.TxnUnmatched && txn.Status != domain.TxnSuggested {
		return nil, apperrors.NewBusinessError(apperrors.BusinessInvalidTransition,
			fmt.Sprintf("suggestions are not available for a %s transaction", txn.Status))
	}
	if limit <= 0 {
		limit = defaultMaxSuggestions
	}

	from := txn.TransactionDate.AddDate(0, 0, -dateToleranceDays)
	to := txn.TransactionDate.AddDate(0, 0, dateToleranceDays)

	var candidates []domain.MatchCandidate
	if txn.IsDebit() {
		expenses, err := s.acctRepo.FindUnreconciledExpenses(ctx, businessID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to query candidate expenses: %w", err)
		}
		for _, expense := range expenses {
			confidence := scoreCandidate(txn, expense.Amount, expense.ExpenseDate, expense.Description, expense.Counterparty)
			if confidence >= suggestionFloor {
				candidates = append(candidates, domain.MatchCandidate{
					RecordType:   domain.MatchExpense,
					RecordID:     expense.ExpenseID,
					Description:  expense.Description,
					Counterparty: expense.Counterparty,
					Amount:       expense.Amount,
					RecordDate:   expense.ExpenseDate,
					Confidence:   confidence,
				})
			}
		}
	} else {
		invoices, err := s.acctRepo.FindOpenInvoices(ctx, businessID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to query candidate invoices: %w", err)
		}
		for _, invoice := range invoices {
			confidence := scoreCandidate(txn, invoice.Amount, invoice.InvoiceDate, invoice.Description, invoice.Counterparty)
			if confidence >= suggestionFloor {
				candidates = append(candidates, domain.MatchCandidate{
					RecordType:   domain.MatchInvoice,
					RecordID:     invoice.InvoiceID,
					Description:  invoice.Description,
					Counterparty: invoice.Counterparty,
					Amount:       invoice.Amount,
					RecordDate:   invoice.InvoiceDate,
					Confidence:   confidence,
				})
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].RecordID < candidates[j].RecordID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	if len(candidates) > 0 && txn.Status == domain.TxnUnmatched {
		expected := txn.Status
		top := candidates[0].Confidence
		txn.Status = domain.TxnSuggested
		txn.MatchConfidence = &top
		txn.LastUpdatedAt = s.now()
		if err := s.txnRepo.UpdateMatchState(ctx, txn, expected); err != nil {
			return nil, err
		}
	}

	logger.Debug("Suggestions generated",
		slog.String("transaction_id", transactionID),
		slog.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// Match links the transaction to exactly one accounting record. A matched
// expense is flagged reconciled; invoices carry no flag here because their
// payment status is owned by a separate system.
func (s *reconciliationService) Match(ctx context.Context, businessID, transactionID string, recordType domain.MatchRecordType, recordID string) (*domain.BankTransaction, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, businessID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status == domain.TxnMatched {
		return nil, apperrors.NewBusinessError(apperrors.BusinessAlreadyMatched, "transaction is already matched")
	}
	if !txn.Status.CanTransition(domain.TxnMatched) {
		return nil, apperrors.NewBusinessError(apperrors.BusinessInvalidTransition,
			fmt.Sprintf("a %s transaction cannot be matched", txn.Status))
	}
	if !recordType.Valid() {
		return nil, fmt.Errorf("%w: unknown record type %q", apperrors.ErrValidation, recordType)
	}

	switch recordType {
	case domain.MatchExpense:
		expense, err := s.acctRepo.FindExpenseByID(ctx, businessID, recordID)
		if err != nil {
			return nil, err
		}
		// An expense reconciles against exactly one transaction. Rejecting a
		// reconciled expense here keeps the flag's pre-match state always
		// false, so Unmatch can clear it unconditionally.
		if expense.Reconciled {
			return nil, apperrors.NewBusinessError(apperrors.BusinessAlreadyMatched,
				fmt.Sprintf("expense %s is already reconciled against another transaction", recordID))
		}
		txn.MatchedExpenseID = &recordID
		txn.MatchedInvoiceID = nil
	case domain.MatchInvoice:
		if _, err := s.acctRepo.FindInvoiceByID(ctx, businessID, recordID); err != nil {
			return nil, err
		}
		txn.MatchedInvoiceID = &recordID
		txn.MatchedExpenseID = nil
	}

	expected := txn.Status
	confidence := 100
	txn.Status = domain.TxnMatched
	txn.MatchConfidence = &confidence
	txn.LastUpdatedAt = s.now()
	if err := s.txnRepo.UpdateMatchState(ctx, txn, expected); err != nil {
		return nil, err
	}

	if recordType == domain.MatchExpense {
		if err := s.acctRepo.SetExpenseReconciled(ctx, businessID, recordID, true); err != nil {
			return nil, fmt.Errorf("failed to flag expense reconciled: %w", err)
		}
	}
	return txn, nil
}

// Unmatch reverts a matched transaction to UNMATCHED, restoring the matched
// expense's reconciled flag. It also lifts an IGNORED transaction back to
// UNMATCHED, the only other reverse transition the state machine allows.
func (s *reconciliationService) Unmatch(ctx context.Context, businessID, transactionID string) (*domain.BankTransaction, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, businessID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.TxnMatched && txn.Status != domain.TxnIgnored {
		return nil, apperrors.NewBusinessError(apperrors.BusinessInvalidTransition,
			fmt.Sprintf("a %s transaction cannot be unmatched", txn.Status))
	}

	matchedExpenseID := txn.MatchedExpenseID
	expected := txn.Status
	txn.Status = domain.TxnUnmatched
	txn.MatchedExpenseID = nil
	txn.MatchedInvoiceID = nil
	txn.MatchConfidence = nil
	txn.LastUpdatedAt = s.now()
	if err := s.txnRepo.UpdateMatchState(ctx, txn, expected); err != nil {
		return nil, err
	}

	if matchedExpenseID != nil {
		if err := s.acctRepo.SetExpenseReconciled(ctx, businessID, *matchedExpenseID, false); err != nil {
			return nil, fmt.Errorf("failed to clear expense reconciled flag: %w", err)
		}
	}
	return txn, nil
}

// Ignore excludes an unmatched transaction from further matching.
func (s *reconciliationService) Ignore(ctx context.Context, businessID, transactionID string) (*domain.BankTransaction, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, businessID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.TxnUnmatched {
		return nil, apperrors.NewBusinessError(apperrors.BusinessInvalidTransition,
			fmt.Sprintf("only an unmatched transaction can be ignored, not %s", txn.Status))
	}

	expected := txn.Status
	txn.Status = domain.TxnIgnored
	txn.MatchConfidence = nil
	txn.LastUpdatedAt = s.now()
	if err := s.txnRepo.UpdateMatchState(ctx, txn, expected); err != nil {
		return nil, err
	}
	return txn, nil
}

// scoreCandidate combines the three weighted components: amount closeness,
// date proximity and description/party overlap.
func scoreCandidate(txn *domain.BankTransaction, amount decimal.Decimal, recordDate time.Time, description, counterparty string) int {
	return amountScore(txn.Amount(), amount) +
		dateScore(txn.TransactionDate, recordDate) +
		textScore(txn.Description, description, counterparty)
}

func amountScore(txnAmount, candidateAmount decimal.Decimal) int {
	diff := txnAmount.Sub(candidateAmount).Abs()
	switch {
	case diff.IsZero():
		return amountExactPts
	case diff.LessThanOrEqual(amountNearUnit):
		return amountNearPts
	case !candidateAmount.IsZero() && diff.Div(candidateAmount.Abs()).LessThanOrEqual(amountCloseFrac):
		return amountClosePts
	default:
		return 0
	}
}

func dateScore(txnDate, recordDate time.Time) int {
	days := daysApart(txnDate, recordDate)
	switch {
	case days == 0:
		return dateSameDayPts
	case days == 1:
		return dateOneDayPts
	case days <= dateToleranceDays:
		return dateWindowPts
	default:
		return 0
	}
}

func daysApart(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	diff := int(da.Sub(db).Hours() / 24)
	if diff < 0 {
		diff = -diff
	}
	return diff
}

// textScore counts shared significant description tokens and checks whether
// the counterparty name appears in the transaction description. The combined
// contribution is capped.
func textScore(txnDescription, candidateDescription, counterparty string) int {
	shared := sharedTokens(txnDescription, candidateDescription)
	score := 0
	switch {
	case shared >= 3:
		score = textStrongPts
	case shared >= 1:
		score = textSharedPts
	}
	if counterparty != "" && strings.Contains(strings.ToLower(txnDescription), strings.ToLower(counterparty)) {
		score += counterpartyPts
	}
	if score > textCapPts {
		score = textCapPts
	}
	return score
}

func sharedTokens(a, b string) int {
	tokens := make(map[string]bool)
	for _, token := range significantTokens(a) {
		tokens[token] = true
	}
	shared := 0
	seen := make(map[string]bool)
	for _, token := range significantTokens(b) {
		if tokens[token] && !seen[token] {
			seen[token] = true
			shared++
		}
	}
	return shared
}

func significantTokens(s string) []string {
	var tokens []string
	for _, token := range strings.Fields(strings.ToLower(s)) {
		if len(token) >= minTokenLen {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
