package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationStatus is the matching state of one bank transaction.
type ReconciliationStatus string

const (
	TxnUnmatched ReconciliationStatus = "UNMATCHED"
	TxnSuggested ReconciliationStatus = "SUGGESTED"
	TxnMatched   ReconciliationStatus = "MATCHED"
	TxnIgnored   ReconciliationStatus = "IGNORED"
)

// reconciliationTransitions is the allowed-transition table for transaction
// matching. MATCHED cannot reach IGNORED directly; it must pass through an
// explicit unmatch first.
var reconciliationTransitions = map[ReconciliationStatus][]ReconciliationStatus{
	TxnUnmatched: {TxnSuggested, TxnMatched, TxnIgnored},
	TxnSuggested: {TxnSuggested, TxnMatched, TxnUnmatched},
	TxnMatched:   {TxnUnmatched},
	TxnIgnored:   {TxnUnmatched},
}

// CanTransition reports whether the reconciliation state machine permits
// moving from one status to another.
func (s ReconciliationStatus) CanTransition(to ReconciliationStatus) bool {
	for _, next := range reconciliationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// BankTransaction is one parsed, persisted bank-statement line item.
// Exactly one of DebitAmount/CreditAmount is set. MatchedExpenseID and
// MatchedInvoiceID are never both non-nil, and MatchConfidence is set only
// while the status is SUGGESTED or MATCHED. Description and Reference are
// encrypted at rest; the repository stores ciphertext, services see plaintext.
type BankTransaction struct {
	TransactionID    string               `json:"transactionID"`
	ImportID         string               `json:"importID"`
	BusinessID       string               `json:"businessID"`
	TransactionDate  time.Time            `json:"transactionDate"`
	Description      string               `json:"description"`
	Reference        string               `json:"reference,omitempty"`
	DebitAmount      *decimal.Decimal     `json:"debitAmount,omitempty"`
	CreditAmount     *decimal.Decimal     `json:"creditAmount,omitempty"`
	Balance          *decimal.Decimal     `json:"balance,omitempty"`
	Status           ReconciliationStatus `json:"status"`
	MatchedExpenseID *string              `json:"matchedExpenseID,omitempty"`
	MatchedInvoiceID *string              `json:"matchedInvoiceID,omitempty"`
	MatchConfidence  *int                 `json:"matchConfidence,omitempty"`
	AuditFields
}

// Amount returns the transaction's single magnitude regardless of side.
func (t *BankTransaction) Amount() decimal.Decimal {
	if t.DebitAmount != nil {
		return *t.DebitAmount
	}
	if t.CreditAmount != nil {
		return *t.CreditAmount
	}
	return decimal.Zero
}

// IsDebit reports whether the transaction is money leaving the account.
func (t *BankTransaction) IsDebit() bool {
	return t.DebitAmount != nil
}
