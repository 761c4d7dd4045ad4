package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MatchRecordType identifies which kind of accounting record a transaction is
// matched against.
type MatchRecordType string

const (
	MatchExpense MatchRecordType = "expense"
	MatchInvoice MatchRecordType = "invoice"
)

// Valid reports whether the record type is one the matcher understands.
func (t MatchRecordType) Valid() bool {
	return t == MatchExpense || t == MatchInvoice
}

// Expense is the accounting-store view of an expense record. Matching a
// debit transaction against an expense flips its Reconciled flag.
type Expense struct {
	ExpenseID    string          `json:"expenseID"`
	BusinessID   string          `json:"businessID"`
	Description  string          `json:"description"`
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
	ExpenseDate  time.Time       `json:"expenseDate"`
	Reconciled   bool            `json:"reconciled"`
}

// Invoice is the accounting-store view of an open invoice. Invoices carry no
// reconciled flag here; their payment status is owned by a separate system.
type Invoice struct {
	InvoiceID    string          `json:"invoiceID"`
	BusinessID   string          `json:"businessID"`
	Description  string          `json:"description"`
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
	InvoiceDate  time.Time       `json:"invoiceDate"`
}

// MatchCandidate is an ephemeral scored pairing of one bank transaction with
// one accounting record. Candidates are produced as query results only and
// are never persisted.
type MatchCandidate struct {
	RecordType   MatchRecordType `json:"recordType"`
	RecordID     string          `json:"recordID"`
	Description  string          `json:"description"`
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
	RecordDate   time.Time       `json:"recordDate"`
	Confidence   int             `json:"confidence"` // 0-100
}
