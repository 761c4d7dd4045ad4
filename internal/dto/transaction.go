package dto

import (
	"time"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ListTransactionsRequest filters a tenant-scoped transaction listing.
type ListTransactionsRequest struct {
	ImportID  string `form:"importID"`
	Status    string `form:"status" binding:"omitempty,reconstatus"`
	DateFrom  string `form:"from" time_format:"2006-01-02"`
	DateTo    string `form:"to" time_format:"2006-01-02"`
	Limit     int    `form:"limit,default=50" binding:"omitempty,min=1,max=500"`
	NextToken string `form:"nextToken"`
}

// TransactionResponse is the external view of a bank transaction.
type TransactionResponse struct {
	TransactionID    string                      `json:"transactionID"`
	ImportID         string                      `json:"importID"`
	TransactionDate  time.Time                   `json:"transactionDate"`
	Description      string                      `json:"description"`
	Reference        string                      `json:"reference,omitempty"`
	DebitAmount      *decimal.Decimal            `json:"debitAmount,omitempty"`
	CreditAmount     *decimal.Decimal            `json:"creditAmount,omitempty"`
	Balance          *decimal.Decimal            `json:"balance,omitempty"`
	Status           domain.ReconciliationStatus `json:"status"`
	MatchedExpenseID *string                     `json:"matchedExpenseID,omitempty"`
	MatchedInvoiceID *string                     `json:"matchedInvoiceID,omitempty"`
	MatchConfidence  *int                        `json:"matchConfidence,omitempty"`
}

// ToTransactionResponse converts a domain.BankTransaction to its response DTO.
func ToTransactionResponse(txn *domain.BankTransaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:    txn.TransactionID,
		ImportID:         txn.ImportID,
		TransactionDate:  txn.TransactionDate,
		Description:      txn.Description,
		Reference:        txn.Reference,
		DebitAmount:      txn.DebitAmount,
		CreditAmount:     txn.CreditAmount,
		Balance:          txn.Balance,
		Status:           txn.Status,
		MatchedExpenseID: txn.MatchedExpenseID,
		MatchedInvoiceID: txn.MatchedInvoiceID,
		MatchConfidence:  txn.MatchConfidence,
	}
}

// ToTransactionResponses converts a slice of transactions.
func ToTransactionResponses(txns []domain.BankTransaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i := range txns {
		responses[i] = ToTransactionResponse(&txns[i])
	}
	return responses
}

// ListTransactionsResponse is a paginated transaction listing.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    string                `json:"nextToken,omitempty"`
}
