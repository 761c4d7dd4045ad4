package dto

import (
	"time"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// MatchRequest links a transaction to one accounting record.
type MatchRequest struct {
	RecordType domain.MatchRecordType `json:"recordType" binding:"required,oneof=expense invoice"`
	RecordID   string                 `json:"recordID" binding:"required"`
}

// MatchCandidateResponse is one scored suggestion.
type MatchCandidateResponse struct {
	RecordType   domain.MatchRecordType `json:"recordType"`
	RecordID     string                 `json:"recordID"`
	Description  string                 `json:"description"`
	Counterparty string                 `json:"counterparty"`
	Amount       decimal.Decimal        `json:"amount"`
	RecordDate   time.Time              `json:"recordDate"`
	Confidence   int                    `json:"confidence"`
}

// ToMatchCandidateResponses converts scored candidates.
func ToMatchCandidateResponses(candidates []domain.MatchCandidate) []MatchCandidateResponse {
	responses := make([]MatchCandidateResponse, len(candidates))
	for i, c := range candidates {
		responses[i] = MatchCandidateResponse{
			RecordType:   c.RecordType,
			RecordID:     c.RecordID,
			Description:  c.Description,
			Counterparty: c.Counterparty,
			Amount:       c.Amount,
			RecordDate:   c.RecordDate,
			Confidence:   c.Confidence,
		}
	}
	return responses
}

// SuggestionsResponse is the ranked candidate list for one transaction.
type SuggestionsResponse struct {
	TransactionID string                   `json:"transactionID"`
	Candidates    []MatchCandidateResponse `json:"candidates"`
}
