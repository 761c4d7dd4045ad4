package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
	"github.com/reconlab/bank_recon_app/internal/dto"
	"github.com/reconlab/bank_recon_app/internal/middleware"
)

// reconciliationHandler handles the matching actions on a bank transaction.
type reconciliationHandler struct {
	reconciliationService portssvc.ReconciliationSvcFacade
}

func newReconciliationHandler(reconciliationService portssvc.ReconciliationSvcFacade) *reconciliationHandler {
	return &reconciliationHandler{reconciliationService: reconciliationService}
}

// suggest godoc
// @Summary Rank match candidates for a transaction
// @Description Scores nearby unreconciled expenses (for debits) or open invoices (for credits) and returns candidates above the confidence floor, best first
// @Tags reconciliation
// @Produce json
// @Param transactionID path string true "Transaction ID"
// @Param limit query int false "Maximum candidates (default 5)"
// @Success 200 {object} dto.SuggestionsResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction not in a suggestible state"
// @Router /transactions/{transactionID}/suggestions [get]
func (h *reconciliationHandler) suggest(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	transactionID := c.Param("transactionID")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	candidates, err := h.reconciliationService.Suggest(c.Request.Context(), businessID, transactionID, limit)
	if err != nil {
		respondWithError(c, logger, err, "Failed to compute suggestions")
		return
	}

	logger.Debug("Suggestions computed",
		slog.String("transaction_id", transactionID), slog.Int("candidates", len(candidates)))
	c.JSON(http.StatusOK, dto.SuggestionsResponse{
		TransactionID: transactionID,
		Candidates:    dto.ToMatchCandidateResponses(candidates),
	})
}

// match godoc
// @Summary Match a transaction to an accounting record
// @Description Marks the transaction MATCHED against the named expense or invoice. Matching an expense also flags it reconciled in the accounting store.
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param transactionID path string true "Transaction ID"
// @Param match body dto.MatchRequest true "Record to match against"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string "Transaction or record not found"
// @Failure 409 {object} map[string]string "Transaction already matched"
// @Router /transactions/{transactionID}/match [post]
func (h *reconciliationHandler) match(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for match", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	txn, err := h.reconciliationService.Match(c.Request.Context(), businessID, c.Param("transactionID"), req.RecordType, req.RecordID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to match transaction")
		return
	}

	logger.Info("Transaction matched",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("record_type", string(req.RecordType)),
		slog.String("record_id", req.RecordID))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// unmatch godoc
// @Summary Undo a match or an ignore
// @Description Returns the transaction to UNMATCHED and clears the match fields. Unmatching an expense also clears its reconciled flag.
// @Tags reconciliation
// @Produce json
// @Param transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 409 {object} map[string]string "Transaction not matched or ignored"
// @Router /transactions/{transactionID}/unmatch [post]
func (h *reconciliationHandler) unmatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	txn, err := h.reconciliationService.Unmatch(c.Request.Context(), businessID, c.Param("transactionID"))
	if err != nil {
		respondWithError(c, logger, err, "Failed to unmatch transaction")
		return
	}

	logger.Info("Transaction unmatched", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// ignore godoc
// @Summary Exclude a transaction from reconciliation
// @Description Marks an unmatched transaction IGNORED so it stops appearing in reconciliation work queues
// @Tags reconciliation
// @Produce json
// @Param transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 409 {object} map[string]string "Transaction not in UNMATCHED"
// @Router /transactions/{transactionID}/ignore [post]
func (h *reconciliationHandler) ignore(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	txn, err := h.reconciliationService.Ignore(c.Request.Context(), businessID, c.Param("transactionID"))
	if err != nil {
		respondWithError(c, logger, err, "Failed to ignore transaction")
		return
	}

	logger.Info("Transaction ignored", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}
