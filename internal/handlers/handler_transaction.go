package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portsrepo "github.com/reconlab/bank_recon_app/internal/core/ports/repositories"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
	"github.com/reconlab/bank_recon_app/internal/dto"
	"github.com/reconlab/bank_recon_app/internal/middleware"
)

// transactionHandler handles HTTP reads over imported bank transactions.
type transactionHandler struct {
	transactionService portssvc.TransactionSvcFacade
}

func newTransactionHandler(transactionService portssvc.TransactionSvcFacade) *transactionHandler {
	return &transactionHandler{transactionService: transactionService}
}

// listTransactions godoc
// @Summary List bank transactions
// @Description Lists the caller's transactions newest first, filterable by import, status and date range
// @Tags transactions
// @Produce json
// @Param importID query string false "Filter by import"
// @Param status query string false "Filter by reconciliation status"
// @Param from query string false "Transactions on or after this date (YYYY-MM-DD)"
// @Param to query string false "Transactions on or before this date (YYYY-MM-DD)"
// @Param limit query int false "Page size (default 50, max 500)"
// @Param nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 400 {object} map[string]string "Invalid filter"
// @Router /transactions [get]
func (h *transactionHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		logger.Warn("Failed to bind query for listTransactions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	filter, err := buildTransactionFilter(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	txns, nextToken, err := h.transactionService.ListTransactions(c.Request.Context(), businessID, filter)
	if err != nil {
		respondWithError(c, logger, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.ToTransactionResponses(txns),
		NextToken:    nextToken,
	})
}

// getTransaction godoc
// @Summary Get one bank transaction
// @Tags transactions
// @Produce json
// @Param transactionID path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 404 {object} map[string]string "Transaction not found"
// @Router /transactions/{transactionID} [get]
func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	txn, err := h.transactionService.GetTransaction(c.Request.Context(), businessID, c.Param("transactionID"))
	if err != nil {
		respondWithError(c, logger, err, "Failed to retrieve transaction")
		return
	}
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// buildTransactionFilter converts the bound query DTO into a repository
// filter, validating status and date values on the way.
func buildTransactionFilter(req dto.ListTransactionsRequest) (portsrepo.ListTransactionsFilter, error) {
	filter := portsrepo.ListTransactionsFilter{
		ImportID:  req.ImportID,
		Limit:     req.Limit,
		NextToken: req.NextToken,
	}

	if req.Status != "" {
		// Value validity is enforced by the reconstatus binding validation.
		filter.Status = domain.ReconciliationStatus(req.Status)
	}

	if req.DateFrom != "" {
		from, err := time.Parse("2006-01-02", req.DateFrom)
		if err != nil {
			return filter, &filterError{"from must be formatted as YYYY-MM-DD"}
		}
		filter.DateFrom = &from
	}
	if req.DateTo != "" {
		to, err := time.Parse("2006-01-02", req.DateTo)
		if err != nil {
			return filter, &filterError{"to must be formatted as YYYY-MM-DD"}
		}
		filter.DateTo = &to
	}
	return filter, nil
}

type filterError struct {
	msg string
}

func (e *filterError) Error() string { return e.msg }

// registerTransactionRoutes registers transaction read routes plus the
// reconciliation actions nested under a transaction.
func registerTransactionRoutes(group *gin.RouterGroup, transactionService portssvc.TransactionSvcFacade, reconciliationService portssvc.ReconciliationSvcFacade) {
	txnHandler := newTransactionHandler(transactionService)
	reconHandler := newReconciliationHandler(reconciliationService)

	transactions := group.Group("/transactions")
	{
		transactions.GET("", txnHandler.listTransactions)
		transactions.GET("/:transactionID", txnHandler.getTransaction)
		transactions.GET("/:transactionID/suggestions", reconHandler.suggest)
		transactions.POST("/:transactionID/match", reconHandler.match)
		transactions.POST("/:transactionID/unmatch", reconHandler.unmatch)
		transactions.POST("/:transactionID/ignore", reconHandler.ignore)
	}
}
