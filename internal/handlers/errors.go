package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reconlab/bank_recon_app/internal/apperrors"
)

// respondWithError maps service-layer errors onto HTTP responses. Parse and
// validation failures are client errors, business-rule violations conflicts,
// anything unrecognized a 500 with the fallback message.
func respondWithError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	var parseErr *apperrors.ParseError
	if errors.As(err, &parseErr) {
		logger.Warn("Parse error", slog.String("code", string(parseErr.Code)), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": parseErr.Error(), "code": string(parseErr.Code)})
		return
	}

	var bizErr *apperrors.BusinessError
	if errors.As(err, &bizErr) {
		logger.Warn("Business rule violation", slog.String("code", string(bizErr.Code)), slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": bizErr.Error(), "code": string(bizErr.Code)})
		return
	}

	if errors.Is(err, apperrors.ErrValidation) {
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
		return
	}

	logger.Error(fallback, slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}
