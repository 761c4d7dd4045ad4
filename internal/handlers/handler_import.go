package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reconlab/bank_recon_app/internal/core/domain"
	portssvc "github.com/reconlab/bank_recon_app/internal/core/ports/services"
	"github.com/reconlab/bank_recon_app/internal/dto"
	"github.com/reconlab/bank_recon_app/internal/middleware"
	"github.com/reconlab/bank_recon_app/internal/statement"
)

// importHandler handles HTTP requests for the statement import lifecycle.
type importHandler struct {
	importService portssvc.ImportSvcFacade
}

// newImportHandler creates a new importHandler.
func newImportHandler(importService portssvc.ImportSvcFacade) *importHandler {
	return &importHandler{importService: importService}
}

// createImport godoc
// @Summary Upload a bank statement file
// @Description Accepts a CSV or PDF statement, decodes it and opens a new import in MAPPING (or FAILED on a parse error)
// @Tags imports
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Statement file"
// @Param fileKind formData string true "File kind (csv or pdf)"
// @Param bankName formData string false "Issuing bank"
// @Success 201 {object} dto.ImportResponse
// @Failure 400 {object} map[string]string "Invalid upload or parse error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /imports [post]
func (h *importHandler) createImport(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		logger.Warn("Statement upload missing file part", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "A statement file is required"})
		return
	}

	kind := domain.FileKind(c.PostForm("fileKind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fileKind must be csv or pdf"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}
	defer file.Close()

	// One byte past the cap so the decoder can tell exactly-at-cap from over.
	data, err := io.ReadAll(io.LimitReader(file, statement.MaxFileBytes+1))
	if err != nil {
		logger.Error("Failed to read uploaded file", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}

	req := dto.CreateImportRequest{
		FileName: fileHeader.Filename,
		FileKind: kind,
		BankName: c.PostForm("bankName"),
		Data:     data,
	}

	imp, err := h.importService.CreateImport(c.Request.Context(), businessID, req)
	if err != nil {
		// A parse failure still produced a FAILED import the caller can inspect.
		if imp != nil {
			logger.Warn("Import failed during decode",
				slog.String("import_id", imp.ImportID), slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "import": dto.ToImportResponse(imp)})
			return
		}
		respondWithError(c, logger, err, "Failed to create import")
		return
	}

	logger.Info("Import created",
		slog.String("import_id", imp.ImportID), slog.String("status", string(imp.Status)))
	c.JSON(http.StatusCreated, dto.ToImportResponse(imp))
}

// getImport godoc
// @Summary Get one import
// @Tags imports
// @Produce json
// @Param importID path string true "Import ID"
// @Success 200 {object} dto.ImportResponse
// @Failure 404 {object} map[string]string "Import not found"
// @Router /imports/{importID} [get]
func (h *importHandler) getImport(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	imp, err := h.importService.GetImport(c.Request.Context(), businessID, c.Param("importID"))
	if err != nil {
		respondWithError(c, logger, err, "Failed to retrieve import")
		return
	}
	c.JSON(http.StatusOK, dto.ToImportResponse(imp))
}

// listImports godoc
// @Summary List imports for the caller's business
// @Tags imports
// @Produce json
// @Param limit query int false "Page size (default 50)"
// @Param nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListImportsResponse
// @Router /imports [get]
func (h *importHandler) listImports(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	imports, nextToken, err := h.importService.ListImports(c.Request.Context(), businessID, limit, c.Query("nextToken"))
	if err != nil {
		respondWithError(c, logger, err, "Failed to list imports")
		return
	}
	c.JSON(http.StatusOK, dto.ListImportsResponse{Imports: dto.ToImportResponses(imports), NextToken: nextToken})
}

// submitMapping godoc
// @Summary Submit or replace the import's column mapping
// @Description Replaces the mapping wholesale. Legal only before row import starts.
// @Tags imports
// @Accept json
// @Produce json
// @Param importID path string true "Import ID"
// @Param mapping body dto.SubmitMappingRequest true "Role to column-header assignments"
// @Success 200 {object} dto.ImportResponse
// @Failure 400 {object} map[string]string "Mandatory roles missing"
// @Failure 409 {object} map[string]string "Import not in a mappable state"
// @Router /imports/{importID}/mapping [put]
func (h *importHandler) submitMapping(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.SubmitMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for submitMapping", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	imp, err := h.importService.SubmitMapping(c.Request.Context(), businessID, c.Param("importID"), req.ToColumnMapping())
	if err != nil {
		respondWithError(c, logger, err, "Failed to submit mapping")
		return
	}

	logger.Info("Mapping submitted", slog.String("import_id", imp.ImportID))
	c.JSON(http.StatusOK, dto.ToImportResponse(imp))
}

// processImport godoc
// @Summary Run the row import for a mapped statement
// @Description Normalizes every decoded row and persists the resulting transactions. Returns the completed import with row-error samples.
// @Tags imports
// @Produce json
// @Param importID path string true "Import ID"
// @Success 200 {object} dto.ImportResponse
// @Failure 409 {object} map[string]string "Import busy or not mappable"
// @Router /imports/{importID}/process [post]
func (h *importHandler) processImport(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	imp, err := h.importService.ProcessImport(c.Request.Context(), businessID, c.Param("importID"))
	if err != nil {
		respondWithError(c, logger, err, "Failed to process import")
		return
	}

	logger.Info("Import processed",
		slog.String("import_id", imp.ImportID),
		slog.Int("total_rows", imp.TotalRows),
		slog.Int("imported_rows", imp.ImportedRows))
	c.JSON(http.StatusOK, dto.ToImportResponse(imp))
}

// deleteImport godoc
// @Summary Delete an import and its transactions
// @Description Refused while any of the import's transactions is matched.
// @Tags imports
// @Produce json
// @Param importID path string true "Import ID"
// @Success 204 "Deleted"
// @Failure 409 {object} map[string]string "Import has matched transactions"
// @Router /imports/{importID} [delete]
func (h *importHandler) deleteImport(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	businessID, ok := middleware.GetBusinessIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.importService.DeleteImport(c.Request.Context(), businessID, c.Param("importID")); err != nil {
		respondWithError(c, logger, err, "Failed to delete import")
		return
	}

	logger.Info("Import deleted", slog.String("import_id", c.Param("importID")))
	c.Status(http.StatusNoContent)
}

// registerImportRoutes registers import lifecycle routes.
func registerImportRoutes(group *gin.RouterGroup, importService portssvc.ImportSvcFacade) {
	handler := newImportHandler(importService)

	imports := group.Group("/imports")
	{
		imports.POST("", handler.createImport)
		imports.GET("", handler.listImports)
		imports.GET("/:importID", handler.getImport)
		imports.PUT("/:importID/mapping", handler.submitMapping)
		imports.POST("/:importID/process", handler.processImport)
		imports.DELETE("/:importID", handler.deleteImport)
	}
}
