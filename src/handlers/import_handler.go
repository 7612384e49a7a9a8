// backend/src/handlers/import_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/username/shiftledger/backend/src/config"
	"github.com/username/shiftledger/backend/src/database"
	"github.com/username/shiftledger/backend/src/logger"
	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/models"
	"github.com/username/shiftledger/backend/src/security/validation"
	"github.com/username/shiftledger/backend/src/services"
	"github.com/username/shiftledger/backend/src/utils"
)

type ImportHandler struct {
	importService services.ImportService
}

func NewImportHandler(service services.ImportService) *ImportHandler {
	return &ImportHandler{
		importService: service,
	}
}

type statementImportRequest struct {
	PeriodStart   string                  `json:"period_start"`
	PeriodEnd     string                  `json:"period_end"`
	MergeDecision string                  `json:"merge_decision"`
	Filename      string                  `json:"filename"`
	Tokens        []models.PositionedToken `json:"tokens"`
}

// parsePeriodParams validates the statement period pair shared by both import
// entry points.
func parsePeriodParams(startStr, endStr string) (models.StatementPeriod, error) {
	start, err := validation.ValidateDateString(startStr, "period_start")
	if err != nil {
		return models.StatementPeriod{}, err
	}
	end, err := validation.ValidateDateString(endStr, "period_end")
	if err != nil {
		return models.StatementPeriod{}, err
	}
	return models.NewStatementPeriod(start, end)
}

// HandleImportStatement ingests the positioned text tokens extracted from a
// statement document, paired with the user-declared statement period.
func (h *ImportHandler) HandleImportStatement(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxUploadSizeBytes)
	var req statementImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxLogger.Warn("Failed to decode statement import request", "error", err)
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	period, err := parsePeriodParams(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		ctxLogger.Warn("Invalid statement period in import request", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	decision, err := models.ParseMergeDecision(req.MergeDecision)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(req.Filename, validation.MaxFilenameLength, "filename"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.importService.ImportStatementTokens(req.Tokens, period, decision, validation.SanitizeLabel(req.Filename))
	if err != nil {
		h.sendImportError(w, ctxLogger, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

// HandleImportCSV ingests the platform's CSV export of a statement as a
// multipart upload.
func (h *ImportHandler) HandleImportCSV(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		ctxLogger.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse upload or file too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	period, err := parsePeriodParams(r.FormValue("period_start"), r.FormValue("period_end"))
	if err != nil {
		ctxLogger.Warn("Invalid statement period in csv import", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	decision, err := models.ParseMergeDecision(r.FormValue("merge_decision"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		ctxLogger.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := validation.ValidateStringMaxLength(fileHeader.Filename, validation.MaxFilenameLength, "filename"); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		ctxLogger.Warn("Uploaded file header reports size too large", "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		ctxLogger.Warn("Invalid client-declared file type", "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		ctxLogger.Warn("Server-side file content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctxLogger.Info("File content validated", "filename", fileHeader.Filename,
		"clientType", clientContentType, "detectedType", detectedContentType)

	result, err := h.importService.ImportStatementCSV(file, period, decision, validation.SanitizeLabel(fileHeader.Filename))
	if err != nil {
		h.sendImportError(w, ctxLogger, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

// HandleGetLatestImport returns the summary of the most recent import run.
func (h *ImportHandler) HandleGetLatestImport(w http.ResponseWriter, r *http.Request) {
	result, err := h.importService.GetLatestImportResult()
	if err != nil {
		if errors.Is(err, services.ErrNoImportsYet) {
			utils.SendJSONError(w, "No imports recorded yet", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to fetch latest import result", "error", err)
		utils.SendJSONError(w, "Failed to fetch latest import result", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

// HandleGetImportHistory returns the audit log of import and restore runs,
// most recent first.
func (h *ImportHandler) HandleGetImportHistory(w http.ResponseWriter, r *http.Request) {
	history, err := model.ListImportHistory(database.DB)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to fetch import history", "error", err)
		utils.SendJSONError(w, "Failed to fetch import history", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, history)
}

func (h *ImportHandler) sendImportError(w http.ResponseWriter, ctxLogger *slog.Logger, err error) {
	var structureErr *models.DocumentStructureError
	switch {
	case errors.Is(err, services.ErrParsingFailed) || errors.As(err, &structureErr):
		ctxLogger.Warn("Statement parsing failed", "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, services.ErrReconciliationFailed):
		ctxLogger.Error("Reconciliation failed", "error", err)
		utils.SendJSONError(w, "Failed to reconcile imported data", http.StatusInternalServerError)
	default:
		ctxLogger.Error("Import failed", "error", err)
		utils.SendJSONError(w, "Import failed", http.StatusInternalServerError)
	}
}
