// backend/src/handlers/restore_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/username/shiftledger/backend/src/config"
	"github.com/username/shiftledger/backend/src/logger"
	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/models"
	"github.com/username/shiftledger/backend/src/security/validation"
	"github.com/username/shiftledger/backend/src/services"
	"github.com/username/shiftledger/backend/src/utils"
)

type RestoreHandler struct {
	importService services.ImportService
}

func NewRestoreHandler(service services.ImportService) *RestoreHandler {
	return &RestoreHandler{
		importService: service,
	}
}

type restoreShiftsRequest struct {
	MergeDecision string        `json:"merge_decision"`
	Shifts        []model.Shift `json:"shifts"`
}

type restoreExpensesRequest struct {
	MergeDecision string          `json:"merge_decision"`
	Expenses      []model.Expense `json:"expenses"`
}

// HandleRestore ingests a backup batch of shifts or expenses under a merge
// decision. The kind URL parameter selects the record type.
func (h *RestoreHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	kind := chi.URLParam(r, "kind")

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxUploadSizeBytes)

	switch kind {
	case "shifts":
		var req restoreShiftsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ctxLogger.Warn("Failed to decode shift restore request", "error", err)
			utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		decision, err := models.ParseMergeDecision(req.MergeDecision)
		if err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i := range req.Shifts {
			if req.Shifts[i].StartAt.IsZero() {
				utils.SendJSONError(w, "every restored shift needs a start_at", http.StatusBadRequest)
				return
			}
		}
		result, err := h.importService.RestoreShifts(req.Shifts, decision)
		if err != nil {
			ctxLogger.Error("Shift restore failed", "error", err)
			utils.SendJSONError(w, "Failed to restore shifts", http.StatusInternalServerError)
			return
		}
		utils.WriteJSON(w, http.StatusOK, result)

	case "expenses":
		var req restoreExpensesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			ctxLogger.Warn("Failed to decode expense restore request", "error", err)
			utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		decision, err := models.ParseMergeDecision(req.MergeDecision)
		if err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i := range req.Expenses {
			req.Expenses[i].Category = validation.SanitizeLabel(req.Expenses[i].Category)
			req.Expenses[i].Description = validation.SanitizeLabel(req.Expenses[i].Description)
			if err := validation.ValidateStringNotEmpty(req.Expenses[i].Category, "category"); err != nil {
				utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := validation.ValidateStringMaxLength(req.Expenses[i].Category, validation.MaxCategoryLength, "category"); err != nil {
				utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := validation.ValidateStringMaxLength(req.Expenses[i].Description, validation.MaxDescriptionLength, "description"); err != nil {
				utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		result, err := h.importService.RestoreExpenses(req.Expenses, decision)
		if err != nil {
			ctxLogger.Error("Expense restore failed", "error", err)
			utils.SendJSONError(w, "Failed to restore expenses", http.StatusInternalServerError)
			return
		}
		utils.WriteJSON(w, http.StatusOK, result)

	default:
		utils.SendJSONError(w, "Unknown restore kind: "+kind, http.StatusNotFound)
	}
}
