// backend/src/handlers/conflict_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/shiftledger/backend/src/database"
	"github.com/username/shiftledger/backend/src/logger"
	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/models"
	"github.com/username/shiftledger/backend/src/services"
	"github.com/username/shiftledger/backend/src/utils"
)

type ConflictHandler struct {
	importService services.ImportService
}

func NewConflictHandler(service services.ImportService) *ConflictHandler {
	return &ConflictHandler{
		importService: service,
	}
}

// HandleListConflicts returns every conflict still waiting on a user decision.
func (h *ConflictHandler) HandleListConflicts(w http.ResponseWriter, r *http.Request) {
	conflicts, err := model.ListUnresolvedConflicts(database.DB)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list conflicts", "error", err)
		utils.SendJSONError(w, "Failed to list conflicts", http.StatusInternalServerError)
		return
	}
	if conflicts == nil {
		conflicts = []models.ValueConflict{}
	}
	utils.WriteJSON(w, http.StatusOK, conflicts)
}

type resolveConflictRequest struct {
	Resolution string `json:"resolution"`
}

// HandleResolveConflict applies the user's keep-manual or accept-imported
// decision to one conflict.
func (h *ConflictHandler) HandleResolveConflict(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid conflict id", http.StatusBadRequest)
		return
	}

	var req resolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxLogger.Warn("Failed to decode conflict resolution request", "conflictID", id, "error", err)
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	resolution, err := models.ParseConflictResolution(req.Resolution)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resolved, err := h.importService.ResolveConflict(id, resolution)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConflictNotFound):
			utils.SendJSONError(w, "Conflict not found", http.StatusNotFound)
		case errors.Is(err, services.ErrConflictAlreadyResolved):
			utils.SendJSONError(w, "Conflict is already resolved", http.StatusConflict)
		default:
			ctxLogger.Error("Failed to resolve conflict", "conflictID", id, "error", err)
			utils.SendJSONError(w, "Failed to resolve conflict", http.StatusInternalServerError)
		}
		return
	}
	utils.WriteJSON(w, http.StatusOK, resolved)
}
