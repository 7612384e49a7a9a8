// backend/src/handlers/shift_handler.go
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/username/shiftledger/backend/src/database"
	"github.com/username/shiftledger/backend/src/logger"
	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/utils"
)

type ShiftHandler struct{}

func NewShiftHandler() *ShiftHandler {
	return &ShiftHandler{}
}

// HandleListShifts returns every shift, ordered by start time.
func (h *ShiftHandler) HandleListShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := model.ListShifts(database.DB)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list shifts", "error", err)
		utils.SendJSONError(w, "Failed to list shifts", http.StatusInternalServerError)
		return
	}
	if shifts == nil {
		shifts = []model.Shift{}
	}
	utils.WriteJSON(w, http.StatusOK, shifts)
}

// HandleGetShift returns one shift by id.
func (h *ShiftHandler) HandleGetShift(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid shift id", http.StatusBadRequest)
		return
	}
	shift, err := model.GetShiftByID(database.DB, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.SendJSONError(w, "Shift not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to fetch shift", "shiftID", id, "error", err)
		utils.SendJSONError(w, "Failed to fetch shift", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, shift)
}

// HandleCreateShift records a manually entered shift. Open shifts (no end
// time yet) are accepted; they only become matchable once closed.
func (h *ShiftHandler) HandleCreateShift(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var shift model.Shift
	if err := json.NewDecoder(r.Body).Decode(&shift); err != nil {
		ctxLogger.Warn("Failed to decode shift create request", "error", err)
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if shift.StartAt.IsZero() {
		utils.SendJSONError(w, "start_at is required", http.StatusBadRequest)
		return
	}
	if shift.EndAt.Valid && shift.EndAt.Time.Before(shift.StartAt) {
		utils.SendJSONError(w, "end_at must not be before start_at", http.StatusBadRequest)
		return
	}
	if shift.OdometerStart < 0 {
		utils.SendJSONError(w, "odometer_start must not be negative", http.StatusBadRequest)
		return
	}

	shift.ID = 0
	if err := shift.Create(database.DB); err != nil {
		ctxLogger.Error("Failed to create shift", "error", err)
		utils.SendJSONError(w, "Failed to create shift", http.StatusInternalServerError)
		return
	}
	ctxLogger.Info("Shift created", "shiftID", shift.ID, "startAt", shift.StartAt)
	utils.WriteJSON(w, http.StatusCreated, shift)
}
