// backend/src/utils/http.go
package utils

import (
	"encoding/json"
	"net/http"

	"github.com/username/shiftledger/backend/src/logger"
)

// JSONErrorResponse is the uniform error envelope for API responses.
type JSONErrorResponse struct {
	Error string `json:"error"`
}

// SendJSONError writes a JSON error envelope with the given status code.
func SendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(JSONErrorResponse{Error: message}); err != nil {
		logger.L.Error("Failed to encode JSON error response", "error", err, "message", message)
	}
}

// WriteJSON writes any payload as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Failed to encode JSON response", "error", err)
	}
}
