// backend/src/handlers/transaction_handler.go
package handlers

import (
	"net/http"

	"github.com/username/shiftledger/backend/src/database"
	"github.com/username/shiftledger/backend/src/logger"
	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/models"
	"github.com/username/shiftledger/backend/src/utils"
)

type TransactionHandler struct{}

func NewTransactionHandler() *TransactionHandler {
	return &TransactionHandler{}
}

// HandleListTransactions returns persisted statement transactions, optionally
// filtered to one statement period via the "period" query parameter.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	periodID := r.URL.Query().Get("period")
	txs, err := model.ListStatementTransactions(database.DB, periodID)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list statement transactions", "period", periodID, "error", err)
		utils.SendJSONError(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []models.ParsedTransaction{}
	}
	utils.WriteJSON(w, http.StatusOK, txs)
}
