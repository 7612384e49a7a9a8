// backend/src/handlers/expense_handler.go
package handlers

import (
	"net/http"

	"github.com/username/shiftledger/backend/src/database"
	"github.com/username/shiftledger/backend/src/logger"
	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/utils"
)

type ExpenseHandler struct{}

func NewExpenseHandler() *ExpenseHandler {
	return &ExpenseHandler{}
}

// HandleListExpenses returns every expense, ordered by date.
func (h *ExpenseHandler) HandleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := model.ListExpenses(database.DB)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list expenses", "error", err)
		utils.SendJSONError(w, "Failed to list expenses", http.StatusInternalServerError)
		return
	}
	if expenses == nil {
		expenses = []model.Expense{}
	}
	utils.WriteJSON(w, http.StatusOK, expenses)
}
