// backend/src/model/expense.go
package model

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a manually tracked cost (fuel, maintenance, supplies). Expenses
// take part in backup restores but never in statement parsing.
type Expense struct {
	ID          int64           `json:"id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DuplicateKey is the restore-time matching key: same calendar day, same
// category, same description.
func (e *Expense) DuplicateKey() string {
	return e.Date.UTC().Format("2006-01-02") + "|" + e.Category + "|" + e.Description
}

const expenseColumns = `id, date, category, description, amount, created_at, updated_at`

func scanExpense(row interface{ Scan(...any) error }) (*Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Date, &e.Category, &e.Description, &e.Amount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts the expense and backfills its ID.
func (e *Expense) Create(db *sql.DB) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	return e.insert(db)
}

func (e *Expense) insert(ex execer) error {
	res, err := ex.Exec(`
	INSERT INTO expenses (date, category, description, amount, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		e.Date, e.Category, e.Description, e.Amount, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// InsertExpenseTx inserts an expense inside an open reconciliation transaction.
func InsertExpenseTx(tx *sql.Tx, e *Expense) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	return e.insert(tx)
}

// UpdateExpenseTx overwrites an expense's mutable fields inside a
// reconciliation transaction.
func UpdateExpenseTx(tx *sql.Tx, e *Expense) error {
	_, err := tx.Exec(`
	UPDATE expenses SET date = ?, category = ?, description = ?, amount = ?, updated_at = ?
	WHERE id = ?`,
		e.Date, e.Category, e.Description, e.Amount, time.Now().UTC(), e.ID,
	)
	return err
}

// DeleteAllExpensesTx wipes the expense table for a ReplaceAll restore.
func DeleteAllExpensesTx(tx *sql.Tx) error {
	_, err := tx.Exec(`DELETE FROM expenses`)
	return err
}

// ListExpenses returns every expense ordered by date then id.
func ListExpenses(db *sql.DB) ([]Expense, error) {
	rows, err := db.Query(`SELECT ` + expenseColumns + ` FROM expenses ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}
