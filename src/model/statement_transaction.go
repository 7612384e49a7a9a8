// backend/src/model/statement_transaction.go
package model

import (
	"database/sql"

	"github.com/username/shiftledger/backend/src/models"
)

const statementTxColumns = `id, posted_at, event_at, label, amount, secondary_amount,
	needs_review, statement_period, owner_shift_id, imported_at, source_row_index`

func scanStatementTx(row interface{ Scan(...any) error }) (*models.ParsedTransaction, error) {
	var t models.ParsedTransaction
	var eventAt sql.NullTime
	var ownerShiftID sql.NullInt64
	err := row.Scan(
		&t.ID, &t.PostedAt, &eventAt, &t.Label, &t.Amount, &t.SecondaryAmount,
		&t.NeedsReview, &t.StatementPeriod, &ownerShiftID, &t.ImportedAt, &t.SourceRowIndex,
	)
	if err != nil {
		return nil, err
	}
	if eventAt.Valid {
		et := eventAt.Time
		t.EventAt = &et
	}
	if ownerShiftID.Valid {
		id := ownerShiftID.Int64
		t.OwnerShiftID = &id
	}
	return &t, nil
}

// InsertStatementTransactionTx persists one parsed transaction inside the
// import's reconciliation transaction.
func InsertStatementTransactionTx(tx *sql.Tx, t *models.ParsedTransaction) error {
	var eventAtArg, ownerArg any
	if t.EventAt != nil {
		eventAtArg = *t.EventAt
	}
	if t.OwnerShiftID != nil {
		ownerArg = *t.OwnerShiftID
	}
	res, err := tx.Exec(`
	INSERT INTO statement_transactions
		(posted_at, event_at, label, amount, secondary_amount, needs_review,
		 statement_period, owner_shift_id, imported_at, source_row_index)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.PostedAt, eventAtArg, t.Label, t.Amount, t.SecondaryAmount, t.NeedsReview,
		t.StatementPeriod, ownerArg, t.ImportedAt, t.SourceRowIndex,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

// UpdateStatementTransactionTx overwrites the mutable fields of a transaction
// matched during a MergeAndUpdate run.
func UpdateStatementTransactionTx(tx *sql.Tx, t *models.ParsedTransaction) error {
	var eventAtArg, ownerArg any
	if t.EventAt != nil {
		eventAtArg = *t.EventAt
	}
	if t.OwnerShiftID != nil {
		ownerArg = *t.OwnerShiftID
	}
	_, err := tx.Exec(`
	UPDATE statement_transactions
	SET posted_at = ?, event_at = ?, label = ?, amount = ?, secondary_amount = ?,
	    needs_review = ?, owner_shift_id = ?, imported_at = ?
	WHERE statement_period = ? AND source_row_index = ?`,
		t.PostedAt, eventAtArg, t.Label, t.Amount, t.SecondaryAmount,
		t.NeedsReview, ownerArg, t.ImportedAt,
		t.StatementPeriod, t.SourceRowIndex,
	)
	return err
}

// DeleteStatementPeriodTx removes every transaction of one statement period.
// Run inside the import transaction so a replace-and-reinsert is atomic.
func DeleteStatementPeriodTx(tx *sql.Tx, periodID string) error {
	_, err := tx.Exec(`DELETE FROM statement_transactions WHERE statement_period = ?`, periodID)
	return err
}

// CountStatementPeriodTx reports how many transactions of a period are
// already persisted, which is the duplicate-window check for AddMissingOnly.
func CountStatementPeriodTx(tx *sql.Tx, periodID string) (int, error) {
	var n int
	err := tx.QueryRow(`SELECT COUNT(*) FROM statement_transactions WHERE statement_period = ?`, periodID).Scan(&n)
	return n, err
}

// StatementTransactionExistsTx checks the per-record duplicate key
// (period + source row index) used by MergeAndUpdate.
func StatementTransactionExistsTx(tx *sql.Tx, periodID string, sourceRowIndex int) (bool, error) {
	var n int
	err := tx.QueryRow(
		`SELECT COUNT(*) FROM statement_transactions WHERE statement_period = ? AND source_row_index = ?`,
		periodID, sourceRowIndex,
	).Scan(&n)
	return n > 0, err
}

// ClearShiftOwnershipTx detaches every transaction from its shift. Used when
// a full-replace restore discards the shift set the attributions pointed at.
func ClearShiftOwnershipTx(tx *sql.Tx) error {
	_, err := tx.Exec(`UPDATE statement_transactions SET owner_shift_id = NULL WHERE owner_shift_id IS NOT NULL`)
	return err
}

// ListStatementTransactions returns persisted transactions, optionally
// filtered to one statement period, ordered by posting time then row index.
func ListStatementTransactions(db *sql.DB, periodID string) ([]models.ParsedTransaction, error) {
	query := `SELECT ` + statementTxColumns + ` FROM statement_transactions`
	var args []any
	if periodID != "" {
		query += ` WHERE statement_period = ?`
		args = append(args, periodID)
	}
	query += ` ORDER BY posted_at ASC, source_row_index ASC`
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txs []models.ParsedTransaction
	for rows.Next() {
		t, err := scanStatementTx(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}
