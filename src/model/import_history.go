// backend/src/model/import_history.go
package model

import (
	"database/sql"
	"time"
)

// ImportRecord is one row of the import audit log.
type ImportRecord struct {
	ID              int64     `json:"id"`
	BatchID         string    `json:"batch_id"`
	Source          string    `json:"source"` // statement_tokens, statement_csv, restore_shifts, restore_expenses
	Filename        string    `json:"filename"`
	StatementPeriod string    `json:"statement_period,omitempty"`
	MergeDecision   string    `json:"merge_decision"`
	Added           int       `json:"added"`
	Updated         int       `json:"updated"`
	Skipped         int       `json:"skipped"`
	WarningCount    int       `json:"warning_count"`
	ConflictCount   int       `json:"conflict_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// InsertImportRecordTx appends to the audit log inside the import transaction,
// so history never records an import that rolled back.
func InsertImportRecordTx(tx *sql.Tx, r *ImportRecord) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	res, err := tx.Exec(`
	INSERT INTO imports_history
		(batch_id, source, filename, statement_period, merge_decision,
		 added, updated, skipped, warning_count, conflict_count, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.BatchID, r.Source, r.Filename, r.StatementPeriod, r.MergeDecision,
		r.Added, r.Updated, r.Skipped, r.WarningCount, r.ConflictCount, r.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// ListImportHistory returns the audit log, newest first.
func ListImportHistory(db *sql.DB) ([]ImportRecord, error) {
	rows, err := db.Query(`
	SELECT id, batch_id, source, filename, statement_period, merge_decision,
	       added, updated, skipped, warning_count, conflict_count, created_at
	FROM imports_history ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []ImportRecord
	for rows.Next() {
		var r ImportRecord
		if err := rows.Scan(
			&r.ID, &r.BatchID, &r.Source, &r.Filename, &r.StatementPeriod, &r.MergeDecision,
			&r.Added, &r.Updated, &r.Skipped, &r.WarningCount, &r.ConflictCount, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
