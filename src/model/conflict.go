// backend/src/model/conflict.go
package model

import (
	"database/sql"
	"time"

	"github.com/username/shiftledger/backend/src/models"
)

const conflictColumns = `id, shift_id, field, manual_value, imported_value,
	created_at, resolved_at, resolution`

func scanConflict(row interface{ Scan(...any) error }) (*models.ValueConflict, error) {
	var c models.ValueConflict
	var field string
	var resolvedAt sql.NullTime
	var resolution sql.NullString
	err := row.Scan(
		&c.ID, &c.ShiftID, &field, &c.ManualValue, &c.ImportedValue,
		&c.CreatedAt, &resolvedAt, &resolution,
	)
	if err != nil {
		return nil, err
	}
	c.Field = models.ConflictField(field)
	if resolvedAt.Valid {
		rt := resolvedAt.Time
		c.ResolvedAt = &rt
	}
	c.Resolution = resolution.String
	return &c, nil
}

// InsertConflictTx records an unresolved imported-vs-manual conflict inside
// the import transaction.
func InsertConflictTx(tx *sql.Tx, c *models.ValueConflict) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := tx.Exec(`
	INSERT INTO value_conflicts (shift_id, field, manual_value, imported_value, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		c.ShiftID, string(c.Field), c.ManualValue, c.ImportedValue, c.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

// GetConflictByID fetches one conflict.
func GetConflictByID(db *sql.DB, id int64) (*models.ValueConflict, error) {
	row := db.QueryRow(`SELECT `+conflictColumns+` FROM value_conflicts WHERE id = ?`, id)
	return scanConflict(row)
}

// MarkConflictResolvedTx stamps a conflict with the user's decision.
func MarkConflictResolvedTx(tx *sql.Tx, id int64, resolution models.ConflictResolution) error {
	_, err := tx.Exec(
		`UPDATE value_conflicts SET resolved_at = ?, resolution = ? WHERE id = ?`,
		time.Now().UTC(), string(resolution), id,
	)
	return err
}

// ListUnresolvedConflicts returns every conflict still waiting on the user.
func ListUnresolvedConflicts(db *sql.DB) ([]models.ValueConflict, error) {
	rows, err := db.Query(`SELECT ` + conflictColumns + ` FROM value_conflicts
	WHERE resolved_at IS NULL ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var conflicts []models.ValueConflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, *c)
	}
	return conflicts, rows.Err()
}
