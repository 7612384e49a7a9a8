// backend/src/model/shift.go
package model

import (
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Shift is one bounded work session. Tips and TollsReimbursed carry either a
// manually entered or an imported value; the OriginalX fields preserve the
// last manual value an import overwrote, and exist only so a conflict can be
// displayed. They are never part of duplicate matching.
type Shift struct {
	ID                      int64               `json:"id"`
	StartAt                 time.Time           `json:"start_at"`
	EndAt                   NullTime            `json:"end_at"`
	OdometerStart           float64             `json:"odometer_start"`
	Tips                    decimal.NullDecimal `json:"tips"`
	TollsReimbursed         decimal.NullDecimal `json:"tolls_reimbursed"`
	OriginalTips            decimal.NullDecimal `json:"original_tips"`
	OriginalTollsReimbursed decimal.NullDecimal `json:"original_tolls_reimbursed"`
	UserVerified            bool                `json:"user_verified"`
	CreatedAt               time.Time           `json:"created_at"`
	UpdatedAt               time.Time           `json:"updated_at"`
}

// NullTime is an alias for sql.NullTime with JSON-friendly marshalling.
type NullTime sql.NullTime

func (nt NullTime) MarshalJSON() ([]byte, error) {
	if !nt.Valid {
		return []byte("null"), nil
	}
	return nt.Time.MarshalJSON()
}

func (nt *NullTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*nt = NullTime{}
		return nil
	}
	var t time.Time
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	*nt = NullTime{Time: t, Valid: true}
	return nil
}

// IsClosed reports whether the shift has an end time and can own transactions.
func (s *Shift) IsClosed() bool {
	return s.EndAt.Valid
}

// DuplicateKey is the restore-time matching key: same calendar day of the
// start time plus the same starting odometer reading.
func (s *Shift) DuplicateKey() string {
	return s.StartAt.UTC().Format("2006-01-02") + "|" + decimal.NewFromFloat(s.OdometerStart).String()
}

const shiftColumns = `id, start_at, end_at, odometer_start, tips, tolls_reimbursed,
	original_tips, original_tolls_reimbursed, user_verified, created_at, updated_at`

func scanShift(row interface{ Scan(...any) error }) (*Shift, error) {
	var s Shift
	var endAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.StartAt, &endAt, &s.OdometerStart, &s.Tips, &s.TollsReimbursed,
		&s.OriginalTips, &s.OriginalTollsReimbursed, &s.UserVerified, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.EndAt = NullTime(endAt)
	return &s, nil
}

// Create inserts the shift and backfills its ID.
func (s *Shift) Create(db *sql.DB) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	return s.insert(db)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *Shift) insert(ex execer) error {
	var endAtArg any
	if s.EndAt.Valid {
		endAtArg = s.EndAt.Time
	}
	res, err := ex.Exec(`
	INSERT INTO shifts (start_at, end_at, odometer_start, tips, tolls_reimbursed,
		original_tips, original_tolls_reimbursed, user_verified, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.StartAt, endAtArg, s.OdometerStart, s.Tips, s.TollsReimbursed,
		s.OriginalTips, s.OriginalTollsReimbursed, s.UserVerified, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// InsertShiftTx inserts a shift inside an open reconciliation transaction.
func InsertShiftTx(tx *sql.Tx, s *Shift) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return s.insert(tx)
}

// UpdateShiftTx overwrites a shift's mutable fields inside a reconciliation
// transaction. The ID and CreatedAt are preserved.
func UpdateShiftTx(tx *sql.Tx, s *Shift) error {
	var endAtArg any
	if s.EndAt.Valid {
		endAtArg = s.EndAt.Time
	}
	_, err := tx.Exec(`
	UPDATE shifts
	SET start_at = ?, end_at = ?, odometer_start = ?, tips = ?, tolls_reimbursed = ?,
	    original_tips = ?, original_tolls_reimbursed = ?, user_verified = ?, updated_at = ?
	WHERE id = ?`,
		s.StartAt, endAtArg, s.OdometerStart, s.Tips, s.TollsReimbursed,
		s.OriginalTips, s.OriginalTollsReimbursed, s.UserVerified, time.Now().UTC(), s.ID,
	)
	return err
}

// UpdateShiftFieldTx writes one imported-vs-manual field after a conflict
// resolution or a silent import merge.
func UpdateShiftFieldTx(tx *sql.Tx, shiftID int64, column string, value, original decimal.NullDecimal) error {
	var query string
	switch column {
	case "tips":
		query = `UPDATE shifts SET tips = ?, original_tips = ?, updated_at = ? WHERE id = ?`
	case "tolls_reimbursed":
		query = `UPDATE shifts SET tolls_reimbursed = ?, original_tolls_reimbursed = ?, updated_at = ? WHERE id = ?`
	default:
		return errors.New("unknown shift import column: " + column)
	}
	_, err := tx.Exec(query, value, original, time.Now().UTC(), shiftID)
	return err
}

// DeleteAllShiftsTx wipes the shift table for a ReplaceAll restore.
func DeleteAllShiftsTx(tx *sql.Tx) error {
	_, err := tx.Exec(`DELETE FROM shifts`)
	return err
}

// GetShiftByID fetches a single shift.
func GetShiftByID(db *sql.DB, id int64) (*Shift, error) {
	row := db.QueryRow(`SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id)
	s, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	return s, err
}

// ListShifts returns every shift ordered by start time then id, so callers
// iterate deterministically regardless of insert order.
func ListShifts(db *sql.DB) ([]Shift, error) {
	rows, err := db.Query(`SELECT ` + shiftColumns + ` FROM shifts ORDER BY start_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var shifts []Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, *s)
	}
	return shifts, rows.Err()
}
