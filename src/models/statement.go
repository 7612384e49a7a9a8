// backend/src/models/statement.go
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StatementPeriod is the inclusive date range one imported statement covers.
// Invariant: Start <= End.
type StatementPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewStatementPeriod builds a period and normalizes both bounds to midnight UTC.
func NewStatementPeriod(start, end time.Time) (StatementPeriod, error) {
	s := truncateToDay(start)
	e := truncateToDay(end)
	if e.Before(s) {
		return StatementPeriod{}, fmt.Errorf("invalid statement period: end %s before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return StatementPeriod{Start: s, End: e}, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ID is the identifier persisted with every transaction of the period and
// used for duplicate-window detection on re-import.
func (p StatementPeriod) ID() string {
	return p.Start.Format("2006-01-02") + "_" + p.End.Format("2006-01-02")
}

// SpansYearBoundary reports whether the period crosses a calendar year.
func (p StatementPeriod) SpansYearBoundary() bool {
	return p.Start.Year() != p.End.Year()
}

// Contains reports whether t's calendar day falls inside the period. Both
// bounds are inclusive.
func (p StatementPeriod) Contains(t time.Time) bool {
	d := truncateToDay(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// ParsedTransaction is one transaction recovered from a statement row-group.
// It is created once by the parser and immutable afterwards except for
// OwnerShiftID (set exactly once by the shift matcher) and NeedsReview.
type ParsedTransaction struct {
	ID              int64               `json:"id,omitempty"`
	PostedAt        time.Time           `json:"posted_at"`
	EventAt         *time.Time          `json:"event_at,omitempty"`
	Label           string              `json:"label"`
	Amount          decimal.Decimal     `json:"amount"`
	SecondaryAmount decimal.NullDecimal `json:"secondary_amount,omitempty"`
	NeedsReview     bool                `json:"needs_review"`
	StatementPeriod string              `json:"statement_period"`
	OwnerShiftID    *int64              `json:"owner_shift_id,omitempty"`
	ImportedAt      time.Time           `json:"imported_at"`
	SourceRowIndex  int                 `json:"source_row_index"`
}

// MatchTime returns the timestamp used for shift attribution: the event time
// when the statement reported one, the posting time otherwise.
func (t ParsedTransaction) MatchTime() time.Time {
	if t.EventAt != nil {
		return *t.EventAt
	}
	return t.PostedAt
}
