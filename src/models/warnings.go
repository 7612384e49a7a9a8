// backend/src/models/warnings.go
package models

import "fmt"

// WarningCode classifies non-fatal problems accumulated during an import.
type WarningCode string

const (
	// WarnRowParseFailure: one row-group could not yield a transaction and
	// was dropped. The import continues.
	WarnRowParseFailure WarningCode = "row_parse_failure"
	// WarnAmbiguousYear: the year inferencer saw a month outside the
	// statement period and defaulted to the period's start year.
	WarnAmbiguousYear WarningCode = "ambiguous_year"
	// WarnMatchAmbiguity: more than one shift window covered a transaction;
	// the tie-break rule picked one.
	WarnMatchAmbiguity WarningCode = "match_ambiguity"
	// WarnAmountFallback: fewer amounts than the column layout expects; the
	// first available amount was used.
	WarnAmountFallback WarningCode = "amount_fallback"
	// WarnMissingEventTime: the row-group carried no event date-time, so
	// shift attribution falls back to the posting time.
	WarnMissingEventTime WarningCode = "missing_event_time"
	// WarnEventAfterPosting: the event time came out later than the posting
	// time, which is chronologically impossible; the event time was dropped.
	WarnEventAfterPosting WarningCode = "event_after_posting"
	// WarnDateOutsidePeriod: a row's posting date falls outside the declared
	// statement period. The row is kept under that period but flagged.
	WarnDateOutsidePeriod WarningCode = "date_outside_period"
)

// ImportWarning is one accumulated, non-fatal import problem. Warnings are
// surfaced as a summary to the caller, never silently swallowed.
type ImportWarning struct {
	Code     WarningCode `json:"code"`
	RowIndex int         `json:"row_index"`
	Message  string      `json:"message"`
}

func (w ImportWarning) String() string {
	return fmt.Sprintf("row %d: %s: %s", w.RowIndex, w.Code, w.Message)
}

// DocumentStructureError is fatal for the whole document: no recognizable
// transaction table was found, and nothing is partially applied.
type DocumentStructureError struct {
	Reason string
}

func (e *DocumentStructureError) Error() string {
	return "unrecognized statement structure: " + e.Reason
}
