// backend/src/parsers/statement/year.go
package statement

import (
	"time"

	"github.com/username/shiftledger/backend/src/models"
)

// InferYear resolves the calendar year for a month seen inside a statement.
//
// When the statement period sits inside a single calendar year, that year is
// used unconditionally. When the period crosses a year boundary, months from
// the period's start month through December belong to the start year and
// months from January through the period's end month belong to the end year.
//
// A month outside both ranges is malformed input: the start year is returned
// with ok=false, and the caller must attach an ambiguous-year warning rather
// than treat the resolution as correct.
func InferYear(month time.Month, period models.StatementPeriod) (year int, ok bool) {
	if !period.SpansYearBoundary() {
		return period.Start.Year(), true
	}
	if month >= period.Start.Month() && month <= time.December {
		return period.Start.Year(), true
	}
	if month >= time.January && month <= period.End.Month() {
		return period.End.Year(), true
	}
	return period.Start.Year(), false
}
