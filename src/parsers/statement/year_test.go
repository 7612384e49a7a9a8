// backend/src/parsers/statement/year_test.go
package statement

import (
	"testing"
	"time"

	"github.com/username/shiftledger/backend/src/models"
)

func mustPeriod(t *testing.T, start, end string) models.StatementPeriod {
	t.Helper()
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		t.Fatal(err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		t.Fatal(err)
	}
	p, err := models.NewStatementPeriod(s, e)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestInferYear(t *testing.T) {
	sameYear := mustPeriod(t, "2025-06-01", "2025-06-07")
	crossYear := mustPeriod(t, "2024-12-29", "2025-01-05")

	tests := []struct {
		name     string
		month    time.Month
		period   models.StatementPeriod
		wantYear int
		wantOK   bool
	}{
		{"same-year period uses its year", time.June, sameYear, 2025, true},
		{"same-year period even for out-of-range month", time.January, sameYear, 2025, true},
		{"cross-year december belongs to start year", time.December, crossYear, 2024, true},
		{"cross-year january belongs to end year", time.January, crossYear, 2025, true},
		{"cross-year month outside both ranges is ambiguous", time.June, crossYear, 2024, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, ok := InferYear(tt.month, tt.period)
			if year != tt.wantYear || ok != tt.wantOK {
				t.Errorf("InferYear(%s) = (%d, %v), want (%d, %v)",
					tt.month, year, ok, tt.wantYear, tt.wantOK)
			}
		})
	}
}
