// backend/src/processors/shift_matcher_test.go
package processors

import (
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/shiftledger/backend/src/logger"
	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func closedShift(id int64, start, end time.Time) model.Shift {
	return model.Shift{
		ID:      id,
		StartAt: start,
		EndAt:   model.NullTime(sql.NullTime{Time: end, Valid: true}),
	}
}

func txAt(rowIndex int, eventAt time.Time, amount string) models.ParsedTransaction {
	ev := eventAt
	return models.ParsedTransaction{
		SourceRowIndex: rowIndex,
		PostedAt:       eventAt.Add(2 * time.Hour),
		EventAt:        &ev,
		Amount:         decimal.RequireFromString(amount),
	}
}

func TestMatchWindowBoundaries(t *testing.T) {
	m := NewShiftMatcher(4 * time.Hour)
	start := time.Date(2025, time.June, 2, 18, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.June, 3, 2, 0, 0, 0, time.UTC)
	shifts := []model.Shift{closedShift(1, start, end)}

	tests := []struct {
		name      string
		eventAt   time.Time
		wantMatch bool
	}{
		{"inside window", end.Add(-time.Hour), true},
		{"exactly at start minus offset", start.Add(-4 * time.Hour), true},
		{"exactly at end plus offset", end.Add(4 * time.Hour), true},
		{"one minute before shifted start", start.Add(-4*time.Hour - time.Minute), false},
		{"one minute after shifted end", end.Add(4*time.Hour + time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := m.Match([]models.ParsedTransaction{txAt(0, tt.eventAt, "10.00")}, shifts)
			if got := len(result.Matched) == 1; got != tt.wantMatch {
				t.Errorf("matched = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestMatchIgnoresOpenShifts(t *testing.T) {
	m := NewShiftMatcher(0) // default offset
	start := time.Date(2025, time.June, 2, 18, 0, 0, 0, time.UTC)
	open := model.Shift{ID: 1, StartAt: start}

	result := m.Match([]models.ParsedTransaction{txAt(0, start.Add(time.Hour), "10.00")}, []model.Shift{open})
	if len(result.Matched) != 0 {
		t.Errorf("open shift owned a transaction: %+v", result.Matched)
	}
	if len(result.Unmatched) != 1 {
		t.Errorf("got %d unmatched, want 1", len(result.Unmatched))
	}
}

func TestMatchPrefersClosestStart(t *testing.T) {
	m := NewShiftMatcher(4 * time.Hour)
	day := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	shifts := []model.Shift{
		closedShift(1, day.Add(8*time.Hour), day.Add(14*time.Hour)),
		closedShift(2, day.Add(12*time.Hour), day.Add(20*time.Hour)),
	}
	// 13:00 sits inside both windows; shift 2's start (12:00) is closer than
	// shift 1's (08:00).
	result := m.Match([]models.ParsedTransaction{txAt(0, day.Add(13*time.Hour), "10.00")}, shifts)
	if len(result.Matched) != 1 {
		t.Fatalf("got %d matched, want 1", len(result.Matched))
	}
	if result.Matched[0].ShiftID != 2 {
		t.Errorf("assigned shift %d, want 2", result.Matched[0].ShiftID)
	}
	if len(result.Warnings) == 0 || result.Warnings[0].Code != models.WarnMatchAmbiguity {
		t.Errorf("overlap warning missing, got %v", result.Warnings)
	}
	if result.Matched[0].Transaction.OwnerShiftID == nil || *result.Matched[0].Transaction.OwnerShiftID != 2 {
		t.Errorf("owner shift id not set on transaction")
	}
}

func TestMatchTieBreaksByLowestID(t *testing.T) {
	m := NewShiftMatcher(4 * time.Hour)
	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	shifts := []model.Shift{
		closedShift(7, start, end),
		closedShift(3, start, end),
	}
	result := m.Match([]models.ParsedTransaction{txAt(0, start.Add(time.Hour), "10.00")}, shifts)
	if len(result.Matched) != 1 || result.Matched[0].ShiftID != 3 {
		t.Fatalf("tie not broken by lowest id: %+v", result.Matched)
	}
}

func TestMatchIsDeterministicAcrossInputOrder(t *testing.T) {
	m := NewShiftMatcher(4 * time.Hour)
	day := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	a := closedShift(1, day.Add(8*time.Hour), day.Add(14*time.Hour))
	b := closedShift(2, day.Add(12*time.Hour), day.Add(20*time.Hour))
	txs := []models.ParsedTransaction{txAt(0, day.Add(13*time.Hour), "10.00")}

	first := m.Match(txs, []model.Shift{a, b})
	second := m.Match(txs, []model.Shift{b, a})
	if first.Matched[0].ShiftID != second.Matched[0].ShiftID {
		t.Errorf("assignment depends on shift input order: %d vs %d",
			first.Matched[0].ShiftID, second.Matched[0].ShiftID)
	}
}

func TestMatchFallsBackToPostingTime(t *testing.T) {
	m := NewShiftMatcher(4 * time.Hour)
	start := time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC)
	shifts := []model.Shift{closedShift(1, start, start.Add(8*time.Hour))}

	tx := models.ParsedTransaction{
		SourceRowIndex: 0,
		PostedAt:       start.Add(2 * time.Hour),
		Amount:         decimal.RequireFromString("10.00"),
	}
	result := m.Match([]models.ParsedTransaction{tx}, shifts)
	if len(result.Matched) != 1 {
		t.Fatalf("transaction without event time not matched on posting time")
	}
}

func TestSuggestMissingShifts(t *testing.T) {
	day1 := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, time.June, 3, 0, 0, 0, 0, time.UTC)
	unmatched := []models.ParsedTransaction{
		txAt(0, day2.Add(9*time.Hour), "5.00"),
		txAt(1, day1.Add(18*time.Hour), "10.00"),
		txAt(2, day1.Add(21*time.Hour), "7.50"),
	}
	templates := SuggestMissingShifts(unmatched)
	if len(templates) != 2 {
		t.Fatalf("got %d templates, want 2", len(templates))
	}
	first := templates[0]
	if first.Date != "2025-06-02" {
		t.Errorf("templates not sorted by date, first = %s", first.Date)
	}
	if first.TransactionCount != 2 {
		t.Errorf("transaction count = %d, want 2", first.TransactionCount)
	}
	if !first.TotalAmount.Equal(decimal.RequireFromString("17.50")) {
		t.Errorf("total amount = %s, want 17.50", first.TotalAmount)
	}
	if !first.SuggestedStartAt.Equal(day1.Add(18*time.Hour)) || !first.SuggestedEndAt.Equal(day1.Add(21*time.Hour)) {
		t.Errorf("suggested span = [%s, %s], want day's transaction span", first.SuggestedStartAt, first.SuggestedEndAt)
	}
}
