// backend/src/parsers/statement/csv_test.go
package statement

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/shiftledger/backend/src/models"
)

func TestParseCSV(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	data := strings.Join([]string{
		"Processed At,Event At,Description,Earnings,Refunds",
		"2025-06-02 15:42:00,2025-06-01 23:54:00,Trip earnings,15.00,2.00",
		"2025-06-03 09:00:00,,Transfer to bank,120.00,",
		"not-a-timestamp,,broken row,5.00,",
	}, "\n")

	txs, warnings, err := ParseCSV(strings.NewReader(data), period)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2 (broken row dropped)", len(txs))
	}

	first := txs[0]
	wantPosted := time.Date(2025, time.June, 2, 15, 42, 0, 0, time.UTC)
	if !first.PostedAt.Equal(wantPosted) {
		t.Errorf("posted at = %s, want %s", first.PostedAt, wantPosted)
	}
	wantEvent := time.Date(2025, time.June, 1, 23, 54, 0, 0, time.UTC)
	if first.EventAt == nil || !first.EventAt.Equal(wantEvent) {
		t.Errorf("event at = %v, want %s", first.EventAt, wantEvent)
	}
	if !first.Amount.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("amount = %s, want 15.00", first.Amount)
	}
	if !first.SecondaryAmount.Valid || !first.SecondaryAmount.Decimal.Equal(decimal.RequireFromString("2.00")) {
		t.Errorf("secondary amount = %+v, want valid 2.00", first.SecondaryAmount)
	}
	if first.NeedsReview {
		t.Error("clean csv row flagged for review")
	}

	second := txs[1]
	if second.EventAt != nil {
		t.Errorf("event at = %v, want nil", second.EventAt)
	}
	if !second.NeedsReview {
		t.Error("row without event timestamp not flagged for review")
	}

	if !hasWarning(warnings, models.WarnMissingEventTime) {
		t.Error("missing event time warning not raised")
	}
	if !hasWarning(warnings, models.WarnRowParseFailure) {
		t.Error("row parse failure warning not raised for broken timestamp")
	}
}

func TestParseCSVEventAfterPosting(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	data := strings.Join([]string{
		"processed_at,event_at,description,earnings",
		"2025-06-02 15:42:00,2025-06-03 01:00:00,Trip earnings,15.00",
	}, "\n")

	txs, warnings, err := ParseCSV(strings.NewReader(data), period)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if txs[0].EventAt != nil {
		t.Errorf("event at = %v, want nil (event after posting)", txs[0].EventAt)
	}
	if !hasWarning(warnings, models.WarnEventAfterPosting) {
		t.Error("event-after-posting warning not raised")
	}
	if !txs[0].NeedsReview {
		t.Error("event-after-posting row not flagged for review")
	}
}

func TestParseCSVDateOutsidePeriod(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	data := strings.Join([]string{
		"processed_at,event_at,description,earnings",
		"2025-06-15 10:00:00,2025-06-15 08:00:00,Trip earnings,12.00",
		"2025-06-07 23:30:00,2025-06-07 21:00:00,Trip earnings,9.00",
	}, "\n")

	txs, warnings, err := ParseCSV(strings.NewReader(data), period)
	if err != nil {
		t.Fatalf("ParseCSV returned error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if !txs[0].NeedsReview {
		t.Error("row dated outside the period not flagged for review")
	}
	if txs[0].StatementPeriod != period.ID() {
		t.Errorf("statement period = %q, want %q", txs[0].StatementPeriod, period.ID())
	}
	if !hasWarning(warnings, models.WarnDateOutsidePeriod) {
		t.Error("date-outside-period warning not raised")
	}
	// The period's end day is inclusive.
	if txs[1].NeedsReview {
		t.Error("row on the period's last day flagged for review")
	}
}

func TestParseCSVMissingRequiredColumn(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	tests := []struct {
		name   string
		header string
	}{
		{"no posted column", "event_at,description,earnings\n"},
		{"no earnings column", "processed_at,description\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseCSV(strings.NewReader(tt.header), period)
			var structureErr *models.DocumentStructureError
			if !errors.As(err, &structureErr) {
				t.Fatalf("err = %v, want *models.DocumentStructureError", err)
			}
		})
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	txs, warnings, err := ParseCSV(strings.NewReader(""), period)
	if txs != nil || warnings != nil || err != nil {
		t.Errorf("ParseCSV(empty) = (%v, %v, %v), want (nil, nil, nil)", txs, warnings, err)
	}
}
