// backend/src/parsers/statement/parser_test.go
package statement

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/shiftledger/backend/src/models"
)

var (
	sixColumnHeader  = []string{"Processed", "Event", "Description", "Earnings", "Refunds", "Balance"}
	fiveColumnHeader = []string{"Processed", "Event", "Description", "Earnings", "Balance"}
)

func buildDocument(header []string, rows ...[]string) []models.PositionedToken {
	tokens := lineTokens(1000, header...)
	y := 950.0
	for _, row := range rows {
		tokens = append(tokens, lineTokens(y, row...)...)
		y -= 50
	}
	return tokens
}

func hasWarning(warnings []models.ImportWarning, code models.WarningCode) bool {
	for _, w := range warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func TestParseEmptyTokens(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	txs, warnings, err := Parse(nil, period)
	if txs != nil || warnings != nil || err != nil {
		t.Errorf("Parse(nil) = (%v, %v, %v), want (nil, nil, nil)", txs, warnings, err)
	}
}

func TestParseNoHeaderFailsWhole(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	tokens := lineTokens(1000, "Weekly summary", "for your records")
	_, _, err := Parse(tokens, period)
	var structureErr *models.DocumentStructureError
	if !errors.As(err, &structureErr) {
		t.Fatalf("err = %v, want *models.DocumentStructureError", err)
	}
}

func TestParseSixColumnRow(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	tokens := buildDocument(sixColumnHeader,
		[]string{"Mon, Jun 2", "3:42 PM", "Jun 1 11:54 PM", "Trip earnings", "$15.00", "$2.00", "$17.00"},
	)
	txs, warnings, err := Parse(tokens, period)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	tx := txs[0]
	if !tx.Amount.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("amount = %s, want 15.00", tx.Amount)
	}
	if !tx.SecondaryAmount.Valid || !tx.SecondaryAmount.Decimal.Equal(decimal.RequireFromString("2.00")) {
		t.Errorf("secondary amount = %+v, want valid 2.00", tx.SecondaryAmount)
	}
	wantPosted := time.Date(2025, time.June, 2, 15, 42, 0, 0, time.UTC)
	if !tx.PostedAt.Equal(wantPosted) {
		t.Errorf("posted at = %s, want %s", tx.PostedAt, wantPosted)
	}
	wantEvent := time.Date(2025, time.June, 1, 23, 54, 0, 0, time.UTC)
	if tx.EventAt == nil || !tx.EventAt.Equal(wantEvent) {
		t.Errorf("event at = %v, want %s", tx.EventAt, wantEvent)
	}
	if tx.Label != "Trip earnings" {
		t.Errorf("label = %q, want %q", tx.Label, "Trip earnings")
	}
	if tx.NeedsReview {
		t.Error("clean row unexpectedly flagged for review")
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestParseEqualRefundIsExtractionArtifact(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	tokens := buildDocument(sixColumnHeader,
		[]string{"Mon, Jun 2", "3:42 PM", "Jun 2 2:10 PM", "Trip earnings", "$15.00", "$15.00", "$30.00"},
	)
	txs, _, err := Parse(tokens, period)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	tx := txs[0]
	if !tx.Amount.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("amount = %s, want 15.00", tx.Amount)
	}
	if !tx.SecondaryAmount.Valid || !tx.SecondaryAmount.Decimal.IsZero() {
		t.Errorf("secondary amount = %+v, want valid zero", tx.SecondaryAmount)
	}
}

func TestParsePayoutRowSkipsBalance(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	tokens := buildDocument(fiveColumnHeader,
		[]string{"Tue, Jun 3", "9:00 AM", "Transfer to bank account", "$120.00", "$380.00"},
	)
	txs, warnings, err := Parse(tokens, period)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	tx := txs[0]
	if !tx.Amount.Equal(decimal.RequireFromString("120.00")) {
		t.Errorf("amount = %s, want 120.00 (balance must never be the amount)", tx.Amount)
	}
	if tx.SecondaryAmount.Valid {
		t.Errorf("payout row has secondary amount %+v", tx.SecondaryAmount)
	}
	// Payout rows carry no event time; attribution degrades to posting time.
	if !hasWarning(warnings, models.WarnMissingEventTime) {
		t.Error("missing event time warning not raised")
	}
	if !tx.NeedsReview {
		t.Error("payout row without event time not flagged for review")
	}
	if !tx.MatchTime().Equal(tx.PostedAt) {
		t.Errorf("match time = %s, want posted %s", tx.MatchTime(), tx.PostedAt)
	}
}

func TestParseMissingClockDefaultsToMidnight(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	tokens := buildDocument(fiveColumnHeader,
		[]string{"Wed, Jun 4", "Jun 4 1:05 PM", "Trip earnings", "$10.00", "$400.00"},
	)
	txs, _, err := Parse(tokens, period)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	tx := txs[0]
	wantPosted := time.Date(2025, time.June, 4, 0, 0, 0, 0, time.UTC)
	if !tx.PostedAt.Equal(wantPosted) {
		t.Errorf("posted at = %s, want midnight %s", tx.PostedAt, wantPosted)
	}
	if !tx.NeedsReview {
		t.Error("row without posted time not flagged for review")
	}
}

func TestParseAmbiguousYearFlagsRow(t *testing.T) {
	period := mustPeriod(t, "2024-12-29", "2025-01-05")
	tokens := buildDocument(fiveColumnHeader,
		[]string{"Mon, Jun 2", "3:42 PM", "Jun 2 2:10 PM", "Trip earnings", "$15.00", "$115.00"},
	)
	txs, warnings, err := Parse(tokens, period)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	tx := txs[0]
	if tx.PostedAt.Year() != 2024 {
		t.Errorf("posted year = %d, want fallback start year 2024", tx.PostedAt.Year())
	}
	if !hasWarning(warnings, models.WarnAmbiguousYear) {
		t.Error("ambiguous year warning not raised")
	}
	if !tx.NeedsReview {
		t.Error("ambiguous year row not flagged for review")
	}
}

func TestParseCrossYearBoundaryResolution(t *testing.T) {
	period := mustPeriod(t, "2024-12-29", "2025-01-05")
	tokens := buildDocument(fiveColumnHeader,
		[]string{"Mon, Dec 30", "8:15 PM", "Dec 30 7:55 PM", "Trip earnings", "$22.00", "$122.00"},
		[]string{"Thu, Jan 2", "10:30 AM", "Jan 2 10:05 AM", "Trip earnings", "$18.00", "$140.00"},
	)
	txs, warnings, err := Parse(tokens, period)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if txs[0].PostedAt.Year() != 2024 {
		t.Errorf("december row year = %d, want 2024", txs[0].PostedAt.Year())
	}
	if txs[1].PostedAt.Year() != 2025 {
		t.Errorf("january row year = %d, want 2025", txs[1].PostedAt.Year())
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestParseEventAfterPostingIsDropped(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	tokens := buildDocument(fiveColumnHeader,
		[]string{"Mon, Jun 2", "3:42 PM", "Jun 3 1:00 PM", "Trip earnings", "$15.00", "$115.00"},
	)
	txs, warnings, err := Parse(tokens, period)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	tx := txs[0]
	if tx.EventAt != nil {
		t.Errorf("event at = %v, want nil (event after posting)", tx.EventAt)
	}
	if !hasWarning(warnings, models.WarnEventAfterPosting) {
		t.Error("event-after-posting warning not raised")
	}
	if !tx.NeedsReview {
		t.Error("event-after-posting row not flagged for review")
	}
}

func TestParseAmountShortfallFallsBack(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	tokens := buildDocument(sixColumnHeader,
		[]string{"Mon, Jun 2", "3:42 PM", "Jun 2 2:10 PM", "Trip earnings", "$15.00"},
	)
	txs, warnings, err := Parse(tokens, period)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	tx := txs[0]
	if !tx.Amount.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("amount = %s, want fallback 15.00", tx.Amount)
	}
	if !hasWarning(warnings, models.WarnAmountFallback) {
		t.Error("amount fallback warning not raised")
	}
	if !tx.NeedsReview {
		t.Error("amount shortfall row not flagged for review")
	}
}

func TestParseRowGroupWithoutPostedDateFails(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	group := []Line{{Y: 100, Tokens: lineTokens(100, "stray note", "$5.00")}}
	_, _, err := parseRowGroup(group, LayoutFiveColumn, period, 0, time.Now().UTC())
	if err == nil {
		t.Fatal("parseRowGroup accepted a group without a posted date")
	}
}

func TestParseMultiLineRowGroup(t *testing.T) {
	period := mustPeriod(t, "2025-06-01", "2025-06-07")
	tokens := buildDocument(sixColumnHeader,
		[]string{"Mon, Jun 2", "3:42 PM", "Trip earnings", "$15.00", "$2.00", "$17.00"},
	)
	// Continuation line of the same row-group: event token wrapped below.
	tokens = append(tokens, lineTokens(940, "Jun 1 11:54 PM")...)
	txs, _, err := Parse(tokens, period)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1 (continuation merged)", len(txs))
	}
	wantEvent := time.Date(2025, time.June, 1, 23, 54, 0, 0, time.UTC)
	if txs[0].EventAt == nil || !txs[0].EventAt.Equal(wantEvent) {
		t.Errorf("event at = %v, want %s", txs[0].EventAt, wantEvent)
	}
}
