// backend/src/parsers/statement/layout_test.go
package statement

import (
	"errors"
	"testing"

	"github.com/username/shiftledger/backend/src/models"
)

func TestDetectColumnLayout(t *testing.T) {
	tests := []struct {
		header string
		want   ColumnLayout
	}{
		{"Processed Event Description Earnings Balance", LayoutFiveColumn},
		{"Processed Event Description Earnings Refunds Balance", LayoutSixColumn},
		{"Processed Event Description Earnings Adjustments Balance", LayoutSixColumn},
		{"processed event description earnings refund balance", LayoutSixColumn},
	}
	for _, tt := range tests {
		if got := detectColumnLayout(tt.header); got != tt.want {
			t.Errorf("detectColumnLayout(%q) = %s, want %s", tt.header, got, tt.want)
		}
	}
}

func TestFindHeader(t *testing.T) {
	lines := OrderTokens(append(
		lineTokens(800, "Weekly statement"),
		append(
			lineTokens(750, "Processed", "Event", "Description", "Earnings", "Refunds", "Balance"),
			lineTokens(700, "Mon, Jun 2", "Trip earnings", "$15.00")...,
		)...,
	))
	idx, layout, err := findHeader(lines)
	if err != nil {
		t.Fatalf("findHeader returned error: %v", err)
	}
	if idx != 1 {
		t.Errorf("header index = %d, want 1", idx)
	}
	if layout != LayoutSixColumn {
		t.Errorf("layout = %s, want %s", layout, LayoutSixColumn)
	}
}

func TestFindHeaderMissing(t *testing.T) {
	lines := OrderTokens(lineTokens(800, "Weekly statement", "no table here"))
	_, _, err := findHeader(lines)
	var structureErr *models.DocumentStructureError
	if !errors.As(err, &structureErr) {
		t.Fatalf("err = %v, want *models.DocumentStructureError", err)
	}
}
