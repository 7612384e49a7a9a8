// backend/src/parsers/statement/layout.go
package statement

import (
	"strings"

	"github.com/username/shiftledger/backend/src/models"
)

// ColumnLayout identifies which column schema a statement document uses.
// It is detected once per document from the table header and threaded
// explicitly into every row parse; it is never re-derived per row, because a
// missing optional column is structurally indistinguishable from a zero value.
type ColumnLayout int

const (
	LayoutUnknown ColumnLayout = iota
	// LayoutFiveColumn: processed, event, description, earnings, balance.
	LayoutFiveColumn
	// LayoutSixColumn adds a refunds/adjustments column before the balance.
	LayoutSixColumn
)

func (l ColumnLayout) String() string {
	switch l {
	case LayoutFiveColumn:
		return "five_column"
	case LayoutSixColumn:
		return "six_column"
	}
	return "unknown"
}

// ExpectedAmounts is the minimum number of amount columns a full row carries
// under this layout, including the trailing balance.
func (l ColumnLayout) ExpectedAmounts() int {
	if l == LayoutSixColumn {
		return 3
	}
	return 2
}

// detectColumnLayout decides the schema from the header text. The presence of
// the refunds/adjustments column label selects the six-column schema.
func detectColumnLayout(header string) ColumnLayout {
	lower := strings.ToLower(header)
	if strings.Contains(lower, "refund") || strings.Contains(lower, "adjustment") {
		return LayoutSixColumn
	}
	return LayoutFiveColumn
}

// isTransactionHeader recognizes the transaction table's header line.
func isTransactionHeader(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "balance") &&
		(strings.Contains(lower, "description") || strings.Contains(lower, "earnings") ||
			strings.Contains(lower, "processed"))
}

// findHeader locates the transaction table header among ordered lines and
// returns its index and the detected layout. A document without a
// recognizable header is rejected whole: nothing is partially applied.
func findHeader(lines []Line) (int, ColumnLayout, error) {
	for i, line := range lines {
		if text := line.Text(); isTransactionHeader(text) {
			return i, detectColumnLayout(text), nil
		}
	}
	return 0, LayoutUnknown, &models.DocumentStructureError{Reason: "no transaction table header found"}
}
