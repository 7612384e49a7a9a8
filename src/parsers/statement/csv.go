// backend/src/parsers/statement/csv.go
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/shiftledger/backend/src/models"
)

// csvTimeLayouts are the timestamp shapes seen in platform CSV exports.
var csvTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseCSVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range csvTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseCSV reads the platform's CSV export of the same statement. Unlike the
// positioned-token path the CSV carries full timestamps, so no year inference
// is needed; the same row-level failure policy applies: a row without a
// parsable posted timestamp is dropped and reported, everything else degrades
// to the manual-verification flag.
func ParseCSV(r io.Reader, period models.StatementPeriod) ([]models.ParsedTransaction, []models.ImportWarning, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("statement csv: failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[normalizeCSVHeader(name)] = i
	}
	postedIdx, ok := cols["processed_at"]
	if !ok {
		if postedIdx, ok = cols["posted_at"]; !ok {
			return nil, nil, &models.DocumentStructureError{Reason: "csv header has no processed_at column"}
		}
	}
	eventIdx, hasEvent := cols["event_at"]
	labelIdx, hasLabel := cols["description"]
	earningsIdx, hasEarnings := cols["earnings"]
	refundsIdx, hasRefunds := cols["refunds"]
	if !hasEarnings {
		return nil, nil, &models.DocumentStructureError{Reason: "csv header has no earnings column"}
	}

	importedAt := time.Now().UTC()
	var txs []models.ParsedTransaction
	var warnings []models.ImportWarning
	rowIndex := -1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("statement csv: read failed: %w", err)
		}
		rowIndex++

		field := func(idx int) string {
			if idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		postedAt, err := parseCSVTime(field(postedIdx))
		if err != nil {
			warnings = append(warnings, models.ImportWarning{
				Code:     models.WarnRowParseFailure,
				RowIndex: rowIndex,
				Message:  "no parsable posted timestamp: " + err.Error(),
			})
			continue
		}

		tx := models.ParsedTransaction{
			PostedAt:        postedAt,
			StatementPeriod: period.ID(),
			ImportedAt:      importedAt,
			SourceRowIndex:  rowIndex,
		}
		if !period.Contains(postedAt) {
			warnings = append(warnings, models.ImportWarning{
				Code:     models.WarnDateOutsidePeriod,
				RowIndex: rowIndex,
				Message: fmt.Sprintf("posted %s outside period %s",
					postedAt.Format("2006-01-02"), period.ID()),
			})
			tx.NeedsReview = true
		}
		if hasLabel {
			tx.Label = field(labelIdx)
		}

		if hasEvent && field(eventIdx) != "" {
			eventAt, err := parseCSVTime(field(eventIdx))
			switch {
			case err != nil:
				tx.NeedsReview = true
			case eventAt.After(postedAt):
				warnings = append(warnings, models.ImportWarning{
					Code:     models.WarnEventAfterPosting,
					RowIndex: rowIndex,
					Message:  fmt.Sprintf("event %s after posting %s", eventAt, postedAt),
				})
				tx.NeedsReview = true
			default:
				tx.EventAt = &eventAt
			}
		} else {
			warnings = append(warnings, models.ImportWarning{
				Code:     models.WarnMissingEventTime,
				RowIndex: rowIndex,
				Message:  "no event timestamp in csv row",
			})
			tx.NeedsReview = true
		}

		amount, err := parseAmount(field(earningsIdx))
		if err != nil {
			warnings = append(warnings, models.ImportWarning{
				Code:     models.WarnAmountFallback,
				RowIndex: rowIndex,
				Message:  "unparsable earnings value, defaulting to zero",
			})
			amount = decimal.Zero
			tx.NeedsReview = true
		}
		tx.Amount = amount

		if hasRefunds && field(refundsIdx) != "" {
			if refund, err := parseAmount(field(refundsIdx)); err == nil {
				tx.SecondaryAmount = decimal.NullDecimal{Decimal: refund, Valid: true}
			}
		}

		txs = append(txs, tx)
	}
	return txs, warnings, nil
}

func normalizeCSVHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	return name
}
