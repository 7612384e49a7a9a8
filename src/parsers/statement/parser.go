// backend/src/parsers/statement/parser.go
package statement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/shiftledger/backend/src/models"
)

// Patterns for the three token shapes a row-group carries. The posted date
// and posted time are two independent patterns on the first physical line;
// the optional event date-time is a single differently shaped token that can
// appear anywhere in the group.
var (
	// "Mon, Jun 2" / "Tuesday June 10"
	postedDatePattern = regexp.MustCompile(`(?i)\b(?:Mon|Tue|Wed|Thu|Fri|Sat|Sun)[a-z]*,?\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(\d{1,2})\b`)
	// "3:42 PM"
	clockPattern = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(AM|PM)\b`)
	// "Jun 1 11:54 PM" as one token
	eventPattern = regexp.MustCompile(`(?i)^(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{1,2}):(\d{2})\s*(AM|PM)$`)
	// "$1,234.56" / "12.00" / "-$3.50"
	amountPattern = regexp.MustCompile(`-?\$?\d{1,3}(?:,\d{3})*\.\d{2}`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

func monthFromName(name string) (time.Month, bool) {
	if len(name) < 3 {
		return 0, false
	}
	m, ok := monthsByPrefix[strings.ToLower(name[:3])]
	return m, ok
}

func clockToHourMinute(hStr, mStr, meridiem string) (int, int) {
	h, _ := strconv.Atoi(hStr)
	m, _ := strconv.Atoi(mStr)
	if strings.EqualFold(meridiem, "PM") && h != 12 {
		h += 12
	}
	if strings.EqualFold(meridiem, "AM") && h == 12 {
		h = 0
	}
	return h, m
}

// parseAmount converts a "$1,234.56"-shaped fragment to a decimal.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return decimal.NewFromString(s)
}

// Parse converts a document's raw positioned tokens into transactions plus
// the accumulated non-fatal warnings. Empty input yields no transactions and
// no error. A document with tokens but no recognizable transaction table
// header fails whole with *models.DocumentStructureError.
func Parse(tokens []models.PositionedToken, period models.StatementPeriod) ([]models.ParsedTransaction, []models.ImportWarning, error) {
	lines := OrderTokens(tokens)
	if len(lines) == 0 {
		return nil, nil, nil
	}
	headerIdx, layout, err := findHeader(lines)
	if err != nil {
		return nil, nil, err
	}

	importedAt := time.Now().UTC()
	var txs []models.ParsedTransaction
	var warnings []models.ImportWarning
	for i, group := range groupRows(lines[headerIdx+1:]) {
		tx, rowWarnings, err := parseRowGroup(group, layout, period, i, importedAt)
		warnings = append(warnings, rowWarnings...)
		if err != nil {
			warnings = append(warnings, models.ImportWarning{
				Code:     models.WarnRowParseFailure,
				RowIndex: i,
				Message:  err.Error(),
			})
			continue
		}
		txs = append(txs, tx)
	}
	return txs, warnings, nil
}

// groupRows splits the ordered lines below the header into row-groups. A new
// group starts at every line that opens with a weekday-prefixed posted date;
// lines before the first such line are table preamble and are skipped.
func groupRows(lines []Line) [][]Line {
	var groups [][]Line
	for _, line := range lines {
		if startsRowGroup(line.Text()) {
			groups = append(groups, []Line{line})
			continue
		}
		if len(groups) > 0 {
			n := len(groups) - 1
			groups[n] = append(groups[n], line)
		}
	}
	return groups
}

func startsRowGroup(text string) bool {
	loc := postedDatePattern.FindStringIndex(text)
	return loc != nil && loc[0] < 3
}

// parseRowGroup is a pure fold over one pre-grouped row-group producing one
// transaction. A missing posted date is fatal for the row; every other
// ambiguity degrades to the manual-verification flag.
func parseRowGroup(group []Line, layout ColumnLayout, period models.StatementPeriod, rowIndex int, importedAt time.Time) (models.ParsedTransaction, []models.ImportWarning, error) {
	var warnings []models.ImportWarning
	warn := func(code models.WarningCode, format string, args ...any) {
		warnings = append(warnings, models.ImportWarning{
			Code:     code,
			RowIndex: rowIndex,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	tx := models.ParsedTransaction{
		StatementPeriod: period.ID(),
		ImportedAt:      importedAt,
		SourceRowIndex:  rowIndex,
	}

	eventTok, eventTokens := findEventToken(group)

	// Posted date and time from the first physical line, with event-shaped
	// tokens masked out so their embedded clock cannot shadow the posted time.
	firstText := lineTextExcluding(group[0], eventTokens)
	dateMatch := postedDatePattern.FindStringSubmatch(firstText)
	if dateMatch == nil {
		return tx, warnings, fmt.Errorf("no parsable posted date in %q", group[0].Text())
	}
	month, ok := monthFromName(dateMatch[1])
	if !ok {
		return tx, warnings, fmt.Errorf("unrecognized month %q", dateMatch[1])
	}
	day, _ := strconv.Atoi(dateMatch[2])

	year, ok := InferYear(month, period)
	if !ok {
		warn(models.WarnAmbiguousYear, "month %s outside statement period %s", month, period.ID())
		tx.NeedsReview = true
	}

	hour, minute := 0, 0
	if m := clockPattern.FindStringSubmatch(firstText); m != nil {
		hour, minute = clockToHourMinute(m[1], m[2], m[3])
	} else {
		tx.NeedsReview = true
	}
	tx.PostedAt = time.Date(year, month, day, hour, minute, 0, 0, time.UTC)

	if eventTok == "" {
		// Without an event time, shift attribution falls back to the posting
		// time, which is materially less accurate.
		warn(models.WarnMissingEventTime, "no event date-time in row-group")
		tx.NeedsReview = true
	} else {
		eventAt, evWarn := resolveEventTime(eventTok, period)
		if evWarn != "" {
			warn(models.WarnAmbiguousYear, "%s", evWarn)
			tx.NeedsReview = true
		}
		if eventAt != nil {
			if eventAt.After(tx.PostedAt) {
				warn(models.WarnEventAfterPosting, "event %s after posting %s", eventAt, tx.PostedAt)
				tx.NeedsReview = true
			} else {
				tx.EventAt = eventAt
			}
		}
	}

	amounts := collectAmounts(group)
	tx.Label = extractLabel(group, eventTokens)

	amount, secondary, fallback := disambiguateAmounts(amounts, tx.Label, layout)
	if fallback != "" {
		warn(models.WarnAmountFallback, "%s", fallback)
		tx.NeedsReview = true
	}
	tx.Amount = amount
	tx.SecondaryAmount = secondary

	return tx, warnings, nil
}

// findEventToken scans every token in the group for the single-token event
// date-time shape and returns its text plus the set of matching tokens.
func findEventToken(group []Line) (string, map[string]bool) {
	matched := make(map[string]bool)
	first := ""
	for _, line := range group {
		for _, tok := range line.Tokens {
			text := strings.TrimSpace(tok.Text)
			if eventPattern.MatchString(text) {
				matched[text] = true
				if first == "" {
					first = text
				}
			}
		}
	}
	return first, matched
}

// resolveEventTime turns an event token into a timestamp, inferring its year
// from the statement period. A non-empty warning means the year was ambiguous.
func resolveEventTime(tok string, period models.StatementPeriod) (*time.Time, string) {
	m := eventPattern.FindStringSubmatch(tok)
	if m == nil {
		return nil, ""
	}
	month, ok := monthFromName(m[1])
	if !ok {
		return nil, ""
	}
	day, _ := strconv.Atoi(m[2])
	hour, minute := clockToHourMinute(m[3], m[4], m[5])
	year, ok := InferYear(month, period)
	t := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	if !ok {
		return &t, fmt.Sprintf("event month %s outside statement period %s", month, period.ID())
	}
	return &t, ""
}

func lineTextExcluding(line Line, excluded map[string]bool) string {
	parts := make([]string, 0, len(line.Tokens))
	for _, tok := range line.Tokens {
		text := strings.TrimSpace(tok.Text)
		if text == "" || excluded[text] {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// collectAmounts gathers every dollar-amount-shaped substring in the group as
// a flat ordered list, reading order preserved.
func collectAmounts(group []Line) []decimal.Decimal {
	var amounts []decimal.Decimal
	for _, line := range group {
		for _, raw := range amountPattern.FindAllString(line.Text(), -1) {
			if d, err := parseAmount(raw); err == nil {
				amounts = append(amounts, d)
			}
		}
	}
	return amounts
}

// extractLabel classifies the remaining non-date, non-amount text as the
// transaction's descriptive label.
func extractLabel(group []Line, eventTokens map[string]bool) string {
	var parts []string
	for _, line := range group {
		text := lineTextExcluding(line, eventTokens)
		text = postedDatePattern.ReplaceAllString(text, " ")
		text = clockPattern.ReplaceAllString(text, " ")
		text = amountPattern.ReplaceAllString(text, " ")
		text = strings.Trim(strings.Join(strings.Fields(text), " "), " ,-")
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func isPayoutLabel(label string) bool {
	lower := strings.ToLower(label)
	for _, kw := range []string{"payout", "withdraw", "transfer to bank", "cash out", "instant pay"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isValidationLabel(label string) bool {
	lower := strings.ToLower(label)
	return strings.Contains(lower, "validation") || strings.Contains(lower, "verification")
}

// disambiguateAmounts applies the schema- and label-driven amount rules. The
// last amount of a full row is always the running balance and is discarded;
// it is never reported as earnings or tolls. A non-empty fallback string
// reports a non-fatal shortfall against the schema's expected columns.
func disambiguateAmounts(amounts []decimal.Decimal, label string, layout ColumnLayout) (amount decimal.Decimal, secondary decimal.NullDecimal, fallback string) {
	n := len(amounts)
	if n == 0 {
		return decimal.Zero, decimal.NullDecimal{}, "no amounts found in row-group, defaulting to zero"
	}

	if isPayoutLabel(label) || isValidationLabel(label) {
		if n >= 2 {
			return amounts[n-2], decimal.NullDecimal{}, ""
		}
		return amounts[0], decimal.NullDecimal{}, "payout row carries a single amount"
	}

	switch layout {
	case LayoutSixColumn:
		if n >= 3 {
			earnings := amounts[n-3]
			tolls := amounts[n-2]
			if earnings.Equal(tolls) {
				// Equal earnings and refund values are a text-duplication
				// artifact of the extraction, not a real reimbursement.
				tolls = decimal.Zero
			}
			return earnings, decimal.NullDecimal{Decimal: tolls, Valid: true}, ""
		}
	default:
		if n >= 2 {
			return amounts[n-2], decimal.NullDecimal{}, ""
		}
	}
	return amounts[0], decimal.NullDecimal{}, fmt.Sprintf(
		"row carries %d amounts, %s layout expects %d; using first", n, layout, layout.ExpectedAmounts())
}
