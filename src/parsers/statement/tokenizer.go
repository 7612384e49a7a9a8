// backend/src/parsers/statement/tokenizer.go
package statement

import (
	"regexp"
	"sort"
	"strings"

	"github.com/username/shiftledger/backend/src/models"
)

// rowYTolerance is the vertical distance within which positioned tokens are
// considered to sit on the same physical line.
const rowYTolerance = 5.0

// pageFooterPattern matches pagination furniture like "1 of 4" or "Page 2 of 4".
var pageFooterPattern = regexp.MustCompile(`(?i)^\s*(?:page\s+)?\d+\s+of\s+\d+\s*$`)

// Line is one reconstructed physical line: a y-cluster of tokens ordered
// left to right.
type Line struct {
	Y      float64
	Tokens []models.PositionedToken
}

// Text joins the line's token texts in reading order.
func (l Line) Text() string {
	parts := make([]string, 0, len(l.Tokens))
	for _, t := range l.Tokens {
		if s := strings.TrimSpace(t.Text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// OrderTokens recovers reading order from an unordered token set: tokens are
// clustered into lines by y coordinate, pagination footer lines are removed
// as whole y-bands, lines are sorted top of page first and tokens left to
// right within each line. Empty input yields an empty result, never an error;
// zero lines means "no transactions", not a fault.
func OrderTokens(tokens []models.PositionedToken) []Line {
	if len(tokens) == 0 {
		return nil
	}

	sorted := make([]models.PositionedToken, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	var lines []Line
	for _, tok := range sorted {
		if n := len(lines); n > 0 && lines[n-1].Y-tok.Y <= rowYTolerance {
			lines[n-1].Tokens = append(lines[n-1].Tokens, tok)
			continue
		}
		lines = append(lines, Line{Y: tok.Y, Tokens: []models.PositionedToken{tok}})
	}

	kept := lines[:0]
	for _, line := range lines {
		sort.SliceStable(line.Tokens, func(i, j int) bool { return line.Tokens[i].X < line.Tokens[j].X })
		if isFooterLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

// isFooterLine flags a line as pagination furniture when either the joined
// line or any single token matches the "<n> of <m>" shape. The whole y-band
// is dropped, not just the matching fragment.
func isFooterLine(line Line) bool {
	if pageFooterPattern.MatchString(line.Text()) {
		return true
	}
	for _, t := range line.Tokens {
		if pageFooterPattern.MatchString(t.Text) {
			return true
		}
	}
	return false
}
