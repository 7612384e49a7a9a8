// backend/src/processors/shift_matcher.go
package processors

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/shiftledger/backend/src/logger"
	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/models"
)

// DefaultBoundaryOffset is the early-morning grace window applied to both
// ends of a shift: rides that start before midnight routinely post after it.
const DefaultBoundaryOffset = 4 * time.Hour

// ShiftMatcher assigns parsed transactions to the shift they belong to.
type ShiftMatcher struct {
	boundaryOffset time.Duration
}

func NewShiftMatcher(boundaryOffset time.Duration) *ShiftMatcher {
	if boundaryOffset <= 0 {
		boundaryOffset = DefaultBoundaryOffset
	}
	return &ShiftMatcher{boundaryOffset: boundaryOffset}
}

// MatchedTransaction pairs a transaction with the shift that owns it.
type MatchedTransaction struct {
	Transaction models.ParsedTransaction `json:"transaction"`
	ShiftID     int64                    `json:"shift_id"`
}

// MatchResult partitions a batch into matched pairs and orphan transactions.
type MatchResult struct {
	Matched   []MatchedTransaction       `json:"matched"`
	Unmatched []models.ParsedTransaction `json:"unmatched"`
	Warnings  []models.ImportWarning     `json:"warnings"`
}

// Match assigns each transaction to at most one shift. A transaction's event
// time (posting time when no event time was parsed) must fall inside
// [start-offset, end+offset] of a closed shift. When several windows overlap
// the timestamp, the shift whose start is closest wins; ties go to the lowest
// shift id. Matching the same batch against an unchanged shift set always
// produces the same assignment: shifts are sorted before matching, so nothing
// depends on collection iteration order.
func (m *ShiftMatcher) Match(txs []models.ParsedTransaction, shifts []model.Shift) MatchResult {
	ordered := make([]model.Shift, len(shifts))
	copy(ordered, shifts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].StartAt.Equal(ordered[j].StartAt) {
			return ordered[i].StartAt.Before(ordered[j].StartAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	var result MatchResult
	for _, tx := range txs {
		ts := tx.MatchTime()
		var best *model.Shift
		candidates := 0
		for i := range ordered {
			s := &ordered[i]
			if !m.windowContains(s, ts) {
				continue
			}
			candidates++
			if best == nil || closerStart(ts, s, best) {
				best = s
			}
		}
		if best == nil {
			result.Unmatched = append(result.Unmatched, tx)
			continue
		}
		if candidates > 1 {
			logger.L.Warn("Multiple shift windows overlap transaction, tie-break applied",
				"rowIndex", tx.SourceRowIndex, "timestamp", ts, "shiftID", best.ID, "candidates", candidates)
			result.Warnings = append(result.Warnings, models.ImportWarning{
				Code:     models.WarnMatchAmbiguity,
				RowIndex: tx.SourceRowIndex,
				Message:  fmt.Sprintf("%d shift windows overlap %s; assigned shift %d", candidates, ts, best.ID),
			})
		}
		shiftID := best.ID
		tx.OwnerShiftID = &shiftID
		result.Matched = append(result.Matched, MatchedTransaction{Transaction: tx, ShiftID: shiftID})
	}
	return result
}

// windowContains checks the boundary-shifted containment rule. Open shifts
// have no window yet and never own transactions.
func (m *ShiftMatcher) windowContains(s *model.Shift, ts time.Time) bool {
	if !s.IsClosed() {
		return false
	}
	start := s.StartAt.Add(-m.boundaryOffset)
	end := s.EndAt.Time.Add(m.boundaryOffset)
	return !ts.Before(start) && !ts.After(end)
}

// closerStart reports whether candidate's start is strictly closer to ts than
// the current best's, with equal distances resolved by the lower shift id.
func closerStart(ts time.Time, candidate, best *model.Shift) bool {
	cd := absDuration(ts.Sub(candidate.StartAt))
	bd := absDuration(ts.Sub(best.StartAt))
	if cd != bd {
		return cd < bd
	}
	return candidate.ID < best.ID
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// ShiftTemplate is a suggested shift stub built from orphan transactions, for
// the user to turn into a real shift. One template per calendar day.
type ShiftTemplate struct {
	Date             string          `json:"date"`
	SuggestedStartAt time.Time       `json:"suggested_start_at"`
	SuggestedEndAt   time.Time       `json:"suggested_end_at"`
	TransactionCount int             `json:"transaction_count"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

// SuggestMissingShifts groups orphan transactions by calendar day and
// proposes one shift stub per day spanning the day's transaction times.
func SuggestMissingShifts(unmatched []models.ParsedTransaction) []ShiftTemplate {
	byDay := make(map[string]*ShiftTemplate)
	for _, tx := range unmatched {
		ts := tx.MatchTime()
		day := ts.UTC().Format("2006-01-02")
		tpl, ok := byDay[day]
		if !ok {
			tpl = &ShiftTemplate{
				Date:             day,
				SuggestedStartAt: ts,
				SuggestedEndAt:   ts,
				TotalAmount:      decimal.Zero,
			}
			byDay[day] = tpl
		}
		if ts.Before(tpl.SuggestedStartAt) {
			tpl.SuggestedStartAt = ts
		}
		if ts.After(tpl.SuggestedEndAt) {
			tpl.SuggestedEndAt = ts
		}
		tpl.TransactionCount++
		tpl.TotalAmount = tpl.TotalAmount.Add(tx.Amount)
	}

	templates := make([]ShiftTemplate, 0, len(byDay))
	for _, tpl := range byDay {
		templates = append(templates, *tpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Date < templates[j].Date })
	return templates
}
