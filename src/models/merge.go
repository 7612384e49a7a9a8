// backend/src/models/merge.go
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MergeDecision selects the duplicate policy for one reconciliation run.
// It is chosen once by the user and applied uniformly to the whole batch.
type MergeDecision string

const (
	// MergeReplaceAll discards every existing record in the batch's scope
	// before inserting the incoming ones.
	MergeReplaceAll MergeDecision = "replace_all"
	// MergeAddMissingOnly inserts only records whose duplicate key matches
	// nothing already persisted.
	MergeAddMissingOnly MergeDecision = "add_missing_only"
	// MergeAndUpdate overwrites matched records and inserts the rest.
	MergeAndUpdate MergeDecision = "merge_update"
)

// ParseMergeDecision validates a user-supplied merge decision string.
func ParseMergeDecision(s string) (MergeDecision, error) {
	switch MergeDecision(s) {
	case MergeReplaceAll, MergeAddMissingOnly, MergeAndUpdate:
		return MergeDecision(s), nil
	}
	return "", fmt.Errorf("unknown merge decision %q", s)
}

// ReconcileCounts summarizes one reconciliation run for one record kind.
type ReconcileCounts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ConflictField names a shift field that has both a manual and an imported source.
type ConflictField string

const (
	ConflictFieldTips  ConflictField = "tips"
	ConflictFieldTolls ConflictField = "tolls_reimbursed"
)

// ConflictResolution is the user's two-state answer to a value conflict.
type ConflictResolution string

const (
	ResolutionKeepManual     ConflictResolution = "keep_manual"
	ResolutionAcceptImported ConflictResolution = "accept_imported"
)

// ParseConflictResolution validates a user-supplied resolution string.
func ParseConflictResolution(s string) (ConflictResolution, error) {
	switch ConflictResolution(s) {
	case ResolutionKeepManual, ResolutionAcceptImported:
		return ConflictResolution(s), nil
	}
	return "", fmt.Errorf("unknown conflict resolution %q", s)
}

// ValueConflict records a manually entered value that an import tried to
// lower. It blocks only the affected shift field until the user picks a side.
type ValueConflict struct {
	ID            int64           `json:"id,omitempty"`
	ShiftID       int64           `json:"shift_id"`
	Field         ConflictField   `json:"field"`
	ManualValue   decimal.Decimal `json:"manual_value"`
	ImportedValue decimal.Decimal `json:"imported_value"`
	CreatedAt     time.Time       `json:"created_at"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	Resolution    string          `json:"resolution,omitempty"`
}

// Resolve returns the value the shift field ends up with under the given
// resolution. It is a pure function; the presentation layer merely invokes it.
func (c ValueConflict) Resolve(r ConflictResolution) decimal.Decimal {
	if r == ResolutionKeepManual {
		return c.ManualValue
	}
	return c.ImportedValue
}
