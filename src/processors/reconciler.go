// backend/src/processors/reconciler.go
package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/models"
)

// The reconciler is a pure transformation: it takes a read-only snapshot of
// the existing records plus an incoming batch and computes explicit insert,
// update and conflict sets. The service layer applies the outcome in a single
// database transaction, so atomicity is checkable by construction.

// ShiftReconcileResult is the computed outcome of reconciling a shift batch.
type ShiftReconcileResult struct {
	Inserts   []model.Shift
	Updates   []model.Shift
	Counts    models.ReconcileCounts
	Conflicts []models.ValueConflict
}

// ReconcileShifts merges an incoming shift batch (restored from backup)
// against the existing set under the selected policy. The duplicate key is
// the start day plus the starting odometer reading.
func ReconcileShifts(existing, incoming []model.Shift, decision models.MergeDecision) ShiftReconcileResult {
	var result ShiftReconcileResult

	if decision == models.MergeReplaceAll {
		result.Inserts = append(result.Inserts, incoming...)
		result.Counts.Added = len(incoming)
		return result
	}

	byKey := make(map[string]model.Shift, len(existing))
	for _, s := range existing {
		byKey[s.DuplicateKey()] = s
	}

	for _, in := range incoming {
		prior, found := byKey[in.DuplicateKey()]
		if !found {
			result.Inserts = append(result.Inserts, in)
			result.Counts.Added++
			continue
		}
		if decision == models.MergeAddMissingOnly {
			result.Counts.Skipped++
			continue
		}

		// MergeAndUpdate: overwrite the prior record's mutable fields but keep
		// its identity, and run the two import-sourced money fields through
		// the manual-value preservation rule.
		merged := in
		merged.ID = prior.ID
		merged.CreatedAt = prior.CreatedAt

		var conflict bool
		merged.Tips, merged.OriginalTips, conflict = MergeImportedValue(prior.Tips, in.Tips, prior.OriginalTips)
		if conflict {
			result.Conflicts = append(result.Conflicts, models.ValueConflict{
				ShiftID:       prior.ID,
				Field:         models.ConflictFieldTips,
				ManualValue:   prior.Tips.Decimal,
				ImportedValue: in.Tips.Decimal,
			})
		}
		merged.TollsReimbursed, merged.OriginalTollsReimbursed, conflict =
			MergeImportedValue(prior.TollsReimbursed, in.TollsReimbursed, prior.OriginalTollsReimbursed)
		if conflict {
			result.Conflicts = append(result.Conflicts, models.ValueConflict{
				ShiftID:       prior.ID,
				Field:         models.ConflictFieldTolls,
				ManualValue:   prior.TollsReimbursed.Decimal,
				ImportedValue: in.TollsReimbursed.Decimal,
			})
		}

		result.Updates = append(result.Updates, merged)
		result.Counts.Updated++
	}
	return result
}

// ExpenseReconcileResult is the computed outcome of reconciling an expense batch.
type ExpenseReconcileResult struct {
	Inserts []model.Expense
	Updates []model.Expense
	Counts  models.ReconcileCounts
}

// ReconcileExpenses merges an incoming expense batch against the existing set.
// The duplicate key is calendar day + category + description. Expenses have
// no import-sourced fields, so no conflicts can arise.
func ReconcileExpenses(existing, incoming []model.Expense, decision models.MergeDecision) ExpenseReconcileResult {
	var result ExpenseReconcileResult

	if decision == models.MergeReplaceAll {
		result.Inserts = append(result.Inserts, incoming...)
		result.Counts.Added = len(incoming)
		return result
	}

	byKey := make(map[string]model.Expense, len(existing))
	for _, e := range existing {
		byKey[e.DuplicateKey()] = e
	}

	for _, in := range incoming {
		prior, found := byKey[in.DuplicateKey()]
		if !found {
			result.Inserts = append(result.Inserts, in)
			result.Counts.Added++
			continue
		}
		if decision == models.MergeAddMissingOnly {
			result.Counts.Skipped++
			continue
		}
		merged := in
		merged.ID = prior.ID
		merged.CreatedAt = prior.CreatedAt
		result.Updates = append(result.Updates, merged)
		result.Counts.Updated++
	}
	return result
}

// MergeImportedValue applies the manual-value preservation rule for fields
// that have both a manually entered and an imported source.
//
// An import without a value leaves the field alone. An import over an empty
// field just fills it. When an import overwrites a differing manual value,
// the manual value is preserved in the original slot; a user-facing conflict
// is raised only when the manual value is strictly greater than the imported
// one — an import at or above the manual value is a confirmation.
func MergeImportedValue(manual, imported, priorOriginal decimal.NullDecimal) (value, original decimal.NullDecimal, conflict bool) {
	if !imported.Valid {
		return manual, priorOriginal, false
	}
	if !manual.Valid {
		return imported, priorOriginal, false
	}
	if manual.Decimal.Equal(imported.Decimal) {
		return imported, priorOriginal, false
	}
	return imported, manual, manual.Decimal.GreaterThan(imported.Decimal)
}
