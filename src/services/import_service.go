// backend/src/services/import_service.go
package services

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/shiftledger/backend/src/database"
	"github.com/username/shiftledger/backend/src/logger"
	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/models"
	"github.com/username/shiftledger/backend/src/parsers/statement"
	"github.com/username/shiftledger/backend/src/processors"
	"github.com/username/shiftledger/backend/src/security/validation"
)

const (
	ckLatestImportResult   = "agg_latest_import_result"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type importServiceImpl struct {
	matcher     *processors.ShiftMatcher
	reportCache *cache.Cache
}

func NewImportService(matcher *processors.ShiftMatcher, reportCache *cache.Cache) ImportService {
	return &importServiceImpl{
		matcher:     matcher,
		reportCache: reportCache,
	}
}

func (s *importServiceImpl) ImportStatementTokens(tokens []models.PositionedToken, period models.StatementPeriod, decision models.MergeDecision, filename string) (*ImportResult, error) {
	txs, warnings, err := statement.Parse(tokens, period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	return s.finishStatementImport("statement_tokens", filename, period, decision, txs, warnings)
}

func (s *importServiceImpl) ImportStatementCSV(r io.Reader, period models.StatementPeriod, decision models.MergeDecision, filename string) (*ImportResult, error) {
	txs, warnings, err := statement.ParseCSV(r, period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	return s.finishStatementImport("statement_csv", filename, period, decision, txs, warnings)
}

// finishStatementImport runs the shared tail of both statement import paths:
// shift attribution, then one database transaction covering the period
// reconciliation, the shift write-backs, the conflicts and the audit record.
// A statement-period replace is atomic: either the whole period is replaced
// or the prior period is left fully intact.
func (s *importServiceImpl) finishStatementImport(source, filename string, period models.StatementPeriod, decision models.MergeDecision, txs []models.ParsedTransaction, warnings []models.ImportWarning) (*ImportResult, error) {
	startTime := time.Now()
	batchID := uuid.New().String()
	logger.L.Info("Statement import START", "batchID", batchID, "source", source,
		"period", period.ID(), "decision", string(decision), "parsed", len(txs))

	for i := range txs {
		txs[i].Label = validation.SanitizeLabel(txs[i].Label)
	}

	shifts, err := model.ListShifts(database.DB)
	if err != nil {
		return nil, fmt.Errorf("error loading shifts for matching: %w", err)
	}
	matchRes := s.matcher.Match(txs, shifts)
	warnings = append(warnings, matchRes.Warnings...)

	// Matched transactions carry their owner; rebuild the batch in source
	// row order so persistence order is deterministic.
	final := make([]models.ParsedTransaction, 0, len(txs))
	for _, m := range matchRes.Matched {
		final = append(final, m.Transaction)
	}
	final = append(final, matchRes.Unmatched...)
	sortByRowIndex(final)

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	counts, err := applyStatementDecision(dbTx, period.ID(), decision, final)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
	}

	// A batch the duplicate policy discarded entirely is gone for good: it
	// must not touch shift fields or raise conflicts.
	var conflicts []models.ValueConflict
	if counts.Added > 0 || counts.Updated > 0 {
		conflicts, err = s.writeBackShiftAggregates(dbTx, shifts, matchRes.Matched)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
		}
	}

	record := &model.ImportRecord{
		BatchID:         batchID,
		Source:          source,
		Filename:        filename,
		StatementPeriod: period.ID(),
		MergeDecision:   string(decision),
		Added:           counts.Added,
		Updated:         counts.Updated,
		Skipped:         counts.Skipped,
		WarningCount:    len(warnings),
		ConflictCount:   len(conflicts),
	}
	if err := model.InsertImportRecordTx(dbTx, record); err != nil {
		return nil, fmt.Errorf("failed to record import in history: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing import transaction: %w", err)
	}

	result := &ImportResult{
		BatchID:         batchID,
		StatementPeriod: period.ID(),
		Parsed:          len(txs),
		Matched:         len(matchRes.Matched),
		Unmatched:       len(matchRes.Unmatched),
		Counts:          counts,
		Warnings:        warnings,
		Conflicts:       conflicts,
		SuggestedShifts: processors.SuggestMissingShifts(matchRes.Unmatched),
	}
	s.reportCache.Set(ckLatestImportResult, result, DefaultCacheExpiration)
	logger.L.Info("Statement import END", "batchID", batchID, "added", counts.Added,
		"updated", counts.Updated, "skipped", counts.Skipped,
		"conflicts", len(conflicts), "duration", time.Since(startTime))
	return result, nil
}

func sortByRowIndex(txs []models.ParsedTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].SourceRowIndex < txs[j].SourceRowIndex
	})
}

// applyStatementDecision applies the user's duplicate policy to one statement
// period inside an open transaction. The duplicate window for AddMissingOnly
// is the statement period identifier; the per-record key for MergeAndUpdate
// is the period plus the source row index.
func applyStatementDecision(dbTx *sql.Tx, periodID string, decision models.MergeDecision, incoming []models.ParsedTransaction) (models.ReconcileCounts, error) {
	var counts models.ReconcileCounts
	switch decision {
	case models.MergeReplaceAll:
		// Re-importing a period replaces the prior import of that exact
		// period, even when the incoming batch is empty.
		if err := model.DeleteStatementPeriodTx(dbTx, periodID); err != nil {
			return counts, err
		}
		for i := range incoming {
			if err := model.InsertStatementTransactionTx(dbTx, &incoming[i]); err != nil {
				return counts, err
			}
			counts.Added++
		}

	case models.MergeAddMissingOnly:
		existing, err := model.CountStatementPeriodTx(dbTx, periodID)
		if err != nil {
			return counts, err
		}
		if existing > 0 {
			counts.Skipped = len(incoming)
			return counts, nil
		}
		for i := range incoming {
			if err := model.InsertStatementTransactionTx(dbTx, &incoming[i]); err != nil {
				return counts, err
			}
			counts.Added++
		}

	case models.MergeAndUpdate:
		for i := range incoming {
			exists, err := model.StatementTransactionExistsTx(dbTx, periodID, incoming[i].SourceRowIndex)
			if err != nil {
				return counts, err
			}
			if exists {
				if err := model.UpdateStatementTransactionTx(dbTx, &incoming[i]); err != nil {
					return counts, err
				}
				counts.Updated++
			} else {
				if err := model.InsertStatementTransactionTx(dbTx, &incoming[i]); err != nil {
					return counts, err
				}
				counts.Added++
			}
		}

	default:
		return counts, fmt.Errorf("unknown merge decision %q", decision)
	}
	return counts, nil
}

// writeBackShiftAggregates folds each shift's matched transactions into its
// imported tips and toll-reimbursement fields, preserving overwritten manual
// values and collecting the conflicts that need the user's decision.
func (s *importServiceImpl) writeBackShiftAggregates(dbTx *sql.Tx, shifts []model.Shift, matched []processors.MatchedTransaction) ([]models.ValueConflict, error) {
	type aggregate struct {
		tips  decimal.Decimal
		tolls decimal.Decimal
	}
	byShift := make(map[int64]*aggregate)
	for _, m := range matched {
		agg, ok := byShift[m.ShiftID]
		if !ok {
			agg = &aggregate{tips: decimal.Zero, tolls: decimal.Zero}
			byShift[m.ShiftID] = agg
		}
		agg.tips = agg.tips.Add(m.Transaction.Amount)
		if m.Transaction.SecondaryAmount.Valid {
			agg.tolls = agg.tolls.Add(m.Transaction.SecondaryAmount.Decimal)
		}
	}

	shiftByID := make(map[int64]model.Shift, len(shifts))
	for _, sh := range shifts {
		shiftByID[sh.ID] = sh
	}

	var conflicts []models.ValueConflict
	for shiftID, agg := range byShift {
		sh, ok := shiftByID[shiftID]
		if !ok {
			continue
		}

		imported := decimal.NullDecimal{Decimal: agg.tips, Valid: true}
		value, original, conflict := processors.MergeImportedValue(sh.Tips, imported, sh.OriginalTips)
		if err := model.UpdateShiftFieldTx(dbTx, shiftID, "tips", value, original); err != nil {
			return nil, err
		}
		if conflict {
			c := models.ValueConflict{
				ShiftID:       shiftID,
				Field:         models.ConflictFieldTips,
				ManualValue:   sh.Tips.Decimal,
				ImportedValue: agg.tips,
			}
			if err := model.InsertConflictTx(dbTx, &c); err != nil {
				return nil, err
			}
			conflicts = append(conflicts, c)
		}

		importedTolls := decimal.NullDecimal{Decimal: agg.tolls, Valid: true}
		value, original, conflict = processors.MergeImportedValue(sh.TollsReimbursed, importedTolls, sh.OriginalTollsReimbursed)
		if err := model.UpdateShiftFieldTx(dbTx, shiftID, "tolls_reimbursed", value, original); err != nil {
			return nil, err
		}
		if conflict {
			c := models.ValueConflict{
				ShiftID:       shiftID,
				Field:         models.ConflictFieldTolls,
				ManualValue:   sh.TollsReimbursed.Decimal,
				ImportedValue: agg.tolls,
			}
			if err := model.InsertConflictTx(dbTx, &c); err != nil {
				return nil, err
			}
			conflicts = append(conflicts, c)
		}
	}
	return conflicts, nil
}

func (s *importServiceImpl) RestoreShifts(incoming []model.Shift, decision models.MergeDecision) (*RestoreResult, error) {
	existing, err := model.ListShifts(database.DB)
	if err != nil {
		return nil, fmt.Errorf("error loading existing shifts: %w", err)
	}
	outcome := processors.ReconcileShifts(existing, incoming, decision)

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if decision == models.MergeReplaceAll {
		// Transactions owned by discarded shifts become orphans again.
		if err := model.ClearShiftOwnershipTx(dbTx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
		}
		if err := model.DeleteAllShiftsTx(dbTx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
		}
	}
	for i := range outcome.Inserts {
		if err := model.InsertShiftTx(dbTx, &outcome.Inserts[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
		}
	}
	for i := range outcome.Updates {
		if err := model.UpdateShiftTx(dbTx, &outcome.Updates[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
		}
	}
	for i := range outcome.Conflicts {
		if err := model.InsertConflictTx(dbTx, &outcome.Conflicts[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
		}
	}

	record := &model.ImportRecord{
		BatchID:       uuid.New().String(),
		Source:        "restore_shifts",
		MergeDecision: string(decision),
		Added:         outcome.Counts.Added,
		Updated:       outcome.Counts.Updated,
		Skipped:       outcome.Counts.Skipped,
		ConflictCount: len(outcome.Conflicts),
	}
	if err := model.InsertImportRecordTx(dbTx, record); err != nil {
		return nil, fmt.Errorf("failed to record restore in history: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing restore transaction: %w", err)
	}

	s.InvalidateImportCache()
	logger.L.Info("Shift restore complete", "decision", string(decision),
		"added", outcome.Counts.Added, "updated", outcome.Counts.Updated,
		"skipped", outcome.Counts.Skipped, "conflicts", len(outcome.Conflicts))
	return &RestoreResult{Counts: outcome.Counts, Conflicts: outcome.Conflicts}, nil
}

func (s *importServiceImpl) RestoreExpenses(incoming []model.Expense, decision models.MergeDecision) (*RestoreResult, error) {
	existing, err := model.ListExpenses(database.DB)
	if err != nil {
		return nil, fmt.Errorf("error loading existing expenses: %w", err)
	}
	outcome := processors.ReconcileExpenses(existing, incoming, decision)

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if decision == models.MergeReplaceAll {
		if err := model.DeleteAllExpensesTx(dbTx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
		}
	}
	for i := range outcome.Inserts {
		if err := model.InsertExpenseTx(dbTx, &outcome.Inserts[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
		}
	}
	for i := range outcome.Updates {
		if err := model.UpdateExpenseTx(dbTx, &outcome.Updates[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReconciliationFailed, err)
		}
	}

	record := &model.ImportRecord{
		BatchID:       uuid.New().String(),
		Source:        "restore_expenses",
		MergeDecision: string(decision),
		Added:         outcome.Counts.Added,
		Updated:       outcome.Counts.Updated,
		Skipped:       outcome.Counts.Skipped,
	}
	if err := model.InsertImportRecordTx(dbTx, record); err != nil {
		return nil, fmt.Errorf("failed to record restore in history: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing restore transaction: %w", err)
	}

	logger.L.Info("Expense restore complete", "decision", string(decision),
		"added", outcome.Counts.Added, "updated", outcome.Counts.Updated,
		"skipped", outcome.Counts.Skipped)
	return &RestoreResult{Counts: outcome.Counts}, nil
}

// ResolveConflict applies the user's keep-manual / accept-imported choice to
// a pending conflict. The winning value lands on the shift field and the
// original slot is cleared; there is no partial or averaged resolution.
func (s *importServiceImpl) ResolveConflict(conflictID int64, resolution models.ConflictResolution) (*models.ValueConflict, error) {
	c, err := model.GetConflictByID(database.DB, conflictID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConflictNotFound
		}
		return nil, err
	}
	if c.ResolvedAt != nil {
		return nil, ErrConflictAlreadyResolved
	}

	value := decimal.NullDecimal{Decimal: c.Resolve(resolution), Valid: true}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := model.UpdateShiftFieldTx(dbTx, c.ShiftID, string(c.Field), value, decimal.NullDecimal{}); err != nil {
		return nil, fmt.Errorf("failed to apply conflict resolution: %w", err)
	}
	if err := model.MarkConflictResolvedTx(dbTx, c.ID, resolution); err != nil {
		return nil, fmt.Errorf("failed to mark conflict resolved: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing conflict resolution: %w", err)
	}

	now := time.Now().UTC()
	c.ResolvedAt = &now
	c.Resolution = string(resolution)
	s.InvalidateImportCache()
	logger.L.Info("Conflict resolved", "conflictID", c.ID, "shiftID", c.ShiftID,
		"field", string(c.Field), "resolution", string(resolution))
	return c, nil
}

// GetLatestImportResult returns the cached summary of the most recent import,
// falling back to the audit log when the cache has expired.
func (s *importServiceImpl) GetLatestImportResult() (*ImportResult, error) {
	if cached, found := s.reportCache.Get(ckLatestImportResult); found {
		return cached.(*ImportResult), nil
	}
	history, err := model.ListImportHistory(database.DB)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, ErrNoImportsYet
	}
	latest := history[0]
	conflicts, err := model.ListUnresolvedConflicts(database.DB)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{
		BatchID:         latest.BatchID,
		StatementPeriod: latest.StatementPeriod,
		Counts: models.ReconcileCounts{
			Added:   latest.Added,
			Updated: latest.Updated,
			Skipped: latest.Skipped,
		},
		Conflicts: conflicts,
	}
	s.reportCache.Set(ckLatestImportResult, result, DefaultCacheExpiration)
	return result, nil
}

func (s *importServiceImpl) InvalidateImportCache() {
	s.reportCache.Delete(ckLatestImportResult)
}
