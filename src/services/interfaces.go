// backend/src/services/interfaces.go
package services

import (
	"errors"
	"io"

	"github.com/username/shiftledger/backend/src/model"
	"github.com/username/shiftledger/backend/src/models"
	"github.com/username/shiftledger/backend/src/processors"
)

// Common service errors.
var (
	ErrParsingFailed           = errors.New("statement parsing failed")
	ErrReconciliationFailed    = errors.New("reconciliation failed")
	ErrConflictNotFound        = errors.New("conflict not found")
	ErrConflictAlreadyResolved = errors.New("conflict already resolved")
	ErrNoImportsYet            = errors.New("no imports recorded")
)

// ImportResult summarizes one import run: what was parsed, how transactions
// were attributed to shifts, what the reconciliation did, and everything that
// needs the user's attention.
type ImportResult struct {
	BatchID         string                     `json:"batch_id"`
	StatementPeriod string                     `json:"statement_period"`
	Parsed          int                        `json:"parsed"`
	Matched         int                        `json:"matched"`
	Unmatched       int                        `json:"unmatched"`
	Counts          models.ReconcileCounts     `json:"counts"`
	Warnings        []models.ImportWarning     `json:"warnings"`
	Conflicts       []models.ValueConflict     `json:"conflicts"`
	SuggestedShifts []processors.ShiftTemplate `json:"suggested_shifts"`
}

// RestoreResult summarizes a backup restore run.
type RestoreResult struct {
	Counts    models.ReconcileCounts `json:"counts"`
	Conflicts []models.ValueConflict `json:"conflicts"`
}

// ImportService is the core import/reconcile surface the handlers call.
type ImportService interface {
	ImportStatementTokens(tokens []models.PositionedToken, period models.StatementPeriod, decision models.MergeDecision, filename string) (*ImportResult, error)
	ImportStatementCSV(r io.Reader, period models.StatementPeriod, decision models.MergeDecision, filename string) (*ImportResult, error)
	RestoreShifts(incoming []model.Shift, decision models.MergeDecision) (*RestoreResult, error)
	RestoreExpenses(incoming []model.Expense, decision models.MergeDecision) (*RestoreResult, error)
	ResolveConflict(conflictID int64, resolution models.ConflictResolution) (*models.ValueConflict, error)
	GetLatestImportResult() (*ImportResult, error)
	InvalidateImportCache()
}
