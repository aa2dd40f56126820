package ports

import (
	"context"
	"time"

	"github.com/MRI-Lab-Graz/prism-studio-sub003/domain/core"
)

// RunRecord is the audit entry stored per conversion run
type RunRecord struct {
	RunID            core.RunID
	SourceFile       string
	InputFingerprint core.Hash
	InputRows        int
	Tasks            []core.TaskName
	WarningCount     int
	ToleranceCount   int
	StartedAt        time.Time
	FinishedAt       time.Time
}

// RunLedgerPort provides append-only write access to the conversion audit
// trail. Recording is best-effort supporting infrastructure: a ledger
// failure never fails the conversion itself.
type RunLedgerPort interface {
	RecordRun(ctx context.Context, record RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
