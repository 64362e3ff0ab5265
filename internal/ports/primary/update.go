// Package primary defines the primary ports (driving adapters) for the application.
package primary

import (
	"context"

	"github.com/jembi/datim-update-infoman/internal/core/row"
)

// UpdateService defines the primary port for annotating directory records from a CSV.
type UpdateService interface {
	// Run processes csvPath from its resume point to the end.
	// A halted run returns a non-nil result together with the error.
	Run(ctx context.Context, csvPath string) (*RunResult, error)
}

// RowService defines the primary port for processing a single parsed row.
type RowService interface {
	ProcessRow(ctx context.Context, fields []string) row.Outcome
}

// RunResult summarises one run.
type RunResult struct {
	RunID      string
	Resumed    bool
	ResumeLine int
	LastLine   int
	Counts     map[row.Kind]int
	Completed  bool
}
