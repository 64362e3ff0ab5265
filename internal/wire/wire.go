// Package wire provides dependency injection for the updater.
// It builds the adapters and services for one run from a validated Config.
package wire

import (
	"io"

	"go.uber.org/zap"

	cliadapter "github.com/jembi/datim-update-infoman/internal/adapters/cli"
	"github.com/jembi/datim-update-infoman/internal/adapters/csd"
	"github.com/jembi/datim-update-infoman/internal/adapters/filesystem"
	"github.com/jembi/datim-update-infoman/internal/app"
	"github.com/jembi/datim-update-infoman/internal/config"
	"github.com/jembi/datim-update-infoman/internal/version"
)

// Options carries the non-config collaborators of a run.
type Options struct {
	Out     io.Writer
	NoColor bool
	Logger  *zap.Logger
}

// UpdateService returns a BatchService wired to the CSD client, the filesystem
// progress tracker and a console line reporter writing to opts.Out.
func UpdateService(cfg config.Config, opts Options) *app.BatchService {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create adapters (secondary ports)
	client := csd.NewClient(cfg.BaseURL, cfg.Timeout, version.UserAgent(), logger.Named("csd"))
	progress := filesystem.NewProgressTracker()
	reporter := cliadapter.NewLineReporter(opts.Out, opts.NoColor)

	// Create services (primary ports implementation)
	rows := app.NewRowProcessor(cfg, client, logger.Named("row"))
	return app.NewBatchService(cfg, rows, progress, reporter, logger.Named("batch"))
}
