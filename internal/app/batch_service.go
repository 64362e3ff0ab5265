// Package app contains the application services that orchestrate business logic.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jembi/datim-update-infoman/internal/config"
	"github.com/jembi/datim-update-infoman/internal/core/csvline"
	"github.com/jembi/datim-update-infoman/internal/core/row"
	"github.com/jembi/datim-update-infoman/internal/ports/primary"
	"github.com/jembi/datim-update-infoman/internal/ports/secondary"
)

// ErrRunHalted is returned when a line failed fatally. The failure has already
// been reported on its line.
var ErrRunHalted = errors.New("run halted")

// BatchService implements the UpdateService interface.
type BatchService struct {
	cfg      config.Config
	rows     primary.RowService
	progress secondary.ProgressStore
	reporter secondary.LineReporter
	logger   *zap.Logger
}

// NewBatchService creates a new BatchService with injected dependencies.
func NewBatchService(
	cfg config.Config,
	rows primary.RowService,
	progress secondary.ProgressStore,
	reporter secondary.LineReporter,
	logger *zap.Logger,
) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{
		cfg:      cfg,
		rows:     rows,
		progress: progress,
		reporter: reporter,
		logger:   logger,
	}
}

// Run processes csvPath line by line.
//
// Lines at or below a saved resume line are skipped silently. Progress is saved
// after every line, including one that fails fatally; the marker is removed only
// when the whole file has been consumed.
func (s *BatchService) Run(ctx context.Context, csvPath string) (*primary.RunResult, error) {
	result := &primary.RunResult{
		RunID:  uuid.NewString(),
		Counts: make(map[row.Kind]int),
	}
	logger := s.logger.With(zap.String("run_id", result.RunID), zap.String("csv", csvPath))

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	if !s.cfg.IgnoreProgress {
		line, ok, err := s.progress.ResumeLine(ctx, csvPath)
		if err != nil {
			return nil, err
		}
		result.Resumed = ok
		result.ResumeLine = line
	}

	s.reporter.Banner(fmt.Sprintf("Using OpenInfoMan instance %s and directory %s", s.cfg.BaseURL, s.cfg.Directory))
	if result.Resumed {
		s.reporter.Banner(fmt.Sprintf("Resuming CSV %s ...", csvPath))
	} else {
		s.reporter.Banner(fmt.Sprintf("Processing CSV %s ...", csvPath))
	}
	s.reporter.Banner("")
	logger.Debug("run started", zap.Bool("resumed", result.Resumed), zap.Int("resume_line", result.ResumeLine))

	reader := bufio.NewReader(f)
	lineNum := 0
	for {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("interrupted after line %d: %w", lineNum, err)
		}

		text, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return result, fmt.Errorf("failed to read CSV: %w", readErr)
		}
		if text == "" && readErr != nil {
			break
		}
		lineNum++

		outcome, report := s.processLine(ctx, lineNum, text, result.ResumeLine)
		if outcome.Fatal() && ctx.Err() != nil {
			// interrupted mid-request; leave the marker on the previous line
			return result, fmt.Errorf("interrupted at line %d: %w", lineNum, ctx.Err())
		}
		if report {
			s.reporter.Line(lineNum, outcome)
			result.Counts[outcome.Kind]++
			logger.Debug("line processed", zap.Int("line", lineNum), zap.Stringer("outcome", outcome.Kind))
		}

		if err := s.progress.Save(ctx, csvPath, lineNum); err != nil {
			return result, err
		}
		result.LastLine = lineNum

		if outcome.Fatal() {
			logger.Debug("run halted", zap.Int("line", lineNum), zap.String("reason", outcome.Message))
			return result, fmt.Errorf("%w at line %d", ErrRunHalted, lineNum)
		}

		if readErr != nil {
			break
		}
	}

	if err := s.progress.Clear(ctx, csvPath); err != nil {
		return result, err
	}
	result.Completed = true
	s.reporter.Summary(result.Counts)
	s.reporter.Done()
	logger.Debug("run completed", zap.Int("lines", lineNum))

	return result, nil
}

// processLine returns the outcome for one line and whether it should be reported.
// Lines already handled by a previous run are not reported.
func (s *BatchService) processLine(ctx context.Context, lineNum int, text string, resumeLine int) (row.Outcome, bool) {
	if lineNum <= resumeLine {
		return row.Outcome{}, false
	}
	if lineNum == 1 && !s.cfg.FirstLineIsData {
		return row.Header(), true
	}
	return s.rows.ProcessRow(ctx, csvline.Split(text)), true
}

// Ensure BatchService implements the interface.
var _ primary.UpdateService = (*BatchService)(nil)
