// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jembi/datim-update-infoman/internal/ports/secondary"
)

// ProgressTracker implements secondary.ProgressStore with a hidden side-file next
// to each input CSV. The file holds the last processed line number as text.
type ProgressTracker struct{}

// NewProgressTracker creates a new filesystem progress tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// MarkerPath returns the marker file for csvPath: ".<name>.progress" in the same
// directory.
func MarkerPath(csvPath string) string {
	dir, base := filepath.Split(csvPath)
	return filepath.Join(dir, "."+base+".progress")
}

// ResumeLine reads the marker for csvPath.
func (t *ProgressTracker) ResumeLine(ctx context.Context, csvPath string) (int, bool, error) {
	f, err := os.Open(MarkerPath(csvPath))
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to open progress marker: %w", err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		// empty file
		return 0, false, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n <= 0 {
		return 0, false, nil
	}
	return n, true, nil
}

// Save overwrites the marker for csvPath with line.
func (t *ProgressTracker) Save(ctx context.Context, csvPath string, line int) error {
	if err := os.WriteFile(MarkerPath(csvPath), []byte(strconv.Itoa(line)), 0644); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Clear removes the marker for csvPath if present.
func (t *ProgressTracker) Clear(ctx context.Context, csvPath string) error {
	err := os.Remove(MarkerPath(csvPath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear progress: %w", err)
	}
	return nil
}

// Ensure ProgressTracker implements the interface.
var _ secondary.ProgressStore = (*ProgressTracker)(nil)
