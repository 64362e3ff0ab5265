package secondary

import "context"

// ProgressStore defines the secondary port for the per-file resume marker.
type ProgressStore interface {
	// ResumeLine returns the last processed line for csvPath.
	// ok is false when there is nothing to resume from.
	ResumeLine(ctx context.Context, csvPath string) (line int, ok bool, err error)

	// Save records line as the last processed line for csvPath.
	Save(ctx context.Context, csvPath string, line int) error

	// Clear removes the marker for csvPath. Missing markers are not an error.
	Clear(ctx context.Context, csvPath string) error
}
