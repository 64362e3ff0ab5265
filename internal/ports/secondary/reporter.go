package secondary

import "github.com/jembi/datim-update-infoman/internal/core/row"

// LineReporter defines the secondary port for user-facing run output.
type LineReporter interface {
	// Banner prints a free-form run message such as the target instance.
	Banner(msg string)

	// Line prints the outcome of one line.
	Line(lineNum int, outcome row.Outcome)

	// Summary prints the per-kind totals of the lines reported in this run.
	Summary(counts map[row.Kind]int)

	// Done prints the completion message.
	Done()
}
