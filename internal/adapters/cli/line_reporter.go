// Package cli provides thin CLI adapters that translate application events into
// console output.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/jembi/datim-update-infoman/internal/core/row"
	"github.com/jembi/datim-update-infoman/internal/ports/secondary"
)

// LineReporter prints one "[Status] line N: message" entry per reported line.
// The status word is colored unless color is disabled.
type LineReporter struct {
	out    io.Writer
	labels map[row.Status]string
}

// NewLineReporter creates a reporter writing to out.
func NewLineReporter(out io.Writer, noColor bool) *LineReporter {
	paint := func(label string, attr color.Attribute) string {
		c := color.New(attr)
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
		return c.Sprint(label)
	}

	return &LineReporter{
		out: out,
		labels: map[row.Status]string{
			row.StatusInfo:    "Info",
			row.StatusSuccess: paint("Success", color.FgGreen),
			row.StatusWarn:    paint("Warn", color.FgYellow),
			row.StatusError:   paint("Error", color.FgRed),
		},
	}
}

// Banner prints a run-level message.
func (r *LineReporter) Banner(msg string) {
	fmt.Fprintln(r.out, msg)
}

// Line prints the outcome of one line.
func (r *LineReporter) Line(lineNum int, outcome row.Outcome) {
	fmt.Fprintf(r.out, "[%s] line %d: %s\n", r.labels[outcome.Kind.Status()], lineNum, outcome.Message)
}

// summaryOrder lists the kinds a completed run can report, with their labels.
var summaryOrder = []struct {
	kind  row.Kind
	label string
}{
	{row.Updated, "updated"},
	{row.ContentWarning, "not found"},
	{row.InvalidContent, "invalid"},
	{row.SkippedHeader, "header skipped"},
}

// Summary prints the totals as "Processed N line(s): 2 updated, 1 invalid".
// Kinds with a zero count are left out.
func (r *LineReporter) Summary(counts map[row.Kind]int) {
	total := 0
	var parts []string
	for _, k := range summaryOrder {
		n := counts[k.kind]
		total += n
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k.label))
		}
	}

	fmt.Fprintln(r.out)
	if total == 0 {
		fmt.Fprintln(r.out, "Processed 0 lines")
		return
	}
	fmt.Fprintf(r.out, "Processed %d line(s): %s\n", total, strings.Join(parts, ", "))
}

// Done prints the completion message.
func (r *LineReporter) Done() {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Done")
}

// Ensure LineReporter implements the interface.
var _ secondary.LineReporter = (*LineReporter)(nil)
