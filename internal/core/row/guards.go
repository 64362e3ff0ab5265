// Package row contains the pure business logic for a single CSV row.
// Guards are pure functions that evaluate preconditions without side effects.
package row

import "fmt"

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// ProcessRowContext provides context for the row eligibility guard.
type ProcessRowContext struct {
	Fields         []string
	CanonicalIDCol int
	LocalIDCol     int
	MaxColumn      int // highest index of the two
}

// Keys holds the two identifiers extracted from an eligible row.
type Keys struct {
	CanonicalID string
	LocalID     string
}

// CanProcessRow evaluates whether a row carries enough data to look up and update
// a resource.
// Rules:
// - Row must have more fields than MaxColumn
// - Canonical ID field must not be empty
// - Local ID field must not be empty
func CanProcessRow(ctx ProcessRowContext) GuardResult {
	// Rule 1: enough columns
	if len(ctx.Fields) <= ctx.MaxColumn {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("row has %d column(s), need at least %d", len(ctx.Fields), ctx.MaxColumn+1),
		}
	}

	// Rule 2: canonical ID present
	if ctx.Fields[ctx.CanonicalIDCol] == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "PEPFAR ID is empty",
		}
	}

	// Rule 3: local ID present
	if ctx.Fields[ctx.LocalIDCol] == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "local ID is empty",
		}
	}

	return GuardResult{Allowed: true}
}

// ExtractKeys returns the identifiers of a row that passed CanProcessRow.
func ExtractKeys(ctx ProcessRowContext) Keys {
	return Keys{
		CanonicalID: ctx.Fields[ctx.CanonicalIDCol],
		LocalID:     ctx.Fields[ctx.LocalIDCol],
	}
}
