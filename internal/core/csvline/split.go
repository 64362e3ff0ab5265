// Package csvline splits a single CSV line into fields.
// This is part of the Functional Core - no I/O, only pure functions.
package csvline

import (
	"strings"
	"unicode"
)

// Split tokenizes one line on commas, honouring double-quoted fields.
//
// A double quote toggles quoted mode and is never part of a field, so a doubled
// quote inside a field cancels out instead of producing a literal quote. The last
// field is kept only when it is non-empty: "a," yields ["a"]. Trailing
// whitespace, including the line terminator, is ignored.
func Split(line string) []string {
	line = strings.TrimRightFunc(line, unicode.IsSpace)

	var fields []string
	var token strings.Builder
	inQuotes := false

	for _, c := range line {
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ',' && !inQuotes:
			fields = append(fields, token.String())
			token.Reset()
		default:
			token.WriteRune(c)
		}
	}

	if token.Len() > 0 {
		fields = append(fields, token.String())
	}

	return fields
}
