// Package sqlutil provides SQL building helpers for wsstats.
//
// Collection names come from configuration, so every identifier that ends up
// in a statement goes through QuoteIdentifierSafe first.
package sqlutil

import (
	"regexp"
	"strings"
)

// QuoteIdentifier quotes an identifier (table or column name) with backticks.
// It escapes any existing backticks by doubling them. Both MySQL and SQLite
// accept backtick quoting.
func QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// validIdentifierRegex restricts identifiers to alphanumerics and underscores.
var validIdentifierRegex = regexp.MustCompile("^[a-zA-Z0-9_]+$")

// IsValidIdentifier checks if a name is safe to use as an identifier.
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name)
}

// QuoteIdentifierSafe quotes an identifier after validating it.
func QuoteIdentifierSafe(name string) (string, error) {
	if !IsValidIdentifier(name) {
		return "", &InvalidIdentifierError{Name: name}
	}
	return QuoteIdentifier(name), nil
}

// InvalidIdentifierError is returned when an identifier contains invalid characters.
type InvalidIdentifierError struct {
	Name string
}

func (e *InvalidIdentifierError) Error() string {
	return "invalid identifier: " + e.Name + " (must contain only alphanumeric characters and underscores)"
}

// ColumnList quotes and comma-joins column names for a projection.
func ColumnList(columns ...string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// RepeatJoin repeats term n times joined by sep, e.g. the OR of n lookup
// predicates in a batched point query. n < 1 yields "".
func RepeatJoin(term, sep string, n int) string {
	if n < 1 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(term)
	}
	return sb.String()
}
