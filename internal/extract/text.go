// Package extract turns LinkedIn card markup into job records.
//
// It is a structural heuristic, not a parser: it relies on link targets and
// utility class names and degrades to empty fields when they change.
package extract

import "strings"

// CleanText replaces non-breaking spaces, collapses runs of whitespace and trims.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
