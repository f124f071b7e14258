// Package matchstats derives comparable statistics from a fixture and its raw
// head-to-head history.
package matchstats

import "strings"

// NormalizeName returns the comparison key for a participant name: periods
// removed, surrounding whitespace trimmed, lowercased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(name, ".", "")))
}
