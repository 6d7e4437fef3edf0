// Package format holds the presentation and input normalization helpers
// shared by the submission and listing paths.
package format

import (
	"fmt"
	"strings"
	"time"
)

// DefaultPct is the percentage applied when the submitted value is
// missing, unparsable or zero.
const DefaultPct = 20

// dateLayouts lists the accepted incoming date shapes, most common first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"02/01/2006",
	time.RFC3339,
}

// Date normalizes a stored date string to the canonical YYYY-MM-DD form.
// Returns an error when the value matches none of the accepted shapes;
// callers decide whether to fall back to the raw value.
func Date(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unparsable date %q", raw)
}

// Status maps a stored bill status to its display label. Unknown values
// pass through unchanged.
func Status(status string) string {
	switch status {
	case "pending":
		return "En attente"
	case "accepted":
		return "Accepté"
	case "refused":
		return "Refusé"
	default:
		return status
	}
}

// Pct parses the submitted percentage, coercing missing, unparsable or
// zero input to DefaultPct.
func Pct(raw string) int {
	n, err := leadingInt(raw)
	if err != nil || n == 0 {
		return DefaultPct
	}
	return n
}

// Amount parses the submitted amount as an integer. A nil result marks a
// non-numeric value; the error state is carried as-is rather than being
// coerced to a number.
func Amount(raw string) *int {
	n, err := leadingInt(raw)
	if err != nil {
		return nil
	}
	return &n
}

// leadingInt reads an optionally signed integer prefix, so "12.50" parses
// as 12 while "abc" is rejected.
func leadingInt(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	digits := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		digits++
	}
	if digits == 0 {
		return 0, fmt.Errorf("no numeric prefix in %q", raw)
	}
	if neg {
		n = -n
	}
	return n, nil
}
