// Package utils holds small helpers shared by the transport layer.
package utils

import (
	"strconv"
	"strings"
)

// ParseLimit reads a ?limit= value. Blank, malformed and non-positive
// values yield 0, which callers treat as "use the configured default".
// Values above max are clamped when max > 0.
func ParseLimit(s string, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
