package navigation

import "strings"

const (
	ellipsis = "..."

	addressLimit = 35
	subjectLimit = 40
	bodyLimit    = 800
)

// Truncate cuts s to at most limit runes and appends an ellipsis when it cut.
// A string already cut to limit by Truncate is returned unchanged.
func Truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if strings.HasSuffix(s, ellipsis) && len(r) == limit+len(ellipsis) {
		return s
	}
	return string(r[:limit]) + ellipsis
}
