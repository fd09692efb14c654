package classify

import "strings"

// IsTargetDocument reads a free-text verdict. Any case-insensitive "true"
// in the text counts as a match; everything else, including an empty
// verdict, does not.
func IsTargetDocument(verdict string) bool {
	return strings.Contains(strings.ToLower(verdict), "true")
}
