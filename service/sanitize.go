package service

import (
	"regexp"
	"strings"
)

// metaSectionPattern matches headers the model tends to echo inline even
// when asked not to. Leftmost match is the earliest marker.
var metaSectionPattern = regexp.MustCompile(`(?i)next steps?:|suggested follow-up|suggested follow ups|suggested questions|suggestions:|follow-up questions:`)

// StripMetaSections cuts text at the first meta-section marker and trims it.
func StripMetaSections(text string) string {
	loc := metaSectionPattern.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:loc[0]])
}
