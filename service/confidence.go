package service

import (
	"regexp"
	"strconv"
)

const defaultConfidence = 80

var confidenceDigits = regexp.MustCompile(`\d{1,3}`)

// parseConfidence reads the first run of one to three digits and clamps it
// to [0,100].
func parseConfidence(reply string) (int, bool) {
	m := confidenceDigits.FindString(reply)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return min(max(n, 0), 100), true
}
