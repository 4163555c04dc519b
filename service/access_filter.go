package service

import (
	"strings"

	"policyassist-backend/models"
)

// FilterResult is the visible chunk set for a requester. Relaxed is set when
// no chunk matched the requester's department and a fallback set was used.
type FilterResult struct {
	Chunks  []models.PolicyChunk
	Relaxed bool
}

// sourceDepartments maps substrings of a source name to a department, in
// match order. Source names are not reliably tagged, so matching is loose.
var sourceDepartments = []struct {
	department string
	tokens     []string
}{
	{"hr", []string{"hr", "human"}},
	{"it", []string{"it"}},
	{"finance", []string{"finance", "payroll"}},
	{"product", []string{"product"}},
	{"engineering", []string{"engineering", "eng"}},
	{"common", []string{"common", "company"}},
}

// EffectiveDepartment returns the chunk's department tag, inferring it from
// the source name when the tag is missing. Unmatched sources yield "".
func EffectiveDepartment(c models.PolicyChunk) string {
	if c.Department != "" {
		return c.Department
	}
	if c.Source == "" {
		return ""
	}
	for _, entry := range sourceDepartments {
		for _, tok := range entry.tokens {
			if strings.Contains(c.Source, tok) {
				return entry.department
			}
		}
	}
	return ""
}

// FilterChunks decides which candidates the requester may see.
//
// Candidates hidden by visibility (HR-only for employees) or outside a
// requested country scope are never returned, including after relaxation.
// Of the rest, a chunk is kept when it matches the requester's department by
// tag or text, or mentions "common". When nothing is kept the result relaxes:
// HR sees every admissible candidate, others see the admissible candidates
// mentioning "common" or, failing that, every admissible candidate.
func FilterChunks(candidates []models.PolicyChunk, requester models.Requester) FilterResult {
	admissible := make([]models.PolicyChunk, 0, len(candidates))
	for _, c := range candidates {
		if !requester.IsHR() && c.IsHROnly() {
			continue
		}
		if requester.Country != "" {
			if c.Country == "" || !strings.Contains(c.Country, requester.Country) {
				continue
			}
		}
		admissible = append(admissible, c)
	}

	var kept []models.PolicyChunk
	for _, c := range admissible {
		if matchesDepartment(c, requester.Department) {
			kept = append(kept, c)
		}
	}
	if len(kept) > 0 {
		return FilterResult{Chunks: kept}
	}

	if len(admissible) == 0 {
		return FilterResult{Chunks: []models.PolicyChunk{}}
	}

	if requester.IsHR() {
		return FilterResult{Chunks: admissible, Relaxed: true}
	}

	var common []models.PolicyChunk
	for _, c := range admissible {
		if c.MentionsCommon() {
			common = append(common, c)
		}
	}
	if len(common) > 0 {
		return FilterResult{Chunks: common, Relaxed: true}
	}

	return FilterResult{Chunks: admissible, Relaxed: true}
}

func matchesDepartment(c models.PolicyChunk, department string) bool {
	text := strings.ToLower(c.Content)
	effective := EffectiveDepartment(c)

	if department != "" && (strings.Contains(text, department) || department == effective) {
		return true
	}
	return strings.Contains(text, "common") || strings.Contains(effective, "common")
}
