package coverage

import (
	"regexp"
	"strings"

	"github.com/lucasnoah/polyagent/internal/requirement"
)

var wordRe = regexp.MustCompile(`[^a-z0-9]+`)

// minOverlapRatio is the conservative threshold below which a requirement
// is considered unsatisfied. Intentionally permits false negatives, never
// false positives (§4.5) — tighten, never loosen, if tuning is needed.
const minOverlapRatio = 0.5

// CheckRequirements computes keyword overlap for each requirement against
// the concatenated plan text and post-apply changed-file content, returning
// the texts of every unsatisfied requirement.
func CheckRequirements(reqs []requirement.Requirement, planText string, changedContent []string) []string {
	haystack := tokenSet(planText)
	for _, c := range changedContent {
		for tok := range tokenSet(c) {
			haystack[tok] = true
		}
	}

	var unsatisfied []string
	for _, r := range reqs {
		if len(r.Keywords) == 0 {
			continue
		}
		matched := 0
		for kw := range r.Keywords {
			if haystack[kw] {
				matched++
			}
		}
		ratio := float64(matched) / float64(len(r.Keywords))
		if ratio < minOverlapRatio {
			unsatisfied = append(unsatisfied, r.Text)
		}
	}
	return unsatisfied
}

func tokenSet(s string) map[string]bool {
	lower := strings.ToLower(s)
	set := make(map[string]bool)
	for _, tok := range wordRe.Split(lower, -1) {
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}
