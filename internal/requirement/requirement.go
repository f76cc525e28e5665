// Package requirement implements the Requirement Extractor: parsing
// acceptance criteria and definition-of-done bullets out of an issue body
// into a deterministic checklist.
package requirement

import (
	"regexp"
	"strings"
)

// Requirement is one extracted checklist bullet, with its derived keyword
// set used later for satisfaction checks. Requirements are created once at
// extraction time and never mutated.
type Requirement struct {
	Text     string
	Keywords map[string]bool
}

var sectionHeaderRe = regexp.MustCompile(`(?mi)^#{1,6}\s*(acceptance criteria|definition of done|requirements|ac|dod)\s*$`)

var anyHeaderRe = regexp.MustCompile(`(?m)^#{1,6}\s*\S`)

var bulletRe = regexp.MustCompile(`^\s*(?:[-*]|\[[ xX]\]|\d+[.)])\s+(.+?)\s*$`)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "to": true,
	"of": true, "in": true, "on": true, "for": true, "is": true, "are": true,
	"be": true, "it": true, "as": true, "with": true, "that": true, "this": true,
	"should": true, "must": true, "will": true, "can": true, "at": true,
}

var tokenizeRe = regexp.MustCompile(`[^a-z0-9]+`)

// Extract parses body into an ordered, deterministic list of Requirement;
// title is not consulted. Empty input yields an empty list, never an error.
func Extract(title, body string) []Requirement {
	bullets := extractFromStructuredSections(body)
	if len(bullets) == 0 {
		bullets = firstNBullets(body, 15)
	}

	reqs := make([]Requirement, 0, len(bullets))
	for _, bullet := range bullets {
		reqs = append(reqs, Requirement{
			Text:     bullet,
			Keywords: tokenize(bullet),
		})
	}
	return reqs
}

// extractFromStructuredSections finds every heading matching the fixed
// pattern set and collects bullet lines underneath each, stopping at the
// next heading of any level.
func extractFromStructuredSections(body string) []string {
	headerMatches := sectionHeaderRe.FindAllStringIndex(body, -1)
	if len(headerMatches) == 0 {
		return nil
	}

	var bullets []string
	for _, m := range headerMatches {
		sectionStart := m[1]
		sectionEnd := len(body)

		rest := body[sectionStart:]
		if next := anyHeaderRe.FindStringIndex(rest); next != nil {
			sectionEnd = sectionStart + next[0]
		}

		section := body[sectionStart:sectionEnd]
		for _, line := range strings.Split(section, "\n") {
			if bm := bulletRe.FindStringSubmatch(line); bm != nil {
				bullets = append(bullets, strings.TrimSpace(bm[1]))
			}
		}
	}
	return bullets
}

// firstNBullets is the fallback used when no structured section is found:
// the first n bullet-shaped lines anywhere in the body, in document order.
func firstNBullets(body string, n int) []string {
	var bullets []string
	for _, line := range strings.Split(body, "\n") {
		if bm := bulletRe.FindStringSubmatch(line); bm != nil {
			bullets = append(bullets, strings.TrimSpace(bm[1]))
			if len(bullets) >= n {
				break
			}
		}
	}
	return bullets
}

// tokenize lowercases, splits on non-alphanumerics, and discards stopwords.
func tokenize(s string) map[string]bool {
	lower := strings.ToLower(s)
	tokens := tokenizeRe.Split(lower, -1)
	set := make(map[string]bool)
	for _, tok := range tokens {
		if tok == "" || stopwords[tok] {
			continue
		}
		set[tok] = true
	}
	return set
}
