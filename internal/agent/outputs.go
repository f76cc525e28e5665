package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ContextAudit is the Context Auditor's structured output (§3). Valid iff
// Missing is empty and every CanonicalFilesPresent entry is true.
type ContextAudit struct {
	CanonicalFilesPresent map[string]bool `json:"canonical_files_present"`
	DOMIDs                []string        `json:"dom_ids"`
	CSSSelectors          []string        `json:"css_selectors"`
	JSFunctionsOrAnchors  []string        `json:"js_functions_or_anchors"`
	Evidence              []Evidence      `json:"evidence"`
	Missing               []string        `json:"missing"`
}

// Evidence cites where an identifier was found.
type Evidence struct {
	Identifier string `json:"identifier"`
	Quote      string `json:"quote"`
	File       string `json:"file"`
}

// Valid reports whether the audit clears Gate 2.
func (a *ContextAudit) Valid() bool {
	if len(a.Missing) > 0 {
		return false
	}
	for _, present := range a.CanonicalFilesPresent {
		if !present {
			return false
		}
	}
	return true
}

// ReviewGate is the Reviewer's structured output (§3).
type ReviewGate struct {
	Pass                    bool     `json:"pass"`
	FailedRequirements      []string `json:"failed_requirements"`
	FailedIntegrationChecks []string `json:"failed_integration_checks"`
	Notes                   string   `json:"notes"`
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// extractJSON pulls a JSON object out of model output that may be wrapped
// in a fenced code block or preceded/followed by stray prose, despite the
// prompt's instruction to emit JSON only.
func extractJSON(raw string) string {
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	trimmed := strings.TrimSpace(raw)
	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}

// ParseContextAudit parses the Context Auditor's raw output.
func ParseContextAudit(raw string) (*ContextAudit, error) {
	var audit ContextAudit
	if err := json.Unmarshal([]byte(extractJSON(raw)), &audit); err != nil {
		return nil, fmt.Errorf("parse context audit: %w", err)
	}
	return &audit, nil
}

// ParseReviewGate parses the Reviewer's raw output.
func ParseReviewGate(raw string) (*ReviewGate, error) {
	var gate ReviewGate
	if err := json.Unmarshal([]byte(extractJSON(raw)), &gate); err != nil {
		return nil, fmt.Errorf("parse review gate: %w", err)
	}
	return &gate, nil
}
