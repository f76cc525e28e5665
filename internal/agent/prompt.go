package agent

import (
	"fmt"
	"strings"
)

// ComposeInput carries everything the Prompt Composer (§4.3) binds into
// every per-agent task description: the bundled context text, the
// requirement checklist, the path allowlist, forbidden prefixes, and the
// prior agents' outputs.
type ComposeInput struct {
	IssueNumber       int
	IssueTitle        string
	IssueBody         string
	ContextText       string
	RequirementsText  string // rendered checklist, one bullet per line
	AllowlistTopN     []string
	ForbiddenPrefixes []string
	PMOutput          string
	AuditorOutput     string
	ArchitectOutput   string
	DeveloperOutput   string
	RetryPayload      string // missing-item checklist from a prior failed attempt, if any
}

func joinList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return "- " + strings.Join(items, "\n- ")
}

// Compose renders the system and user prompt for role from in.
func Compose(role Role, in ComposeInput) (systemPrompt, userPrompt string, err error) {
	spec, ok := Specs[role]
	if !ok {
		return "", "", fmt.Errorf("unknown role %q", role)
	}

	system := fmt.Sprintf("You are the %s. Goal: %s Backstory: %s", spec.Title, spec.Goal, spec.Backstory)

	vars := Vars{
		"issue_number":       fmt.Sprintf("%d", in.IssueNumber),
		"issue_title":        in.IssueTitle,
		"issue_body":         in.IssueBody,
		"context_text":       in.ContextText,
		"requirements_text":  in.RequirementsText,
		"allowlist":          joinList(in.AllowlistTopN),
		"forbidden_prefixes": joinList(in.ForbiddenPrefixes),
		"pm_output":          in.PMOutput,
		"auditor_output":     in.AuditorOutput,
		"architect_output":   in.ArchitectOutput,
		"developer_output":   in.DeveloperOutput,
		"retry_payload":      in.RetryPayload,
	}

	tmpl, ok := templates[role]
	if !ok {
		return "", "", fmt.Errorf("no template registered for role %q", role)
	}

	user, err := Render(tmpl, vars)
	if err != nil {
		return "", "", fmt.Errorf("render %s prompt: %w", role, err)
	}
	return system, user, nil
}

var templates = map[Role]string{
	RolePM: `# Issue #{{issue_number}}: {{issue_title}}

{{issue_body}}

## Repository Context
{{context_text}}

## Task
Write a user story with scoped acceptance criteria, an explicit out-of-scope
list, and the main risks. Do not invent requirements beyond the issue body.
{{#if retry_payload}}

## Previous Attempt Was Incomplete
{{retry_payload}}
{{/if}}
`,

	RoleAuditor: `# Context Audit for Issue #{{issue_number}}: {{issue_title}}

## Product Manager's Story
{{pm_output}}

## Repository Context
{{context_text}}

## Task
Emit a ContextAudit JSON object with fields: canonical_files_present
(map of path to bool), dom_ids, css_selectors, js_functions_or_anchors,
evidence (list of {identifier, quote, file}), and missing (list of
strings). Only cite identifiers you can find verbatim in the context
above. If you cannot find an identifier the story depends on, list it in
missing rather than guessing.
`,

	RoleArchitect: `# Architecture Plan for Issue #{{issue_number}}: {{issue_title}}

## Product Manager's Story
{{pm_output}}

## Context Audit
{{auditor_output}}

## Requirements Checklist
{{requirements_text}}

## Allowed Paths (top entries, canonical files first)
{{allowlist}}

{{#if forbidden_prefixes}}
## Forbidden Path Prefixes
{{forbidden_prefixes}}
{{/if}}

## Task
Produce the smallest file-change plan that satisfies the story. Quote
identifiers from the context audit. Include a "New Functions" section
listing any new function names, a "Files to Change" section, and a
"Test Approach" section naming the test file(s) involved.
{{#if retry_payload}}

## Previous Attempt Was Incomplete
{{retry_payload}}
{{/if}}
`,

	RoleDeveloper: `# Implementation for Issue #{{issue_number}}: {{issue_title}}

## Architecture Plan
{{architect_output}}

## Allowed Paths (top entries, canonical files first)
{{allowlist}}

{{#if forbidden_prefixes}}
## Forbidden Path Prefixes
{{forbidden_prefixes}}
{{/if}}

## Task
Emit a single JSON ChangeSet implementing the plan above. No prose, no
unified diffs. Every change must include "path" and "operation";
upsert_function_js changes must include "function_name". Only touch
paths in the allowed list above. Never write a forbidden placeholder
("TODO", "placeholder", "tbd", "fill in", "replace_me", or similar) —
write the real implementation.
{{#if retry_payload}}

## Previous Attempt Was Incomplete — Fix These
{{retry_payload}}
{{/if}}
`,

	RoleReviewer: `# Review for Issue #{{issue_number}}: {{issue_title}}

## Requirements Checklist
{{requirements_text}}

## Architecture Plan
{{architect_output}}

## Proposed ChangeSet
{{developer_output}}

## Task
Emit a ReviewGate JSON object with fields: pass (bool),
failed_requirements (list of strings), failed_integration_checks (list
of strings), notes (string). Fail the review if any acceptance
criterion from the requirements checklist is unaddressed, or if the
ChangeSet touches anything outside its declared plan. A vague "looks
fine" without specifics is not a pass.
`,

	RoleTester: `# Test Command for Issue #{{issue_number}}: {{issue_title}}

## Architecture Plan (Test Approach)
{{architect_output}}

## Task
Name the single shell command that runs this repository's test suite.
Prefer the project's own test script (e.g. from package.json) over
inventing one. Respond with the command only.
`,
}
