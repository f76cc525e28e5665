package changeset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// diffMarkers are substrings that, if present in any content field, mark an
// agent output as an illegitimate unified diff rather than a structured
// change. Patches are derived from the git working tree, never from agent
// text — an agent emitting a diff is rejected outright.
var diffMarkers = []string{"diff --git", "--- a/", "+++ b/", "@@"}

// basePlaceholders are forbidden regardless of repo kind.
var basePlaceholders = []string{
	"todo", "placeholder", "logic to ", "tbd", "replace_me", "fill in",
}

// ValidationError is one schema, path-safety, diff-marker, or placeholder
// violation found during validation. Validation is all-or-nothing: no file
// is written until every change passes.
type ValidationError struct {
	Index   int
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("change[%d] %q: %s", e.Index, e.Path, e.Message)
	}
	return fmt.Sprintf("change[%d]: %s", e.Index, e.Message)
}

// Allowlist describes which repo-relative paths a Developer change may
// target, derived from the filesystem snapshot at pipeline start.
type Allowlist struct {
	RepoRoot       string
	Paths          map[string]bool
	CanonicalFiles map[string]bool
	ForbiddenPrefixes []string
}

// Validate checks every change in a ChangeSet against the schema, path
// safety, diff-marker, and placeholder rules. It returns every violation
// found (never stops at the first), matching the config package's
// accumulate-then-report idiom.
func Validate(cs *ChangeSet, allow Allowlist, forbiddenSubstrings []string) []ValidationError {
	cs.Normalize()

	var errs []ValidationError
	forbidden := append(append([]string{}, basePlaceholders...), forbiddenSubstrings...)

	for i, c := range cs.Changes {
		errs = append(errs, validateOne(i, c, allow, forbidden)...)
	}
	return errs
}

func validateOne(i int, c Change, allow Allowlist, forbidden []string) []ValidationError {
	var errs []ValidationError
	add := func(msg string) {
		errs = append(errs, ValidationError{Index: i, Path: c.Path, Message: msg})
	}

	switch c.Operation {
	case OpCreate, OpReplaceFile:
		if c.Path == "" {
			add("path is required")
		}
	case OpUpsertFunctionJS:
		if c.Path == "" {
			add("path is required")
		}
		if c.FunctionName == "" {
			add("function_name is required")
		}
	case OpUpsertCSSSelector:
		if c.Path == "" {
			add("path is required")
		}
		if c.Selector == "" {
			add("selector is required")
		}
	case OpInsertAfterAnchor, OpInsertBeforeAnchor:
		if c.Path == "" {
			add("path is required")
		}
		if c.Anchor == "" {
			add("anchor is required")
		}
	case OpAppendIfMissing:
		if c.Path == "" {
			add("path is required")
		}
		if c.Signature == "" {
			add("signature is required")
		}
	case OpEdit:
		if c.Path == "" {
			add("path is required")
		}
		if len(c.Edits) == 0 {
			add("edits must be non-empty")
		}
	case OpDelete:
		if c.Path == "" {
			add("path is required")
		}
	default:
		add(fmt.Sprintf("unrecognized operation %q", c.Operation))
		return errs
	}

	if c.Path != "" {
		if err := validatePathSafety(c.Path, allow); err != "" {
			add(err)
		}
	}

	for _, field := range contentFields(c) {
		for _, marker := range diffMarkers {
			if strings.Contains(field, marker) {
				add(fmt.Sprintf("content contains forbidden unified-diff marker %q", marker))
			}
		}
		lower := strings.ToLower(field)
		for _, ph := range forbidden {
			if strings.Contains(lower, ph) {
				add(fmt.Sprintf("content contains forbidden placeholder %q", ph))
			}
		}
	}

	return errs
}

// contentFields returns every text field on a Change that must be scanned
// for diff markers and placeholders: content, and each edit's find/replace.
func contentFields(c Change) []string {
	fields := []string{c.Content}
	for _, e := range c.Edits {
		fields = append(fields, e.Find, e.Replace)
	}
	return fields
}

// validatePathSafety rejects absolute paths, any ".." segment, paths that
// resolve (after symlink resolution) outside the repository root, and
// paths not in the allowlist (canonical files are auto-allowed). It
// returns an empty string when the path is safe.
func validatePathSafety(path string, allow Allowlist) string {
	if filepath.IsAbs(path) {
		return "absolute paths are rejected"
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return "path contains a \"..\" segment"
		}
	}

	resolved := filepath.Join(allow.RepoRoot, path)
	resolved, err := filepath.EvalSymlinks(filepath.Dir(resolved))
	if err == nil {
		resolved = filepath.Join(resolved, filepath.Base(path))
	} else {
		resolved = filepath.Join(allow.RepoRoot, path)
	}
	root, err := filepath.EvalSymlinks(allow.RepoRoot)
	if err != nil {
		root = allow.RepoRoot
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "path resolves outside the repository root"
	}

	for _, prefix := range allow.ForbiddenPrefixes {
		if strings.HasPrefix(path, prefix) {
			return fmt.Sprintf("path has forbidden prefix %q", prefix)
		}
	}

	if allow.CanonicalFiles[path] {
		return ""
	}
	if !allow.Paths[path] {
		return "path is not in the allowlist"
	}
	return ""
}

// ScanWrittenFiles implements Gate 5 (Post-Apply Gate): after all writes, it
// re-reads every changed file from repoRoot and re-scans for forbidden
// placeholder substrings, returning one "path: placeholder" string per hit.
// A clean pre-apply validation does not guarantee a clean post-apply
// result — upsert/anchor operations can splice agent content into a file
// in ways the pre-apply content-field scan never saw directly.
func ScanWrittenFiles(repoRoot string, changedFiles map[string]bool, forbiddenSubstrings []string) []string {
	forbidden := append(append([]string{}, basePlaceholders...), forbiddenSubstrings...)

	var hits []string
	paths := make([]string, 0, len(changedFiles))
	for path := range changedFiles {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		data, err := os.ReadFile(filepath.Join(repoRoot, path))
		if err != nil {
			continue
		}
		lower := strings.ToLower(string(data))
		for _, ph := range forbidden {
			if strings.Contains(lower, ph) {
				hits = append(hits, fmt.Sprintf("%s: %s", path, ph))
			}
		}
	}
	return hits
}
