package coverage

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// jsDeclarationRes mirrors the declaration forms the Structured Change
// Applier recognizes, used here to grep for required function names across
// the canonical JS files.
var jsDeclarationRes = []*regexp.Regexp{
	regexp.MustCompile(`\bfunction\s+%NAME%\s*\(`),
	regexp.MustCompile(`\bconst\s+%NAME%\s*=`),
	regexp.MustCompile(`\blet\s+%NAME%\s*=`),
	regexp.MustCompile(`\bvar\s+%NAME%\s*=`),
	regexp.MustCompile(`(?m)^\s*%NAME%\s*\([^)]*\)\s*\{`), // class-method signature
}

// Report is the outcome of the Coverage check: which required items were
// found, and which are still missing.
type Report struct {
	MissingFunctions []string
	MissingSelectors []string
	MissingTestFiles []string
	MissingFiles     []string
}

// Empty reports whether nothing is missing — the Coverage Gate passes.
func (r Report) Empty() bool {
	return len(r.MissingFunctions) == 0 && len(r.MissingSelectors) == 0 &&
		len(r.MissingTestFiles) == 0 && len(r.MissingFiles) == 0
}

// Check walks the working tree for every item the plan declared required
// and reports anything absent.
func Check(repoRoot string, plan Plan, jsFiles, styleFiles []string) Report {
	var report Report

	for _, fn := range plan.Functions {
		if !functionDeclaredIn(repoRoot, jsFiles, fn) {
			report.MissingFunctions = append(report.MissingFunctions, fn)
		}
	}
	for _, sel := range plan.Selectors {
		if !selectorDeclaredIn(repoRoot, styleFiles, sel) {
			report.MissingSelectors = append(report.MissingSelectors, sel)
		}
	}
	for _, tf := range plan.TestFiles {
		if !exists(repoRoot, tf) {
			report.MissingTestFiles = append(report.MissingTestFiles, tf)
		}
	}
	for _, f := range plan.Files {
		if !exists(repoRoot, f) {
			report.MissingFiles = append(report.MissingFiles, f)
		}
	}

	return report
}

func functionDeclaredIn(repoRoot string, files []string, name string) bool {
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(repoRoot, f))
		if err != nil {
			continue
		}
		src := string(data)
		for _, pat := range jsDeclarationRes {
			re := regexp.MustCompile(strings.ReplaceAll(pat.String(), "%NAME%", regexp.QuoteMeta(name)))
			if re.MatchString(src) {
				return true
			}
		}
	}
	return false
}

func selectorDeclaredIn(repoRoot string, files []string, selector string) bool {
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(repoRoot, f))
		if err != nil {
			continue
		}
		if strings.Contains(string(data), selector) {
			return true
		}
	}
	return false
}

func exists(repoRoot, rel string) bool {
	_, err := os.Stat(filepath.Join(repoRoot, rel))
	return err == nil
}
