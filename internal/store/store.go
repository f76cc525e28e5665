// Package store persists the pipeline's three on-disk artifacts named in
// §9: the ProcessedIssues set, the per-issue human-readable plan file, and
// the post-commit patch artifact. It reuses the teacher's atomic
// temp-file-then-rename write primitive throughout, since every artifact
// here is read by a human or a subsequent run and must never be observed
// half-written.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// WriteAtomic writes data to path by writing a temp file in the same
// directory and renaming it into place, so a crash mid-write never leaves
// a partially-written artifact on disk.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	tmpName = ""
	return nil
}

// WriteJSON writes v as pretty-printed JSON to path atomically.
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	return WriteAtomic(path, data)
}

// ReadJSON reads a JSON file at path into v.
func ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}

// ProcessedIssues is the §3/§7 persistent set of integer issue identifiers
// already handled. It is consulted in batch mode (to skip), bypassed in
// single-issue mode, and its lifecycle is independent of any single run:
// read once per run, written once at successful completion.
type ProcessedIssues struct {
	path string
	seen map[int]bool
}

// LoadProcessedIssues reads data/processed_issues.json under baseDir,
// treating a missing file as an empty set.
func LoadProcessedIssues(baseDir string) (*ProcessedIssues, error) {
	path := filepath.Join(baseDir, "data", "processed_issues.json")
	pi := &ProcessedIssues{path: path, seen: make(map[int]bool)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return pi, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read processed issues: %w", err)
	}

	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return nil, fmt.Errorf("parse processed issues: %w", err)
	}
	for _, n := range nums {
		pi.seen[n] = true
	}
	return pi, nil
}

// Contains reports whether issue has already been processed.
func (p *ProcessedIssues) Contains(issue int) bool {
	return p.seen[issue]
}

// All returns every processed issue number, sorted ascending.
func (p *ProcessedIssues) All() []int {
	nums := make([]int, 0, len(p.seen))
	for n := range p.seen {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Add records issue as processed and persists the set immediately, so the
// on-disk set always reflects exactly the runs that completed successfully.
func (p *ProcessedIssues) Add(issue int) error {
	if p.seen[issue] {
		return nil
	}
	p.seen[issue] = true

	nums := make([]int, 0, len(p.seen))
	for n := range p.seen {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	data, err := json.MarshalIndent(nums, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal processed issues: %w", err)
	}
	data = append(data, '\n')
	return WriteAtomic(p.path, data)
}

// PlanPath returns the path to the human-readable run report for issue
// under workDir, per §9: "<work_dir>/implementations/issue_<N>_plan.md".
func PlanPath(workDir string, issue int) string {
	return filepath.Join(workDir, "implementations", fmt.Sprintf("issue_%d_plan.md", issue))
}

// SavePlan writes the plan markdown for issue to its canonical path.
func SavePlan(workDir string, issue int, content string) error {
	return WriteAtomic(PlanPath(workDir, issue), []byte(content))
}

// PatchPath returns the path to the post-commit patch artifact, per §9:
// "<work_dir>/crewai_patch.diff".
func PatchPath(workDir string) string {
	return filepath.Join(workDir, "crewai_patch.diff")
}

// SavePatch writes the unified-diff patch artifact. Present only on
// complete runs — callers must not invoke this for an incomplete run.
func SavePatch(workDir string, patchText string) error {
	return WriteAtomic(PatchPath(workDir), []byte(patchText))
}
