// Package manifest implements the Context Bundler: it loads a target
// repository's canonical interface files plus a bounded sampling of other
// text files, and produces a ContextManifest plus a capped context string
// for prompt composition.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lucasnoah/polyagent/internal/config"
)

// maxContextChars bounds the concatenated context text handed to prompts.
const maxContextChars = 10000

// keywordVocabulary is the fixed set of terms sampled files are scanned for;
// a matching line is kept as a snippet even when the file as a whole is
// truncated.
var keywordVocabulary = []string{"modal", "session", "toast", "dialog", "auth", "error", "config"}

// Entry describes one file considered during bundling.
type Entry struct {
	Path      string
	Required  bool
	ByteCount int
	CharCount int
	Empty     bool
	content   string
}

// ContextManifest is the ordered record of files considered, plus any fatal
// errors discovered while loading required entries.
type ContextManifest struct {
	Entries     []Entry
	FatalErrors []string
}

// Bundler builds a ContextManifest against one working directory.
type Bundler struct {
	Kind config.RepoKind
}

// NewBundler constructs a Bundler for the given repo-kind declaration.
func NewBundler(kind config.RepoKind) *Bundler {
	return &Bundler{Kind: kind}
}

// BuildResult is the outcome of Build: the manifest plus the capped context
// text ready for prompt composition.
type BuildResult struct {
	Manifest    ContextManifest
	ContextText string
}

// Build loads every canonical file (recording fatal errors for any missing
// or empty one) and a bounded sample of other text files, then assembles a
// capped context string. Build never returns an error itself — absence of
// required files is represented in Manifest.FatalErrors, which the Context
// Gate (Gate 1) inspects before any agent is invoked.
func (b *Bundler) Build(workDir string) (*BuildResult, error) {
	result := &BuildResult{}
	var manifest ContextManifest

	for _, rel := range b.Kind.CanonicalFiles {
		entry, content, err := loadEntry(workDir, rel, true)
		if err != nil {
			manifest.FatalErrors = append(manifest.FatalErrors, fmt.Sprintf("canonical file %q: %v", rel, err))
			manifest.Entries = append(manifest.Entries, entry)
			continue
		}
		if entry.Empty {
			manifest.FatalErrors = append(manifest.FatalErrors, fmt.Sprintf("canonical file %q is empty", rel))
		}
		manifest.Entries = append(manifest.Entries, entry)
		entry.content = content
		manifest.Entries[len(manifest.Entries)-1] = entry
	}

	if len(manifest.FatalErrors) > 0 {
		result.Manifest = manifest
		return result, nil
	}

	sampled := b.sampleFiles(workDir)
	for _, rel := range sampled {
		entry, content, err := loadEntry(workDir, rel, false)
		if err != nil {
			continue
		}
		entry.content = content
		manifest.Entries = append(manifest.Entries, entry)
	}

	result.Manifest = manifest
	result.ContextText = assembleContextText(manifest)
	return result, nil
}

func loadEntry(workDir, rel string, required bool) (Entry, string, error) {
	full := filepath.Join(workDir, rel)
	data, err := os.ReadFile(full)
	if err != nil {
		return Entry{Path: rel, Required: required, Empty: true}, "", err
	}
	content := string(data)
	entry := Entry{
		Path:      rel,
		Required:  required,
		ByteCount: len(data),
		CharCount: len([]rune(content)),
		Empty:     len(strings.TrimSpace(content)) == 0,
	}
	return entry, content, nil
}

// sampleFiles walks the declared sample directories and returns a bounded,
// deterministically sorted list of repo-relative paths matching the
// declared sample extensions.
func (b *Bundler) sampleFiles(workDir string) []string {
	maxFiles := b.Kind.MaxSampleFiles
	if maxFiles <= 0 {
		maxFiles = 40
	}
	extSet := make(map[string]bool, len(b.Kind.SampleExtensions))
	for _, e := range b.Kind.SampleExtensions {
		extSet[e] = true
	}

	var found []string
	for _, dir := range b.Kind.SampleDirs {
		root := filepath.Join(workDir, dir)
		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || info == nil || info.IsDir() {
				return nil
			}
			if len(extSet) > 0 && !extSet[filepath.Ext(path)] {
				return nil
			}
			rel, relErr := filepath.Rel(workDir, path)
			if relErr != nil {
				return nil
			}
			found = append(found, rel)
			return nil
		})
	}
	sort.Strings(found)
	if len(found) > maxFiles {
		found = found[:maxFiles]
	}
	return found
}

// assembleContextText concatenates canonical file contents in full, then
// head-bounded samples with keyword-matched snippets, capped overall at
// maxContextChars.
func assembleContextText(m ContextManifest) string {
	var b strings.Builder
	remaining := maxContextChars

	write := func(s string) {
		if remaining <= 0 {
			return
		}
		if len(s) > remaining {
			s = s[:remaining]
		}
		b.WriteString(s)
		remaining -= len(s)
	}

	for _, e := range m.Entries {
		if remaining <= 0 {
			break
		}
		write(fmt.Sprintf("\n--- %s ---\n", e.Path))
		if e.Required {
			write(e.content)
			continue
		}
		write(headBounded(e.content, 2000))
		for _, snippet := range keywordSnippets(e.content) {
			write("\n// relevant: " + snippet)
		}
	}
	return b.String()
}

func headBounded(content string, maxChars int) string {
	if len(content) <= maxChars {
		return content
	}
	return content[:maxChars]
}

func keywordSnippets(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(line)
		for _, kw := range keywordVocabulary {
			if strings.Contains(lower, kw) {
				out = append(out, strings.TrimSpace(line))
				break
			}
		}
	}
	return out
}
