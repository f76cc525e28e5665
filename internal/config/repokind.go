package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RepoKind declares the interface of one target-repository flavor: which
// files are canonical (always loaded, fatal if absent or empty), which path
// prefixes the Developer agent may never touch, and which content
// substrings are forbidden beyond the pipeline-wide placeholder list (for
// example a repo kind that forbids adding new runtime dependencies might
// list "require(" or "import " fragments tied to specific disallowed
// packages).
type RepoKind struct {
	Name                string   `yaml:"name"`
	CanonicalFiles      []string `yaml:"canonical_files"`
	SampleDirs          []string `yaml:"sample_dirs"`
	SampleExtensions    []string `yaml:"sample_extensions"`
	ForbiddenPrefixes   []string `yaml:"forbidden_prefixes"`
	ForbiddenSubstrings []string `yaml:"forbidden_substrings"`
	MaxSampleFiles      int      `yaml:"max_sample_files"`
	MaxSampleBytes      int      `yaml:"max_sample_bytes"`
}

// DefaultRepoKind is used whenever no sidecar file is present. It matches a
// conventional single-page frontend application, the reference application
// the specification's canonical-file defaults describe.
func DefaultRepoKind() RepoKind {
	return RepoKind{
		Name:             "default",
		CanonicalFiles:   []string{"index.html", "src/main.js", "src/style.css"},
		SampleDirs:       []string{"src"},
		SampleExtensions: []string{".js", ".css", ".html"},
		ForbiddenPrefixes: []string{
			"api/", "routes/", "controllers/", "models/", "backend/", "server/",
		},
		MaxSampleFiles: 40,
		MaxSampleBytes: 4000,
	}
}

// LoadRepoKind reads a repo-kind declaration from a YAML sidecar file. An
// empty path returns DefaultRepoKind.
func LoadRepoKind(path string) (RepoKind, error) {
	if path == "" {
		return DefaultRepoKind(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RepoKind{}, fmt.Errorf("reading repo kind file: %w", err)
	}
	kind := DefaultRepoKind()
	if err := yaml.Unmarshal(data, &kind); err != nil {
		return RepoKind{}, fmt.Errorf("parsing repo kind YAML: %w", err)
	}
	if len(kind.CanonicalFiles) == 0 {
		return RepoKind{}, fmt.Errorf("repo kind %q declares no canonical files", kind.Name)
	}
	return kind, nil
}
