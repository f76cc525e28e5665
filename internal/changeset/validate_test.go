package changeset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func allowAll(root string) Allowlist {
	return Allowlist{
		RepoRoot: root,
		Paths: map[string]bool{
			"src/main.js": true, "src/style.css": true, "index.html": true, "notes.md": true,
		},
		CanonicalFiles: map[string]bool{},
	}
}

func TestValidatePathSafetyRejectsAbsolute(t *testing.T) {
	cs := &ChangeSet{Changes: []Change{{Operation: OpReplaceFile, Path: "/etc/hosts", Content: "x"}}}
	errs := Validate(cs, allowAll(t.TempDir()), nil)
	require.NotEmpty(t, errs)
	require.Contains(t, errs[0].Message, "absolute")
}

func TestValidatePathSafetyRejectsDotDot(t *testing.T) {
	cs := &ChangeSet{Changes: []Change{{Operation: OpReplaceFile, Path: "../outside.txt", Content: "x"}}}
	errs := Validate(cs, allowAll(t.TempDir()), nil)
	require.NotEmpty(t, errs)
}

func TestValidateSchemaNormalization(t *testing.T) {
	cs := &ChangeSet{Changes: []Change{{Operation: OpReplaceFile, File: "src/main.js", Content: "x"}}}
	errs := Validate(cs, allowAll(t.TempDir()), nil)
	require.Empty(t, errs)
	require.Equal(t, "src/main.js", cs.Changes[0].Path)
	require.Empty(t, cs.Changes[0].File)
}

func TestValidateDiffMarkerRejection(t *testing.T) {
	cs := &ChangeSet{Changes: []Change{{Operation: OpReplaceFile, Path: "src/main.js", Content: "diff --git a/x b/x\n--- a/x\n+++ b/x\n@@ -1,1 +1,1 @@"}}}
	errs := Validate(cs, allowAll(t.TempDir()), nil)
	require.NotEmpty(t, errs)
}

func TestValidatePlaceholderRejection(t *testing.T) {
	cs := &ChangeSet{Changes: []Change{{Operation: OpReplaceFile, Path: "src/main.js", Content: "// TODO: implement"}}}
	errs := Validate(cs, allowAll(t.TempDir()), nil)
	require.NotEmpty(t, errs)
}

func TestValidateRequiresFunctionNameForUpsert(t *testing.T) {
	cs := &ChangeSet{Changes: []Change{{Operation: OpUpsertFunctionJS, Path: "src/main.js", Content: "x"}}}
	errs := Validate(cs, allowAll(t.TempDir()), nil)
	require.NotEmpty(t, errs)
}

func TestValidateRejectsPathNotInAllowlist(t *testing.T) {
	cs := &ChangeSet{Changes: []Change{{Operation: OpReplaceFile, Path: "secret.env", Content: "x"}}}
	errs := Validate(cs, allowAll(t.TempDir()), nil)
	require.NotEmpty(t, errs)
}

func TestValidateForbiddenPrefix(t *testing.T) {
	allow := allowAll(t.TempDir())
	allow.ForbiddenPrefixes = []string{"api/"}
	allow.Paths["api/users.js"] = true
	cs := &ChangeSet{Changes: []Change{{Operation: OpReplaceFile, Path: "api/users.js", Content: "x"}}}
	errs := Validate(cs, allow, nil)
	require.NotEmpty(t, errs)
}

func TestScanWrittenFilesFindsPlaceholder(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "src.js"), []byte("function f() { /* TODO */ }"), 0o644))

	hits := ScanWrittenFiles(root, map[string]bool{"src.js": true}, nil)
	require.Len(t, hits, 1)
	require.Contains(t, hits[0], "src.js")
}

func TestScanWrittenFilesCleanWhenNoHits(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "src.js"), []byte("function f() { return 1; }"), 0o644))

	hits := ScanWrittenFiles(root, map[string]bool{"src.js": true}, nil)
	require.Empty(t, hits)
}

func TestScanWrittenFilesUsesRepoKindForbiddenSubstrings(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg.json"), []byte(`{"dependencies":{"left-pad":"1.0.0"}}`), 0o644))

	hits := ScanWrittenFiles(root, map[string]bool{"pkg.json": true}, []string{"left-pad"})
	require.Len(t, hits, 1)
}
