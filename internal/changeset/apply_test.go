package changeset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyCreateFailsIfExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	cs := &ChangeSet{Changes: []Change{{Operation: OpCreate, Path: "a.txt", Content: "y"}}}
	result, err := Apply(dir, cs)
	require.Error(t, err)
	require.NotEmpty(t, result.Errors)
}

func TestApplyReplaceFileNoopIfIdentical(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("same"), 0o644))

	cs := &ChangeSet{Changes: []Change{{Operation: OpReplaceFile, Path: "a.txt", Content: "same"}}}
	result, err := Apply(dir, cs)
	require.NoError(t, err)
	require.Empty(t, result.ChangedFiles)
}

func TestUpsertFunctionJSIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.js")
	require.NoError(t, os.WriteFile(path, []byte("function foo() {\n  return 1;\n}\n"), 0o644))

	newBody := "function handleClear() {\n  reset();\n}"
	cs := &ChangeSet{Changes: []Change{{Operation: OpUpsertFunctionJS, Path: "main.js", FunctionName: "handleClear", Content: newBody}}}

	result1, err := Apply(dir, cs)
	require.NoError(t, err)
	require.Contains(t, result1.ChangedFiles, "main.js")

	after1, _ := os.ReadFile(path)

	result2, err := Apply(dir, cs)
	require.NoError(t, err)
	require.Empty(t, result2.ChangedFiles)

	after2, _ := os.ReadFile(path)
	require.Equal(t, string(after1), string(after2))
}

func TestUpsertFunctionJSReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.js")
	require.NoError(t, os.WriteFile(path, []byte("function handleClear() {\n  old();\n}\nfunction other() {}\n"), 0o644))

	newBody := "function handleClear() {\n  reset();\n}"
	cs := &ChangeSet{Changes: []Change{{Operation: OpUpsertFunctionJS, Path: "main.js", FunctionName: "handleClear", Content: newBody}}}

	_, err := Apply(dir, cs)
	require.NoError(t, err)

	after, _ := os.ReadFile(path)
	require.Contains(t, string(after), "reset()")
	require.NotContains(t, string(after), "old()")
	require.Contains(t, string(after), "function other() {}")
}

func TestUpsertCSSSelectorIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "style.css")
	require.NoError(t, os.WriteFile(path, []byte(".header { color: red; }\n"), 0o644))

	newRule := ".header { color: blue; }"
	cs := &ChangeSet{Changes: []Change{{Operation: OpUpsertCSSSelector, Path: "style.css", Selector: ".header", Content: newRule}}}

	result1, err := Apply(dir, cs)
	require.NoError(t, err)
	require.Contains(t, result1.ChangedFiles, "style.css")

	result2, err := Apply(dir, cs)
	require.NoError(t, err)
	require.Empty(t, result2.ChangedFiles)
}

func TestInsertAfterAnchorFailsWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<body></body>"), 0o644))

	cs := &ChangeSet{Changes: []Change{{Operation: OpInsertAfterAnchor, Path: "index.html", Anchor: "<header>", Content: "<button/>"}}}
	_, err := Apply(dir, cs)
	require.Error(t, err)
}

func TestInsertAfterAnchorInsertsAfterMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(path, []byte("<header>Title</header><body></body>"), 0o644))

	cs := &ChangeSet{Changes: []Change{{Operation: OpInsertAfterAnchor, Path: "index.html", Anchor: "<header>Title</header>", Content: "<button/>"}}}
	result, err := Apply(dir, cs)
	require.NoError(t, err)
	require.Contains(t, result.ChangedFiles, "index.html")

	after, _ := os.ReadFile(path)
	require.Equal(t, "<header>Title</header><button/><body></body>", string(after))
}

func TestAppendIfMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("line one\n"), 0o644))

	cs := &ChangeSet{Changes: []Change{{Operation: OpAppendIfMissing, Path: "notes.txt", Signature: "line two", Content: "line two\n"}}}
	_, err := Apply(dir, cs)
	require.NoError(t, err)

	result2, err := Apply(dir, cs)
	require.NoError(t, err)
	require.Empty(t, result2.ChangedFiles)
}

func TestApplyEditFallsBackToRegex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("const x = 1;\nconst y = 2;\n"), 0o644))

	cs := &ChangeSet{Changes: []Change{{Operation: OpEdit, Path: "a.js", Edits: []Edit{{Find: `const (\w+) = (\d+);`, Replace: "let $1 = $2;"}}}}}
	_, err := Apply(dir, cs)
	require.NoError(t, err)

	after, _ := os.ReadFile(path)
	require.Contains(t, string(after), "let x = 1;")
}

func TestApplyEditFailsWhenNoMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.js")
	require.NoError(t, os.WriteFile(path, []byte("const x = 1;\n"), 0o644))

	cs := &ChangeSet{Changes: []Change{{Operation: OpEdit, Path: "a.js", Edits: []Edit{{Find: "nonexistent_token_zzz", Replace: "y"}}}}}
	_, err := Apply(dir, cs)
	require.Error(t, err)
}

func TestApplyDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	cs := &ChangeSet{Changes: []Change{{Operation: OpDelete, Path: "gone.txt"}}}
	result, err := Apply(dir, cs)
	require.NoError(t, err)
	require.Contains(t, result.ChangedFiles, "gone.txt")
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestApplyRollsBackOnFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("original"), 0o644))

	cs := &ChangeSet{Changes: []Change{
		{Operation: OpReplaceFile, Path: "a.txt", Content: "changed"},
		{Operation: OpInsertAfterAnchor, Path: "a.txt", Anchor: "absent-anchor", Content: "x"},
	}}
	_, err := Apply(dir, cs)
	require.Error(t, err)

	after, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.Equal(t, "original", string(after))
}
