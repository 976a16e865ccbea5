package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenx-dev/core/internal/permission"
)

func TestReadTool_OffsetAndLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644))

	tool := NewReadTool()
	res, err := tool.Execute(context.Background(), map[string]any{"path": path, "offset": float64(2), "limit": float64(1)})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Contains(t, res.Output, "two")
	assert.NotContains(t, res.Output, "three")
	assert.Contains(t, res.Output, "(5 lines total)")
}

func TestReadTool_OffsetPastEOF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n"), 0o644))

	tool := NewReadTool()
	res, err := tool.Execute(context.Background(), map[string]any{"path": path, "offset": float64(100)})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "0 lines", res.Output)
}

func TestReadTool_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	tool := NewReadTool()
	res, err := tool.Execute(context.Background(), map[string]any{"path": dir})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "is a directory")
}

func TestWriteTool_CreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deep", "f.txt")
	tool := NewWriteTool()
	res, err := tool.Execute(context.Background(), map[string]any{"path": path, "content": "a\nb\nc"})
	require.NoError(t, err)
	assert.True(t, res.OK)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc", string(data))
}

func TestEditTool_ZeroMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	tool := NewEditTool()
	res, err := tool.Execute(context.Background(), map[string]any{"path": path, "old_string": "goodbye", "new_string": "hi"})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "old_string not found", res.Error)
}

func TestEditTool_MultipleMatches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("foo foo foo"), 0o644))

	tool := NewEditTool()
	res, err := tool.Execute(context.Background(), map[string]any{"path": path, "old_string": "foo", "new_string": "bar"})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "found 3 times")
}

func TestEditTool_UniqueMatchReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\nline three\n"), 0o644))

	tool := NewEditTool()
	res, err := tool.Execute(context.Background(), map[string]any{
		"path":       path,
		"old_string": "line two\n",
		"new_string": "line two point five\nline two point seven five\n",
	})
	require.NoError(t, err)
	assert.True(t, res.OK)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "point seven five")
}

func TestGlobTool_MatchesAndIgnoresNodeModules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "b.go"), []byte("x"), 0o644))

	tool := NewGlobTool()
	res, err := tool.Execute(context.Background(), map[string]any{"pattern": "*.go", "path": dir})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Contains(t, res.Output, "a.go")
	assert.NotContains(t, res.Output, "node_modules")
}

func TestGrepTool_FindsMatchingLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.go"), []byte("package main\n\nfunc TODO() {}\n"), 0o644))

	tool := NewGrepTool()
	res, err := tool.Execute(context.Background(), map[string]any{"pattern": "TODO", "path": dir})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Contains(t, res.Output, "func TODO")
}

func TestBashTool_ExitCodeAndOutput(t *testing.T) {
	tool := NewBashTool(0)
	res, err := tool.Execute(context.Background(), map[string]any{"command": "echo hi; exit 3"})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Output, "hi")
	assert.Contains(t, res.Output, "(exit code 3)")
}

func TestBashTool_Timeout(t *testing.T) {
	tool := NewBashTool(50)
	res, err := tool.Execute(context.Background(), map[string]any{"command": "sleep 5"})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "timed out")
}

func TestRegistry_UnknownToolHint(t *testing.T) {
	r := NewRegistry()
	r.RegisterDefaults(0)
	res := r.Execute(context.Background(), "websearch", map[string]any{})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "no web search tool")
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	r := NewRegistry()
	r.Register(NewReadTool())
	assert.Panics(t, func() { r.Register(NewReadTool()) })
}

func TestRegistry_ToWireSchemaIsSortedAndComplete(t *testing.T) {
	r := NewRegistry()
	r.RegisterDefaults(0)
	defs := r.ToWireSchema()
	require.Len(t, defs, 6)
	for i := 1; i < len(defs); i++ {
		assert.True(t, defs[i-1].Name < defs[i].Name)
	}
}

func TestRegistry_SubsetKeepsOnlyNamedToolsAndSharesPermissionManager(t *testing.T) {
	r := NewRegistry()
	r.RegisterDefaults(0)
	pm := permission.NewManager(nil)
	r.SetPermissionManager(pm)

	sub := r.Subset([]string{"read", "glob", "does-not-exist"})

	assert.ElementsMatch(t, []string{"glob", "read"}, sub.Names())
	assert.Same(t, pm, sub.pm, "Subset must share the parent's PermissionManager")
	assert.Equal(t, 6, r.Size(), "Subset must not mutate the parent registry")
}
