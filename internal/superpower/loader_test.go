package superpower

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSuperpower(t *testing.T, dir, trigger, description string) {
	t.Helper()
	content := "---\nname: demo\ndescription: " + description + "\ntrigger: " + trigger + "\n---\n\n## Step 1: Do it\n\nHandle {{input}}.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, SuperpowerFileName), []byte(content), 0o644))
}

func TestLoader_SkipsMissingRoots(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, l.LoadAll())
	assert.Empty(t, l.List())
}

func TestLoader_LoadsFromSingleRoot(t *testing.T) {
	root := t.TempDir()
	writeSuperpower(t, root, "/review", "review a pull request")

	l := NewLoader(root)
	require.NoError(t, l.LoadAll())

	sp, ok := l.Get("/review")
	require.True(t, ok)
	assert.Equal(t, "review a pull request", sp.Description)
	require.Len(t, sp.Steps, 1)
}

func TestLoader_LaterRootOverridesSameTrigger(t *testing.T) {
	builtin := t.TempDir()
	project := t.TempDir()
	writeSuperpower(t, builtin, "/review", "builtin review")
	writeSuperpower(t, project, "/review", "project override review")

	l := NewLoader(builtin, project)
	require.NoError(t, l.LoadAll())

	sp, ok := l.Get("/review")
	require.True(t, ok)
	assert.Equal(t, "project override review", sp.Description, "the later root in precedence order must win")
	assert.Len(t, l.List(), 1)
}

func TestLoader_MissingTriggerIsAnError(t *testing.T) {
	root := t.TempDir()
	content := "---\nname: demo\ndescription: no trigger here\n---\n\n## Step 1: Do it\n\nhello\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, SuperpowerFileName), []byte(content), 0o644))

	l := NewLoader(root)
	assert.Error(t, l.LoadAll())
}
