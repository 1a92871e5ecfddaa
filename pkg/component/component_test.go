package component

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareWriteParksExistingAndUnwindRestoresIt(t *testing.T) {
	env := newTestEnv(t, nil)
	stack := withRollback(t, env)

	dest := writeHome(t, env, ".bashrc", "original aliases\n")
	require.NoError(t, env.PrepareWrite(dest))
	require.NoError(t, os.WriteFile(dest, []byte("restored content\n"), 0o644))

	assert.Equal(t, 0, stack.Unwind())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "original aliases\n", string(data))
}

func TestPrepareWriteRemovesNewFileOnUnwind(t *testing.T) {
	env := newTestEnv(t, nil)
	stack := withRollback(t, env)

	dest := filepath.Join(env.Home, ".zshrc")
	require.NoError(t, env.PrepareWrite(dest))
	require.NoError(t, os.WriteFile(dest, []byte("brand new\n"), 0o644))

	assert.Equal(t, 0, stack.Unwind())
	assert.NoFileExists(t, dest)
}

func TestPrepareWriteNoopWithoutRollback(t *testing.T) {
	env := newTestEnv(t, nil)
	dest := writeHome(t, env, ".profile", "unchanged\n")

	require.NoError(t, env.PrepareWrite(dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "unchanged\n", string(data))
}

func TestPlaceFileCopiesAndRecordsUndo(t *testing.T) {
	env := newTestEnv(t, nil)
	stack := withRollback(t, env)

	src := filepath.Join(t.TempDir(), ".gitconfig")
	require.NoError(t, os.WriteFile(src, []byte("[user]\n\tname = mox\n"), 0o644))
	dest := filepath.Join(env.Home, ".gitconfig")

	require.NoError(t, env.PlaceFile(src, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "[user]\n\tname = mox\n", string(data))

	assert.Equal(t, 1, stack.Len())
	stack.Unwind()
	assert.NoFileExists(t, dest)
}

func TestCatalogOrderAndNames(t *testing.T) {
	catalog := Catalog()
	var names []string
	for _, comp := range catalog {
		names = append(names, comp.Name())
	}
	assert.Equal(t, []string{
		"shell-config-fish", "shell-config-bash", "shell-config-zsh",
		"packages", "starship", "git-config", "ssh-keys",
		"conda-envs", "history", "cloud-creds",
	}, names)

	sensitive := map[string]bool{}
	for _, comp := range catalog {
		sensitive[comp.Name()] = comp.Sensitive()
	}
	assert.True(t, sensitive["git-config"])
	assert.True(t, sensitive["ssh-keys"])
	assert.True(t, sensitive["history"])
	assert.True(t, sensitive["cloud-creds"])
	assert.False(t, sensitive["packages"])
	assert.False(t, sensitive["conda-envs"])
}
