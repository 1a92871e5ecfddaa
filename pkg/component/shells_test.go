package component

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBashStagePicksUpExistingDotfiles(t *testing.T) {
	env := newTestEnv(t, nil)
	writeHome(t, env, ".bashrc", "export EDITOR=vim\n")
	writeHome(t, env, ".bash_aliases", "alias ll='ls -la'\n")
	writeHome(t, env, ".profile", "umask 022\n")

	staged := t.TempDir()
	entry, err := bashComponent{}.Stage(context.Background(), env, staged)
	require.NoError(t, err)

	assert.True(t, entry.Included)
	assert.Equal(t, 3, entry.Count)
	assert.Equal(t, "shells/bash", entry.PayloadPath)
	assert.FileExists(t, filepath.Join(staged, "shells", "bash", ".bashrc"))
	assert.FileExists(t, filepath.Join(staged, "shells", "bash", ".profile"))
	assert.NoFileExists(t, filepath.Join(staged, "shells", "bash", ".bash_logout"))
}

func TestBashStageSkipsWhenNothingFound(t *testing.T) {
	env := newTestEnv(t, nil)

	entry, err := bashComponent{}.Stage(context.Background(), env, t.TempDir())
	require.NoError(t, err)

	assert.False(t, entry.Included)
	assert.Equal(t, 0, entry.Count)
}

func TestBashRestoreReplacesAndRollsBack(t *testing.T) {
	staged := t.TempDir()
	writeTree(t, staged, map[string]string{
		"shells/bash/.bashrc":  "from backup\n",
		"shells/bash/.profile": "also from backup\n",
	})

	env := newTestEnv(t, nil)
	stack := withRollback(t, env)
	writeHome(t, env, ".bashrc", "local edits I care about\n")

	require.NoError(t, bashComponent{}.Restore(context.Background(), env, staged))

	data, err := os.ReadFile(filepath.Join(env.Home, ".bashrc"))
	require.NoError(t, err)
	assert.Equal(t, "from backup\n", string(data))
	assert.FileExists(t, filepath.Join(env.Home, ".profile"))

	// Unwinding puts the pre-restore state back exactly.
	assert.Equal(t, 0, stack.Unwind())
	data, err = os.ReadFile(filepath.Join(env.Home, ".bashrc"))
	require.NoError(t, err)
	assert.Equal(t, "local edits I care about\n", string(data))
	assert.NoFileExists(t, filepath.Join(env.Home, ".profile"))
}

func TestZshStageIncludesOhMyZsh(t *testing.T) {
	env := newTestEnv(t, nil)
	writeHome(t, env, ".zshrc", "ZSH_THEME=agnoster\n")
	writeHome(t, env, ".oh-my-zsh/oh-my-zsh.sh", "# omz loader\n")
	writeHome(t, env, ".oh-my-zsh/custom/aliases.zsh", "alias k=kubectl\n")

	staged := t.TempDir()
	entry, err := zshComponent{}.Stage(context.Background(), env, staged)
	require.NoError(t, err)

	assert.True(t, entry.Included)
	assert.FileExists(t, filepath.Join(staged, "shells", "zsh", ".zshrc"))
	assert.FileExists(t, filepath.Join(staged, "shells", "zsh", "ohmyzsh.tar.gz"))
}

func TestZshRestoreExtractsOhMyZshIntoHome(t *testing.T) {
	omzSrc := t.TempDir()
	writeTree(t, omzSrc, map[string]string{
		"oh-my-zsh.sh":       "# omz loader\n",
		"custom/aliases.zsh": "alias k=kubectl\n",
	})

	staged := t.TempDir()
	writeTree(t, staged, map[string]string{"shells/zsh/.zshrc": "ZSH_THEME=agnoster\n"})
	require.NoError(t, CreateArchive(omzSrc, filepath.Join(staged, "shells", "zsh", "ohmyzsh.tar.gz"), ".oh-my-zsh"))

	env := newTestEnv(t, nil)
	withRollback(t, env)
	require.NoError(t, zshComponent{}.Restore(context.Background(), env, staged))

	assert.FileExists(t, filepath.Join(env.Home, ".zshrc"))
	assert.FileExists(t, filepath.Join(env.Home, ".oh-my-zsh", "oh-my-zsh.sh"))
	assert.FileExists(t, filepath.Join(env.Home, ".oh-my-zsh", "custom", "aliases.zsh"))
}

func TestFishStageAndRestoreRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	writeHome(t, env, ".config/fish/config.fish", "set -gx PATH $PATH ~/bin\n")
	writeHome(t, env, ".config/fish/functions/ll.fish", "function ll\n    ls -la $argv\nend\n")

	staged := t.TempDir()
	entry, err := fishComponent{}.Stage(context.Background(), env, staged)
	require.NoError(t, err)
	assert.True(t, entry.Included)
	assert.Equal(t, "shells/fish/fish_config.tar.gz", entry.PayloadPath)

	target := newTestEnv(t, nil)
	withRollback(t, target)
	require.NoError(t, fishComponent{}.Restore(context.Background(), target, staged))

	data, err := os.ReadFile(filepath.Join(target.Home, ".config", "fish", "config.fish"))
	require.NoError(t, err)
	assert.Equal(t, "set -gx PATH $PATH ~/bin\n", string(data))
	assert.FileExists(t, filepath.Join(target.Home, ".config", "fish", "functions", "ll.fish"))
}

func TestFishStageSkipsWithoutConfigDir(t *testing.T) {
	env := newTestEnv(t, nil)

	entry, err := fishComponent{}.Stage(context.Background(), env, t.TempDir())
	require.NoError(t, err)
	assert.False(t, entry.Included)
}

func TestStageDotfilesDryRunWritesNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	env.DryRun = true
	writeHome(t, env, ".bashrc", "export EDITOR=vim\n")

	staged := t.TempDir()
	entry, err := bashComponent{}.Stage(context.Background(), env, staged)
	require.NoError(t, err)

	assert.True(t, entry.Included)
	assert.Equal(t, 1, entry.Count)
	entries, err := os.ReadDir(staged)
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run must leave the staging dir untouched")
}
