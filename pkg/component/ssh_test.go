package component

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSHStageAndRestoreFixesPermissions(t *testing.T) {
	source := newTestEnv(t, nil)
	writeHome(t, source, ".ssh/id_ed25519", "private material\n")
	writeHome(t, source, ".ssh/id_ed25519.pub", "ssh-ed25519 AAAA mox@devbox\n")
	writeHome(t, source, ".ssh/known_hosts", "github.com ssh-ed25519 AAAA\n")
	writeHome(t, source, ".ssh/config", "Host *\n  AddKeysToAgent yes\n")

	staged := t.TempDir()
	entry, err := sshComponent{}.Stage(context.Background(), source, staged)
	require.NoError(t, err)
	assert.True(t, entry.Included)
	assert.Equal(t, "ssh/ssh_backup.tar.gz", entry.PayloadPath)

	target := newTestEnv(t, nil)
	withRollback(t, target)
	require.NoError(t, sshComponent{}.Restore(context.Background(), target, staged))

	mode := func(rel string) os.FileMode {
		info, err := os.Stat(filepath.Join(target.Home, ".ssh", rel))
		require.NoError(t, err)
		return info.Mode().Perm()
	}
	assert.Equal(t, os.FileMode(0o600), mode("id_ed25519"))
	assert.Equal(t, os.FileMode(0o600), mode("config"))
	assert.Equal(t, os.FileMode(0o644), mode("id_ed25519.pub"))
	assert.Equal(t, os.FileMode(0o644), mode("known_hosts"))

	info, err := os.Stat(filepath.Join(target.Home, ".ssh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestSSHRestoreSkipsWhenNotInBackup(t *testing.T) {
	env := newTestEnv(t, nil)
	withRollback(t, env)

	require.NoError(t, sshComponent{}.Restore(context.Background(), env, t.TempDir()))
	assert.NoDirExists(t, filepath.Join(env.Home, ".ssh"))
}

func TestFixSSHPermissionsToleratesMissingDir(t *testing.T) {
	assert.NoError(t, FixSSHPermissions(t.TempDir()))
}

func TestSSHFileMode(t *testing.T) {
	assert.Equal(t, os.FileMode(0o600), sshFileMode("id_rsa"))
	assert.Equal(t, os.FileMode(0o644), sshFileMode("id_rsa.pub"))
	assert.Equal(t, os.FileMode(0o644), sshFileMode("known_hosts"))
	assert.Equal(t, os.FileMode(0o644), sshFileMode("known_hosts.old"))
	assert.Equal(t, os.FileMode(0o600), sshFileMode("authorized_keys"))
}
