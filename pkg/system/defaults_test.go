package system

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shellpack "github.com/moxforge/shellpack/pkg"
)

func mustWriteKey(t *testing.T, home, name string) {
	t.Helper()
	dir := filepath.Join(home, ".ssh")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("key material"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func testDefaults(r shellpack.Runner) *Defaults {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewDefaults(r, log, time.Second)
}

func TestPickCredentialHelper(t *testing.T) {
	empty := newFakeRunner()
	assert.Equal(t, "osxkeychain", pickCredentialHelper("macos", empty.LookPath))
	assert.Equal(t, "cache --timeout=3600", pickCredentialHelper("linux", empty.LookPath))
	assert.Equal(t, "cache --timeout=3600", pickCredentialHelper("wsl", empty.LookPath))

	withKeyring := newFakeRunner()
	withKeyring.paths["gnome-keyring-daemon"] = "/usr/bin/gnome-keyring-daemon"
	assert.Equal(t, "libsecret", pickCredentialHelper("linux", withKeyring.LookPath))

	withPass := newFakeRunner()
	withPass.paths["pass"] = "/usr/bin/pass"
	assert.Equal(t, "pass", pickCredentialHelper("linux", withPass.LookPath))
}

func TestPickCredentialHelperWSLFindsWindowsGCM(t *testing.T) {
	gcm := filepath.Join(t.TempDir(), "git-credential-manager.exe")
	require.NoError(t, os.WriteFile(gcm, []byte("MZ"), 0o755))

	orig := windowsGCMPath
	windowsGCMPath = gcm
	t.Cleanup(func() { windowsGCMPath = orig })

	assert.Equal(t, "manager", pickCredentialHelper("wsl", newFakeRunner().LookPath))
}

func TestSSHHost(t *testing.T) {
	assert.Equal(t, "github.com", SSHHost("git@github.com:moxforge/dotfiles.git"))
	assert.Equal(t, "git.sr.ht", SSHHost("ssh://git@git.sr.ht/~mox/dotfiles"))
	assert.Equal(t, "", SSHHost("https://github.com/moxforge/dotfiles.git"))
}

func TestPreflightSSHAcceptsForgeGreeting(t *testing.T) {
	r := newFakeRunner()
	key := r.key("ssh", "-T", "-o", "StrictHostKeyChecking=accept-new", "-o", "ConnectTimeout=10", "git@github.com")
	r.errs[key] = errors.New("ssh: Hi moxforge! You've successfully authenticated, but GitHub does not provide shell access.")

	ok, detail := testDefaults(r).PreflightSSH(context.Background(), "git@github.com:moxforge/dotfiles.git")

	assert.True(t, ok)
	assert.Contains(t, detail, "successfully authenticated")
}

func TestPreflightSSHRejectsAuthFailure(t *testing.T) {
	r := newFakeRunner()
	key := r.key("ssh", "-T", "-o", "StrictHostKeyChecking=accept-new", "-o", "ConnectTimeout=10", "git@github.com")
	r.errs[key] = errors.New("git@github.com: Permission denied (publickey).")

	ok, detail := testDefaults(r).PreflightSSH(context.Background(), "git@github.com:moxforge/dotfiles.git")

	assert.False(t, ok)
	assert.Contains(t, detail, "Permission denied")
}

func TestPreflightSSHSkipsHTTPSRemotes(t *testing.T) {
	r := newFakeRunner()
	ok, _ := testDefaults(r).PreflightSSH(context.Background(), "https://github.com/moxforge/dotfiles.git")

	assert.True(t, ok)
	assert.Empty(t, r.calls)
}

func TestSetDefaultShellAlreadyActive(t *testing.T) {
	t.Setenv("SHELL", "/usr/bin/fish")
	r := newFakeRunner()

	require.NoError(t, testDefaults(r).SetDefaultShell(context.Background(), "/usr/bin/fish", "mox"))
	assert.Empty(t, r.calls)
}

func TestHasSSHKey(t *testing.T) {
	home := t.TempDir()
	assert.False(t, HasSSHKey(home))

	mustWriteKey(t, home, "id_ed25519")
	assert.True(t, HasSSHKey(home))
}
