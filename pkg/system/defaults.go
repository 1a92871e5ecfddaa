package system

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	shellpack "github.com/moxforge/shellpack/pkg"
)

// Defaults applies the machine-level settings a restore finishes with:
// the login shell, the git credential helper, and SSH key material.
type Defaults struct {
	runner     shellpack.Runner
	log        *logrus.Logger
	cmdTimeout time.Duration
}

func NewDefaults(runner shellpack.Runner, log *logrus.Logger, cmdTimeout time.Duration) *Defaults {
	return &Defaults{runner: runner, log: log, cmdTimeout: cmdTimeout}
}

// SetDefaultShell switches the login shell to shellPath via chsh,
// registering the shell in /etc/shells first when it is not listed.
// Falls back to sudo chsh when the direct call is refused.
func (d *Defaults) SetDefaultShell(ctx context.Context, shellPath, username string) error {
	if os.Getenv("SHELL") == shellPath {
		d.log.Infof("%s is already the login shell", shellPath)
		return nil
	}

	if err := d.ensureEtcShells(ctx, shellPath); err != nil {
		return err
	}

	if err := d.runner.RunInteractive(ctx, d.cmdTimeout, "chsh", "-s", shellPath); err != nil {
		d.log.Warnf("chsh failed (%v), retrying with sudo", err)
		if err := d.runner.RunInteractive(ctx, d.cmdTimeout, "sudo", "chsh", "-s", shellPath, username); err != nil {
			return fmt.Errorf("changing login shell to %s: %w", shellPath, err)
		}
	}
	return nil
}

func (d *Defaults) ensureEtcShells(ctx context.Context, shellPath string) error {
	data, err := os.ReadFile("/etc/shells")
	if err != nil {
		// macOS and most distros ship one; a machine without it lets
		// chsh decide on its own.
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == shellPath {
			return nil
		}
	}
	d.log.Infof("registering %s in /etc/shells", shellPath)
	return d.runner.RunInteractive(ctx, d.cmdTimeout,
		"sudo", "sh", "-c", fmt.Sprintf("echo %s >> /etc/shells", shellPath))
}

// windowsGCMPath is where Git for Windows installs its credential
// manager, reachable from WSL through the drvfs mount.
var windowsGCMPath = `/mnt/c/Program Files/Git/mingw64/bin/git-credential-manager.exe`

// pickCredentialHelper chooses a git credential helper that stores
// tokens somewhere safer than plaintext. The cache helper is the
// lowest common denominator.
func pickCredentialHelper(osName string, look func(string) (string, error)) string {
	switch osName {
	case "macos":
		return "osxkeychain"
	case "wsl":
		if info, err := os.Stat(windowsGCMPath); err == nil && !info.IsDir() {
			return "manager"
		}
	default:
		// libsecret only works with a keyring daemon behind it, so
		// probe for the daemon rather than the helper binary.
		if _, err := look("gnome-keyring-daemon"); err == nil {
			return "libsecret"
		}
		if _, err := look("pass"); err == nil {
			return "pass"
		}
	}
	return "cache --timeout=3600"
}

// ConfigureGitCredentialHelper sets credential.helper in the global
// git config so HTTPS pushes stop asking for the token every time.
func (d *Defaults) ConfigureGitCredentialHelper(ctx context.Context, osName string) (string, error) {
	helper := pickCredentialHelper(osName, d.runner.LookPath)
	if _, err := d.runner.Run(ctx, d.cmdTimeout, "git", "config", "--global", "credential.helper", helper); err != nil {
		return helper, fmt.Errorf("setting credential helper: %w", err)
	}
	return helper, nil
}

// HasSSHKey reports whether home/.ssh holds any of the usual private
// keys.
func HasSSHKey(home string) bool {
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		if info, err := os.Stat(filepath.Join(home, ".ssh", name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// GenerateSSHKey creates an ed25519 keypair without a passphrase and
// returns the public key path.
func (d *Defaults) GenerateSSHKey(ctx context.Context, home, comment string) (string, error) {
	sshDir := filepath.Join(home, ".ssh")
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		return "", err
	}
	keyPath := filepath.Join(sshDir, "id_ed25519")
	if _, err := os.Stat(keyPath); err == nil {
		return keyPath + ".pub", fmt.Errorf("%s already exists", keyPath)
	}
	if _, err := d.runner.Run(ctx, d.cmdTimeout,
		"ssh-keygen", "-t", "ed25519", "-C", comment, "-f", keyPath, "-N", ""); err != nil {
		return "", fmt.Errorf("ssh-keygen: %w", err)
	}
	return keyPath + ".pub", nil
}

// SSHHost extracts the host from an scp-style or ssh:// git URL.
// Returns "" for URLs that do not authenticate over SSH.
func SSHHost(remoteURL string) string {
	if strings.HasPrefix(remoteURL, "git@") {
		rest := strings.TrimPrefix(remoteURL, "git@")
		if i := strings.Index(rest, ":"); i > 0 {
			return rest[:i]
		}
		return ""
	}
	if strings.HasPrefix(remoteURL, "ssh://") {
		rest := strings.TrimPrefix(remoteURL, "ssh://")
		rest = strings.TrimPrefix(rest, "git@")
		if i := strings.IndexAny(rest, "/:"); i > 0 {
			return rest[:i]
		}
		return rest
	}
	return ""
}

// PreflightSSH checks that git@host accepts our key before the
// pipeline invests any work. Forges close the connection after
// authenticating, so a non-zero exit with a recognisable greeting
// still counts as success.
func (d *Defaults) PreflightSSH(ctx context.Context, remoteURL string) (bool, string) {
	host := SSHHost(remoteURL)
	if host == "" {
		return true, "not an SSH remote"
	}
	out, err := d.runner.Run(ctx, d.cmdTimeout,
		"ssh", "-T", "-o", "StrictHostKeyChecking=accept-new", "-o", "ConnectTimeout=10", "git@"+host)
	combined := out
	if err != nil {
		combined = combined + " " + err.Error()
	}
	lower := strings.ToLower(combined)
	if strings.Contains(lower, "successfully authenticated") || strings.Contains(lower, "hi ") {
		return true, strings.TrimSpace(combined)
	}
	if err == nil {
		return true, strings.TrimSpace(out)
	}
	return false, strings.TrimSpace(combined)
}
