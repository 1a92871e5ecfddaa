package component

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	shellpack "github.com/moxforge/shellpack/pkg"
)

type sshComponent struct{}

func (sshComponent) Name() string        { return shellpack.ComponentSSHKeys }
func (sshComponent) Label() string       { return "SSH keys" }
func (sshComponent) Sensitive() bool     { return true }
func (sshComponent) Prompted() bool      { return true }
func (sshComponent) PromptDefault() bool { return true }

func (sshComponent) Detect(env *Env) bool {
	return dirExists(filepath.Join(env.Home, ".ssh"))
}

func (sshComponent) EstimateKB(env *Env) int {
	return dirKB(filepath.Join(env.Home, ".ssh"))
}

func (c sshComponent) Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error) {
	entry := shellpack.ComponentEntry{Name: c.Name()}
	sshDir := filepath.Join(env.Home, ".ssh")
	if !dirExists(sshDir) {
		env.Sink.Status(shellpack.StatusSkip, "SSH directory not found")
		return entry, nil
	}
	if env.DryRun {
		env.Sink.Status(shellpack.StatusInfo, "[dry run] would back up SSH keys")
		entry.Included = true
		entry.PayloadPath = "ssh/ssh_backup.tar.gz"
		return entry, nil
	}
	payload := filepath.Join("ssh", "ssh_backup.tar.gz")
	if err := CreateArchive(sshDir, filepath.Join(destDir, payload), ".ssh"); err != nil {
		return entry, fmt.Errorf("archiving SSH directory: %w", err)
	}
	entry.Included = true
	entry.PayloadPath = filepath.ToSlash(payload)
	env.Sink.Status(shellpack.StatusOK, "SSH keys")
	return entry, nil
}

func (sshComponent) Restore(ctx context.Context, env *Env, srcDir string) error {
	archive := filepath.Join(srcDir, "ssh", "ssh_backup.tar.gz")
	if !fileExists(archive) {
		env.Sink.Status(shellpack.StatusSkip, "SSH keys not in backup")
		return nil
	}
	if err := ExtractArchive(env, archive, env.Home); err != nil {
		return fmt.Errorf("restoring SSH keys: %w", err)
	}
	if err := FixSSHPermissions(env.Home); err != nil {
		return fmt.Errorf("normalizing SSH permissions: %w", err)
	}
	env.Sink.Status(shellpack.StatusOK, "SSH keys")
	return nil
}

// FixSSHPermissions applies the modes sshd and ssh insist on: 0700 for
// directories, 0644 for public material, 0600 for everything else.
// Extracted archives may have travelled through filesystems that lost
// the originals.
func FixSSHPermissions(home string) error {
	sshDir := filepath.Join(home, ".ssh")
	return filepath.WalkDir(sshDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == sshDir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return os.Chmod(path, 0o700)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return os.Chmod(path, sshFileMode(d.Name()))
	})
}

func sshFileMode(name string) os.FileMode {
	if strings.HasSuffix(name, ".pub") || strings.HasPrefix(name, "known_hosts") {
		return 0o644
	}
	return 0o600
}
