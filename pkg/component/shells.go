package component

import (
	"context"
	"fmt"
	"path/filepath"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/utils"
)

var bashFiles = []string{".bashrc", ".bash_aliases", ".bash_profile", ".profile", ".bash_logout"}
var zshFiles = []string{".zshrc", ".zprofile", ".zshenv", ".zlogin", ".zlogout"}

type fishComponent struct{}

func (fishComponent) Name() string        { return shellpack.ComponentFish }
func (fishComponent) Label() string       { return "Fish config" }
func (fishComponent) Sensitive() bool     { return false }
func (fishComponent) Prompted() bool      { return true }
func (fishComponent) PromptDefault() bool { return true }

func (fishComponent) Detect(env *Env) bool {
	_, err := env.Runner.LookPath("fish")
	return err == nil
}

func (fishComponent) EstimateKB(env *Env) int {
	return dirKB(filepath.Join(env.Home, ".config", "fish"))
}

func (c fishComponent) Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error) {
	entry := shellpack.ComponentEntry{Name: c.Name()}
	fishDir := filepath.Join(env.Home, ".config", "fish")
	if !dirExists(fishDir) {
		env.Sink.Status(shellpack.StatusSkip, "Fish config not found")
		return entry, nil
	}
	if env.DryRun {
		env.Sink.Status(shellpack.StatusInfo, "[dry run] would back up Fish config")
		entry.Included = true
		entry.PayloadPath = "shells/fish/fish_config.tar.gz"
		return entry, nil
	}
	payload := filepath.Join("shells", "fish", "fish_config.tar.gz")
	if err := CreateArchive(fishDir, filepath.Join(destDir, payload), "fish"); err != nil {
		return entry, fmt.Errorf("archiving fish config: %w", err)
	}
	entry.Included = true
	entry.PayloadPath = filepath.ToSlash(payload)
	env.Sink.Status(shellpack.StatusOK, "Fish config")
	return entry, nil
}

func (fishComponent) Restore(ctx context.Context, env *Env, srcDir string) error {
	archive := filepath.Join(srcDir, "shells", "fish", "fish_config.tar.gz")
	if !fileExists(archive) {
		env.Sink.Status(shellpack.StatusSkip, "Fish config not in backup")
		return nil
	}
	if err := ExtractArchive(env, archive, filepath.Join(env.Home, ".config")); err != nil {
		return fmt.Errorf("restoring fish config: %w", err)
	}
	env.Sink.Status(shellpack.StatusOK, "Fish config")
	return nil
}

type bashComponent struct{}

func (bashComponent) Name() string        { return shellpack.ComponentBash }
func (bashComponent) Label() string       { return "Bash config" }
func (bashComponent) Sensitive() bool     { return false }
func (bashComponent) Prompted() bool      { return true }
func (bashComponent) PromptDefault() bool { return true }

func (bashComponent) Detect(env *Env) bool {
	_, err := env.Runner.LookPath("bash")
	return err == nil
}

func (bashComponent) EstimateKB(env *Env) int {
	total := 0
	for _, f := range bashFiles {
		total += fileKB(filepath.Join(env.Home, f))
	}
	return total
}

func (c bashComponent) Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error) {
	return stageDotfiles(env, destDir, c.Name(), "Bash config", "shells/bash", bashFiles)
}

func (bashComponent) Restore(ctx context.Context, env *Env, srcDir string) error {
	return restoreDotfiles(env, srcDir, "Bash config", "shells/bash", bashFiles)
}

type zshComponent struct{}

func (zshComponent) Name() string        { return shellpack.ComponentZsh }
func (zshComponent) Label() string       { return "Zsh config" }
func (zshComponent) Sensitive() bool     { return false }
func (zshComponent) Prompted() bool      { return true }
func (zshComponent) PromptDefault() bool { return true }

func (zshComponent) Detect(env *Env) bool {
	_, err := env.Runner.LookPath("zsh")
	return err == nil
}

func (zshComponent) EstimateKB(env *Env) int {
	total := 0
	for _, f := range zshFiles {
		total += fileKB(filepath.Join(env.Home, f))
	}
	return total + dirKB(filepath.Join(env.Home, ".oh-my-zsh"))
}

func (c zshComponent) Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error) {
	entry, err := stageDotfiles(env, destDir, c.Name(), "Zsh config", "shells/zsh", zshFiles)
	if err != nil || env.DryRun {
		return entry, err
	}

	omzDir := filepath.Join(env.Home, ".oh-my-zsh")
	if !dirExists(omzDir) {
		return entry, nil
	}
	dest := filepath.Join(destDir, "shells", "zsh", "ohmyzsh.tar.gz")
	if err := CreateArchive(omzDir, dest, ".oh-my-zsh"); err != nil {
		// The dotfiles already staged fine; a broken plugin tree only
		// costs the Oh-My-Zsh archive.
		env.Log.Warnf("oh-my-zsh backup failed: %v", err)
		return entry, nil
	}
	entry.Included = true
	entry.PayloadPath = "shells/zsh"
	env.Sink.Status(shellpack.StatusOK, "Zsh config + Oh-My-Zsh")
	return entry, nil
}

func (zshComponent) Restore(ctx context.Context, env *Env, srcDir string) error {
	if err := restoreDotfiles(env, srcDir, "Zsh config", "shells/zsh", zshFiles); err != nil {
		return err
	}
	archive := filepath.Join(srcDir, "shells", "zsh", "ohmyzsh.tar.gz")
	if !fileExists(archive) {
		return nil
	}
	if err := ExtractArchive(env, archive, env.Home); err != nil {
		return fmt.Errorf("restoring oh-my-zsh: %w", err)
	}
	env.Sink.Status(shellpack.StatusOK, "Oh-My-Zsh")
	return nil
}

// stageDotfiles copies whichever of files exist in the home directory
// into destDir/payload. Absence of all of them is a skip, not an error.
func stageDotfiles(env *Env, destDir, name, label, payload string, files []string) (shellpack.ComponentEntry, error) {
	entry := shellpack.ComponentEntry{Name: name}
	if env.DryRun {
		found := 0
		for _, f := range files {
			if fileExists(filepath.Join(env.Home, f)) {
				found++
			}
		}
		env.Sink.Statusf(shellpack.StatusInfo, "[dry run] would back up %s (%d files)", label, found)
		entry.Included = found > 0
		entry.PayloadPath = payload
		entry.Count = found
		return entry, nil
	}

	found := 0
	for _, f := range files {
		src := filepath.Join(env.Home, f)
		if !fileExists(src) {
			continue
		}
		if err := utils.CopyFile(src, filepath.Join(destDir, filepath.FromSlash(payload), f)); err != nil {
			return entry, fmt.Errorf("staging %s: %w", f, err)
		}
		found++
	}
	if found == 0 {
		env.Sink.Statusf(shellpack.StatusSkip, "%s not found", label)
		return entry, nil
	}
	entry.Included = true
	entry.PayloadPath = payload
	entry.Count = found
	env.Sink.Statusf(shellpack.StatusOK, "%s (%d files)", label, found)
	return entry, nil
}

func restoreDotfiles(env *Env, srcDir, label, payload string, files []string) error {
	found := 0
	for _, f := range files {
		src := filepath.Join(srcDir, filepath.FromSlash(payload), f)
		if !fileExists(src) {
			continue
		}
		if err := env.PlaceFile(src, filepath.Join(env.Home, f)); err != nil {
			return fmt.Errorf("restoring %s: %w", f, err)
		}
		found++
	}
	if found == 0 {
		env.Sink.Statusf(shellpack.StatusSkip, "%s not in backup", label)
		return nil
	}
	env.Sink.Statusf(shellpack.StatusOK, "%s (%d files)", label, found)
	return nil
}
