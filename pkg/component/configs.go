package component

import (
	"context"
	"fmt"
	"path/filepath"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/utils"
)

type starshipComponent struct{}

func (starshipComponent) Name() string        { return shellpack.ComponentStarship }
func (starshipComponent) Label() string       { return "Starship config" }
func (starshipComponent) Sensitive() bool     { return false }
func (starshipComponent) Prompted() bool      { return false }
func (starshipComponent) PromptDefault() bool { return true }

func (starshipComponent) Detect(env *Env) bool {
	return fileExists(filepath.Join(env.Home, ".config", "starship.toml"))
}

func (starshipComponent) EstimateKB(env *Env) int {
	return fileKB(filepath.Join(env.Home, ".config", "starship.toml"))
}

func (c starshipComponent) Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error) {
	return stageSingleFile(env, destDir, c.Name(), "Starship config",
		filepath.Join(env.Home, ".config", "starship.toml"), "config/starship.toml")
}

func (starshipComponent) Restore(ctx context.Context, env *Env, srcDir string) error {
	return restoreSingleFile(env, srcDir, "Starship config",
		"config/starship.toml", filepath.Join(env.Home, ".config", "starship.toml"))
}

// gitConfigComponent carries user.name, user.email and whatever
// credentials ended up in ~/.gitconfig, so it is sensitive.
type gitConfigComponent struct{}

func (gitConfigComponent) Name() string        { return shellpack.ComponentGitConfig }
func (gitConfigComponent) Label() string       { return "Git config" }
func (gitConfigComponent) Sensitive() bool     { return true }
func (gitConfigComponent) Prompted() bool      { return true }
func (gitConfigComponent) PromptDefault() bool { return true }

func (gitConfigComponent) Detect(env *Env) bool {
	return fileExists(filepath.Join(env.Home, ".gitconfig"))
}

func (gitConfigComponent) EstimateKB(env *Env) int {
	return fileKB(filepath.Join(env.Home, ".gitconfig"))
}

func (c gitConfigComponent) Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error) {
	return stageSingleFile(env, destDir, c.Name(), "Git config",
		filepath.Join(env.Home, ".gitconfig"), "config/.gitconfig")
}

func (gitConfigComponent) Restore(ctx context.Context, env *Env, srcDir string) error {
	return restoreSingleFile(env, srcDir, "Git config",
		"config/.gitconfig", filepath.Join(env.Home, ".gitconfig"))
}

func stageSingleFile(env *Env, destDir, name, label, src, payload string) (shellpack.ComponentEntry, error) {
	entry := shellpack.ComponentEntry{Name: name}
	if !fileExists(src) {
		env.Sink.Statusf(shellpack.StatusSkip, "%s not found", label)
		return entry, nil
	}
	if env.DryRun {
		env.Sink.Statusf(shellpack.StatusInfo, "[dry run] would back up %s", label)
		entry.Included = true
		entry.PayloadPath = payload
		return entry, nil
	}
	if err := utils.CopyFile(src, filepath.Join(destDir, filepath.FromSlash(payload))); err != nil {
		return entry, fmt.Errorf("staging %s: %w", label, err)
	}
	entry.Included = true
	entry.PayloadPath = payload
	entry.Count = 1
	env.Sink.Status(shellpack.StatusOK, label)
	return entry, nil
}

func restoreSingleFile(env *Env, srcDir, label, payload, dest string) error {
	src := filepath.Join(srcDir, filepath.FromSlash(payload))
	if !fileExists(src) {
		env.Sink.Statusf(shellpack.StatusSkip, "%s not in backup", label)
		return nil
	}
	if err := env.PlaceFile(src, dest); err != nil {
		return fmt.Errorf("restoring %s: %w", label, err)
	}
	env.Sink.Status(shellpack.StatusOK, label)
	return nil
}
