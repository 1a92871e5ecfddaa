package component

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/utils"
)

var historyFiles = []string{".bash_history", ".zsh_history"}

type historyComponent struct{}

func (historyComponent) Name() string        { return shellpack.ComponentHistory }
func (historyComponent) Label() string       { return "Shell history" }
func (historyComponent) Sensitive() bool     { return true }
func (historyComponent) Prompted() bool      { return true }
func (historyComponent) PromptDefault() bool { return false }

func (historyComponent) Detect(env *Env) bool {
	for _, f := range historyFiles {
		if fileExists(filepath.Join(env.Home, f)) {
			return true
		}
	}
	return dirExists(filepath.Join(env.Home, ".local", "share", "fish"))
}

func (historyComponent) EstimateKB(env *Env) int {
	total := 0
	for _, f := range historyFiles {
		total += fileKB(filepath.Join(env.Home, f))
	}
	return total + dirKB(filepath.Join(env.Home, ".local", "share", "fish"))
}

func (c historyComponent) Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error) {
	entry := shellpack.ComponentEntry{Name: c.Name()}
	if env.DryRun {
		env.Sink.Status(shellpack.StatusInfo, "[dry run] would back up shell history")
		entry.Included = c.Detect(env)
		entry.PayloadPath = "history"
		return entry, nil
	}

	histDir := filepath.Join(destDir, "history")
	found := 0
	for _, f := range historyFiles {
		src := filepath.Join(env.Home, f)
		if !fileExists(src) {
			continue
		}
		if err := utils.CopyFile(src, filepath.Join(histDir, f)); err != nil {
			return entry, fmt.Errorf("staging %s: %w", f, err)
		}
		found++
	}
	fishHist := filepath.Join(env.Home, ".local", "share", "fish")
	if dirExists(fishHist) {
		if err := utils.CopyTree(fishHist, filepath.Join(histDir, "fish")); err != nil {
			env.Log.Warnf("fish history backup failed: %v", err)
		} else {
			found++
		}
	}
	if found == 0 {
		env.Sink.Status(shellpack.StatusSkip, "Shell history not found")
		return entry, nil
	}
	entry.Included = true
	entry.PayloadPath = "history"
	entry.Count = found
	env.Sink.Status(shellpack.StatusOK, "Shell history")
	return entry, nil
}

func (historyComponent) Restore(ctx context.Context, env *Env, srcDir string) error {
	histDir := filepath.Join(srcDir, "history")
	if !dirExists(histDir) {
		env.Sink.Status(shellpack.StatusSkip, "Shell history not in backup")
		return nil
	}
	found := false
	for _, f := range historyFiles {
		src := filepath.Join(histDir, f)
		if !fileExists(src) {
			continue
		}
		if err := env.PlaceFile(src, filepath.Join(env.Home, f)); err != nil {
			return fmt.Errorf("restoring %s: %w", f, err)
		}
		found = true
	}

	fishSrc := filepath.Join(histDir, "fish")
	if dirExists(fishSrc) {
		fishDest := filepath.Join(env.Home, ".local", "share", "fish")
		err := filepath.WalkDir(fishSrc, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.Type().IsRegular() {
				return err
			}
			rel, err := filepath.Rel(fishSrc, path)
			if err != nil {
				return err
			}
			return env.PlaceFile(path, filepath.Join(fishDest, rel))
		})
		if err != nil {
			return fmt.Errorf("restoring fish history: %w", err)
		}
		found = true
	}

	if !found {
		env.Sink.Status(shellpack.StatusSkip, "Shell history (nothing to restore)")
		return nil
	}
	env.Sink.Status(shellpack.StatusOK, "Shell history")
	return nil
}
