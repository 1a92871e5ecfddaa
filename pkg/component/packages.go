package component

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shellpack "github.com/moxforge/shellpack/pkg"
)

// packagesComponent exports installed-package lists. The lists are
// reference material: restore parks them under ~/.shellpack/packages
// instead of blindly reinstalling a thousand transitive dependencies
// on a machine with a different base system.
type packagesComponent struct{}

func (packagesComponent) Name() string        { return shellpack.ComponentPackages }
func (packagesComponent) Label() string       { return "Package lists" }
func (packagesComponent) Sensitive() bool     { return false }
func (packagesComponent) Prompted() bool      { return false }
func (packagesComponent) PromptDefault() bool { return true }

func (packagesComponent) Detect(env *Env) bool {
	return env.Source.PackageManager != "unknown"
}

func (packagesComponent) EstimateKB(env *Env) int { return 0 }

// listExports maps a package manager to the commands whose output gets
// captured, in file order. The first file is the headline count.
func listExports(pm string) [][2]string {
	switch pm {
	case "apt":
		return [][2]string{
			{"apt_packages.txt", "apt list --installed"},
			{"apt_manual.txt", "apt-mark showmanual"},
		}
	case "brew":
		return [][2]string{
			{"brew_formula.txt", "brew list --formula"},
			{"brew_cask.txt", "brew list --cask"},
			{"brew_leaves.txt", "brew leaves"},
		}
	case "dnf", "yum":
		return [][2]string{{"rpm_packages.txt", "rpm -qa"}}
	case "pacman":
		return [][2]string{
			{"pacman_packages.txt", "pacman -Qe"},
			{"pacman_aur.txt", "pacman -Qm"},
		}
	default:
		return nil
	}
}

func (c packagesComponent) Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error) {
	entry := shellpack.ComponentEntry{Name: c.Name()}
	pm := env.Source.PackageManager
	exports := listExports(pm)
	if exports == nil {
		env.Sink.Statusf(shellpack.StatusSkip, "Package manager not supported: %s", pm)
		return entry, nil
	}
	if env.DryRun {
		env.Sink.Statusf(shellpack.StatusInfo, "[dry run] would export package lists (%s)", pm)
		entry.Included = true
		entry.PayloadPath = "packages"
		return entry, nil
	}

	pkgDir := filepath.Join(destDir, "packages")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return entry, err
	}

	written := 0
	for i, export := range exports {
		fields := strings.Fields(export[1])
		out, err := env.Runner.Run(ctx, env.CmdTimeout, fields[0], fields[1:]...)
		if err != nil {
			// One list failing should not lose the others.
			env.Log.Warnf("package export %q failed: %v", export[1], err)
			continue
		}
		lines := listLines(out)
		if len(lines) == 0 {
			continue
		}
		content := strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(pkgDir, export[0]), []byte(content), 0o644); err != nil {
			return entry, fmt.Errorf("writing %s: %w", export[0], err)
		}
		written++
		if i == 0 {
			entry.Count = len(lines)
		}
	}
	if written == 0 {
		env.Sink.Status(shellpack.StatusSkip, "Package lists empty")
		return entry, nil
	}
	entry.Included = true
	entry.PayloadPath = "packages"
	env.Sink.Statusf(shellpack.StatusOK, "Package lists (%s, %d packages)", pm, entry.Count)
	return entry, nil
}

// listLines splits command output into list entries, dropping apt's
// "Listing..." banner.
func listLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.Contains(line, "Listing...") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func (packagesComponent) Restore(ctx context.Context, env *Env, srcDir string) error {
	pkgDir := filepath.Join(srcDir, "packages")
	if !dirExists(pkgDir) {
		env.Sink.Status(shellpack.StatusSkip, "Package lists not in backup")
		return nil
	}
	entries, err := os.ReadDir(pkgDir)
	if err != nil {
		return err
	}
	destDir := filepath.Join(env.Home, ".shellpack", "packages")
	count := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		if err := env.PlaceFile(filepath.Join(pkgDir, e.Name()), filepath.Join(destDir, e.Name())); err != nil {
			return fmt.Errorf("restoring package list %s: %w", e.Name(), err)
		}
		count++
	}
	if count == 0 {
		env.Sink.Status(shellpack.StatusSkip, "Package lists not in backup")
		return nil
	}
	env.Sink.Statusf(shellpack.StatusOK, "Package lists saved to ~/.shellpack/packages (%d)", count)
	return nil
}
