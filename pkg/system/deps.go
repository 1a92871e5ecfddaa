package system

import (
	"fmt"
	"strings"

	shellpack "github.com/moxforge/shellpack/pkg"
)

// Dependency is an external tool a run wants. Required dependencies
// abort the run when missing; the rest only narrow what gets done.
type Dependency struct {
	Name     string
	Required bool
	Hint     string
}

type DepStatus struct {
	Dependency
	Path  string
	Found bool
}

// BackupDependencies lists the tools backup shells out to. Git, HTTP
// and archive handling are in-process, so nothing here is required;
// a missing tool just skips its component.
func BackupDependencies(src shellpack.SourceInfo) []Dependency {
	deps := []Dependency{
		{Name: "conda", Hint: "conda environments will be skipped; install Miniconda from https://docs.conda.io"},
	}
	if src.PackageManager != "unknown" {
		deps = append(deps, Dependency{
			Name: packageManagerBinary(src.PackageManager),
			Hint: "installed package lists will be skipped",
		})
	}
	return deps
}

// RestoreDependencies lists the tools restore shells out to. The
// package manager is the one hard requirement; everything else
// degrades to a skipped step.
func RestoreDependencies(src shellpack.SourceInfo) []Dependency {
	deps := []Dependency{
		{Name: "chsh", Hint: "default shell changes will be skipped"},
		{Name: "ssh-keygen", Hint: "SSH key generation will be unavailable; install OpenSSH client tools"},
	}
	if src.PackageManager == "unknown" {
		deps = append(deps, Dependency{
			Name:     "package manager",
			Required: true,
			Hint:     "install one of: " + strings.Join(packageManagers, ", "),
		})
	} else {
		deps = append(deps, Dependency{
			Name:     packageManagerBinary(src.PackageManager),
			Required: true,
			Hint:     installHint(src),
		})
	}
	return deps
}

// CheckDependencies resolves each dependency on PATH. The returned
// error is non-nil only when a required dependency is missing.
func CheckDependencies(runner shellpack.Runner, deps []Dependency) ([]DepStatus, error) {
	statuses := make([]DepStatus, 0, len(deps))
	var missing []string
	for _, dep := range deps {
		st := DepStatus{Dependency: dep}
		if path, err := runner.LookPath(dep.Name); err == nil {
			st.Found = true
			st.Path = path
		} else if dep.Required {
			missing = append(missing, dep.Name)
		}
		statuses = append(statuses, st)
	}
	if len(missing) > 0 {
		return statuses, fmt.Errorf("%w: %s", shellpack.ErrDependencyMissing, strings.Join(missing, ", "))
	}
	return statuses, nil
}

// packageManagerBinary maps the detected manager to the binary the
// installer actually invokes. apt installs go through apt-get.
func packageManagerBinary(pm string) string {
	if pm == "apt" {
		return "apt-get"
	}
	return pm
}

func installHint(src shellpack.SourceInfo) string {
	if src.OS == "macos" {
		return "install Homebrew from https://brew.sh"
	}
	return "reinstall your distribution's package manager"
}
