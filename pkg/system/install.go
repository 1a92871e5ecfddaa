package system

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	shellpack "github.com/moxforge/shellpack/pkg"
)

const (
	starshipInstallURL = "https://starship.rs/install.sh"
	minicondaBaseURL   = "https://repo.anaconda.com/miniconda"
)

// Installer puts missing software on the box during restore: shells,
// the starship prompt, and a Miniconda bootstrap for conda
// environments. Package-manager commands run with the terminal
// attached since sudo may prompt.
type Installer struct {
	runner shellpack.Runner
	http   *resty.Client
	log    *logrus.Logger

	cmdTimeout     time.Duration
	installTimeout time.Duration

	aptUpdated bool
}

func NewInstaller(runner shellpack.Runner, log *logrus.Logger, networkTimeout, cmdTimeout, installTimeout time.Duration) *Installer {
	return &Installer{
		runner:         runner,
		http:           resty.New().SetTimeout(networkTimeout).SetRetryCount(2),
		log:            log,
		cmdTimeout:     cmdTimeout,
		installTimeout: installTimeout,
	}
}

// installArgv builds the command lines that install pkgs with pm.
// Everything except brew goes through sudo.
func installArgv(pm string, pkgs []string) ([][]string, error) {
	if len(pkgs) == 0 {
		return nil, nil
	}
	switch pm {
	case "brew":
		return [][]string{append([]string{"brew", "install"}, pkgs...)}, nil
	case "apt":
		return [][]string{append([]string{"sudo", "apt-get", "install", "-y"}, pkgs...)}, nil
	case "dnf":
		return [][]string{append([]string{"sudo", "dnf", "install", "-y"}, pkgs...)}, nil
	case "yum":
		return [][]string{append([]string{"sudo", "yum", "install", "-y"}, pkgs...)}, nil
	case "pacman":
		return [][]string{append([]string{"sudo", "pacman", "-S", "--noconfirm", "--needed"}, pkgs...)}, nil
	case "zypper":
		return [][]string{append([]string{"sudo", "zypper", "install", "-y"}, pkgs...)}, nil
	case "apk":
		return [][]string{append([]string{"sudo", "apk", "add"}, pkgs...)}, nil
	default:
		return nil, fmt.Errorf("%w: no supported package manager", shellpack.ErrDependencyMissing)
	}
}

// InstallPackages installs pkgs through the detected package manager.
func (i *Installer) InstallPackages(ctx context.Context, src shellpack.SourceInfo, pkgs []string) error {
	argvs, err := installArgv(src.PackageManager, pkgs)
	if err != nil || len(argvs) == 0 {
		return err
	}
	if err := i.aptUpdate(ctx, src); err != nil {
		return err
	}
	for _, argv := range argvs {
		i.log.Infof("installing %d packages via %s", len(pkgs), src.PackageManager)
		if err := i.runner.RunInteractive(ctx, i.installTimeout, argv[0], argv[1:]...); err != nil {
			return fmt.Errorf("installing packages with %s: %w", src.PackageManager, err)
		}
	}
	return nil
}

// EnsureShell makes sure the named shell binary exists, installing it
// if the package manager knows it. Returns the resolved path.
func (i *Installer) EnsureShell(ctx context.Context, src shellpack.SourceInfo, shell string) (string, error) {
	if path, err := i.runner.LookPath(shell); err == nil {
		return path, nil
	}
	i.log.Infof("%s is not installed, installing via %s", shell, src.PackageManager)
	if err := i.InstallPackages(ctx, src, []string{shell}); err != nil {
		return "", err
	}
	path, err := i.runner.LookPath(shell)
	if err != nil {
		return "", fmt.Errorf("%s still missing after install: %w", shell, err)
	}
	return path, nil
}

// aptUpdate refreshes the apt index once per process before the first
// install. Other managers resolve against a live index.
func (i *Installer) aptUpdate(ctx context.Context, src shellpack.SourceInfo) error {
	if src.PackageManager != "apt" || i.aptUpdated {
		return nil
	}
	i.aptUpdated = true
	if err := i.runner.RunInteractive(ctx, i.installTimeout, "sudo", "apt-get", "update"); err != nil {
		return fmt.Errorf("apt-get update: %w", err)
	}
	return nil
}

// InstallStarship downloads the official installer into scratch and
// runs it non-interactively.
func (i *Installer) InstallStarship(ctx context.Context, scratch string) error {
	if _, err := i.runner.LookPath("starship"); err == nil {
		return nil
	}
	script := filepath.Join(scratch, "starship_install.sh")
	if err := i.download(ctx, starshipInstallURL, script); err != nil {
		return fmt.Errorf("downloading starship installer: %w", err)
	}
	if err := i.runner.RunInteractive(ctx, i.installTimeout, "sh", script, "-y"); err != nil {
		return fmt.Errorf("starship installer: %w", err)
	}
	return nil
}

// FindConda locates an existing conda binary: PATH first, then the
// default Miniconda and Anaconda prefixes under home.
func (i *Installer) FindConda(home string) (string, bool) {
	if path, err := i.runner.LookPath("conda"); err == nil {
		return path, true
	}
	for _, prefix := range []string{"miniconda3", "anaconda3"} {
		candidate := filepath.Join(home, prefix, "bin", "conda")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// minicondaURL picks the installer for this OS and architecture.
func minicondaURL(osName, arch string) (string, error) {
	var file string
	switch {
	case osName == "macos" && arch == "arm64":
		file = "Miniconda3-latest-MacOSX-arm64.sh"
	case osName == "macos":
		file = "Miniconda3-latest-MacOSX-x86_64.sh"
	case arch == "arm64":
		file = "Miniconda3-latest-Linux-aarch64.sh"
	case arch == "amd64":
		file = "Miniconda3-latest-Linux-x86_64.sh"
	default:
		return "", fmt.Errorf("no Miniconda installer for %s/%s", osName, arch)
	}
	return minicondaBaseURL + "/" + file, nil
}

// InstallMiniconda bootstraps Miniconda into home/miniconda3 and
// registers shell hooks for the shells we manage. Returns the conda
// binary path.
func (i *Installer) InstallMiniconda(ctx context.Context, src shellpack.SourceInfo, home, scratch string) (string, error) {
	url, err := minicondaURL(src.OS, src.Arch)
	if err != nil {
		return "", err
	}
	installer := filepath.Join(scratch, filepath.Base(url))
	i.log.Infof("downloading %s", url)
	if err := i.download(ctx, url, installer); err != nil {
		return "", fmt.Errorf("downloading Miniconda: %w", err)
	}

	prefix := filepath.Join(home, "miniconda3")
	if err := i.runner.RunInteractive(ctx, i.installTimeout, "bash", installer, "-b", "-p", prefix); err != nil {
		return "", fmt.Errorf("miniconda installer: %w", err)
	}

	conda := filepath.Join(prefix, "bin", "conda")
	if _, err := i.runner.Run(ctx, i.cmdTimeout, conda, "init", "bash", "zsh", "fish"); err != nil {
		i.log.Warnf("conda init failed: %v", err)
	}
	return conda, nil
}

func (i *Installer) download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	resp, err := i.http.R().SetContext(ctx).SetOutput(dest).Get(url)
	if err != nil {
		return fmt.Errorf("%w: %v", shellpack.ErrTransient, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: GET %s: %s", shellpack.ErrTransient, url, resp.Status())
	}
	return os.Chmod(dest, 0o755)
}
