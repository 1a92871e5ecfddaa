package system

import (
	"context"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
	"github.com/sirupsen/logrus"

	shellpack "github.com/moxforge/shellpack/pkg"
)

// packageManagers is probed in order on linux; the first one on PATH
// wins. macOS always reports brew.
var packageManagers = []string{"apt", "dnf", "yum", "pacman", "zypper", "apk"}

// Detector gathers the facts about this machine that end up in the
// manifest's source block and steer component staging.
type Detector struct {
	runner shellpack.Runner
	log    *logrus.Logger
}

func NewDetector(runner shellpack.Runner, log *logrus.Logger) *Detector {
	return &Detector{runner: runner, log: log}
}

func (d *Detector) Detect(ctx context.Context) (shellpack.SourceInfo, error) {
	src := shellpack.SourceInfo{
		Arch:         runtime.GOARCH,
		DefaultShell: shellFromEnv(),
	}

	kernel := ""
	if info, err := host.InfoWithContext(ctx); err == nil {
		src.Hostname = info.Hostname
		kernel = info.KernelVersion
	} else {
		d.log.Warnf("host detection degraded: %v", err)
		src.Hostname, _ = os.Hostname()
	}
	if src.Hostname == "" {
		src.Hostname = "unknown"
	}

	src.OS = classifyOS(runtime.GOOS, kernel)
	src.PackageManager = pickPackageManager(src.OS, d.runner.LookPath)
	src.User = currentUser()

	d.log.Infof("detected %s/%s on %s, package manager %s, shell %s",
		src.OS, src.Arch, src.Hostname, src.PackageManager, src.DefaultShell)
	return src, nil
}

// classifyOS folds GOOS and the kernel version into the three families
// the payload layout distinguishes. WSL looks like linux everywhere
// except the kernel string.
func classifyOS(goos, kernelVersion string) string {
	switch goos {
	case "darwin":
		return "macos"
	case "linux":
		if strings.Contains(strings.ToLower(kernelVersion), "microsoft") {
			return "wsl"
		}
		return "linux"
	default:
		return goos
	}
}

func pickPackageManager(osName string, look func(string) (string, error)) string {
	if osName == "macos" {
		return "brew"
	}
	for _, pm := range packageManagers {
		if _, err := look(pm); err == nil {
			return pm
		}
	}
	return "unknown"
}

func shellFromEnv() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return filepath.Base(sh)
	}
	return "bash"
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}
