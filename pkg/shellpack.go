/*
shellpack internal architecture:

 The engine drives a sequential pipeline. Every other part is a collaborator
 called by the engine, never the other way around.

 backup:   Detect ──► Collect ──► Package ──► Manifest ──► Publish
                         │           │                        │
                         ▼           ▼                        ▼
                      Prompter   TempWorkspace          Transport (go-git)

 restore:  Detect ──► Fetch ──► Verify ──► Restore ──► SetDefaults
                        │          │          │
                        ▼          ▼          ▼
                    Transport  Checksum   Rollback (undo stack)

 A failure after the first recorded rollback action unwinds the stack in
 reverse order; the original error is what the operator sees. The temp
 workspace is removed on exit no matter how the run ended.
*/
package shellpack

import (
	"context"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// ManifestVersion is the on-disk manifest format version. Restore
	// refuses manifests from a different major version.
	ManifestVersion = "2.0.0"

	ManifestFilename = "manifest.json"

	// BackupsPrefix is the directory inside the remote repository that
	// holds one subdirectory per backup. Producers and consumers agree on
	// this layout; it is a wire contract, not an implementation detail.
	BackupsPrefix = "backups"

	ProjectURL = "https://github.com/MoxForge/shellpack"
)

// Config carries one run's settings from the CLI into the engine.
type Config struct {
	RemoteURL  string `validate:"required,giturl"`
	BackupName string
	Mode       Mode

	Verbose bool
	DryRun  bool

	// Home is the directory whose shell environment is backed up or
	// restored. Tests point this at a scratch directory.
	Home string `validate:"required"`

	// WorkspaceRoot overrides os.TempDir as the parent of the temp
	// workspace. Empty means the system default.
	WorkspaceRoot string

	NetworkTimeout time.Duration
	CommandTimeout time.Duration
	InstallTimeout time.Duration
}

// DefaultTimeouts fills zero timeout fields with the defaults the pipeline
// assumes: 60s network calls, 30s package-manager and export commands,
// 300s installers.
func (c *Config) DefaultTimeouts() {
	if c.NetworkTimeout == 0 {
		c.NetworkTimeout = 60 * time.Second
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 30 * time.Second
	}
	if c.InstallTimeout == 0 {
		c.InstallTimeout = 300 * time.Second
	}
}

var gitURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(https?|git|ssh)://[a-zA-Z0-9._-]+(/[a-zA-Z0-9._/-]+)?\.git$`),
	regexp.MustCompile(`^git@[a-zA-Z0-9._-]+:[a-zA-Z0-9._/-]+\.git$`),
	regexp.MustCompile(`^(https?|git|ssh)://[a-zA-Z0-9._-]+(/[a-zA-Z0-9._/-]+)?$`),
}

// ValidGitURL reports whether url looks like a usable remote: an
// http(s)/git/ssh URL or a git@host:path scp-style address.
func ValidGitURL(url string) bool {
	for _, p := range gitURLPatterns {
		if p.MatchString(url) {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("giturl", func(fl validator.FieldLevel) bool {
		return ValidGitURL(fl.Field().String())
	})
	return v
}

// Validate checks the config before the engine touches anything. Failures
// wrap ErrValidation so callers can map them to an exit code.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &StepError{Step: "validate", Err: ErrValidation, Remedy: err.Error()}
	}
	return nil
}

var nameStrip = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
var nameDots = regexp.MustCompile(`\.\.+`)

// SanitizeName reduces a backup name to [a-zA-Z0-9._-], collapses dot runs
// and caps the length at 100. An empty result falls back to a timestamped
// placeholder so a backup always has a usable directory name.
func SanitizeName(name string) string {
	name = nameStrip.ReplaceAllString(name, "")
	name = nameDots.ReplaceAllString(name, ".")
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		name = "backup-" + time.Now().Format("20060102-150405")
	}
	return name
}

// Prompter supplies operator decisions to the pipeline. The engine consumes
// already-made choices; rendering and input handling live in pkg/tui.
type Prompter interface {
	Confirm(title string, def bool) (bool, error)
	Input(title, placeholder, def string) (string, error)
	Select(title string, options []string) (int, error)
}

type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusOK
	StatusSkip
	StatusWarn
	StatusError
)

// StatusSink receives human-facing progress while the pipeline runs. The
// log file is separate and always written; the sink is the terminal.
type StatusSink interface {
	Section(title string)
	Status(kind StatusKind, msg string)
	Statusf(kind StatusKind, format string, a ...any)
}

// Runner executes external commands (package managers, conda, chsh, ...).
// A fake Runner stands in during tests.
type Runner interface {
	// Run executes name with args, returning trimmed stdout. The timeout
	// bounds the call; zero means the context alone governs it.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)
	// RunInteractive executes name with the caller's terminal attached,
	// for commands that prompt (chsh, sudo).
	RunInteractive(ctx context.Context, timeout time.Duration, name string, args ...string) error
	// LookPath reports where name resolves on PATH, or an error.
	LookPath(name string) (string, error)
}
