// Package engine sequences the backup and restore pipelines. The engine
// owns the state machine and calls out to detection, components,
// manifest, transport and system defaults; none of them call back in.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/component"
	"github.com/moxforge/shellpack/pkg/ledger"
	"github.com/moxforge/shellpack/pkg/rollback"
	"github.com/moxforge/shellpack/pkg/system"
	"github.com/moxforge/shellpack/pkg/workspace"
)

// Pipeline states. A backup walks idle, detecting, collecting, packaging,
// manifest_building, publishing, done; a restore walks idle, detecting,
// fetching, verifying, restoring, setting_defaults, done. Failures and
// operator interrupts past the first mutation go through rolling_back and
// always end in failed, however the unwind went.
const (
	STATE_IDLE              string = "idle"
	STATE_DETECTING         string = "detecting"
	STATE_COLLECTING        string = "collecting"
	STATE_PACKAGING         string = "packaging"
	STATE_MANIFEST_BUILDING string = "manifest_building"
	STATE_PUBLISHING        string = "publishing"
	STATE_FETCHING          string = "fetching"
	STATE_VERIFYING         string = "verifying"
	STATE_RESTORING         string = "restoring"
	STATE_SETTING_DEFAULTS  string = "setting_defaults"
	STATE_ROLLING_BACK      string = "rolling_back"
	STATE_DONE              string = "done"
	STATE_FAILED            string = "failed"
)

// Transport is the slice of the git client the engine drives.
// pkg/transport provides the real one; tests substitute fakes.
type Transport interface {
	Publish(ctx context.Context, remoteURL, cloneDir, stagedTree, message string) error
	FetchCatalog(ctx context.Context, remoteURL string) ([]string, error)
	FetchBackup(ctx context.Context, remoteURL, name, dest string) (string, error)
}

// Engine runs one pipeline over one workspace. Not reusable across runs;
// the CLI constructs a fresh one per invocation.
type Engine struct {
	cfg       *shellpack.Config
	log       *logrus.Logger
	sink      shellpack.StatusSink
	prompter  shellpack.Prompter
	runner    shellpack.Runner
	transport Transport
	ws        *workspace.Workspace
	history   *ledger.Ledger

	detector  *system.Detector
	installer *system.Installer
	defaults  *system.Defaults
	catalog   []component.Component

	state string
}

// New wires an engine for one run. The workspace must already exist; the
// caller owns its removal. history may be nil, runs then go unrecorded.
func New(cfg *shellpack.Config, log *logrus.Logger, sink shellpack.StatusSink, prompter shellpack.Prompter,
	runner shellpack.Runner, transport Transport, ws *workspace.Workspace, history *ledger.Ledger) *Engine {
	cfg.DefaultTimeouts()
	return &Engine{
		cfg:       cfg,
		log:       log,
		sink:      sink,
		prompter:  prompter,
		runner:    runner,
		transport: transport,
		ws:        ws,
		history:   history,
		detector:  system.NewDetector(runner, log),
		installer: system.NewInstaller(runner, log, cfg.NetworkTimeout, cfg.CommandTimeout, cfg.InstallTimeout),
		defaults:  system.NewDefaults(runner, log, cfg.CommandTimeout),
		catalog:   component.Catalog(),
		state:     STATE_IDLE,
	}
}

// State reports the engine's current pipeline state.
func (e *Engine) State() string { return e.state }

func (e *Engine) setState(state string) {
	e.state = state
	e.log.Debugf("engine state: %s", state)
}

// cancelled maps a done context onto ErrCancelled. Checked between
// pipeline states; work in flight finishes before the flag is honoured.
func cancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", shellpack.ErrCancelled, ctx.Err())
	default:
		return nil
	}
}

// fail parks the run in failed without touching the rollback stack. For
// failures before the first mutation.
func (e *Engine) fail(err error) error {
	e.setState(STATE_FAILED)
	return err
}

// unwind drains the rollback stack and parks the run in failed. The
// original error is returned untouched; unwind problems are only logged.
func (e *Engine) unwind(stack *rollback.Stack, err error) error {
	e.setState(STATE_ROLLING_BACK)
	if n := stack.Len(); n > 0 {
		e.sink.Statusf(shellpack.StatusWarn, "Run failed, rolling back %d actions", n)
	}
	if failed := stack.Unwind(); failed > 0 {
		e.log.Errorf("%d rollback actions failed, manual cleanup may be needed", failed)
	}
	e.setState(STATE_FAILED)
	return err
}

// record writes the run's outcome to the ledger. Best effort: a history
// problem is logged and never changes the run's result. Dry runs are not
// recorded.
func (e *Engine) record(rec *ledger.RunRecord, runErr error) {
	if e.history == nil || e.cfg.DryRun {
		return
	}
	now := time.Now().UTC()
	rec.Finished = &now
	switch {
	case errors.Is(runErr, shellpack.ErrCancelled):
		rec.Status = ledger.RunStatusCancelled
	case runErr != nil:
		rec.Status = ledger.RunStatusFailed
		rec.ErrorMessage = runErr.Error()
	case rec.Status == "":
		rec.Status = ledger.RunStatusDone
	}
	if err := e.history.Append(*rec); err != nil {
		e.log.Warnf("recording run in history: %v", err)
	}
}

// checkDeps resolves deps on PATH and reports every missing one with its
// hint. The returned error is non-nil only when a required tool is absent.
func (e *Engine) checkDeps(deps []system.Dependency) error {
	statuses, err := system.CheckDependencies(e.runner, deps)
	for _, st := range statuses {
		if st.Found {
			e.log.Debugf("%s: %s", st.Name, st.Path)
			continue
		}
		kind := shellpack.StatusWarn
		if st.Required {
			kind = shellpack.StatusError
		}
		e.sink.Statusf(kind, "%s not found (%s)", st.Name, st.Hint)
	}
	return err
}

func (e *Engine) newEnv(src shellpack.SourceInfo) *component.Env {
	return &component.Env{
		Home:           e.cfg.Home,
		Source:         src,
		Runner:         e.runner,
		Log:            e.log,
		Sink:           e.sink,
		CmdTimeout:     e.cfg.CommandTimeout,
		InstallTimeout: e.cfg.InstallTimeout,
		DryRun:         e.cfg.DryRun,
	}
}

// DefaultBackupName builds the {shell}-{hostname}-{yyyymmdd} name used
// when the operator does not pick one.
func DefaultBackupName(src shellpack.SourceInfo, now time.Time) string {
	shell := src.DefaultShell
	if shell == "" {
		shell = "shell"
	}
	host := strings.ToLower(src.Hostname)
	if host == "" {
		host = "host"
	}
	return shellpack.SanitizeName(fmt.Sprintf("%s-%s-%s", shell, host, now.Format("20060102")))
}
