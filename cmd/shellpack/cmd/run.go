package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/engine"
	"github.com/moxforge/shellpack/pkg/ledger"
	"github.com/moxforge/shellpack/pkg/logging"
	"github.com/moxforge/shellpack/pkg/retry"
	"github.com/moxforge/shellpack/pkg/system"
	"github.com/moxforge/shellpack/pkg/transport"
	"github.com/moxforge/shellpack/pkg/tui"
	"github.com/moxforge/shellpack/pkg/version"
	"github.com/moxforge/shellpack/pkg/workspace"
)

// historyRetention bounds how long finished runs stay in the ledger.
// Pruned opportunistically at the start of each run.
const historyRetention = 365 * 24 * time.Hour

// newConfig assembles and validates the configuration shared by the
// backup and restore commands.
func newConfig(remoteURL string) (*shellpack.Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	cfg := &shellpack.Config{
		RemoteURL: remoteURL,
		Home:      home,
		Verbose:   flagVerbose,
		DryRun:    flagDryRun,
	}
	cfg.DefaultTimeouts()
	return cfg, cfg.Validate()
}

// runPipeline owns a run's lifecycle: signal handling, the temp
// workspace and the log file inside it, the run ledger, and the engine.
// The workspace is removed however the run ends.
func runPipeline(cfg *shellpack.Config, run func(context.Context, *engine.Engine) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws := workspace.New(cfg.WorkspaceRoot)
	if err := ws.Create(); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	defer ws.Remove()

	log := logging.New(logging.Options{
		Path:    filepath.Join(ws.Root(), "shellpack.log"),
		Verbose: cfg.Verbose,
		Journal: true,
	})

	// The ledger is advisory; a run proceeds unrecorded when it cannot
	// be opened.
	var history *ledger.Ledger
	if path, err := ledger.DefaultPath(); err == nil {
		if l, lerr := ledger.Open(path); lerr == nil {
			history = l
			defer history.Close()
			if n, perr := history.Prune(historyRetention); perr != nil {
				log.Warnf("pruning run history: %v", perr)
			} else if n > 0 {
				log.Infof("pruned %d runs older than %s from history", n, historyRetention)
			}
		} else {
			log.Warnf("run history unavailable: %v", lerr)
		}
	} else {
		log.Warnf("run history unavailable: %v", err)
	}

	fmt.Println(tui.Banner(version.Release))

	client := transport.NewClient(log, retry.DefaultPolicy(), cfg.NetworkTimeout, cfg.DryRun)
	eng := engine.New(cfg, log, tui.NewConsole(nil), tui.NewTerminal(),
		system.NewRunner(log), client, ws, history)
	return run(ctx, eng)
}

// exitOn prints err and exits non-zero; a nil err is a no-op.
func exitOn(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	os.Exit(1)
}
