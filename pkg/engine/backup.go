package engine

import (
	"context"
	"fmt"
	"time"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/component"
	"github.com/moxforge/shellpack/pkg/ledger"
	"github.com/moxforge/shellpack/pkg/manifest"
	"github.com/moxforge/shellpack/pkg/rollback"
	"github.com/moxforge/shellpack/pkg/system"
)

// RunBackup stages the selected components into the workspace, seals them
// with a manifest and publishes the tree to the remote repository. Staging
// failures in a single component degrade it to excluded; everything after
// collection passes through rolling_back on the way to failed.
func (e *Engine) RunBackup(ctx context.Context) (err error) {
	rec := ledger.RunRecord{
		Kind:      ledger.RunBackup,
		RemoteURL: e.cfg.RemoteURL,
		Mode:      string(e.cfg.Mode),
		Started:   time.Now().UTC(),
	}
	defer func() { e.record(&rec, err) }()

	set := &shellpack.BackupSet{CreatedAt: rec.Started, Mode: e.cfg.Mode}

	e.setState(STATE_DETECTING)
	e.sink.Section("Analyzing system")
	src, err := e.detector.Detect(ctx)
	if err != nil {
		return e.fail(fmt.Errorf("detecting system: %w", err))
	}
	set.Source = src
	e.sink.Statusf(shellpack.StatusInfo, "%s/%s, package manager %s, shell %s",
		src.OS, src.Arch, src.PackageManager, src.DefaultShell)

	// Backup has no hard tool requirements; a missing tool only narrows
	// what gets staged.
	if err = e.checkDeps(system.BackupDependencies(src)); err != nil {
		return e.fail(err)
	}

	free, err := system.CheckDiskSpace(ctx, e.ws.Root())
	if err != nil {
		return e.fail(err)
	}
	e.log.Debugf("%s free at %s", free, e.ws.Root())

	set.Name = e.cfg.BackupName
	if set.Name == "" {
		set.Name = DefaultBackupName(src, set.CreatedAt)
	}
	rec.BackupName = set.Name
	e.sink.Statusf(shellpack.StatusInfo, "Backup name: %s", set.Name)

	// Staging only writes inside the workspace, so the stack usually stays
	// empty; it exists so every post-collection failure takes the same
	// rolling_back path.
	stack := rollback.New(e.log)

	if err = cancelled(ctx); err != nil {
		return e.unwind(stack, err)
	}
	e.setState(STATE_COLLECTING)
	e.sink.Section("Selecting components")
	env := e.newEnv(src)
	collector := component.NewCollector(e.catalog, e.prompter, e.sink, e.log)
	selections, err := collector.Select(env, e.cfg.Mode)
	if err != nil {
		return e.unwind(stack, err)
	}

	if kb := component.EstimateKB(env, selections); kb > 0 {
		e.sink.Statusf(shellpack.StatusInfo, "Estimated backup size: ~%d KB", kb)
	}
	proceed, err := e.prompter.Confirm("Proceed with backup?", true)
	if err != nil {
		return e.unwind(stack, err)
	}
	if !proceed {
		e.sink.Status(shellpack.StatusSkip, "Backup cancelled")
		rec.Status = ledger.RunStatusCancelled
		e.setState(STATE_DONE)
		return nil
	}

	if err = cancelled(ctx); err != nil {
		return e.unwind(stack, err)
	}
	e.setState(STATE_PACKAGING)
	e.sink.Section("Collecting components")
	staging, err := e.ws.Staging(set.Name)
	if err != nil {
		return e.unwind(stack, err)
	}
	for _, sel := range selections {
		if err = cancelled(ctx); err != nil {
			return e.unwind(stack, err)
		}
		if !sel.Include {
			set.Add(shellpack.ComponentEntry{Name: sel.Component.Name()})
			continue
		}
		entry, stageErr := sel.Component.Stage(ctx, env, staging)
		if stageErr != nil {
			// One broken component does not sink the backup; it is
			// recorded as excluded and the run moves on.
			e.log.Warnf("staging %s: %v", sel.Component.Name(), stageErr)
			e.sink.Statusf(shellpack.StatusWarn, "%s failed: %v", sel.Component.Label(), stageErr)
			set.Add(shellpack.ComponentEntry{Name: sel.Component.Name()})
			continue
		}
		set.Add(entry)
	}

	if err = cancelled(ctx); err != nil {
		return e.unwind(stack, err)
	}
	e.setState(STATE_MANIFEST_BUILDING)
	e.sink.Section("Writing manifest")
	if e.cfg.DryRun {
		e.sink.Statusf(shellpack.StatusInfo, "[dry run] would write manifest with %d components",
			len(set.IncludedNames()))
	} else {
		man, buildErr := manifest.Build(set, staging)
		if buildErr != nil {
			return e.unwind(stack, buildErr)
		}
		if err = man.Write(staging); err != nil {
			return e.unwind(stack, err)
		}
		e.sink.Statusf(shellpack.StatusOK, "Manifest sealed (checksum %.12s...)", man.Checksum)
	}

	if err = cancelled(ctx); err != nil {
		return e.unwind(stack, err)
	}
	e.setState(STATE_PUBLISHING)
	e.sink.Section("Publishing")
	err = e.transport.Publish(ctx, e.cfg.RemoteURL, e.ws.CloneDir(), staging, "Backup: "+set.Name)
	if err != nil {
		return e.unwind(stack, shellpack.Stepf("publish", err, "check repository access for %s", e.cfg.RemoteURL))
	}

	stack.Discard()
	e.setState(STATE_DONE)
	rec.Components = set.IncludedNames()
	if e.cfg.DryRun {
		e.sink.Status(shellpack.StatusOK, "[dry run] no changes were made")
		return nil
	}
	e.sink.Statusf(shellpack.StatusOK, "Backup %s published to %s", set.Name, e.cfg.RemoteURL)
	return nil
}
