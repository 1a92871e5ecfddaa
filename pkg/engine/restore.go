package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/component"
	"github.com/moxforge/shellpack/pkg/ledger"
	"github.com/moxforge/shellpack/pkg/manifest"
	"github.com/moxforge/shellpack/pkg/rollback"
	"github.com/moxforge/shellpack/pkg/system"
)

// RunRestore fetches a backup, verifies it against its manifest and
// applies the components onto this machine. Nothing is written to the
// home directory before the checksum verdict; a component failure after
// that unwinds every recorded write before the run lands in failed.
func (e *Engine) RunRestore(ctx context.Context) (err error) {
	rec := ledger.RunRecord{
		Kind:      ledger.RunRestore,
		RemoteURL: e.cfg.RemoteURL,
		Started:   time.Now().UTC(),
	}
	defer func() { e.record(&rec, err) }()

	e.setState(STATE_DETECTING)
	e.sink.Section("Analyzing system")
	src, err := e.detector.Detect(ctx)
	if err != nil {
		return e.fail(fmt.Errorf("detecting system: %w", err))
	}
	e.sink.Statusf(shellpack.StatusInfo, "%s/%s, package manager %s",
		src.OS, src.Arch, src.PackageManager)

	if err = e.checkDeps(system.RestoreDependencies(src)); err != nil {
		return e.fail(err)
	}

	if host := system.SSHHost(e.cfg.RemoteURL); host != "" {
		ok, detail := e.defaults.PreflightSSH(ctx, e.cfg.RemoteURL)
		if ok {
			e.sink.Statusf(shellpack.StatusOK, "SSH authentication to %s", host)
		} else {
			e.sink.Statusf(shellpack.StatusWarn, "SSH preflight failed: %s", detail)
			cont, perr := e.prompter.Confirm("Continue anyway?", false)
			if perr != nil {
				return e.fail(perr)
			}
			if !cont {
				e.sink.Status(shellpack.StatusSkip, "Restore cancelled")
				rec.Status = ledger.RunStatusCancelled
				e.setState(STATE_DONE)
				return nil
			}
		}
	}

	if err = cancelled(ctx); err != nil {
		return e.fail(err)
	}
	e.setState(STATE_FETCHING)
	e.sink.Section("Fetching backup")
	if e.cfg.DryRun {
		target := e.cfg.BackupName
		if target == "" {
			target = "the selected backup"
		}
		e.sink.Statusf(shellpack.StatusInfo, "[dry run] would fetch %s from %s and restore it",
			target, e.cfg.RemoteURL)
		e.setState(STATE_DONE)
		return nil
	}

	names, err := e.transport.FetchCatalog(ctx, e.cfg.RemoteURL)
	if err != nil {
		return e.fail(shellpack.Stepf("fetch", err, "check repository access for %s", e.cfg.RemoteURL))
	}
	if len(names) == 0 {
		return e.fail(shellpack.Stepf("fetch", shellpack.ErrValidation, "no backups found at %s", e.cfg.RemoteURL))
	}

	name := e.cfg.BackupName
	if name == "" {
		idx, selErr := e.prompter.Select("Select a backup to restore", names)
		if selErr != nil {
			return e.fail(selErr)
		}
		name = names[idx]
	} else if !slices.Contains(names, name) {
		return e.fail(shellpack.Stepf("fetch", shellpack.ErrValidation,
			"backup %q not found, available: %s", name, strings.Join(names, ", ")))
	}
	rec.BackupName = name

	backupDir, err := e.transport.FetchBackup(ctx, e.cfg.RemoteURL, name, e.ws.CloneDir())
	if err != nil {
		return e.fail(shellpack.Stepf("fetch", err, "check repository access for %s", e.cfg.RemoteURL))
	}

	if err = cancelled(ctx); err != nil {
		return e.fail(err)
	}
	e.setState(STATE_VERIFYING)
	e.sink.Section("Verifying backup")
	man, err := manifest.Load(backupDir)
	if err != nil {
		return e.fail(err)
	}
	if err = man.CheckCompatible(); err != nil {
		return e.fail(err)
	}
	if err = man.VerifyTree(backupDir); err != nil {
		// Integrity failures restore nothing, so there is no partial
		// work to unwind.
		return e.fail(shellpack.Stepf("verify", err, "the backup is corrupted, pick another one"))
	}
	rec.Mode = string(man.BackupType)
	e.sink.Statusf(shellpack.StatusOK, "Checksum verified (%.12s...)", man.Checksum)
	created := man.Created
	if t := man.CreatedTime(); !t.IsZero() {
		created = t.Local().Format("2006-01-02 15:04")
	}
	e.sink.Statusf(shellpack.StatusInfo, "Backup %s, created %s on %s (%s/%s)",
		man.BackupName, created, man.Source.Hostname, man.Source.OS, man.Source.Arch)
	e.sink.Statusf(shellpack.StatusInfo, "Components: %s", strings.Join(man.Components, ", "))

	proceed, err := e.prompter.Confirm("Restore this backup?", true)
	if err != nil {
		return e.fail(err)
	}
	if !proceed {
		e.sink.Status(shellpack.StatusSkip, "Restore cancelled")
		rec.Status = ledger.RunStatusCancelled
		e.setState(STATE_DONE)
		return nil
	}

	include := make(map[string]bool, len(man.Components))
	for _, c := range man.Components {
		include[c] = true
	}

	generateKey := false
	if include[shellpack.ComponentSSHKeys] {
		choice, selErr := e.prompter.Select("SSH keys", []string{
			"Restore SSH keys from the backup",
			"Generate a new SSH key",
			"Skip SSH setup",
		})
		if selErr != nil {
			return e.fail(selErr)
		}
		switch choice {
		case 1:
			include[shellpack.ComponentSSHKeys] = false
			generateKey = true
		case 2:
			include[shellpack.ComponentSSHKeys] = false
		}
	} else if !system.HasSSHKey(e.cfg.Home) {
		generateKey, err = e.prompter.Confirm("No SSH key found. Generate one?", false)
		if err != nil {
			return e.fail(err)
		}
	}

	shell := ""
	shells := shellChoices(man.Components)
	switch {
	case len(shells) == 1:
		shell = shells[0]
	case len(shells) > 1:
		idx, selErr := e.prompter.Select("Default shell", shells)
		if selErr != nil {
			return e.fail(selErr)
		}
		shell = shells[idx]
	}

	// Installs are additive and not rolled back; they happen before any
	// home-directory write so a failed restore leaves configs untouched.
	var shellPath string
	if shell != "" {
		path, insErr := e.installer.EnsureShell(ctx, src, shell)
		if insErr != nil {
			e.sink.Statusf(shellpack.StatusWarn, "Could not install %s: %v", shell, insErr)
			e.log.Warnf("ensuring shell %s: %v", shell, insErr)
		} else {
			shellPath = path
		}
	}
	if include[shellpack.ComponentStarship] {
		if insErr := e.installer.InstallStarship(ctx, e.ws.Root()); insErr != nil {
			e.sink.Statusf(shellpack.StatusWarn, "Starship install failed: %v", insErr)
		}
	}
	if include[shellpack.ComponentCondaEnvs] {
		if _, found := e.installer.FindConda(e.cfg.Home); !found {
			installConda, cErr := e.prompter.Confirm("This backup has conda environments but conda is not installed. Install Miniconda?", true)
			if cErr != nil {
				return e.fail(cErr)
			}
			if installConda {
				if _, mErr := e.installer.InstallMiniconda(ctx, src, e.cfg.Home, e.ws.Root()); mErr != nil {
					e.sink.Statusf(shellpack.StatusWarn, "Miniconda install failed: %v", mErr)
				}
			}
		}
	}

	if err = cancelled(ctx); err != nil {
		return e.fail(err)
	}
	e.setState(STATE_RESTORING)
	e.sink.Section("Restoring components")
	stack := rollback.New(e.log)
	env := e.newEnv(src)
	env.Rollback = stack
	if env.Originals, err = e.ws.Originals(); err != nil {
		return e.fail(err)
	}

	var restored []string
	for _, compName := range man.Components {
		if err = cancelled(ctx); err != nil {
			return e.unwind(stack, err)
		}
		if !include[compName] {
			continue
		}
		comp, ok := component.ByName(e.catalog, compName)
		if !ok {
			// A newer producer may list components this build does not
			// know. Its payload stays in the repository, untouched.
			e.sink.Statusf(shellpack.StatusWarn, "Unknown component %s skipped", compName)
			continue
		}
		if err = comp.Restore(ctx, env, backupDir); err != nil {
			return e.unwind(stack, shellpack.Stepf("restore "+compName, err,
				"previously existing files were put back"))
		}
		restored = append(restored, compName)
	}

	if err = cancelled(ctx); err != nil {
		return e.unwind(stack, err)
	}
	stack.Discard()
	e.setState(STATE_SETTING_DEFAULTS)
	e.sink.Section("Setting defaults")

	if shellPath != "" {
		setShell, cErr := e.prompter.Confirm(fmt.Sprintf("Set %s as your default shell?", shell), true)
		if cErr != nil {
			return e.fail(cErr)
		}
		if setShell {
			if dErr := e.defaults.SetDefaultShell(ctx, shellPath, src.User); dErr != nil {
				e.sink.Statusf(shellpack.StatusWarn, "Default shell not changed: %v", dErr)
			} else {
				e.sink.Statusf(shellpack.StatusOK, "Default shell set to %s", shellPath)
			}
		}
	}

	if helper, hErr := e.defaults.ConfigureGitCredentialHelper(ctx, src.OS); hErr != nil {
		e.sink.Statusf(shellpack.StatusWarn, "Git credential helper not configured: %v", hErr)
	} else {
		e.sink.Statusf(shellpack.StatusOK, "Git credential helper: %s", helper)
	}

	if generateKey {
		email, iErr := e.prompter.Input("Email for the SSH key comment", "you@example.com", "")
		if iErr != nil {
			return e.fail(iErr)
		}
		pub, gErr := e.defaults.GenerateSSHKey(ctx, e.cfg.Home, email)
		if gErr != nil {
			e.sink.Statusf(shellpack.StatusWarn, "SSH key not generated: %v", gErr)
		} else {
			e.sink.Statusf(shellpack.StatusOK, "New SSH key, public part at %s", pub)
			e.sink.Status(shellpack.StatusInfo, "Add the public key to your git host to use SSH remotes")
		}
	}

	e.setState(STATE_DONE)
	rec.Components = restored
	e.sink.Statusf(shellpack.StatusOK, "Restore of %s complete", name)
	e.sink.Status(shellpack.StatusInfo, "Restart your shell to pick up the changes")
	return nil
}

// shellChoices maps the shell components present in a manifest onto the
// login shells the operator can pick from.
func shellChoices(components []string) []string {
	var shells []string
	for _, name := range components {
		switch name {
		case shellpack.ComponentFish:
			shells = append(shells, "fish")
		case shellpack.ComponentBash:
			shells = append(shells, "bash")
		case shellpack.ComponentZsh:
			shells = append(shells, "zsh")
		}
	}
	return shells
}
