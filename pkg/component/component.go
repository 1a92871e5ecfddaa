// Package component holds the catalog of backup components: what each
// one is, how to detect it, how it stages into a backup tree and how it
// restores out of one. The engine iterates the catalog; nothing in here
// branches on component names.
package component

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/rollback"
	"github.com/moxforge/shellpack/pkg/utils"
)

// Component is one catalog entry. Stage writes the component's payload
// under destDir (the staged backup root) and reports what it did;
// Restore applies the payload from srcDir (the fetched backup root)
// onto the environment.
type Component interface {
	Name() string
	Label() string
	// Sensitive components are removed from consideration before any
	// prompting when the backup is shareable.
	Sensitive() bool
	// Prompted components ask the operator; the rest are staged
	// whenever detected.
	Prompted() bool
	PromptDefault() bool
	Detect(env *Env) bool
	// EstimateKB sizes the component's source material for the
	// pre-flight summary. Zero when unknown.
	EstimateKB(env *Env) int
	Stage(ctx context.Context, env *Env, destDir string) (shellpack.ComponentEntry, error)
	Restore(ctx context.Context, env *Env, srcDir string) error
}

// Env is what components get to work with. Rollback and Originals are
// set only during restore; every restore-side write must go through
// PrepareWrite or PlaceFile so it lands on the undo stack.
type Env struct {
	Home   string
	Source shellpack.SourceInfo
	Runner shellpack.Runner
	Log    *logrus.Logger
	Sink   shellpack.StatusSink
	// CmdTimeout bounds quick queries; InstallTimeout bounds the slow
	// ones (conda env create and friends).
	CmdTimeout     time.Duration
	InstallTimeout time.Duration
	DryRun         bool

	Rollback  *rollback.Stack
	Originals string

	saved int
}

// Catalog returns every component in staging and manifest order.
func Catalog() []Component {
	return []Component{
		&fishComponent{},
		&bashComponent{},
		&zshComponent{},
		&packagesComponent{},
		&starshipComponent{},
		&gitConfigComponent{},
		&sshComponent{},
		&condaComponent{},
		&historyComponent{},
		&cloudComponent{},
	}
}

// PrepareWrite records the undo for an upcoming write to dest: park the
// current content if dest exists, otherwise schedule its removal. A nil
// rollback stack (backup staging) makes this a no-op.
func (e *Env) PrepareWrite(dest string) error {
	if e.Rollback == nil {
		return nil
	}
	info, err := os.Lstat(dest)
	switch {
	case err == nil && info.Mode().IsRegular():
		e.saved++
		parked := filepath.Join(e.Originals, fmt.Sprintf("%d_%s", e.saved, filepath.Base(dest)))
		if err := utils.CopyFile(dest, parked); err != nil {
			return fmt.Errorf("parking original %s: %w", dest, err)
		}
		e.Rollback.Record("restore original "+dest, func() error {
			return utils.CopyFile(parked, dest)
		})
	case err == nil:
		// Symlinks and other non-regular files are replaced without a
		// way back; removal is the best available undo.
		e.Rollback.Record("remove replaced "+dest, func() error {
			return os.Remove(dest)
		})
	case os.IsNotExist(err):
		e.Rollback.Record("remove "+dest, func() error {
			return os.Remove(dest)
		})
	default:
		return err
	}
	return nil
}

// PlaceFile copies src over dest with undo recorded.
func (e *Env) PlaceFile(src, dest string) error {
	if err := e.PrepareWrite(dest); err != nil {
		return err
	}
	return utils.CopyFile(src, dest)
}

// fileKB returns the size of path in whole kilobytes, minimum 1 for a
// non-empty existing file. Missing paths count zero.
func fileKB(path string) int {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	kb := int(info.Size() / 1024)
	if kb == 0 && info.Size() > 0 {
		kb = 1
	}
	return kb
}

func dirKB(path string) int {
	total, err := utils.TreeSize(path)
	if err != nil {
		return 0
	}
	kb := int(total / 1024)
	if kb == 0 && total > 0 {
		kb = 1
	}
	return kb
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
