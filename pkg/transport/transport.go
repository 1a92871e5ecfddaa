// Package transport moves backups between the local workspace and the
// remote git repository. Backups live under the backups/ prefix, one
// directory per backup; that layout is shared with every other tool that
// reads these repositories.
package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	gittransport "github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sirupsen/logrus"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/retry"
	"github.com/moxforge/shellpack/pkg/utils"
)

// branchCandidates are tried in order when pushing; the first branch that
// exists locally and is accepted by the remote wins.
var branchCandidates = []string{"main", "master"}

type Client struct {
	log        *logrus.Logger
	policy     retry.Policy
	netTimeout time.Duration
	dryRun     bool
}

func NewClient(log *logrus.Logger, policy retry.Policy, netTimeout time.Duration, dryRun bool) *Client {
	return &Client{log: log, policy: policy, netTimeout: netTimeout, dryRun: dryRun}
}

// attempt bounds one network call. Zero netTimeout leaves ctx alone.
func (c *Client) attempt(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.netTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.netTimeout)
}

// Publish pushes the staged backup tree (whose basename is the backup
// name) to remoteURL. The remote is cloned under cloneDir first; a remote
// with no commits gets a fresh init with origin wired up. Republishing an
// identical tree commits nothing and the push comes back already-up-to-
// date, so the operation is safe to repeat after a failed run.
func (c *Client) Publish(ctx context.Context, remoteURL, cloneDir, stagedTree, message string) error {
	backupName := filepath.Base(stagedTree)
	if c.dryRun {
		c.log.Infof("[dry run] would publish backup %q to %s", backupName, remoteURL)
		return nil
	}

	var repo *git.Repository
	err := c.policy.Do(ctx, c.log, "clone "+remoteURL, func(ctx context.Context) error {
		actx, cancel := c.attempt(ctx)
		defer cancel()

		os.RemoveAll(cloneDir)
		var err error
		repo, err = git.PlainCloneContext(actx, cloneDir, false, &git.CloneOptions{URL: remoteURL})
		if errors.Is(err, gittransport.ErrEmptyRemoteRepository) {
			c.log.Infof("remote %s has no commits yet, starting a fresh history", remoteURL)
			repo, err = c.initWithOrigin(cloneDir, remoteURL)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: cloning %s: %w", shellpack.ErrTransient, remoteURL, err)
	}

	target := filepath.Join(cloneDir, shellpack.BackupsPrefix, backupName)
	if err := os.RemoveAll(target); err != nil {
		return err
	}
	if err := utils.CopyTree(stagedTree, target); err != nil {
		return fmt.Errorf("copying backup into clone: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("staging backup files: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return err
	}
	if status.IsClean() {
		c.log.Infof("backup %q matches what the remote already has, nothing to commit", backupName)
	} else {
		if _, err := wt.Commit(message, &git.CommitOptions{
			Author: &object.Signature{Name: "shellpack", Email: "shellpack@localhost", When: time.Now()},
		}); err != nil {
			return fmt.Errorf("committing backup: %w", err)
		}
	}

	return c.push(ctx, repo, remoteURL)
}

func (c *Client) initWithOrigin(cloneDir, remoteURL string) (*git.Repository, error) {
	os.RemoveAll(cloneDir)
	repo, err := git.PlainInit(cloneDir, false)
	if err != nil {
		return nil, err
	}
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{remoteURL}})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (c *Client) push(ctx context.Context, repo *git.Repository, remoteURL string) error {
	var lastErr error
	for _, branch := range branchCandidates {
		ref := plumbing.NewBranchReferenceName(branch)
		if _, err := repo.Reference(ref, true); err != nil {
			continue
		}
		spec := gitconfig.RefSpec(fmt.Sprintf("%s:%s", ref, ref))
		lastErr = c.policy.Do(ctx, c.log, "push "+branch, func(ctx context.Context) error {
			actx, cancel := c.attempt(ctx)
			defer cancel()

			err := repo.PushContext(actx, &git.PushOptions{
				RemoteName: "origin",
				RefSpecs:   []gitconfig.RefSpec{spec},
			})
			if errors.Is(err, git.NoErrAlreadyUpToDate) {
				return nil
			}
			return err
		})
		if lastErr == nil {
			c.log.Infof("pushed %s to %s", branch, remoteURL)
			return nil
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no local branch to push")
	}
	return fmt.Errorf("%w: pushing to %s: %w", shellpack.ErrTransient, remoteURL, lastErr)
}

// FetchCatalog lists the backup names available at remoteURL, sorted. The
// clone never touches disk; a depth-1 history into an in-memory filesystem
// is enough to read directory names. An empty remote is an empty catalog,
// not an error.
func (c *Client) FetchCatalog(ctx context.Context, remoteURL string) ([]string, error) {
	if c.dryRun {
		c.log.Infof("[dry run] would list backups at %s", remoteURL)
		return nil, nil
	}

	var names []string
	err := c.policy.Do(ctx, c.log, "list "+remoteURL, func(ctx context.Context) error {
		actx, cancel := c.attempt(ctx)
		defer cancel()

		names = nil
		fs := memfs.New()
		_, err := git.CloneContext(actx, memory.NewStorage(), fs, &git.CloneOptions{
			URL:          remoteURL,
			Depth:        1,
			SingleBranch: true,
		})
		if errors.Is(err, gittransport.ErrEmptyRemoteRepository) {
			return nil
		}
		if err != nil {
			return err
		}

		entries, err := fs.ReadDir(shellpack.BackupsPrefix)
		if err != nil {
			// A repository without a backups/ directory has no backups.
			return nil
		}
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %w", shellpack.ErrTransient, remoteURL, err)
	}
	return names, nil
}

// FetchBackup clones remoteURL (depth 1) into dest and returns the path
// of the named backup inside it.
func (c *Client) FetchBackup(ctx context.Context, remoteURL, name, dest string) (string, error) {
	if c.dryRun {
		c.log.Infof("[dry run] would fetch backup %q from %s", name, remoteURL)
		return "", nil
	}

	err := c.policy.Do(ctx, c.log, "fetch "+remoteURL, func(ctx context.Context) error {
		actx, cancel := c.attempt(ctx)
		defer cancel()

		os.RemoveAll(dest)
		_, err := git.PlainCloneContext(actx, dest, false, &git.CloneOptions{
			URL:          remoteURL,
			Depth:        1,
			SingleBranch: true,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: fetching %s: %w", shellpack.ErrTransient, remoteURL, err)
	}

	dir := filepath.Join(dest, shellpack.BackupsPrefix, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: backup %q not found in repository", shellpack.ErrValidation, name)
	}
	return dir, nil
}
