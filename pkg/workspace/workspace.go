// Package workspace manages the per-run scratch directory everything
// else stages into. One process gets one workspace; the path carries
// the pid so concurrent runs on the same machine never collide.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Workspace struct {
	root string
}

// New builds a workspace rooted under parent (os.TempDir when empty).
// Nothing is created until Create is called.
func New(parent string) *Workspace {
	if parent == "" {
		parent = os.TempDir()
	}
	return &Workspace{root: filepath.Join(parent, fmt.Sprintf("shellpack_%d", os.Getpid()))}
}

func (w *Workspace) Root() string { return w.root }

func (w *Workspace) Create() error {
	return os.MkdirAll(w.root, 0o700)
}

// Staging returns the directory a backup's payload tree is assembled
// in, creating it if necessary.
func (w *Workspace) Staging(backup string) (string, error) {
	dir := filepath.Join(w.root, backup)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// Originals returns the directory restore saves about-to-be-replaced
// files into, so a failed run can put them back.
func (w *Workspace) Originals() (string, error) {
	dir := filepath.Join(w.root, "originals")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// CloneDir returns the directory remote repositories are checked out
// into during restore. Not created here; go-git insists on creating
// the target itself.
func (w *Workspace) CloneDir() string {
	return filepath.Join(w.root, "repo")
}

// Contains reports whether path sits inside the workspace root. Used
// to refuse writes that would escape the scratch area.
func (w *Workspace) Contains(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Remove deletes the workspace and everything staged inside it.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.root)
}
