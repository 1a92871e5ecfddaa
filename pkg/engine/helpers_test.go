package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/ledger"
	"github.com/moxforge/shellpack/pkg/workspace"
)

// fakeRunner resolves PATH lookups from a fixed table and records every
// command without executing anything.
type fakeRunner struct {
	paths   map[string]string
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (r *fakeRunner) key(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (r *fakeRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	k := r.key(name, args)
	r.calls = append(r.calls, k)
	if err, ok := r.errs[k]; ok {
		return "", err
	}
	return r.outputs[k], nil
}

func (r *fakeRunner) RunInteractive(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	k := r.key(name, args)
	r.calls = append(r.calls, k)
	return r.errs[k]
}

func (r *fakeRunner) LookPath(name string) (string, error) {
	if p, ok := r.paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%s not on PATH", name)
}

// fakePrompter pops queued answers in call order and falls back to the
// prompt's default once a queue runs dry. onPrompt fires before every
// confirm, which lets a test cancel the run mid-pipeline.
type fakePrompter struct {
	confirms []bool
	selects  []int
	inputs   []string
	asked    []string
	onPrompt func(title string)
}

func (p *fakePrompter) Confirm(title string, def bool) (bool, error) {
	p.asked = append(p.asked, title)
	if p.onPrompt != nil {
		p.onPrompt(title)
	}
	if len(p.confirms) == 0 {
		return def, nil
	}
	answer := p.confirms[0]
	p.confirms = p.confirms[1:]
	return answer, nil
}

func (p *fakePrompter) Input(title, placeholder, def string) (string, error) {
	p.asked = append(p.asked, title)
	if len(p.inputs) == 0 {
		return def, nil
	}
	answer := p.inputs[0]
	p.inputs = p.inputs[1:]
	return answer, nil
}

func (p *fakePrompter) Select(title string, options []string) (int, error) {
	p.asked = append(p.asked, title)
	if len(p.selects) == 0 {
		return 0, nil
	}
	answer := p.selects[0]
	p.selects = p.selects[1:]
	return answer, nil
}

type recordingSink struct {
	lines []string
}

func (s *recordingSink) Section(title string) { s.lines = append(s.lines, "== "+title) }
func (s *recordingSink) Status(kind shellpack.StatusKind, msg string) {
	s.lines = append(s.lines, msg)
}
func (s *recordingSink) Statusf(kind shellpack.StatusKind, format string, a ...any) {
	s.Status(kind, fmt.Sprintf(format, a...))
}

// fakeTransport serves a prepared backup directory and records publishes.
type fakeTransport struct {
	catalog    []string
	backupDir  string
	publishErr error
	published  []string
	fetched    []string
}

func (f *fakeTransport) Publish(ctx context.Context, remoteURL, cloneDir, stagedTree, message string) error {
	f.published = append(f.published, message)
	return f.publishErr
}

func (f *fakeTransport) FetchCatalog(ctx context.Context, remoteURL string) ([]string, error) {
	return f.catalog, nil
}

func (f *fakeTransport) FetchBackup(ctx context.Context, remoteURL, name, dest string) (string, error) {
	f.fetched = append(f.fetched, name)
	return f.backupDir, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// hostPaths resolves the tools detection and the restore dependency gate
// probe for, whichever OS the test host is. Nothing is ever executed.
func hostPaths() map[string]string {
	return map[string]string{
		"bash":       "/bin/bash",
		"brew":       "/opt/homebrew/bin/brew",
		"apt":        "/usr/bin/apt",
		"apt-get":    "/usr/bin/apt-get",
		"chsh":       "/usr/bin/chsh",
		"ssh-keygen": "/usr/bin/ssh-keygen",
	}
}

func newTestEngine(t *testing.T, cfg *shellpack.Config, runner *fakeRunner, prompter *fakePrompter,
	tr Transport, history *ledger.Ledger) (*Engine, *workspace.Workspace, *recordingSink) {
	t.Helper()
	ws := workspace.New(t.TempDir())
	require.NoError(t, ws.Create())
	sink := &recordingSink{}
	return New(cfg, quietLogger(), sink, prompter, runner, tr, ws, history), ws, sink
}
