package component

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/rollback"
)

type fakeRunner struct {
	paths   map[string]string
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		paths:   map[string]string{},
		outputs: map[string]string{},
		errs:    map[string]error{},
	}
}

func (f *fakeRunner) key(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

func (f *fakeRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	key := f.key(name, args...)
	f.calls = append(f.calls, key)
	return f.outputs[key], f.errs[key]
}

func (f *fakeRunner) RunInteractive(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	key := f.key(name, args...)
	f.calls = append(f.calls, key)
	return f.errs[key]
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if path, ok := f.paths[name]; ok {
		return path, nil
	}
	return "", errors.New("not found")
}

// fakePrompter answers Confirm from a scripted queue, falling back to
// the default when the queue runs dry.
type fakePrompter struct {
	answers []bool
	asked   []string
}

func (f *fakePrompter) Confirm(title string, def bool) (bool, error) {
	f.asked = append(f.asked, title)
	if len(f.answers) == 0 {
		return def, nil
	}
	answer := f.answers[0]
	f.answers = f.answers[1:]
	return answer, nil
}

func (f *fakePrompter) Input(title, placeholder, def string) (string, error) { return def, nil }

func (f *fakePrompter) Select(title string, options []string) (int, error) { return 0, nil }

type recordingSink struct {
	lines []string
}

func (r *recordingSink) Section(title string) {}

func (r *recordingSink) Status(kind shellpack.StatusKind, msg string) {
	r.lines = append(r.lines, msg)
}

func (r *recordingSink) Statusf(kind shellpack.StatusKind, format string, a ...any) {
	r.Status(kind, fmt.Sprintf(format, a...))
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEnv(t *testing.T, runner shellpack.Runner) *Env {
	t.Helper()
	if runner == nil {
		runner = newFakeRunner()
	}
	return &Env{
		Home:           t.TempDir(),
		Source:         shellpack.SourceInfo{OS: "linux", Arch: "amd64", PackageManager: "apt"},
		Runner:         runner,
		Log:            quietLogger(),
		Sink:           &recordingSink{},
		CmdTimeout:     time.Second,
		InstallTimeout: time.Second,
	}
}

// withRollback arms env for restore-side tests.
func withRollback(t *testing.T, env *Env) *rollback.Stack {
	t.Helper()
	stack := rollback.New(quietLogger())
	env.Rollback = stack
	env.Originals = t.TempDir()
	return stack
}

func writeHome(t *testing.T, env *Env, rel, contents string) string {
	t.Helper()
	path := filepath.Join(env.Home, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
