package system

import (
	"context"
	"errors"
	"strings"
	"time"
)

var errNotOnPath = errors.New("executable file not found in $PATH")

// fakeRunner scripts command results by their full argv string and
// records every invocation.
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
	return "", errNotOnPath
}
