package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	shellpack "github.com/moxforge/shellpack/pkg"
	"github.com/moxforge/shellpack/pkg/logging"
)

// ExecRunner runs external commands with a per-call timeout. Stdout is
// returned to the caller; stderr is streamed into the debug log and
// folded into the error on failure.
type ExecRunner struct {
	log *logrus.Logger
}

var _ shellpack.Runner = (*ExecRunner)(nil)

func NewRunner(log *logrus.Logger) *ExecRunner {
	return &ExecRunner{log: log}
}

func (r *ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.log.Debugf("exec: %s %s", name, strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	lw := logging.NewLineWriter(func(line string) {
		r.log.Debugf("%s: %s", name, line)
	})

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = io.MultiWriter(&stderr, lw)

	err := cmd.Run()
	lw.Flush()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%s timed out after %s", name, timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return strings.TrimSpace(stdout.String()), fmt.Errorf("%s: %s", name, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *ExecRunner) RunInteractive(ctx context.Context, timeout time.Duration, name string, args ...string) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.log.Debugf("exec (interactive): %s %s", name, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %s", name, timeout)
	}
	return err
}

func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
