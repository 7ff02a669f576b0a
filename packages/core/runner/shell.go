package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/abdul-hamid-achik/suitecast/packages/core/suite"
	"github.com/abdul-hamid-achik/suitecast/packages/logx"
)

// TestResult is the outcome of running one test's command
type TestResult struct {
	Doc      string
	Passed   bool
	ExitCode int
	Elapsed  time.Duration
	Output   string
	// Dirty is set when the command never produced an exit status of its
	// own: it could not start or was killed by the timeout.
	Dirty error
}

// executeShellCommand runs a test via sh -c
func (r *Runner) executeShellCommand(ctx context.Context, t *suite.Test) *TestResult {
	result := &TestResult{Doc: t.Doc}

	timeout := t.Timeout
	if timeout <= 0 {
		timeout = r.config.DefaultTimeout
	}
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.config.Shell, "-c", t.Run)
	cmd.Dir = t.Dir
	cmd.Env = os.Environ()
	for k, v := range r.config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	for k, v := range t.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	// children that outlive a killed shell would otherwise hold the pipes open
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	result.Elapsed = time.Since(start)
	result.Output = out.String()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		result.Dirty = fmt.Errorf("test timed out after %s", timeout)
		return result
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			result.Dirty = fmt.Errorf("test terminated: %v", err)
			return result
		}
	default:
		result.Dirty = err
		return result
	}

	result.Passed = result.ExitCode == t.ExpectCode

	if result.Output != "" {
		logx.WithComponent("runner").
			WithField("test", t.Doc).
			WithField("exit_code", result.ExitCode).
			Debug(result.Output)
	}

	return result
}
