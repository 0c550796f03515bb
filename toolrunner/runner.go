// Package toolrunner supervises an external executable that performs
// anonymisation on the worker's behalf (the XA-style backend). Grounded
// on cmd/lhsmd/agent.PluginMonitor.StartPlugin's exec.Cmd supervision —
// piping stdout/stderr through the logger and explicitly waiting on the
// child — generalised with a hard wall-clock timeout and exit-code/
// output-existence validation.
package toolrunner

import (
	"bytes"
	"fmt"
	"os/exec"
	"time"

	"github.com/intel-hpdd/logging/debug"
	"github.com/pkg/errors"

	"github.com/smi-extract/extract-worker/extract"
	"github.com/smi-extract/extract-worker/fsx"
)

// DefaultTimeout is the external tool's wall-clock budget when a
// worker's configuration does not override it.
const DefaultTimeout = 60 * time.Second

// Runner launches a configured executable with (src, dst) arguments and
// classifies its outcome.
type Runner struct {
	toolPath string
	timeout  time.Duration
	fs       fsx.FileSystem
}

// New returns a Runner for toolPath, which must already exist.
func New(fs fsx.FileSystem, toolPath string, timeout time.Duration) (*Runner, error) {
	if toolPath == "" {
		return nil, errors.New("toolrunner: toolPath is required")
	}
	if _, err := fs.Stat(toolPath); err != nil {
		return nil, errors.Wrapf(err, "toolrunner: tool %q is not accessible", toolPath)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{toolPath: toolPath, timeout: timeout, fs: fs}, nil
}

// Run spawns the tool with the given absolute source and destination
// paths and waits for it to finish, up to the configured timeout.
func (r *Runner) Run(absSrc, absDst string) (extract.Status, string) {
	cmd := exec.Command(r.toolPath, absSrc, absDst)

	var stderr bytes.Buffer
	cmd.Stdout = &lineLogger{prefix: "tool stdout: "}
	cmd.Stderr = io2(&lineLogger{prefix: "tool stderr: "}, &stderr)

	if err := cmd.Start(); err != nil {
		return extract.StatusErrorWontRetry, err.Error()
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-time.After(r.timeout):
		_ = cmd.Process.Kill()
		<-done
		return extract.StatusErrorWontRetry, fmt.Sprintf("anonymisation tool timed out after %ds", int(r.timeout/time.Second))
	case err := <-done:
		return r.classify(err, absDst, stderr.String())
	}
}

func (r *Runner) classify(waitErr error, absDst, stderrText string) (extract.Status, string) {
	if waitErr != nil {
		exitErr, ok := waitErr.(*exec.ExitError)
		if !ok {
			return extract.StatusErrorWontRetry, waitErr.Error()
		}
		code := exitErr.ExitCode()
		return extract.StatusErrorWontRetry, exitMessage(code, stderrText)
	}

	if _, err := r.fs.Stat(absDst); err != nil {
		return extract.StatusErrorWontRetry, missingOutputMessage(absDst)
	}

	return extract.StatusAnonymised, ""
}

func exitMessage(code int, stderrText string) string {
	return fmt.Sprintf("anonymisation tool exited with code %d. Error: %s", code, stderrText)
}

func missingOutputMessage(absDst string) string {
	return fmt.Sprintf("anonymisation tool completed but output file was not created: %s", absDst)
}

// lineLogger splits writes on newlines and logs each complete line at
// debug level, so a child process's chatty output doesn't collapse
// into one unreadable blob.
type lineLogger struct {
	prefix string
	buf    []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf = append(l.buf, p...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		debug.Printf("%s%s", l.prefix, l.buf[:i])
		l.buf = l.buf[i+1:]
	}
	return len(p), nil
}

// io2 fans out writes to both w1 (line-logged) and w2 (captured in
// full, for composing the failure message).
func io2(w1 *lineLogger, w2 *bytes.Buffer) *teeWriter {
	return &teeWriter{w1: w1, w2: w2}
}

type teeWriter struct {
	w1 *lineLogger
	w2 *bytes.Buffer
}

func (t *teeWriter) Write(p []byte) (int, error) {
	t.w2.Write(p)
	return t.w1.Write(p)
}
