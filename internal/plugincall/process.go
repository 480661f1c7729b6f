// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package plugincall

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/samber/oops"
)

// EnvSocket names the environment variable that tells a plugin where the
// gateway socket is.
const EnvSocket = "PLUGINCALL_API_SOCKET"

// maxStderr bounds the plugin stderr kept for logging.
const maxStderr = 4096

// Process is a started plugin program.
type Process interface {
	// Stdin is closed by the caller after the request is written.
	Stdin() io.WriteCloser
	Stdout() io.Reader
	// Wait blocks until the program exits and reports its exit code. A
	// non-zero exit is not an error.
	Wait() (exitCode int, err error)
	// Stderr returns the start of whatever the program wrote to stderr.
	Stderr() string
	Kill() error
}

// ProcessFactory starts plugin programs.
type ProcessFactory interface {
	Start(ctx context.Context, path string, env []string) (Process, error)
}

// ExecFactory starts plugin programs as child processes with no arguments.
// The child is killed when ctx is done.
type ExecFactory struct {
	// WaitDelay bounds how long Wait waits for output pipes to close after
	// the child is killed. Zero uses a default of two seconds.
	WaitDelay time.Duration
}

// Start implements ProcessFactory.
func (f ExecFactory) Start(ctx context.Context, path string, env []string) (Process, error) {
	cmd := exec.CommandContext(ctx, path)
	cmd.Env = append(os.Environ(), env...)
	cmd.WaitDelay = f.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 2 * time.Second
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, oops.With("path", path).Wrapf(err, "open plugin stdin")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, oops.With("path", path).Wrapf(err, "open plugin stdout")
	}
	stderr := &prefixBuffer{limit: maxStderr}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, oops.With("path", path).Wrapf(err, "start plugin")
	}
	return &execProcess{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.Reader
	stderr *prefixBuffer
}

func (p *execProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *execProcess) Stdout() io.Reader     { return p.stdout }
func (p *execProcess) Stderr() string        { return p.stderr.String() }

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &exitErr) && exitErr.Exited():
		return exitErr.ExitCode(), nil
	default:
		return -1, oops.With("pid", p.cmd.Process.Pid).Wrapf(err, "wait for plugin")
	}
}

func (p *execProcess) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return oops.With("pid", p.cmd.Process.Pid).Wrapf(err, "kill plugin")
	}
	return nil
}

// prefixBuffer keeps the first limit bytes written to it and discards the rest.
type prefixBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *prefixBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if room := b.limit - len(b.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		b.buf = append(b.buf, p[:room]...)
	}
	return len(p), nil
}

func (b *prefixBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return string(b.buf)
}
