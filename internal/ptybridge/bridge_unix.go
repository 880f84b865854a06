//go:build !windows

package ptybridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/logging"
)

var ptyLog = logging.ForComponent(logging.CompPTY)

// Run starts c on a new pseudo-terminal in its own session and waits for it
// to exit, the timeout to fire, or ctx to end. On exit the output read so
// far, plus whatever arrives within DrainGrace, is returned. On timeout the
// command's process group is killed and reaped, partial output is dropped,
// and ErrTimeout is returned. The terminal is closed on every path.
func (b Bridge) Run(ctx context.Context, c Command) (*Result, error) {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Env = c.Env
	cmd.Dir = c.Dir

	size := b.size()
	start := time.Now()

	ptmx, err := pty.StartWithAttrs(cmd,
		&pty.Winsize{Rows: size.Rows, Cols: size.Cols},
		&syscall.SysProcAttr{Setsid: true, Setctty: true},
	)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", c.Path, err)
	}
	defer ptmx.Close()

	pid := cmd.Process.Pid
	ptyLog.Debug("pty_started",
		slog.String("command", c.Path),
		slog.Int("child_pid", pid),
		slog.Duration("timeout", b.timeout()))

	var out lockedBuffer
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		// Linux reports EIO once the last subordinate descriptor closes.
		_, _ = io.Copy(&out, ptmx)
	}()

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- cmd.Wait()
	}()

	timer := time.NewTimer(b.timeout())
	defer timer.Stop()

	select {
	case waitErr := <-waitDone:
		drain := time.NewTimer(b.drainGrace())
		select {
		case <-readDone:
		case <-drain.C:
		}
		drain.Stop()

		res := &Result{
			ExitCode: exitCode(waitErr),
			Output:   out.Bytes(),
			Elapsed:  time.Since(start),
			PID:      pid,
		}
		ptyLog.Debug("pty_exited",
			slog.Int("child_pid", pid),
			slog.Int("exit_code", res.ExitCode),
			slog.Int("bytes", len(res.Output)),
			slog.Duration("elapsed", res.Elapsed))
		return res, nil

	case <-timer.C:
	case <-ctx.Done():
	}

	killGroup(pid)
	<-waitDone

	ptyLog.Warn("pty_timeout",
		slog.Int("child_pid", pid),
		slog.Duration("elapsed", time.Since(start)))
	return &Result{
		ExitCode: -1,
		Elapsed:  time.Since(start),
		PID:      pid,
		TimedOut: true,
	}, ErrTimeout
}

// killGroup SIGKILLs the session leader's process group, falling back to
// the leader alone.
func killGroup(pid int) {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
