// Package detach starts processes that outlive their parent.
package detach

import (
	"fmt"
	"os"
	"os/exec"
)

// Spec describes the process to start.
type Spec struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// Self returns a Spec that re-executes the running binary with args.
func Self(args ...string) (Spec, error) {
	exe, err := os.Executable()
	if err != nil {
		return Spec{}, fmt.Errorf("resolve executable: %w", err)
	}
	return Spec{Path: exe, Args: args, Env: os.Environ()}, nil
}

// Spawn starts s in a new session with stdio on the null device and
// releases it. It returns as soon as the process exists; the caller never
// waits on it.
func Spawn(s Spec) (int, error) {
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer devNull.Close()

	cmd := exec.Command(s.Path, s.Args...)
	cmd.Env = s.Env
	cmd.Dir = s.Dir
	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawn %s: %w", s.Path, err)
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release pid %d: %w", pid, err)
	}
	return pid, nil
}
