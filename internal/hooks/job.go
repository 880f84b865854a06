package hooks

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/detach"
)

// BackgroundCommand is the hidden subcommand the detached worker runs.
const BackgroundCommand = "summarize-bg"

// Job is the hand-off from the Stop hook to the detached worker.
type Job struct {
	SessionID      string
	Cwd            string
	TranscriptPath string

	// StoppedAt is when the Stop hook fired.
	StoppedAt time.Time

	// RunID correlates the hook and worker log lines.
	RunID string
}

// Args encodes the job as command-line arguments, subcommand first.
func (j Job) Args() []string {
	return []string{
		BackgroundCommand,
		"--session", j.SessionID,
		"--cwd", j.Cwd,
		"--transcript", j.TranscriptPath,
		"--stopped", j.StoppedAt.UTC().Format(time.RFC3339Nano),
		"--run", j.RunID,
	}
}

// ParseJob decodes the arguments following BackgroundCommand.
func ParseJob(args []string) (Job, error) {
	fs := flag.NewFlagSet(BackgroundCommand, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var j Job
	var stopped string
	fs.StringVar(&j.SessionID, "session", "", "agent session id")
	fs.StringVar(&j.Cwd, "cwd", "", "working directory")
	fs.StringVar(&j.TranscriptPath, "transcript", "", "transcript path")
	fs.StringVar(&stopped, "stopped", "", "stop time (RFC3339)")
	fs.StringVar(&j.RunID, "run", "", "run id")

	if err := fs.Parse(args); err != nil {
		return Job{}, err
	}
	if j.SessionID == "" || j.Cwd == "" {
		return Job{}, errors.New("summarize-bg: --session and --cwd are required")
	}
	if stopped != "" {
		t, err := time.Parse(time.RFC3339Nano, stopped)
		if err != nil {
			return Job{}, fmt.Errorf("summarize-bg: bad --stopped: %w", err)
		}
		j.StoppedAt = t
	}
	return j, nil
}

// DetachSpawner re-executes the running binary as a detached worker.
type DetachSpawner struct {
	// Env is the worker's environment; nil means os.Environ().
	Env []string
}

// Spawn starts the worker and returns without waiting for it.
func (d DetachSpawner) Spawn(job Job) error {
	spec, err := detach.Self(job.Args()...)
	if err != nil {
		return err
	}
	if d.Env != nil {
		spec.Env = d.Env
	} else {
		spec.Env = os.Environ()
	}

	pid, err := detach.Spawn(spec)
	if err != nil {
		return err
	}
	hookLog.Debug("summary_worker_spawned",
		slog.Int("child_pid", pid),
		slog.String("session", job.SessionID))
	return nil
}
