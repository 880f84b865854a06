// Package summarizer runs the external summary command under a
// pseudo-terminal and turns whatever happened into a status outcome.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/guard"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/logging"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/ptybridge"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/sanitize"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
)

var summaryLog = logging.ForComponent(logging.CompSummary)

// Failure classifies why no summary was produced.
type Failure int

const (
	FailureNone Failure = iota
	FailureMissingData
	FailureNotFound
	FailureExit
	FailureEmptyOutput
	FailureTimeout
	FailureSpawn
	FailureInternal
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureMissingData:
		return "missing_data"
	case FailureNotFound:
		return "not_found"
	case FailureExit:
		return "exit"
	case FailureEmptyOutput:
		return "empty_output"
	case FailureTimeout:
		return "timeout"
	case FailureSpawn:
		return "spawn"
	case FailureInternal:
		return "internal"
	}
	return fmt.Sprintf("failure(%d)", int(f))
}

// Options configures a Summarizer.
type Options struct {
	// Command and Model select the text-generation CLI.
	Command string
	Model   string

	Bridge ptybridge.Bridge

	// Guard is set in the command's environment so nested hooks stay inert.
	Guard guard.Guard

	// Env is the base environment; nil means os.Environ().
	Env []string

	MaxChars     int
	SectionChars int
}

// Request is one summary job.
type Request struct {
	Conversation string
	Section      string
	Cwd          string
}

// Result is what happened when the command ran.
type Result struct {
	ExitCode int
	Output   string
	Elapsed  time.Duration
	Failure  Failure
	Err      error
}

// Outcome is the status update a result maps to. A nil Summary keeps the
// stored summary; otherwise it replaces it.
type Outcome struct {
	Summary *status.Summary
	Failure Failure
}

// Summarizer invokes the external command.
type Summarizer struct {
	opts Options
}

// New returns a Summarizer with defaults applied.
func New(opts Options) *Summarizer {
	if opts.Command == "" {
		opts.Command = "claude"
	}
	if opts.Model == "" {
		opts.Model = "haiku"
	}
	return &Summarizer{opts: opts}
}

// Args returns the command-line arguments for prompt.
func (s *Summarizer) Args(prompt string) []string {
	return []string{
		"-p",
		"--model", s.opts.Model,
		"--tools", "",
		"--no-session-persistence",
		prompt,
	}
}

// Run builds the prompt, runs the command and classifies the result.
func (s *Summarizer) Run(ctx context.Context, req Request) Result {
	if req.Conversation == "" {
		return Result{ExitCode: -1, Failure: FailureMissingData}
	}

	prompt := BuildPrompt(req.Conversation, req.Section, s.opts.MaxChars, s.opts.SectionChars)

	env := s.opts.Env
	if env == nil {
		env = os.Environ()
	}

	summaryLog.Debug("summary_command_start",
		slog.String("command", s.opts.Command),
		slog.String("model", s.opts.Model),
		slog.Int("prompt_chars", len(prompt)))

	res, err := s.opts.Bridge.Run(ctx, ptybridge.Command{
		Path: s.opts.Command,
		Args: s.Args(prompt),
		Env:  s.opts.Guard.Mark(env),
		Dir:  req.Cwd,
	})

	out := Classify(res, err)
	summaryLog.Info("summary_command_done",
		slog.String("failure", out.Failure.String()),
		slog.Int("exit_code", out.ExitCode),
		slog.Int("output_chars", len(out.Output)),
		slog.Duration("elapsed", out.Elapsed))
	return out
}

// Classify maps a bridge run to a Result. Output is sanitized; exit code 0
// with non-empty output is the only success.
func Classify(res *ptybridge.Result, err error) Result {
	var r Result
	if res != nil {
		r.ExitCode = res.ExitCode
		r.Elapsed = res.Elapsed
	}

	switch {
	case errors.Is(err, ptybridge.ErrTimeout):
		r.Failure = FailureTimeout
		r.Err = err
		return r
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		r.ExitCode = -1
		r.Failure = FailureNotFound
		r.Err = err
		return r
	case err != nil:
		r.ExitCode = -1
		r.Failure = FailureSpawn
		r.Err = err
		return r
	case res == nil:
		r.ExitCode = -1
		r.Failure = FailureInternal
		return r
	}

	r.Output = sanitize.Clean(res.Output)
	switch {
	case res.ExitCode != 0:
		r.Failure = FailureExit
	case r.Output == "":
		r.Failure = FailureEmptyOutput
	}
	return r
}

// Outcome maps the result to the final status write.
func (r Result) Outcome() Outcome {
	switch r.Failure {
	case FailureNone:
		s := status.ParseSummary(r.Output)
		return Outcome{Summary: &s}
	case FailureMissingData:
		return Outcome{Failure: r.Failure}
	default:
		return FailureOutcome(r.Failure, r.ExitCode)
	}
}

// FailureOutcome returns the placeholder outcome for a failure class.
func FailureOutcome(f Failure, exitCode int) Outcome {
	if f == FailureMissingData {
		return Outcome{Failure: f}
	}
	return Outcome{Summary: Placeholder(Reason(f, exitCode)), Failure: f}
}

// Reason is the short text shown in a placeholder summary.
func Reason(f Failure, exitCode int) string {
	switch f {
	case FailureNotFound:
		return "summary command not found"
	case FailureExit:
		return fmt.Sprintf("summary command error: exit %d", exitCode)
	case FailureEmptyOutput:
		return "summary command returned nothing"
	case FailureTimeout:
		return "summary command timeout"
	case FailureSpawn:
		return "summary worker failed to start"
	default:
		return "summary failed"
	}
}

// Placeholder is the legacy two-line text stored when no summary could be
// produced. Both parsed fields stay empty.
func Placeholder(reason string) *status.Summary {
	return &status.Summary{
		Raw: fmt.Sprintf("%s: (see conversation)\n%s: (%s)", status.UserPrefix, status.AgentPrefix, reason),
	}
}
