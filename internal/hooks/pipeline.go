package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/guard"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/logging"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/statedb"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/summarizer"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/transcript"
)

var hookLog = logging.ForComponent(logging.CompHook)

// StatusPublisher receives every status write. *status.Store implements it.
type StatusPublisher interface {
	Write(u status.Update)
}

// ConversationStore holds the rolling conversation windows.
// *statedb.StateDB implements it.
type ConversationStore interface {
	AppendPrompt(sessionID, cwd, prompt string, maxExchanges int) error
	Load(sessionID string) (*statedb.Conversation, error)
	CompleteLast(sessionID, assistant string) (bool, error)
	ImportLegacy(sessionID string, maxExchanges int) (int, error)
}

// Spawner hands a job to a worker that outlives the hook.
type Spawner interface {
	Spawn(job Job) error
}

// Runner produces a summary. *summarizer.Summarizer implements it.
type Runner interface {
	Run(ctx context.Context, req summarizer.Request) summarizer.Result
}

// Pipeline runs the hook entry points. Unset collaborators disable the
// steps that need them.
type Pipeline struct {
	Guard  guard.Guard
	Lookup func(string) (string, bool)

	Status        StatusPublisher
	Conversations ConversationStore
	Spawner       Spawner
	Summarizer    Runner

	// Context returns the project context section for a working directory.
	Context func(cwd string) string

	MaxExchanges int
	SlimSummary  bool
	RunID        string

	Now func() time.Time
	// Getwd supplies the directory used when a payload has no cwd.
	Getwd func() (string, error)
}

// resolveCwd fills in a missing payload cwd from the hook's own working
// directory, which Claude Code sets to the project root.
func (p *Pipeline) resolveCwd(pl *Payload) {
	if pl.Cwd != "" {
		return
	}
	getwd := p.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	if dir, err := getwd(); err == nil {
		pl.Cwd = dir
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Active reports whether the recursion marker is set, in which case every
// entry point must return without side effects.
func (p *Pipeline) Active() bool {
	lookup := p.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return p.Guard.Active(lookup)
}

// PromptSubmit records the prompt and marks the session working.
func (p *Pipeline) PromptSubmit(pl *Payload) error {
	if p.Active() {
		return nil
	}
	if pl == nil || pl.SessionID == "" {
		return errors.New("prompt-submit: session_id is required")
	}
	p.resolveCwd(pl)
	if pl.Cwd == "" {
		return errors.New("prompt-submit: cwd is unknown")
	}

	if pl.Prompt != "" && p.Conversations != nil {
		if n, err := p.Conversations.ImportLegacy(pl.SessionID, p.MaxExchanges); err != nil {
			hookLog.Warn("legacy_import_failed", slog.String("session", pl.SessionID), slog.String("error", err.Error()))
		} else if n > 0 {
			hookLog.Info("legacy_imported", slog.String("session", pl.SessionID), slog.Int("exchanges", n))
		}
		if err := p.Conversations.AppendPrompt(pl.SessionID, pl.Cwd, pl.Prompt, p.MaxExchanges); err != nil {
			hookLog.Warn("append_prompt_failed", slog.String("session", pl.SessionID), slog.String("error", err.Error()))
		}
	}

	p.Status.Write(status.Update{SessionID: pl.SessionID, Cwd: pl.Cwd, Status: status.Working})
	hookLog.Info("prompt_submitted",
		slog.String("session", pl.SessionID),
		slog.String("event", pl.HookEventName),
		slog.Int("prompt_chars", len(pl.Prompt)))
	return nil
}

// Stop marks the session waiting, then hands summarization to a detached
// worker and returns without waiting for it. When the worker cannot be
// started, the final write happens here with a placeholder summary.
func (p *Pipeline) Stop(pl *Payload) error {
	if p.Active() {
		return nil
	}
	if pl == nil || pl.SessionID == "" {
		return errors.New("stop: session_id is required")
	}
	p.resolveCwd(pl)
	if pl.Cwd == "" {
		return errors.New("stop: cwd is unknown")
	}

	stoppedAt := p.now()
	p.Status.Write(status.Update{SessionID: pl.SessionID, Cwd: pl.Cwd, Status: status.Waiting})

	job := Job{
		SessionID:      pl.SessionID,
		Cwd:            pl.Cwd,
		TranscriptPath: pl.TranscriptPath,
		StoppedAt:      stoppedAt,
		RunID:          p.RunID,
	}

	var err error
	if p.Spawner == nil {
		err = errors.New("no spawner configured")
	} else {
		err = p.Spawner.Spawn(job)
	}
	if err != nil {
		hookLog.Error("summary_spawn_failed", slog.String("session", pl.SessionID), slog.String("error", err.Error()))
		p.finish(job, summarizer.FailureOutcome(summarizer.FailureSpawn, -1))
		return nil
	}

	hookLog.Info("stop_handled", slog.String("session", pl.SessionID), slog.String("event", pl.HookEventName))
	return nil
}

// Background is the worker side of Stop. Whatever happens, including a
// panic, it ends with exactly one final waiting write for the job.
func (p *Pipeline) Background(ctx context.Context, job Job) (out summarizer.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			hookLog.Error("summary_worker_panic",
				slog.String("session", job.SessionID),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())))
			out = summarizer.FailureOutcome(summarizer.FailureInternal, -1)
		}
		p.finish(job, out)
	}()

	return p.summarize(ctx, job)
}

func (p *Pipeline) summarize(ctx context.Context, job Job) summarizer.Outcome {
	missing := func(reason string) summarizer.Outcome {
		hookLog.Info("summary_skipped", slog.String("session", job.SessionID), slog.String("reason", reason))
		return summarizer.FailureOutcome(summarizer.FailureMissingData, 0)
	}

	if p.Conversations == nil || p.Summarizer == nil {
		return missing("not configured")
	}

	conv, err := p.Conversations.Load(job.SessionID)
	if err != nil {
		return missing("no conversation: " + err.Error())
	}

	reply, err := transcript.LastAssistantText(job.TranscriptPath)
	if err != nil {
		hookLog.Warn("transcript_read_failed", slog.String("path", job.TranscriptPath), slog.String("error", err.Error()))
	}
	if reply == "" {
		return missing("no assistant reply")
	}

	if n := len(conv.Exchanges); n > 0 && conv.Exchanges[n-1].Pending {
		conv.Exchanges[n-1].Assistant = reply
		conv.Exchanges[n-1].Pending = false
		if _, err := p.Conversations.CompleteLast(job.SessionID, reply); err != nil {
			hookLog.Warn("complete_exchange_failed", slog.String("session", job.SessionID), slog.String("error", err.Error()))
		}
	}

	text := summarizer.ConversationText(conv)
	if text == "" {
		return missing("no complete exchanges")
	}

	cwd := job.Cwd
	if cwd == "" {
		cwd = conv.Cwd
	}
	var section string
	if p.Context != nil {
		section = p.Context(cwd)
	}

	res := p.Summarizer.Run(ctx, summarizer.Request{
		Conversation: text,
		Section:      section,
		Cwd:          cwd,
	})
	return res.Outcome()
}

// finish performs the final status write for a job.
func (p *Pipeline) finish(job Job, out summarizer.Outcome) {
	p.Status.Write(status.Update{
		SessionID: job.SessionID,
		Cwd:       job.Cwd,
		Status:    status.Waiting,
		Summary:   out.Summary,
		StartedAt: job.StoppedAt,
	})

	if p.SlimSummary && out.Summary != nil {
		if err := status.WriteSlimSummary(job.Cwd, *out.Summary); err != nil {
			hookLog.Warn("slim_summary_failed", slog.String("cwd", job.Cwd), slog.String("error", err.Error()))
		}
	}

	hookLog.Info("summary_finished",
		slog.String("session", job.SessionID),
		slog.String("failure", out.Failure.String()),
		slog.Bool("summary", out.Summary != nil))
}
