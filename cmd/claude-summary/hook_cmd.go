package main

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/config"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/guard"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/hooks"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/logging"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/projctx"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/ptybridge"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/statedb"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/summarizer"
)

var cliLog = logging.ForComponent(logging.CompHook)

// newRunID returns a ULID shared by a hook and the worker it spawns.
func newRunID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// setup loads the config and starts logging for one invocation. An empty
// runID gets a fresh one.
func setup(runID string) (*config.Config, string) {
	cfg, err := config.Load()
	if runID == "" {
		runID = newRunID()
	}

	logging.Init(logging.Config{
		LogDir:     config.HomeDir(),
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		RunID:      runID,
		Debug:      cfg.Logging.Debug,
	})
	if err != nil {
		cliLog.Warn("config_load_failed", slog.String("error", err.Error()))
	}
	return cfg, runID
}

// hookGuardActive is checked before anything else, including config loading.
func hookGuardActive() bool {
	return guard.Default().Active(os.LookupEnv)
}

func newPipeline(cfg *config.Config, runID string) *hooks.Pipeline {
	g := guard.Default()
	p := &hooks.Pipeline{
		Guard:   g,
		Status:  status.NewStore(cfg.Status.Dir),
		Spawner: hooks.DetachSpawner{},
		Summarizer: summarizer.New(summarizer.Options{
			Command: cfg.Summarizer.Command,
			Model:   cfg.Summarizer.Model,
			Bridge: ptybridge.Bridge{
				Timeout:    cfg.Summarizer.Timeout(),
				DrainGrace: cfg.Summarizer.DrainGrace(),
			},
			Guard:        g,
			MaxChars:     cfg.Conversation.MaxChars,
			SectionChars: cfg.Context.SectionChars,
		}),
		MaxExchanges: cfg.Conversation.MaxExchanges,
		SlimSummary:  cfg.Status.GetSlimSummary(),
		RunID:        runID,
	}

	if cfg.Context.GetContextEnabled() {
		limits := projctx.Limits{
			ClaudeMD:    cfg.Context.ClaudeMDChars,
			PlanMD:      cfg.Context.PlanMDChars,
			CurrentTask: cfg.Context.CurrentTaskChars,
			Excerpt:     cfg.Context.ExcerptChars,
		}
		p.Context = func(cwd string) string {
			return projctx.Read(cwd, limits).Section()
		}
	}
	return p
}

// openConversations opens and migrates the conversation database. A nil
// result disables the conversation steps.
func openConversations() *statedb.StateDB {
	db, err := statedb.Open(config.StateDBPath())
	if err != nil {
		cliLog.Warn("statedb_open_failed", slog.String("error", err.Error()))
		return nil
	}
	if err := db.Migrate(); err != nil {
		cliLog.Warn("statedb_migrate_failed", slog.String("error", err.Error()))
		db.Close()
		return nil
	}
	return db
}

func readPayload(stdin io.Reader) *hooks.Payload {
	pl, err := hooks.DecodePayload(stdin)
	if err != nil {
		cliLog.Warn("payload_rejected", slog.String("error", err.Error()))
		return nil
	}
	return pl
}

// handlePromptSubmit is the UserPromptSubmit hook.
func handlePromptSubmit(stdin io.Reader) {
	if hookGuardActive() {
		return
	}
	cfg, runID := setup("")
	defer logging.Shutdown()

	pl := readPayload(stdin)
	if pl == nil {
		return
	}

	p := newPipeline(cfg, runID)
	if db := openConversations(); db != nil {
		defer db.Close()
		p.Conversations = db
	}
	if err := p.PromptSubmit(pl); err != nil {
		cliLog.Warn("prompt_submit_failed", slog.String("error", err.Error()))
	}
}

// handleStop is the Stop hook. It returns as soon as the worker is spawned.
func handleStop(stdin io.Reader) {
	if hookGuardActive() {
		return
	}
	cfg, runID := setup("")
	defer logging.Shutdown()

	pl := readPayload(stdin)
	if pl == nil {
		return
	}

	if err := newPipeline(cfg, runID).Stop(pl); err != nil {
		cliLog.Warn("stop_failed", slog.String("error", err.Error()))
	}
}

// handleSummarizeBg is the detached worker started by handleStop.
func handleSummarizeBg(args []string) {
	if hookGuardActive() {
		return
	}

	job, err := hooks.ParseJob(args)
	cfg, runID := setup(job.RunID)
	defer logging.Shutdown()
	if err != nil {
		cliLog.Error("summary_job_invalid", slog.String("error", err.Error()))
		return
	}

	// A termination signal cancels the command; the final write still happens.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer stop()

	p := newPipeline(cfg, runID)
	if db := openConversations(); db != nil {
		defer db.Close()
		p.Conversations = db
	}
	p.Background(ctx, job)
}
