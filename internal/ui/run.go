package ui

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
)

// Options configures Run.
type Options struct {
	// Theme is "dark", "light" or "system".
	Theme string

	// AltScreen takes over the whole terminal.
	AltScreen bool
}

// Run shows the dashboard until the user quits or ctx is cancelled.
func Run(ctx context.Context, store *status.Store, opts Options) error {
	InitTheme(ResolveTheme(opts.Theme))

	feed, err := NewFeed(store)
	if err != nil {
		return fmt.Errorf("watch %s: %w", store.Dir(), err)
	}
	defer feed.Close()

	var themes <-chan bool
	if opts.Theme == "system" {
		tw := NewThemeWatcher(ctx)
		defer tw.Close()
		themes = tw.ChangeChannel()
	}

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}

	uiLog.Info("dashboard_started", slog.String("dir", store.Dir()), slog.String("theme", string(GetCurrentTheme())))
	_, err = tea.NewProgram(NewDashboard(feed.Changes(), themes), progOpts...).Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
