package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/logging"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/ui"
)

const defaultTableWidth = 100

func handleStatus(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOutput := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: claude-summary status [--json] [query]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "List per-project status, newest first. query fuzzy-matches the")
		fmt.Fprintln(stderr, "working directory.")
		fmt.Fprintln(stderr)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, _ := setup("")
	defer logging.Shutdown()

	records, err := status.NewStore(cfg.Status.Dir).List()
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to list status records: %v\n", err)
		return 1
	}
	records = ui.Filter(records, strings.Join(fs.Args(), " "))

	if *jsonOutput {
		if records == nil {
			records = []*status.Record{}
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if len(records) == 0 {
		fmt.Fprintln(stdout, "No sessions.")
		return 0
	}

	ui.InitTheme(ui.ResolveTheme(cfg.UI.Theme))
	fmt.Fprintln(stdout, ui.RenderTable(records, terminalWidth(stdout), time.Now()))
	return 0
}

// terminalWidth returns the width of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return defaultTableWidth
}

func handleWatch(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintln(stderr, "Usage: claude-summary watch")
		return 1
	}
	f, ok := stdout.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		fmt.Fprintln(stderr, "Error: watch needs an interactive terminal. Use 'claude-summary status' instead.")
		return 1
	}

	cfg, _ := setup("")
	defer logging.Shutdown()
	initColorProfile()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	store := status.NewStore(cfg.Status.Dir)
	if err := ui.Run(ctx, store, ui.Options{Theme: cfg.UI.Theme, AltScreen: true}); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
