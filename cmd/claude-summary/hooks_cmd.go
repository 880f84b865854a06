package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/config"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/hooks"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/logging"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/statedb"
	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
)

// staleAge is how old a record must be before `hooks status --clean` drops it.
const staleAge = 24 * time.Hour

const hooksUsage = "Usage: claude-summary hooks <install|uninstall|status> [options]"

func handleHooks(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, hooksUsage)
		return 1
	}

	switch args[0] {
	case "install":
		return handleHooksInstall(args[1:], stdout, stderr)
	case "uninstall":
		return handleHooksUninstall(stdout, stderr)
	case "status":
		return handleHooksStatus(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown hooks subcommand: %s\n", args[0])
		fmt.Fprintln(stderr, hooksUsage)
		return 1
	}
}

func handleHooksInstall(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hooks install", flag.ContinueOnError)
	fs.SetOutput(stderr)
	absolute := fs.Bool("absolute", false, "Write the full path of this binary instead of relying on PATH")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	settings := hooks.Settings{ConfigDir: hooks.ClaudeConfigDir()}
	if *absolute {
		exe, err := os.Executable()
		if err != nil {
			fmt.Fprintf(stderr, "Error resolving executable: %v\n", err)
			return 1
		}
		settings.Binary = exe
	}

	installed, err := settings.Install()
	if err != nil {
		fmt.Fprintf(stderr, "Error installing hooks: %v\n", err)
		return 1
	}
	if installed {
		fmt.Fprintln(stdout, "Claude Code hooks installed successfully.")
		fmt.Fprintf(stdout, "Config: %s\n", settings.Path())
	} else {
		fmt.Fprintln(stdout, "Claude Code hooks are already installed.")
	}
	return 0
}

func handleHooksUninstall(stdout, stderr io.Writer) int {
	settings := hooks.Settings{ConfigDir: hooks.ClaudeConfigDir()}
	removed, err := settings.Uninstall()
	if err != nil {
		fmt.Fprintf(stderr, "Error removing hooks: %v\n", err)
		return 1
	}
	if removed {
		fmt.Fprintln(stdout, "Claude Code hooks removed successfully.")
	} else {
		fmt.Fprintln(stdout, "No claude-summary hooks found to remove.")
	}
	return 0
}

func handleHooksStatus(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("hooks status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	clean := fs.Bool("clean", false, "Remove status records and conversations older than 24h")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, _ := setup("")
	defer logging.Shutdown()

	settings := hooks.Settings{ConfigDir: hooks.ClaudeConfigDir()}
	if settings.Installed() {
		fmt.Fprintln(stdout, "Status: INSTALLED")
		fmt.Fprintf(stdout, "Config: %s\n", settings.Path())
	} else {
		fmt.Fprintln(stdout, "Status: NOT INSTALLED")
		fmt.Fprintln(stdout, "Run 'claude-summary hooks install' to install.")
	}

	store := status.NewStore(cfg.Status.Dir)
	db := openConversations()
	if db != nil {
		defer db.Close()
	}

	if *clean {
		removed, err := store.CleanStale(staleAge)
		if err != nil {
			fmt.Fprintf(stderr, "Error cleaning status records: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Removed %d stale status records\n", removed)

		if db != nil {
			pruned, err := db.Prune(staleAge)
			if err != nil {
				fmt.Fprintf(stderr, "Error pruning conversations: %v\n", err)
				return 1
			}
			_ = db.SetMeta(statedb.MetaLastPrune, time.Now().UTC().Format(time.RFC3339))
			fmt.Fprintf(stdout, "Removed %d stale conversations\n", pruned)
		}
	}

	records, err := store.List()
	if err != nil {
		fmt.Fprintf(stderr, "Error listing status records: %v\n", err)
		return 1
	}
	working := 0
	for _, r := range records {
		if r.Status == status.Working {
			working++
		}
	}
	fmt.Fprintf(stdout, "Status records: %d (%d working) in %s\n", len(records), working, store.Dir())
	fmt.Fprintf(stdout, "Database: %s\n", config.StateDBPath())
	if db != nil {
		if last, err := db.GetMeta(statedb.MetaLastPrune); err == nil && last != "" {
			fmt.Fprintf(stdout, "Last cleanup: %s\n", last)
		}
	}
	return 0
}
