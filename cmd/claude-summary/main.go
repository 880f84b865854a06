package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/hooks"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "0.3.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printHelp(stdout)
		return 0
	}

	switch args[0] {
	// Hook entry points always exit 0 so the agent is never blocked.
	case "prompt-submit":
		handlePromptSubmit(stdin)
		return 0
	case "stop":
		handleStop(stdin)
		return 0
	case hooks.BackgroundCommand:
		handleSummarizeBg(args[1:])
		return 0

	case "hooks":
		return handleHooks(args[1:], stdout, stderr)
	case "status":
		return handleStatus(args[1:], stdout, stderr)
	case "watch":
		return handleWatch(args[1:], stdout, stderr)
	case "config":
		return handleConfig(args[1:], stdout, stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "claude-summary v%s\n", Version)
		return 0
	case "help", "--help", "-h":
		printHelp(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, "Run 'claude-summary help' for usage.")
		return 1
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, "claude-summary v%s\n", Version)
	fmt.Fprintln(w, "Publishes per-project working/waiting status and a two-line summary")
	fmt.Fprintln(w, "of each Claude Code session.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: claude-summary <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Hook commands (read the hook payload on stdin):")
	fmt.Fprintln(w, "  prompt-submit        UserPromptSubmit hook: record prompt, mark working")
	fmt.Fprintln(w, "  stop                 Stop hook: mark waiting, summarize in the background")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  hooks install        Add the hooks to Claude Code settings.json")
	fmt.Fprintln(w, "  hooks uninstall      Remove the hooks")
	fmt.Fprintln(w, "  hooks status         Show install state (--clean drops records older than 24h)")
	fmt.Fprintln(w, "  status [query]       List session status (--json for scripts)")
	fmt.Fprintln(w, "  watch                Live dashboard")
	fmt.Fprintln(w, "  config init          Write an example config.toml")
	fmt.Fprintln(w, "  config path          Print the config file path")
	fmt.Fprintln(w, "  version              Show version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  CLAUDE_SUMMARY_HOME      State directory (default ~/.claude-summary)")
	fmt.Fprintln(w, "  CLAUDE_SUMMARY_DEBUG     Write debug.log when set to 1")
	fmt.Fprintln(w, "  CLAUDE_SUMMARY_COLOR     truecolor, 256, 16 or none")
}

// initColorProfile picks the lipgloss color profile for the dashboard.
// CLAUDE_SUMMARY_COLOR overrides detection.
func initColorProfile() {
	switch strings.ToLower(os.Getenv("CLAUDE_SUMMARY_COLOR")) {
	case "truecolor", "true", "24bit":
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	case "256", "ansi256":
		lipgloss.SetColorProfile(termenv.ANSI256)
		return
	case "16", "ansi", "basic":
		lipgloss.SetColorProfile(termenv.ANSI)
		return
	case "none", "off", "ascii":
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	colorTerm := os.Getenv("COLORTERM")
	if colorTerm == "truecolor" || colorTerm == "24bit" {
		lipgloss.SetColorProfile(termenv.TrueColor)
		return
	}
	lipgloss.SetColorProfile(termenv.ANSI256)
}
