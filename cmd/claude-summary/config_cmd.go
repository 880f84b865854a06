package main

import (
	"fmt"
	"io"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/config"
)

func handleConfig(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: claude-summary config <init|path>")
		return 1
	}

	switch args[0] {
	case "init":
		created, err := config.WriteExample()
		if err != nil {
			fmt.Fprintf(stderr, "Error writing config: %v\n", err)
			return 1
		}
		if created {
			fmt.Fprintf(stdout, "Wrote %s\n", config.Path())
		} else {
			fmt.Fprintf(stdout, "Config already exists: %s\n", config.Path())
		}
		return 0
	case "path":
		fmt.Fprintln(stdout, config.Path())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown config subcommand: %s\n", args[0])
		return 1
	}
}
