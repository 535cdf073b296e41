// Package main provides the CLI entry point for poke, a personal assistant
// orchestrator that runs one interaction agent and a roster of execution
// agents against a single LLM provider.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/haasonsaas/nexus/internal/observability"
	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	handler := observability.NewRedactingHandler(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached. This
// is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "poke",
		Short: "poke - a personal assistant orchestrator",
		Long: `poke runs an interaction agent that talks to a user, dispatches work to
named execution agents, and fires scheduled triggers on their behalf.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildRosterCmd(),
		buildLogCmd(),
	)
	return rootCmd
}
