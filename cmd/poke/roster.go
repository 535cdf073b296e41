package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/roster"
)

func buildRosterCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Inspect and prune the execution agent roster",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to poke.yaml (default: "+defaultConfigPath+")")

	cmd.AddCommand(buildRosterListCmd(&configPath), buildRosterRemoveCmd(&configPath), buildRosterPruneCmd(&configPath))
	return cmd
}

func openRoster(configPath string) (*roster.Roster, error) {
	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return roster.Open(cfg.Roster.Path)
}

func buildRosterListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known execution agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRoster(*configPath)
			if err != nil {
				return err
			}
			for _, name := range r.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func buildRosterRemoveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <agent-name>",
		Short: "Remove a single named execution agent from the roster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRoster(*configPath)
			if err != nil {
				return err
			}
			removed, err := r.Remove(args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was not on the roster\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func buildRosterPruneCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove duplicate agent names from the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRoster(*configPath)
			if err != nil {
				return err
			}
			removed, err := r.PruneDuplicates()
			if err != nil {
				return err
			}
			if len(removed) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no duplicates found")
				return nil
			}
			for _, name := range removed {
				fmt.Fprintf(cmd.OutOrStdout(), "pruned duplicate %s\n", name)
			}
			return nil
		},
	}
}
