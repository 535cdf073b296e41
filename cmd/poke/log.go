package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/config"
	"github.com/haasonsaas/nexus/internal/convlog"
	"github.com/haasonsaas/nexus/internal/interaction"
)

func buildLogCmd() *cobra.Command {
	var configPath string
	var agentName string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Tail or export a conversation log",
		Long: `log prints the interaction agent's conversation log, or, with --agent,
a single named execution agent's journal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(configPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if agentName != "" {
				journals := interaction.NewFileAgentJournals(fmt.Sprintf("%s/agents", cfg.ConvLog.Dir))
				journal, err := journals.Journal(agentName)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				transcript, err := journal.Transcript()
				if err != nil {
					return fmt.Errorf("read transcript: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), transcript)
				return nil
			}

			raw, err := convlog.New(fmt.Sprintf("%s/interaction.log", cfg.ConvLog.Dir))
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}
			transcript, err := raw.Transcript()
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), transcript)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to poke.yaml (default: "+defaultConfigPath+")")
	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "print a single execution agent's journal instead of the interaction log")
	return cmd
}
