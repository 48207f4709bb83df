package server

import (
	"context"
	"fmt"

	"github.com/mwantia/godeid/internal/agent"
	"github.com/spf13/cobra"

	config "github.com/mwantia/godeid/internal/config/server"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the GoDeid Agent",
		Long:  `Start the GoDeid Agent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			agent := agent.NewAgent(cfg)
			return agent.Serve(context.Background())
		},
	}

	return cmd
}
