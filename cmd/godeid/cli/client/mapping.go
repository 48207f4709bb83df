package client

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mwantia/godeid/internal/agent"
	config "github.com/mwantia/godeid/internal/config/server"
	"github.com/mwantia/godeid/pkg/db/models"
	"github.com/mwantia/godeid/pkg/db/store"
	"github.com/mwantia/godeid/pkg/log"
)

func NewMappingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Manage pseudonymization mappings",
		Long:  "Inspect, remove or purge the persisted real-to-proxy identifier mappings.",
	}

	cmd.AddCommand(NewMappingGetCommand())
	cmd.AddCommand(NewMappingRemoveCommand())
	cmd.AddCommand(NewMappingPurgeCommand())

	return cmd
}

func NewMappingGetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <proxy-sop-instance-uid>",
		Short: "Show the mapping of a proxy SOP instance UID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, mappings store.MappingStore) error {
				mapping, err := mappings.GetByInstance(ctx, args[0])
				if err != nil {
					return err
				}
				if mapping == nil {
					return fmt.Errorf("no mapping found for '%s'", args[0])
				}

				data, err := yaml.Marshal(mapping)
				if err != nil {
					return err
				}
				fmt.Print(string(data))
				return nil
			})
		},
	}

	return cmd
}

func NewMappingRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a mapping record by its ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, mappings store.MappingStore) error {
				removed, err := mappings.Remove(ctx, &models.ExecutionMapping{ID: args[0]})
				if err != nil {
					return err
				}
				fmt.Printf("Removed mapping %s (proxy SOP instance UID %s)\n", removed.ID, removed.SopInstanceUID)
				return nil
			})
		},
	}

	return cmd
}

func NewMappingPurgeCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete mapping records older than the retention window",
		Long: `Delete mapping records older than the retention window.

The sqlite backend has no native expiry, so this command (or an equivalent
scheduled job) is responsible for enforcing retention. The redis backend
expires records natively and purges nothing here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, mappings store.MappingStore) error {
				purged, err := mappings.Purge(ctx, time.Now().UTC().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Printf("Purged %d mapping records\n", purged)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "minimum age of records to delete")

	return cmd
}

func withStore(ctx context.Context, fn func(context.Context, store.MappingStore) error) error {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	storeCfg, err := agent.BuildStoreConfig(cfg.Database)
	if err != nil {
		return err
	}

	mappings, err := store.New(storeCfg, log.NewLoggerService("godeid/cli", cfg.Log))
	if err != nil {
		return err
	}
	if err := mappings.Connect(ctx); err != nil {
		return err
	}
	defer mappings.Close()

	if err := mappings.Migrate(ctx); err != nil {
		return err
	}

	return fn(ctx, mappings)
}
