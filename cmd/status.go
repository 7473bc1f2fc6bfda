package cmd

import (
	"context"
	"fmt"

	"gcefire/internal/config"
	"gcefire/internal/gce"
	"gcefire/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List instances in the configured project and zone",
	Long:  `Show the instances currently running in the target zone, the same view the instance cap check uses.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
		}

		ctx := context.Background()
		api, err := gce.NewClient(ctx, cfg.Project, cfg.CredentialsFile)
		if err != nil {
			logging.Logger().Fatal("Failed to create compute client", zap.Error(err))
		}

		instances, err := api.ListInstances(ctx, cfg.Zone)
		if err != nil {
			logging.Logger().Fatal("Failed to list instances", zap.Error(err))
		}

		if instances == nil {
			fmt.Printf("No instances in project %s zone %s\n", cfg.Project, cfg.Zone)
			return
		}

		fmt.Printf("Instances in project %s zone %s:\n", cfg.Project, cfg.Zone)
		for _, instance := range instances {
			fmt.Printf(" - %s (%s)\n", instance.Name, instance.Status)
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
