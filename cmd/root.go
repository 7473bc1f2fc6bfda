package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gcefire",
	Short: "Run one-off jobs on ephemeral Compute Engine instances",
	Long: `gcefire provisions a fresh Compute Engine instance, injects a one-time
SSH key, runs a job script on it and guarantees the instance and the key
are destroyed afterwards, whether or not the script succeeded.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
