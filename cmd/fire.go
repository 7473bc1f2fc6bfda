package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"gcefire/internal/config"
	"gcefire/internal/gce"
	"gcefire/internal/job"
	"gcefire/internal/logging"
	"gcefire/internal/orchestrator"
	"gcefire/internal/remote"

	"github.com/alitto/pond/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fireWait      bool
	fireRetryWait int
	fireMaxRetry  int
)

// fireCmd represents the fire command
var fireCmd = &cobra.Command{
	Use:   "fire [job file...]",
	Short: "Run job scripts on fresh ephemeral instances",
	Long: `Fire creates an instance per job file, runs the job script on it over
SSH and deletes the instance afterwards. Several job files run in parallel
up to max_workers; each job owns exactly one instance.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logging.Logger().Info("Loading configuration")
		cfg, err := config.Load()
		if err != nil {
			logging.Logger().Fatal("Failed to load configuration", zap.Error(err))
		}

		if fireRetryWait <= 0 {
			fireRetryWait = cfg.RetryWait
		}
		if fireMaxRetry <= 0 {
			fireMaxRetry = cfg.MaxRetry
		}

		ctx := context.Background()
		api, err := gce.NewClient(ctx, cfg.Project, cfg.CredentialsFile)
		if err != nil {
			logging.Logger().Fatal("Failed to create compute client", zap.Error(err))
		}

		if err := fireJobs(ctx, api, cfg, args); err != nil {
			logging.Logger().Fatal("fire failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(fireCmd)

	fireCmd.Flags().BoolVarP(&fireWait, "wait", "w", false, "Pause for confirmation before deleting each instance")
	fireCmd.Flags().IntVar(&fireRetryWait, "retry-wait", 0, "Seconds between SSH connection probes (default from config)")
	fireCmd.Flags().IntVar(&fireMaxRetry, "max-retry", 0, "Max SSH connection probes before giving up (default from config)")
}

func fireJobs(ctx context.Context, api gce.API, cfg *config.Config, jobFiles []string) error {
	executor := remote.NewExecutor(remote.NewSSHTransport(cfg.Username, logging.Logger()), logging.Logger())

	opts := orchestrator.Options{
		WaitForConfirmation: fireWait,
		RetryWait:           time.Duration(fireRetryWait) * time.Second,
		MaxRetry:            fireMaxRetry,
	}

	pool := pond.NewPool(cfg.MaxWorkers)
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for _, path := range jobFiles {
		group.SubmitErr(func() error {
			spec, err := job.Load(path)
			if err != nil {
				return err
			}

			// One orchestrator per job: each owns exactly one instance.
			orch := orchestrator.New(api, executor, promptConfirm, orchestrator.Config{
				Project:      cfg.Project,
				Zone:         cfg.Zone,
				ImageProject: cfg.ImageProject,
				Username:     cfg.Username,
				KeyDir:       cfg.KeyDir,
				MaxInstances: cfg.MaxInstances,
			}, logging.Logger())

			logging.Logger().Info("Firing job",
				zap.String("job", spec.Name),
				zap.String("file", path))
			output, err := orch.Fire(ctx, spec, opts)
			if err != nil {
				return fmt.Errorf("job %s: %w", spec.Name, err)
			}

			fmt.Printf("--- %s ---\n%s", spec.Name, output)
			return nil
		})
	}

	return group.Wait()
}

// promptConfirm blocks until the user presses Enter.
func promptConfirm(prompt string) error {
	fmt.Printf("%s [Enter] ", prompt)
	_, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return err
}
