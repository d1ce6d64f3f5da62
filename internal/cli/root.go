// Package cli wires the teardown pipeline behind the unwind command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/unwindhq/unwind/internal/logging"
)

var (
	flagDeploymentTag string
	flagRegion        string
	flagChdir         string
	flagLockTable     string
	flagLogLevel      string
	flagMaxAttempts   int
	flagWorkers       int
	flagDryRun        bool
)

var rootCmd = &cobra.Command{
	Use:   "unwind",
	Short: "Tear down tagged cloud deployments completely",
	Long: `Unwind removes every resource of a deployed infrastructure collection,
including the implicit dependencies the declarative manager cannot see:
orphaned network interfaces, versioned bucket contents, load balancer
target registrations and cluster-owned services.

It reads the manager's state manifest and the live provider inventory on
every invocation and keeps no state of its own.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(flagLogLevel)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagDeploymentTag, "deployment-tag", os.Getenv("UNWIND_DEPLOYMENT_TAG"), "Deployment tag selecting the resources to tear down")
	pf.StringVar(&flagRegion, "region", os.Getenv("AWS_REGION"), "Provider region")
	pf.StringVar(&flagChdir, "chdir", ".", "Declarative manager working directory")
	pf.StringVar(&flagLockTable, "lock-table", os.Getenv("UNWIND_LOCK_TABLE"), "DynamoDB table guarding the state manifest")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.IntVar(&flagMaxAttempts, "max-attempts", 3, "Attempt budget for destroy attempts and cleanup actions")
	pf.IntVar(&flagWorkers, "workers", 4, "Parallel cleanup workers within one stage")
	pf.BoolVar(&flagDryRun, "dry-run", false, "Compute actions without executing any mutating call")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(manualCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)
}
