package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Detect blockers and apply remedial cleanup actions",
	Long: `Runs the blocking-dependency detector and applies every auto-cleanable
remedial action: deleting orphaned interfaces, purging versioned bucket
contents, draining target groups and removing cluster-owned services.

Does not touch the state manifest; combine with 'destroy' for a full
teardown.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tk, err := newToolkit(ctx, false)
	if err != nil {
		return err
	}

	snap, err := tk.scanner.Scan(ctx)
	if err != nil {
		return err
	}

	findings, err := tk.detector.Detect(ctx, snap)
	if err != nil {
		return err
	}
	renderFindings(findings)
	if len(findings.Actions) == 0 {
		return nil
	}

	fmt.Printf("\nApplying %d cleanup action(s)...\n", len(findings.Actions))
	outcomes, err := tk.executor.Run(ctx, findings.Actions)
	renderOutcomes(outcomes)
	return err
}
