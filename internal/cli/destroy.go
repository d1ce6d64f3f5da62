package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/unwindhq/unwind/internal/coordinate"
	"github.com/unwindhq/unwind/internal/manual"
	"github.com/unwindhq/unwind/internal/report"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Run the full teardown state machine",
	Long: `Drives the teardown end to end: clears known blockers, retries the
declarative manager's full destroy, falls back to per-kind targeted
destruction, and drops into the interactive console if residual
resources survive both. Finishes with a verification pass whose
classification sets the exit code.`,
	RunE: runDestroyAll,
}

func runDestroyAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tk, err := newToolkit(ctx, !flagDryRun)
	if err != nil {
		return err
	}

	if flagDryRun {
		return dryRunDestroy(ctx, tk)
	}

	coordinator := coordinate.NewCoordinator(tk.scanner, tk.detector, tk.executor, tk.manager, tk.policy)
	state, snap, err := coordinator.Run(ctx)
	if err != nil {
		return err
	}

	if state == coordinate.StateEscalated {
		fmt.Printf("Automated teardown exhausted with %d residual resource(s); entering console.\n",
			len(snap.Residual()))
		console := manual.NewConsole(tk.scanner, tk.detector, tk.executor, tk.manager, os.Stdin, os.Stdout)
		if err := console.Run(ctx); err != nil {
			return err
		}
	}

	rep, err := tk.reporter.Verify(ctx)
	if err != nil {
		return err
	}
	renderReport(rep)
	return exitFor(rep.Classification.ExitCode(), string(rep.Classification))
}

// dryRunDestroy shows what a destroy would do without any mutating call:
// the blockers that would be cleared and the targeted-destroy order that
// would apply if the full destroy stalled.
func dryRunDestroy(ctx context.Context, tk *toolkit) error {
	snap, err := tk.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	renderSnapshot(snap)

	findings, err := tk.detector.Detect(ctx, snap)
	if err != nil {
		return err
	}
	renderFindings(findings)

	if !snap.Empty() {
		plan := coordinate.PlanFor(snap)
		fmt.Println("\nTargeted destroy order if the full destroy stalls:")
		for i, kind := range plan.Kinds {
			fmt.Printf("  %d. %s\n", i+1, kind)
		}
	}

	rep := report.Classify(snap)
	fmt.Println()
	renderReport(rep)
	return nil
}
