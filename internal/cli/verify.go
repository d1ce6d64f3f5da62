package cli

import (
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check whether the teardown is complete",
	Long: `Re-scans the provider and the state manifest and classifies the result.
Exit code 0 means clean, 1 means live resources remain, 2 means only
manifest bookkeeping is left.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tk, err := newToolkit(ctx, false)
	if err != nil {
		return err
	}

	rep, err := tk.reporter.Verify(ctx)
	if err != nil {
		return err
	}
	renderReport(rep)
	return exitFor(rep.Classification.ExitCode(), string(rep.Classification))
}
