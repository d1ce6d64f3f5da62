package cli

import (
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Print the live inventory and the state manifest",
	Long: `Scans the provider for resources carrying the deployment tag and reads
the declarative manager's state manifest. Read-only.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tk, err := newToolkit(ctx, false)
	if err != nil {
		return err
	}

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
	return nil
}
