package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/unwindhq/unwind/internal/manual"
)

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Enter the interactive resolution console",
	Long: `Opens the operator console directly, without running the automated
teardown first. Every mutating action requires an explicit confirmation;
detaching resources from the state manifest requires a typed one.`,
	RunE: runManual,
}

func runManual(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tk, err := newToolkit(ctx, true)
	if err != nil {
		return err
	}

	console := manual.NewConsole(tk.scanner, tk.detector, tk.executor, tk.manager, os.Stdin, os.Stdout)
	if err := console.Run(ctx); err != nil {
		return err
	}

	rep, err := tk.reporter.Verify(ctx)
	if err != nil {
		return err
	}
	renderReport(rep)
	return exitFor(rep.Classification.ExitCode(), string(rep.Classification))
}
