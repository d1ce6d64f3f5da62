package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/unwindhq/unwind/internal/detect"
	"github.com/unwindhq/unwind/internal/report"
	"github.com/unwindhq/unwind/internal/resource"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// renderSnapshot prints the live inventory and the manifest's believed set.
func renderSnapshot(snap *resource.Snapshot) {
	fmt.Printf("Deployment %s: %d live resource(s), %d manifest entr(ies)\n\n",
		snap.DeploymentTag, len(snap.Live), len(snap.Manifest))

	if len(snap.Live) > 0 {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Kind", "ID", "Status", "Parents"})
		for _, r := range snap.Live {
			status := string(r.Status)
			switch r.Status {
			case resource.StatusActive:
				status = red(status)
			case resource.StatusDeleting:
				status = yellow(status)
			}
			parents := ""
			if len(r.ParentIDs) > 0 {
				parents = r.ParentIDs[0]
			}
			table.Append([]string{string(r.Kind), r.ID, status, parents})
		}
		table.Render()
	}

	if len(snap.Manifest) > 0 {
		fmt.Println("\nState manifest:")
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Address", "Kind", "ID"})
		for _, e := range snap.Manifest {
			table.Append([]string{e.Address, string(e.Kind), e.ID})
		}
		table.Render()
	}
}

// renderFindings prints blocking edges and the planned remedial actions.
func renderFindings(findings *detect.Findings) {
	if len(findings.Edges) == 0 {
		fmt.Println(green("No blocking dependencies detected."))
		return
	}

	fmt.Printf("%d blocking dependenc(ies):\n", len(findings.Edges))
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Blocker", "Blocks", "Relation", "Auto-cleanable"})
	for _, e := range findings.Edges {
		auto := green("yes")
		if !e.AutoCleanable() {
			auto = red("no")
		}
		table.Append([]string{e.Blocker.Addr(), e.Blocked.Addr(), string(e.Kind), auto})
	}
	table.Render()

	if len(findings.Actions) > 0 {
		fmt.Printf("\n%d remedial action(s):\n", len(findings.Actions))
		for _, a := range findings.Actions {
			fmt.Printf("  %s %s\n", a.Operation, a.Target.Addr())
		}
	}
}

// renderOutcomes prints per-action cleanup results with remedial commands
// for the failures.
func renderOutcomes(outcomes []resource.ActionOutcome) {
	for _, o := range outcomes {
		label := green(string(o.Result))
		switch o.Result {
		case resource.ResultBlocked:
			label = yellow(string(o.Result))
		case resource.ResultPermissionDenied:
			label = red(string(o.Result))
		}
		fmt.Printf("  %s %s: %s\n", o.Action.Operation, o.Action.Target.Addr(), label)
		if o.Err != nil && o.Remedy != "" {
			fmt.Printf("    run manually: %s\n", o.Remedy)
		}
	}
}

// renderReport prints the verification verdict and any residuals.
func renderReport(rep *report.Report) {
	switch rep.Classification {
	case report.Clean:
		fmt.Println(green("Clean: no live resources, empty manifest."))
	case report.ManifestOnly:
		fmt.Println(yellow("ManifestOnly: manifest entries remain but no live resources exist."))
		for _, e := range rep.Manifest {
			fmt.Printf("  %s\n", e.Address)
		}
	case report.ResourcesRemain:
		fmt.Println(red("ResourcesRemain: live resources still exist."))
		for _, r := range rep.Residual {
			fmt.Printf("  %s\n", r.Addr())
		}
	}
}
