// Package manual implements the operator console: the interactive last
// resort for resources that survived automated teardown. Every mutating
// action is gated behind an explicit confirmation, and detaching resources
// from the state manifest takes a stronger, typed confirmation since it
// creates a permanent discrepancy only manual provider cleanup can resolve.
package manual

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/unwindhq/unwind/internal/cleanup"
	"github.com/unwindhq/unwind/internal/detect"
	"github.com/unwindhq/unwind/internal/inventory"
	"github.com/unwindhq/unwind/internal/logging"
	"github.com/unwindhq/unwind/internal/manifest"
	"github.com/unwindhq/unwind/internal/resource"
)

// ErrAborted is returned when the operator quits the console with work
// still outstanding.
var ErrAborted = errors.New("aborted by operator")

type Console struct {
	scanner  *inventory.Scanner
	detector *detect.Detector
	executor *cleanup.Executor
	manager  *manifest.Manager

	in  *bufio.Scanner
	out io.Writer
}

func NewConsole(scanner *inventory.Scanner, detector *detect.Detector, executor *cleanup.Executor, manager *manifest.Manager, in io.Reader, out io.Writer) *Console {
	return &Console{
		scanner:  scanner,
		detector: detector,
		executor: executor,
		manager:  manager,
		in:       bufio.NewScanner(in),
		out:      out,
	}
}

// Run drives the interactive loop until the inventory is clean or the
// operator quits. Between confirmations is the only point an operator can
// halt the run; issued provider calls are never cancelled client-side.
func (c *Console) Run(ctx context.Context) error {
	snap, findings, err := c.refresh(ctx)
	if err != nil {
		return err
	}
	c.printInventory(snap)
	c.printEdges(findings)

	for {
		if snap.Empty() {
			fmt.Fprintln(c.out, "inventory is clean, nothing left to resolve")
			return nil
		}

		fmt.Fprint(c.out, "unwind> ")
		if !c.in.Scan() {
			return ErrAborted
		}
		fields := strings.Fields(c.in.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "inventory":
			c.printInventory(snap)
		case "edges":
			c.printEdges(findings)
		case "dump":
			c.dump(snap, findings)
		case "cleanup":
			if err := c.runCleanup(ctx, findings, args); err != nil {
				fmt.Fprintf(c.out, "cleanup failed: %s\n", err)
			}
			snap, findings, err = c.refresh(ctx)
			if err != nil {
				return err
			}
		case "destroy":
			if len(args) != 1 {
				fmt.Fprintln(c.out, "usage: destroy <kind>")
				continue
			}
			if err := c.runDestroy(ctx, resource.Kind(args[0])); err != nil {
				fmt.Fprintf(c.out, "destroy failed: %s\n", err)
			}
			snap, findings, err = c.refresh(ctx)
			if err != nil {
				return err
			}
		case "detach":
			if len(args) == 0 {
				fmt.Fprintln(c.out, "usage: detach <manifest-address> [...]")
				continue
			}
			if err := c.runDetach(ctx, snap, args); err != nil {
				fmt.Fprintf(c.out, "detach failed: %s\n", err)
			}
			snap, findings, err = c.refresh(ctx)
			if err != nil {
				return err
			}
		case "help":
			c.printHelp()
		case "exit", "quit":
			return ErrAborted
		default:
			fmt.Fprintf(c.out, "unknown command %q, try help\n", cmd)
		}
	}
}

func (c *Console) refresh(ctx context.Context) (*resource.Snapshot, *detect.Findings, error) {
	snap, err := c.scanner.Scan(ctx)
	if err != nil {
		return nil, nil, err
	}
	findings, err := c.detector.Detect(ctx, snap)
	if err != nil {
		fmt.Fprintf(c.out, "warning: some blocking probes failed: %s\n", err)
	}
	return snap, findings, nil
}

// confirm asks a yes/no question. Anything but y/yes is a no.
func (c *Console) confirm(prompt string) bool {
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	if !c.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(c.in.Text()))
	return answer == "y" || answer == "yes"
}

func (c *Console) runCleanup(ctx context.Context, findings *detect.Findings, args []string) error {
	actions := findings.Actions
	if len(args) == 1 {
		kind := resource.Kind(args[0])
		var filtered []resource.CleanupAction
		for _, a := range actions {
			if a.Target.Kind == kind {
				filtered = append(filtered, a)
			}
		}
		actions = filtered
	}
	if len(actions) == 0 {
		fmt.Fprintln(c.out, "no applicable cleanup actions")
		return nil
	}
	for _, a := range actions {
		fmt.Fprintf(c.out, "  %s %s\n", a.Operation, a.Target.Addr())
	}
	if !c.confirm(fmt.Sprintf("apply %d cleanup action(s)", len(actions))) {
		fmt.Fprintln(c.out, "skipped")
		return nil
	}
	outcomes, err := c.executor.Run(ctx, actions)
	for _, o := range outcomes {
		fmt.Fprintf(c.out, "  %s %s: %s\n", o.Action.Operation, o.Action.Target.Addr(), o.Result)
		if o.Remedy != "" {
			fmt.Fprintf(c.out, "    manual remedy: %s\n", o.Remedy)
		}
	}
	return err
}

func (c *Console) runDestroy(ctx context.Context, kind resource.Kind) error {
	addrs, err := c.manager.AddressesByKind(ctx, kind)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		fmt.Fprintf(c.out, "no manifest entries of kind %s\n", kind)
		return nil
	}
	for _, addr := range addrs {
		fmt.Fprintf(c.out, "  %s\n", addr)
	}
	if !c.confirm(fmt.Sprintf("destroy %d %s resource(s)", len(addrs), kind)) {
		fmt.Fprintln(c.out, "skipped")
		return nil
	}
	return c.manager.DestroyTargets(ctx, addrs)
}

// runDetach removes addresses from the state manifest without deleting the
// real resources, then releases them from the scanner so they stop counting
// as residue. Requires the operator to type the word "detach" back, and
// logs the resulting reconciliation debt with a timestamp.
func (c *Console) runDetach(ctx context.Context, snap *resource.Snapshot, addrs []string) error {
	entryFor := make(map[string]resource.ManifestEntry, len(snap.Manifest))
	for _, e := range snap.Manifest {
		entryFor[e.Address] = e
	}
	for _, addr := range addrs {
		if _, ok := entryFor[addr]; !ok {
			return fmt.Errorf("address %q is not in the state manifest", addr)
		}
	}

	fmt.Fprintln(c.out, "WARNING: detaching removes these resources from the state manifest")
	fmt.Fprintln(c.out, "without deleting them. They will keep existing, and keep costing,")
	fmt.Fprintln(c.out, "until removed by hand in the provider console.")
	for _, addr := range addrs {
		fmt.Fprintf(c.out, "  %s\n", addr)
	}
	fmt.Fprint(c.out, "type 'detach' to confirm: ")
	if !c.in.Scan() || strings.TrimSpace(c.in.Text()) != "detach" {
		fmt.Fprintln(c.out, "skipped")
		return nil
	}

	if err := c.manager.Detach(ctx, addrs); err != nil {
		return err
	}
	ids := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if id := entryFor[addr].ID; id != "" {
			ids = append(ids, id)
		}
	}
	c.scanner.Release(ids...)
	logging.With("console").Warn("resources detached from state manifest, reconciliation debt created",
		"time", time.Now().UTC().Format(time.RFC3339),
		"addresses", strings.Join(addrs, ","))
	fmt.Fprintf(c.out, "detached %d address(es) at %s\n", len(addrs), time.Now().UTC().Format(time.RFC3339))
	return nil
}

func (c *Console) printInventory(snap *resource.Snapshot) {
	fmt.Fprintf(c.out, "deployment %s: %d live resource(s), %d manifest entr(ies)\n",
		snap.DeploymentTag, len(snap.Live), len(snap.Manifest))
	if len(snap.Live) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.SetHeader([]string{"Kind", "ID", "Status"})
		for _, r := range snap.Live {
			table.Append([]string{string(r.Kind), r.ID, string(r.Status)})
		}
		table.Render()
	}
	if len(snap.Manifest) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.SetHeader([]string{"Address", "Kind", "ID"})
		for _, e := range snap.Manifest {
			table.Append([]string{e.Address, string(e.Kind), e.ID})
		}
		table.Render()
	}
}

func (c *Console) printEdges(findings *detect.Findings) {
	if findings == nil || len(findings.Edges) == 0 {
		fmt.Fprintln(c.out, "no blocking dependencies detected")
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Blocker", "Blocks", "Relation", "Auto"})
	for _, e := range findings.Edges {
		auto := "no"
		if e.AutoCleanable() {
			auto = "yes"
		}
		table.Append([]string{e.Blocker.Addr(), e.Blocked.Addr(), string(e.Kind), auto})
	}
	table.Render()
	fmt.Fprintf(c.out, "%d resource(s) held back by blockers\n", len(findings.Blocked()))
}

func (c *Console) dump(snap *resource.Snapshot, findings *detect.Findings) {
	payload := struct {
		Snapshot *resource.Snapshot `json:"snapshot"`
		Findings *detect.Findings   `json:"findings,omitempty"`
	}{snap, findings}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		fmt.Fprintf(c.out, "dump failed: %s\n", err)
	}
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `commands:
  inventory         show live resources and manifest entries
  edges             show blocking dependencies
  cleanup [kind]    apply remedial cleanup actions, optionally one kind
  destroy <kind>    targeted destroy of one kind's manifest entries
  detach <addr>...  remove addresses from the manifest WITHOUT deleting
  dump              JSON dump of the snapshot and findings
  exit              leave the console
`)
}
