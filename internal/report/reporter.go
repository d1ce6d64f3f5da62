// Package report verifies teardown results: it re-scans and classifies the
// outcome into the classes that drive the process exit code.
package report

import (
	"context"

	"github.com/unwindhq/unwind/internal/inventory"
	"github.com/unwindhq/unwind/internal/logging"
	"github.com/unwindhq/unwind/internal/resource"
)

// Classification is the verification verdict for one deployment.
type Classification string

const (
	// Clean: zero live resources and zero manifest entries.
	Clean Classification = "Clean"
	// ManifestOnly: manifest entries remain but no live resources exist.
	// A manager bookkeeping anomaly, not leaked infrastructure.
	ManifestOnly Classification = "ManifestOnly"
	// ResourcesRemain: live resources still exist under the deployment tag.
	ResourcesRemain Classification = "ResourcesRemain"
)

// ExitCode maps a classification to the process exit code.
func (c Classification) ExitCode() int {
	switch c {
	case Clean:
		return 0
	case ManifestOnly:
		return 2
	default:
		return 1
	}
}

// Report is one verification pass.
type Report struct {
	Classification Classification           `json:"classification"`
	Residual       []resource.Resource      `json:"residual,omitempty"`
	Manifest       []resource.ManifestEntry `json:"manifest,omitempty"`
}

type Reporter struct {
	scanner *inventory.Scanner
}

func NewReporter(scanner *inventory.Scanner) *Reporter {
	return &Reporter{scanner: scanner}
}

// Verify re-scans and classifies. Resources already in Deleting state count
// as in-progress deletions, not residue.
func (r *Reporter) Verify(ctx context.Context) (*Report, error) {
	snap, err := r.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	report := Classify(snap)
	logging.With("reporter").Info("verification complete",
		"classification", string(report.Classification),
		"residual", len(report.Residual), "manifest", len(report.Manifest))
	return report, nil
}

// Classify derives the verdict from a snapshot.
func Classify(snap *resource.Snapshot) *Report {
	report := &Report{
		Residual: snap.Residual(),
		Manifest: snap.Manifest,
	}
	switch {
	case len(report.Residual) == 0 && len(report.Manifest) == 0:
		report.Classification = Clean
	case len(report.Residual) == 0:
		report.Classification = ManifestOnly
	default:
		report.Classification = ResourcesRemain
	}
	return report
}
