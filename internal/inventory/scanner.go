// Package inventory implements the resource inventory scanner: a read-only
// snapshot of the live provider inventory plus the manifest's believed set.
package inventory

import (
	"context"
	"fmt"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/logging"
	"github.com/unwindhq/unwind/internal/manifest"
	"github.com/unwindhq/unwind/internal/resource"
)

// Scanner snapshots the deployment. It performs no retries itself; the
// caller decides what a ProviderUnavailable means for the run.
type Scanner struct {
	api      cloud.API
	manifest *manifest.Manager
	tag      string

	// gone holds ids that vanished in an earlier pass. A gone resource
	// reappearing is a provider-consistency anomaly, logged and excluded
	// from the snapshot rather than treated as blocking.
	gone map[string]bool

	// released holds ids an operator detached from tracking. They keep
	// existing in the provider, so unlike gone their presence is expected
	// and excluded silently.
	released map[string]bool
}

// NewScanner builds a scanner for one deployment tag.
func NewScanner(api cloud.API, mgr *manifest.Manager, deploymentTag string) *Scanner {
	return &Scanner{
		api:      api,
		manifest: mgr,
		tag:      deploymentTag,
		gone:     make(map[string]bool),
		released: make(map[string]bool),
	}
}

// Scan takes a fresh snapshot. Side-effect free apart from anomaly logging.
func (s *Scanner) Scan(ctx context.Context) (*resource.Snapshot, error) {
	live, err := s.api.ListResources(ctx, s.tag)
	if err != nil {
		return nil, fmt.Errorf("inventory scan for %q: %w", s.tag, err)
	}

	kept := live[:0]
	for _, r := range live {
		if s.released[r.ID] {
			continue
		}
		if s.gone[r.ID] {
			logging.With("scanner").Warn("provider consistency anomaly: resource reappeared after deletion",
				"id", r.ID, "kind", string(r.Kind))
			continue
		}
		kept = append(kept, r)
	}
	live = kept

	entries, err := s.manifest.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("manifest read for %q: %w", s.tag, err)
	}

	snap := &resource.Snapshot{
		DeploymentTag: s.tag,
		Live:          live,
		Manifest:      entries,
	}
	logging.With("scanner").Debug("scan complete",
		"live", len(snap.Live), "manifest", len(snap.Manifest))
	return snap, nil
}

// MarkGone records ids whose deletion has been observed, so a later pass can
// flag their reappearance.
func (s *Scanner) MarkGone(ids ...string) {
	for _, id := range ids {
		s.gone[id] = true
	}
}

// Release drops ids from the scanner's responsibility. Called after an
// operator detaches a resource from the manifest: the live resource stays
// behind deliberately and must no longer count as residue.
func (s *Scanner) Release(ids ...string) {
	for _, id := range ids {
		s.released[id] = true
		logging.With("scanner").Warn("resource released from tracking, left live in the provider", "id", id)
	}
}

// Diff marks as gone every resource present in prev but absent from cur.
func (s *Scanner) Diff(prev, cur *resource.Snapshot) {
	current := make(map[string]bool, len(cur.Live))
	for _, r := range cur.Live {
		current[r.ID] = true
	}
	for _, r := range prev.Live {
		if !current[r.ID] {
			s.MarkGone(r.ID)
		}
	}
}
