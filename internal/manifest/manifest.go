// Package manifest drives the declarative manager (Terraform): reading its
// state manifest, running full and targeted destroys, and detaching
// resources from tracking. Every mutating invocation runs under the
// external manifest lock; there is no unlocked path.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"

	tfjson "github.com/hashicorp/terraform-json"

	"github.com/unwindhq/unwind/internal/logging"
	"github.com/unwindhq/unwind/internal/resource"
)

// Manager wraps one working directory of the declarative manager.
type Manager struct {
	dir    string
	runner Runner
	lock   *Lock
}

// NewManager builds a manager for the given working directory. lock may be
// nil only when every call is read-only (scan/verify).
func NewManager(dir string, runner Runner, lock *Lock) *Manager {
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &Manager{dir: dir, runner: runner, lock: lock}
}

// Entries reads the manifest and returns the manager's believed resource
// set, flattened across modules. Read-only.
func (m *Manager) Entries(ctx context.Context) ([]resource.ManifestEntry, error) {
	out, err := m.runner.Run(ctx, m.dir, "show", "-json")
	if err != nil {
		return nil, fmt.Errorf("failed to read state manifest: %w", err)
	}

	var state tfjson.State
	if err := json.Unmarshal(out, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state manifest: %w", err)
	}
	if state.Values == nil || state.Values.RootModule == nil {
		return nil, nil
	}
	return moduleEntries(state.Values.RootModule), nil
}

func moduleEntries(mod *tfjson.StateModule) []resource.ManifestEntry {
	var out []resource.ManifestEntry
	for _, res := range mod.Resources {
		if res.Mode != tfjson.ManagedResourceMode {
			continue
		}
		entry := resource.ManifestEntry{
			Address: res.Address,
			Type:    res.Type,
			Name:    res.Name,
			Kind:    KindFor(res.Type),
		}
		if id, ok := res.AttributeValues["id"].(string); ok {
			entry.ID = id
		}
		out = append(out, entry)
	}
	for _, child := range mod.ChildModules {
		out = append(out, moduleEntries(child)...)
	}
	return out
}

// AddressesByKind returns manifest addresses for one kind, for targeted
// destroys.
func (m *Manager) AddressesByKind(ctx context.Context, kind resource.Kind) ([]string, error) {
	entries, err := m.Entries(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Kind == kind {
			out = append(out, e.Address)
		}
	}
	return out, nil
}

// Destroy runs a full destroy under the manifest lock. The manager's own
// locking is disabled because the orchestrator already holds the lock for
// the whole attempt.
func (m *Manager) Destroy(ctx context.Context) error {
	return m.withLock(ctx, func() error {
		logging.With("manifest").Info("running full destroy", "dir", m.dir)
		_, err := m.runner.Run(ctx, m.dir, "destroy", "-auto-approve", "-input=false", "-lock=false")
		if err != nil {
			return fmt.Errorf("full destroy failed: %w", err)
		}
		return nil
	})
}

// DestroyTargets destroys only the given manifest addresses, under the lock.
func (m *Manager) DestroyTargets(ctx context.Context, addrs []string) error {
	if len(addrs) == 0 {
		return nil
	}
	return m.withLock(ctx, func() error {
		logging.With("manifest").Info("running targeted destroy", "targets", len(addrs))
		args := []string{"destroy", "-auto-approve", "-input=false", "-lock=false"}
		for _, addr := range addrs {
			args = append(args, "-target="+addr)
		}
		_, err := m.runner.Run(ctx, m.dir, args...)
		if err != nil {
			return fmt.Errorf("targeted destroy failed: %w", err)
		}
		return nil
	})
}

// Detach removes addresses from the manifest without deleting the real
// resources. The permanent discrepancy this creates is the caller's to log.
func (m *Manager) Detach(ctx context.Context, addrs []string) error {
	if len(addrs) == 0 {
		return nil
	}
	return m.withLock(ctx, func() error {
		args := append([]string{"state", "rm", "-lock=false"}, addrs...)
		_, err := m.runner.Run(ctx, m.dir, args...)
		if err != nil {
			return fmt.Errorf("detach from manifest failed: %w", err)
		}
		return nil
	})
}

func (m *Manager) withLock(ctx context.Context, fn func() error) error {
	if m.lock == nil {
		return fmt.Errorf("refusing to mutate manifest without a lock")
	}
	if err := m.lock.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		if err := m.lock.Release(context.WithoutCancel(ctx)); err != nil {
			logging.With("manifest").Error("failed to release manifest lock", "error", err)
		}
	}()
	return fn()
}
