// Package coordinate drives the teardown state machine: pre-clearing known
// blockers, retrying the declarative manager's full destroy, falling back to
// per-kind targeted destruction, and escalating to the operator console when
// residuals survive both.
package coordinate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unwindhq/unwind/internal/cleanup"
	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/detect"
	"github.com/unwindhq/unwind/internal/inventory"
	"github.com/unwindhq/unwind/internal/logging"
	"github.com/unwindhq/unwind/internal/manifest"
	"github.com/unwindhq/unwind/internal/resource"
)

// State is a coordinator state-machine state.
type State string

const (
	StatePlanning        State = "Planning"
	StateFullDestroy     State = "FullDestroyAttempt"
	StateTargetedDestroy State = "TargetedDestroyAttempt"
	StateEscalated       State = "Escalated"
	StateVerified        State = "Verified"
)

// Coordinator owns one teardown run. It holds no state between runs; every
// decision is made from a fresh snapshot.
type Coordinator struct {
	scanner  *inventory.Scanner
	detector *detect.Detector
	executor *cleanup.Executor
	manager  *manifest.Manager
	policy   cloud.RetryPolicy
}

func NewCoordinator(scanner *inventory.Scanner, detector *detect.Detector, executor *cleanup.Executor, manager *manifest.Manager, policy cloud.RetryPolicy) *Coordinator {
	return &Coordinator{
		scanner:  scanner,
		detector: detector,
		executor: executor,
		manager:  manager,
		policy:   policy,
	}
}

// Run executes the state machine until Verified or Escalated. The returned
// snapshot is the final one taken; on Escalated it is the residual set the
// console should work from. A ProviderUnavailable aborts the whole run.
func (c *Coordinator) Run(ctx context.Context) (State, *resource.Snapshot, error) {
	log := logging.With("coordinator")

	log.Info("state transition", "state", string(StatePlanning))
	snap, err := c.scanner.Scan(ctx)
	if err != nil {
		return StatePlanning, nil, err
	}
	if snap.Empty() {
		log.Info("nothing to destroy", "state", string(StateVerified))
		return StateVerified, snap, nil
	}
	plan := PlanFor(snap)
	log.Info("destroy plan built", "kinds", len(plan.Kinds))

	snap, done, err := c.fullDestroy(ctx, snap)
	if err != nil {
		return StateFullDestroy, snap, err
	}
	if done {
		return StateVerified, snap, nil
	}

	snap, err = c.targetedDestroy(ctx, plan, snap)
	if err != nil {
		return StateTargetedDestroy, snap, err
	}
	if snap.Empty() {
		log.Info("state transition", "state", string(StateVerified))
		return StateVerified, snap, nil
	}

	log.Warn("state transition", "state", string(StateEscalated),
		"residual", len(snap.Residual()), "manifest", len(snap.Manifest))
	return StateEscalated, snap, nil
}

// fullDestroy attempts the manager's own destroy up to the attempt budget,
// pre-clearing known blockers before each attempt. Returns done=true only
// when a post-attempt scan comes back empty.
func (c *Coordinator) fullDestroy(ctx context.Context, snap *resource.Snapshot) (*resource.Snapshot, bool, error) {
	log := logging.With("coordinator")
	log.Info("state transition", "state", string(StateFullDestroy))

	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		fresh, err := c.prePass(ctx, snap)
		if err != nil {
			if fatal(err) {
				return snap, false, err
			}
			log.Warn("pre-destroy cleanup incomplete", "attempt", attempt+1, "error", err)
		}
		if fresh != nil {
			snap = fresh
		}

		destroyErr := c.manager.Destroy(ctx)
		if destroyErr == nil {
			after, err := c.rescan(ctx, snap)
			if err != nil {
				return snap, false, err
			}
			snap = after
			if snap.Empty() {
				return snap, true, nil
			}
			log.Warn("full destroy returned success but residuals remain",
				"attempt", attempt+1, "residual", len(snap.Residual()))
		} else {
			if fatal(destroyErr) {
				return snap, false, destroyErr
			}
			log.Warn("full destroy attempt failed", "attempt", attempt+1, "error", destroyErr)
		}

		if attempt < c.policy.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return snap, false, fmt.Errorf("destroy cancelled: %w", ctx.Err())
			case <-time.After(c.policy.Backoff(attempt)):
			}
		}
	}

	log.Warn("full destroy attempts exhausted", "attempts", c.policy.MaxAttempts)
	return snap, false, nil
}

// targetedDestroy walks the plan one kind at a time. A kind's failure is
// tolerated and the walk continues; no kind starts before the previous
// kind's pass has fully returned.
func (c *Coordinator) targetedDestroy(ctx context.Context, plan DestroyPlan, snap *resource.Snapshot) (*resource.Snapshot, error) {
	log := logging.With("coordinator")
	log.Info("state transition", "state", string(StateTargetedDestroy))

	fresh, err := c.prePass(ctx, snap)
	if err != nil {
		if fatal(err) {
			return snap, err
		}
		log.Warn("pre-destroy cleanup incomplete", "error", err)
	}
	if fresh != nil {
		snap = fresh
	}

	for _, kind := range plan.Kinds {
		addrs, err := c.manager.AddressesByKind(ctx, kind)
		if err != nil {
			if fatal(err) {
				return snap, err
			}
			log.Warn("reading manifest addresses failed", "kind", string(kind), "error", err)
			continue
		}
		if len(addrs) == 0 {
			continue
		}

		err = cloud.Retry(ctx, c.policy, func() error {
			return c.manager.DestroyTargets(ctx, addrs)
		})
		if err != nil {
			if fatal(err) {
				return snap, err
			}
			log.Warn("targeted destroy failed, continuing to next kind",
				"kind", string(kind), "targets", len(addrs), "error", err)
		} else {
			log.Info("targeted destroy complete", "kind", string(kind), "targets", len(addrs))
		}
	}

	return c.rescan(ctx, snap)
}

// prePass takes a fresh snapshot, detects blockers and applies the
// auto-cleanable actions, so a destroy attempt starts with known blockers
// cleared.
func (c *Coordinator) prePass(ctx context.Context, prev *resource.Snapshot) (*resource.Snapshot, error) {
	snap, err := c.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		c.scanner.Diff(prev, snap)
	}

	findings, detectErr := c.detector.Detect(ctx, snap)
	var errs []error
	if detectErr != nil {
		errs = append(errs, detectErr)
	}
	if findings != nil && len(findings.Actions) > 0 {
		_, execErr := c.executor.Run(ctx, findings.Actions)
		if execErr != nil {
			errs = append(errs, execErr)
		}
	}
	return snap, errors.Join(errs...)
}

func (c *Coordinator) rescan(ctx context.Context, prev *resource.Snapshot) (*resource.Snapshot, error) {
	snap, err := c.scanner.Scan(ctx)
	if err != nil {
		return prev, err
	}
	if prev != nil {
		c.scanner.Diff(prev, snap)
	}
	return snap, nil
}

// fatal reports errors that abort the whole run rather than one stage.
func fatal(err error) bool {
	return errors.Is(err, cloud.ErrProviderUnavailable)
}
