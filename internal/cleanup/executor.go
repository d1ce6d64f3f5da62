// Package cleanup applies the detector's remedial actions: idempotent,
// bounded-concurrency operations that unblock resources the declarative
// manager cannot delete on its own.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/logging"
	"github.com/unwindhq/unwind/internal/resource"
)

const defaultWorkers = 4

// stageOrder fixes the sequence of operation stages. Independent targets of
// one operation run in parallel; stages never overlap.
var stageOrder = []resource.Op{
	resource.OpDeregisterTarget,
	resource.OpDeleteManagedService,
	resource.OpDetachInterface,
	resource.OpPurgeObjectVersions,
}

type Executor struct {
	api     cloud.API
	policy  cloud.RetryPolicy
	workers int
}

func NewExecutor(api cloud.API, policy cloud.RetryPolicy, workers int) *Executor {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Executor{api: api, policy: policy, workers: workers}
}

// Run applies every action, stage by stage. A PermissionDenied aborts only
// the affected action; all per-action failures are aggregated and returned
// once the whole pass is complete.
func (e *Executor) Run(ctx context.Context, actions []resource.CleanupAction) ([]resource.ActionOutcome, error) {
	byOp := make(map[resource.Op][]resource.CleanupAction)
	for _, action := range actions {
		byOp[action.Operation] = append(byOp[action.Operation], action)
	}

	var outcomes []resource.ActionOutcome
	var errs []error
	for _, op := range stageOrder {
		stage := byOp[op]
		if len(stage) == 0 {
			continue
		}
		results := e.runStage(ctx, stage)
		for _, outcome := range results {
			outcomes = append(outcomes, outcome)
			if outcome.Err != nil {
				errs = append(errs, fmt.Errorf("%s on %s: %w (remedy: %s)",
					outcome.Action.Operation, outcome.Action.Target.Addr(), outcome.Err, outcome.Remedy))
			}
		}
	}
	return outcomes, errors.Join(errs...)
}

// runStage applies one operation's actions with bounded concurrency.
func (e *Executor) runStage(ctx context.Context, actions []resource.CleanupAction) []resource.ActionOutcome {
	outcomes := make([]resource.ActionOutcome, len(actions))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for i, action := range actions {
		wg.Add(1)
		go func(i int, action resource.CleanupAction) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = e.apply(ctx, action)
		}(i, action)
	}
	wg.Wait()
	return outcomes
}

func (e *Executor) apply(ctx context.Context, action resource.CleanupAction) resource.ActionOutcome {
	log := logging.With("executor")

	var result resource.ActionResult
	err := cloud.Retry(ctx, e.policy, func() error {
		callCtx, cancel := cloud.WithCallTimeout(ctx)
		defer cancel()
		var applyErr error
		result, applyErr = e.applyOnce(callCtx, action)
		return applyErr
	})

	outcome := resource.ActionOutcome{Action: action, Result: result}
	if err != nil {
		outcome.Err = err
		outcome.Remedy = remedyFor(action)
		switch {
		case errors.Is(err, cloud.ErrPermissionDenied):
			outcome.Result = resource.ResultPermissionDenied
			log.Error("cleanup action denied",
				"op", string(action.Operation), "target", action.Target.Addr(),
				"remedy", outcome.Remedy, "error", err)
		default:
			outcome.Result = resource.ResultBlocked
			log.Warn("cleanup action failed",
				"op", string(action.Operation), "target", action.Target.Addr(), "error", err)
		}
		return outcome
	}

	log.Info("cleanup action applied",
		"op", string(action.Operation), "target", action.Target.Addr(), "result", string(outcome.Result))
	return outcome
}

// applyOnce performs one idempotent application: work done yields Success,
// a target that was already clean yields AlreadyClean, never an error.
func (e *Executor) applyOnce(ctx context.Context, action resource.CleanupAction) (resource.ActionResult, error) {
	switch action.Operation {
	case resource.OpDetachInterface:
		return e.detachInterface(ctx, action.Target)
	case resource.OpPurgeObjectVersions:
		deleted, err := e.api.PurgeBucket(ctx, action.Target.ID)
		if err != nil {
			return resource.ResultBlocked, err
		}
		if deleted == 0 {
			return resource.ResultAlreadyClean, nil
		}
		return resource.ResultSuccess, nil
	case resource.OpDeregisterTarget:
		return e.drainTargetGroup(ctx, action.Target)
	case resource.OpDeleteManagedService:
		return e.deleteManagedService(ctx, action.Target)
	default:
		return resource.ResultBlocked, fmt.Errorf("unknown cleanup operation %q", action.Operation)
	}
}

func (e *Executor) detachInterface(ctx context.Context, target resource.Resource) (resource.ActionResult, error) {
	if len(target.ParentIDs) > 0 {
		enis, err := e.api.ListInterfaces(ctx, target.ParentIDs[0])
		if err != nil {
			return resource.ResultBlocked, err
		}
		found := false
		for _, eni := range enis {
			if eni.ID == target.ID {
				found = true
				break
			}
		}
		if !found {
			return resource.ResultAlreadyClean, nil
		}
	}
	if err := e.api.DeleteInterface(ctx, target.ID); err != nil {
		return resource.ResultBlocked, err
	}
	return resource.ResultSuccess, nil
}

func (e *Executor) drainTargetGroup(ctx context.Context, group resource.Resource) (resource.ActionResult, error) {
	targets, err := e.api.ListTargets(ctx, group.ID)
	if err != nil {
		return resource.ResultBlocked, err
	}
	if len(targets) == 0 {
		return resource.ResultAlreadyClean, nil
	}
	if err := e.api.DeregisterTargets(ctx, group.ID, targets); err != nil {
		return resource.ResultBlocked, err
	}
	if err := e.api.WaitTargetsDrained(ctx, group.ID); err != nil {
		return resource.ResultBlocked, err
	}
	return resource.ResultSuccess, nil
}

func (e *Executor) deleteManagedService(ctx context.Context, lb resource.Resource) (resource.ActionResult, error) {
	if cluster := lb.Attr("ownedBy"); cluster != "" {
		owned, err := e.api.ListClusterLoadBalancers(ctx, cluster)
		if err != nil {
			return resource.ResultBlocked, err
		}
		found := false
		for _, candidate := range owned {
			if candidate.ID == lb.ID {
				found = true
				break
			}
		}
		if !found {
			return resource.ResultAlreadyClean, nil
		}
	}
	if err := e.api.DeleteLoadBalancer(ctx, lb.ID); err != nil {
		return resource.ResultBlocked, err
	}
	return resource.ResultSuccess, nil
}

// remedyFor renders the manual command an operator could run when
// automation cannot complete the action.
func remedyFor(action resource.CleanupAction) string {
	switch action.Operation {
	case resource.OpDetachInterface:
		return fmt.Sprintf("aws ec2 delete-network-interface --network-interface-id %s", action.Target.ID)
	case resource.OpPurgeObjectVersions:
		return fmt.Sprintf("aws s3api list-object-versions --bucket %s # then delete-objects per version", action.Target.ID)
	case resource.OpDeregisterTarget:
		return fmt.Sprintf("aws elbv2 deregister-targets --target-group-arn %s --targets <ids>", action.Target.ID)
	case resource.OpDeleteManagedService:
		return fmt.Sprintf("aws elbv2 delete-load-balancer --load-balancer-arn %s", action.Target.ID)
	}
	return ""
}
