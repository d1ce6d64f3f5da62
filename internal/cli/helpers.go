package cli

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/unwindhq/unwind/internal/cleanup"
	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/detect"
	"github.com/unwindhq/unwind/internal/inventory"
	"github.com/unwindhq/unwind/internal/manifest"
	"github.com/unwindhq/unwind/internal/report"
	"github.com/unwindhq/unwind/providers/aws"
)

// toolkit is one invocation's wired pipeline.
type toolkit struct {
	api      cloud.API
	manager  *manifest.Manager
	scanner  *inventory.Scanner
	detector *detect.Detector
	executor *cleanup.Executor
	reporter *report.Reporter
	policy   cloud.RetryPolicy
}

// newToolkit builds the pipeline from the persistent flags. withLock decides
// whether manifest mutation is possible; read-only commands skip the lock so
// they work without a lock table.
func newToolkit(ctx context.Context, withLock bool) (*toolkit, error) {
	if flagDeploymentTag == "" {
		return nil, fmt.Errorf("a deployment tag is required (--deployment-tag or UNWIND_DEPLOYMENT_TAG)")
	}

	provider, err := aws.New(ctx, flagRegion)
	if err != nil {
		return nil, err
	}

	var api cloud.API = provider
	if flagDryRun {
		api = cloud.NewDryRun(provider)
	}

	var lock *manifest.Lock
	if withLock && !flagDryRun {
		if flagLockTable == "" {
			return nil, fmt.Errorf("a lock table is required for destructive commands (--lock-table or UNWIND_LOCK_TABLE)")
		}
		lockKey := flagDeploymentTag + "/terraform.tfstate"
		lock = manifest.NewLock(dynamodb.NewFromConfig(provider.Config()), flagLockTable, lockKey)
	}
	manager := manifest.NewManager(flagChdir, nil, lock)

	policy := cloud.DefaultRetryPolicy()
	if flagMaxAttempts > 0 {
		policy.MaxAttempts = flagMaxAttempts
	}

	scanner := inventory.NewScanner(api, manager, flagDeploymentTag)
	return &toolkit{
		api:      api,
		manager:  manager,
		scanner:  scanner,
		detector: detect.NewDetector(api),
		executor: cleanup.NewExecutor(api, policy, flagWorkers),
		reporter: report.NewReporter(scanner),
		policy:   policy,
	}, nil
}
