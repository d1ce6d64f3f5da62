package cloud

import (
	"context"

	"github.com/unwindhq/unwind/internal/logging"
)

// DryRun wraps an API so that every mutating call is logged and skipped
// while reads pass through. The rest of the pipeline runs its real logic
// against real inventory.
type DryRun struct {
	API
}

// NewDryRun wraps api in a mutation-free decorator.
func NewDryRun(api API) *DryRun {
	return &DryRun{API: api}
}

func (d *DryRun) DeleteInterface(ctx context.Context, id string) error {
	logging.Info("dry-run: would delete interface", "id", id)
	return nil
}

func (d *DryRun) PurgeBucket(ctx context.Context, bucket string) (int, error) {
	census, err := d.API.CountBucketVersions(ctx, bucket)
	if err != nil {
		return 0, err
	}
	logging.Info("dry-run: would purge bucket",
		"bucket", bucket, "versions", census.Versions, "deleteMarkers", census.DeleteMarkers)
	return census.Versions + census.DeleteMarkers, nil
}

func (d *DryRun) DeregisterTargets(ctx context.Context, targetGroupARN string, targets []Target) error {
	logging.Info("dry-run: would deregister targets", "targetGroup", targetGroupARN, "count", len(targets))
	return nil
}

func (d *DryRun) WaitTargetsDrained(ctx context.Context, targetGroupARN string) error {
	logging.Info("dry-run: would wait for drain", "targetGroup", targetGroupARN)
	return nil
}

func (d *DryRun) DeleteLoadBalancer(ctx context.Context, arn string) error {
	logging.Info("dry-run: would delete load balancer", "arn", arn)
	return nil
}

var _ API = (*DryRun)(nil)
