// Package cloud defines the provider boundary consumed by the scanner,
// detector and executor, together with the error taxonomy shared by every
// stage. The AWS implementation lives in providers/aws; tests use Fake.
package cloud

import (
	"context"

	"github.com/unwindhq/unwind/internal/resource"
)

// ENI is a virtual network interface as seen by the provider. An interface
// in "available" state exists independently of whatever created it.
type ENI struct {
	ID          string
	SubnetID    string
	Status      string // "available", "in-use", ...
	Description string
	Attachment  string // attachment id when in use
}

// Available reports whether the interface is orphaned: undeleted but no
// longer attached to anything.
func (e ENI) Available() bool { return e.Status == "available" }

// BucketCensus counts what remains inside a versioned object store.
type BucketCensus struct {
	Versions      int
	DeleteMarkers int
}

// Empty reports a fully unwound store: no versions and no delete markers.
func (c BucketCensus) Empty() bool { return c.Versions == 0 && c.DeleteMarkers == 0 }

// Target is one backend registration in a target group.
type Target struct {
	ID     string
	Port   int32
	Health string
}

// API is the cloud-provider surface the orchestrator needs. Read methods
// have no side effects; mutating methods are idempotent and must tolerate
// an already-clean target.
type API interface {
	// ListResources returns every live resource tagged to the deployment.
	ListResources(ctx context.Context, deploymentTag string) ([]resource.Resource, error)

	// ListInterfaces returns all network interfaces inside a subnet,
	// regardless of attachment state.
	ListInterfaces(ctx context.Context, subnetID string) ([]ENI, error)

	// DeleteInterface deletes an unattached interface. Deleting an interface
	// that is already gone is not an error.
	DeleteInterface(ctx context.Context, id string) error

	// CountBucketVersions counts object versions and delete markers.
	CountBucketVersions(ctx context.Context, bucket string) (BucketCensus, error)

	// PurgeBucket deletes every object version and delete marker and returns
	// how many it removed. Zero on an already-empty store.
	PurgeBucket(ctx context.Context, bucket string) (int, error)

	// ListTargets returns every registered target, including unhealthy ones.
	ListTargets(ctx context.Context, targetGroupARN string) ([]Target, error)

	// DeregisterTargets requests deregistration of the given targets.
	DeregisterTargets(ctx context.Context, targetGroupARN string, targets []Target) error

	// WaitTargetsDrained blocks until the group reports zero registered
	// targets or the context expires. Draining is asynchronous on the
	// provider side.
	WaitTargetsDrained(ctx context.Context, targetGroupARN string) error

	// ListNodeGroups returns the node groups of a managed cluster.
	ListNodeGroups(ctx context.Context, cluster string) ([]string, error)

	// ListClusterLoadBalancers returns load balancers carrying the cluster's
	// ownership tag: networking the cluster provisioned for its own services,
	// invisible to the manifest.
	ListClusterLoadBalancers(ctx context.Context, cluster string) ([]resource.Resource, error)

	// DeleteLoadBalancer deletes a load balancer by ARN. Already-gone is not
	// an error.
	DeleteLoadBalancer(ctx context.Context, arn string) error
}
