package cloud

import (
	"context"
	"fmt"
	"sync"

	"github.com/unwindhq/unwind/internal/resource"
)

// Fake is a scriptable in-memory API used by package tests. Mutating calls
// update the scripted inventory so idempotence and ordering properties can
// be asserted without a provider.
type Fake struct {
	mu sync.Mutex

	Resources  []resource.Resource
	Interfaces map[string][]ENI          // subnet id -> interfaces
	Buckets    map[string]BucketCensus   // bucket -> remaining contents
	Targets    map[string][]Target       // target group arn -> registrations
	NodeGroups map[string][]string       // cluster -> node groups
	ClusterLBs map[string][]resource.Resource

	// Errs scripts a failure for a given call key, e.g. "DeleteInterface/eni-1".
	Errs map[string]error

	// Calls records every invocation in order.
	Calls []string
}

// NewFake returns an empty scriptable API.
func NewFake() *Fake {
	return &Fake{
		Interfaces: make(map[string][]ENI),
		Buckets:    make(map[string]BucketCensus),
		Targets:    make(map[string][]Target),
		NodeGroups: make(map[string][]string),
		ClusterLBs: make(map[string][]resource.Resource),
		Errs:       make(map[string]error),
	}
}

func (f *Fake) record(format string, args ...any) string {
	call := fmt.Sprintf(format, args...)
	f.Calls = append(f.Calls, call)
	return call
}

func (f *Fake) scripted(call string) error {
	if err, ok := f.Errs[call]; ok {
		return err
	}
	return nil
}

func (f *Fake) ListResources(ctx context.Context, deploymentTag string) ([]resource.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("ListResources/%s", deploymentTag)
	if err := f.scripted(call); err != nil {
		return nil, err
	}
	var out []resource.Resource
	for _, r := range f.Resources {
		if r.DeploymentTag == deploymentTag {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fake) ListInterfaces(ctx context.Context, subnetID string) ([]ENI, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("ListInterfaces/%s", subnetID)
	if err := f.scripted(call); err != nil {
		return nil, err
	}
	return f.Interfaces[subnetID], nil
}

func (f *Fake) DeleteInterface(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("DeleteInterface/%s", id)
	if err := f.scripted(call); err != nil {
		return err
	}
	for subnet, enis := range f.Interfaces {
		kept := enis[:0]
		for _, eni := range enis {
			if eni.ID != id {
				kept = append(kept, eni)
			}
		}
		f.Interfaces[subnet] = kept
	}
	return nil
}

func (f *Fake) CountBucketVersions(ctx context.Context, bucket string) (BucketCensus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("CountBucketVersions/%s", bucket)
	if err := f.scripted(call); err != nil {
		return BucketCensus{}, err
	}
	return f.Buckets[bucket], nil
}

func (f *Fake) PurgeBucket(ctx context.Context, bucket string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("PurgeBucket/%s", bucket)
	if err := f.scripted(call); err != nil {
		return 0, err
	}
	census := f.Buckets[bucket]
	f.Buckets[bucket] = BucketCensus{}
	return census.Versions + census.DeleteMarkers, nil
}

func (f *Fake) ListTargets(ctx context.Context, targetGroupARN string) ([]Target, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("ListTargets/%s", targetGroupARN)
	if err := f.scripted(call); err != nil {
		return nil, err
	}
	return f.Targets[targetGroupARN], nil
}

func (f *Fake) DeregisterTargets(ctx context.Context, targetGroupARN string, targets []Target) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("DeregisterTargets/%s", targetGroupARN)
	if err := f.scripted(call); err != nil {
		return err
	}
	remove := make(map[string]bool, len(targets))
	for _, t := range targets {
		remove[t.ID] = true
	}
	kept := f.Targets[targetGroupARN][:0]
	for _, t := range f.Targets[targetGroupARN] {
		if !remove[t.ID] {
			kept = append(kept, t)
		}
	}
	f.Targets[targetGroupARN] = kept
	return nil
}

func (f *Fake) WaitTargetsDrained(ctx context.Context, targetGroupARN string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("WaitTargetsDrained/%s", targetGroupARN)
	return f.scripted(call)
}

func (f *Fake) ListNodeGroups(ctx context.Context, cluster string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("ListNodeGroups/%s", cluster)
	if err := f.scripted(call); err != nil {
		return nil, err
	}
	return f.NodeGroups[cluster], nil
}

func (f *Fake) ListClusterLoadBalancers(ctx context.Context, cluster string) ([]resource.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("ListClusterLoadBalancers/%s", cluster)
	if err := f.scripted(call); err != nil {
		return nil, err
	}
	return f.ClusterLBs[cluster], nil
}

func (f *Fake) DeleteLoadBalancer(ctx context.Context, arn string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.record("DeleteLoadBalancer/%s", arn)
	if err := f.scripted(call); err != nil {
		return err
	}
	for cluster, lbs := range f.ClusterLBs {
		kept := lbs[:0]
		for _, lb := range lbs {
			if lb.ID != arn {
				kept = append(kept, lb)
			}
		}
		f.ClusterLBs[cluster] = kept
	}
	return nil
}

// RemoveResource drops a live resource from the scripted inventory, as a
// successful provider delete would.
func (f *Fake) RemoveResource(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.Resources[:0]
	for _, r := range f.Resources {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.Resources = kept
}

var _ API = (*Fake)(nil)
