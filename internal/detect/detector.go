// Package detect classifies live resources into deletable-now vs blocked by
// a dependency the declarative manager does not track. One policy per edge
// kind; the executor consumes the recommended actions, the console shows
// the edges.
package detect

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/logging"
	"github.com/unwindhq/unwind/internal/resource"
)

// Findings is one detector pass: derived edges and the remedial actions
// that would clear the auto-cleanable ones. Recomputed every pass, never
// persisted.
type Findings struct {
	Edges   []resource.DependencyEdge
	Actions []resource.CleanupAction
}

// Blocked returns the ids of resources with at least one inbound edge.
func (f *Findings) Blocked() map[string]bool {
	out := make(map[string]bool)
	for _, e := range f.Edges {
		out[e.Blocked.ID] = true
	}
	return out
}

type Detector struct {
	api cloud.API
}

func NewDetector(api cloud.API) *Detector {
	return &Detector{api: api}
}

// Detect runs every blocking-condition policy over the snapshot's active
// resources. Per-resource probe failures are aggregated and returned after
// the pass completes, alongside whatever was found.
func (d *Detector) Detect(ctx context.Context, snap *resource.Snapshot) (*Findings, error) {
	findings := &Findings{}
	var errs []error

	for _, r := range snap.Live {
		if r.Status != resource.StatusActive {
			continue
		}
		var err error
		switch r.Kind {
		case resource.KindSubnet:
			err = d.detectSubnet(ctx, r, findings)
		case resource.KindObjectStore:
			err = d.detectObjectStore(ctx, r, findings)
		case resource.KindTargetGroup:
			err = d.detectTargetGroup(ctx, r, findings)
		case resource.KindManagedCluster:
			err = d.detectCluster(ctx, r, snap, findings)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	logging.With("detector").Debug("detection complete",
		"edges", len(findings.Edges), "actions", len(findings.Actions))
	return findings, errors.Join(errs...)
}

// detectSubnet: an available interface is an orphan left behind by a
// higher-level service and blocks the subnet until deleted. An in-use
// interface is an active workload: reported, never auto-cleaned.
func (d *Detector) detectSubnet(ctx context.Context, subnet resource.Resource, f *Findings) error {
	enis, err := d.api.ListInterfaces(ctx, subnet.ID)
	if err != nil {
		return fmt.Errorf("probing subnet %s: %w", subnet.ID, err)
	}
	for _, eni := range enis {
		blocker := resource.Resource{
			ID:            eni.ID,
			Kind:          resource.KindInterface,
			Status:        resource.StatusActive,
			DeploymentTag: subnet.DeploymentTag,
			ParentIDs:     []string{subnet.ID},
			Attrs: map[string]string{
				"status":      eni.Status,
				"description": eni.Description,
			},
		}
		if eni.Available() {
			f.Edges = append(f.Edges, resource.DependencyEdge{
				Blocker: blocker,
				Blocked: subnet,
				Kind:    resource.EdgeInterfaceInSubnet,
			})
			f.Actions = append(f.Actions, resource.CleanupAction{
				Target:    blocker,
				Operation: resource.OpDetachInterface,
			})
		} else {
			blocker.Attrs["attachment"] = eni.Attachment
			f.Edges = append(f.Edges, resource.DependencyEdge{
				Blocker: blocker,
				Blocked: subnet,
				Kind:    resource.EdgeInterfaceInUse,
			})
		}
	}
	return nil
}

// detectObjectStore: any version or delete marker blocks the store, even
// when all current objects are already gone.
func (d *Detector) detectObjectStore(ctx context.Context, store resource.Resource, f *Findings) error {
	census, err := d.api.CountBucketVersions(ctx, store.ID)
	if err != nil {
		return fmt.Errorf("probing object store %s: %w", store.ID, err)
	}
	if census.Empty() {
		return nil
	}
	contents := store
	contents.Attrs = map[string]string{
		"versions":      strconv.Itoa(census.Versions),
		"deleteMarkers": strconv.Itoa(census.DeleteMarkers),
	}
	f.Edges = append(f.Edges, resource.DependencyEdge{
		Blocker: contents,
		Blocked: store,
		Kind:    resource.EdgeVersionedObjectInBucket,
	})
	f.Actions = append(f.Actions, resource.CleanupAction{
		Target:    store,
		Operation: resource.OpPurgeObjectVersions,
	})
	return nil
}

// detectTargetGroup: any registered target, healthy or not, blocks the
// group until deregistered and drained.
func (d *Detector) detectTargetGroup(ctx context.Context, group resource.Resource, f *Findings) error {
	targets, err := d.api.ListTargets(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("probing target group %s: %w", group.ID, err)
	}
	if len(targets) == 0 {
		return nil
	}
	registrations := group
	registrations.Attrs = map[string]string{"targets": strconv.Itoa(len(targets))}
	f.Edges = append(f.Edges, resource.DependencyEdge{
		Blocker: registrations,
		Blocked: group,
		Kind:    resource.EdgeTargetInGroup,
	})
	f.Actions = append(f.Actions, resource.CleanupAction{
		Target:    group,
		Operation: resource.OpDeregisterTarget,
	})
	return nil
}

// detectCluster: node groups block the cluster (ordering, no auto action),
// and cluster-owned load balancers are manifest-invisible networking that
// must be deleted explicitly.
func (d *Detector) detectCluster(ctx context.Context, cluster resource.Resource, snap *resource.Snapshot, f *Findings) error {
	groups, err := d.api.ListNodeGroups(ctx, cluster.ID)
	if err != nil {
		return fmt.Errorf("probing cluster %s: %w", cluster.ID, err)
	}
	for _, group := range groups {
		id := fmt.Sprintf("%s/%s", cluster.ID, group)
		blocker, ok := snap.Find(id)
		if !ok {
			blocker = resource.Resource{
				ID:            id,
				Kind:          resource.KindNodeGroup,
				Status:        resource.StatusActive,
				DeploymentTag: cluster.DeploymentTag,
				ParentIDs:     []string{cluster.ID},
			}
		}
		f.Edges = append(f.Edges, resource.DependencyEdge{
			Blocker: blocker,
			Blocked: cluster,
			Kind:    resource.EdgeNodeGroupInCluster,
		})
	}

	lbs, err := d.api.ListClusterLoadBalancers(ctx, cluster.ID)
	if err != nil {
		return fmt.Errorf("probing cluster %s load balancers: %w", cluster.ID, err)
	}
	for _, lb := range lbs {
		f.Edges = append(f.Edges, resource.DependencyEdge{
			Blocker: lb,
			Blocked: cluster,
			Kind:    resource.EdgeManagedServiceInCluster,
		})
		f.Actions = append(f.Actions, resource.CleanupAction{
			Target:    lb,
			Operation: resource.OpDeleteManagedService,
		})
	}
	return nil
}
