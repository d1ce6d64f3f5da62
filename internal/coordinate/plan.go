package coordinate

import "github.com/unwindhq/unwind/internal/resource"

// destroyOrder is the safe deletion sequence, derived once from domain
// knowledge of the kinds in play. Service-layer kinds go first, the
// networking they sit on next, and the stores last since their contents
// never block anything else.
var destroyOrder = []resource.Kind{
	resource.KindLoadBalancer,
	resource.KindTargetGroup,
	resource.KindNodeGroup,
	resource.KindManagedCluster,
	resource.KindNatGateway,
	resource.KindInterface,
	resource.KindSubnet,
	resource.KindNetwork,
	resource.KindObjectStore,
	resource.KindLockTable,
}

// DestroyPlan is an ordered list of resource kinds for targeted destruction.
type DestroyPlan struct {
	Kinds []resource.Kind
}

// PlanFor restricts the static order to the kinds present in the snapshot's
// live inventory or manifest.
func PlanFor(snap *resource.Snapshot) DestroyPlan {
	present := make(map[resource.Kind]bool)
	for _, k := range snap.Kinds() {
		present[k] = true
	}
	for _, e := range snap.Manifest {
		present[e.Kind] = true
	}

	plan := DestroyPlan{}
	for _, k := range destroyOrder {
		if present[k] {
			plan.Kinds = append(plan.Kinds, k)
		}
	}
	return plan
}
