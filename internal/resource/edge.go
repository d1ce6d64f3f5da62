package resource

// EdgeKind enumerates the blocking relationships the declarative manager
// cannot see. The set is closed: a new relationship means a new detector
// policy, not a new conditional buried in the executor.
type EdgeKind string

const (
	// EdgeInterfaceInSubnet: an orphaned (available) interface left behind in
	// a subnet by a higher-level service. Auto-cleanable.
	EdgeInterfaceInSubnet EdgeKind = "InterfaceAttachedToSubnet"
	// EdgeInterfaceInUse: an interface still attached to a live workload.
	// Reported, never auto-cleaned.
	EdgeInterfaceInUse EdgeKind = "InterfaceInUse"
	// EdgeVersionedObjectInBucket: object versions or delete markers remain.
	EdgeVersionedObjectInBucket EdgeKind = "VersionedObjectInBucket"
	// EdgeTargetInGroup: a registered target (healthy or not) remains.
	EdgeTargetInGroup EdgeKind = "TargetRegisteredInGroup"
	// EdgeNodeGroupInCluster: a node group must go before its cluster.
	EdgeNodeGroupInCluster EdgeKind = "NodeGroupInCluster"
	// EdgeManagedServiceInCluster: a cluster-owned load balancer provisioned
	// outside the manifest.
	EdgeManagedServiceInCluster EdgeKind = "ManagedServiceInCluster"
)

// DependencyEdge is a directed relation: Blocker prevents deletion of
// Blocked. Edges are derived on every scanner pass, never persisted.
type DependencyEdge struct {
	Blocker Resource `json:"blocker"`
	Blocked Resource `json:"blocked"`
	Kind    EdgeKind `json:"kind"`
}

// AutoCleanable reports whether the executor has a remedial action for this
// edge kind. In-use interfaces are the deliberate exception: detaching a
// live workload's interface is an operator decision.
func (e DependencyEdge) AutoCleanable() bool {
	return e.Kind != EdgeInterfaceInUse
}
