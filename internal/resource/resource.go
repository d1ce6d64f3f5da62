// Package resource holds the domain types shared by the scanner, detector,
// executor and coordinator.
package resource

import "fmt"

// Kind identifies a class of cloud resource under lifecycle management.
type Kind string

const (
	KindNetwork        Kind = "Network"
	KindSubnet         Kind = "Subnet"
	KindInterface      Kind = "Interface"
	KindManagedCluster Kind = "ManagedCluster"
	KindNodeGroup      Kind = "NodeGroup"
	KindLoadBalancer   Kind = "LoadBalancer"
	KindTargetGroup    Kind = "TargetGroup"
	KindObjectStore    Kind = "ObjectStore"
	KindNatGateway     Kind = "NatGateway"
	KindLockTable      Kind = "LockTable"
)

// Status is the lifecycle status of a resource as last observed.
type Status string

const (
	StatusActive   Status = "Active"
	StatusDeleting Status = "Deleting"
	StatusGone     Status = "Gone"
)

// Resource is a cloud object under lifecycle management. It is discovered
// read-only by the scanner and mutated only through cleanup or destroy calls.
type Resource struct {
	ID            string            `json:"id"`
	Kind          Kind              `json:"kind"`
	Status        Status            `json:"status"`
	DeploymentTag string            `json:"deploymentTag"`
	ParentIDs     []string          `json:"parentIds,omitempty"`
	Attrs         map[string]string `json:"attrs,omitempty"`
}

// Addr returns a short human-readable address for logs and tables.
func (r Resource) Addr() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}

// Attr returns a named attribute or "" if unset.
func (r Resource) Attr(key string) string {
	return r.Attrs[key]
}

// ManifestEntry is a resource the declarative manager believes it owns.
type ManifestEntry struct {
	Address string `json:"address"` // e.g. aws_subnet.private
	Type    string `json:"type"`    // e.g. aws_subnet
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	ID      string `json:"id,omitempty"`
}

// Snapshot is one scanner pass: the live resource set plus the manifest's
// believed resource set. Snapshots are never persisted.
type Snapshot struct {
	DeploymentTag string          `json:"deploymentTag"`
	Live          []Resource      `json:"live"`
	Manifest      []ManifestEntry `json:"manifest"`
}

// ByKind groups live resources by kind.
func (s *Snapshot) ByKind() map[Kind][]Resource {
	out := make(map[Kind][]Resource)
	for _, r := range s.Live {
		out[r.Kind] = append(out[r.Kind], r)
	}
	return out
}

// Kinds returns the set of kinds present in the live inventory.
func (s *Snapshot) Kinds() []Kind {
	seen := make(map[Kind]bool)
	var kinds []Kind
	for _, r := range s.Live {
		if !seen[r.Kind] {
			seen[r.Kind] = true
			kinds = append(kinds, r.Kind)
		}
	}
	return kinds
}

// Find returns the live resource with the given id, if present.
func (s *Snapshot) Find(id string) (Resource, bool) {
	for _, r := range s.Live {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// Empty reports whether both the live inventory and the manifest are empty.
// Resources already in Deleting state count as progress, not residue.
func (s *Snapshot) Empty() bool {
	return len(s.Residual()) == 0 && len(s.Manifest) == 0
}

// Residual returns the live resources that still block a clean teardown.
func (s *Snapshot) Residual() []Resource {
	var out []Resource
	for _, r := range s.Live {
		if r.Status == StatusActive {
			out = append(out, r)
		}
	}
	return out
}
