package manifest

import "github.com/unwindhq/unwind/internal/resource"

// kindForType maps the declarative manager's resource types onto the
// orchestrator's kind taxonomy. Types outside the teardown scope map to "".
var kindForType = map[string]resource.Kind{
	"aws_vpc":               resource.KindNetwork,
	"aws_subnet":            resource.KindSubnet,
	"aws_network_interface": resource.KindInterface,
	"aws_eks_cluster":       resource.KindManagedCluster,
	"aws_eks_node_group":    resource.KindNodeGroup,
	"aws_lb":                resource.KindLoadBalancer,
	"aws_alb":               resource.KindLoadBalancer,
	"aws_lb_target_group":   resource.KindTargetGroup,
	"aws_alb_target_group":  resource.KindTargetGroup,
	"aws_s3_bucket":         resource.KindObjectStore,
	"aws_nat_gateway":       resource.KindNatGateway,
	"aws_dynamodb_table":    resource.KindLockTable,
}

// KindFor returns the kind for a manager resource type, or "" when the type
// has no teardown-ordering significance.
func KindFor(tfType string) resource.Kind {
	return kindForType[tfType]
}
