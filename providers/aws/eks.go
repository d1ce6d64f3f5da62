package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/eks/types"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/resource"
)

type eksAPI interface {
	ListClusters(ctx context.Context, params *eks.ListClustersInput, optFns ...func(*eks.Options)) (*eks.ListClustersOutput, error)
	DescribeCluster(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error)
	ListNodegroups(ctx context.Context, params *eks.ListNodegroupsInput, optFns ...func(*eks.Options)) (*eks.ListNodegroupsOutput, error)
}

func (p *Provider) listClusters(ctx context.Context, deploymentTag string) ([]resource.Resource, error) {
	var out []resource.Resource
	var nextToken *string
	for {
		resp, err := p.eksClient.ListClusters(ctx, &eks.ListClustersInput{NextToken: nextToken})
		if err != nil {
			return nil, cloud.Classify(fmt.Errorf("list clusters: %w", err))
		}
		for _, name := range resp.Clusters {
			desc, err := p.eksClient.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
			if err != nil {
				if cloud.IsNotFound(err) {
					continue
				}
				return nil, cloud.Classify(fmt.Errorf("describe cluster %s: %w", name, err))
			}
			cluster := desc.Cluster
			if cluster == nil || cluster.Tags[TagKey] != deploymentTag {
				continue
			}
			status := resource.StatusActive
			if cluster.Status == types.ClusterStatusDeleting {
				status = resource.StatusDeleting
			}
			out = append(out, resource.Resource{
				ID:            name,
				Kind:          resource.KindManagedCluster,
				Status:        status,
				DeploymentTag: deploymentTag,
			})

			groups, err := p.ListNodeGroups(ctx, name)
			if err != nil {
				return nil, err
			}
			for _, group := range groups {
				out = append(out, resource.Resource{
					ID:            fmt.Sprintf("%s/%s", name, group),
					Kind:          resource.KindNodeGroup,
					Status:        resource.StatusActive,
					DeploymentTag: deploymentTag,
					ParentIDs:     []string{name},
				})
			}
		}
		if resp.NextToken == nil {
			return out, nil
		}
		nextToken = resp.NextToken
	}
}

// ListNodeGroups returns the node group names of a cluster. A deleting or
// already-gone cluster has none.
func (p *Provider) ListNodeGroups(ctx context.Context, cluster string) ([]string, error) {
	var out []string
	var nextToken *string
	for {
		resp, err := p.eksClient.ListNodegroups(ctx, &eks.ListNodegroupsInput{
			ClusterName: aws.String(cluster),
			NextToken:   nextToken,
		})
		if err != nil {
			if cloud.IsNotFound(err) {
				return nil, nil
			}
			return nil, cloud.Classify(fmt.Errorf("list nodegroups for %s: %w", cluster, err))
		}
		out = append(out, resp.Nodegroups...)
		if resp.NextToken == nil {
			return out, nil
		}
		nextToken = resp.NextToken
	}
}
