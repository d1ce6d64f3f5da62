package aws

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unwindhq/unwind/internal/resource"
)

type eksStub struct {
	clusters map[string]*types.Cluster

	// groupPages is consumed one response per ListNodegroups call.
	groupPages []*eks.ListNodegroupsOutput
	groupCalls int
	groupErr   error
}

func (s *eksStub) ListClusters(ctx context.Context, params *eks.ListClustersInput, optFns ...func(*eks.Options)) (*eks.ListClustersOutput, error) {
	out := &eks.ListClustersOutput{}
	for name := range s.clusters {
		out.Clusters = append(out.Clusters, name)
	}
	return out, nil
}

func (s *eksStub) DescribeCluster(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error) {
	cluster, ok := s.clusters[awssdk.ToString(params.Name)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException"}
	}
	return &eks.DescribeClusterOutput{Cluster: cluster}, nil
}

func (s *eksStub) ListNodegroups(ctx context.Context, params *eks.ListNodegroupsInput, optFns ...func(*eks.Options)) (*eks.ListNodegroupsOutput, error) {
	if s.groupErr != nil {
		return nil, s.groupErr
	}
	if s.groupCalls >= len(s.groupPages) {
		return &eks.ListNodegroupsOutput{}, nil
	}
	page := s.groupPages[s.groupCalls]
	s.groupCalls++
	return page, nil
}

func TestListClustersFiltersByTagAndStatus(t *testing.T) {
	stub := &eksStub{
		clusters: map[string]*types.Cluster{
			"prod-eks": {
				Name:   awssdk.String("prod-eks"),
				Status: types.ClusterStatusDeleting,
				Tags:   map[string]string{TagKey: "demo-v1"},
			},
			"unrelated": {
				Name:   awssdk.String("unrelated"),
				Status: types.ClusterStatusActive,
				Tags:   map[string]string{TagKey: "prod"},
			},
		},
	}
	p := &Provider{eksClient: stub}

	out, err := p.listClusters(context.Background(), "demo-v1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "prod-eks", out[0].ID)
	assert.Equal(t, resource.StatusDeleting, out[0].Status)
}

func TestListNodeGroupsFollowsPagination(t *testing.T) {
	stub := &eksStub{
		groupPages: []*eks.ListNodegroupsOutput{
			{Nodegroups: []string{"workers-a"}, NextToken: awssdk.String("page-2")},
			{Nodegroups: []string{"workers-b"}},
		},
	}
	p := &Provider{eksClient: stub}

	groups, err := p.ListNodeGroups(context.Background(), "prod-eks")
	require.NoError(t, err)
	assert.Equal(t, []string{"workers-a", "workers-b"}, groups)
}

func TestListNodeGroupsGoneClusterHasNone(t *testing.T) {
	stub := &eksStub{groupErr: &smithy.GenericAPIError{Code: "ResourceNotFoundException"}}
	p := &Provider{eksClient: stub}

	groups, err := p.ListNodeGroups(context.Background(), "gone-eks")
	require.NoError(t, err)
	assert.Nil(t, groups)
}
