package aws

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unwindhq/unwind/internal/cloud"
)

type elbStub struct {
	mu sync.Mutex

	lbs      []types.LoadBalancer
	tgs      []types.TargetGroup
	pageSize int // 0 means everything in one response
	tagsFor  map[string][]types.Tag
	tagCalls int

	// healthPages is consumed one response per DescribeTargetHealth call;
	// the last page repeats once exhausted.
	healthPages  [][]types.TargetHealthDescription
	healthCalls  int
	deregistered []string
	deletedLBs   []string
}

// pageOf serves items[marker:marker+size] with a NextMarker when more remain.
func pageOf[T any](items []T, marker *string, size int) ([]T, *string) {
	if size <= 0 {
		return items, nil
	}
	start := 0
	if marker != nil {
		start, _ = strconv.Atoi(*marker)
	}
	end := start + size
	if end >= len(items) {
		return items[start:], nil
	}
	return items[start:end], awssdk.String(strconv.Itoa(end))
}

func (s *elbStub) DescribeLoadBalancers(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error) {
	items, next := pageOf(s.lbs, params.Marker, s.pageSize)
	return &elbv2.DescribeLoadBalancersOutput{LoadBalancers: items, NextMarker: next}, nil
}

func (s *elbStub) DescribeTargetGroups(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error) {
	items, next := pageOf(s.tgs, params.Marker, s.pageSize)
	return &elbv2.DescribeTargetGroupsOutput{TargetGroups: items, NextMarker: next}, nil
}

func (s *elbStub) DescribeTags(ctx context.Context, params *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tagCalls++
	if len(params.ResourceArns) > tagDescribeBatch {
		return nil, fmt.Errorf("too many arns in one call: %d", len(params.ResourceArns))
	}
	out := &elbv2.DescribeTagsOutput{}
	for _, arn := range params.ResourceArns {
		out.TagDescriptions = append(out.TagDescriptions, types.TagDescription{
			ResourceArn: awssdk.String(arn),
			Tags:        s.tagsFor[arn],
		})
	}
	return out, nil
}

func (s *elbStub) DescribeTargetHealth(ctx context.Context, params *elbv2.DescribeTargetHealthInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.healthCalls
	if idx >= len(s.healthPages) {
		idx = len(s.healthPages) - 1
	}
	s.healthCalls++
	if idx < 0 {
		return &elbv2.DescribeTargetHealthOutput{}, nil
	}
	return &elbv2.DescribeTargetHealthOutput{TargetHealthDescriptions: s.healthPages[idx]}, nil
}

func (s *elbStub) DeregisterTargets(ctx context.Context, params *elbv2.DeregisterTargetsInput, optFns ...func(*elbv2.Options)) (*elbv2.DeregisterTargetsOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range params.Targets {
		s.deregistered = append(s.deregistered, awssdk.ToString(t.Id))
	}
	return &elbv2.DeregisterTargetsOutput{}, nil
}

func (s *elbStub) DeleteLoadBalancer(ctx context.Context, params *elbv2.DeleteLoadBalancerInput, optFns ...func(*elbv2.Options)) (*elbv2.DeleteLoadBalancerOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedLBs = append(s.deletedLBs, awssdk.ToString(params.LoadBalancerArn))
	return &elbv2.DeleteLoadBalancerOutput{}, nil
}

func healthy(id string) types.TargetHealthDescription {
	return types.TargetHealthDescription{
		Target:       &types.TargetDescription{Id: awssdk.String(id), Port: awssdk.Int32(8080)},
		TargetHealth: &types.TargetHealth{State: types.TargetHealthStateEnumHealthy},
	}
}

func TestListTargetsIncludesUnhealthy(t *testing.T) {
	stub := &elbStub{
		healthPages: [][]types.TargetHealthDescription{{
			healthy("i-1"),
			{
				Target:       &types.TargetDescription{Id: awssdk.String("i-2")},
				TargetHealth: &types.TargetHealth{State: types.TargetHealthStateEnumUnhealthy},
			},
		}},
	}
	p := &Provider{elbClient: stub}

	targets, err := p.ListTargets(context.Background(), "arn:tg-1")
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "unhealthy", targets[1].Health)
}

func TestWaitTargetsDrainedPollsUntilEmpty(t *testing.T) {
	stub := &elbStub{
		healthPages: [][]types.TargetHealthDescription{
			{healthy("i-1")},
			{healthy("i-1")},
			{},
		},
	}
	p := &Provider{elbClient: stub, drainInterval: time.Millisecond}

	err := p.WaitTargetsDrained(context.Background(), "arn:tg-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stub.healthCalls, 3)
}

func TestWaitTargetsDrainedHonorsDeadline(t *testing.T) {
	stub := &elbStub{
		healthPages: [][]types.TargetHealthDescription{{healthy("i-1")}},
	}
	p := &Provider{elbClient: stub, drainInterval: time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.WaitTargetsDrained(ctx, "arn:tg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, cloud.ErrTimeout)
}

func TestListClusterLoadBalancersByOwnershipTag(t *testing.T) {
	stub := &elbStub{
		lbs: []types.LoadBalancer{
			{LoadBalancerArn: awssdk.String("arn:lb-owned"), LoadBalancerName: awssdk.String("svc-lb")},
			{LoadBalancerArn: awssdk.String("arn:lb-other"), LoadBalancerName: awssdk.String("other")},
		},
		tagsFor: map[string][]types.Tag{
			"arn:lb-owned": {{Key: awssdk.String("kubernetes.io/cluster/prod-eks"), Value: awssdk.String("owned")}},
		},
	}
	p := &Provider{elbClient: stub}

	out, err := p.ListClusterLoadBalancers(context.Background(), "prod-eks")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "arn:lb-owned", out[0].ID)
	assert.Equal(t, "prod-eks", out[0].Attr("ownedBy"))
}

func TestListLoadBalancingPagesThroughMarkers(t *testing.T) {
	stub := &elbStub{
		pageSize: 1,
		lbs: []types.LoadBalancer{
			{LoadBalancerArn: awssdk.String("arn:lb-1"), LoadBalancerName: awssdk.String("first")},
			{LoadBalancerArn: awssdk.String("arn:lb-2"), LoadBalancerName: awssdk.String("second")},
		},
		tgs: []types.TargetGroup{
			{TargetGroupArn: awssdk.String("arn:tg-1"), TargetGroupName: awssdk.String("first")},
			{TargetGroupArn: awssdk.String("arn:tg-2"), TargetGroupName: awssdk.String("second")},
		},
		tagsFor: map[string][]types.Tag{
			"arn:lb-2": {{Key: awssdk.String(TagKey), Value: awssdk.String("demo-v1")}},
			"arn:tg-2": {{Key: awssdk.String(TagKey), Value: awssdk.String("demo-v1")}},
		},
	}
	p := &Provider{elbClient: stub}

	// The tagged resources sit past the first page; listing must follow the
	// markers to find them.
	out, err := p.listLoadBalancing(context.Background(), "demo-v1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	ids := []string{out[0].ID, out[1].ID}
	assert.ElementsMatch(t, []string{"arn:lb-2", "arn:tg-2"}, ids)
}

func TestArnsWithTagChunksRequests(t *testing.T) {
	stub := &elbStub{tagsFor: map[string][]types.Tag{}}
	var arns []string
	for i := 0; i < 25; i++ {
		arn := fmt.Sprintf("arn:lb-%d", i)
		arns = append(arns, arn)
		if i%2 == 0 {
			stub.tagsFor[arn] = []types.Tag{{Key: awssdk.String(TagKey), Value: awssdk.String("demo-v1")}}
		}
	}
	p := &Provider{elbClient: stub}

	matched, err := p.arnsWithTag(context.Background(), arns, TagKey, "demo-v1")
	require.NoError(t, err)
	assert.Len(t, matched, 13)
	assert.Equal(t, 2, stub.tagCalls)
}
