package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/resource"
)

// DescribeTags accepts at most 20 ARNs per call.
const tagDescribeBatch = 20

type elbAPI interface {
	DescribeLoadBalancers(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	DescribeTargetGroups(ctx context.Context, params *elbv2.DescribeTargetGroupsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetGroupsOutput, error)
	DescribeTags(ctx context.Context, params *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error)
	DescribeTargetHealth(ctx context.Context, params *elbv2.DescribeTargetHealthInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTargetHealthOutput, error)
	DeregisterTargets(ctx context.Context, params *elbv2.DeregisterTargetsInput, optFns ...func(*elbv2.Options)) (*elbv2.DeregisterTargetsOutput, error)
	DeleteLoadBalancer(ctx context.Context, params *elbv2.DeleteLoadBalancerInput, optFns ...func(*elbv2.Options)) (*elbv2.DeleteLoadBalancerOutput, error)
}

func (p *Provider) describeAllLoadBalancers(ctx context.Context) ([]types.LoadBalancer, error) {
	var out []types.LoadBalancer
	var marker *string
	for {
		resp, err := p.elbClient.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{Marker: marker})
		if err != nil {
			return nil, cloud.Classify(fmt.Errorf("describe load balancers: %w", err))
		}
		out = append(out, resp.LoadBalancers...)
		if resp.NextMarker == nil {
			return out, nil
		}
		marker = resp.NextMarker
	}
}

func (p *Provider) describeAllTargetGroups(ctx context.Context) ([]types.TargetGroup, error) {
	var out []types.TargetGroup
	var marker *string
	for {
		resp, err := p.elbClient.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{Marker: marker})
		if err != nil {
			return nil, cloud.Classify(fmt.Errorf("describe target groups: %w", err))
		}
		out = append(out, resp.TargetGroups...)
		if resp.NextMarker == nil {
			return out, nil
		}
		marker = resp.NextMarker
	}
}

func (p *Provider) listLoadBalancing(ctx context.Context, deploymentTag string) ([]resource.Resource, error) {
	var out []resource.Resource

	lbs, err := p.describeAllLoadBalancers(ctx)
	if err != nil {
		return nil, err
	}
	lbArns := make([]string, 0, len(lbs))
	lbByArn := make(map[string]types.LoadBalancer)
	for _, lb := range lbs {
		arn := aws.ToString(lb.LoadBalancerArn)
		lbArns = append(lbArns, arn)
		lbByArn[arn] = lb
	}

	tagged, err := p.arnsWithTag(ctx, lbArns, TagKey, deploymentTag)
	if err != nil {
		return nil, err
	}
	for arn := range tagged {
		lb := lbByArn[arn]
		out = append(out, resource.Resource{
			ID:            arn,
			Kind:          resource.KindLoadBalancer,
			Status:        resource.StatusActive,
			DeploymentTag: deploymentTag,
			Attrs:         map[string]string{"name": aws.ToString(lb.LoadBalancerName)},
		})
	}

	tgs, err := p.describeAllTargetGroups(ctx)
	if err != nil {
		return nil, err
	}
	tgArns := make([]string, 0, len(tgs))
	tgByArn := make(map[string]types.TargetGroup)
	for _, tg := range tgs {
		arn := aws.ToString(tg.TargetGroupArn)
		tgArns = append(tgArns, arn)
		tgByArn[arn] = tg
	}

	taggedTGs, err := p.arnsWithTag(ctx, tgArns, TagKey, deploymentTag)
	if err != nil {
		return nil, err
	}
	for arn := range taggedTGs {
		tg := tgByArn[arn]
		out = append(out, resource.Resource{
			ID:            arn,
			Kind:          resource.KindTargetGroup,
			Status:        resource.StatusActive,
			DeploymentTag: deploymentTag,
			ParentIDs:     tg.LoadBalancerArns,
			Attrs:         map[string]string{"name": aws.ToString(tg.TargetGroupName)},
		})
	}

	return out, nil
}

// arnsWithTag returns the subset of arns carrying tag key=value.
func (p *Provider) arnsWithTag(ctx context.Context, arns []string, key, value string) (map[string]bool, error) {
	matched := make(map[string]bool)
	for start := 0; start < len(arns); start += tagDescribeBatch {
		end := min(start+tagDescribeBatch, len(arns))
		resp, err := p.elbClient.DescribeTags(ctx, &elbv2.DescribeTagsInput{
			ResourceArns: arns[start:end],
		})
		if err != nil {
			return nil, cloud.Classify(fmt.Errorf("describe elb tags: %w", err))
		}
		for _, desc := range resp.TagDescriptions {
			for _, tag := range desc.Tags {
				if aws.ToString(tag.Key) == key && aws.ToString(tag.Value) == value {
					matched[aws.ToString(desc.ResourceArn)] = true
				}
			}
		}
	}
	return matched, nil
}

// ListTargets returns every registration in the group, unhealthy ones
// included: any registration blocks deletion.
func (p *Provider) ListTargets(ctx context.Context, targetGroupARN string) ([]cloud.Target, error) {
	resp, err := p.elbClient.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
		TargetGroupArn: aws.String(targetGroupARN),
	})
	if err != nil {
		if cloud.IsNotFound(err) {
			return nil, nil
		}
		return nil, cloud.Classify(fmt.Errorf("describe target health for %s: %w", targetGroupARN, err))
	}
	var out []cloud.Target
	for _, desc := range resp.TargetHealthDescriptions {
		if desc.Target == nil {
			continue
		}
		t := cloud.Target{
			ID:   aws.ToString(desc.Target.Id),
			Port: aws.ToInt32(desc.Target.Port),
		}
		if desc.TargetHealth != nil {
			t.Health = string(desc.TargetHealth.State)
		}
		out = append(out, t)
	}
	return out, nil
}

func (p *Provider) DeregisterTargets(ctx context.Context, targetGroupARN string, targets []cloud.Target) error {
	if len(targets) == 0 {
		return nil
	}
	descs := make([]types.TargetDescription, 0, len(targets))
	for _, t := range targets {
		desc := types.TargetDescription{Id: aws.String(t.ID)}
		if t.Port != 0 {
			desc.Port = aws.Int32(t.Port)
		}
		descs = append(descs, desc)
	}
	_, err := p.elbClient.DeregisterTargets(ctx, &elbv2.DeregisterTargetsInput{
		TargetGroupArn: aws.String(targetGroupARN),
		Targets:        descs,
	})
	if err != nil {
		if cloud.IsNotFound(err) {
			return nil
		}
		return cloud.Classify(fmt.Errorf("deregister targets in %s: %w", targetGroupARN, err))
	}
	return nil
}

// WaitTargetsDrained polls until the group is empty. Draining is
// asynchronous on the provider side and must be tolerated, not raced.
func (p *Provider) WaitTargetsDrained(ctx context.Context, targetGroupARN string) error {
	ticker := time.NewTicker(p.drainInterval)
	defer ticker.Stop()
	for {
		targets, err := p.ListTargets(ctx, targetGroupARN)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return cloud.Classify(fmt.Errorf("waiting for %s to drain: %w", targetGroupARN, ctx.Err()))
		case <-ticker.C:
		}
	}
}

// ListClusterLoadBalancers finds load balancers the cluster provisioned for
// its own services, identified by the kubernetes.io/cluster ownership tag.
func (p *Provider) ListClusterLoadBalancers(ctx context.Context, cluster string) ([]resource.Resource, error) {
	lbs, err := p.describeAllLoadBalancers(ctx)
	if err != nil {
		return nil, err
	}
	arns := make([]string, 0, len(lbs))
	byArn := make(map[string]types.LoadBalancer)
	for _, lb := range lbs {
		arn := aws.ToString(lb.LoadBalancerArn)
		arns = append(arns, arn)
		byArn[arn] = lb
	}

	owned, err := p.arnsWithTag(ctx, arns, "kubernetes.io/cluster/"+cluster, "owned")
	if err != nil {
		return nil, err
	}
	var out []resource.Resource
	for arn := range owned {
		out = append(out, resource.Resource{
			ID:        arn,
			Kind:      resource.KindLoadBalancer,
			Status:    resource.StatusActive,
			ParentIDs: []string{cluster},
			Attrs: map[string]string{
				"name":    aws.ToString(byArn[arn].LoadBalancerName),
				"ownedBy": cluster,
			},
		})
	}
	return out, nil
}

func (p *Provider) DeleteLoadBalancer(ctx context.Context, arn string) error {
	_, err := p.elbClient.DeleteLoadBalancer(ctx, &elbv2.DeleteLoadBalancerInput{
		LoadBalancerArn: aws.String(arn),
	})
	if err != nil {
		if cloud.IsNotFound(err) {
			return nil
		}
		return cloud.Classify(fmt.Errorf("delete load balancer %s: %w", arn, err))
	}
	return nil
}
