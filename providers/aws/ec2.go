package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/resource"
)

type ec2API interface {
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeNatGateways(ctx context.Context, params *ec2.DescribeNatGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error)
	DescribeNetworkInterfaces(ctx context.Context, params *ec2.DescribeNetworkInterfacesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNetworkInterfacesOutput, error)
	DeleteNetworkInterface(ctx context.Context, params *ec2.DeleteNetworkInterfaceInput, optFns ...func(*ec2.Options)) (*ec2.DeleteNetworkInterfaceOutput, error)
}

func tagFilter(deploymentTag string) types.Filter {
	return types.Filter{
		Name:   aws.String("tag:" + TagKey),
		Values: []string{deploymentTag},
	}
}

// listNetworking discovers VPCs, subnets, NAT gateways and the interfaces
// inside the discovered subnets.
func (p *Provider) listNetworking(ctx context.Context, deploymentTag string) ([]resource.Resource, error) {
	var out []resource.Resource

	vpcs, err := p.ec2Client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []types.Filter{tagFilter(deploymentTag)},
	})
	if err != nil {
		return nil, cloud.Classify(fmt.Errorf("describe vpcs: %w", err))
	}
	for _, vpc := range vpcs.Vpcs {
		out = append(out, resource.Resource{
			ID:            aws.ToString(vpc.VpcId),
			Kind:          resource.KindNetwork,
			Status:        resource.StatusActive,
			DeploymentTag: deploymentTag,
		})
	}

	subnets, err := p.ec2Client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []types.Filter{tagFilter(deploymentTag)},
	})
	if err != nil {
		return nil, cloud.Classify(fmt.Errorf("describe subnets: %w", err))
	}
	for _, subnet := range subnets.Subnets {
		out = append(out, resource.Resource{
			ID:            aws.ToString(subnet.SubnetId),
			Kind:          resource.KindSubnet,
			Status:        resource.StatusActive,
			DeploymentTag: deploymentTag,
			ParentIDs:     []string{aws.ToString(subnet.VpcId)},
		})

		enis, err := p.ListInterfaces(ctx, aws.ToString(subnet.SubnetId))
		if err != nil {
			return nil, err
		}
		for _, eni := range enis {
			out = append(out, resource.Resource{
				ID:            eni.ID,
				Kind:          resource.KindInterface,
				Status:        resource.StatusActive,
				DeploymentTag: deploymentTag,
				ParentIDs:     []string{eni.SubnetID},
				Attrs: map[string]string{
					"status":      eni.Status,
					"description": eni.Description,
				},
			})
		}
	}

	nats, err := p.ec2Client.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		Filter: []types.Filter{tagFilter(deploymentTag)},
	})
	if err != nil {
		return nil, cloud.Classify(fmt.Errorf("describe nat gateways: %w", err))
	}
	for _, nat := range nats.NatGateways {
		status := resource.StatusActive
		switch nat.State {
		case types.NatGatewayStateDeleting:
			status = resource.StatusDeleting
		case types.NatGatewayStateDeleted:
			continue
		}
		out = append(out, resource.Resource{
			ID:            aws.ToString(nat.NatGatewayId),
			Kind:          resource.KindNatGateway,
			Status:        status,
			DeploymentTag: deploymentTag,
			ParentIDs:     []string{aws.ToString(nat.SubnetId)},
		})
	}

	return out, nil
}

// ListInterfaces returns every interface inside a subnet, attached or not.
func (p *Provider) ListInterfaces(ctx context.Context, subnetID string) ([]cloud.ENI, error) {
	var out []cloud.ENI
	var nextToken *string
	for {
		resp, err := p.ec2Client.DescribeNetworkInterfaces(ctx, &ec2.DescribeNetworkInterfacesInput{
			Filters: []types.Filter{{
				Name:   aws.String("subnet-id"),
				Values: []string{subnetID},
			}},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, cloud.Classify(fmt.Errorf("describe network interfaces in %s: %w", subnetID, err))
		}
		for _, eni := range resp.NetworkInterfaces {
			item := cloud.ENI{
				ID:          aws.ToString(eni.NetworkInterfaceId),
				SubnetID:    subnetID,
				Status:      string(eni.Status),
				Description: aws.ToString(eni.Description),
			}
			if eni.Attachment != nil {
				item.Attachment = aws.ToString(eni.Attachment.AttachmentId)
			}
			out = append(out, item)
		}
		if resp.NextToken == nil {
			return out, nil
		}
		nextToken = resp.NextToken
	}
}

// DeleteInterface deletes an orphaned interface. An interface that is
// already gone counts as success.
func (p *Provider) DeleteInterface(ctx context.Context, id string) error {
	_, err := p.ec2Client.DeleteNetworkInterface(ctx, &ec2.DeleteNetworkInterfaceInput{
		NetworkInterfaceId: aws.String(id),
	})
	if err != nil {
		if cloud.IsNotFound(err) {
			return nil
		}
		return cloud.Classify(fmt.Errorf("delete network interface %s: %w", id, err))
	}
	return nil
}
