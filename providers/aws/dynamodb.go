package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/resource"
)

type ddbAPI interface {
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	ListTagsOfResource(ctx context.Context, params *dynamodb.ListTagsOfResourceInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTagsOfResourceOutput, error)
}

// listLockTables discovers deployment-tagged DynamoDB tables (the manifest
// lock table is provisioned alongside the deployment).
func (p *Provider) listLockTables(ctx context.Context, deploymentTag string) ([]resource.Resource, error) {
	var out []resource.Resource
	var start *string
	for {
		resp, err := p.ddbClient.ListTables(ctx, &dynamodb.ListTablesInput{ExclusiveStartTableName: start})
		if err != nil {
			return nil, cloud.Classify(fmt.Errorf("list tables: %w", err))
		}
		for _, name := range resp.TableNames {
			desc, err := p.ddbClient.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
			if err != nil {
				if cloud.IsNotFound(err) {
					continue
				}
				return nil, cloud.Classify(fmt.Errorf("describe table %s: %w", name, err))
			}
			table := desc.Table
			if table == nil || table.TableArn == nil {
				continue
			}
			tags, err := p.ddbClient.ListTagsOfResource(ctx, &dynamodb.ListTagsOfResourceInput{
				ResourceArn: table.TableArn,
			})
			if err != nil {
				if cloud.IsNotFound(err) {
					continue
				}
				return nil, cloud.Classify(fmt.Errorf("list tags for table %s: %w", name, err))
			}
			for _, tag := range tags.Tags {
				if aws.ToString(tag.Key) == TagKey && aws.ToString(tag.Value) == deploymentTag {
					status := resource.StatusActive
					if table.TableStatus == types.TableStatusDeleting {
						status = resource.StatusDeleting
					}
					out = append(out, resource.Resource{
						ID:            name,
						Kind:          resource.KindLockTable,
						Status:        status,
						DeploymentTag: deploymentTag,
					})
					break
				}
			}
		}
		if resp.LastEvaluatedTableName == nil {
			return out, nil
		}
		start = resp.LastEvaluatedTableName
	}
}
