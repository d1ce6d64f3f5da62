// Package aws implements the cloud API against AWS. Each service lives in
// its own file behind a narrow client interface so the listing and draining
// loops are testable without the network.
package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/resource"
)

// TagKey is the resource tag correlating cloud objects to a deployment.
const TagKey = "deployment"

// purgeRate bounds DeleteObjects pages per second within one bucket.
const purgeRate = 5

type Provider struct {
	cfg aws.Config

	ec2Client ec2API
	s3Client  s3API
	elbClient elbAPI
	eksClient eksAPI
	ddbClient ddbAPI

	purgeLimiter  *rate.Limiter
	drainInterval time.Duration
}

// New loads the default AWS credential chain and builds clients for every
// service the orchestrator touches.
func New(ctx context.Context, region string) (*Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to load AWS config: %v", cloud.ErrProviderUnavailable, err)
	}

	return &Provider{
		cfg:           cfg,
		ec2Client:     ec2.NewFromConfig(cfg),
		s3Client:      s3.NewFromConfig(cfg),
		elbClient:     elasticloadbalancingv2.NewFromConfig(cfg),
		eksClient:     eks.NewFromConfig(cfg),
		ddbClient:     dynamodb.NewFromConfig(cfg),
		purgeLimiter:  rate.NewLimiter(rate.Limit(purgeRate), 1),
		drainInterval: 15 * time.Second,
	}, nil
}

// Config exposes the loaded AWS config so collaborators (the manifest lock)
// can build their own clients from the same credential chain.
func (p *Provider) Config() aws.Config { return p.cfg }

// ListResources aggregates every deployment-tagged resource across the
// services in scope. Read-only.
func (p *Provider) ListResources(ctx context.Context, deploymentTag string) ([]resource.Resource, error) {
	var out []resource.Resource

	networks, err := p.listNetworking(ctx, deploymentTag)
	if err != nil {
		return nil, err
	}
	out = append(out, networks...)

	clusters, err := p.listClusters(ctx, deploymentTag)
	if err != nil {
		return nil, err
	}
	out = append(out, clusters...)

	balancers, err := p.listLoadBalancing(ctx, deploymentTag)
	if err != nil {
		return nil, err
	}
	out = append(out, balancers...)

	buckets, err := p.listBuckets(ctx, deploymentTag)
	if err != nil {
		return nil, err
	}
	out = append(out, buckets...)

	tables, err := p.listLockTables(ctx, deploymentTag)
	if err != nil {
		return nil, err
	}
	out = append(out, tables...)

	return out, nil
}

var _ cloud.API = (*Provider)(nil)
