package aws

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/resource"
)

type s3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

func (p *Provider) listBuckets(ctx context.Context, deploymentTag string) ([]resource.Resource, error) {
	resp, err := p.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, cloud.Classify(fmt.Errorf("list buckets: %w", err))
	}

	var out []resource.Resource
	for _, bucket := range resp.Buckets {
		name := aws.ToString(bucket.Name)
		tags, err := p.s3Client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: bucket.Name})
		if err != nil {
			var ae smithy.APIError
			if errors.As(err, &ae) && ae.ErrorCode() == "NoSuchTagSet" {
				continue
			}
			if cloud.IsNotFound(err) {
				continue
			}
			return nil, cloud.Classify(fmt.Errorf("get tagging for bucket %s: %w", name, err))
		}
		for _, tag := range tags.TagSet {
			if aws.ToString(tag.Key) == TagKey && aws.ToString(tag.Value) == deploymentTag {
				out = append(out, resource.Resource{
					ID:            name,
					Kind:          resource.KindObjectStore,
					Status:        resource.StatusActive,
					DeploymentTag: deploymentTag,
				})
				break
			}
		}
	}
	return out, nil
}

// CountBucketVersions enumerates every version and delete marker. "Current"
// objects being gone does not mean the store is empty.
func (p *Provider) CountBucketVersions(ctx context.Context, bucket string) (cloud.BucketCensus, error) {
	var census cloud.BucketCensus
	var keyMarker, versionMarker *string
	for {
		resp, err := p.s3Client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket:          aws.String(bucket),
			KeyMarker:       keyMarker,
			VersionIdMarker: versionMarker,
		})
		if err != nil {
			if cloud.IsNotFound(err) {
				return cloud.BucketCensus{}, nil
			}
			return census, cloud.Classify(fmt.Errorf("list versions in %s: %w", bucket, err))
		}
		census.Versions += len(resp.Versions)
		census.DeleteMarkers += len(resp.DeleteMarkers)
		if !aws.ToBool(resp.IsTruncated) {
			return census, nil
		}
		keyMarker = resp.NextKeyMarker
		versionMarker = resp.NextVersionIdMarker
	}
}

// PurgeBucket deletes every object version and delete marker, page by page.
// Pages are deleted sequentially and rate-limited; deleting across buckets
// in parallel is the executor's job.
func (p *Provider) PurgeBucket(ctx context.Context, bucket string) (int, error) {
	deleted := 0
	for {
		if err := p.purgeLimiter.Wait(ctx); err != nil {
			return deleted, cloud.Classify(err)
		}

		resp, err := p.s3Client.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket: aws.String(bucket),
		})
		if err != nil {
			if cloud.IsNotFound(err) {
				return deleted, nil
			}
			return deleted, cloud.Classify(fmt.Errorf("list versions in %s: %w", bucket, err))
		}

		objects := make([]types.ObjectIdentifier, 0, len(resp.Versions)+len(resp.DeleteMarkers))
		for _, v := range resp.Versions {
			objects = append(objects, types.ObjectIdentifier{Key: v.Key, VersionId: v.VersionId})
		}
		for _, m := range resp.DeleteMarkers {
			objects = append(objects, types.ObjectIdentifier{Key: m.Key, VersionId: m.VersionId})
		}
		if len(objects) == 0 {
			return deleted, nil
		}

		del, err := p.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return deleted, cloud.Classify(fmt.Errorf("delete versions in %s: %w", bucket, err))
		}
		if len(del.Errors) > 0 {
			first := del.Errors[0]
			if len(del.Errors) == len(objects) {
				// No progress this page; bail instead of spinning.
				class := cloud.ErrDependencyBlocked
				if strings.HasPrefix(aws.ToString(first.Code), "AccessDenied") {
					class = cloud.ErrPermissionDenied
				}
				return deleted, fmt.Errorf("%w: purge of %s stalled: %s: %s",
					class, bucket, aws.ToString(first.Code), aws.ToString(first.Message))
			}
		}
		deleted += len(objects) - len(del.Errors)
	}
}
