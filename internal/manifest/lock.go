package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/logging"
)

// LockClient is the DynamoDB subset the lock needs.
type LockClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Lock is the external mutual-exclusion mechanism guarding the state
// manifest: a conditional item in the deployment's lock table, keyed the
// same way the declarative manager keys its own locks.
type Lock struct {
	client  LockClient
	table   string
	lockKey string
	holder  string

	// maxWait bounds how long Acquire retries on conflicts.
	maxWait time.Duration
}

// NewLock builds a lock on the given table for the given manifest path key.
func NewLock(client LockClient, table, lockKey string) *Lock {
	return &Lock{
		client:  client,
		table:   table,
		lockKey: lockKey,
		holder:  fmt.Sprintf("unwind/%d/%s", os.Getpid(), uuid.NewString()),
		maxWait: 2 * time.Minute,
	}
}

// Acquire takes the lock, retrying with exponential backoff while another
// process holds it. A conflict that outlasts the backoff budget surfaces as
// LockConflict.
func (l *Lock) Acquire(ctx context.Context) error {
	attempt := func() error {
		_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(l.table),
			Item: map[string]types.AttributeValue{
				"LockID":  &types.AttributeValueMemberS{Value: l.lockKey},
				"Info":    &types.AttributeValueMemberS{Value: l.holder},
				"Created": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
			},
			ConditionExpression: aws.String("attribute_not_exists(LockID)"),
		})
		if err != nil {
			var conflict *types.ConditionalCheckFailedException
			if errors.As(err, &conflict) {
				return fmt.Errorf("%w: %s held by another process", cloud.ErrLockConflict, l.lockKey)
			}
			return backoff.Permanent(cloud.Classify(fmt.Errorf("acquire manifest lock: %w", err)))
		}
		logging.With("manifest").Debug("acquired manifest lock", "table", l.table, "key", l.lockKey)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 1 * time.Second
	policy.MaxInterval = 15 * time.Second
	policy.MaxElapsedTime = l.maxWait

	return backoff.Retry(attempt, backoff.WithContext(policy, ctx))
}

// Release drops the lock if we still hold it. Releasing a lock another
// process has since taken over is refused, not forced.
func (l *Lock) Release(ctx context.Context) error {
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.table),
		Key: map[string]types.AttributeValue{
			"LockID": &types.AttributeValueMemberS{Value: l.lockKey},
		},
		ConditionExpression: aws.String("Info = :holder"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":holder": &types.AttributeValueMemberS{Value: l.holder},
		},
	})
	if err != nil {
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return fmt.Errorf("%w: lock %s no longer held by this process", cloud.ErrLockConflict, l.lockKey)
		}
		return cloud.Classify(fmt.Errorf("release manifest lock: %w", err))
	}
	return nil
}
