package manifest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/resource"
)

const demoState = `{
  "format_version": "1.0",
  "terraform_version": "1.7.4",
  "values": {
    "root_module": {
      "resources": [
        {"address": "aws_vpc.main", "mode": "managed", "type": "aws_vpc", "name": "main", "provider_name": "registry.terraform.io/hashicorp/aws", "schema_version": 0, "values": {"id": "vpc-1"}},
        {"address": "aws_s3_bucket.logs", "mode": "managed", "type": "aws_s3_bucket", "name": "logs", "provider_name": "registry.terraform.io/hashicorp/aws", "schema_version": 0, "values": {"id": "demo-logs"}},
        {"address": "data.aws_caller_identity.me", "mode": "data", "type": "aws_caller_identity", "name": "me", "provider_name": "registry.terraform.io/hashicorp/aws", "schema_version": 0, "values": {}}
      ],
      "child_modules": [
        {
          "address": "module.network",
          "resources": [
            {"address": "module.network.aws_subnet.private", "mode": "managed", "type": "aws_subnet", "name": "private", "provider_name": "registry.terraform.io/hashicorp/aws", "schema_version": 0, "values": {"id": "subnet-1"}}
          ]
        }
      ]
    }
  }
}`

const emptyState = `{"format_version": "1.0", "terraform_version": "1.7.4"}`

// scriptRunner replays canned state output and records every invocation.
type scriptRunner struct {
	mu    sync.Mutex
	calls [][]string
	state string
	err   error
}

func (r *scriptRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args)
	if len(args) >= 2 && args[0] == "show" && args[1] == "-json" {
		return []byte(r.state), nil
	}
	return nil, r.err
}

type stubLockClient struct {
	putErr  error
	delErr  error
	puts    int
	deletes int
}

func (c *stubLockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.puts++
	if c.putErr != nil {
		return nil, c.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (c *stubLockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	c.deletes++
	if c.delErr != nil {
		return nil, c.delErr
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func testLock(client *stubLockClient) *Lock {
	l := NewLock(client, "demo-locks", "demo-v1/terraform.tfstate")
	l.maxWait = 10 * time.Millisecond
	return l
}

func TestEntriesFlattensModules(t *testing.T) {
	runner := &scriptRunner{state: demoState}
	mgr := NewManager(".", runner, nil)

	entries, err := mgr.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byAddr := make(map[string]resource.ManifestEntry)
	for _, e := range entries {
		byAddr[e.Address] = e
	}
	assert.Equal(t, resource.KindNetwork, byAddr["aws_vpc.main"].Kind)
	assert.Equal(t, "vpc-1", byAddr["aws_vpc.main"].ID)
	assert.Equal(t, resource.KindObjectStore, byAddr["aws_s3_bucket.logs"].Kind)
	assert.Equal(t, resource.KindSubnet, byAddr["module.network.aws_subnet.private"].Kind)

	// Data sources are not teardown targets.
	assert.NotContains(t, byAddr, "data.aws_caller_identity.me")
}

func TestEntriesEmptyState(t *testing.T) {
	mgr := NewManager(".", &scriptRunner{state: emptyState}, nil)
	entries, err := mgr.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAddressesByKind(t *testing.T) {
	mgr := NewManager(".", &scriptRunner{state: demoState}, nil)
	addrs, err := mgr.AddressesByKind(context.Background(), resource.KindSubnet)
	require.NoError(t, err)
	assert.Equal(t, []string{"module.network.aws_subnet.private"}, addrs)
}

func TestDestroyRunsUnderLock(t *testing.T) {
	runner := &scriptRunner{state: demoState}
	client := &stubLockClient{}
	mgr := NewManager(".", runner, testLock(client))

	require.NoError(t, mgr.Destroy(context.Background()))

	assert.Equal(t, 1, client.puts)
	assert.Equal(t, 1, client.deletes)
	require.Len(t, runner.calls, 1)
	args := runner.calls[0]
	assert.Equal(t, "destroy", args[0])
	assert.Contains(t, args, "-auto-approve")
	assert.Contains(t, args, "-lock=false")
}

func TestDestroyTargetsArgs(t *testing.T) {
	runner := &scriptRunner{state: demoState}
	mgr := NewManager(".", runner, testLock(&stubLockClient{}))

	err := mgr.DestroyTargets(context.Background(), []string{"aws_vpc.main", "aws_s3_bucket.logs"})
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	args := runner.calls[0]
	assert.Equal(t, "destroy", args[0])
	assert.Contains(t, args, "-target=aws_vpc.main")
	assert.Contains(t, args, "-target=aws_s3_bucket.logs")
}

func TestDetachArgs(t *testing.T) {
	runner := &scriptRunner{state: demoState}
	mgr := NewManager(".", runner, testLock(&stubLockClient{}))

	require.NoError(t, mgr.Detach(context.Background(), []string{"aws_vpc.main"}))

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{"state", "rm", "-lock=false", "aws_vpc.main"}, runner.calls[0])
}

func TestMutationRefusedWithoutLock(t *testing.T) {
	mgr := NewManager(".", &scriptRunner{state: demoState}, nil)
	assert.Error(t, mgr.Destroy(context.Background()))
	assert.Error(t, mgr.DestroyTargets(context.Background(), []string{"aws_vpc.main"}))
	assert.Error(t, mgr.Detach(context.Background(), []string{"aws_vpc.main"}))
}

func TestLockConflictSurfacesAsLockConflict(t *testing.T) {
	client := &stubLockClient{
		putErr: &types.ConditionalCheckFailedException{Message: aws.String("item exists")},
	}
	err := testLock(client).Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cloud.ErrLockConflict)
}

func TestLockAcquirePermanentFailure(t *testing.T) {
	client := &stubLockClient{putErr: errors.New("dial tcp: connection refused")}
	err := testLock(client).Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cloud.ErrProviderUnavailable)
	assert.Equal(t, 1, client.puts)
}

func TestLockReleaseLostOwnership(t *testing.T) {
	client := &stubLockClient{
		delErr: &types.ConditionalCheckFailedException{Message: aws.String("holder mismatch")},
	}
	err := testLock(client).Release(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cloud.ErrLockConflict)
}

func TestKindFor(t *testing.T) {
	assert.Equal(t, resource.KindNetwork, KindFor("aws_vpc"))
	assert.Equal(t, resource.KindLoadBalancer, KindFor("aws_alb"))
	assert.Equal(t, resource.KindLockTable, KindFor("aws_dynamodb_table"))
	assert.Equal(t, resource.Kind(""), KindFor("aws_iam_role"))
}
