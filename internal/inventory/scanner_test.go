package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/manifest"
	"github.com/unwindhq/unwind/internal/resource"
)

const emptyState = `{"format_version": "1.0", "terraform_version": "1.7.4"}`

type stubRunner struct {
	mu    sync.Mutex
	state string
}

func (r *stubRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return []byte(r.state), nil
}

func newTestScanner(fake *cloud.Fake) *Scanner {
	mgr := manifest.NewManager(".", &stubRunner{state: emptyState}, nil)
	return NewScanner(fake, mgr, "demo-v1")
}

func TestScanFiltersByDeploymentTag(t *testing.T) {
	fake := cloud.NewFake()
	fake.Resources = []resource.Resource{
		{ID: "vpc-1", Kind: resource.KindNetwork, Status: resource.StatusActive, DeploymentTag: "demo-v1"},
		{ID: "vpc-2", Kind: resource.KindNetwork, Status: resource.StatusActive, DeploymentTag: "other"},
	}

	snap, err := newTestScanner(fake).Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Live, 1)
	assert.Equal(t, "vpc-1", snap.Live[0].ID)
	assert.Empty(t, snap.Manifest)
}

func TestScanExcludesReappearedGoneResources(t *testing.T) {
	fake := cloud.NewFake()
	fake.Resources = []resource.Resource{
		{ID: "vpc-1", Kind: resource.KindNetwork, Status: resource.StatusActive, DeploymentTag: "demo-v1"},
		{ID: "eni-1", Kind: resource.KindInterface, Status: resource.StatusActive, DeploymentTag: "demo-v1"},
	}

	scanner := newTestScanner(fake)
	scanner.MarkGone("eni-1")

	snap, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Live, 1)
	assert.Equal(t, "vpc-1", snap.Live[0].ID)
}

func TestScanExcludesReleasedResources(t *testing.T) {
	fake := cloud.NewFake()
	fake.Resources = []resource.Resource{
		{ID: "vpc-1", Kind: resource.KindNetwork, Status: resource.StatusActive, DeploymentTag: "demo-v1"},
		{ID: "igw-1", Kind: resource.KindNetwork, Status: resource.StatusActive, DeploymentTag: "demo-v1"},
	}

	scanner := newTestScanner(fake)
	scanner.Release("igw-1")

	// The provider keeps serving the released resource; every scan after the
	// release leaves it out.
	for i := 0; i < 2; i++ {
		snap, err := scanner.Scan(context.Background())
		require.NoError(t, err)
		require.Len(t, snap.Live, 1)
		assert.Equal(t, "vpc-1", snap.Live[0].ID)
	}
}

func TestDiffMarksDisappearedResources(t *testing.T) {
	fake := cloud.NewFake()
	fake.Resources = []resource.Resource{
		{ID: "vpc-1", Kind: resource.KindNetwork, Status: resource.StatusActive, DeploymentTag: "demo-v1"},
		{ID: "eni-1", Kind: resource.KindInterface, Status: resource.StatusActive, DeploymentTag: "demo-v1"},
	}
	scanner := newTestScanner(fake)

	prev, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	fake.RemoveResource("eni-1")
	cur, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	scanner.Diff(prev, cur)

	// The provider briefly shows the deleted interface again; the scanner
	// treats that as an anomaly, not as residue.
	fake.Resources = append(fake.Resources, resource.Resource{
		ID: "eni-1", Kind: resource.KindInterface, Status: resource.StatusActive, DeploymentTag: "demo-v1",
	})
	again, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, again.Live, 1)
	assert.Equal(t, "vpc-1", again.Live[0].ID)
}

func TestScanSurfacesProviderFailure(t *testing.T) {
	fake := cloud.NewFake()
	fake.Errs["ListResources/demo-v1"] = cloud.ErrProviderUnavailable

	_, err := newTestScanner(fake).Scan(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cloud.ErrProviderUnavailable)
}
