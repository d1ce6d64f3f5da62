package report

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unwindhq/unwind/internal/cloud"
	"github.com/unwindhq/unwind/internal/inventory"
	"github.com/unwindhq/unwind/internal/manifest"
	"github.com/unwindhq/unwind/internal/resource"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		snap     *resource.Snapshot
		expected Classification
		exitCode int
	}{
		{
			name:     "clean",
			snap:     &resource.Snapshot{},
			expected: Clean,
			exitCode: 0,
		},
		{
			name: "manifest only",
			snap: &resource.Snapshot{
				Manifest: []resource.ManifestEntry{{Address: "aws_vpc.main", Kind: resource.KindNetwork}},
			},
			expected: ManifestOnly,
			exitCode: 2,
		},
		{
			name: "resources remain",
			snap: &resource.Snapshot{
				Live: []resource.Resource{{ID: "vpc-1", Kind: resource.KindNetwork, Status: resource.StatusActive}},
			},
			expected: ResourcesRemain,
			exitCode: 1,
		},
		{
			name: "deleting counts as progress",
			snap: &resource.Snapshot{
				Live: []resource.Resource{{ID: "nat-1", Kind: resource.KindNatGateway, Status: resource.StatusDeleting}},
			},
			expected: Clean,
			exitCode: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := Classify(tt.snap)
			assert.Equal(t, tt.expected, rep.Classification)
			assert.Equal(t, tt.exitCode, rep.Classification.ExitCode())
		})
	}
}

type stubRunner struct {
	mu    sync.Mutex
	state string
}

func (r *stubRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return []byte(r.state), nil
}

func TestVerifyRescans(t *testing.T) {
	fake := cloud.NewFake()
	fake.Resources = []resource.Resource{
		{ID: "vpc-1", Kind: resource.KindNetwork, Status: resource.StatusActive, DeploymentTag: "demo-v1"},
	}
	mgr := manifest.NewManager(".", &stubRunner{state: `{"format_version": "1.0"}`}, nil)
	reporter := NewReporter(inventory.NewScanner(fake, mgr, "demo-v1"))

	rep, err := reporter.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ResourcesRemain, rep.Classification)
	require.Len(t, rep.Residual, 1)
	assert.Equal(t, "vpc-1", rep.Residual[0].ID)

	fake.RemoveResource("vpc-1")
	rep, err = reporter.Verify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Clean, rep.Classification)
}
