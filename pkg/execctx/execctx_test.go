package execctx

import (
	"testing"
	"time"

	"github.com/mk10pro/truthcore/pkg/dag"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T) *dag.Graph {
	t.Helper()
	g := dag.New("test")
	require.NoError(t, g.AddNode(dag.Node{ID: "A", Type: "passthrough"}))
	return g
}

func TestNewDerivesBaseTimeDeterministically(t *testing.T) {
	g := buildGraph(t)
	c1, err := New(g, nil, WithWorkspaceID("ws-1"))
	require.NoError(t, err)
	c2, err := New(g, nil, WithWorkspaceID("ws-2"))
	require.NoError(t, err)
	require.Equal(t, c1.BaseTime(), c2.BaseTime(), "base_time depends only on the DAG fingerprint")
}

func TestNewHonorsExplicitBaseTime(t *testing.T) {
	g := buildGraph(t)
	explicit := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := New(g, nil, WithBaseTime(explicit))
	require.NoError(t, err)
	require.Equal(t, explicit, c.BaseTime())
}

func TestExecutionIDDeterministic(t *testing.T) {
	g := buildGraph(t)
	c1, err := New(g, nil, WithWorkspaceID("ws"))
	require.NoError(t, err)
	c2, err := New(g, nil, WithWorkspaceID("ws"))
	require.NoError(t, err)

	id1, err := c1.ExecutionID()
	require.NoError(t, err)
	id2, err := c2.ExecutionID()
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestExecutionIDDiffersByWorkspace(t *testing.T) {
	g := buildGraph(t)
	c1, err := New(g, nil, WithWorkspaceID("ws-1"))
	require.NoError(t, err)
	c2, err := New(g, nil, WithWorkspaceID("ws-2"))
	require.NoError(t, err)

	id1, err := c1.ExecutionID()
	require.NoError(t, err)
	id2, err := c2.ExecutionID()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}

func TestAssetLookup(t *testing.T) {
	g := buildGraph(t)
	assets := []IngestAsset{{ContentAddress: "sha256:abc", Path: "in.bin", Hash: "abc", Size: 3}}
	c, err := New(g, assets)
	require.NoError(t, err)

	a, ok := c.Asset("sha256:abc")
	require.True(t, ok)
	require.Equal(t, "in.bin", a.Path)

	_, ok = c.Asset("sha256:missing")
	require.False(t, ok)
}
