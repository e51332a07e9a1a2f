package engine

import (
	"context"
	"testing"

	"github.com/mk10pro/truthcore/pkg/dag"
	"github.com/mk10pro/truthcore/pkg/evidence"
	"github.com/mk10pro/truthcore/pkg/execctx"
	"github.com/mk10pro/truthcore/pkg/node"
	"github.com/mk10pro/truthcore/pkg/validate"
	"github.com/stretchr/testify/require"
)

const abcAddress = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"

func identityContext(t *testing.T) *execctx.Context {
	t.Helper()
	g := dag.New("identity")
	require.NoError(t, g.AddNode(dag.Node{ID: "N1", Type: "passthrough"}))
	require.NoError(t, g.AddEdge(dag.Edge{From: dag.Port{Node: "raw", Port: "out"}, To: dag.Port{Node: "N1", Port: "in"}}))

	assets := []execctx.IngestAsset{{Key: "raw", ContentAddress: abcAddress, Hash: abcAddress, Size: 3}}
	ec, err := execctx.New(g, assets, execctx.WithWorkspaceID("ws"))
	require.NoError(t, err)
	return ec
}

func TestIdentityPipeline(t *testing.T) {
	eng := New(node.NewRegistry())
	ec := identityContext(t)

	result, err := eng.Run(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, abcAddress, result.Outputs["N1"]["out"])

	kinds := make([]evidence.Kind, len(result.Log.Events))
	for i, e := range result.Log.Events {
		kinds[i] = e.Kind
	}
	require.Equal(t, []evidence.Kind{
		evidence.KindExecutionStart,
		evidence.KindIngestRecorded,
		evidence.KindNodeExecution,
		evidence.KindExecutionComplete,
	}, kinds)
	require.NoError(t, evidence.VerifyLog(result.Log))
}

func TestEmptyDAGSealsWithNoNodeEvents(t *testing.T) {
	g := dag.New("empty")
	ec, err := execctx.New(g, nil, execctx.WithWorkspaceID("ws"))
	require.NoError(t, err)

	eng := New(node.NewRegistry())
	result, err := eng.Run(context.Background(), ec)
	require.NoError(t, err)

	require.Len(t, result.Log.Events, 2)
	require.Equal(t, evidence.KindExecutionStart, result.Log.Events[0].Kind)
	require.Equal(t, evidence.KindExecutionComplete, result.Log.Events[1].Kind)
}

func TestRunRecordsValidationEventsBeforeCompletion(t *testing.T) {
	reg := validate.NewRegistry()
	require.NoError(t, reg.Register("structural-conformance", func(artifacts map[string]string) (validate.Result, error) {
		_, ok := artifacts["N1.out"]
		return validate.Result{Passed: ok}, nil
	}))

	eng := New(node.NewRegistry(), WithValidation(reg, "structural-conformance"))
	ec := identityContext(t)

	result, err := eng.Run(context.Background(), ec)
	require.NoError(t, err)

	kinds := make([]evidence.Kind, len(result.Log.Events))
	for i, e := range result.Log.Events {
		kinds[i] = e.Kind
	}
	require.Equal(t, []evidence.Kind{
		evidence.KindExecutionStart,
		evidence.KindIngestRecorded,
		evidence.KindNodeExecution,
		evidence.KindValidation,
		evidence.KindExecutionComplete,
	}, kinds)

	validationEvent := result.Log.Events[3]
	require.Equal(t, "structural-conformance", validationEvent.Payload["format"])
	require.Equal(t, true, validationEvent.Payload["passed"])
}

func TestCycleAbortsRunWithCycleDetected(t *testing.T) {
	g := dag.New("cyclic")
	require.NoError(t, g.AddNode(dag.Node{ID: "A", Type: "passthrough"}))
	require.NoError(t, g.AddNode(dag.Node{ID: "B", Type: "passthrough"}))
	require.NoError(t, g.AddEdge(dag.Edge{From: dag.Port{Node: "A", Port: "out"}, To: dag.Port{Node: "B", Port: "in"}}))
	require.NoError(t, g.AddEdge(dag.Edge{From: dag.Port{Node: "B", Port: "out"}, To: dag.Port{Node: "A", Port: "in"}}))

	ec, err := execctx.New(g, nil, execctx.WithWorkspaceID("ws"))
	require.NoError(t, err)

	eng := New(node.NewRegistry())
	_, err = eng.Run(context.Background(), ec)
	require.Error(t, err)
	var cd *dag.CycleDetected
	require.ErrorAs(t, err, &cd)
}

// flakyNode returns a different output address on its second Execute call,
// simulating a nondeterministic node type for the determinism-audit test.
type flakyNode struct {
	id    string
	calls int
}

func (f *flakyNode) ID() string                       { return f.id }
func (f *flakyNode) Type() string                     { return "flaky" }
func (f *flakyNode) Config() map[string]interface{}   { return nil }
func (f *flakyNode) Inputs() []string                 { return nil }
func (f *flakyNode) Outputs() []string                { return []string{"out"} }
func (f *flakyNode) Evidence() map[string]interface{} { return nil }

func (f *flakyNode) Execute(context.Context, map[string]string) (map[string]string, error) {
	f.calls++
	return map[string]string{"out": "addr-" + string(rune('0'+f.calls))}, nil
}

func TestDeterminismViolationAbortsRun(t *testing.T) {
	registry := node.NewRegistry()
	require.NoError(t, registry.Register("flaky", func(id string, _ map[string]interface{}) (node.Node, error) {
		return &flakyNode{id: id}, nil
	}))

	g := dag.New("flaky-dag")
	require.NoError(t, g.AddNode(dag.Node{ID: "F", Type: "flaky"}))
	ec, err := execctx.New(g, nil, execctx.WithWorkspaceID("ws"))
	require.NoError(t, err)

	eng := New(registry)
	_, err = eng.Run(context.Background(), ec)
	require.Error(t, err)
	var nd *NondeterministicNode
	require.ErrorAs(t, err, &nd)
}
