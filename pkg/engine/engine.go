package engine

import (
	"context"
	"fmt"

	"github.com/mk10pro/truthcore/pkg/dag"
	"github.com/mk10pro/truthcore/pkg/evidence"
	"github.com/mk10pro/truthcore/pkg/execctx"
	"github.com/mk10pro/truthcore/pkg/node"
	"github.com/mk10pro/truthcore/pkg/validate"
)

// AuditCache memoizes determinism-audit results keyed by
// (node type, config fingerprint, input addresses), letting a caller trade
// the spec's audit-every default for audit-once-per-shape. The default
// implementation (NoAuditCache) never hits, preserving audit-every.
type AuditCache interface {
	Get(key string) (outputs map[string]string, ok bool)
	Put(key string, outputs map[string]string)
}

// NoAuditCache never remembers anything; every node execution gets its own
// re-execution audit, matching the spec's stated default.
type NoAuditCache struct{}

func (NoAuditCache) Get(string) (map[string]string, bool) { return nil, false }
func (NoAuditCache) Put(string, map[string]string)        {}

// Engine drives one DAG execution.
type Engine struct {
	registry          *node.Registry
	metrics           *Metrics
	auditCache        AuditCache
	validators        *validate.Registry
	validationFormats []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches ambient instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithAuditCache overrides the default audit-every behavior.
func WithAuditCache(c AuditCache) Option {
	return func(e *Engine) { e.auditCache = c }
}

// WithValidation wires a format-validator registry: after every node has
// executed and before execution_complete, the engine runs each named format
// against the run's final output addresses and records the result as a
// validation event, per §4.13 ("their results are recorded as validation
// evidence by the engine").
func WithValidation(registry *validate.Registry, formats ...string) Option {
	return func(e *Engine) {
		e.validators = registry
		e.validationFormats = formats
	}
}

// New builds an Engine against a node registry.
func New(registry *node.Registry, opts ...Option) *Engine {
	e := &Engine{registry: registry, auditCache: NoAuditCache{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of a single run.
type Result struct {
	ExecutionID string
	Log         evidence.Log
	Outputs     map[string]map[string]string // node id -> port -> content address
}

// Run executes ec's DAG, driving evidence through a fresh Recorder, and
// returns the frozen log plus the per-node output addresses.
func (e *Engine) Run(ctx context.Context, ec *execctx.Context) (Result, error) {
	g := ec.Graph()
	recorder := evidence.NewRecorder(ec.BaseTime())

	execID, err := ec.ExecutionID()
	if err != nil {
		return Result{}, fmt.Errorf("engine: execution id: %w", err)
	}
	fingerprint := ec.Fingerprint()

	if _, err := recorder.Record(evidence.KindExecutionStart, map[string]interface{}{
		"execution_id": execID,
		"fingerprint":  fingerprint,
		"workspace_id": ec.WorkspaceID(),
	}); err != nil {
		return Result{}, err
	}

	for _, a := range ec.Assets() {
		if _, err := recorder.Record(evidence.KindIngestRecorded, map[string]interface{}{
			"content_address": a.ContentAddress,
			"hash":             a.Hash,
		}); err != nil {
			return Result{}, err
		}
	}

	requiredPorts := make(map[string][]string)
	outputs := make(map[string]map[string]string)

	order, err := g.TopoOrder()
	if err != nil {
		return Result{}, err
	}

	// Planning pass: instantiate every node once to learn its declared
	// input ports before any execution begins, satisfying "Missing input
	// port: PortMismatch during planning."
	nodes := make(map[string]node.Node, len(order))
	for _, id := range order {
		decl, _ := g.Node(id)
		n, err := e.registry.New(decl.Type, decl.ID, decl.Config)
		if err != nil {
			return Result{}, err
		}
		nodes[id] = n
		requiredPorts[id] = n.Inputs()
	}
	if err := g.ValidateRequiredPorts(requiredPorts); err != nil {
		return Result{}, err
	}

	for _, id := range order {
		select {
		case <-ctx.Done():
			if _, rerr := recorder.Record(evidence.KindExecutionFailure, map[string]interface{}{
				"node_id": id,
				"kind":    "cancelled",
			}); rerr != nil {
				return Result{}, rerr
			}
			recorder.Freeze()
			return Result{}, &Cancelled{}
		default:
		}

		n := nodes[id]
		inputs, err := e.resolveInputs(g, ec, outputs, id, n.Inputs())
		if err != nil {
			return Result{}, err
		}

		nodeOutputs, err := n.Execute(ctx, inputs)
		if err != nil {
			if _, rerr := recorder.Record(evidence.KindExecutionFailure, map[string]interface{}{
				"node_id": id,
				"kind":    "node_error",
				"message": err.Error(),
			}); rerr != nil {
				return Result{}, rerr
			}
			recorder.Freeze()
			return Result{}, &ExecutionFailure{NodeID: id, Kind: "node_error", Cause: err}
		}

		auditPassed, err := e.auditDeterminism(ctx, id, n, inputs, nodeOutputs)
		if err != nil {
			if _, rerr := recorder.Record(evidence.KindExecutionFailure, map[string]interface{}{
				"node_id": id,
				"kind":    "nondeterministic",
			}); rerr != nil {
				return Result{}, rerr
			}
			recorder.Freeze()
			return Result{}, err
		}

		outputs[id] = nodeOutputs
		e.metrics.recordNodeExecution(ctx)

		configFP, err := configFingerprint(n.Config())
		if err != nil {
			return Result{}, err
		}

		if _, err := recorder.Record(evidence.KindNodeExecution, map[string]interface{}{
			"node_id":              id,
			"node_type":            n.Type(),
			"config_fingerprint":   configFP,
			"inputs":               inputs,
			"outputs":              nodeOutputs,
			"determinism_verified": auditPassed,
		}); err != nil {
			return Result{}, err
		}
	}

	if e.validators != nil {
		flatArtifacts := flattenOutputs(outputs)
		for _, format := range e.validationFormats {
			res, err := e.validators.Validate(format, flatArtifacts)
			if err != nil {
				return Result{}, fmt.Errorf("engine: validate format %q: %w", format, err)
			}
			if _, rerr := recorder.Record(evidence.KindValidation, map[string]interface{}{
				"format":  res.Format,
				"passed":  res.Passed,
				"details": res.Details,
			}); rerr != nil {
				return Result{}, rerr
			}
		}
	}

	finalOutputs := make(map[string]interface{}, len(outputs))
	for id, ports := range outputs {
		finalOutputs[id] = ports
	}
	if _, err := recorder.Record(evidence.KindExecutionComplete, map[string]interface{}{
		"execution_id": execID,
		"outputs":      finalOutputs,
	}); err != nil {
		return Result{}, err
	}

	return Result{ExecutionID: execID, Log: recorder.Freeze(), Outputs: outputs}, nil
}

// resolveInputs looks up each declared input port's content address from
// upstream node outputs, or from the ingest table for source ports.
func (e *Engine) resolveInputs(g *dag.Graph, ec *execctx.Context, outputs map[string]map[string]string, nodeID string, declaredPorts []string) (map[string]string, error) {
	result := make(map[string]string, len(declaredPorts))
	for _, port := range declaredPorts {
		edges := g.EdgesInto(nodeID, port)
		if len(edges) != 1 {
			return nil, &dag.PortMismatch{Detail: fmt.Sprintf("node %q port %q: expected exactly one source, found %d", nodeID, port, len(edges))}
		}
		src := edges[0].From
		if addr, ok := lookupIngest(ec, src); ok {
			result[port] = addr
			continue
		}
		upstream, ok := outputs[src.Node]
		if !ok {
			return nil, &dag.PortMismatch{Detail: fmt.Sprintf("node %q port %q: upstream node %q has not executed yet", nodeID, port, src.Node)}
		}
		addr, ok := upstream[src.Port]
		if !ok {
			return nil, &dag.PortMismatch{Detail: fmt.Sprintf("node %q port %q: upstream node %q has no output port %q", nodeID, port, src.Node, src.Port)}
		}
		result[port] = addr
	}
	return result, nil
}

// lookupIngest treats a source-port reference as an ingest asset lookup
// when its node endpoint is a logical ingest key rather than a DAG node —
// source nodes have no upstream producer, only an ingest-table entry.
func lookupIngest(ec *execctx.Context, src dag.Port) (string, bool) {
	a, ok := ec.AssetByKey(src.Node)
	if !ok {
		return "", false
	}
	return a.ContentAddress, true
}

// auditDeterminism re-executes n with the same inputs and config and
// compares output content addresses byte-for-byte.
func (e *Engine) auditDeterminism(ctx context.Context, nodeID string, n node.Node, inputs, firstOutputs map[string]string) (bool, error) {
	key, err := auditCacheKey(n, inputs)
	if err != nil {
		return false, err
	}
	if cached, ok := e.auditCache.Get(key); ok {
		if !outputsEqual(cached, firstOutputs) {
			e.metrics.recordDeterminismAudit(ctx, true)
			return false, &NondeterministicNode{NodeID: nodeID}
		}
		e.metrics.recordDeterminismAudit(ctx, false)
		return true, nil
	}

	secondOutputs, err := n.Execute(ctx, inputs)
	if err != nil {
		return false, &ExecutionFailure{NodeID: nodeID, Kind: "audit_reexecution_error", Cause: err}
	}
	if !outputsEqual(firstOutputs, secondOutputs) {
		e.metrics.recordDeterminismAudit(ctx, true)
		return false, &NondeterministicNode{NodeID: nodeID}
	}
	e.metrics.recordDeterminismAudit(ctx, false)
	e.auditCache.Put(key, firstOutputs)
	return true, nil
}

// flattenOutputs turns {node: {port: address}} into {"node.port": address}
// so format validators see a single flat artifact set, per §4.13.
func flattenOutputs(outputs map[string]map[string]string) map[string]string {
	flat := make(map[string]string)
	for nodeID, ports := range outputs {
		for port, addr := range ports {
			flat[fmt.Sprintf("%s.%s", nodeID, port)] = addr
		}
	}
	return flat
}

func outputsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func auditCacheKey(n node.Node, inputs map[string]string) (string, error) {
	fp, err := configFingerprint(n.Config())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s|%s|%v", n.Type(), fp, inputs), nil
}
