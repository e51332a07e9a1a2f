package engine

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the RED-pattern instruments the engine emits during a run.
// A zero-value Metrics (nil meter) makes every call a no-op, so callers
// that don't care about observability never have to construct one.
type Metrics struct {
	nodeExecutions     metric.Int64Counter
	determinismAudits  metric.Int64Counter
	determinismFailure metric.Int64Counter
}

// NewMetrics builds instruments against the given MeterProvider's "mk10pro/engine"
// meter. Pass nil to disable instrumentation entirely.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		return &Metrics{}, nil
	}
	meter := provider.Meter("mk10pro/engine")

	nodeExecutions, err := meter.Int64Counter("engine.node_executions",
		metric.WithDescription("number of node executions, one per node; determinism re-executions are not counted"))
	if err != nil {
		return nil, err
	}
	determinismAudits, err := meter.Int64Counter("engine.determinism_audits",
		metric.WithDescription("number of determinism audits performed"))
	if err != nil {
		return nil, err
	}
	determinismFailures, err := meter.Int64Counter("engine.determinism_audit_failures",
		metric.WithDescription("number of determinism audits that found a divergent output"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		nodeExecutions:     nodeExecutions,
		determinismAudits:  determinismAudits,
		determinismFailure: determinismFailures,
	}, nil
}

func (m *Metrics) recordNodeExecution(ctx context.Context) {
	if m == nil || m.nodeExecutions == nil {
		return
	}
	m.nodeExecutions.Add(ctx, 1)
}

func (m *Metrics) recordDeterminismAudit(ctx context.Context, failed bool) {
	if m == nil || m.determinismAudits == nil {
		return
	}
	m.determinismAudits.Add(ctx, 1)
	if failed && m.determinismFailure != nil {
		m.determinismFailure.Add(ctx, 1)
	}
}
