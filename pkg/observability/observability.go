// Package observability wires ambient logging and metrics for the MK10-PRO
// binary. It never dials an exporter: every run must be independently
// verifiable from the evidence log and MTB alone, so metrics here exist
// purely for operator visibility, not as a record anything downstream
// trusts. No OTLP endpoint is configured — see DESIGN.md.
package observability

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Config configures the observability Provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	LogLevel       slog.Level
	MetricsEnabled bool
}

// DefaultConfig returns sane local defaults: metrics on, logs at Info, JSON
// structured output.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "mk10pro-truthcore",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		LogLevel:       slog.LevelInfo,
		MetricsEnabled: true,
	}
}

// Provider bundles a structured logger and an in-process meter provider.
type Provider struct {
	config        *Config
	logger        *slog.Logger
	meterProvider metric.MeterProvider
}

// New builds a Provider. If config is nil, DefaultConfig is used.
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig()
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: config.LogLevel})
	logger := slog.New(handler).With(
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
	)

	p := &Provider{config: config, logger: logger}
	if config.MetricsEnabled {
		p.meterProvider = sdkmetric.NewMeterProvider()
	}
	return p
}

// Logger returns the configured structured logger.
func (p *Provider) Logger() *slog.Logger { return p.logger }

// MeterProvider returns the configured metric.MeterProvider, or nil if
// metrics are disabled — callers (engine.NewMetrics) treat nil as a no-op.
func (p *Provider) MeterProvider() metric.MeterProvider { return p.meterProvider }

// Shutdown flushes and releases the meter provider's resources.
func (p *Provider) Shutdown(ctx context.Context) error {
	if mp, ok := p.meterProvider.(*sdkmetric.MeterProvider); ok && mp != nil {
		return mp.Shutdown(ctx)
	}
	return nil
}
