package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mk10pro/truthcore/pkg/config"
	"github.com/mk10pro/truthcore/pkg/dag"
	"github.com/mk10pro/truthcore/pkg/engine"
	"github.com/mk10pro/truthcore/pkg/execctx"
	"github.com/mk10pro/truthcore/pkg/mtb"
	"github.com/mk10pro/truthcore/pkg/node"
	"github.com/mk10pro/truthcore/pkg/observability"
)

// runExecuteCmd implements `mk10pro execute`: runs a DAG against an ingest
// manifest and writes an unsealed bundle — build_evidence populated,
// policy_evidence/validation beyond what the engine itself records left for
// a later `promote` step to fill in.
func runExecuteCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("execute", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dagPath    string
		ingestPath string
		workspace  string
		out        string
	)
	cmd.StringVar(&dagPath, "dag", "", "path to DAG source YAML (REQUIRED)")
	cmd.StringVar(&ingestPath, "ingest", "", "path to ingest manifest JSON produced by `ingest` (REQUIRED)")
	cmd.StringVar(&workspace, "workspace", "", "workspace id; random if omitted")
	cmd.StringVar(&out, "out", "", "output path for the unsealed bundle JSON (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return exitUserError
	}
	if dagPath == "" || ingestPath == "" || out == "" {
		fmt.Fprintln(stderr, "error: --dag, --ingest, and --out are required")
		return exitUserError
	}

	dagBytes, err := os.ReadFile(dagPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: read %s: %v\n", dagPath, err)
		return exitInternalErr
	}
	g, err := dag.Parse(dagBytes)
	if err != nil {
		fmt.Fprintf(stderr, "error: parse DAG: %v\n", err)
		return exitUserError
	}

	ingestBytes, err := os.ReadFile(ingestPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: read %s: %v\n", ingestPath, err)
		return exitInternalErr
	}
	var assets []execctx.IngestAsset
	if err := json.Unmarshal(ingestBytes, &assets); err != nil {
		fmt.Fprintf(stderr, "error: parse ingest manifest: %v\n", err)
		return exitUserError
	}

	var opts []execctx.Option
	if workspace != "" {
		opts = append(opts, execctx.WithWorkspaceID(workspace))
	}
	ec, err := execctx.New(g, assets, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "error: build execution context: %v\n", err)
		return exitInternalErr
	}

	cfg := config.Load()
	obs := observability.New(&observability.Config{MetricsEnabled: cfg.MetricsEnabled, LogLevel: cfg.SlogLevel()})
	log := obs.Logger().With("workspace", ec.WorkspaceID())
	metrics, err := engine.NewMetrics(obs.MeterProvider())
	if err != nil {
		fmt.Fprintf(stderr, "error: init metrics: %v\n", err)
		return exitInternalErr
	}

	log.Info("execution starting", "dag", g.ID)
	eng := engine.New(node.NewRegistry(), engine.WithMetrics(metrics))
	result, err := eng.Run(context.Background(), ec)
	if err != nil {
		log.Error("execution failed", "error", err)
		fmt.Fprintf(stderr, "error: run failed: %v\n", err)
		return exitInternalErr
	}
	log.Info("execution complete", "execution_id", result.ExecutionID)

	bundle, err := mtb.Build(mtb.BuildInput{Context: ec, BuildEvidence: result.Log})
	if err != nil {
		fmt.Fprintf(stderr, "error: build bundle: %v\n", err)
		return exitInternalErr
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "error: marshal bundle: %v\n", err)
		return exitInternalErr
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Fprintf(stderr, "error: write %s: %v\n", out, err)
		return exitInternalErr
	}

	fmt.Fprintf(stdout, "execution %s complete, bundle written to %s\n", result.ExecutionID, out)
	return exitSuccess
}
