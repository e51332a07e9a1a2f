package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mk10pro/truthcore/pkg/mtb"
	"github.com/stretchr/testify/require"
)

const dagSource = `
id: identity-pipeline
nodes:
  - id: N1
    type: passthrough
edges:
  - from: raw.out
    to: N1.in
`

const rulesSource = `
version: "1"
rules:
  - id: r-evidence
    predicate_kind: evidence_required
  - id: r-determinism
    predicate_kind: determinism_required
  - id: r-validation
    predicate_kind: validation_required
`

func TestFullLifecycle(t *testing.T) {
	dir := t.TempDir()

	assetsDir := filepath.Join(dir, "assets")
	require.NoError(t, os.Mkdir(assetsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assetsDir, "raw.txt"), []byte("abc"), 0o644))

	dagPath := filepath.Join(dir, "dag.yaml")
	require.NoError(t, os.WriteFile(dagPath, []byte(dagSource), 0o644))

	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(rulesSource), 0o644))

	manifestPath := filepath.Join(dir, "manifest.json")
	var out, errOut bytes.Buffer
	code := Run([]string{"mk10pro", "ingest", "--dir", assetsDir, "--out", manifestPath}, &out, &errOut)
	require.Equal(t, exitSuccess, code, errOut.String())

	// the ingest manifest's logical key must match the DAG's "raw" source
	// reference; rewrite the auto-derived "raw.txt" key to "raw".
	manifestBytes, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	rewritten := bytes.ReplaceAll(manifestBytes, []byte(`"key": "raw.txt"`), []byte(`"key": "raw"`))
	require.NoError(t, os.WriteFile(manifestPath, rewritten, 0o644))

	bundlePath := filepath.Join(dir, "bundle.json")
	out.Reset()
	errOut.Reset()
	code = Run([]string{"mk10pro", "execute", "--dag", dagPath, "--ingest", manifestPath, "--workspace", "ws-cli", "--out", bundlePath}, &out, &errOut)
	require.Equal(t, exitSuccess, code, errOut.String())

	promotedPath := filepath.Join(dir, "promoted.json")
	out.Reset()
	errOut.Reset()
	code = Run([]string{"mk10pro", "promote", "--bundle", bundlePath, "--rules", rulesPath, "--from", "draft", "--to", "candidate", "--out", promotedPath}, &out, &errOut)
	require.Equal(t, exitVerifyFail, code, out.String())

	// a rejected promotion is itself recorded as state_transition evidence
	// against the bundle it was attempted on, not just a CLI return code.
	promotedBytes, err := os.ReadFile(promotedPath)
	require.NoError(t, err)
	var promoted mtb.Bundle
	require.NoError(t, json.Unmarshal(promotedBytes, &promoted))
	foundTransition := false
	for _, e := range promoted.BuildEvidence.Events {
		if e.Kind == "state_transition" {
			foundTransition = true
		}
	}
	require.True(t, foundTransition, "expected a recorded state_transition event")

	// the bundle written by execute is unsealed and carries no validation
	// evidence, so hostile verification must reject it (seal check and the
	// validation_required rule both fail).
	out.Reset()
	errOut.Reset()
	code = Run([]string{"mk10pro", "verify", "--bundle", bundlePath, "--rules", rulesPath}, &out, &errOut)
	require.Equal(t, exitVerifyFail, code, out.String()+errOut.String())
}

func TestUnknownCommandIsUserError(t *testing.T) {
	var out, errOut bytes.Buffer
	code := Run([]string{"mk10pro", "bogus"}, &out, &errOut)
	require.Equal(t, exitUserError, code)
}

func TestIngestWithStoreCopiesBytesByContentAddress(t *testing.T) {
	dir := t.TempDir()

	assetsDir := filepath.Join(dir, "assets")
	require.NoError(t, os.Mkdir(assetsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assetsDir, "raw.txt"), []byte("abc"), 0o644))

	manifestPath := filepath.Join(dir, "manifest.json")
	storeDir := filepath.Join(dir, "store")
	var out, errOut bytes.Buffer
	code := Run([]string{"mk10pro", "ingest", "--dir", assetsDir, "--out", manifestPath, "--store", storeDir}, &out, &errOut)
	require.Equal(t, exitSuccess, code, errOut.String())

	// SHA-256("abc") per the spec's test vector.
	const abcAddress = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	stored, err := os.ReadFile(filepath.Join(storeDir, abcAddress))
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), stored)
}
