// Package mtb assembles, seals, and hostilely verifies the Master Truth
// Bundle: a sealed, self-contained, independently verifiable record of an
// ingest, its lineage, and every piece of evidence gathered about it.
package mtb

import (
	"fmt"
	"time"

	"github.com/mk10pro/truthcore/pkg/evidence"
	"github.com/mk10pro/truthcore/pkg/execctx"
	"github.com/mk10pro/truthcore/pkg/merkle"
	"github.com/mk10pro/truthcore/pkg/policy"
)

// LineageDAG is an enriched restatement of the run's DAG shape plus an
// optional Merkle summary root over every content address it references.
type LineageDAG struct {
	NodeIDs    []string `json:"node_ids"`
	Edges      []string `json:"edges"`
	MerkleRoot string   `json:"merkle_root,omitempty"`
}

// ValidationRecord is one format validator's result, as recorded evidence.
type ValidationRecord struct {
	Format  string                 `json:"format"`
	Passed  bool                   `json:"passed"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ApprovalEvent is a human or external collaborator's approval of a
// transition. Timestamp is caller-supplied; if zero, the builder derives
// it from the evidence log (base_time + last_seq*Delta) rather than
// consulting the wall clock.
type ApprovalEvent struct {
	ApproverID string    `json:"approver_id"`
	Decision   string    `json:"decision"`
	Timestamp  time.Time `json:"timestamp"`
	Signature  string    `json:"signature,omitempty"`
}

// ArchiveDeclaration marks a RELEASE's archival; it is what gates
// RELEASE→ARCHIVED along with an integrity proof.
type ArchiveDeclaration struct {
	Declared  bool      `json:"declared"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// IntegrityProof is the seal: {alg, hash} over the canonical bundle with
// this field itself removed.
type IntegrityProof struct {
	Alg  string `json:"alg"`
	Hash string `json:"hash"`
}

// Bundle is the MTB: a mapping with fixed top-level sections, in the fixed
// order given here (struct field order is JSON key emission order for
// on-disk/debug forms; the canonical form re-sorts keys regardless).
type Bundle struct {
	IngestManifest      []execctx.IngestAsset  `json:"ingest_manifest"`
	LineageDAG          LineageDAG             `json:"lineage_dag"`
	BuildEvidence       evidence.Log           `json:"build_evidence"`
	PolicyEvidence      []policy.Check         `json:"policy_evidence"`
	ValidationEvidence  []ValidationRecord     `json:"validation_evidence"`
	ApprovalEvents      []ApprovalEvent        `json:"approval_events"`
	ArchiveDeclaration  *ArchiveDeclaration    `json:"archive_declaration,omitempty"`
	IntegrityProof      *IntegrityProof        `json:"integrity_proof,omitempty"`

	// SignerPublicKeys embeds the PEM public key for each approver_id that
	// signed one of ApprovalEvents, so a verifier needs no external key
	// store — only the bundle bytes.
	SignerPublicKeys map[string]string `json:"signer_public_keys,omitempty"`
}

// BuildInput carries everything the Builder needs to assemble a Bundle.
type BuildInput struct {
	Context             *execctx.Context
	BuildEvidence       evidence.Log
	PolicyEvidence       []policy.Check
	ValidationEvidence  []ValidationRecord
	ApprovalEvents      []ApprovalEvent
	ArchiveDeclaration  *ArchiveDeclaration
}

// Build assembles the fixed sections from §3. It never consults the wall
// clock: any ApprovalEvent or ArchiveDeclaration with a zero Timestamp gets
// one derived from the run's own evidence (base_time + last_seq*Delta).
func Build(in BuildInput) (*Bundle, error) {
	if in.Context == nil {
		return nil, fmt.Errorf("mtb: build: context is required")
	}
	g := in.Context.Graph()
	nodeIDs := append([]string{}, g.NodeIDs()...)

	edgeStrs := make([]string, 0)
	for _, e := range g.Edges() {
		edgeStrs = append(edgeStrs, fmt.Sprintf("%s.%s->%s.%s", e.From.Node, e.From.Port, e.To.Node, e.To.Port))
	}

	addrs := collectAddresses(in.Context, in.BuildEvidence)
	root, err := merkle.Root(addrs)
	if err != nil {
		return nil, fmt.Errorf("mtb: compute merkle root: %w", err)
	}

	derivedTime := derivedTimestamp(in.Context, in.BuildEvidence)

	approvals := make([]ApprovalEvent, len(in.ApprovalEvents))
	for i, a := range in.ApprovalEvents {
		if a.Timestamp.IsZero() {
			a.Timestamp = derivedTime
		}
		approvals[i] = a
	}

	var archive *ArchiveDeclaration
	if in.ArchiveDeclaration != nil {
		cp := *in.ArchiveDeclaration
		if cp.Timestamp.IsZero() {
			cp.Timestamp = derivedTime
		}
		archive = &cp
	}

	// Empty sections are emitted as [] rather than null, as the schema
	// requires arrays for them.
	policyEvidence := append([]policy.Check{}, in.PolicyEvidence...)
	validationEvidence := append([]ValidationRecord{}, in.ValidationEvidence...)

	return &Bundle{
		IngestManifest: in.Context.Assets(),
		LineageDAG: LineageDAG{
			NodeIDs:    nodeIDs,
			Edges:      edgeStrs,
			MerkleRoot: root,
		},
		BuildEvidence:      in.BuildEvidence,
		PolicyEvidence:     policyEvidence,
		ValidationEvidence: validationEvidence,
		ApprovalEvents:     approvals,
		ArchiveDeclaration: archive,
	}, nil
}

func collectAddresses(ec *execctx.Context, log evidence.Log) []string {
	var addrs []string
	for _, a := range ec.Assets() {
		addrs = append(addrs, a.ContentAddress)
	}
	for _, e := range log.Events {
		if e.Kind != evidence.KindNodeExecution {
			continue
		}
		for _, key := range []string{"inputs", "outputs"} {
			m, _ := e.Payload[key].(map[string]interface{})
			for _, v := range m {
				if s, ok := v.(string); ok {
					addrs = append(addrs, s)
				}
			}
		}
	}
	return addrs
}

func derivedTimestamp(ec *execctx.Context, log evidence.Log) time.Time {
	if len(log.Events) == 0 {
		return ec.BaseTime()
	}
	last := log.Events[len(log.Events)-1]
	return ec.BaseTime().Add(time.Duration(last.Seq) * evidence.Delta)
}

// DeriveTimestamp returns a deterministic timestamp for an event (e.g. an
// approval) recorded against an already-built bundle, where no live
// ExecutionContext is available: the last recorded event's own timestamp.
// An empty log derives nothing and returns the zero time.
func DeriveTimestamp(log evidence.Log) time.Time {
	if len(log.Events) == 0 {
		return time.Time{}
	}
	return log.Events[len(log.Events)-1].Timestamp
}
