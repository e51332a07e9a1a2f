package mtb

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mk10pro/truthcore/pkg/canonical"
	"github.com/mk10pro/truthcore/pkg/crypto"
	"github.com/mk10pro/truthcore/pkg/evidence"
	"github.com/mk10pro/truthcore/pkg/policy"
)

// VerifyResult is the hostile verifier's report. Errors accumulate across
// every independent check — a schema failure does not suppress the seal,
// evidence, policy, or lineage checks that follow it. Warnings never flip
// Valid to false; only Errors do.
type VerifyResult struct {
	Valid    bool                   `json:"valid"`
	Errors   []string               `json:"errors,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// Verify runs the six independent checks from §4.12 against a bundle using
// only the bundle's own bytes and a public rule set — no engine, no
// execution context, no external key store. Every check always runs; none
// is skipped because an earlier one failed.
func Verify(b *Bundle, rules *policy.Set) VerifyResult {
	res := VerifyResult{Valid: true, Details: map[string]interface{}{}}

	// 1. Schema.
	raw, err := json.Marshal(b)
	if err != nil {
		res.fail("schema: marshal bundle: %v", err)
	} else if err := ValidateSchema(raw); err != nil {
		res.fail("schema: %v", err)
	}

	// 2. Seal.
	if err := VerifySeal(b); err != nil {
		res.fail("seal: %v", err)
	}

	// 3. Evidence log integrity.
	if err := evidence.VerifyLog(b.BuildEvidence); err != nil {
		res.fail("evidence: %v", err)
	}

	// 4. Policy: every rule in the public rule set evaluated against the
	// bundle's own evidence, independent of any particular target state.
	if rules != nil {
		checks := policy.EvaluateAll(rules, b.BuildEvidence)
		res.Details["policy_checks"] = checks
		for _, c := range checks {
			if !c.Passed {
				res.fail("policy: rule %s failed", c.RuleID)
			}
		}
	}

	// 5. Lineage: every node_execution input address must be traceable to
	// either the ingest manifest or an earlier node's recorded output.
	if err := checkLineageConsistency(b); err != nil {
		res.fail("lineage: %v", err)
	}

	// 6. Signatures: a missing signature is advisory only (§4.12 step 6) —
	// signing is optional, so its absence is a warning. A signature that
	// is present but fails to verify (wrong key, no embedded key, or
	// tampered bytes) is a forgery or corruption and is an error.
	checkSignatures(b, &res)

	return res
}

func (r *VerifyResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func checkLineageConsistency(b *Bundle) error {
	known := make(map[string]bool, len(b.IngestManifest))
	for _, a := range b.IngestManifest {
		known[a.ContentAddress] = true
	}
	for _, e := range b.BuildEvidence.Events {
		if e.Kind != evidence.KindNodeExecution {
			continue
		}
		inputs, _ := e.Payload["inputs"].(map[string]interface{})
		for port, v := range inputs {
			addr, ok := v.(string)
			if !ok {
				continue
			}
			if !known[addr] {
				return fmt.Errorf("node_execution at seq %d: input %q (%s) traces to no known ingest asset or prior output", e.Seq, port, addr)
			}
		}
		outputs, _ := e.Payload["outputs"].(map[string]interface{})
		for _, v := range outputs {
			if addr, ok := v.(string); ok {
				known[addr] = true
			}
		}
	}
	return nil
}

func checkSignatures(b *Bundle, res *VerifyResult) {
	for _, a := range b.ApprovalEvents {
		if a.Signature == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("approval by %s carries no signature", a.ApproverID))
			continue
		}
		pubPEM, ok := b.SignerPublicKeys[a.ApproverID]
		if !ok {
			res.fail("signature: approval by %s is signed but no public key is embedded for that approver", a.ApproverID)
			continue
		}
		payload := approvalSigningPayload{ApproverID: a.ApproverID, Decision: a.Decision, Timestamp: a.Timestamp}
		enc, err := canonical.Encode(payload)
		if err != nil {
			res.fail("signature: approval by %s: canonicalize: %v", a.ApproverID, err)
			continue
		}
		if err := crypto.Verify([]byte(pubPEM), a.Signature, enc); err != nil {
			res.fail("signature: approval by %s: signature does not verify: %v", a.ApproverID, err)
		}
	}
}

// approvalSigningPayload is the shape an approver signs: the event without
// its own signature field, mirroring evidence's "unproofed" pattern.
type approvalSigningPayload struct {
	ApproverID string    `json:"approver_id"`
	Decision   string    `json:"decision"`
	Timestamp  time.Time `json:"timestamp"`
}
