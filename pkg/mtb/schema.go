package mtb

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaDoc describes the bundle's fixed top-level sections. It is
// intentionally permissive about section internals — the evidence log and
// policy engine already enforce those shapes — and exists to catch a bundle
// that is missing a required section entirely or has misshapen top-level
// types, independent of and prior to any semantic check.
const schemaDoc = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://mk10pro.example/schema/mtb.json",
  "type": "object",
  "required": ["ingest_manifest", "lineage_dag", "build_evidence", "policy_evidence", "validation_evidence", "approval_events"],
  "properties": {
    "ingest_manifest": {"type": "array"},
    "lineage_dag": {
      "type": "object",
      "required": ["node_ids", "edges"],
      "properties": {
        "node_ids": {"type": "array", "items": {"type": "string"}},
        "edges": {"type": "array", "items": {"type": "string"}},
        "merkle_root": {"type": "string"}
      }
    },
    "build_evidence": {
      "type": "object",
      "required": ["events"],
      "properties": {
        "events": {"type": "array"},
        "frozen": {"type": "boolean"}
      }
    },
    "policy_evidence": {"type": "array"},
    "validation_evidence": {"type": "array"},
    "approval_events": {"type": "array"},
    "archive_declaration": {"type": ["object", "null"]},
    "integrity_proof": {
      "type": ["object", "null"],
      "properties": {
        "alg": {"type": "string"},
        "hash": {"type": "string"}
      }
    },
    "signer_public_keys": {"type": ["object", "null"]}
  }
}`

var compiledSchema *jsonschema.Schema

func init() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("mtb.json", bytes.NewReader([]byte(schemaDoc))); err != nil {
		panic(fmt.Sprintf("mtb: compile embedded schema: %v", err))
	}
	s, err := c.Compile("mtb.json")
	if err != nil {
		panic(fmt.Sprintf("mtb: compile embedded schema: %v", err))
	}
	compiledSchema = s
}

// ValidateSchema checks b's shape against the fixed bundle schema. It
// round-trips through JSON rather than reusing any already-decoded value,
// since that is exactly the path a hostile verifier takes: raw bundle bytes
// in, nothing assumed.
func ValidateSchema(raw []byte) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("mtb: schema: invalid JSON: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("mtb: schema: %w", err)
	}
	return nil
}
