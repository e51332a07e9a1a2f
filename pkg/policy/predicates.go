package policy

import (
	"fmt"

	"github.com/mk10pro/truthcore/pkg/evidence"
)

func checkDeterminismRequired(r Rule, log evidence.Log) Check {
	total := 0
	verified := 0
	for _, e := range log.Events {
		if e.Kind != evidence.KindNodeExecution {
			continue
		}
		total++
		if v, _ := e.Payload["determinism_verified"].(bool); v {
			verified++
		}
	}
	passed := total == verified
	return Check{RuleID: r.ID, Passed: passed, Details: map[string]interface{}{
		"node_executions": total, "determinism_verified": verified,
	}}
}

func checkEvidenceRequired(r Rule, log evidence.Log) Check {
	for _, e := range log.Events {
		if e.Kind == evidence.KindExecutionComplete {
			return Check{RuleID: r.ID, Passed: true}
		}
	}
	return Check{RuleID: r.ID, Passed: false, Details: map[string]interface{}{"reason": "no execution_complete event"}}
}

func checkLineageRequired(r Rule, log evidence.Log) Check {
	known := make(map[string]bool)
	for _, e := range log.Events {
		if e.Kind == evidence.KindIngestRecorded {
			if addr, _ := e.Payload["content_address"].(string); addr != "" {
				known[addr] = true
			}
		}
	}
	for _, e := range log.Events {
		if e.Kind != evidence.KindNodeExecution {
			continue
		}
		for _, addrSet := range []string{"inputs", "outputs"} {
			m, _ := e.Payload[addrSet].(map[string]interface{})
			for _, v := range m {
				if addr, ok := v.(string); ok {
					known[addr] = true
				}
			}
		}
	}
	var missing []string
	for _, e := range log.Events {
		if e.Kind != evidence.KindNodeExecution {
			continue
		}
		inputs, _ := e.Payload["inputs"].(map[string]interface{})
		for _, v := range inputs {
			addr, _ := v.(string)
			if addr != "" && !known[addr] {
				missing = append(missing, addr)
			}
		}
	}
	if len(missing) > 0 {
		return Check{RuleID: r.ID, Passed: false, Details: map[string]interface{}{"missing_addresses": missing}}
	}
	return Check{RuleID: r.ID, Passed: true}
}

func checkValidationRequired(r Rule, log evidence.Log) Check {
	passingByFormat := make(map[string]bool)
	seenFormats := make(map[string]bool)
	for _, e := range log.Events {
		if e.Kind != evidence.KindValidation {
			continue
		}
		format, _ := e.Payload["format"].(string)
		seenFormats[format] = true
		if passed, _ := e.Payload["passed"].(bool); passed {
			passingByFormat[format] = true
		}
	}
	if len(seenFormats) == 0 {
		return Check{RuleID: r.ID, Passed: false, Details: map[string]interface{}{"reason": "no validation events present"}}
	}
	for format := range seenFormats {
		if !passingByFormat[format] {
			return Check{RuleID: r.ID, Passed: false, Details: map[string]interface{}{"reason": fmt.Sprintf("format %q has no passing validation", format)}}
		}
	}
	return Check{RuleID: r.ID, Passed: true}
}

func checkImmutabilityRequired(r Rule, log evidence.Log) Check {
	return Check{RuleID: r.ID, Passed: log.Frozen}
}

func checkArchiveDeclarationRequired(r Rule, log evidence.Log) Check {
	for _, e := range log.Events {
		if e.Kind != evidence.KindArchiveDeclaration {
			continue
		}
		if declared, _ := e.Payload["declared"].(bool); declared {
			return Check{RuleID: r.ID, Passed: true}
		}
	}
	return Check{RuleID: r.ID, Passed: false, Details: map[string]interface{}{
		"reason": "no archive_declaration event with declared=true",
	}}
}

func checkPlayabilityRequired(r Rule, log evidence.Log) Check {
	for _, e := range log.Events {
		if e.Kind != evidence.KindValidation {
			continue
		}
		format, _ := e.Payload["format"].(string)
		passed, _ := e.Payload["passed"].(bool)
		if format == "structural-conformance" && passed {
			return Check{RuleID: r.ID, Passed: true}
		}
	}
	return Check{RuleID: r.ID, Passed: false, Details: map[string]interface{}{
		"reason": "no passing structural-conformance validation (playback on devices is out of scope; only structural conformance is checked)",
	}}
}
