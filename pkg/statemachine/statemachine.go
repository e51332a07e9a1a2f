// Package statemachine holds the four MTB lifecycle states and the fixed,
// evidence-gated transition table. It is a pure function: it owns no
// storage and consults no clock, per §4.14.
package statemachine

import (
	"fmt"

	"github.com/mk10pro/truthcore/pkg/evidence"
	"github.com/mk10pro/truthcore/pkg/policy"
)

// InvalidStateTransition is returned when the (current, desired) pair is
// not in the fixed table, or when the log carries no evidence at all — the
// conservative default for pre-execution approvals (§9 Open Question).
type InvalidStateTransition struct {
	Current policy.State
	Desired policy.State
	Reason  string
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s: %s", e.Current, e.Desired, e.Reason)
}

// allowedEdges is the fixed transition table: DRAFT→CANDIDATE,
// CANDIDATE→RELEASE, RELEASE→ARCHIVED. No other edge exists.
var allowedEdges = map[policy.State]policy.State{
	policy.StateDraft:     policy.StateCandidate,
	policy.StateCandidate: policy.StateRelease,
	policy.StateRelease:   policy.StateArchived,
}

// Transition evaluates whether log's evidence satisfies every rule the
// rule set requires for the (current, desired) edge. It never mutates
// anything; the caller persists the returned next state.
func Transition(rules *policy.Set, log evidence.Log, current, desired policy.State) (allowed bool, next policy.State, checks []policy.Check, err error) {
	want, ok := allowedEdges[current]
	if !ok || want != desired {
		return false, current, nil, &InvalidStateTransition{
			Current: current, Desired: desired,
			Reason: "not a permitted edge in the fixed lifecycle table",
		}
	}
	if len(log.Events) == 0 {
		return false, current, nil, &InvalidStateTransition{
			Current: current, Desired: desired,
			Reason: "no evidence exists for this run; pre-execution approvals are rejected",
		}
	}

	allowed, checks = policy.CheckTransition(rules, log, current, desired)
	if !allowed {
		return false, current, checks, nil
	}
	return true, desired, checks, nil
}

// Payload builds the state_transition evidence payload for a transition
// result (§ EXPANSION: a rejected or accepted promotion is itself
// evidence) — the caller's own Recorder performs the append via
// evidence.Recorder.Record(evidence.KindStateTransition, Payload(...)).
func Payload(current, desired policy.State, checks []policy.Check) map[string]interface{} {
	serializedChecks := make([]map[string]interface{}, 0, len(checks))
	for _, c := range checks {
		serializedChecks = append(serializedChecks, map[string]interface{}{
			"rule_id": c.RuleID,
			"passed":  c.Passed,
			"details": c.Details,
		})
	}
	return map[string]interface{}{
		"from":   string(current),
		"to":     string(desired),
		"checks": serializedChecks,
	}
}
