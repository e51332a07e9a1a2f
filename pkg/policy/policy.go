// Package policy applies an immutable, fixed-predicate rule set to a
// frozen evidence log and decides whether a state transition is allowed.
// The engine has no override: rules come only from a declarative source
// selecting among a fixed enumerated predicate_kind set, never from
// arbitrary expressions.
package policy

import (
	"fmt"

	"github.com/mk10pro/truthcore/pkg/evidence"
)

// PredicateKind enumerates the fixed, closed set of rule predicates.
type PredicateKind string

const (
	PredicateDeterminismRequired        PredicateKind = "determinism_required"
	PredicateEvidenceRequired           PredicateKind = "evidence_required"
	PredicateLineageRequired            PredicateKind = "lineage_required"
	PredicateValidationRequired         PredicateKind = "validation_required"
	PredicateImmutabilityRequired       PredicateKind = "immutability_required"
	PredicatePlayabilityRequired        PredicateKind = "playability_required"
	PredicateArchiveDeclarationRequired PredicateKind = "archive_declaration_required"
)

var knownPredicates = map[PredicateKind]bool{
	PredicateDeterminismRequired:        true,
	PredicateEvidenceRequired:           true,
	PredicateLineageRequired:            true,
	PredicateValidationRequired:         true,
	PredicateImmutabilityRequired:       true,
	PredicatePlayabilityRequired:        true,
	PredicateArchiveDeclarationRequired: true,
}

// Rule is {id, predicate_kind, parameters}.
type Rule struct {
	ID            string                 `json:"id" yaml:"id"`
	PredicateKind PredicateKind          `json:"predicate_kind" yaml:"predicate_kind"`
	Parameters    map[string]interface{} `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// UnknownRule is returned by the loader when a rule file names a predicate
// outside the fixed set.
type UnknownRule struct {
	ID            string
	PredicateKind PredicateKind
}

func (e *UnknownRule) Error() string {
	return fmt.Sprintf("unknown rule %q: predicate kind %q is not recognized", e.ID, e.PredicateKind)
}

// Check is the result of evaluating one rule: {rule_id, passed, details}.
type Check struct {
	RuleID  string                 `json:"rule_id"`
	Passed  bool                   `json:"passed"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RuleViolation wraps a failed required-rule check.
type RuleViolation struct {
	Checks []Check
}

func (e *RuleViolation) Error() string {
	return fmt.Sprintf("%d policy rule(s) failed", len(e.Checks))
}

// Set is an immutable collection of rules, validated at load time. Once
// constructed it offers no API to add, remove, or reinterpret a rule — the
// engine's is_strict() predicate below always returns true.
type Set struct {
	rules []Rule
}

// NewSet validates and wraps rules. Any rule naming an unrecognized
// predicate_kind fails the whole load — a malformed rule file never
// silently drops one rule and proceeds.
func NewSet(rules []Rule) (*Set, error) {
	for _, r := range rules {
		if !knownPredicates[r.PredicateKind] {
			return nil, &UnknownRule{ID: r.ID, PredicateKind: r.PredicateKind}
		}
	}
	cp := append([]Rule{}, rules...)
	return &Set{rules: cp}, nil
}

// Rules returns a copy of the rule set's contents.
func (s *Set) Rules() []Rule {
	return append([]Rule{}, s.rules...)
}

// IsStrict is hard-coded true: configuration supplies only the location of
// the rules file, never the ability to relax enforcement.
func (s *Set) IsStrict() bool { return true }

// requiredPredicates returns the fixed set of predicate kinds a transition
// into target must be backed by, per §4.9. Nil for any state that is never
// a valid transition target on its own (i.e. StateDraft).
func requiredPredicates(target State) []PredicateKind {
	switch target {
	case StateCandidate:
		return []PredicateKind{PredicateEvidenceRequired, PredicateValidationRequired}
	case StateRelease:
		return []PredicateKind{
			PredicateDeterminismRequired, PredicateEvidenceRequired, PredicateLineageRequired,
			PredicateValidationRequired, PredicateImmutabilityRequired, PredicatePlayabilityRequired,
		}
	case StateArchived:
		// §4.9: RELEASE->ARCHIVED requires an archive declaration and
		// integrity proof. The integrity proof is the bundle's seal itself
		// (always recomputed at resealing); the declaration is checked as
		// evidence, since CheckTransition only ever sees the evidence log.
		return []PredicateKind{PredicateImmutabilityRequired, PredicateArchiveDeclarationRequired}
	default:
		return nil
	}
}

// RulesForState returns the subset of rules required for a given target
// state, per the fixed transition table in §4.9. A required predicate with
// no matching declared rule is simply absent from the result — callers
// that need fail-closed behavior for an entirely undeclared predicate must
// use CheckTransition, which synthesizes a failing check for it.
func RulesForState(s *Set, target State) []Rule {
	required := requiredPredicates(target)
	if required == nil {
		return nil
	}
	want := make(map[PredicateKind]bool, len(required))
	for _, p := range required {
		want[p] = true
	}
	var out []Rule
	for _, r := range s.rules {
		if want[r.PredicateKind] {
			out = append(out, r)
		}
	}
	return out
}

// CheckTransition evaluates every rule required for target against log and
// returns whether all passed. A rule file is never trusted to have
// declared every predicate a target state needs: any required predicate
// kind with zero matching rules fails closed with a synthetic check,
// rather than being silently skipped — a rule file that happens to omit
// immutability_required must never let a RELEASE slip through on the
// strength of the rules it does declare.
func CheckTransition(s *Set, log evidence.Log, current, target State) (allowed bool, checks []Check) {
	required := requiredPredicates(target)
	wanted := make(map[PredicateKind]bool, len(required))
	for _, p := range required {
		wanted[p] = true
	}

	allowed = true
	present := make(map[PredicateKind]bool, len(required))
	for _, r := range s.rules {
		if !wanted[r.PredicateKind] {
			continue
		}
		present[r.PredicateKind] = true
		c := evaluate(r, log)
		checks = append(checks, c)
		if !c.Passed {
			allowed = false
		}
	}

	for _, p := range required {
		if present[p] {
			continue
		}
		allowed = false
		checks = append(checks, Check{RuleID: "<none>", Passed: false, Details: map[string]interface{}{
			"reason": fmt.Sprintf("no rule declared for required predicate %q at target state %s", p, target),
		}})
	}

	return allowed, checks
}

// EvaluateAll evaluates every rule in s against log unconditionally — used
// by the hostile MTB verifier, which has no notion of "the target state"
// and simply reports every rule's pass/fail against the evidence it finds.
func EvaluateAll(s *Set, log evidence.Log) []Check {
	checks := make([]Check, 0, len(s.rules))
	for _, r := range s.rules {
		checks = append(checks, evaluate(r, log))
	}
	return checks
}

func evaluate(r Rule, log evidence.Log) Check {
	switch r.PredicateKind {
	case PredicateDeterminismRequired:
		return checkDeterminismRequired(r, log)
	case PredicateEvidenceRequired:
		return checkEvidenceRequired(r, log)
	case PredicateLineageRequired:
		return checkLineageRequired(r, log)
	case PredicateValidationRequired:
		return checkValidationRequired(r, log)
	case PredicateImmutabilityRequired:
		return checkImmutabilityRequired(r, log)
	case PredicatePlayabilityRequired:
		return checkPlayabilityRequired(r, log)
	case PredicateArchiveDeclarationRequired:
		return checkArchiveDeclarationRequired(r, log)
	default:
		return Check{RuleID: r.ID, Passed: false, Details: map[string]interface{}{"reason": "unreachable: unknown predicate"}}
	}
}
