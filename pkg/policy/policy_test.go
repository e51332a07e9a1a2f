package policy

import (
	"testing"
	"time"

	"github.com/mk10pro/truthcore/pkg/evidence"
	"github.com/stretchr/testify/require"
)

func defaultRules(t *testing.T) *Set {
	t.Helper()
	doc := []byte(`
version: "1"
rules:
  - id: r-evidence
    predicate_kind: evidence_required
  - id: r-validation
    predicate_kind: validation_required
  - id: r-determinism
    predicate_kind: determinism_required
  - id: r-lineage
    predicate_kind: lineage_required
  - id: r-immutability
    predicate_kind: immutability_required
  - id: r-playability
    predicate_kind: playability_required
`)
	s, err := LoadRules(doc)
	require.NoError(t, err)
	return s
}

func TestLoadRulesRejectsUnknownPredicate(t *testing.T) {
	_, err := LoadRules([]byte(`
rules:
  - id: bad
    predicate_kind: anything_goes
`))
	require.Error(t, err)
	var ur *UnknownRule
	require.ErrorAs(t, err, &ur)
}

func TestIsStrictAlwaysTrue(t *testing.T) {
	s := defaultRules(t)
	require.True(t, s.IsStrict())
}

func TestCandidateToReleaseWithoutValidationFails(t *testing.T) {
	rules := defaultRules(t)
	r := evidence.NewRecorder(time.Unix(0, 0).UTC())
	_, _ = r.Record(evidence.KindExecutionStart, nil)
	_, _ = r.Record(evidence.KindExecutionComplete, nil)
	log := r.Freeze()

	allowed, checks := CheckTransition(rules, log, StateCandidate, StateRelease)
	require.False(t, allowed)

	var found bool
	for _, c := range checks {
		if c.RuleID == "r-validation" {
			found = true
			require.False(t, c.Passed)
		}
	}
	require.True(t, found)
}

func TestDraftToCandidatePassesWithEvidenceAndValidation(t *testing.T) {
	rules := defaultRules(t)
	r := evidence.NewRecorder(time.Unix(0, 0).UTC())
	_, _ = r.Record(evidence.KindExecutionStart, nil)
	_, _ = r.Record(evidence.KindExecutionComplete, nil)
	_, _ = r.Record(evidence.KindValidation, map[string]interface{}{"format": "DCP", "passed": true})
	log := r.Freeze()

	allowed, checks := CheckTransition(rules, log, StateDraft, StateCandidate)
	require.True(t, allowed)
	for _, c := range checks {
		require.True(t, c.Passed, c.RuleID)
	}
}
