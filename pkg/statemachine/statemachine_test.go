package statemachine

import (
	"testing"
	"time"

	"github.com/mk10pro/truthcore/pkg/evidence"
	"github.com/mk10pro/truthcore/pkg/policy"
	"github.com/stretchr/testify/require"
)

func rules(t *testing.T) *policy.Set {
	t.Helper()
	s, err := policy.LoadRules([]byte(`
rules:
  - id: r-evidence
    predicate_kind: evidence_required
  - id: r-validation
    predicate_kind: validation_required
`))
	require.NoError(t, err)
	return s
}

func TestRejectsDisallowedEdge(t *testing.T) {
	_, _, _, err := Transition(rules(t), evidence.Log{}, policy.StateDraft, policy.StateRelease)
	require.Error(t, err)
	var ist *InvalidStateTransition
	require.ErrorAs(t, err, &ist)
}

func TestRejectsPreExecutionApproval(t *testing.T) {
	allowed, _, _, err := Transition(rules(t), evidence.Log{}, policy.StateDraft, policy.StateCandidate)
	require.False(t, allowed)
	require.Error(t, err)
}

func TestAllowsValidEdgeWithSatisfiedEvidence(t *testing.T) {
	r := evidence.NewRecorder(time.Unix(0, 0).UTC())
	_, _ = r.Record(evidence.KindExecutionComplete, nil)
	_, _ = r.Record(evidence.KindValidation, map[string]interface{}{"format": "DCP", "passed": true})
	log := r.Freeze()

	allowed, next, _, err := Transition(rules(t), log, policy.StateDraft, policy.StateCandidate)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, policy.StateCandidate, next)
}

// releaseRules declares every predicate CANDIDATE->RELEASE requires except
// immutability_required and playability_required.
func releaseRules(t *testing.T) *policy.Set {
	t.Helper()
	s, err := policy.LoadRules([]byte(`
rules:
  - id: r-evidence
    predicate_kind: evidence_required
  - id: r-validation
    predicate_kind: validation_required
  - id: r-determinism
    predicate_kind: determinism_required
  - id: r-lineage
    predicate_kind: lineage_required
`))
	require.NoError(t, err)
	return s
}

func TestRejectsReleaseWithoutImmutabilityAndPlayabilityRules(t *testing.T) {
	r := evidence.NewRecorder(time.Unix(0, 0).UTC())
	_, _ = r.Record(evidence.KindExecutionComplete, nil)
	_, _ = r.Record(evidence.KindValidation, map[string]interface{}{"format": "DCP", "passed": true})
	log := r.Freeze()

	allowed, _, checks, err := Transition(releaseRules(t), log, policy.StateCandidate, policy.StateRelease)
	require.NoError(t, err)
	require.False(t, allowed, "a rule set missing required RELEASE predicates must never gate open")
	require.NotEmpty(t, checks)
}

// archiveRules declares both predicates RELEASE->ARCHIVED requires.
func archiveRules(t *testing.T) *policy.Set {
	t.Helper()
	s, err := policy.LoadRules([]byte(`
rules:
  - id: r-immutability
    predicate_kind: immutability_required
  - id: r-archive
    predicate_kind: archive_declaration_required
`))
	require.NoError(t, err)
	return s
}

func TestRejectsArchiveWithoutDeclaration(t *testing.T) {
	r := evidence.NewRecorder(time.Unix(0, 0).UTC())
	_, _ = r.Record(evidence.KindExecutionComplete, nil)
	log := r.Freeze()

	allowed, _, checks, err := Transition(archiveRules(t), log, policy.StateRelease, policy.StateArchived)
	require.NoError(t, err)
	require.False(t, allowed, "RELEASE->ARCHIVED must never gate open without a recorded archive declaration")
	require.NotEmpty(t, checks)
}

func TestAllowsArchiveWithDeclaration(t *testing.T) {
	r := evidence.NewRecorder(time.Unix(0, 0).UTC())
	_, _ = r.Record(evidence.KindExecutionComplete, nil)
	_, _ = r.Record(evidence.KindArchiveDeclaration, map[string]interface{}{"declared": true, "reason": "end of life"})
	log := r.Freeze()

	allowed, next, _, err := Transition(archiveRules(t), log, policy.StateRelease, policy.StateArchived)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, policy.StateArchived, next)
}
