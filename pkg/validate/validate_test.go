package validate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func structuralConformance(artifacts map[string]string) (Result, error) {
	if _, ok := artifacts["manifest"]; !ok {
		return Result{Passed: false, Details: map[string]interface{}{"reason": "missing manifest artifact"}}, nil
	}
	return Result{Passed: true}, nil
}

func TestValidateDispatchesToRegisteredFormat(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("structural-conformance", structuralConformance))

	res, err := r.Validate("structural-conformance", map[string]string{"manifest": "addr-1"})
	require.NoError(t, err)
	require.True(t, res.Passed)
	require.Equal(t, "structural-conformance", res.Format)
}

func TestValidateReportsFailureWithoutError(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("structural-conformance", structuralConformance))

	res, err := r.Validate("structural-conformance", map[string]string{})
	require.NoError(t, err)
	require.False(t, res.Passed)
}

func TestValidateUnknownFormat(t *testing.T) {
	r := NewRegistry()
	_, err := r.Validate("nonexistent", nil)
	require.Error(t, err)
	var uf *UnknownFormat
	require.ErrorAs(t, err, &uf)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	noop := func(map[string]string) (Result, error) { return Result{Passed: true}, nil }
	require.NoError(t, r.Register("fmt-a", noop))
	err := r.Register("fmt-a", noop)
	require.Error(t, err)
	var dup *DuplicateFormat
	require.ErrorAs(t, err, &dup)
}

func TestMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry()
	noop := func(map[string]string) (Result, error) { return Result{Passed: true}, nil }
	r.MustRegister("fmt-a", noop)
	require.Panics(t, func() { r.MustRegister("fmt-a", noop) })
}

func TestValidatorErrorIsWrapped(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("broken", func(map[string]string) (Result, error) {
		return Result{}, fmt.Errorf("artifact unreadable")
	}))
	_, err := r.Validate("broken", nil)
	require.Error(t, err)
}
