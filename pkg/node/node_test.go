package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassthroughEchoesInput(t *testing.T) {
	r := NewRegistry()
	n, err := r.New("passthrough", "A", nil)
	require.NoError(t, err)

	out, err := n.Execute(context.Background(), map[string]string{"in": "sha256:deadbeef"})
	require.NoError(t, err)
	require.Equal(t, "sha256:deadbeef", out["out"])
}

func TestPassthroughMissingInput(t *testing.T) {
	r := NewRegistry()
	n, err := r.New("passthrough", "A", nil)
	require.NoError(t, err)

	_, err = n.Execute(context.Background(), map[string]string{})
	require.Error(t, err)
}

func TestRegistryUnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.New("nonexistent", "A", nil)
	require.Error(t, err)
	var ut *UnknownNodeType
	require.ErrorAs(t, err, &ut)
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	err := r.Register("passthrough", newPassthrough)
	require.Error(t, err)
}
