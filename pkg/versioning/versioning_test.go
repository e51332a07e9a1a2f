package versioning

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckAcceptsWithinRange(t *testing.T) {
	require.NoError(t, Check("1.2.0", ">= 1.0.0, < 2.0.0"))
}

func TestCheckRejectsOutOfRange(t *testing.T) {
	err := Check("3.0.0", ">= 1.0.0, < 2.0.0")
	require.Error(t, err)
	var uv *UnsupportedVersion
	require.ErrorAs(t, err, &uv)
}

func TestCheckDefaultsEmptyVersion(t *testing.T) {
	require.NoError(t, Check("", ">= 1.0.0, < 2.0.0"))
}
