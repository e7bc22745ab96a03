package namespace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/federatedmcp/gateway/pkg/namespace"
)

func TestJoinSplitRoundTrip(t *testing.T) {
	tests := []struct {
		ns, name string
	}{
		{"echo", "say"},
		{"a", "b_c"},
		{"weather", "forecast_tomorrow"},
	}
	for _, tt := range tests {
		full := namespace.Join(tt.ns, tt.name)
		gotNS, gotName, err := namespace.Split(full)
		require.NoError(t, err)
		assert.Equal(t, tt.ns, gotNS)
		assert.Equal(t, tt.name, gotName)
	}
}

func TestSplitLeftBiased(t *testing.T) {
	ns, name, err := namespace.Split("b_greet_loudly")
	require.NoError(t, err)
	assert.Equal(t, "b", ns)
	assert.Equal(t, "greet_loudly", name)
}

func TestSplitErrors(t *testing.T) {
	_, _, err := namespace.Split("noseparator")
	assert.Error(t, err)

	_, _, err = namespace.Split("_leadingonly")
	assert.Error(t, err)
}

func TestIsNamespaced(t *testing.T) {
	assert.True(t, namespace.IsNamespaced("a_b"))
	assert.False(t, namespace.IsNamespaced("ab"))
}

func TestValid(t *testing.T) {
	assert.True(t, namespace.Valid("echo"))
	assert.False(t, namespace.Valid(""))
	assert.False(t, namespace.Valid("has_underscore"))
}
