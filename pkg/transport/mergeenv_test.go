package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeEnvInheritsBaseAndOverlays(t *testing.T) {
	base := []string{"PATH=/usr/bin", "HOME=/root"}
	overlay := map[string]string{"API_KEY": "secret"}

	got := mergeEnv(base, overlay)

	assert.Contains(t, got, "PATH=/usr/bin")
	assert.Contains(t, got, "HOME=/root")
	assert.Contains(t, got, "API_KEY=secret")
}

func TestMergeEnvOverlayWinsOnConflict(t *testing.T) {
	base := []string{"FOO=base"}
	overlay := map[string]string{"FOO": "overlay"}

	got := mergeEnv(base, overlay)

	assert.Contains(t, got, "FOO=overlay")
	assert.NotContains(t, got, "FOO=base")
}

func TestMergeEnvNoOverlayReturnsBaseUnchanged(t *testing.T) {
	base := []string{"PATH=/usr/bin"}

	got := mergeEnv(base, nil)

	assert.Equal(t, base, got)
}
