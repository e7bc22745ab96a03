package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/federatedmcp/gateway/pkg/config"
	"github.com/federatedmcp/gateway/pkg/transport"
)

func TestConnectStdioSpawnFailed(t *testing.T) {
	pc := config.ProviderConfig{
		Type:      config.ProviderTypeStdio,
		Namespace: "ghost",
		Stdio:     &config.StdioParams{Command: "definitely-not-a-real-binary-xyz"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := transport.Connect(ctx, pc)
	require.Error(t, err)

	var terr *transport.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, transport.KindSpawnFailed, terr.Kind)
	assert.Equal(t, "ghost", terr.Namespace)
}

func TestConnectSSEInvalidURL(t *testing.T) {
	pc := config.ProviderConfig{
		Type:      config.ProviderTypeSSE,
		Namespace: "weather",
		SSE:       &config.SSEParams{URL: "not-a-url"},
	}

	_, err := transport.Connect(context.Background(), pc)
	require.Error(t, err)

	var terr *transport.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, transport.KindURLInvalid, terr.Kind)
}

func TestConnectUnknownType(t *testing.T) {
	pc := config.ProviderConfig{Type: "carrier-pigeon", Namespace: "x"}

	_, err := transport.Connect(context.Background(), pc)
	require.Error(t, err)

	var terr *transport.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, transport.KindURLInvalid, terr.Kind)
}

func TestConnectStdioEmptyCommand(t *testing.T) {
	pc := config.ProviderConfig{
		Type:      config.ProviderTypeStdio,
		Namespace: "empty",
		Stdio:     &config.StdioParams{},
	}

	_, err := transport.Connect(context.Background(), pc)
	require.Error(t, err)

	var terr *transport.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, transport.KindSpawnFailed, terr.Kind)
}
