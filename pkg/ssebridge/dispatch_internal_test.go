package ssebridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/federatedmcp/gateway/pkg/router"
	"github.com/federatedmcp/gateway/pkg/transport"
)

func TestToolCallErrorResponseClassifiesInvalidParams(t *testing.T) {
	err := &router.InvalidParamsError{Name: "zz_x", Err: context.Canceled}

	resp := toolCallErrorResponse(json.RawMessage(`1`), err)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Nil(t, resp.Error.Data)
}

func TestToolCallErrorResponseClassifiesTimeout(t *testing.T) {
	err := contextDeadlineWrappedErr()

	resp := toolCallErrorResponse(json.RawMessage(`1`), err)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Equal(t, map[string]any{"kind": "timeout"}, resp.Error.Data)
}

func TestToolCallErrorResponseClassifiesGenericUpstreamError(t *testing.T) {
	resp := toolCallErrorResponse(json.RawMessage(`1`), assertErr("boom"))

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Nil(t, resp.Error.Data)
}

func TestDispatchToolCallSurfacesTimeoutKind(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	server := mcp.NewServer(&mcp.Implementation{Name: "slow", Version: "test"}, nil)
	server.AddTool(&mcp.Tool{Name: "slow"}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		<-release
		return &mcp.CallToolResult{}, nil
	})
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	bgCtx := context.Background()
	serverSession, err := server.Connect(bgCtx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "dispatch-test-client", Version: "test"}, nil)
	clientSession, err := client.Connect(bgCtx, clientTransport, nil)
	require.NoError(t, err)

	r := router.New()
	defer r.Stop(bgCtx)
	router.InjectForTest(r, []*transport.Connected{{Namespace: "slow", Session: clientSession}})

	ctx, cancel := context.WithTimeout(bgCtx, 50*time.Millisecond)
	defer cancel()

	params, _ := json.Marshal(mcp.CallToolParams{Name: "slow_slow"})
	resp := dispatch(ctx, r, &Request{ID: json.RawMessage(`1`), Method: "tools/call", Params: params})

	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
	assert.Equal(t, map[string]any{"kind": "timeout"}, resp.Error.Data)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func contextDeadlineWrappedErr() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	return ctx.Err()
}
