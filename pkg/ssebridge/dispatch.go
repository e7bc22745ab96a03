package ssebridge

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/federatedmcp/gateway/pkg/log"
	"github.com/federatedmcp/gateway/pkg/router"
)

// dispatch routes a single JSON-RPC request to the session's router and
// builds the matching response. It never returns nil for a request that
// carries an id; for notifications it returns nil, since notifications
// get no response.
func dispatch(ctx context.Context, r *router.Router, req *Request) *Response {
	if req.IsNotification() && req.Method != "notifications/initialized" {
		return nil
	}
	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]any{
				"tools":   map[string]bool{"listChanged": true},
				"prompts": map[string]bool{"listChanged": true},
			},
			"serverInfo": map[string]string{
				"name":    "federated-mcp-gateway",
				"version": "1.0.0",
			},
		})

	case "notifications/initialized":
		log.Debug("ssebridge", "client initialized")
		return nil

	case "ping":
		return resultResponse(req.ID, map[string]string{"status": "pong"})

	case "tools/list":
		tools, err := r.ListTools(ctx)
		if err != nil {
			return errorResponse(req.ID, CodeInternalError, "failed to list tools", err.Error())
		}
		return resultResponse(req.ID, map[string]any{"tools": tools})

	case "tools/call":
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "malformed tools/call params", err.Error())
		}
		result, err := r.RouteToolCall(ctx, &params)
		if err != nil {
			return toolCallErrorResponse(req.ID, err)
		}
		return resultResponse(req.ID, result)

	case "prompts/list":
		prompts, err := r.ListPrompts(ctx)
		if err != nil {
			return errorResponse(req.ID, CodeInternalError, "failed to list prompts", err.Error())
		}
		return resultResponse(req.ID, map[string]any{"prompts": prompts})

	case "prompts/get":
		var params mcp.GetPromptParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "malformed prompts/get params", err.Error())
		}
		result, err := r.RouteGetPrompt(ctx, &params)
		if err != nil {
			return toolCallErrorResponse(req.ID, err)
		}
		return resultResponse(req.ID, result)

	default:
		return errorResponse(req.ID, CodeMethodNotFound, "method not found", req.Method)
	}
}

// toolCallErrorResponse classifies a router error into the right
// JSON-RPC code: InvalidParamsError becomes -32602, a request-timeout
// carries data.kind = "timeout" so clients can distinguish it from any
// other upstream failure, and everything else is propagated as an
// internal error with the upstream message preserved.
func toolCallErrorResponse(id json.RawMessage, err error) *Response {
	var invalid *router.InvalidParamsError
	if errors.As(err, &invalid) {
		return errorResponse(id, CodeInvalidParams, err.Error(), nil)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errorResponse(id, CodeInternalError, err.Error(), map[string]any{"kind": "timeout"})
	}
	return errorResponse(id, CodeInternalError, err.Error(), nil)
}
