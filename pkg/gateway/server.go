// Package gateway is the stdio front-end: an MCP server bound to process
// stdin/stdout whose tool and prompt registrations mirror the router's
// aggregated capability set, dispatching every call back through it.
package gateway

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/federatedmcp/gateway/pkg/log"
	"github.com/federatedmcp/gateway/pkg/router"
)

// Implementation identifies this gateway to the connecting MCP client.
var Implementation = &mcp.Implementation{
	Name:    "federated-mcp-gateway",
	Version: "1.0.0",
}

// Server is an MCP server bound to stdio whose handlers delegate to a
// router. RegisterCapabilities must be called at least once before
// Serve attaches the transport.
type Server struct {
	router    *router.Router
	mcpServer *mcp.Server

	registeredTools   []string
	registeredPrompts []string
}

// New returns a Server delegating to r. Tool/prompt listChanged
// capability is implicit in the SDK once AddTool/AddPrompt are called by
// RegisterCapabilities.
func New(r *router.Router) *Server {
	mcpServer := mcp.NewServer(Implementation, &mcp.ServerOptions{
		HasTools:   true,
		HasPrompts: true,
		InitializedHandler: func(_ context.Context, req *mcp.InitializedRequest) {
			clientInfo := req.Session.InitializeParams().ClientInfo
			log.Info("gateway", "client initialized", "name", clientInfo.Name, "version", clientInfo.Version)
		},
	})
	return &Server{router: r, mcpServer: mcpServer}
}

// RegisterCapabilities clears any previously registered tools/prompts
// and re-registers them from the router's current capability set. The
// first call (before Serve attaches the transport) is the initial
// registration the orchestrator requires; the orchestrator calls it again
// once the router has connected, to register the live set.
func (s *Server) RegisterCapabilities(ctx context.Context) error {
	tools, err := s.router.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("gateway: listing tools for registration: %w", err)
	}
	prompts, err := s.router.ListPrompts(ctx)
	if err != nil {
		return fmt.Errorf("gateway: listing prompts for registration: %w", err)
	}

	if len(s.registeredTools) > 0 {
		s.mcpServer.RemoveTools(s.registeredTools...)
	}
	if len(s.registeredPrompts) > 0 {
		s.mcpServer.RemovePrompts(s.registeredPrompts...)
	}

	s.registeredTools = s.registeredTools[:0]
	s.registeredPrompts = s.registeredPrompts[:0]

	for _, tool := range tools {
		tool := tool
		s.mcpServer.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.router.RouteToolCall(ctx, req.Params)
		})
		s.registeredTools = append(s.registeredTools, tool.Name)
	}
	for _, prompt := range prompts {
		prompt := prompt
		s.mcpServer.AddPrompt(prompt, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return s.router.RouteGetPrompt(ctx, req.Params)
		})
		s.registeredPrompts = append(s.registeredPrompts, prompt.Name)
	}

	log.Info("gateway", "capabilities registered", "tools", len(s.registeredTools), "prompts", len(s.registeredPrompts))
	return nil
}

// Serve attaches the stdio transport and blocks until the client
// disconnects or ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if len(s.registeredTools) == 0 && len(s.registeredPrompts) == 0 {
		log.Warn("gateway", "serving with no registered tools or prompts")
	}
	transport := &mcp.StdioTransport{}
	return s.mcpServer.Run(ctx, transport)
}

// Notify sends a logging/message notification to the connected client,
// used by the orchestrator on start and stop.
func (s *Server) Notify(ctx context.Context, level, message string) {
	s.mcpServer.Log(ctx, &mcp.LoggingMessageParams{
		Level: mcp.LoggingLevel(level),
		Data:  message,
	})
}
