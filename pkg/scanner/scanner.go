// Package scanner probes a single provider's capabilities in isolation:
// connect, initialize, list tools and prompts, then disconnect. It never
// keeps the connection open past the probe, so a scan never competes
// with the router's long-lived sessions for the same provider.
package scanner

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/federatedmcp/gateway/pkg/config"
	"github.com/federatedmcp/gateway/pkg/log"
	"github.com/federatedmcp/gateway/pkg/transport"
)

// Status is the outcome tag of a Scan.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Result is a single provider's scan outcome. On StatusFailure, Tools
// and Prompts are nil and Err explains why.
type Result struct {
	Namespace string
	Status    Status
	Tools     []*mcp.Tool
	Prompts   []*mcp.Prompt
	Err       error
}

// DefaultTimeout bounds the whole scan: connect, initialize, and both
// list calls must finish within it.
const DefaultTimeout = 15 * time.Second

// Scan connects to pc, lists its tools and prompts, then disconnects.
// It never returns an error itself: failures are reported in the
// returned Result so a caller scanning many providers concurrently can
// keep going after one fails.
func Scan(ctx context.Context, pc config.ProviderConfig) Result {
	sctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	conn, err := transport.Connect(sctx, pc)
	if err != nil {
		log.Warn("scanner", "scan failed to connect", "namespace", pc.Namespace, "error", err)
		return Result{Namespace: pc.Namespace, Status: StatusFailure, Err: err}
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Warn("scanner", "scan close failed", "namespace", pc.Namespace, "error", cerr)
		}
	}()

	return scanSession(sctx, pc.Namespace, conn.Session)
}

// scanSession lists tools and prompts on an already-connected session and
// classifies the outcome. It is split out from Scan so the listing and
// classification logic can be exercised against an in-memory session in
// tests, independent of how the connection itself was dialed.
func scanSession(ctx context.Context, namespace string, session *mcp.ClientSession) Result {
	toolsResult, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return Result{Namespace: namespace, Status: StatusFailure, Err: err}
	}

	promptsResult, err := session.ListPrompts(ctx, &mcp.ListPromptsParams{})
	if err != nil {
		// A genuine prompts/list failure is a scan failure, same as a
		// failed tools/list: never report partial success.
		return Result{Namespace: namespace, Status: StatusFailure, Err: err}
	}
	prompts := promptsResult.Prompts

	log.Info("scanner", "scan succeeded", "namespace", namespace, "tools", len(toolsResult.Tools), "prompts", len(prompts))

	return Result{
		Namespace: namespace,
		Status:    StatusSuccess,
		Tools:     toolsResult.Tools,
		Prompts:   prompts,
	}
}

// ScanAll scans every provider in providers sequentially and returns one
// Result per provider, in the same order. Concurrency across providers
// is the router's concern, not the scanner's: a scan is meant to be a
// cheap, isolated probe run ad hoc, not a hot path.
func ScanAll(ctx context.Context, providers []config.ProviderConfig) []Result {
	results := make([]Result, len(providers))
	for i, pc := range providers {
		results[i] = Scan(ctx, pc)
	}
	return results
}
