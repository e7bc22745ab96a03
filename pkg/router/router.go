// Package router connects concurrently to every provider of a workspace,
// aggregates their tools and prompts under namespaced names, and
// dispatches incoming calls to the right provider by splitting the
// namespace back off. It is the one place that holds live provider
// connections for a session.
package router

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/federatedmcp/gateway/pkg/config"
	"github.com/federatedmcp/gateway/pkg/log"
	"github.com/federatedmcp/gateway/pkg/namespace"
	"github.com/federatedmcp/gateway/pkg/telemetry"
	"github.com/federatedmcp/gateway/pkg/transport"
)

// InvalidParamsError signals a malformed or unknown namespace on a
// routed call; callers translate this to JSON-RPC -32602.
type InvalidParamsError struct {
	Name string
	Err  error
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("router: invalid params for %q: %v", e.Name, e.Err)
}

func (e *InvalidParamsError) Unwrap() error { return e.Err }

// DefaultRequestTimeout bounds a single routed tool/prompt call. It is
// enforced at the router boundary so both the stdio and SSE front-ends
// get it uniformly.
const DefaultRequestTimeout = 60 * time.Second

// Router owns the namespace -> provider connection map for one session.
type Router struct {
	mu      sync.RWMutex
	clients map[string]*transport.Connected
	order   []string

	metrics *telemetry.Metrics
}

// New returns an empty, unconnected Router.
func New() *Router {
	return &Router{clients: make(map[string]*transport.Connected)}
}

// SetMetrics attaches the instrument set connect/route/list operations
// are recorded against. A Router with no metrics attached (the zero
// value) records nothing.
func (r *Router) SetMetrics(m *telemetry.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Connect dials every provider concurrently. It returns only once each
// provider has either succeeded or deterministically failed. Failed
// providers are dropped and logged, not fatal, unless none connect at
// all, in which case Connect returns an error and the router stays
// empty.
func (r *Router) Connect(ctx context.Context, providers []config.ProviderConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) > 0 {
		return fmt.Errorf("router: already connected")
	}

	type outcome struct {
		conn     *transport.Connected
		ns       string
		err      error
		duration time.Duration
	}
	results := make([]outcome, len(providers))

	errs, gctx := errgroup.WithContext(ctx)
	errs.SetLimit(runtime.NumCPU())
	for i, pc := range providers {
		i, pc := i, pc
		errs.Go(func() error {
			start := time.Now()
			conn, err := transport.Connect(gctx, pc)
			results[i] = outcome{conn: conn, ns: pc.Namespace, err: err, duration: time.Since(start)}
			return nil
		})
	}
	// errgroup's ctx cancellation is intentionally unused for per-provider
	// failures: a single provider's connect error must not cancel its
	// siblings. Errs.Wait only ever returns nil from the goroutines above.
	_ = errs.Wait()

	for _, res := range results {
		if res.err != nil {
			log.Warn("router", "provider connect failed", "namespace", res.ns, "error", res.err)
			r.recordConnect(ctx, res.ns, "failure", res.duration)
			continue
		}
		r.clients[res.ns] = res.conn
		r.order = append(r.order, res.ns)
		r.recordConnect(ctx, res.ns, "success", res.duration)
	}
	if r.metrics != nil {
		r.metrics.AdjustActiveProviders(ctx, int64(len(r.clients)))
	}

	if len(r.clients) == 0 {
		return fmt.Errorf("router: no providers connected")
	}
	return nil
}

func (r *Router) recordConnect(ctx context.Context, ns, outcome string, d time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordConnect(ctx, ns, outcome, d.Seconds())
}

// Namespaces returns the currently connected namespaces in provider
// declaration order.
func (r *Router) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ListTools queries every live provider's tools/list, conditioned on the
// provider actually being connected, and rewrites each tool's name to
// its namespaced wire form. A provider that errors contributes zero
// tools and is logged, never a global failure.
func (r *Router) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	start := time.Now()
	r.mu.RLock()
	order := append([]string(nil), r.order...)
	clients := make(map[string]*transport.Connected, len(r.clients))
	for k, v := range r.clients {
		clients[k] = v
	}
	metrics := r.metrics
	r.mu.RUnlock()

	var out []*mcp.Tool
	for _, ns := range order {
		conn := clients[ns]
		result, err := conn.Session.ListTools(ctx, &mcp.ListToolsParams{})
		if err != nil {
			log.Warn("router", "listTools failed for provider", "namespace", ns, "error", err)
			continue
		}
		for _, tool := range result.Tools {
			namespaced := *tool
			namespaced.Name = namespace.Join(ns, tool.Name)
			out = append(out, &namespaced)
		}
	}
	if metrics != nil {
		metrics.RecordCapabilityList(ctx, time.Since(start).Seconds())
	}
	return out, nil
}

// ListPrompts is ListTools's counterpart for prompts/list.
func (r *Router) ListPrompts(ctx context.Context) ([]*mcp.Prompt, error) {
	start := time.Now()
	r.mu.RLock()
	order := append([]string(nil), r.order...)
	clients := make(map[string]*transport.Connected, len(r.clients))
	for k, v := range r.clients {
		clients[k] = v
	}
	metrics := r.metrics
	r.mu.RUnlock()

	var out []*mcp.Prompt
	for _, ns := range order {
		conn := clients[ns]
		result, err := conn.Session.ListPrompts(ctx, &mcp.ListPromptsParams{})
		if err != nil {
			log.Warn("router", "listPrompts failed for provider", "namespace", ns, "error", err)
			continue
		}
		for _, prompt := range result.Prompts {
			namespaced := *prompt
			namespaced.Name = namespace.Join(ns, prompt.Name)
			out = append(out, &namespaced)
		}
	}
	if metrics != nil {
		metrics.RecordCapabilityList(ctx, time.Since(start).Seconds())
	}
	return out, nil
}

// RouteToolCall splits the namespaced name in req, rewrites it to the
// provider's inner name, and forwards the call verbatim to that
// provider's session.
func (r *Router) RouteToolCall(ctx context.Context, req *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	start := time.Now()
	ns, _, _ := namespace.Split(req.Name)

	conn, inner, err := r.resolve(req.Name)
	if err != nil {
		r.recordRoute(ctx, ns, "invalid_params", time.Since(start))
		return nil, err
	}
	rctx, cancel := context.WithTimeout(ctx, DefaultRequestTimeout)
	defer cancel()
	forwarded := *req
	forwarded.Name = inner
	result, err := conn.Session.CallTool(rctx, &forwarded)
	if err != nil {
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			r.recordRoute(ctx, ns, "timeout", time.Since(start))
			return nil, fmt.Errorf("router: call to %q timed out after %s: %w", req.Name, DefaultRequestTimeout, context.DeadlineExceeded)
		}
		r.recordRoute(ctx, ns, "upstream_error", time.Since(start))
		return nil, err
	}
	r.recordRoute(ctx, ns, "success", time.Since(start))
	return result, nil
}

func (r *Router) recordRoute(ctx context.Context, ns, outcome string, d time.Duration) {
	r.mu.RLock()
	metrics := r.metrics
	r.mu.RUnlock()
	if metrics == nil {
		return
	}
	metrics.RecordRoute(ctx, ns, outcome, d.Seconds())
}

// RouteGetPrompt is RouteToolCall's counterpart for prompts/get.
func (r *Router) RouteGetPrompt(ctx context.Context, req *mcp.GetPromptParams) (*mcp.GetPromptResult, error) {
	start := time.Now()
	ns, _, _ := namespace.Split(req.Name)

	conn, inner, err := r.resolve(req.Name)
	if err != nil {
		r.recordRoute(ctx, ns, "invalid_params", time.Since(start))
		return nil, err
	}
	rctx, cancel := context.WithTimeout(ctx, DefaultRequestTimeout)
	defer cancel()
	forwarded := *req
	forwarded.Name = inner
	result, err := conn.Session.GetPrompt(rctx, &forwarded)
	if err != nil {
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			r.recordRoute(ctx, ns, "timeout", time.Since(start))
			return nil, fmt.Errorf("router: call to %q timed out after %s: %w", req.Name, DefaultRequestTimeout, context.DeadlineExceeded)
		}
		r.recordRoute(ctx, ns, "upstream_error", time.Since(start))
		return nil, err
	}
	r.recordRoute(ctx, ns, "success", time.Since(start))
	return result, nil
}

func (r *Router) resolve(fullName string) (*transport.Connected, string, error) {
	ns, inner, err := namespace.Split(fullName)
	if err != nil {
		return nil, "", &InvalidParamsError{Name: fullName, Err: err}
	}

	r.mu.RLock()
	conn, ok := r.clients[ns]
	r.mu.RUnlock()
	if !ok {
		return nil, "", &InvalidParamsError{Name: fullName, Err: fmt.Errorf("unknown namespace %q", ns)}
	}
	return conn, inner, nil
}

// Stop closes every provider connection concurrently and clears the
// active map. Stop is idempotent: calling it again is a no-op.
func (r *Router) Stop(ctx context.Context) error {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*transport.Connected)
	r.order = nil
	metrics := r.metrics
	r.mu.Unlock()

	if len(clients) == 0 {
		return nil
	}
	if metrics != nil {
		metrics.AdjustActiveProviders(ctx, -int64(len(clients)))
	}

	errs, _ := errgroup.WithContext(ctx)
	for ns, conn := range clients {
		ns, conn := ns, conn
		errs.Go(func() error {
			if err := conn.Close(); err != nil {
				log.Warn("router", "provider close failed", "namespace", ns, "error", err)
			}
			return nil
		})
	}
	return errs.Wait()
}
