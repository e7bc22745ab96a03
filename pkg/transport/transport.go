// Package transport turns a provider configuration into a connected MCP
// client session: a spawned subprocess for stdio providers, or an SSE
// client transport for remote providers. Errors are classified so
// callers (scanner, router) can distinguish a bad configuration from a
// transient connection failure.
package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/federatedmcp/gateway/pkg/config"
	"github.com/federatedmcp/gateway/pkg/log"
)

// Kind classifies a Connect failure so callers can react without
// parsing error strings.
type Kind string

const (
	KindSpawnFailed             Kind = "spawn_failed"
	KindURLInvalid              Kind = "url_invalid"
	KindConnectRefused          Kind = "connect_refused"
	KindTimeout                 Kind = "timeout"
	KindProtocolHandshakeFailed Kind = "protocol_handshake_failed"
)

// Error wraps a transport failure with its Kind and the namespace it
// happened for.
type Error struct {
	Namespace string
	Kind      Kind
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s (%s): %v", e.Namespace, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func classify(ns string, kind Kind, err error) error {
	return &Error{Namespace: ns, Kind: kind, Err: err}
}

// Implementation identifies the gateway to providers during the MCP
// initialize handshake.
var Implementation = &mcp.Implementation{
	Name:    "federated-mcp-gateway",
	Version: "1.0.0",
}

// DefaultHandshakeTimeout bounds how long Connect waits for a provider
// to complete the initialize handshake before giving up.
const DefaultHandshakeTimeout = 10 * time.Second

// Connected is a live client session together with the namespace it was
// connected for and a Close to tear it down.
type Connected struct {
	Namespace string
	Session   *mcp.ClientSession
}

// Close ends the underlying session.
func (c *Connected) Close() error {
	if c.Session == nil {
		return nil
	}
	return c.Session.Close()
}

// Connect dials the provider described by pc and completes the MCP
// initialize handshake, returning a live client session.
func Connect(ctx context.Context, pc config.ProviderConfig) (*Connected, error) {
	hctx, cancel := context.WithTimeout(ctx, DefaultHandshakeTimeout)
	defer cancel()

	var t mcp.Transport
	switch pc.Type {
	case config.ProviderTypeStdio:
		tr, err := stdioTransport(pc)
		if err != nil {
			return nil, err
		}
		t = tr
	case config.ProviderTypeSSE:
		tr, err := sseTransport(pc)
		if err != nil {
			return nil, err
		}
		t = tr
	default:
		return nil, classify(pc.Namespace, KindURLInvalid, fmt.Errorf("unknown provider type %q", pc.Type))
	}

	client := mcp.NewClient(Implementation, nil)
	session, err := client.Connect(hctx, t, nil)
	if err != nil {
		if errors.Is(hctx.Err(), context.DeadlineExceeded) {
			return nil, classify(pc.Namespace, KindTimeout, err)
		}
		if pc.Type == config.ProviderTypeSSE && isConnRefused(err) {
			return nil, classify(pc.Namespace, KindConnectRefused, err)
		}
		return nil, classify(pc.Namespace, KindProtocolHandshakeFailed, err)
	}

	return &Connected{Namespace: pc.Namespace, Session: session}, nil
}

func stdioTransport(pc config.ProviderConfig) (mcp.Transport, error) {
	if pc.Stdio == nil || pc.Stdio.Command == "" {
		return nil, classify(pc.Namespace, KindSpawnFailed, fmt.Errorf("missing command"))
	}
	cmd := exec.Command(pc.Stdio.Command, pc.Stdio.Args...)
	cmd.Env = mergeEnv(os.Environ(), pc.Stdio.Env)
	cmd.Stderr = log.NewNamespacePrefixer(os.Stderr, pc.Namespace)

	if _, err := exec.LookPath(pc.Stdio.Command); err != nil {
		return nil, classify(pc.Namespace, KindSpawnFailed, err)
	}

	return mcp.NewCommandTransport(cmd), nil
}

// mergeEnv overlays overlay on top of base, the parent process's
// environment, so a stdio provider inherits the gateway's environment
// instead of running in an empty one. A var set in both keeps the
// overlay's value.
func mergeEnv(base []string, overlay map[string]string) []string {
	if len(overlay) == 0 {
		return base
	}
	vars := make(map[string]string, len(base)+len(overlay))
	var order []string
	for _, kv := range base {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, seen := vars[k]; !seen {
			order = append(order, k)
		}
		vars[k] = v
	}
	for k, v := range overlay {
		if _, seen := vars[k]; !seen {
			order = append(order, k)
		}
		vars[k] = v
	}
	merged := make([]string, 0, len(order))
	for _, k := range order {
		merged = append(merged, k+"="+vars[k])
	}
	return merged
}

func sseTransport(pc config.ProviderConfig) (mcp.Transport, error) {
	if pc.SSE == nil || pc.SSE.URL == "" {
		return nil, classify(pc.Namespace, KindURLInvalid, fmt.Errorf("missing url"))
	}
	if !strings.HasPrefix(pc.SSE.URL, "http://") && !strings.HasPrefix(pc.SSE.URL, "https://") {
		return nil, classify(pc.Namespace, KindURLInvalid, fmt.Errorf("url %q must be http(s)", pc.SSE.URL))
	}
	return &mcp.SSEClientTransport{Endpoint: pc.SSE.URL}, nil
}

func isConnRefused(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host")
}
