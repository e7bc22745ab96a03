package router

import "github.com/federatedmcp/gateway/pkg/transport"

// InjectForTest seeds a Router with already-connected providers,
// bypassing Connect's real dialing. It exists only for router_test.go,
// which exercises ListTools/RouteToolCall against in-memory MCP
// sessions instead of spawned subprocesses.
func InjectForTest(r *Router, conns []*transport.Connected) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range conns {
		r.clients[c.Namespace] = c
		r.order = append(r.order, c.Namespace)
	}
}
