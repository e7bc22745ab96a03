package ssebridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/federatedmcp/gateway/pkg/config"
	"github.com/federatedmcp/gateway/pkg/log"
	"github.com/federatedmcp/gateway/pkg/router"
	"github.com/federatedmcp/gateway/pkg/telemetry"
)

// HeartbeatInterval is the default interval between lifecycle "ping"
// events sent on an open stream to keep intermediaries from timing out.
const HeartbeatInterval = 30 * time.Second

// SnapshotSource resolves workspace providers on demand; the reload
// supervisor swaps its backing snapshot on a config change.
type SnapshotSource interface {
	ResolveWorkspace(name string) (providers []config.ProviderConfig, missing []string, err error)
}

// stream is one open GET's session: its own router, its own event
// channel, and the session id POSTs must present to reach it.
type stream struct {
	id        string
	workspace string
	router    *router.Router
	events    chan Event
	closeOnce sync.Once
	reasonMu  sync.Mutex
	reason    string
}

func (s *stream) emit(e Event) {
	select {
	case s.events <- e:
	default:
		log.Warn("ssebridge", "dropping event, subscriber too slow", "session", s.id)
	}
}

// closeWithReason closes the event channel exactly once, recording the
// shutdown reason the GET handler reports in its terminal lifecycle
// event when the channel closes out from under it.
func (s *stream) closeWithReason(reason string) {
	s.closeOnce.Do(func() {
		s.reasonMu.Lock()
		s.reason = reason
		s.reasonMu.Unlock()
		close(s.events)
	})
}

func (s *stream) shutdownReason() string {
	s.reasonMu.Lock()
	defer s.reasonMu.Unlock()
	if s.reason == "" {
		return "shutdown"
	}
	return s.reason
}

// Bridge serves the HTTP front-end: one GET opens a stream and a
// dedicated router session; POSTs on the same path are matched to an
// open stream by session id and dispatched through that router.
type Bridge struct {
	source  SnapshotSource
	metrics *telemetry.Metrics

	mu        sync.RWMutex
	streams   map[string]*stream // keyed by session id
	reloading bool
}

// New returns a Bridge resolving workspaces from source.
func New(source SnapshotSource) *Bridge {
	return &Bridge{source: source, streams: make(map[string]*stream)}
}

// SetMetrics attaches the instrument set every per-connection router
// records its connect/route/list operations against.
func (b *Bridge) SetMetrics(m *telemetry.Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = m
}

// SetReloading marks every new GET/POST as unavailable (503) until
// cleared; the reload supervisor sets it while it tears down open
// streams and re-reads the snapshots. It is not set while the watcher's
// debounce timer is still pending.
func (b *Bridge) SetReloading(reloading bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reloading = reloading
}

// StopAll force-stops every open stream's router, the way the reload
// supervisor tears down active sessions before re-reading snapshots.
func (b *Bridge) StopAll(ctx context.Context, reason string) {
	b.mu.Lock()
	streams := make([]*stream, 0, len(b.streams))
	for _, s := range b.streams {
		streams = append(streams, s)
	}
	b.streams = make(map[string]*stream)
	b.mu.Unlock()

	for _, s := range streams {
		_ = s.router.Stop(ctx)
		s.closeWithReason(reason)
	}
}

// RegisterRoutes wires GET/POST /mcp/{workspace} onto mux, each guarded
// by origin security against DNS-rebinding.
func (b *Bridge) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /mcp/{workspace}", originSecurityHandler(http.HandlerFunc(b.handleGet)))
	mux.Handle("POST /mcp/{workspace}", originSecurityHandler(http.HandlerFunc(b.handlePost)))
}

func (b *Bridge) handleGet(w http.ResponseWriter, r *http.Request) {
	workspace := r.PathValue("workspace")

	b.mu.RLock()
	reloading := b.reloading
	b.mu.RUnlock()
	if reloading {
		http.Error(w, "reloading", http.StatusServiceUnavailable)
		return
	}

	providers, missing, err := b.source.ResolveWorkspace(workspace)
	for _, ns := range missing {
		log.Warn("ssebridge", "provider namespace missing from snapshot", "namespace", ns, "workspace", workspace)
	}
	if err != nil || len(providers) == 0 {
		http.NotFound(w, r)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	rtr := router.New()
	b.mu.RLock()
	metrics := b.metrics
	b.mu.RUnlock()
	if metrics != nil {
		rtr.SetMetrics(metrics)
	}
	if err := rtr.Connect(r.Context(), providers); err != nil {
		http.Error(w, fmt.Sprintf("failed to connect workspace providers: %v", err), http.StatusServiceUnavailable)
		return
	}

	s := &stream{
		id:        uuid.NewString(),
		workspace: workspace,
		router:    rtr,
		events:    make(chan Event, 64),
	}
	b.mu.Lock()
	b.streams[s.id] = s
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.streams, s.id)
		b.mu.Unlock()
		_ = rtr.Stop(context.Background())
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Mcp-Session-Id", s.id)
	w.WriteHeader(http.StatusOK)

	writeEvent(w, Event{Type: "lifecycle", Data: lifecyclePayload("streamOpened", nil)})
	flusher.Flush()

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			writeEvent(w, Event{Type: "lifecycle", Data: lifecyclePayload("streamClosed", map[string]any{"reason": "client"})})
			flusher.Flush()
			return
		case <-ticker.C:
			writeEvent(w, Event{Type: "lifecycle", Data: lifecyclePayload("ping", nil)})
			flusher.Flush()
		case ev, ok := <-s.events:
			if !ok {
				writeEvent(w, Event{Type: "lifecycle", Data: lifecyclePayload("streamClosed", map[string]any{"reason": s.shutdownReason()})})
				flusher.Flush()
				return
			}
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

func (b *Bridge) handlePost(w http.ResponseWriter, r *http.Request) {
	workspace := r.PathValue("workspace")

	b.mu.RLock()
	reloading := b.reloading
	b.mu.RUnlock()
	if reloading {
		http.Error(w, "reloading", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.Header.Get("Mcp-Session-Id")
	b.mu.RLock()
	s, ok := b.streams[sessionID]
	b.mu.RUnlock()
	if !ok || s.workspace != workspace {
		http.NotFound(w, r)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed json-rpc request", http.StatusBadRequest)
		return
	}
	if req.Jsonrpc != "2.0" {
		http.Error(w, "malformed json-rpc request", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		resp := dispatch(ctx, s.router, &req)
		if resp == nil {
			return
		}
		s.emit(Event{Type: "response", Data: resp})
	}()
}

func writeEvent(w http.ResponseWriter, ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		log.Error("ssebridge", err, "failed to marshal event payload")
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
}

func lifecyclePayload(method string, params map[string]any) map[string]any {
	if params == nil {
		params = map[string]any{}
	}
	if method == "streamOpened" || method == "ping" {
		params["timestamp"] = timeNowRFC3339()
	}
	return map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
}

// timeNowRFC3339 is isolated in its own function so lifecycle event
// timestamps have one call site; it is real wall-clock time, not the
// session start time.
func timeNowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// isAllowedOrigin reports whether origin is a loopback address, guarding
// against DNS-rebinding attacks the way a browser-reachable endpoint
// must.
func isAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	lower := strings.ToLower(origin)
	for _, prefix := range []string{"http://localhost", "https://localhost", "http://127.0.0.1", "https://127.0.0.1"} {
		if rest, ok := strings.CutPrefix(lower, prefix); ok && (rest == "" || rest[0] == ':' || rest[0] == '/') {
			return true
		}
	}
	return false
}

func originSecurityHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAllowedOrigin(r.Header.Get("Origin")) {
			http.Error(w, "forbidden: invalid origin header", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
