package gateway

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/federatedmcp/gateway/pkg/config"
	"github.com/federatedmcp/gateway/pkg/log"
	"github.com/federatedmcp/gateway/pkg/router"
	"github.com/federatedmcp/gateway/pkg/telemetry"
)

// doubleSignalWindow is how long after the first SIGINT/SIGTERM a second
// one is treated as a forced-exit request rather than a duplicate of the
// first.
const doubleSignalWindow = 2 * time.Second

// Orchestrator composes a Router and a Server for a single workspace
// session: it starts them in the fixed order the stdio front-end
// requires, watches for shutdown signals, and drives a bounded
// shutdown.
type Orchestrator struct {
	router *router.Router
	server *Server
}

// NewOrchestrator composes a fresh Orchestrator for one session. If metrics is
// non-nil, the router's connect/route/list operations are recorded
// against it.
func NewOrchestrator(metrics *telemetry.Metrics) *Orchestrator {
	r := router.New()
	if metrics != nil {
		r.SetMetrics(metrics)
	}
	return &Orchestrator{
		router: r,
		server: New(r),
	}
}

// ExitCode mirrors the process exit codes the CLI front-end reports.
type ExitCode int

const (
	ExitOK            ExitCode = 0
	ExitConfigError   ExitCode = 1
	ExitShutdownError ExitCode = 2
	ExitForcedExit    ExitCode = 130
)

// Run resolves the workspace's providers, starts the router and server
// in order, and blocks until SIGINT/SIGTERM or ctx is done. It returns
// the process exit code the caller should use.
func (o *Orchestrator) Run(ctx context.Context, snapshot config.Snapshot, workspaceName string) ExitCode {
	providers, missing, err := snapshot.ResolveWorkspace(workspaceName)
	if err != nil {
		log.Error("orchestrator", err, "workspace not found", "workspace", workspaceName)
		return ExitConfigError
	}
	for _, ns := range missing {
		log.Warn("orchestrator", "provider namespace missing from snapshot", "namespace", ns)
	}
	if len(providers) == 0 {
		log.Error("orchestrator", fmt.Errorf("zero providers resolved"), "cannot start session", "workspace", workspaceName)
		return ExitConfigError
	}

	// Fixed startup order: register handlers, then connect the router,
	// then start serving. Registration happens twice here only in the
	// sense that RegisterCapabilities runs once with no providers (to
	// satisfy "handlers registered before transport is attached") and
	// again immediately after connect with the live capability set.
	if err := o.server.RegisterCapabilities(ctx); err != nil {
		log.Error("orchestrator", err, "initial capability registration failed")
		return ExitConfigError
	}

	if err := o.router.Connect(ctx, providers); err != nil {
		log.Error("orchestrator", err, "router connect failed", "workspace", workspaceName)
		return ExitConfigError
	}

	if err := o.server.RegisterCapabilities(ctx); err != nil {
		log.Error("orchestrator", err, "post-connect capability registration failed")
		_ = o.router.Stop(context.Background())
		return ExitConfigError
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	serveErrCh := make(chan error, 1)
	go func() {
		o.server.Notify(runCtx, "info", fmt.Sprintf("gateway started for workspace %q", workspaceName))
		serveErrCh <- o.server.Serve(runCtx)
	}()

	var forced bool
	select {
	case <-sigCh:
		log.Info("orchestrator", "shutdown signal received")
		cancel()
		forced = o.waitSecondSignal(sigCh)
	case err := <-serveErrCh:
		if err != nil {
			log.Error("orchestrator", err, "server exited unexpectedly")
		}
		cancel()
	case <-ctx.Done():
	}

	if forced {
		return ExitForcedExit
	}

	return o.shutdown(serveErrCh)
}

// waitSecondSignal returns true if a second signal arrives within
// doubleSignalWindow, meaning the caller should force an immediate exit
// instead of waiting out a graceful shutdown.
func (o *Orchestrator) waitSecondSignal(sigCh <-chan os.Signal) bool {
	select {
	case <-sigCh:
		log.Warn("orchestrator", "second shutdown signal received, forcing exit")
		return true
	case <-time.After(doubleSignalWindow):
		return false
	}
}

// shutdown stops the router and waits for the server to exit
// concurrently, each bounded by doubleSignalWindow, and returns the exit
// code for the caller. The log package writes unbuffered, so there is no
// separate flush step.
func (o *Orchestrator) shutdown(serveErrCh <-chan error) ExitCode {
	var wg sync.WaitGroup
	var routerErr, serveErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), doubleSignalWindow)
		defer cancel()
		routerErr = o.router.Stop(shutdownCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case serveErr = <-serveErrCh:
		case <-time.After(doubleSignalWindow):
			serveErr = fmt.Errorf("server did not stop within %s", doubleSignalWindow)
		}
	}()

	wg.Wait()
	o.server.Notify(context.Background(), "info", "gateway stopped")

	if routerErr != nil {
		log.Error("orchestrator", routerErr, "router shutdown failed")
		return ExitShutdownError
	}
	if serveErr != nil {
		log.Warn("orchestrator", "server stop reported", "error", serveErr)
	}
	return ExitOK
}
