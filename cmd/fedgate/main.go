// Command fedgate is the federated MCP gateway's entry point. It runs
// one workspace session per process: either the stdio front-end
// (default, for launching under an MCP-aware client) or the HTTP/SSE
// front-end (--transport sse). In sse mode the reload supervisor watches
// the snapshot files for changes; stdio mode reads them once.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/federatedmcp/gateway/pkg/config"
	"github.com/federatedmcp/gateway/pkg/gateway"
	"github.com/federatedmcp/gateway/pkg/log"
	"github.com/federatedmcp/gateway/pkg/reload"
	"github.com/federatedmcp/gateway/pkg/ssebridge"
	"github.com/federatedmcp/gateway/pkg/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		providersPath  = flag.String("providers", "providers.yaml", "path to the providers snapshot file")
		workspacesPath = flag.String("workspaces", "workspaces.yaml", "path to the workspaces snapshot file")
		transportFlag  = flag.String("transport", "stdio", "front-end transport: stdio or sse")
		addr           = flag.String("addr", ":8088", "listen address for the sse transport")
		serviceVersion = flag.String("version", "1.0.0", "service version reported on telemetry resource attributes")
	)
	flag.Parse()

	workspaceName := flag.Arg(0)
	if *transportFlag == "stdio" && workspaceName == "" {
		fmt.Fprintln(os.Stderr, "fedgate: stdio transport requires a workspace name argument")
		return int(gateway.ExitConfigError)
	}

	telemetryProvider, err := telemetry.Init("federated-mcp-gateway", *serviceVersion)
	if err != nil {
		log.Error("fedgate", err, "failed to initialize telemetry")
		return int(gateway.ExitConfigError)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetryProvider.Shutdown(shutdownCtx)
	}()
	metrics, err := telemetry.NewMetrics(telemetryProvider.MeterProvider())
	if err != nil {
		log.Error("fedgate", err, "failed to create telemetry instruments")
		return int(gateway.ExitConfigError)
	}

	switch *transportFlag {
	case "stdio":
		return runStdio(*providersPath, *workspacesPath, workspaceName, metrics)
	case "sse":
		return runSSE(*providersPath, *workspacesPath, *addr, metrics)
	default:
		fmt.Fprintf(os.Stderr, "fedgate: unknown transport %q (want stdio or sse)\n", *transportFlag)
		return int(gateway.ExitConfigError)
	}
}

// runStdio is a single-shot session: it reads the snapshot once (no
// reload supervisor, since a stdio session's client process owns its
// own lifecycle) and blocks until the session ends.
func runStdio(providersPath, workspacesPath, workspaceName string, metrics *telemetry.Metrics) int {
	snapshot, err := config.ReadSnapshot(providersPath, workspacesPath)
	if err != nil {
		log.Error("fedgate", err, "failed to read snapshot")
		return int(gateway.ExitConfigError)
	}

	orchestrator := gateway.NewOrchestrator(metrics)
	return int(orchestrator.Run(context.Background(), snapshot, workspaceName))
}

// runSSE serves the HTTP/SSE front-end and /metrics, with the reload
// supervisor watching both snapshot files and tearing down every open
// stream on a detected change.
func runSSE(providersPath, workspacesPath, addr string, metrics *telemetry.Metrics) int {
	store, err := config.NewLiveStore(providersPath, workspacesPath)
	if err != nil {
		log.Error("fedgate", err, "failed to read snapshot")
		return int(gateway.ExitConfigError)
	}

	bridge := ssebridge.New(store)
	bridge.SetMetrics(metrics)

	watcher := reload.New(providersPath, workspacesPath, func() {
		log.Info("fedgate", "snapshot change detected, reloading")
		bridge.SetReloading(true)
		bridge.StopAll(context.Background(), "reload")
		if err := store.Reload(); err != nil {
			log.Error("fedgate", err, "snapshot reload failed, keeping previous snapshot in effect")
		}
		bridge.SetReloading(false)
	})
	if err := watcher.Start(); err != nil {
		log.Error("fedgate", err, "failed to start snapshot watcher")
		return int(gateway.ExitConfigError)
	}
	defer watcher.Stop()

	mux := http.NewServeMux()
	bridge.RegisterRoutes(mux)
	mux.Handle("/metrics", telemetry.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("fedgate", "sse front-end listening", "addr", addr)
		serveErrCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("fedgate", "shutdown signal received")
	case err := <-serveErrCh:
		if err != nil && err != http.ErrServerClosed {
			log.Error("fedgate", err, "http server failed")
			return int(gateway.ExitShutdownError)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	bridge.StopAll(shutdownCtx, "shutdown")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("fedgate", err, "http server shutdown failed")
		return int(gateway.ExitShutdownError)
	}
	return int(gateway.ExitOK)
}
