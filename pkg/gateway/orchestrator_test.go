package gateway_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/federatedmcp/gateway/pkg/config"
	"github.com/federatedmcp/gateway/pkg/gateway"
)

func TestRunReturnsConfigErrorForUnknownWorkspace(t *testing.T) {
	o := gateway.NewOrchestrator(nil)
	snapshot := config.Snapshot{
		Providers:  config.ProvidersSnapshot{},
		Workspaces: config.WorkspacesSnapshot{"default": {"echo"}},
	}

	got := o.Run(context.Background(), snapshot, "nonexistent")
	assert.Equal(t, gateway.ExitConfigError, got)
}

func TestRunReturnsConfigErrorWhenNoProvidersResolve(t *testing.T) {
	o := gateway.NewOrchestrator(nil)
	snapshot := config.Snapshot{
		Providers:  config.ProvidersSnapshot{},
		Workspaces: config.WorkspacesSnapshot{"default": {"echo"}},
	}

	got := o.Run(context.Background(), snapshot, "default")
	assert.Equal(t, gateway.ExitConfigError, got)
}
