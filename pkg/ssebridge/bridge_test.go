package ssebridge_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/federatedmcp/gateway/pkg/config"
	"github.com/federatedmcp/gateway/pkg/ssebridge"
)

type fakeSource struct {
	providers map[string][]config.ProviderConfig
}

func (f fakeSource) ResolveWorkspace(name string) ([]config.ProviderConfig, []string, error) {
	p, ok := f.providers[name]
	if !ok {
		return nil, nil, assertErr("workspace not found")
	}
	return p, nil, nil
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestGetUnknownWorkspaceReturns404(t *testing.T) {
	b := ssebridge.New(fakeSource{providers: map[string][]config.ProviderConfig{}})
	mux := http.NewServeMux()
	b.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/mcp/nonexistent", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDuringReloadReturns503(t *testing.T) {
	b := ssebridge.New(fakeSource{providers: map[string][]config.ProviderConfig{
		"w1": {{Type: config.ProviderTypeStdio, Namespace: "echo", Stdio: &config.StdioParams{Command: "echo"}}},
	}})
	b.SetReloading(true)

	mux := http.NewServeMux()
	b.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/mcp/w1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPostUnknownSessionReturns404(t *testing.T) {
	b := ssebridge.New(fakeSource{providers: map[string][]config.ProviderConfig{}})
	mux := http.NewServeMux()
	b.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodPost, "/mcp/w1", nil)
	req.Header.Set("Mcp-Session-Id", "nonexistent")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOriginRejected(t *testing.T) {
	b := ssebridge.New(fakeSource{providers: map[string][]config.ProviderConfig{
		"w1": {{Type: config.ProviderTypeStdio, Namespace: "echo", Stdio: &config.StdioParams{Command: "echo"}}},
	}})
	mux := http.NewServeMux()
	b.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/mcp/w1", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
