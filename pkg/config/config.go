// Package config is the gateway's read-only view of the persisted
// configuration: the providers snapshot (namespace -> ProviderConfig)
// and the workspaces snapshot (workspace name -> ordered provider
// namespaces). The core never mutates these; the external config store
// collaborator (CLI, dashboard) owns that.
package config

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/federatedmcp/gateway/pkg/namespace"
)

// ProviderType discriminates the ProviderConfig tagged union.
type ProviderType string

const (
	// ProviderTypeStdio is a locally spawned subprocess provider
	// speaking JSON-RPC over stdio.
	ProviderTypeStdio ProviderType = "stdio"
	// ProviderTypeSSE is a remote provider speaking JSON-RPC over SSE.
	ProviderTypeSSE ProviderType = "sse"
)

// StdioParams holds the spawn parameters for a stdio provider.
type StdioParams struct {
	Command string            `yaml:"command" json:"command"`
	Args    []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// SSEParams holds the connection parameters for a remote SSE provider.
type SSEParams struct {
	URL string `yaml:"url" json:"url"`
}

// ProviderConfig is a tagged variant: either a stdio subprocess provider
// or a remote SSE provider. Namespace is non-empty and must not contain
// the namespace/name separator character.
type ProviderConfig struct {
	Type      ProviderType `yaml:"type" json:"type"`
	Namespace string       `yaml:"namespace" json:"namespace"`

	Stdio *StdioParams `yaml:"providerParameters,omitempty" json:"-"`
	SSE   *SSEParams   `yaml:"-" json:"-"`

	// raw captures providerParameters for the SSE branch, since the yaml
	// tag above is claimed by Stdio; UnmarshalYAML resolves the right one.
	raw yaml.Node
}

// UnmarshalYAML decodes a ProviderConfig, dispatching providerParameters
// into Stdio or SSE based on Type.
func (p *ProviderConfig) UnmarshalYAML(node *yaml.Node) error {
	var shape struct {
		Type               ProviderType `yaml:"type"`
		Namespace          string       `yaml:"namespace"`
		ProviderParameters yaml.Node    `yaml:"providerParameters"`
	}
	if err := node.Decode(&shape); err != nil {
		return err
	}
	p.Type = shape.Type
	p.Namespace = shape.Namespace
	p.raw = shape.ProviderParameters

	switch p.Type {
	case ProviderTypeStdio:
		var params StdioParams
		if !shape.ProviderParameters.IsZero() {
			if err := shape.ProviderParameters.Decode(&params); err != nil {
				return fmt.Errorf("config: decoding stdio providerParameters for %q: %w", p.Namespace, err)
			}
		}
		p.Stdio = &params
	case ProviderTypeSSE:
		var params SSEParams
		if !shape.ProviderParameters.IsZero() {
			if err := shape.ProviderParameters.Decode(&params); err != nil {
				return fmt.Errorf("config: decoding sse providerParameters for %q: %w", p.Namespace, err)
			}
		}
		p.SSE = &params
	default:
		return fmt.Errorf("config: provider %q has unknown type %q", p.Namespace, p.Type)
	}
	return nil
}

// Validate checks the invariants spec.md §3 requires of a ProviderConfig.
func (p *ProviderConfig) Validate() error {
	if p.Namespace == "" {
		return fmt.Errorf("config: provider namespace must not be empty")
	}
	if !namespace.Valid(p.Namespace) {
		return fmt.Errorf("config: provider namespace %q must not contain %q", p.Namespace, namespace.Separator)
	}
	switch p.Type {
	case ProviderTypeStdio:
		if p.Stdio == nil || p.Stdio.Command == "" {
			return fmt.Errorf("config: stdio provider %q requires a command", p.Namespace)
		}
	case ProviderTypeSSE:
		if p.SSE == nil || p.SSE.URL == "" {
			return fmt.Errorf("config: sse provider %q requires a url", p.Namespace)
		}
	default:
		return fmt.Errorf("config: provider %q has unknown type %q", p.Namespace, p.Type)
	}
	return nil
}

// ProvidersSnapshot maps a provider namespace to its configuration.
type ProvidersSnapshot map[string]ProviderConfig

// WorkspaceConfig is a named, ordered list of provider namespaces.
type WorkspaceConfig struct {
	Name       string
	Namespaces []string
}

// WorkspacesSnapshot maps a workspace name to its ordered namespace list.
type WorkspacesSnapshot map[string][]string

// Snapshot is the immutable-for-the-session pair of providers and
// workspaces read at session start (or reload).
type Snapshot struct {
	Providers  ProvidersSnapshot
	Workspaces WorkspacesSnapshot
}

// ResolveWorkspace returns the ordered, resolved ProviderConfigs for a
// workspace. Namespaces with no matching provider are logged by the
// caller and excluded; ResolveWorkspace itself just reports which ones
// were missing so callers can decide policy (spec.md §3: the session
// continues if at least one provider resolves).
func (s Snapshot) ResolveWorkspace(name string) (resolved []ProviderConfig, missing []string, err error) {
	namespaces, ok := s.Workspaces[name]
	if !ok {
		return nil, nil, fmt.Errorf("config: workspace %q not found", name)
	}
	for _, ns := range namespaces {
		pc, ok := s.Providers[ns]
		if !ok {
			missing = append(missing, ns)
			continue
		}
		resolved = append(resolved, pc)
	}
	return resolved, missing, nil
}

// Store resolves a workspace's providers from whatever is currently the
// active snapshot. Snapshot itself satisfies Store; LiveStore satisfies
// it too, swapping its backing snapshot out on reload. A richer
// collaborator (a database-backed store, a dashboard) can implement
// Store without the router or SSE bridge changing.
type Store interface {
	ResolveWorkspace(name string) (resolved []ProviderConfig, missing []string, err error)
}

// LiveStore holds the snapshot currently in effect and swaps it
// atomically on Reload, the way the reload supervisor (pkg/reload)
// re-reads the two snapshot files on a detected change.
type LiveStore struct {
	providersPath  string
	workspacesPath string

	mu   sync.RWMutex
	snap Snapshot
}

// NewLiveStore reads the initial snapshot from the given paths and
// returns a LiveStore ready to serve ResolveWorkspace.
func NewLiveStore(providersPath, workspacesPath string) (*LiveStore, error) {
	snap, err := ReadSnapshot(providersPath, workspacesPath)
	if err != nil {
		return nil, err
	}
	return &LiveStore{providersPath: providersPath, workspacesPath: workspacesPath, snap: snap}, nil
}

// Reload re-reads both snapshot files and, only if that succeeds,
// swaps them in as the active snapshot. A parse or validation failure
// leaves the previously active snapshot untouched.
func (s *LiveStore) Reload() error {
	snap, err := ReadSnapshot(s.providersPath, s.workspacesPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

// ResolveWorkspace resolves name against the currently active snapshot.
func (s *LiveStore) ResolveWorkspace(name string) ([]ProviderConfig, []string, error) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	return snap.ResolveWorkspace(name)
}

// ReadSnapshot loads the providers and workspaces snapshots from the
// given YAML file paths.
func ReadSnapshot(providersPath, workspacesPath string) (Snapshot, error) {
	var snap Snapshot

	providersBytes, err := os.ReadFile(providersPath)
	if err != nil {
		return snap, fmt.Errorf("config: reading providers snapshot: %w", err)
	}
	if err := yaml.Unmarshal(providersBytes, &snap.Providers); err != nil {
		return snap, fmt.Errorf("config: parsing providers snapshot: %w", err)
	}
	for ns, pc := range snap.Providers {
		pc := pc
		if pc.Namespace == "" {
			pc.Namespace = ns
		}
		if err := pc.Validate(); err != nil {
			return snap, err
		}
		snap.Providers[ns] = pc
	}

	workspacesBytes, err := os.ReadFile(workspacesPath)
	if err != nil {
		return snap, fmt.Errorf("config: reading workspaces snapshot: %w", err)
	}
	if err := yaml.Unmarshal(workspacesBytes, &snap.Workspaces); err != nil {
		return snap, fmt.Errorf("config: parsing workspaces snapshot: %w", err)
	}

	return snap, nil
}
