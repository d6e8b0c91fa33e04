// Package api holds the JSON bodies exchanged between the provctl server and
// its client.
package api

import (
	"github.com/sardine-ai/provider-registry/registry"
)

// ProviderSummary is an entry of GET /api/v2/providers.
type ProviderSummary struct {
	PackageName string `json:"package_name"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
	State       string `json:"state"`
}

type ProviderCollection struct {
	Providers    []ProviderSummary `json:"providers"`
	TotalEntries int               `json:"total_entries"`
}

type ConnectionTypeCollection struct {
	ConnectionTypes []registry.Hook `json:"connection_types"`
	TotalEntries    int             `json:"total_entries"`
}

type ExecutorCollection struct {
	Executors    []registry.Executor `json:"executors"`
	TotalEntries int                 `json:"total_entries"`
}

type ConflictCollection struct {
	Conflicts    []registry.Conflict `json:"conflicts"`
	TotalEntries int                 `json:"total_entries"`
}

type ConfigResponse struct {
	Sections map[string]map[string]string `json:"sections"`
}

type VersionResponse struct {
	Version string `json:"version"`
}

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
