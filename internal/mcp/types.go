// Package mcp manages the persisted MCP server registry and its
// reconciliation with the engines' live configurations.
//
// The registry is the superset authority for identity, metadata and
// disabled entries; each engine's own config is the authority for what
// is actually enabled right now and for the live shape of active
// servers.
package mcp

import "encoding/json"

// RegistryEntry is one registered MCP server.
type RegistryEntry struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Server  json.RawMessage `json:"server"`
	Enabled bool            `json:"enabled"`
}

// Registry is the on-disk document. Unknown top-level keys are ignored
// on read so older builds can open files written by newer ones.
type Registry struct {
	Servers map[string]RegistryEntry `json:"servers"`
}

// ServerStatus is one row of a reconciliation read: the entry as the
// caller should see it, with Enabled reflecting the engine's live state
// where the engine has the server active.
type ServerStatus struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Server  json.RawMessage `json:"server"`
	Enabled bool            `json:"enabled"`
}

// EngineConfigurator reads and writes an engine's live MCP server set.
type EngineConfigurator interface {
	// ImportFrom returns the engine's currently enabled servers, keyed by id.
	ImportFrom(engine string) (map[string]json.RawMessage, error)
	// SyncTo replaces the engine's enabled server set with the given mapping.
	SyncTo(servers map[string]json.RawMessage, engine string) error
}
