package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"anycode/internal/logging"
)

// RegistryFileName is the registry document's name under the anycode
// user directory.
const RegistryFileName = "mcp-registry.json"

// RegistryStore persists the MCP server registry as a single JSON file.
// Every mutation is a read-modify-write of the whole document; writes go
// through a temp file and rename so the file on disk is always a
// complete, parseable registry. The store does no locking: concurrent
// writers are last-write-wins and callers needing stronger guarantees
// must serialize externally.
type RegistryStore struct {
	path string
}

// NewRegistryStore creates a store backed by the given file path.
func NewRegistryStore(path string) *RegistryStore {
	return &RegistryStore{path: path}
}

// DefaultRegistryPath returns ~/.anycode/mcp-registry.json.
func DefaultRegistryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".anycode", RegistryFileName), nil
}

// Path returns the backing file path.
func (s *RegistryStore) Path() string {
	return s.path
}

// Load reads the registry from disk. An absent or empty file is an
// empty registry, not an error.
func (s *RegistryStore) Load() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{Servers: map[string]RegistryEntry{}}, nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	if len(data) == 0 {
		return &Registry{Servers: map[string]RegistryEntry{}}, nil
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", s.path, err)
	}
	if reg.Servers == nil {
		reg.Servers = map[string]RegistryEntry{}
	}
	return &reg, nil
}

// save writes the whole registry atomically: temp file in the target
// directory, then rename over the destination. The document is written
// compact: indented encoding would rewrite the stored raw server specs,
// and those must persist byte-for-byte.
func (s *RegistryStore) save(reg *Registry) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, RegistryFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp registry file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close registry file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}

// Upsert inserts or replaces the entry for id with exactly the given
// fields, then persists the registry.
func (s *RegistryStore) Upsert(id, name string, server json.RawMessage, enabled bool) error {
	reg, err := s.Load()
	if err != nil {
		return err
	}
	reg.Servers[id] = RegistryEntry{
		ID:      id,
		Name:    name,
		Server:  server,
		Enabled: enabled,
	}
	if err := s.save(reg); err != nil {
		return err
	}
	logging.Registry("Upserted server %s (enabled=%v)", id, enabled)
	return nil
}

// Remove deletes the entry for id. The registry is persisted only when
// a removal actually occurred; removing an absent id is a no-op.
func (s *RegistryStore) Remove(id string) error {
	reg, err := s.Load()
	if err != nil {
		return err
	}
	if _, ok := reg.Servers[id]; !ok {
		return nil
	}
	delete(reg.Servers, id)
	if err := s.save(reg); err != nil {
		return err
	}
	logging.Registry("Removed server %s", id)
	return nil
}

// SetEnabled flips only the enabled flag of an existing entry. Absent
// ids are a no-op, not an error.
func (s *RegistryStore) SetEnabled(id string, enabled bool) error {
	reg, err := s.Load()
	if err != nil {
		return err
	}
	entry, ok := reg.Servers[id]
	if !ok {
		return nil
	}
	entry.Enabled = enabled
	reg.Servers[id] = entry
	if err := s.save(reg); err != nil {
		return err
	}
	logging.Registry("Set server %s enabled=%v", id, enabled)
	return nil
}

// Get returns the entry for id. A missing id yields ok=false, never an
// error.
func (s *RegistryStore) Get(id string) (RegistryEntry, bool, error) {
	reg, err := s.Load()
	if err != nil {
		return RegistryEntry{}, false, err
	}
	entry, ok := reg.Servers[id]
	return entry, ok, nil
}

// ListWithStatus reconciles the persisted registry against the engine's
// live configuration. Every persisted entry appears in the result, but
// the engine is the sole authority for what is active right now: a row
// is enabled exactly when its id is in the live set, regardless of the
// locally stored flag, and active rows carry the engine's copy of the
// server spec. Ids known only to the engine are appended, always
// enabled. Results are sorted by id for stable output.
func (s *RegistryStore) ListWithStatus(engine string, configurator EngineConfigurator) ([]ServerStatus, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	live, err := configurator.ImportFrom(engine)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s config: %w", engine, err)
	}

	statuses := make([]ServerStatus, 0, len(reg.Servers))
	for id, entry := range reg.Servers {
		status := ServerStatus{
			ID:     id,
			Name:   entry.Name,
			Server: entry.Server,
		}
		if liveServer, active := live[id]; active {
			status.Enabled = true
			status.Server = liveServer
		}
		statuses = append(statuses, status)
	}
	for id, liveServer := range live {
		if _, known := reg.Servers[id]; known {
			continue
		}
		statuses = append(statuses, ServerStatus{
			ID:      id,
			Name:    id,
			Server:  liveServer,
			Enabled: true,
		})
	}

	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	logging.RegistryDebug("ListWithStatus(%s): %d registry entries, %d live", engine, len(reg.Servers), len(live))
	return statuses, nil
}

// SyncToEngine pushes the enabled subset of the persisted registry to
// the engine, replacing whatever the engine currently has. This is
// one-directional and does not read the engine's config back.
func (s *RegistryStore) SyncToEngine(engine string, configurator EngineConfigurator) error {
	reg, err := s.Load()
	if err != nil {
		return err
	}
	enabled := make(map[string]json.RawMessage)
	for id, entry := range reg.Servers {
		if entry.Enabled {
			enabled[id] = entry.Server
		}
	}
	if err := configurator.SyncTo(enabled, engine); err != nil {
		return fmt.Errorf("failed to sync to %s: %w", engine, err)
	}
	logging.Registry("Synced %d enabled servers to %s", len(enabled), engine)
	return nil
}
