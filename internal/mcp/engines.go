package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// knownEngines are the engines anycode can configure.
var knownEngines = map[string]bool{
	"claude": true,
	"codex":  true,
	"gemini": true,
}

// KnownEngines returns the supported engine ids, sorted.
func KnownEngines() []string {
	engines := make([]string, 0, len(knownEngines))
	for engine := range knownEngines {
		engines = append(engines, engine)
	}
	sort.Strings(engines)
	return engines
}

// engineConfigFile is the shape of a per-engine config document.
type engineConfigFile struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// FileEngineConfig is an EngineConfigurator backed by one JSON file per
// engine under a root directory (by default ~/.anycode/engines). The
// file holds a single "mcpServers" mapping; an absent file reads as an
// empty set.
type FileEngineConfig struct {
	root string
}

// NewFileEngineConfig creates a configurator rooted at dir.
func NewFileEngineConfig(dir string) *FileEngineConfig {
	return &FileEngineConfig{root: dir}
}

// DefaultEngineConfigRoot returns ~/.anycode/engines.
func DefaultEngineConfigRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".anycode", "engines"), nil
}

func (f *FileEngineConfig) configPath(engine string) (string, error) {
	if !knownEngines[engine] {
		return "", fmt.Errorf("unknown engine: %s", engine)
	}
	return filepath.Join(f.root, engine+".json"), nil
}

// ImportFrom reads the engine's enabled server set.
func (f *FileEngineConfig) ImportFrom(engine string) (map[string]json.RawMessage, error) {
	path, err := f.configPath(engine)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read %s config: %w", engine, err)
	}

	var doc engineConfigFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", engine, err)
	}
	if doc.MCPServers == nil {
		doc.MCPServers = map[string]json.RawMessage{}
	}
	return doc.MCPServers, nil
}

// SyncTo replaces the engine's enabled server set with the given
// mapping, writing through a temp file and rename.
func (f *FileEngineConfig) SyncTo(servers map[string]json.RawMessage, engine string) error {
	path, err := f.configPath(engine)
	if err != nil {
		return err
	}
	if servers == nil {
		servers = map[string]json.RawMessage{}
	}
	data, err := json.MarshalIndent(engineConfigFile{MCPServers: servers}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s config: %w", engine, err)
	}

	if err := os.MkdirAll(f.root, 0755); err != nil {
		return fmt.Errorf("failed to create engine config directory: %w", err)
	}
	tmp, err := os.CreateTemp(f.root, engine+".json.tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s config: %w", engine, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s config: %w", engine, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s config: %w", engine, err)
	}
	return nil
}
