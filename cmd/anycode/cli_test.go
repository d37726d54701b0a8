package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"anycode/internal/config"
	"anycode/internal/mcp"
)

// setupMcpEnv points the global config at a temp registry and engine dir.
func setupMcpEnv(t *testing.T) *mcp.RegistryStore {
	t.Helper()
	logger = zap.NewNop()

	dir := t.TempDir()
	userConfig = &config.UserConfig{
		RegistryPath:    filepath.Join(dir, "mcp-registry.json"),
		EngineConfigDir: filepath.Join(dir, "engines"),
	}
	t.Cleanup(func() { userConfig = nil })

	store, _, err := openRegistry()
	if err != nil {
		t.Fatalf("openRegistry failed: %v", err)
	}
	return store
}

func TestMcpEnableDisableCmds(t *testing.T) {
	store := setupMcpEnv(t)

	spec := json.RawMessage(`{"command":"fs-server"}`)
	if err := store.Upsert("fs", "Filesystem", spec, false); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if err := mcpEnableCmd.RunE(mcpEnableCmd, []string{"fs"}); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	entry, ok, err := store.Get("fs")
	if err != nil || !ok {
		t.Fatalf("Get after enable: ok=%v err=%v", ok, err)
	}
	if !entry.Enabled {
		t.Error("server should be enabled after the enable command")
	}

	if err := mcpDisableCmd.RunE(mcpDisableCmd, []string{"fs"}); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	entry, ok, err = store.Get("fs")
	if err != nil || !ok {
		t.Fatalf("Get after disable: ok=%v err=%v", ok, err)
	}
	if entry.Enabled {
		t.Error("server should be disabled after the disable command")
	}
}

func TestMcpEnableUnknownServer(t *testing.T) {
	setupMcpEnv(t)

	if err := mcpEnableCmd.RunE(mcpEnableCmd, []string{"ghost"}); err == nil {
		t.Fatal("enabling an unregistered server should fail")
	}
}

func TestMcpAddAndRemoveCmds(t *testing.T) {
	store := setupMcpEnv(t)

	addName = "Filesystem"
	addServer = `{"command":"fs-server"}`
	addEnabled = true
	defer func() { addName, addServer, addEnabled = "", "{}", true }()

	if err := mcpAddCmd.RunE(mcpAddCmd, []string{"fs"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	entry, ok, err := store.Get("fs")
	if err != nil || !ok {
		t.Fatalf("Get after add: ok=%v err=%v", ok, err)
	}
	if entry.Name != "Filesystem" || !entry.Enabled {
		t.Errorf("unexpected entry after add: %+v", entry)
	}

	if err := mcpRemoveCmd.RunE(mcpRemoveCmd, []string{"fs"}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok, err := store.Get("fs"); err != nil || ok {
		t.Fatalf("entry should be gone after remove: ok=%v err=%v", ok, err)
	}
}
