package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUserConfig_AbsentFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadUserConfig(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if cfg.GetEngine() != "claude" {
		t.Fatalf("default engine: %q", cfg.GetEngine())
	}
	if cfg.GetCommandTimeout() != 2*time.Minute {
		t.Fatalf("default timeout: %v", cfg.GetCommandTimeout())
	}
}

func TestLoadUserConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	doc := `{
		"engine": "codex",
		"command_timeout_ms": 30000,
		"registry_path": "/custom/registry.json",
		"logging": {"debug_mode": true, "level": "debug"}
	}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadUserConfig(path)
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if cfg.GetEngine() != "codex" {
		t.Fatalf("engine: %q", cfg.GetEngine())
	}
	if cfg.GetCommandTimeout() != 30*time.Second {
		t.Fatalf("timeout: %v", cfg.GetCommandTimeout())
	}
	registryPath, err := cfg.GetRegistryPath()
	if err != nil {
		t.Fatalf("GetRegistryPath: %v", err)
	}
	if registryPath != "/custom/registry.json" {
		t.Fatalf("registry path: %q", registryPath)
	}
	if cfg.Logging == nil || !cfg.Logging.DebugMode {
		t.Fatalf("logging section not parsed: %+v", cfg.Logging)
	}
}

func TestLoadUserConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadUserConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestUserConfigSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := &UserConfig{Engine: "gemini", CommandTimeoutMs: 5000}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadUserConfig(path)
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if loaded.Engine != "gemini" || loaded.CommandTimeoutMs != 5000 {
		t.Fatalf("round-trip mismatch: %+v", loaded)
	}
}
