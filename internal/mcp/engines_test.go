package mcp

import (
	"encoding/json"
	"testing"
)

func TestFileEngineConfigRoundTrip(t *testing.T) {
	cfg := NewFileEngineConfig(t.TempDir())

	servers := map[string]json.RawMessage{
		"fs":  json.RawMessage(`{"command":"fs-server"}`),
		"web": json.RawMessage(`{"command":"web-server","args":["--port","8080"]}`),
	}
	if err := cfg.SyncTo(servers, "claude"); err != nil {
		t.Fatalf("SyncTo: %v", err)
	}

	got, err := cfg.ImportFrom("claude")
	if err != nil {
		t.Fatalf("ImportFrom: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(got))
	}
	var fs struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(got["fs"], &fs); err != nil {
		t.Fatalf("unmarshal fs: %v", err)
	}
	if fs.Command != "fs-server" {
		t.Fatalf("fs command round-trip failed: %q", fs.Command)
	}
}

func TestFileEngineConfigAbsentFileIsEmpty(t *testing.T) {
	cfg := NewFileEngineConfig(t.TempDir())

	got, err := cfg.ImportFrom("gemini")
	if err != nil {
		t.Fatalf("ImportFrom: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %d", len(got))
	}
}

func TestFileEngineConfigUnknownEngine(t *testing.T) {
	cfg := NewFileEngineConfig(t.TempDir())

	if _, err := cfg.ImportFrom("copilot"); err == nil {
		t.Fatal("expected error for unknown engine")
	}
	if err := cfg.SyncTo(nil, "copilot"); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestFileEngineConfigSyncReplaces(t *testing.T) {
	cfg := NewFileEngineConfig(t.TempDir())

	if err := cfg.SyncTo(map[string]json.RawMessage{
		"a": json.RawMessage(`{}`),
		"b": json.RawMessage(`{}`),
	}, "codex"); err != nil {
		t.Fatalf("SyncTo: %v", err)
	}
	if err := cfg.SyncTo(map[string]json.RawMessage{
		"c": json.RawMessage(`{}`),
	}, "codex"); err != nil {
		t.Fatalf("SyncTo (replace): %v", err)
	}

	got, err := cfg.ImportFrom("codex")
	if err != nil {
		t.Fatalf("ImportFrom: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the set to be replaced, got %d entries", len(got))
	}
	if _, ok := got["c"]; !ok {
		t.Fatal("expected only c after replace")
	}
}

func TestKnownEngines(t *testing.T) {
	got := KnownEngines()
	want := []string{"claude", "codex", "gemini"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
