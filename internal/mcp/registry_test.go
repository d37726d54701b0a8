package mcp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestRegistry(t *testing.T) *RegistryStore {
	t.Helper()
	return NewRegistryStore(filepath.Join(t.TempDir(), RegistryFileName))
}

func TestRegistryAbsentFileIsEmpty(t *testing.T) {
	store := newTestRegistry(t)

	reg, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reg.Servers) != 0 {
		t.Fatalf("expected empty registry, got %d entries", len(reg.Servers))
	}
}

func TestRegistryEmptyFileIsEmpty(t *testing.T) {
	store := newTestRegistry(t)
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(store.Path(), nil, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reg, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(reg.Servers) != 0 {
		t.Fatalf("expected empty registry, got %d entries", len(reg.Servers))
	}
}

func TestRegistryIgnoresUnknownTopLevelKeys(t *testing.T) {
	store := newTestRegistry(t)
	doc := `{
		"version": 3,
		"futureFeature": {"x": 1},
		"servers": {
			"fs": {"id": "fs", "name": "Filesystem", "server": {"command": "fs-server"}, "enabled": true}
		}
	}`
	if err := os.MkdirAll(filepath.Dir(store.Path()), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(store.Path(), []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entry, ok, err := store.Get("fs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected fs entry")
	}
	if entry.Name != "Filesystem" || !entry.Enabled {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	store := newTestRegistry(t)
	server := json.RawMessage(`{"command":"fs-server","args":["--root","/tmp"]}`)

	if err := store.Upsert("fs", "Filesystem", server, true); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	entry, ok, err := store.Get("fs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected fs entry after upsert")
	}
	want := RegistryEntry{ID: "fs", Name: "Filesystem", Server: server, Enabled: true}
	if diff := cmp.Diff(want, entry); diff != "" {
		t.Fatalf("entry mismatch (-want +got):\n%s", diff)
	}

	if err := store.Remove("fs"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, err := store.Get("fs"); err != nil || ok {
		t.Fatalf("expected not-found after remove, ok=%v err=%v", ok, err)
	}
}

func TestRegistryUpsertReplaces(t *testing.T) {
	store := newTestRegistry(t)

	if err := store.Upsert("fs", "Filesystem", json.RawMessage(`{"command":"old"}`), false); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert("fs", "Filesystem v2", json.RawMessage(`{"command":"new"}`), true); err != nil {
		t.Fatalf("Upsert (replace): %v", err)
	}

	entry, ok, err := store.Get("fs")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if entry.Name != "Filesystem v2" || !entry.Enabled {
		t.Fatalf("entry not replaced: %+v", entry)
	}
	if string(entry.Server) != `{"command":"new"}` {
		t.Fatalf("server spec not replaced: %s", entry.Server)
	}
}

func TestRegistryRemoveAbsentDoesNotWrite(t *testing.T) {
	store := newTestRegistry(t)

	if err := store.Remove("never-existed"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatalf("removing an absent id must not create the registry file: %v", err)
	}
}

func TestRegistrySetEnabled(t *testing.T) {
	store := newTestRegistry(t)

	if err := store.Upsert("fs", "Filesystem", json.RawMessage(`{}`), false); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.SetEnabled("fs", true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	entry, _, err := store.Get("fs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !entry.Enabled {
		t.Fatal("expected enabled=true")
	}

	// Absent id is a silent no-op.
	if err := store.SetEnabled("ghost", true); err != nil {
		t.Fatalf("SetEnabled absent: %v", err)
	}
}

// fakeConfigurator is an in-memory EngineConfigurator.
type fakeConfigurator struct {
	servers map[string]map[string]json.RawMessage
}

func newFakeConfigurator() *fakeConfigurator {
	return &fakeConfigurator{servers: map[string]map[string]json.RawMessage{}}
}

func (f *fakeConfigurator) ImportFrom(engine string) (map[string]json.RawMessage, error) {
	live := f.servers[engine]
	if live == nil {
		return map[string]json.RawMessage{}, nil
	}
	return live, nil
}

func (f *fakeConfigurator) SyncTo(servers map[string]json.RawMessage, engine string) error {
	f.servers[engine] = servers
	return nil
}

func TestListWithStatusEngineWinsForActive(t *testing.T) {
	store := newTestRegistry(t)
	if err := store.Upsert("fs", "Filesystem", json.RawMessage(`{"command":"stale"}`), false); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert("db", "Database", json.RawMessage(`{"command":"db-server"}`), false); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	cfg := newFakeConfigurator()
	cfg.servers["claude"] = map[string]json.RawMessage{
		"fs": json.RawMessage(`{"command":"live"}`),
	}

	statuses, err := store.ListWithStatus("claude", cfg)
	if err != nil {
		t.Fatalf("ListWithStatus: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(statuses))
	}
	// Sorted by id: db, fs.
	if statuses[0].ID != "db" || statuses[0].Enabled {
		t.Fatalf("db row: %+v", statuses[0])
	}
	if statuses[1].ID != "fs" || !statuses[1].Enabled {
		t.Fatalf("fs row: %+v", statuses[1])
	}
	if string(statuses[1].Server) != `{"command":"live"}` {
		t.Fatalf("engine's live spec must win for active ids: %s", statuses[1].Server)
	}
}

func TestListWithStatusLiveSetIsEnabledAuthority(t *testing.T) {
	store := newTestRegistry(t)
	// Locally enabled, but the engine's live set is empty: the engine
	// decides what is active, so the row must come back disabled.
	if err := store.Upsert("fs", "Filesystem", json.RawMessage(`{"command":"fs-server"}`), true); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	statuses, err := store.ListWithStatus("claude", newFakeConfigurator())
	if err != nil {
		t.Fatalf("ListWithStatus: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 row, got %d", len(statuses))
	}
	if statuses[0].Enabled {
		t.Fatal("entry absent from the live set must report enabled=false")
	}

	// The stored flag is untouched; only the reconciled view reflects
	// the engine.
	entry, _, err := store.Get("fs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !entry.Enabled {
		t.Fatal("reconciliation must not rewrite the persisted flag")
	}
}

func TestListWithStatusAppendsEngineOnlyIDs(t *testing.T) {
	store := newTestRegistry(t)

	cfg := newFakeConfigurator()
	cfg.servers["claude"] = map[string]json.RawMessage{
		"extern": json.RawMessage(`{"command":"extern-server"}`),
	}

	statuses, err := store.ListWithStatus("claude", cfg)
	if err != nil {
		t.Fatalf("ListWithStatus: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 row, got %d", len(statuses))
	}
	if statuses[0].ID != "extern" || !statuses[0].Enabled {
		t.Fatalf("engine-only ids are always enabled: %+v", statuses[0])
	}
	if string(statuses[0].Server) != `{"command":"extern-server"}` {
		t.Fatalf("expected external spec, got %s", statuses[0].Server)
	}
}

func TestSyncToEnginePushesEnabledSubset(t *testing.T) {
	store := newTestRegistry(t)
	if err := store.Upsert("fs", "Filesystem", json.RawMessage(`{"command":"fs"}`), true); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert("db", "Database", json.RawMessage(`{"command":"db"}`), false); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert("web", "Web", json.RawMessage(`{"command":"web"}`), true); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	cfg := newFakeConfigurator()
	// Stale entry that must be replaced wholesale.
	cfg.servers["claude"] = map[string]json.RawMessage{
		"old": json.RawMessage(`{"command":"old"}`),
	}

	if err := store.SyncToEngine("claude", cfg); err != nil {
		t.Fatalf("SyncToEngine: %v", err)
	}

	live, err := cfg.ImportFrom("claude")
	if err != nil {
		t.Fatalf("ImportFrom: %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("expected 2 enabled servers, got %d", len(live))
	}
	if _, ok := live["fs"]; !ok {
		t.Fatal("fs should be enabled")
	}
	if _, ok := live["web"]; !ok {
		t.Fatal("web should be enabled")
	}
	if _, ok := live["old"]; ok {
		t.Fatal("sync must replace the engine's set, not merge")
	}
}
