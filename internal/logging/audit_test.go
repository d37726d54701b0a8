package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestAuditTrailRoundTrip(t *testing.T) {
	ws := t.TempDir()
	t.Cleanup(CloseAuditTrail)

	// Dropped silently before initialization.
	Audit(AuditCommandStart, map[string]interface{}{"binary": "git"})

	if err := InitAuditTrail(ws); err != nil {
		t.Fatalf("InitAuditTrail: %v", err)
	}

	Audit(AuditCheckpointCreate, map[string]interface{}{"commit": "abc1234", "engine": "claude"})
	Audit(AuditResetPerformed, map[string]interface{}{"target": "def5678"})
	CloseAuditTrail()

	file, err := os.Open(filepath.Join(ws, ".anycode", "logs", "audit.jsonl"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer file.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("malformed audit line: %v", err)
		}
		events = append(events, event)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != AuditCheckpointCreate {
		t.Fatalf("first event: %s", events[0].Type)
	}
	if events[0].Details["commit"] != "abc1234" {
		t.Fatalf("details round-trip: %+v", events[0].Details)
	}
	if events[1].Type != AuditResetPerformed {
		t.Fatalf("second event: %s", events[1].Type)
	}
}
