// Audit logging: structured JSONL events recording every external
// process anycode spawns and every checkpoint mutation it performs.
// Unlike category logs, the audit trail is written whenever the trail
// file can be opened, independent of debug_mode.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType identifies what kind of event was recorded.
type AuditEventType string

const (
	// Process lifecycle
	AuditCommandStart    AuditEventType = "command_start"
	AuditCommandComplete AuditEventType = "command_complete"
	AuditCommandError    AuditEventType = "command_error"

	// Checkpoint mutations
	AuditRepoInit         AuditEventType = "repo_init"
	AuditCheckpointCreate AuditEventType = "checkpoint_create"
	AuditResetPerformed   AuditEventType = "reset_performed"
	AuditStashSaved       AuditEventType = "stash_saved"

	// Registry mutations
	AuditRegistryWrite AuditEventType = "registry_write"
	AuditEngineSync    AuditEventType = "engine_sync"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      AuditEventType         `json:"type"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// AuditTrail appends events to a JSONL file.
type AuditTrail struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

var (
	auditTrail   *AuditTrail
	auditTrailMu sync.Mutex
)

// InitAuditTrail opens the audit file under the workspace. Call once at
// startup; events before initialization are dropped.
func InitAuditTrail(ws string) error {
	auditTrailMu.Lock()
	defer auditTrailMu.Unlock()

	dir := filepath.Join(ws, ".anycode", "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(dir, "audit.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit trail: %w", err)
	}
	auditTrail = &AuditTrail{file: file, enc: json.NewEncoder(file)}
	return nil
}

// Audit records one event. A no-op when the trail is not initialized.
func Audit(eventType AuditEventType, details map[string]interface{}) {
	auditTrailMu.Lock()
	trail := auditTrail
	auditTrailMu.Unlock()
	if trail == nil {
		return
	}

	trail.mu.Lock()
	defer trail.mu.Unlock()
	_ = trail.enc.Encode(AuditEvent{
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Details:   details,
	})
}

// CloseAuditTrail flushes and closes the audit file.
func CloseAuditTrail() {
	auditTrailMu.Lock()
	defer auditTrailMu.Unlock()
	if auditTrail != nil {
		_ = auditTrail.file.Close()
		auditTrail = nil
	}
}
