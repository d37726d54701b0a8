// Package tactile is the execution layer of the checkpoint core. It provides
// the lowest-level primitive that physically interacts with the outside world:
// spawning a subprocess, waiting for it, and capturing its output.
//
// Design principles:
//   - Minimal logic: what to run and how to interpret output is the caller's job
//   - One process per call, strictly synchronous
//   - Structured results: exit status, captured stdout/stderr, timing
//   - Cross-platform: process attributes (e.g. window suppression on Windows)
//     are isolated in platform_*.go and never part of the contract
package tactile

import (
	"time"
)

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "git").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	// If empty, uses the current process working directory.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to set (in KEY=VALUE format).
	// These are appended to the current process environment.
	Environment []string `json:"environment,omitempty"`

	// Stdin provides input to the command's standard input.
	Stdin string `json:"stdin,omitempty"`

	// TimeoutMs is the maximum execution time in milliseconds.
	// Zero means use the executor's default timeout.
	TimeoutMs int64 `json:"timeout_ms,omitempty"`

	// RequestID uniquely identifies this execution request (for audit).
	// Assigned automatically when empty.
	RequestID string `json:"request_id,omitempty"`

	// Tags are arbitrary key-value pairs for categorization and audit.
	Tags map[string]string `json:"tags,omitempty"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	result := c.Binary
	for _, arg := range c.Arguments {
		result += " " + arg
	}
	return result
}

// ExecutionResult is the output of command execution.
type ExecutionResult struct {
	// Success indicates whether the command ran and exited zero.
	Success bool `json:"success"`

	// ExitCode is the command's exit code (-1 if not available).
	ExitCode int `json:"exit_code"`

	// Stdout is the captured standard output, raw bytes as produced.
	Stdout []byte `json:"stdout"`

	// Stderr is the captured standard error, raw bytes as produced.
	Stderr []byte `json:"stderr"`

	// Duration is how long the command ran.
	Duration time.Duration `json:"duration"`

	// StartedAt is when execution began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when execution completed.
	FinishedAt time.Time `json:"finished_at"`

	// TimedOut indicates the command was killed because its deadline expired.
	TimedOut bool `json:"timed_out"`

	// Truncated indicates output was truncated due to size limits.
	Truncated bool `json:"truncated"`

	// TruncatedBytes is how many bytes were discarded.
	TruncatedBytes int64 `json:"truncated_bytes,omitempty"`

	// Command is a copy of the command that was executed (for audit).
	Command *Command `json:"command,omitempty"`
}

// ExecutorConfig controls defaults applied to every command.
type ExecutorConfig struct {
	// DefaultTimeout is used when a command specifies no timeout.
	DefaultTimeout time.Duration

	// MaxOutputBytes caps captured stdout and stderr, each.
	MaxOutputBytes int64
}

// DefaultExecutorConfig returns the standard configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		DefaultTimeout: 2 * time.Minute,
		MaxOutputBytes: 10 * 1024 * 1024, // 10MB
	}
}

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventKilled   AuditEventType = "killed"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent represents an execution event emitted to the audit callback.
type AuditEvent struct {
	// Type is the event category.
	Type AuditEventType `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Command is the command being executed.
	Command Command `json:"command"`

	// Result is attached for complete/killed/error events.
	Result *ExecutionResult `json:"result,omitempty"`
}
