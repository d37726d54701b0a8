package tactile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"anycode/internal/logging"
)

// Executor is the interface for command execution.
type Executor interface {
	// Execute runs a command and returns a comprehensive result.
	// A nil error with Success=false means the command ran but exited non-zero;
	// a non-nil error means the process could not be spawned or was killed.
	Execute(ctx context.Context, cmd Command) (*ExecutionResult, error)

	// Validate checks if a command can be executed by this executor.
	Validate(cmd Command) error
}

// ErrTimeout is returned (wrapped) when a command exceeds its deadline.
var ErrTimeout = fmt.Errorf("command timed out")

// DirectExecutor executes commands directly on the host using os/exec.
type DirectExecutor struct {
	mu     sync.RWMutex
	config ExecutorConfig

	// auditCallback is called for execution events
	auditCallback func(AuditEvent)
}

// NewDirectExecutor creates a new direct executor with default config.
func NewDirectExecutor() *DirectExecutor {
	return NewDirectExecutorWithConfig(DefaultExecutorConfig())
}

// NewDirectExecutorWithConfig creates a new direct executor with custom config.
func NewDirectExecutorWithConfig(config ExecutorConfig) *DirectExecutor {
	logging.TactileDebug("Creating DirectExecutor: timeout=%s, maxOutput=%d bytes",
		config.DefaultTimeout, config.MaxOutputBytes)
	return &DirectExecutor{config: config}
}

// SetAuditCallback sets the callback for audit events.
func (e *DirectExecutor) SetAuditCallback(callback func(AuditEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auditCallback = callback
}

// emitAudit emits an audit event if a callback is registered.
func (e *DirectExecutor) emitAudit(event AuditEvent) {
	e.mu.RLock()
	callback := e.auditCallback
	e.mu.RUnlock()

	if callback != nil {
		callback(event)
	}
}

// Validate checks if a command can be executed.
func (e *DirectExecutor) Validate(cmd Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	return nil
}

// Execute runs a command directly on the host.
func (e *DirectExecutor) Execute(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if err := e.Validate(cmd); err != nil {
		logging.TactileWarn("Command validation failed: %s %v - %v", cmd.Binary, cmd.Arguments, err)
		return nil, err
	}

	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}

	logging.Tactile("Executing command: %s (req=%s)", cmd.CommandString(), cmd.RequestID)

	result := &ExecutionResult{
		ExitCode: -1,
		Command:  &cmd,
	}

	e.emitAudit(AuditEvent{
		Type:      AuditEventStart,
		Timestamp: time.Now(),
		Command:   cmd,
	})

	timeout := e.config.DefaultTimeout
	if cmd.TimeoutMs > 0 {
		timeout = time.Duration(cmd.TimeoutMs) * time.Millisecond
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = append(os.Environ(), cmd.Environment...)
	setupProcessAttrs(execCmd)

	if cmd.Stdin != "" {
		execCmd.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: e.config.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: e.config.MaxOutputBytes}
	execCmd.Stdout = stdoutLimited
	execCmd.Stderr = stderrLimited

	result.StartedAt = time.Now()
	err := execCmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	result.Stdout = stdoutBuf.Bytes()
	result.Stderr = stderrBuf.Bytes()

	if stdoutLimited.truncated || stderrLimited.truncated {
		result.Truncated = true
		result.TruncatedBytes = stdoutLimited.discarded + stderrLimited.discarded
		logging.TactileWarn("Command output truncated: %d bytes discarded", result.TruncatedBytes)
	}

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			logging.TactileWarn("Command killed (timeout): %s after %s", cmd.Binary, timeout)
			e.emitAudit(AuditEvent{
				Type:      AuditEventKilled,
				Timestamp: time.Now(),
				Command:   cmd,
				Result:    result,
			})
			return result, fmt.Errorf("%w: %s after %s", ErrTimeout, cmd.Binary, timeout)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			// Command ran, just returned non-zero; not an infrastructure error.
			result.Success = false
			result.ExitCode = exitErr.ExitCode()
			logging.TactileDebug("Command exited non-zero: %s -> %d", cmd.Binary, result.ExitCode)
			e.emitAudit(AuditEvent{
				Type:      AuditEventComplete,
				Timestamp: time.Now(),
				Command:   cmd,
				Result:    result,
			})
			return result, nil
		}
		logging.TactileError("Command failed to spawn: %s - %v", cmd.Binary, err)
		e.emitAudit(AuditEvent{
			Type:      AuditEventError,
			Timestamp: time.Now(),
			Command:   cmd,
			Result:    result,
		})
		return nil, fmt.Errorf("failed to spawn %s: %w", cmd.Binary, err)
	}

	result.Success = true
	result.ExitCode = 0

	e.emitAudit(AuditEvent{
		Type:      AuditEventComplete,
		Timestamp: time.Now(),
		Command:   cmd,
		Result:    result,
	})

	logging.TactileDebug("Command completed: %s -> exit=%d, duration=%s, stdout=%d bytes",
		cmd.Binary, result.ExitCode, result.Duration, len(result.Stdout))

	return result, nil
}

// limitedWriter caps the number of bytes written, discarding the rest.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	discarded int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.max <= 0 || lw.written < lw.max {
		room := int64(len(p))
		if lw.max > 0 && lw.written+room > lw.max {
			room = lw.max - lw.written
		}
		n, err := lw.w.Write(p[:room])
		lw.written += int64(n)
		if err != nil {
			return n, err
		}
		if int64(len(p)) > room {
			lw.truncated = true
			lw.discarded += int64(len(p)) - room
		}
		return len(p), nil
	}
	lw.truncated = true
	lw.discarded += int64(len(p))
	return len(p), nil
}
