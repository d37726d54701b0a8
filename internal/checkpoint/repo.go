// Package checkpoint treats a project directory as a version-controlled
// workspace for an AI-assisted editing session. It guarantees a consistent
// repository state exists before any AI-driven edit, records each edit as a
// commit, and classifies whether a destructive rollback would discard work
// made by actors other than the one requesting it.
//
// Git is orchestrated as an opaque service through the tactile executor; only
// the small subset of its output needed for these decisions is parsed.
package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"anycode/internal/logging"
	"anycode/internal/tactile"
)

// Committer identity configured during bootstrap. Best-effort: commits need
// an identity, but a failure to set one must never block bootstrapping.
const (
	committerName  = "Claude Workbench"
	committerEmail = "ai@claude.workbench"
)

// bootstrapCommitMessage is the fixed message of the very first commit created
// during repository initialization. It carries the workbench marker so the
// safety classifier attributes bootstrap commits to the workbench itself.
const bootstrapCommitMessage = "[Claude Workbench] Initial commit - preserving existing code"

// Service provides checkpoint operations on project repositories.
type Service struct {
	executor tactile.Executor
}

// NewService creates a checkpoint service backed by the given executor.
func NewService(executor tactile.Executor) *Service {
	return &Service{executor: executor}
}

// EnsureResult reports what bootstrapping actually did. The fatal/best-effort
// split is explicit: anything that was swallowed during bootstrap shows up in
// Warnings instead of aborting the sequence.
type EnsureResult struct {
	// Initialized is true when the store directory had to be created.
	Initialized bool

	// CreatedCommit is true when the bootstrap commit was created.
	CreatedCommit bool

	// Warnings collects non-fatal failures (identity config, staging).
	Warnings []string
}

// CommitOutcome is the result of CommitChanges.
type CommitOutcome int

const (
	// CommitNone means the working tree was clean; no commit was created.
	CommitNone CommitOutcome = iota

	// CommitCreated means changes were staged and committed.
	CommitCreated
)

// git runs a git command in the given directory. A non-nil error means the
// process could not be spawned or timed out; command failure is reported
// through the result.
func (s *Service) git(ctx context.Context, dir string, args ...string) (*tactile.ExecutionResult, error) {
	return s.executor.Execute(ctx, tactile.Command{
		Binary:           "git",
		Arguments:        args,
		WorkingDirectory: dir,
	})
}

// IsRepo reports whether the project directory has a git store directory.
func (s *Service) IsRepo(projectPath string) bool {
	info, err := os.Stat(filepath.Join(projectPath, ".git"))
	return err == nil && info.IsDir()
}

// EnsureRepo drives the repository to the ready state: store directory present
// and at least one commit. It is idempotent and never discards pre-existing
// content - the bootstrap commit captures whatever was already on disk.
func (s *Service) EnsureRepo(ctx context.Context, projectPath string) (*EnsureResult, error) {
	result := &EnsureResult{}

	hasGitDir := s.IsRepo(projectPath)
	hasCommits := false
	if hasGitDir {
		if _, err := s.CurrentCommit(ctx, projectPath); err == nil {
			hasCommits = true
		}
	}

	if hasCommits {
		logging.CheckpointDebug("Repository ready at: %s", projectPath)
		return result, nil
	}

	if !hasGitDir {
		logging.Checkpoint("Initializing repository at: %s", projectPath)
		res, err := s.git(ctx, projectPath, "init")
		if err != nil {
			return nil, fmt.Errorf("failed to init git: %w", err)
		}
		if !res.Success {
			return nil, &CommandError{Args: []string{"init"}, Stderr: stderrText(res.Stderr)}
		}
		result.Initialized = true
	} else {
		logging.Checkpoint("Repository exists but has no commits, creating initial commit")
	}

	// Committer identity is best-effort: a failure here is recorded and
	// skipped, never fatal.
	for _, cfg := range [][]string{
		{"config", "user.name", committerName},
		{"config", "user.email", committerEmail},
	} {
		res, err := s.git(ctx, projectPath, cfg...)
		if err != nil || !res.Success {
			warning := fmt.Sprintf("git %s failed", strings.Join(cfg, " "))
			logging.CheckpointWarn("%s", warning)
			result.Warnings = append(result.Warnings, warning)
		}
	}

	// Stage all existing files first so the initial commit preserves
	// whatever the user already had on disk.
	logging.Checkpoint("Staging all existing files for initial commit")
	addRes, err := s.git(ctx, projectPath, "add", "-A")
	if err != nil {
		return nil, fmt.Errorf("failed to stage files: %w", err)
	}
	if !addRes.Success {
		// May legitimately mean there is nothing to add; continue.
		warning := fmt.Sprintf("git add warning: %s", stderrText(addRes.Stderr))
		logging.CheckpointWarn("%s", warning)
		result.Warnings = append(result.Warnings, warning)
	}

	// --allow-empty so bootstrapping never fails merely because the
	// working tree is empty.
	commitRes, err := s.git(ctx, projectPath, "commit", "--allow-empty", "-m", bootstrapCommitMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial commit: %w", err)
	}
	if !commitRes.Success {
		stderr := stderrText(commitRes.Stderr)
		logging.CheckpointError("Initial commit failed: %s", stderr)
		return nil, &CommandError{Args: []string{"commit", "--allow-empty"}, Stderr: stderr}
	}
	result.CreatedCommit = true

	logging.Checkpoint("Repository initialized with initial commit (existing files preserved)")
	return result, nil
}

// CurrentCommit returns the hash of the current HEAD commit.
// Fails when the repository has no commits.
func (s *Service) CurrentCommit(ctx context.Context, projectPath string) (string, error) {
	res, err := s.git(ctx, projectPath, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current commit: %w", err)
	}
	if !res.Success {
		return "", &CommandError{Args: []string{"rev-parse", "HEAD"}, Stderr: stderrText(res.Stderr)}
	}
	if !utf8.Valid(res.Stdout) {
		return "", &DecodeError{What: "commit hash"}
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// CommitChanges stages and commits all working-tree changes under the given
// message. A clean tree yields CommitNone, which is not an error.
func (s *Service) CommitChanges(ctx context.Context, projectPath, message string) (CommitOutcome, error) {
	statusRes, err := s.git(ctx, projectPath, "status", "--porcelain")
	if err != nil {
		return CommitNone, fmt.Errorf("failed to check git status: %w", err)
	}
	if !statusRes.Success {
		return CommitNone, &CommandError{Args: []string{"status", "--porcelain"}, Stderr: stderrText(statusRes.Stderr)}
	}
	if strings.TrimSpace(string(statusRes.Stdout)) == "" {
		logging.CheckpointDebug("No changes to commit in %s", projectPath)
		return CommitNone, nil
	}

	addRes, err := s.git(ctx, projectPath, "add", "-A")
	if err != nil {
		return CommitNone, fmt.Errorf("failed to git add: %w", err)
	}
	if !addRes.Success {
		return CommitNone, &CommandError{Args: []string{"add", "-A"}, Stderr: stderrText(addRes.Stderr)}
	}

	commitRes, err := s.git(ctx, projectPath, "commit", "-m", message)
	if err != nil {
		return CommitNone, fmt.Errorf("failed to git commit: %w", err)
	}
	if !commitRes.Success {
		return CommitNone, &CommandError{Args: []string{"commit", "-m", message}, Stderr: stderrText(commitRes.Stderr)}
	}

	logging.Checkpoint("Committed changes: %s", message)
	return CommitCreated, nil
}

// ResetHard rewrites the working tree and moves HEAD to the target commit,
// discarding all uncommitted changes.
func (s *Service) ResetHard(ctx context.Context, projectPath, commit string) error {
	logging.Checkpoint("Resetting repository to commit: %s", commit)

	res, err := s.git(ctx, projectPath, "reset", "--hard", commit)
	if err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	if !res.Success {
		return &CommandError{Args: []string{"reset", "--hard", commit}, Stderr: stderrText(res.Stderr)}
	}

	logging.Checkpoint("Successfully reset to commit: %s", commit)
	return nil
}

// StashSave saves uncommitted changes (including untracked files) under the
// given message. A clean tree is a no-op; stash failure is advisory only and
// is logged, never propagated.
func (s *Service) StashSave(ctx context.Context, projectPath, message string) error {
	statusRes, err := s.git(ctx, projectPath, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("failed to check status: %w", err)
	}
	if len(statusRes.Stdout) == 0 {
		logging.CheckpointDebug("No uncommitted changes to stash")
		return nil
	}

	logging.Checkpoint("Stashing uncommitted changes: %s", message)

	stashRes, err := s.git(ctx, projectPath, "stash", "save", "-u", message)
	if err != nil {
		return fmt.Errorf("failed to stash: %w", err)
	}
	if !stashRes.Success {
		logging.CheckpointWarn("Git stash warning: %s", stderrText(stashRes.Stderr))
	}

	return nil
}
