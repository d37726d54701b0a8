// This file contains the checkpoint commands: repository provisioning,
// snapshot commits, safety-gated rollback and checkpoint history.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"anycode/internal/checkpoint"
	"anycode/internal/logging"
	"anycode/internal/tactile"
)

var (
	forceRestore bool
	listLimit    int
)

// checkpointCmd groups the git-backed checkpoint operations
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Manage git-backed edit checkpoints",
	Long: `Checkpoints are ordinary git commits in the project workspace,
tagged with the authoring engine's marker. anycode provisions the
repository on first use without ever discarding pre-existing files.`,
}

// newCheckpointService builds a Service honoring the configured timeout,
// with every spawned process recorded on the audit trail.
func newCheckpointService() *checkpoint.Service {
	execConfig := tactile.DefaultExecutorConfig()
	execConfig.DefaultTimeout = userConfig.GetCommandTimeout()
	executor := tactile.NewDirectExecutorWithConfig(execConfig)
	executor.SetAuditCallback(func(event tactile.AuditEvent) {
		details := map[string]interface{}{
			"command": event.Command.CommandString(),
		}
		if event.Result != nil {
			details["exit_code"] = event.Result.ExitCode
			details["duration_ms"] = event.Result.Duration.Milliseconds()
		}
		switch event.Type {
		case tactile.AuditEventStart:
			logging.Audit(logging.AuditCommandStart, details)
		case tactile.AuditEventComplete:
			logging.Audit(logging.AuditCommandComplete, details)
		default:
			logging.Audit(logging.AuditCommandError, details)
		}
	})
	return checkpoint.NewService(executor)
}

// resolveWorkspace returns the absolute project path.
func resolveWorkspace() (string, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	return abs, nil
}

// openHistory opens the checkpoint history store, or nil when history
// is unavailable (history is best-effort; checkpoints still work).
func openHistory() *checkpoint.Store {
	dbPath, err := userConfig.GetCheckpointDBPath()
	if err != nil {
		logger.Warn("checkpoint history unavailable", zap.Error(err))
		return nil
	}
	store, err := checkpoint.NewStore(dbPath)
	if err != nil {
		logger.Warn("checkpoint history unavailable", zap.Error(err))
		return nil
	}
	return store
}

// ensureCmd provisions the workspace repository
var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Ensure the workspace has a checkpoint-ready git repository",
	Long: `Initializes a git repository in the workspace if none exists and
creates the initial commit, preserving every pre-existing file. Safe to
run repeatedly: an already-ready repository is left untouched.

Example:
  anycode checkpoint ensure -w ./myproject`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveWorkspace()
		if err != nil {
			return err
		}
		svc := newCheckpointService()

		result, err := svc.EnsureRepo(cmd.Context(), dir)
		if err != nil {
			return err
		}
		for _, warning := range result.Warnings {
			fmt.Printf("⚠️  %s\n", warning)
		}
		switch {
		case result.Initialized:
			logging.Audit(logging.AuditRepoInit, map[string]interface{}{"path": dir})
			fmt.Printf("✅ Initialized repository in %s\n", dir)
		case result.CreatedCommit:
			logging.Audit(logging.AuditRepoInit, map[string]interface{}{"path": dir})
			fmt.Printf("✅ Created initial commit in %s\n", dir)
		default:
			fmt.Printf("✅ Repository already ready in %s\n", dir)
		}
		return nil
	},
}

// saveCmd commits current changes as a checkpoint
var saveCmd = &cobra.Command{
	Use:   "save [message]",
	Short: "Commit current changes as a checkpoint",
	Long: `Stages all changes and commits them with the active engine's
marker so later safety checks attribute the commit correctly. A clean
working tree is reported as "nothing to save", not an error.

Example:
  anycode checkpoint save "refactor auth middleware"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveWorkspace()
		if err != nil {
			return err
		}
		svc := newCheckpointService()
		ctx := cmd.Context()

		message := "checkpoint"
		if len(args) > 0 {
			message = strings.Join(args, " ")
		}
		engine := currentEngine()
		fullMessage := checkpoint.MarkerFor(engine) + " " + message

		outcome, err := svc.CommitChanges(ctx, dir, fullMessage)
		if err != nil {
			return err
		}
		if outcome == checkpoint.CommitNone {
			fmt.Println("ℹ️  Nothing to save, working tree clean")
			return nil
		}

		hash, err := svc.CurrentCommit(ctx, dir)
		if err != nil {
			return err
		}
		logging.Audit(logging.AuditCheckpointCreate, map[string]interface{}{"commit": hash, "engine": engine})
		fmt.Printf("✅ Checkpoint %s created\n", shortHash(hash))

		if store := openHistory(); store != nil {
			defer store.Close()
			rec := checkpoint.CheckpointRecord{
				ProjectPath: dir,
				CommitHash:  hash,
				Message:     fullMessage,
				Engine:      engine,
			}
			if err := store.Record(ctx, &rec); err != nil {
				logger.Warn("failed to record checkpoint history", zap.Error(err))
			}
		}
		return nil
	},
}

// safetyCmd prints the rollback safety verdict
var safetyCmd = &cobra.Command{
	Use:   "safety <commit>",
	Short: "Check whether resetting to a commit is safe",
	Long: `Walks the commits between the target and HEAD and reports what a
hard reset would discard: how many commits, whether any belong to other
engines or to the user, and a human-readable warning when unsafe.

Example:
  anycode checkpoint safety abc1234`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveWorkspace()
		if err != nil {
			return err
		}
		svc := newCheckpointService()

		verdict, err := svc.CheckResetSafety(cmd.Context(), dir, args[0], currentEngine())
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(verdict)
	},
}

// restoreCmd rolls the workspace back to a checkpoint
var restoreCmd = &cobra.Command{
	Use:   "restore <commit>",
	Short: "Hard-reset the workspace to a checkpoint",
	Long: `Runs the safety check first and refuses to discard other engines'
or the user's commits unless --force is given. Uncommitted changes are
stashed before the reset so they remain recoverable.

Example:
  anycode checkpoint restore abc1234
  anycode checkpoint restore abc1234 --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveWorkspace()
		if err != nil {
			return err
		}
		svc := newCheckpointService()
		ctx := cmd.Context()
		target := args[0]

		verdict, err := svc.CheckResetSafety(ctx, dir, target, currentEngine())
		if err != nil {
			return err
		}
		if verdict.CommitsToLose == 0 {
			fmt.Println("✅ Already at the requested checkpoint")
			return nil
		}
		if !verdict.SafeToProceed && !forceRestore {
			fmt.Printf("⚠️  %s\n", verdict.Warning)
			for _, subject := range verdict.CommitsSummary {
				fmt.Printf("   %s\n", subject)
			}
			return fmt.Errorf("refusing to discard %d commit(s); re-run with --force to proceed", verdict.CommitsToLose)
		}

		if err := svc.StashSave(ctx, dir, "anycode: before restore to "+shortHash(target)); err != nil {
			return err
		}
		if err := svc.ResetHard(ctx, dir, target); err != nil {
			return err
		}
		logging.Audit(logging.AuditResetPerformed, map[string]interface{}{
			"target":          target,
			"commits_lost":    verdict.CommitsToLose,
			"safe_to_proceed": verdict.SafeToProceed,
		})
		fmt.Printf("✅ Restored to %s (%d commit(s) discarded)\n", shortHash(target), verdict.CommitsToLose)
		return nil
	},
}

// stashCmd stashes the working tree
var stashCmd = &cobra.Command{
	Use:   "stash [message]",
	Short: "Stash uncommitted changes, including untracked files",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveWorkspace()
		if err != nil {
			return err
		}
		svc := newCheckpointService()

		message := "anycode stash"
		if len(args) > 0 {
			message = strings.Join(args, " ")
		}
		if err := svc.StashSave(cmd.Context(), dir, message); err != nil {
			return err
		}
		logging.Audit(logging.AuditStashSaved, map[string]interface{}{"path": dir})
		fmt.Println("✅ Working tree stashed")
		return nil
	},
}

// listCmd shows checkpoint history for the workspace
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded checkpoints for the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := resolveWorkspace()
		if err != nil {
			return err
		}
		store := openHistory()
		if store == nil {
			return fmt.Errorf("checkpoint history is unavailable")
		}
		defer store.Close()

		records, err := store.ListForProject(cmd.Context(), dir, listLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No checkpoints recorded for this workspace")
			return nil
		}
		for _, rec := range records {
			fmt.Printf("%s  %s  [%s]  %s\n",
				rec.CreatedAt.Local().Format("2006-01-02 15:04"),
				shortHash(rec.CommitHash), rec.Engine, rec.Message)
		}
		return nil
	},
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func init() {
	restoreCmd.Flags().BoolVarP(&forceRestore, "force", "f", false, "Discard other engines' or user commits without confirmation")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "Maximum checkpoints to show (0 for all)")

	checkpointCmd.AddCommand(ensureCmd)
	checkpointCmd.AddCommand(saveCmd)
	checkpointCmd.AddCommand(safetyCmd)
	checkpointCmd.AddCommand(restoreCmd)
	checkpointCmd.AddCommand(stashCmd)
	checkpointCmd.AddCommand(listCmd)
}

