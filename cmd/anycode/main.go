// Package main implements the anycode CLI: checkpointed AI code editing
// with git-backed rollback and MCP server registry management.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"anycode/internal/config"
	"anycode/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	engineFlag string
	configPath string

	// Loaded once in PersistentPreRunE
	userConfig *config.UserConfig

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "anycode",
	Short: "anycode - checkpointed AI code editing",
	Long: `anycode keeps AI code editing reversible.

Every automated edit session runs on top of a git repository that anycode
provisions and checkpoints. Commits are attributed to the engine that made
them, so rolling back never silently destroys human work or another
engine's work. The mcp commands manage the shared MCP server registry and
keep each engine's live configuration in sync with it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if configPath == "" {
			configPath = config.DefaultUserConfigPath()
		}
		userConfig, err = config.LoadUserConfig(configPath)
		if err != nil {
			return err
		}

		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		if err := logging.InitAuditTrail(workspace); err != nil {
			logger.Warn("audit trail unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAuditTrail()
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// currentEngine resolves the engine for this invocation: flag first,
// then config, then the default.
func currentEngine() string {
	if engineFlag != "" {
		return engineFlag
	}
	return userConfig.GetEngine()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "Project workspace directory")
	rootCmd.PersistentFlags().StringVarP(&engineFlag, "engine", "e", "", "AI engine (claude, codex, gemini)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.anycode/config.json)")

	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
