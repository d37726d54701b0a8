// This file contains the mcp commands: registry management and engine
// configuration sync.
package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"anycode/internal/logging"
	"anycode/internal/mcp"
)

var (
	addName    string
	addServer  string
	addEnabled bool
)

// mcpCmd groups the MCP server registry operations
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Manage the MCP server registry",
	Long: `The registry at ~/.anycode/mcp-registry.json is the shared record of
MCP servers across engines. "list" reconciles it against the active
engine's live configuration; "sync" pushes the enabled set to the engine.`,
}

// openRegistry builds the registry store and engine configurator from
// the loaded config.
func openRegistry() (*mcp.RegistryStore, *mcp.FileEngineConfig, error) {
	registryPath, err := userConfig.GetRegistryPath()
	if err != nil {
		return nil, nil, err
	}
	engineDir, err := userConfig.GetEngineConfigDir()
	if err != nil {
		return nil, nil, err
	}
	return mcp.NewRegistryStore(registryPath), mcp.NewFileEngineConfig(engineDir), nil
}

// mcpListCmd shows the reconciled server list
var mcpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered servers with their live status",
	Long: `Shows every registered server. Servers active in the engine's live
config are shown enabled with the engine's copy of the spec; servers the
engine knows but the registry does not are appended.

Example:
  anycode mcp list --engine claude`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, configurator, err := openRegistry()
		if err != nil {
			return err
		}

		statuses, err := store.ListWithStatus(currentEngine(), configurator)
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			fmt.Println("No MCP servers registered")
			return nil
		}
		for _, status := range statuses {
			state := "disabled"
			if status.Enabled {
				state = "enabled"
			}
			fmt.Printf("%-20s %-10s %s\n", status.ID, state, status.Name)
		}
		return nil
	},
}

// mcpAddCmd registers or replaces a server
var mcpAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Register an MCP server (replaces an existing entry)",
	Long: `Registers a server under the given id. The server spec is arbitrary
JSON, passed through verbatim to the engine on sync.

Example:
  anycode mcp add fs --name "Filesystem" --server '{"command":"fs-server","args":["--root","."]}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openRegistry()
		if err != nil {
			return err
		}
		id := args[0]

		spec := json.RawMessage(addServer)
		if !json.Valid(spec) {
			return fmt.Errorf("--server is not valid JSON")
		}
		name := addName
		if name == "" {
			name = id
		}
		if err := store.Upsert(id, name, spec, addEnabled); err != nil {
			return err
		}
		logging.Audit(logging.AuditRegistryWrite, map[string]interface{}{"op": "upsert", "id": id})
		fmt.Printf("✅ Registered server %s\n", id)
		return nil
	},
}

// mcpRemoveCmd unregisters a server
var mcpRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a server from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openRegistry()
		if err != nil {
			return err
		}
		if err := store.Remove(args[0]); err != nil {
			return err
		}
		logging.Audit(logging.AuditRegistryWrite, map[string]interface{}{"op": "remove", "id": args[0]})
		fmt.Printf("✅ Removed server %s\n", args[0])
		return nil
	},
}

// mcpEnableCmd / mcpDisableCmd flip the enabled flag
var mcpEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a registered server",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabledAction(true),
}

var mcpDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a registered server",
	Args:  cobra.ExactArgs(1),
	RunE:  setEnabledAction(false),
}

func setEnabledAction(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		store, _, err := openRegistry()
		if err != nil {
			return err
		}
		id := args[0]
		if _, ok, err := store.Get(id); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("server %s is not registered", id)
		}
		if err := store.SetEnabled(id, enabled); err != nil {
			return err
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Printf("✅ Server %s %s\n", id, state)
		return nil
	}
}

// mcpSyncCmd pushes the enabled set to the engine
var mcpSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push enabled servers to the engine's live configuration",
	Long: `Replaces the engine's enabled MCP server set with the registry's
enabled entries. One-directional: the registry is not changed.

Known engines: ` + strings.Join(mcp.KnownEngines(), ", ") + `.

Example:
  anycode mcp sync --engine gemini`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, configurator, err := openRegistry()
		if err != nil {
			return err
		}
		engine := currentEngine()
		if err := store.SyncToEngine(engine, configurator); err != nil {
			return err
		}
		logging.Audit(logging.AuditEngineSync, map[string]interface{}{"engine": engine})
		fmt.Printf("✅ Synced enabled servers to %s\n", engine)
		return nil
	},
}

func init() {
	mcpAddCmd.Flags().StringVar(&addName, "name", "", "Display name (defaults to the id)")
	mcpAddCmd.Flags().StringVar(&addServer, "server", "{}", "Server spec as JSON")
	mcpAddCmd.Flags().BoolVar(&addEnabled, "enabled", true, "Register the server as enabled")

	mcpCmd.AddCommand(mcpListCmd)
	mcpCmd.AddCommand(mcpAddCmd)
	mcpCmd.AddCommand(mcpRemoveCmd)
	mcpCmd.AddCommand(mcpEnableCmd)
	mcpCmd.AddCommand(mcpDisableCmd)
	mcpCmd.AddCommand(mcpSyncCmd)
}
