package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voss/swarmtool/internal/config"
	"github.com/voss/swarmtool/pkg/runtime"
	"github.com/voss/swarmtool/pkg/safety"
)

var toolCmd = &cobra.Command{
	Use:   "tool",
	Short: "Manage the local tool store",
	Long:  `Create, list, inspect, execute, and remove tools in the local store.`,
}

var toolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tool names",
	RunE:  runToolList,
}

var toolInspectCmd = &cobra.Command{
	Use:   "inspect <name>",
	Short: "Print a tool's source",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolInspect,
}

var toolCreateCmd = &cobra.Command{
	Use:   "create <name> <file>",
	Short: "Create or overwrite a tool from a source file",
	Long: `Compile the source file and persist it under the given name. An
existing tool with the same name is replaced and its prior source is lost.`,
	Args: cobra.ExactArgs(2),
	RunE: runToolCreate,
}

var toolRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a tool from the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runToolRemove,
}

var toolExecCmd = &cobra.Command{
	Use:   "exec <name> [arg]",
	Short: "Execute a tool and print its result",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runToolExec,
}

func init() {
	toolCmd.AddCommand(toolListCmd)
	toolCmd.AddCommand(toolInspectCmd)
	toolCmd.AddCommand(toolCreateCmd)
	toolCmd.AddCommand(toolRemoveCmd)
	toolCmd.AddCommand(toolExecCmd)
	rootCmd.AddCommand(toolCmd)
}

// openRuntime builds a runtime against the configured store, without the
// filesystem watcher. CLI invocations are one-shot; there is nothing to
// watch for.
func openRuntime() (*runtime.Runtime, error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	rt, err := runtime.New(runtime.Config{
		ToolsDir:        cfg.ToolsDir,
		ScrapeTimeout:   time.Duration(cfg.Scrape.TimeoutSeconds) * time.Second,
		ScrapeWordLimit: cfg.Scrape.WordLimit,
		PeerTimeout:     time.Duration(cfg.Peer.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open tool store: %w", err)
	}
	return rt, nil
}

func runToolList(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	names, err := rt.ListTools()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runToolInspect(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	source, err := rt.InspectTool(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), source)
	return nil
}

func runToolCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Create(name, string(data)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", name, safety.Classify(string(data)))
	return nil
}

func runToolRemove(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.RemoveTool(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
	return nil
}

func runToolExec(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	result, err := rt.Execute(args[0], args[1:]...)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}
