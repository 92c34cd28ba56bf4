// Package cli provides the command-line interface for dropboxlog.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/dropboxlog/internal/cli/commands"
	"github.com/ccollicutt/dropboxlog/internal/cli/plugins"
)

// Execute runs the root command with os.Args and returns the exit code.
func Execute() int {
	return Run(os.Args[1:])
}

// Run runs the root command with args and returns the exit code.
func Run(args []string) int {
	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	commands.ExitCode = commands.ExitOK

	// Check if the first argument might be a plugin command
	if len(args) > 0 {
		potentialCommand := args[0]
		// Skip flags (start with -)
		if len(potentialCommand) > 0 && potentialCommand[0] != '-' {
			// Check if it's a known built-in command
			if !isBuiltinCommand(rootCmd, potentialCommand) {
				// Try to find and execute a plugin
				if pluginPath, err := plugins.FindPlugin(potentialCommand); err == nil {
					// Plugin found - execute it with remaining args
					return plugins.Execute(pluginPath, args[1:])
				}
				// Plugin not found - will fall through to Cobra which will show error
			}
		}
	}

	if err := rootCmd.Execute(); err != nil {
		// Check if this was an unknown command that could be a plugin
		if len(args) > 0 {
			potentialCommand := args[0]
			if len(potentialCommand) > 0 && potentialCommand[0] != '-' {
				if !isBuiltinCommand(rootCmd, potentialCommand) {
					// Show helpful plugin error message
					_, _ = fmt.Fprintln(os.Stderr, plugins.FormatNotFoundError(potentialCommand))
					return commands.ExitError
				}
			}
		}
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return commands.ExitError
	}
	return commands.ExitCode
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	// Also check for special commands like help and completion
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dropboxlog",
		Short: "Export Android DropBox entries to a text file",
		Long: `dropboxlog exports Android DropBox entries (crashes, ANRs, tombstones,
boot and watchdog reports) to a single text file, oldest first.

Entries can come from a DropBox directory copied off a device, straight
from a device over adb, or from a SQLite archive built with "archive".

PLUGINS:
  dropboxlog supports plugins for extended functionality. Plugins are
  standalone binaries named dropboxlog-<command> that are automatically
  discovered and invoked.

  Plugin locations (searched in order):
    1. Same directory as the dropboxlog binary
    2. ~/.dropboxlog/plugins/
    3. Anywhere in PATH`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")

	// Add subcommands
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewArchiveCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
