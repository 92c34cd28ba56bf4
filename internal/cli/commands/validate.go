package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/dropboxlog/pkg/config"
	"github.com/ccollicutt/dropboxlog/pkg/dropbox"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a dropboxlog configuration file without exporting.

Checks:
  - YAML syntax
  - Required fields
  - Source types and their settings
  - Export file mode and size limits
  - Schedule expression and webhook URLs
  - Source directory existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(commandContext(cmd), configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Report what we found
	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Sources:   %d\n", len(cfg.Sources))
	fmt.Fprintf(out, "  Export:    %s (max %d bytes/entry, mode %04o)\n", cfg.Export.Path, cfg.Export.MaxBytes, cfg.Export.Mode())
	if cfg.Serve.Schedule != "" {
		fmt.Fprintf(out, "  Schedule:  %s\n", cfg.Serve.Schedule)
	}
	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(out, "  Webhooks:  %d\n", len(cfg.Webhooks))
	}

	fmt.Fprintf(out, "\nSources:\n")
	for i, src := range cfg.Sources {
		fmt.Fprintf(out, "  %d. %s\n", i+1, src)
	}

	// Check if source directories exist (warnings only)
	dirs, err := cfg.WatchDirs()
	if err != nil {
		fmt.Fprintf(out, "\nWarning: Error expanding source directories: %v\n", err)
		return nil
	}
	for _, d := range dirs {
		src, err := dropbox.OpenDir(d)
		if err != nil {
			fmt.Fprintf(out, "\nWarning: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "\nDirectory %s: %d entries\n", d, src.Len())
		_ = src.Close()
	}

	return nil
}
