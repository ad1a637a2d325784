package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for datashelf
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datashelf",
		Short: "Specification-driven dataset organization and indexing",
		Long: `Datashelf describes a dataset layout as a set of named tags and
path-pattern templates, then uses that specification both ways: to
extract tags from existing file paths and to build destination paths
when reorganizing raw data.

Specifications and organization rules are YAML documents; indexed
file-tag associations are kept in a SQLite database.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", ".datashelf/config.yaml", "path to tool configuration")
	cmd.PersistentFlags().String("log-level", "", "log verbosity: trace, debug, info, warn, error")

	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewOrganizeCommand())
	cmd.AddCommand(NewIndexCommand())
	cmd.AddCommand(NewQueryCommand())

	return cmd
}
