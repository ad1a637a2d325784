package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meera/datashelf/internal/config"
	"github.com/meera/datashelf/internal/index"
)

// NewIndexCommand creates and returns the index subcommand
func NewIndexCommand() *cobra.Command {
	var (
		root       string
		specFile   string
		dbPath     string
		skip       []string
		reset      bool
		invalidToo bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index a layout's files and tags into the database",
		Long: `Walk the layout root, match each file's relative path against the
specification's templates, and record the extracted tag values in the
index database. Files matching no template are skipped unless
--invalid-too is set, in which case the per-tag extraction patterns
are used instead.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, root, specFile, dbPath, skip, reset, invalidToo)
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "layout root directory")
	cmd.Flags().StringVar(&specFile, "spec", "", "specification file describing the layout")
	cmd.Flags().StringVar(&dbPath, "db", "", "index database path (default from config)")
	cmd.Flags().StringArrayVar(&skip, "skip", nil, "regex of relative paths to skip (repeatable)")
	cmd.Flags().BoolVar(&reset, "reset", false, "purge previously indexed files under the root first")
	cmd.Flags().BoolVar(&invalidToo, "invalid-too", false, "also index files matching no template")
	cmd.MarkFlagRequired("root")
	cmd.MarkFlagRequired("spec")

	return cmd
}

func runIndex(cmd *cobra.Command, root, specFile, dbPath string, skip []string, reset, invalidToo bool) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	if dbPath == "" {
		dbPath = cfg.IndexPath
	}

	s, err := config.LoadSpecification(specFile)
	if err != nil {
		return err
	}

	store, err := index.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	layout := index.NewLayout(root, s, store, log)
	report, err := layout.Index(cmd.Context(), index.IndexOptions{
		InvalidToo: invalidToo,
		Skip:       skip,
		Reset:      reset,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files (%d skipped)\n", report.Indexed, report.Skipped)
	return nil
}
