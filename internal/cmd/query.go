package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/meera/datashelf/internal/index"
)

// NewQueryCommand creates and returns the query subcommand
func NewQueryCommand() *cobra.Command {
	var (
		dbPath   string
		root     string
		tags     []string
		withTags bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query indexed files by tag values",
		Long: `List indexed files matching tag filters. Each --tag flag names one
tag and the values accepted for it; a file must satisfy every named
tag to be listed.

Example:
  datashelf query --tag subject=G1,G2 --tag day=02`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, dbPath, root, tags, withTags)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "index database path (default from config)")
	cmd.Flags().StringVar(&root, "root", "", "restrict to one layout root")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag filter name=value[,value...] (repeatable)")
	cmd.Flags().BoolVar(&withTags, "with-tags", false, "print each file's tag mapping")

	return cmd
}

func runQuery(cmd *cobra.Command, dbPath, root string, tags []string, withTags bool) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	if dbPath == "" {
		dbPath = cfg.IndexPath
	}

	filters, err := parseTagFilters(tags)
	if err != nil {
		return err
	}

	store, err := index.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := store.Query(cmd.Context(), root, filters)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range files {
		fmt.Fprintln(out, f.Path)
		if !withTags {
			continue
		}
		names := make([]string, 0, len(f.Tags))
		for n := range f.Tags {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(out, "  %s: %s\n", n, f.Tags[n])
		}
	}

	fmt.Fprintf(out, "%d files\n", len(files))
	return nil
}
