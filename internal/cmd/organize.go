package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meera/datashelf/internal/config"
	"github.com/meera/datashelf/internal/organize"
)

// NewOrganizeCommand creates and returns the organize subcommand
func NewOrganizeCommand() *cobra.Command {
	var specFile string

	cmd := &cobra.Command{
		Use:   "organize <rules-file>",
		Short: "Reorganize raw files into the specification's layout",
		Long: `Run every organization-rules document in the file: walk the source
tree, derive tags for each candidate file through the tag rule
pipeline, build its destination path from the specification, and copy
it there.

Files whose tags yield no valid destination are reported and skipped;
the batch always runs to the end. Exit code 1 signals that at least
one file could not be organized.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrganize(cmd, args[0], specFile)
		},
	}

	cmd.Flags().StringVar(&specFile, "spec", "", "specification file describing the destination layout")
	cmd.MarkFlagRequired("spec")

	return cmd
}

func runOrganize(cmd *cobra.Command, rulesFile, specFile string) error {
	_, log, err := setup(cmd)
	if err != nil {
		return err
	}

	s, err := config.LoadSpecification(specFile)
	if err != nil {
		return err
	}

	ruleDocs, err := config.LoadRules(rulesFile)
	if err != nil {
		return err
	}

	org := organize.New(s, log)
	failed := 0
	for _, rules := range ruleDocs {
		report, err := org.Run(rules)
		if err != nil {
			return err
		}
		failed += len(report.Failures)
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d/%d organized, %d failed\n",
			report.RunID, report.Organized, report.Matched, len(report.Failures))
	}

	if failed > 0 {
		return fmt.Errorf("%d files could not be organized", failed)
	}
	return nil
}
