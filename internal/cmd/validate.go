package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/meera/datashelf/internal/config"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <spec-file> [path]...",
		Short: "Validate a specification file, and optionally paths against it",
		Long: `Compile every specification document in the file, reporting tag
patterns without exactly one capturing group, malformed templates, and
inconsistent enumeration defaults.

With additional path arguments, each path is checked against the first
specification document and its extracted tags are printed.

Exit code: 0 if everything is valid, 1 otherwise`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], args[1:])
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, specFile string, paths []string) error {
	out := cmd.OutOrStdout()

	specs, err := config.LoadSpecifications(specFile)
	if err != nil {
		return err
	}

	for _, s := range specs {
		fmt.Fprintf(out, "specification %q: %d tags, %d path patterns\n",
			s.Name(), len(s.TagNames()), len(s.Templates()))
	}

	invalid := 0
	for _, p := range paths {
		tags, ok := specs[0].Match(p)
		if !ok {
			invalid++
			fmt.Fprintf(out, "INVALID  %s\n", p)
			continue
		}

		names := make([]string, 0, len(tags))
		for n := range tags {
			names = append(names, n)
		}
		sort.Strings(names)

		fmt.Fprintf(out, "valid    %s\n", p)
		for _, n := range names {
			fmt.Fprintf(out, "         %s: %s\n", n, tags[n])
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d paths match no template", invalid, len(paths))
	}
	return nil
}
