package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/suitecast/packages/core/suite"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>",
	Short: "List the sets and tests in suite files",
	Long: `List the test sets and tests defined in .suite.yaml files.

Examples:
  suitecast list api.suite.yaml
  suitecast list ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := suite.CollectFiles(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}

	if len(files) == 0 {
		return exitWith(ExitUsageError, fmt.Errorf("no .suite.yaml files found"))
	}

	for _, file := range files {
		s, err := suite.ParseFile(file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error parsing %s: %v\n", file, err)
			continue
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s (%d tests):\n", file, s.TestCount())
		for _, set := range s.Sets {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s", set.Name)
			if set.Doc != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ": %s", set.Doc)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			for _, t := range set.Tests {
				name := t.Doc
				if name == "" {
					name = t.Run
				}
				fmt.Fprintf(cmd.OutOrStdout(), "    - %s\n", name)
			}
		}
	}

	return nil
}
