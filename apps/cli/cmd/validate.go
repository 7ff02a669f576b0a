package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/suitecast/packages/core/suite"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>",
	Short: "Validate suite files against the suite schema",
	Long: `Validate suite files without executing them.

Examples:
  suitecast validate api.suite.yaml
  suitecast validate ./suites/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := suite.CollectFiles(args)
	if err != nil {
		return exitWith(ExitUsageError, err)
	}

	if len(files) == 0 {
		return exitWith(ExitUsageError, fmt.Errorf("no .suite.yaml files found"))
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	hasErrors := false
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err == nil {
			err = suite.Validate(data)
		}
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green("Valid:"), file)
			continue
		}

		hasErrors = true
		var verr *suite.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(cmd.OutOrStderr(), "%s %s\n", red("Invalid:"), file)
			for _, problem := range verr.Problems {
				fmt.Fprintf(cmd.OutOrStderr(), "  - %s\n", problem)
			}
			continue
		}
		fmt.Fprintf(cmd.OutOrStderr(), "%s %s: %v\n", red("Error in"), file, err)
	}

	if hasErrors {
		return exitWith(ExitParseError, fmt.Errorf("validation failed"))
	}

	return nil
}
