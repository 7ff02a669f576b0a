package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/suitecast/packages/core/config"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new suitecast project",
	Long: `Initialize a new suitecast project in the current directory.

This creates:
  - .suitecast.yaml      - Configuration file with the stock templates and colors
  - example.suite.yaml   - Example suite file

Examples:
  suitecast init
  suitecast init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleSuite = `# Each test runs through "sh -c" and passes when it exits with expect_code.
sets:
  - name: environment
    doc: Checks the tools the other sets need
    tests:
      - doc: a shell is available
        run: command -v sh
      - doc: curl is installed
        run: curl --version
        timeout: 5s

  - name: filesystem
    doc: Checks the working directory
    tests:
      - doc: the suite file exists
        run: test -f example.suite.yaml
      - doc: a missing file is reported as missing
        run: test -f does-not-exist
        expect_code: 1
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	return initProject(cmd, cwd)
}

func initProject(cmd *cobra.Command, dir string) error {
	configFile := filepath.Join(dir, ".suitecast.yaml")
	exampleFile := filepath.Join(dir, "example.suite.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return exitWith(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	// Write the stock tables out so they can be edited in place
	cfg := config.DefaultConfig()
	table := config.DefaultTable()
	cfg.Strings = table.Strings()
	cfg.Colors = table.Colors()

	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleSuite), 0644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nsuitecast project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'suitecast run example.suite.yaml -vv' to execute the example suite.\n")

	return nil
}
