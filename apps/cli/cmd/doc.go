// Package cmd implements the suitecast CLI commands using Cobra.
//
// Available commands:
//   - run: Execute suite files and report to the terminal or as JSON lines
//   - serve: Run suites for each remote observer that connects over a websocket
//   - observe: Connect to a serving suitecast and render its results locally
//   - validate: Check suite files against the schema without executing
//   - list: Display the sets and tests defined in suite files
//   - history: Show recorded runs
//   - init: Create a config file and an example suite
//   - version: Show suitecast version information
//
// Flags default from SUITECAST_* environment variables, and a
// .suitecast.yaml file in the working directory supplies the rest.
package cmd
