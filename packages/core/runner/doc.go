// Package runner executes suitecast suites and reports their progress.
//
// It provides functionality for:
//   - Running each test's shell command and measuring elapsed time
//   - Deciding pass/fail from the exit code
//   - Driving a report.Reporter in lifecycle order
//   - Optional pacing of test starts
//   - Elapsed-time percentiles for the run summary
package runner
