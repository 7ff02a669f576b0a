// Package report implements the Reporter contract a test engine calls at
// fixed lifecycle points: intro, set intros, test outcomes, set results and
// the total result.
//
// Two implementations exist:
//   - TerminalReporter: colorized text written to stdout (or any io.Writer)
//   - StreamReporter: JSON envelopes sent over an outbound Channel
//
// Both are stateless apart from their verbosity and output sink, so
// repeating a call repeats its output.
package report
