// Package event defines the test lifecycle notifications a test engine hands
// to a reporter: set intros, per-test outcomes, per-set and total results.
//
// Events are plain values. They are built by the caller, consumed by a single
// reporter call and then discarded.
package event
