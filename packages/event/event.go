package event

import "fmt"

// Event is one of the payload types declared in this package
type Event interface {
	isEvent()
}

// NoSetFound is emitted when the engine found no test set to run
type NoSetFound struct{}

// Intro is emitted once before the first test runs
type Intro struct{}

// SetIntro is emitted before each test set begins
type SetIntro struct {
	SetName string
	SetDoc  string
}

// TestOutcome describes a test that ran to completion
type TestOutcome struct {
	Success   bool
	ExitCode  int
	ElapsedMs float64
	Doc       string
}

// DirtyFailure describes a test that aborted instead of reporting a result
type DirtyFailure struct {
	ExceptionMessage string
}

// SetResult summarizes a finished test set
type SetResult struct {
	SetName     string
	TestsTotal  int
	TestsPassed int
}

// TotalResult summarizes the whole run
type TotalResult struct {
	TestsTotal  int
	TestsPassed int
}

// BuildResult is the OK/KO signal that follows a TotalResult
type BuildResult struct {
	OK bool
}

func (NoSetFound) isEvent()   {}
func (Intro) isEvent()        {}
func (SetIntro) isEvent()     {}
func (TestOutcome) isEvent()  {}
func (DirtyFailure) isEvent() {}
func (SetResult) isEvent()    {}
func (TotalResult) isEvent()  {}
func (BuildResult) isEvent()  {}

// Percentage returns the share of passed tests in the set
func (r SetResult) Percentage() (int, error) {
	return Percentage(r.TestsTotal, r.TestsPassed)
}

// Percentage returns the share of passed tests in the run
func (r TotalResult) Percentage() (int, error) {
	return Percentage(r.TestsTotal, r.TestsPassed)
}

// Build derives the build signal for the run
func (r TotalResult) Build() (BuildResult, error) {
	pct, err := r.Percentage()
	if err != nil {
		return BuildResult{}, err
	}
	return BuildResult{OK: pct == 100}, nil
}

// InvalidResultError reports result counts a percentage cannot be computed from
type InvalidResultError struct {
	Total  int
	Passed int
}

func (e *InvalidResultError) Error() string {
	if e.Total <= 0 {
		return fmt.Sprintf("invalid result: no tests ran (%d passed out of %d)", e.Passed, e.Total)
	}
	return fmt.Sprintf("invalid result: %d passed out of %d tests", e.Passed, e.Total)
}

// Percentage computes floor(100 * passed / total). Zero or negative totals
// and passed counts outside [0, total] are rejected, never reported as 0%.
func Percentage(total, passed int) (int, error) {
	if total <= 0 || passed < 0 || passed > total {
		return 0, &InvalidResultError{Total: total, Passed: passed}
	}
	return 100 * passed / total, nil
}
