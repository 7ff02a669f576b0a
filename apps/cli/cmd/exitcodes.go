package cmd

import "fmt"

// Exit codes for suitecast CLI
const (
	// ExitSuccess indicates the build is OK
	ExitSuccess = 0

	// ExitTestFailure indicates the build is KO
	ExitTestFailure = 1

	// ExitParseError indicates a suite file could not be parsed
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a websocket or listener error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// ExitError makes a command exit with Code. A nil Err exits silently.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func exitWith(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}
